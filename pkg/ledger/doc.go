// Package ledger is the append-only billing history for payment events.
//
// # Overview
//
// Every confirmed payment produces exactly one ledger entry, keyed by the
// provider's checkout session reference. The UNIQUE constraint on that
// reference is the idempotency enforcement for payment processing: when two
// deliveries of the same session race, exactly one Append wins and the loser
// sees ErrDuplicateSession. Entries move PENDING to COMPLETED on success,
// PENDING to FAILED when activation breaks mid-flight, FAILED back to
// COMPLETED when a redelivery re-drives the activation, and COMPLETED to
// REFUNDED on a refund event. No other transitions exist and entries are
// never deleted.
//
// # Related Packages
//
//   - pkg/payments: writes entries while processing provider events
//   - pkg/reconcile: sweeps entries stuck in PENDING
package ledger
