// Package payments turns confirmed-payment notifications into subscription
// activations.
//
// # Overview
//
// Deliveries arrive at least once: the provider's webhook and the client's
// success-page fallback can both fire for the same checkout session. The
// processor is built around that. A session already COMPLETED in the ledger
// is a no-op; otherwise the canonical session is re-fetched from the
// provider (caller-supplied fields are never trusted), verified, and then
// driven through insert PENDING, activate, mark COMPLETED. The unique
// constraint on the ledger's session reference is what stops two concurrent
// deliveries from both activating.
//
// Errors split into terminal and retryable so the delivery mechanism knows
// whether to redeliver. A malformed or unpaid session is terminal and writes
// nothing. Provider timeouts are retryable because nothing has been written
// yet. Failures after the PENDING entry landed mark it FAILED best-effort
// and are retryable; the redelivery re-drives the activation.
//
// # Usage Example
//
//	processor := payments.NewProcessor(db, subs, ledgerStore, provider, dispatcher, logger, metrics)
//	activated, err := processor.HandleConfirmedPayment(ctx, sessionRef)
//	if err != nil {
//		if payments.IsRetryable(err) {
//			// respond non-2xx so the provider redelivers
//		}
//		...
//	}
//
// # Related Packages
//
//   - pkg/ledger: the idempotency guard and billing history
//   - pkg/subscription: the activation target
//   - pkg/events: activation notifications
package payments
