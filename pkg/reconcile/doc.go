// Package reconcile re-drives payments that stalled mid-activation.
//
// # Overview
//
// When marking a broken activation FAILED itself fails, the ledger entry is
// left PENDING with no redelivery coming. The sweeper periodically lists
// entries stuck in PENDING past a minimum age and replays each session
// through the payment processor, which re-verifies it with the provider and
// either completes or terminally rejects it. The sweep is safe to run on
// every instance concurrently; the ledger's status guards and the session
// unique constraint make replays race-proof.
//
// # Related Packages
//
//   - pkg/ledger: the stale-entry listing
//   - pkg/payments: the processor being replayed into
package reconcile
