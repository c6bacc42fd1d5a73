// Package api exposes the entitlement engine over HTTP.
//
// # Overview
//
// The API has two audiences. The rest of the application reads entitlement
// decisions, subscription summaries and billing history, and reserves
// posting slots around listing writes. The payment provider (and the
// client-side success-page fallback) posts confirmed-payment notifications.
//
// Payment endpoints translate the processor's error taxonomy into status
// codes the delivery mechanism can act on: terminal validation failures are
// 422 and must not be redelivered; retryable failures are 409 or 503 and
// should be. A duplicate delivery is 200, same as the first.
//
// # Related Packages
//
//   - pkg/entitlement: decision and summary reads, slot reservations
//   - pkg/payments: confirmed-payment processing
//   - pkg/ledger: billing history
package api
