// Package events emits domain events to the notification collaborator.
//
// # Overview
//
// The engine does not send email or render messages itself. When a
// subscription activates it publishes a signed event to a configured
// notification endpoint and moves on; delivery is fire-and-forget and a
// failed delivery never fails the payment that triggered it. Consumers
// verify the HMAC signature header before trusting the payload.
//
// # Related Packages
//
//   - pkg/payments: publishes activation events after a successful payment
//   - pkg/async: the supervised goroutine the dispatch runs on
package events
