// Package middleware provides HTTP middleware for the entitlement API.
//
// # Overview
//
// The webhook endpoint is exposed to the payment provider and to a
// client-side success-page fallback, so it is rate limited. The limiter is
// Redis-backed and shared across instances; when Redis is unreachable it
// fails open, because dropping a payment confirmation is worse than letting
// a burst through. An in-memory token bucket serves deployments without
// Redis.
//
// Recovery and request-logging middleware wrap every route.
//
// # Related Packages
//
//   - pkg/api: wires the middleware chain onto the router
//   - pkg/observability: the logger and metrics the middleware reports to
package middleware
