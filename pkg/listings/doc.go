// Package listings provides read-only access to the job listings table for
// usage metering.
//
// # Overview
//
// The listings table is owned by the listings service; this package never
// writes to it. Usage for a billing period is derived on demand by counting
// the listings an account created during the period, with a grace window so
// recently expired listings still count against the quota. Nothing here is
// cached: the count is recomputed on every evaluation.
//
// # Related Packages
//
//   - pkg/entitlement: consumes the derived count for summaries
//   - pkg/subscription: the persisted reservation counter used for admission
package listings
