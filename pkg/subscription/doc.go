// Package subscription owns the authoritative per-account subscription record.
//
// # Overview
//
// Every billable account has at most one record. The record is created as an
// implicit trial when the account is first seen and is only ever mutated by
// payment activation (which overwrites the period wholesale) and by posting
// slot reservations (a persisted counter guarded in a single conditional
// UPDATE). Records are never deleted; a later activation supersedes the
// earlier period.
//
// Quota and network access are frozen copies of the plan definition taken at
// activation time, so catalog changes never retroactively alter a purchased
// period.
//
// # Concurrency
//
// Activate writes periodStart, periodEnd, quota and flags in one statement;
// a concurrent reader never observes a half-updated period. ReserveSlot is
// the check-then-act fix for job posting: the quota comparison and the
// counter increment happen in the WHERE clause and SET of one UPDATE, so two
// racing requests at the quota boundary cannot both succeed.
//
// # Related Packages
//
//   - pkg/plans: definitions frozen onto the record at activation
//   - pkg/entitlement: read-side evaluation of the record
//   - pkg/payments: the only caller of Activate
package subscription
