// Package entitlement decides whether an account may post a job listing.
//
// # Overview
//
// The evaluator is the read side: it inspects the subscription record and the
// derived listing count and returns an allow or deny decision with a reason.
// An account with no record is denied. A trial is active for a fixed window
// from account creation; a paid plan is active only while its period end is
// in the future. A plan without a quota always allows posting while active.
//
// The decision is advisory. The write side goes through the persisted
// reservation counter in pkg/subscription, which enforces the quota in a
// single conditional UPDATE so concurrent posts cannot overshoot it.
//
// # Usage Example
//
//	eval := entitlement.NewEvaluator(subs, counts, logger, metrics)
//	decision, err := eval.CanPostJob(ctx, accountID)
//	if err != nil {
//		return err
//	}
//	if !decision.Allowed {
//		return fmt.Errorf("posting denied: %s", decision.Reason)
//	}
//
// # Related Packages
//
//   - pkg/subscription: the record being evaluated and the reservation counter
//   - pkg/listings: the derived usage count
package entitlement
