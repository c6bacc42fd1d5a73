// Package plans defines the compiled-in catalog of subscription plans.
//
// # Overview
//
// A plan bundles a job-posting quota, a period length, a price and access
// flags. The catalog is a closed set: every PlanID has exactly one
// definition, and unknown IDs surface as a typed UnknownPlanError rather
// than a nil lookup.
//
// Quota semantics: a nil Quota means unlimited postings for the period.
// Definitions are immutable; subscription activation copies the quota and
// access flags onto the account record so that later catalog changes never
// retroactively alter an already-purchased period.
//
// # Usage Example
//
//	def, err := plans.Get(plans.PlanSpotlight)
//	if plans.IsUnknownPlan(err) {
//	    // reject the payment event, the plan id is not ours
//	}
package plans
