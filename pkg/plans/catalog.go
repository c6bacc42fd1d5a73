package plans

// PlanID identifies a plan in the catalog
type PlanID string

const (
	// PlanTrial is the implicit 30-day trial every new employer account starts on
	PlanTrial PlanID = "TRIAL"
	// PlanSpotlight is a single-listing plan
	PlanSpotlight PlanID = "SPOTLIGHT"
	// PlanBundle is a multi-listing plan
	PlanBundle PlanID = "BUNDLE"
	// PlanUnlimited allows unlimited listings for the period
	PlanUnlimited PlanID = "UNLIMITED"
	// PlanNetwork is the agency plan with professional-network access
	PlanNetwork PlanID = "NETWORK"
)

// TrialWindowDays is the implicit trial period measured from account creation
const TrialWindowDays = 30

// PlanDefinition describes a purchasable plan
type PlanDefinition struct {
	ID          PlanID `json:"id"`
	DisplayName string `json:"display_name"`
	// Quota is the maximum number of job postings per period; nil means unlimited
	Quota      *int   `json:"quota,omitempty"`
	PeriodDays int    `json:"period_days"`
	PriceCents int64  `json:"price_cents"`
	Currency   string `json:"currency"`
	// GrantsNetworkAccess unlocks the professional network directory
	GrantsNetworkAccess bool `json:"grants_network_access"`
	IsTrial             bool `json:"is_trial"`
}

// Unlimited reports whether the plan has no posting quota
func (d PlanDefinition) Unlimited() bool {
	return d.Quota == nil
}

func intPtr(v int) *int { return &v }

// catalog is the closed set of plan definitions. Exactly one entry per PlanID.
var catalog = map[PlanID]PlanDefinition{
	PlanTrial: {
		ID:          PlanTrial,
		DisplayName: "30-Day Trial",
		Quota:       intPtr(1),
		PeriodDays:  TrialWindowDays,
		PriceCents:  0,
		Currency:    "usd",
		IsTrial:     true,
	},
	PlanSpotlight: {
		ID:          PlanSpotlight,
		DisplayName: "Spotlight",
		Quota:       intPtr(1),
		PeriodDays:  30,
		PriceCents:  25000, // $250
		Currency:    "usd",
	},
	PlanBundle: {
		ID:          PlanBundle,
		DisplayName: "Hiring Bundle",
		Quota:       intPtr(3),
		PeriodDays:  60,
		PriceCents:  65000, // $650
		Currency:    "usd",
	},
	PlanUnlimited: {
		ID:          PlanUnlimited,
		DisplayName: "Unlimited",
		Quota:       nil,
		PeriodDays:  90,
		PriceCents:  125000, // $1,250
		Currency:    "usd",
	},
	PlanNetwork: {
		ID:                  PlanNetwork,
		DisplayName:         "Agency Network",
		Quota:               nil,
		PeriodDays:          90,
		PriceCents:          250000, // $2,500
		Currency:            "usd",
		GrantsNetworkAccess: true,
	},
}

// Get returns the definition for a plan ID
func Get(id PlanID) (PlanDefinition, error) {
	def, ok := catalog[id]
	if !ok {
		return PlanDefinition{}, &UnknownPlanError{ID: id}
	}
	return def, nil
}

// All returns every plan definition, for listing endpoints
func All() []PlanDefinition {
	defs := make([]PlanDefinition, 0, len(catalog))
	for _, id := range []PlanID{PlanTrial, PlanSpotlight, PlanBundle, PlanUnlimited, PlanNetwork} {
		defs = append(defs, catalog[id])
	}
	return defs
}

// UnknownPlanError indicates a plan ID with no catalog entry
type UnknownPlanError struct {
	ID PlanID
}

func (e *UnknownPlanError) Error() string {
	return "unknown plan: " + string(e.ID)
}

// IsUnknownPlan checks if an error is an unknown plan error
func IsUnknownPlan(err error) bool {
	_, ok := err.(*UnknownPlanError)
	return ok
}
