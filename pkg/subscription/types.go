package subscription

import (
	"context"
	"time"

	"github.com/iiiffi-e2/bell-registry-sub002/pkg/plans"
)

// Record is the authoritative subscription state for one account
type Record struct {
	AccountID string       `json:"account_id"`
	PlanID    plans.PlanID `json:"plan_id"`
	// PeriodStart and PeriodEnd delimit the current paid (or trial) period.
	// Nullable only for legacy trial rows that never had an explicit end.
	PeriodStart *time.Time `json:"period_start,omitempty"`
	PeriodEnd   *time.Time `json:"period_end,omitempty"`
	// Quota is frozen from the plan definition at activation; nil means unlimited
	Quota *int `json:"quota,omitempty"`
	// PostsUsed is the persisted reservation counter for the current period
	PostsUsed int `json:"posts_used"`
	// NetworkAccess is frozen from the plan definition at activation
	NetworkAccess bool `json:"network_access"`
	// ExternalCustomerRef and LastSessionRef tie the record to the payment provider
	ExternalCustomerRef string `json:"external_customer_ref,omitempty"`
	LastSessionRef      string `json:"last_session_ref,omitempty"`
	// AccountCreatedAt anchors the implicit trial window; the trial expiry is
	// computed from it rather than stored, so the two can never drift
	AccountCreatedAt time.Time `json:"account_created_at"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ActiveAt reports whether the record grants an active period at the given
// instant. Trial activity is a fixed window from account creation; paid
// activity requires an explicit period end.
func (r *Record) ActiveAt(now time.Time) bool {
	if r.PlanID == plans.PlanTrial {
		trialEnd := r.AccountCreatedAt.AddDate(0, 0, plans.TrialWindowDays)
		return !now.After(trialEnd)
	}
	return r.PeriodEnd != nil && !now.After(*r.PeriodEnd)
}

// Unlimited reports whether the current period has no posting quota
func (r *Record) Unlimited() bool {
	return r.Quota == nil
}

// Store is the interface for subscription state persistence
type Store interface {
	// Get returns the record for an account, or ErrNotFound
	Get(ctx context.Context, accountID string) (*Record, error)

	// EnsureTrial creates the implicit trial record if the account has none.
	// Idempotent; an existing record (trial or paid) is left untouched.
	EnsureTrial(ctx context.Context, accountID string, accountCreatedAt time.Time) error

	// Activate starts a new period for the plan, freezing quota and access
	// flags from the catalog. A later activation supersedes an earlier one;
	// periods never stack. Called exclusively by the payment event processor.
	Activate(ctx context.Context, accountID string, planID plans.PlanID, customerRef, sessionRef string) error

	// ReserveSlot atomically claims one posting slot if the account has an
	// active period with remaining quota. Returns false when the period is
	// inactive or the quota is exhausted.
	ReserveSlot(ctx context.Context, accountID string) (bool, error)

	// ReleaseSlot returns a previously reserved slot, for callers whose
	// listing write failed after the reservation succeeded.
	ReleaseSlot(ctx context.Context, accountID string) error
}
