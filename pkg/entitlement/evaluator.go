package entitlement

import (
	"context"
	"fmt"
	"time"

	"github.com/iiiffi-e2/bell-registry-sub002/pkg/listings"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/observability"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/plans"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/subscription"
)

// DenialReason explains why posting was denied
type DenialReason string

const (
	ReasonAllowed        DenialReason = ""
	ReasonNoSubscription DenialReason = "no_subscription"
	ReasonPlanExpired    DenialReason = "plan_expired"
	ReasonQuotaExhausted DenialReason = "quota_exhausted"
)

// Decision is the outcome of an entitlement check
type Decision struct {
	Allowed bool         `json:"allowed"`
	Reason  DenialReason `json:"reason,omitempty"`
	// Usage and Quota give the caller enough to render a paywall prompt.
	// Quota is nil for unlimited plans.
	Usage int  `json:"usage"`
	Quota *int `json:"quota,omitempty"`
}

// Summary is the account-facing view of a subscription
type Summary struct {
	AccountID     string       `json:"account_id"`
	PlanID        plans.PlanID `json:"plan_id"`
	PlanName      string       `json:"plan_name"`
	Active        bool         `json:"active"`
	PeriodStart   *time.Time   `json:"period_start,omitempty"`
	PeriodEnd     *time.Time   `json:"period_end,omitempty"`
	Quota         *int         `json:"quota,omitempty"`
	Usage         int          `json:"usage"`
	NetworkAccess bool         `json:"network_access"`
}

// Evaluator answers entitlement questions from subscription state and usage
type Evaluator struct {
	subs    subscription.Store
	counts  listings.Counter
	logger  *observability.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// NewEvaluator creates an evaluator over the given stores
func NewEvaluator(subs subscription.Store, counts listings.Counter, logger *observability.Logger, metrics *observability.Metrics) *Evaluator {
	return &Evaluator{
		subs:    subs,
		counts:  counts,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// CanPostJob evaluates whether the account may create a job listing right
// now. The check is read-only; callers about to create a listing must still
// reserve a slot so concurrent posts cannot exceed the quota.
func (e *Evaluator) CanPostJob(ctx context.Context, accountID string) (*Decision, error) {
	rec, err := e.subs.Get(ctx, accountID)
	if subscription.IsNotFound(err) {
		return e.decide(&Decision{Allowed: false, Reason: ReasonNoSubscription}), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate entitlement: %w", err)
	}

	now := e.now()
	if !rec.ActiveAt(now) {
		return e.decide(&Decision{Allowed: false, Reason: ReasonPlanExpired}), nil
	}

	usage, err := e.usage(ctx, rec)
	if err != nil {
		return nil, err
	}

	if rec.Unlimited() {
		return e.decide(&Decision{Allowed: true, Usage: usage}), nil
	}

	if usage >= *rec.Quota {
		return e.decide(&Decision{Allowed: false, Reason: ReasonQuotaExhausted, Usage: usage, Quota: rec.Quota}), nil
	}

	return e.decide(&Decision{Allowed: true, Usage: usage, Quota: rec.Quota}), nil
}

// ReservePostingSlot atomically claims a posting slot ahead of a listing
// write. On denial the read-side evaluation runs once more to attach the
// reason; the denial itself came from the conditional UPDATE, so the reason
// is advisory.
func (e *Evaluator) ReservePostingSlot(ctx context.Context, accountID string) (*Decision, error) {
	ok, err := e.subs.ReserveSlot(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve posting slot: %w", err)
	}
	if ok {
		e.metrics.SlotReservationsTotal.WithLabelValues("granted").Inc()
		return &Decision{Allowed: true}, nil
	}

	e.metrics.SlotReservationsTotal.WithLabelValues("denied").Inc()
	decision, err := e.CanPostJob(ctx, accountID)
	if err != nil {
		return &Decision{Allowed: false, Reason: ReasonQuotaExhausted}, nil
	}
	decision.Allowed = false
	if decision.Reason == ReasonAllowed {
		// The read raced an activation or another reservation; the
		// conditional UPDATE is authoritative.
		decision.Reason = ReasonQuotaExhausted
	}
	return decision, nil
}

// ReleasePostingSlot returns a slot whose listing write failed
func (e *Evaluator) ReleasePostingSlot(ctx context.Context, accountID string) error {
	if err := e.subs.ReleaseSlot(ctx, accountID); err != nil {
		return fmt.Errorf("failed to release posting slot: %w", err)
	}
	e.metrics.SlotReservationsTotal.WithLabelValues("released").Inc()
	return nil
}

// EnsureTrial creates the implicit trial record at first sight of an account
func (e *Evaluator) EnsureTrial(ctx context.Context, accountID string, accountCreatedAt time.Time) error {
	return e.subs.EnsureTrial(ctx, accountID, accountCreatedAt)
}

// GetSummary returns the account-facing subscription view, or
// subscription.ErrNotFound if the account has no record.
func (e *Evaluator) GetSummary(ctx context.Context, accountID string) (*Summary, error) {
	rec, err := e.subs.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	usage, err := e.usage(ctx, rec)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		AccountID:     rec.AccountID,
		PlanID:        rec.PlanID,
		Active:        rec.ActiveAt(e.now()),
		PeriodStart:   rec.PeriodStart,
		PeriodEnd:     rec.PeriodEnd,
		Quota:         rec.Quota,
		Usage:         usage,
		NetworkAccess: rec.NetworkAccess,
	}
	if plan, err := plans.Get(rec.PlanID); err == nil {
		summary.PlanName = plan.DisplayName
	}

	return summary, nil
}

// usage derives the period's listing count. A record without a period start
// is malformed; the counter fails closed to zero and logs the anomaly.
func (e *Evaluator) usage(ctx context.Context, rec *subscription.Record) (int, error) {
	var start time.Time
	if rec.PeriodStart != nil {
		start = *rec.PeriodStart
	}

	began := time.Now()
	usage, err := e.counts.CountForPeriod(ctx, rec.AccountID, start)
	if err != nil {
		return 0, fmt.Errorf("failed to derive usage: %w", err)
	}
	e.metrics.UsageQueryDuration.Observe(time.Since(began).Seconds())

	return usage, nil
}

func (e *Evaluator) decide(d *Decision) *Decision {
	outcome := "deny"
	if d.Allowed {
		outcome = "allow"
	}
	e.metrics.EntitlementDecisionsTotal.WithLabelValues(outcome, string(d.Reason)).Inc()
	return d
}
