package payments

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iiiffi-e2/bell-registry-sub002/pkg/events"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/ledger"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/observability"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/plans"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/subscription"
)

// Activated is the successful result of processing a confirmed payment
type Activated struct {
	AccountID  string       `json:"account_id"`
	PlanID     plans.PlanID `json:"plan_id"`
	SessionRef string       `json:"session_ref"`
	// Duplicate marks a redelivery that was short-circuited by the
	// idempotency guard; no state changed.
	Duplicate bool `json:"duplicate,omitempty"`
}

// Processor drives confirmed-payment events through verification, ledger
// and activation.
type Processor struct {
	db         *sql.DB
	subs       *subscription.PostgresStore
	entries    *ledger.PostgresStore
	provider   ProviderClient
	dispatcher *events.Dispatcher
	logger     *observability.Logger
	metrics    *observability.Metrics
}

// NewProcessor creates a payment event processor
func NewProcessor(
	db *sql.DB,
	subs *subscription.PostgresStore,
	entries *ledger.PostgresStore,
	provider ProviderClient,
	dispatcher *events.Dispatcher,
	logger *observability.Logger,
	metrics *observability.Metrics,
) *Processor {
	return &Processor{
		db:         db,
		subs:       subs,
		entries:    entries,
		provider:   provider,
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
	}
}

// HandleConfirmedPayment processes one confirmed-payment notification.
// Deliveries are at-least-once; a session already COMPLETED returns success
// without side effects. The provider session is the sole source of payment
// facts.
func (p *Processor) HandleConfirmedPayment(ctx context.Context, sessionRef string) (*Activated, error) {
	log := p.logger.WithRequestScope(ctx).WithField("session_ref", sessionRef)

	existing, err := p.entries.GetBySession(ctx, sessionRef)
	if err != nil {
		return nil, &PersistenceError{Operation: "idempotency check", Err: err}
	}
	if existing != nil && existing.Status != ledger.StatusPending && existing.Status != ledger.StatusFailed {
		p.metrics.DuplicateDeliveryTotal.Inc()
		log.Info("duplicate payment delivery, already completed")
		return &Activated{
			AccountID:  existing.AccountID,
			PlanID:     existing.PlanID,
			SessionRef: sessionRef,
			Duplicate:  true,
		}, nil
	}

	session, err := p.provider.GetCheckoutSession(ctx, sessionRef)
	if err != nil {
		p.metrics.PaymentEventsTotal.WithLabelValues("provider_error").Inc()
		return nil, err
	}

	if !session.Paid() {
		p.metrics.PaymentEventsTotal.WithLabelValues("invalid").Inc()
		return nil, &InvalidEventError{SessionRef: sessionRef,
			Reason: fmt.Sprintf("payment status is %q, not paid", session.PaymentStatus)}
	}
	if session.AccountID == "" || session.PlanID == "" {
		p.metrics.PaymentEventsTotal.WithLabelValues("invalid").Inc()
		return nil, &InvalidEventError{SessionRef: sessionRef,
			Reason: "session is missing account or plan identification"}
	}

	plan, err := plans.Get(session.PlanID)
	if err != nil {
		p.metrics.PaymentEventsTotal.WithLabelValues("invalid").Inc()
		return nil, &InvalidEventError{SessionRef: sessionRef,
			Reason: fmt.Sprintf("unknown plan %q", session.PlanID)}
	}

	// Claim the session by inserting the PENDING entry. The unique
	// constraint makes a concurrent duplicate lose here instead of
	// activating twice. A redelivery that finds its own earlier
	// PENDING/FAILED entry skips the insert and re-drives the activation.
	priorStatus := ledger.StatusPending
	if existing == nil {
		entry := &ledger.Entry{
			AccountID:   session.AccountID,
			SessionRef:  sessionRef,
			PlanID:      plan.ID,
			AmountCents: sessionAmount(session, plan),
			Currency:    sessionCurrency(session, plan),
			Description: plan.DisplayName,
		}
		if err := p.entries.Append(ctx, entry); err != nil {
			if ledger.IsDuplicateSession(err) {
				p.metrics.PaymentEventsTotal.WithLabelValues("conflict").Inc()
				return nil, &StateConflictError{SessionRef: sessionRef}
			}
			p.metrics.PaymentEventsTotal.WithLabelValues("failed").Inc()
			return nil, &PersistenceError{Operation: "ledger append", Err: err}
		}
	} else {
		priorStatus = existing.Status
	}

	if err := p.activate(ctx, session, plan.ID, priorStatus); err != nil {
		// Best-effort FAILED mark; if it also fails the entry stays
		// PENDING for the reconciliation sweep.
		if priorStatus == ledger.StatusPending {
			if markErr := p.entries.UpdateStatus(ctx, sessionRef, ledger.StatusPending, ledger.StatusFailed); markErr != nil {
				log.WithError(markErr).Error("failed to mark ledger entry FAILED after broken activation")
			}
		}
		p.metrics.PaymentEventsTotal.WithLabelValues("failed").Inc()
		return nil, &PersistenceError{Operation: "activation", Err: err}
	}

	p.metrics.PaymentEventsTotal.WithLabelValues("completed").Inc()
	p.metrics.ActivationsTotal.WithLabelValues(string(plan.ID)).Inc()
	log.WithField("account_id", session.AccountID).
		WithField("plan_id", string(plan.ID)).
		Info("subscription activated")

	if p.dispatcher != nil {
		p.dispatcher.DispatchAsync(ctx, &events.Event{
			Type:       events.EventSubscriptionActivated,
			AccountID:  session.AccountID,
			PlanID:     plan.ID,
			SessionRef: sessionRef,
		})
	}

	return &Activated{AccountID: session.AccountID, PlanID: plan.ID, SessionRef: sessionRef}, nil
}

// activate runs the subscription write and the COMPLETED transition in one
// transaction so a reader never sees an activated period with a non-final
// ledger entry, or the reverse.
func (p *Processor) activate(ctx context.Context, session *CheckoutSession, planID plans.PlanID, priorStatus ledger.Status) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin activation transaction: %w", err)
	}
	defer tx.Rollback()

	if err := p.subs.WithTx(tx).Activate(ctx, session.AccountID, planID, session.CustomerRef, session.SessionRef); err != nil {
		return err
	}

	if err := p.entries.WithTx(tx).UpdateStatus(ctx, session.SessionRef, priorStatus, ledger.StatusCompleted); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit activation: %w", err)
	}
	return nil
}

func sessionAmount(session *CheckoutSession, plan plans.PlanDefinition) int64 {
	if session.AmountCents > 0 {
		return session.AmountCents
	}
	return plan.PriceCents
}

func sessionCurrency(session *CheckoutSession, plan plans.PlanDefinition) string {
	if session.Currency != "" {
		return session.Currency
	}
	return plan.Currency
}
