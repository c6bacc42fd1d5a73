package reconcile

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/iiiffi-e2/bell-registry-sub002/pkg/ledger"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/observability"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/payments"
)

// PaymentReplayer re-drives one session through payment processing
type PaymentReplayer interface {
	HandleConfirmedPayment(ctx context.Context, sessionRef string) (*payments.Activated, error)
}

// StalePendingLister lists ledger entries stuck in PENDING and can mark the
// terminally invalid ones FAILED so they leave the sweep.
type StalePendingLister interface {
	ListStalePending(ctx context.Context, minAge time.Duration, limit int) ([]*ledger.Entry, error)
	UpdateStatus(ctx context.Context, sessionRef string, from, to ledger.Status) error
}

// Config bounds one sweep
type Config struct {
	// Schedule is a cron expression for sweep timing
	Schedule string
	// MinAge is how long an entry must sit in PENDING before it is swept.
	// Must comfortably exceed the provider call timeout so an in-flight
	// delivery is never replayed.
	MinAge time.Duration
	// Limit caps entries per sweep
	Limit int
	// SweepTimeout bounds one whole sweep run
	SweepTimeout time.Duration
}

// Sweeper periodically replays stale PENDING ledger entries
type Sweeper struct {
	entries  StalePendingLister
	replayer PaymentReplayer
	config   Config
	logger   *observability.Logger
	metrics  *observability.Metrics
	cron     *cron.Cron
}

// NewSweeper creates a reconciliation sweeper
func NewSweeper(entries StalePendingLister, replayer PaymentReplayer, config Config, logger *observability.Logger, metrics *observability.Metrics) *Sweeper {
	if config.SweepTimeout <= 0 {
		config.SweepTimeout = 2 * time.Minute
	}
	return &Sweeper{
		entries:  entries,
		replayer: replayer,
		config:   config,
		logger:   logger,
		metrics:  metrics,
	}
}

// Start schedules the sweep and begins running it
func (s *Sweeper) Start() error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.config.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.SweepTimeout)
		defer cancel()
		s.Sweep(ctx)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.WithField("schedule", s.config.Schedule).Info("reconciliation sweeper started")
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish
func (s *Sweeper) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// Sweep runs one reconciliation pass. Replay errors are logged and counted,
// never fatal; a terminally invalid session is resolved by the processor
// marking it, and a retryable one is picked up again next sweep.
func (s *Sweeper) Sweep(ctx context.Context) {
	stale, err := s.entries.ListStalePending(ctx, s.config.MinAge, s.config.Limit)
	if err != nil {
		s.logger.WithError(err).Error("failed to list stale pending ledger entries")
		return
	}

	s.metrics.StalePendingLedgerCount.Set(float64(len(stale)))
	if len(stale) == 0 {
		return
	}

	s.logger.WithField("count", len(stale)).Info("reconciling stale pending payments")

	var recovered int
	for _, entry := range stale {
		if ctx.Err() != nil {
			return
		}

		log := s.logger.WithField("session_ref", entry.SessionRef)
		result, err := s.replayer.HandleConfirmedPayment(ctx, entry.SessionRef)
		if err != nil {
			if payments.IsInvalidEvent(err) {
				// Terminal; park it in FAILED so it stops being swept.
				log.WithError(err).Warn("stale payment is terminally invalid")
				if markErr := s.entries.UpdateStatus(ctx, entry.SessionRef, ledger.StatusPending, ledger.StatusFailed); markErr != nil {
					log.WithError(markErr).Error("failed to park invalid payment entry")
				}
			} else {
				log.WithError(err).Warn("stale payment replay failed, will retry next sweep")
			}
			continue
		}

		recovered++
		log.WithField("account_id", result.AccountID).Info("stale payment reconciled")
	}

	if recovered > 0 {
		s.logger.WithField("recovered", recovered).Info("reconciliation sweep completed")
	}
}
