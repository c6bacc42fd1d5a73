package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iiiffi-e2/bell-registry-sub002/pkg/plans"
)

// ErrNotFound is returned when an account has no subscription record
var ErrNotFound = errors.New("subscription not found")

// IsNotFound checks if the error indicates a missing subscription record
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// dbtx is satisfied by both *sql.DB and *sql.Tx so store methods can run
// standalone or inside a caller-owned transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// PostgresStore implements Store backed by PostgreSQL
type PostgresStore struct {
	db dbtx
}

// NewPostgresStore creates a subscription store on the given connection
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// WithTx returns a copy of the store whose statements run inside tx
func (s *PostgresStore) WithTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{db: tx}
}

const recordColumns = `account_id, plan_id, period_start, period_end, quota, posts_used,
		network_access, COALESCE(external_customer_ref, ''), COALESCE(last_session_ref, ''),
		account_created_at, created_at, updated_at`

// Get returns the subscription record for an account
func (s *PostgresStore) Get(ctx context.Context, accountID string) (*Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM subscriptions
		WHERE account_id = $1`

	rec := &Record{}
	err := s.db.QueryRowContext(ctx, query, accountID).Scan(
		&rec.AccountID, &rec.PlanID, &rec.PeriodStart, &rec.PeriodEnd,
		&rec.Quota, &rec.PostsUsed, &rec.NetworkAccess,
		&rec.ExternalCustomerRef, &rec.LastSessionRef,
		&rec.AccountCreatedAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return rec, nil
}

// EnsureTrial creates the implicit trial record for a newly seen account.
// The trial period is anchored at account creation, not at first sight, so a
// stale account that never posted does not get a fresh window.
func (s *PostgresStore) EnsureTrial(ctx context.Context, accountID string, accountCreatedAt time.Time) error {
	trial, err := plans.Get(plans.PlanTrial)
	if err != nil {
		return err
	}

	periodEnd := accountCreatedAt.AddDate(0, 0, plans.TrialWindowDays)

	query := `INSERT INTO subscriptions (account_id, plan_id, period_start, period_end, quota,
			posts_used, network_access, account_created_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $3)
		ON CONFLICT (account_id) DO NOTHING`

	_, err = s.db.ExecContext(ctx, query,
		accountID, trial.ID, accountCreatedAt, periodEnd, trial.Quota, trial.GrantsNetworkAccess)
	if err != nil {
		return fmt.Errorf("failed to ensure trial subscription: %w", err)
	}

	return nil
}

// Activate starts a new period for the plan, replacing any current period.
// Quota and network access are frozen from the catalog in the same statement
// that writes the period bounds, and the usage counter resets to zero.
func (s *PostgresStore) Activate(ctx context.Context, accountID string, planID plans.PlanID, customerRef, sessionRef string) error {
	plan, err := plans.Get(planID)
	if err != nil {
		return err
	}

	query := `INSERT INTO subscriptions (account_id, plan_id, period_start, period_end, quota,
			posts_used, network_access, external_customer_ref, last_session_ref, account_created_at)
		VALUES ($1, $2, NOW(), NOW() + make_interval(days => $3), $4, 0, $5, $6, $7, NOW())
		ON CONFLICT (account_id) DO UPDATE SET
			plan_id = EXCLUDED.plan_id,
			period_start = EXCLUDED.period_start,
			period_end = EXCLUDED.period_end,
			quota = EXCLUDED.quota,
			posts_used = 0,
			network_access = EXCLUDED.network_access,
			external_customer_ref = EXCLUDED.external_customer_ref,
			last_session_ref = EXCLUDED.last_session_ref,
			updated_at = NOW()`

	_, err = s.db.ExecContext(ctx, query,
		accountID, plan.ID, plan.PeriodDays, plan.Quota, plan.GrantsNetworkAccess,
		nullableString(customerRef), nullableString(sessionRef))
	if err != nil {
		return fmt.Errorf("failed to activate subscription: %w", err)
	}

	return nil
}

// ReserveSlot atomically claims one posting slot. The activity check, the
// quota comparison and the counter increment all live in one UPDATE, so two
// requests racing at the quota boundary cannot both succeed.
func (s *PostgresStore) ReserveSlot(ctx context.Context, accountID string) (bool, error) {
	query := `UPDATE subscriptions
		SET posts_used = posts_used + 1, updated_at = NOW()
		WHERE account_id = $1
			AND period_end IS NOT NULL
			AND period_end > NOW()
			AND (quota IS NULL OR posts_used < quota)`

	result, err := s.db.ExecContext(ctx, query, accountID)
	if err != nil {
		return false, fmt.Errorf("failed to reserve posting slot: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read reservation result: %w", err)
	}

	return affected == 1, nil
}

// ReleaseSlot returns a previously reserved slot. The counter never goes
// below zero even if a release is delivered twice.
func (s *PostgresStore) ReleaseSlot(ctx context.Context, accountID string) error {
	query := `UPDATE subscriptions
		SET posts_used = GREATEST(posts_used - 1, 0), updated_at = NOW()
		WHERE account_id = $1`

	_, err := s.db.ExecContext(ctx, query, accountID)
	if err != nil {
		return fmt.Errorf("failed to release posting slot: %w", err)
	}

	return nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
