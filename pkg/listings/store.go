package listings

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iiiffi-e2/bell-registry-sub002/pkg/observability"
)

// ExpiryGraceDays is how long an expired listing keeps counting against the
// posting quota. Without it an employer could post, let the listing lapse and
// immediately post again inside the same period.
const ExpiryGraceDays = 60

// Counter reports how many listings an account has used in a billing period
type Counter interface {
	// CountForPeriod counts the account's listings created at or after
	// periodStart that are live or expired within the grace window.
	CountForPeriod(ctx context.Context, accountID string, periodStart time.Time) (int, error)
}

// PostgresCounter implements Counter against the shared job_listings table
type PostgresCounter struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewPostgresCounter creates a listing counter on the given connection
func NewPostgresCounter(db *sql.DB, logger *observability.Logger) *PostgresCounter {
	return &PostgresCounter{db: db, logger: logger}
}

// CountForPeriod counts billable listings for the period starting at
// periodStart. A zero periodStart means the subscription row is malformed;
// the count fails closed to zero and the anomaly is logged rather than
// counting the account's entire history against the current quota.
func (c *PostgresCounter) CountForPeriod(ctx context.Context, accountID string, periodStart time.Time) (int, error) {
	if periodStart.IsZero() {
		c.logger.WithField("account_id", accountID).
			Error("usage count requested with missing period start, failing closed to zero")
		return 0, nil
	}

	query := `SELECT COUNT(*)
		FROM job_listings
		WHERE employer_account_id = $1
			AND created_at >= $2
			AND status IN ('ACTIVE', 'FILLED')
			AND (expires_at IS NULL
				OR expires_at > NOW()
				OR expires_at > NOW() - make_interval(days => $3))`

	var count int
	err := c.db.QueryRowContext(ctx, query, accountID, periodStart, ExpiryGraceDays).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count listings for period: %w", err)
	}

	return count, nil
}
