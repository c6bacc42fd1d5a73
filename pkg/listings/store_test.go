package listings

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iiiffi-e2/bell-registry-sub002/pkg/observability"
)

func newMockCounter(t *testing.T) (*PostgresCounter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	return NewPostgresCounter(db, logger), mock
}

func TestCountForPeriod(t *testing.T) {
	counter, mock := newMockCounter(t)

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT COUNT(.+) FROM job_listings").
		WithArgs("acct-1", start, ExpiryGraceDays).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := counter.CountForPeriod(context.Background(), "acct-1", start)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountForPeriodZeroStartFailsClosed(t *testing.T) {
	counter, mock := newMockCounter(t)

	// No query runs at all for a malformed period start.
	count, err := counter.CountForPeriod(context.Background(), "acct-1", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountForPeriodQueryError(t *testing.T) {
	counter, mock := newMockCounter(t)

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT COUNT(.+) FROM job_listings").
		WillReturnError(context.DeadlineExceeded)

	_, err := counter.CountForPeriod(context.Background(), "acct-1", start)
	assert.Error(t, err)
}
