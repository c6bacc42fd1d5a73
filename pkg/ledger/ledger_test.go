package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iiiffi-e2/bell-registry-sub002/pkg/plans"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func TestAppend(t *testing.T) {
	store, mock := newMockStore(t)

	entry := &Entry{
		AccountID:   "acct-1",
		SessionRef:  "cs_123",
		PlanID:      plans.PlanSpotlight,
		AmountCents: 25000,
		Currency:    "usd",
		Description: "Spotlight plan",
	}

	mock.ExpectExec("INSERT INTO billing_ledger").
		WithArgs(sqlmock.AnyArg(), "acct-1", "cs_123", plans.PlanSpotlight,
			int64(25000), "usd", "Spotlight plan", StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Append(context.Background(), entry))
	assert.NotEmpty(t, entry.EntryID, "append assigns the entry ID")
	assert.Equal(t, StatusPending, entry.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendDuplicateSession(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO billing_ledger").
		WillReturnError(&pq.Error{Code: "23505"})

	err := store.Append(context.Background(), &Entry{
		AccountID:  "acct-1",
		SessionRef: "cs_123",
		PlanID:     plans.PlanSpotlight,
	})
	assert.True(t, IsDuplicateSession(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE billing_ledger").
		WithArgs(StatusCompleted, "cs_123", StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.UpdateStatus(context.Background(), "cs_123", StatusPending, StatusCompleted))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusIllegalTransition(t *testing.T) {
	store, _ := newMockStore(t)

	// No SQL runs for a transition the lifecycle forbids.
	err := store.UpdateStatus(context.Background(), "cs_123", StatusRefunded, StatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	err = store.UpdateStatus(context.Background(), "cs_123", StatusCompleted, StatusPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateStatusLostRace(t *testing.T) {
	store, mock := newMockStore(t)

	// Another worker already moved the entry; zero rows match the guard.
	mock.ExpectExec("UPDATE billing_ledger").
		WithArgs(StatusCompleted, "cs_123", StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateStatus(context.Background(), "cs_123", StatusPending, StatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func entryRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"entry_id", "account_id", "session_ref", "plan_id", "amount_cents",
		"currency", "description", "status", "created_at", "updated_at",
	})
}

func TestGetBySession(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM billing_ledger").
		WithArgs("cs_123").
		WillReturnRows(entryRows().
			AddRow("e-1", "acct-1", "cs_123", "BUNDLE", int64(65000), "usd", "", "COMPLETED", now, now))

	entry, err := store.GetBySession(context.Background(), "cs_123")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, StatusCompleted, entry.Status)
	assert.Equal(t, int64(65000), entry.AmountCents)
}

func TestGetBySessionMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM billing_ledger").
		WithArgs("cs_missing").
		WillReturnRows(entryRows())

	entry, err := store.GetBySession(context.Background(), "cs_missing")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestListForAccount(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM billing_ledger").
		WithArgs("acct-1", 50).
		WillReturnRows(entryRows().
			AddRow("e-2", "acct-1", "cs_2", "BUNDLE", int64(65000), "usd", "", "COMPLETED", now, now).
			AddRow("e-1", "acct-1", "cs_1", "SPOTLIGHT", int64(25000), "usd", "", "REFUNDED", now.Add(-time.Hour), now))

	entries, err := store.ListForAccount(context.Background(), "acct-1", 50)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "cs_2", entries[0].SessionRef)
	assert.Equal(t, StatusRefunded, entries[1].Status)
}

func TestListStalePending(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM billing_ledger").
		WithArgs(StatusPending, float64(900), 100).
		WillReturnRows(entryRows().
			AddRow("e-1", "acct-1", "cs_1", "SPOTLIGHT", int64(25000), "usd", "", "PENDING", now.Add(-time.Hour), now))

	entries, err := store.ListStalePending(context.Background(), 15*time.Minute, 100)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, StatusPending, entries[0].Status)
}
