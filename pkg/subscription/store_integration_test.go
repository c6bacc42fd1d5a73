//go:build integration

package subscription

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/iiiffi-e2/bell-registry-sub002/pkg/plans"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/storage/postgres"
)

func setupSubscriptionTestDB(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("subscription_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	require.NoError(t, db.Ping())
	require.NoError(t, postgres.EnsureSchema(ctx, db))

	t.Cleanup(func() {
		db.Close()
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	return db
}

// TestReserveSlotConcurrent_Integration proves the conditional UPDATE makes
// admission atomic: with quota 1 and no usage, N racing reservations yield
// exactly one grant.
func TestReserveSlotConcurrent_Integration(t *testing.T) {
	db := setupSubscriptionTestDB(t)
	store := NewPostgresStore(db)
	ctx := context.Background()

	require.NoError(t, store.Activate(ctx, "acct-1", plans.PlanSpotlight, "cus_1", "cs_1"))

	type reservation struct {
		granted bool
		err     error
	}

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan reservation, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			granted, err := store.ReserveSlot(ctx, "acct-1")
			results <- reservation{granted: granted, err: err}
		}()
	}
	wg.Wait()
	close(results)

	var grants int
	for res := range results {
		require.NoError(t, res.err)
		if res.granted {
			grants++
		}
	}
	assert.Equal(t, 1, grants, "quota 1 admits exactly one of the racing reservations")

	record, err := store.Get(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, 1, record.PostsUsed)
}

// TestActivateReplacesPeriod_Integration verifies a re-activation replaces
// the window and resets usage rather than stacking onto the old period.
func TestActivateReplacesPeriod_Integration(t *testing.T) {
	db := setupSubscriptionTestDB(t)
	store := NewPostgresStore(db)
	ctx := context.Background()

	require.NoError(t, store.Activate(ctx, "acct-2", plans.PlanSpotlight, "cus_2", "cs_first"))

	granted, err := store.ReserveSlot(ctx, "acct-2")
	require.NoError(t, err)
	require.True(t, granted)

	granted, err = store.ReserveSlot(ctx, "acct-2")
	require.NoError(t, err)
	require.False(t, granted, "spotlight quota is exhausted after one posting")

	require.NoError(t, store.Activate(ctx, "acct-2", plans.PlanSpotlight, "cus_2", "cs_second"))

	record, err := store.Get(ctx, "acct-2")
	require.NoError(t, err)
	assert.Equal(t, 0, record.PostsUsed)
	assert.Equal(t, "cs_second", record.LastSessionRef)

	granted, err = store.ReserveSlot(ctx, "acct-2")
	require.NoError(t, err)
	assert.True(t, granted, "fresh period admits postings again")
}
