package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements create the tables owned by the entitlement engine.
// The job_listings table belongs to the listings service and is only read
// here, so it is deliberately absent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS subscriptions (
		account_id           TEXT PRIMARY KEY,
		plan_id              TEXT NOT NULL,
		period_start         TIMESTAMPTZ,
		period_end           TIMESTAMPTZ,
		quota                INTEGER,
		posts_used           INTEGER NOT NULL DEFAULT 0,
		network_access       BOOLEAN NOT NULL DEFAULT FALSE,
		external_customer_ref TEXT,
		last_session_ref     TEXT,
		account_created_at   TIMESTAMPTZ NOT NULL,
		created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS billing_ledger (
		entry_id     UUID PRIMARY KEY,
		account_id   TEXT NOT NULL,
		session_ref  TEXT NOT NULL,
		plan_id      TEXT NOT NULL,
		amount_cents BIGINT NOT NULL,
		currency     TEXT NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		status       TEXT NOT NULL CHECK (status IN ('PENDING', 'COMPLETED', 'FAILED', 'REFUNDED')),
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT billing_ledger_session_ref_key UNIQUE (session_ref)
	)`,
	`CREATE INDEX IF NOT EXISTS billing_ledger_account_idx
		ON billing_ledger (account_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS billing_ledger_status_idx
		ON billing_ledger (status, created_at)`,
}

// EnsureSchema creates the engine's tables if they do not exist.
// The UNIQUE constraint on session_ref is load-bearing: it is the
// enforcement mechanism for payment idempotency under concurrent delivery.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
