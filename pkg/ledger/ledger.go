package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/iiiffi-e2/bell-registry-sub002/pkg/plans"
)

// Status is the lifecycle state of a ledger entry
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusRefunded  Status = "REFUNDED"
)

// ErrDuplicateSession is returned when an entry for the session already exists
var ErrDuplicateSession = errors.New("ledger entry already exists for session")

// IsDuplicateSession checks if the error indicates a duplicate session reference
func IsDuplicateSession(err error) bool {
	return errors.Is(err, ErrDuplicateSession)
}

// ErrInvalidTransition is returned for a status change the lifecycle forbids
var ErrInvalidTransition = errors.New("invalid ledger status transition")

// Entry is one row of billing history
type Entry struct {
	EntryID     string       `json:"entry_id"`
	AccountID   string       `json:"account_id"`
	SessionRef  string       `json:"session_ref"`
	PlanID      plans.PlanID `json:"plan_id"`
	AmountCents int64        `json:"amount_cents"`
	Currency    string       `json:"currency"`
	Description string       `json:"description,omitempty"`
	Status      Status       `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Store is the interface for billing ledger persistence
type Store interface {
	// Append inserts a new entry. Returns ErrDuplicateSession when an entry
	// for the same session reference already exists.
	Append(ctx context.Context, entry *Entry) error

	// UpdateStatus moves an entry between lifecycle states. Legal moves are
	// PENDING->COMPLETED, PENDING->FAILED, FAILED->COMPLETED (a redelivery
	// re-driving a broken activation) and COMPLETED->REFUNDED.
	UpdateStatus(ctx context.Context, sessionRef string, from, to Status) error

	// GetBySession returns the entry for a session reference, if any
	GetBySession(ctx context.Context, sessionRef string) (*Entry, error)

	// ListForAccount returns the account's entries, newest first
	ListForAccount(ctx context.Context, accountID string, limit int) ([]*Entry, error)

	// ListStalePending returns entries stuck in PENDING for at least minAge
	ListStalePending(ctx context.Context, minAge time.Duration, limit int) ([]*Entry, error)
}

// dbtx is satisfied by *sql.DB and *sql.Tx
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// PostgresStore implements Store backed by PostgreSQL
type PostgresStore struct {
	db dbtx
}

// NewPostgresStore creates a ledger store on the given connection
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// WithTx returns a copy of the store whose statements run inside tx
func (s *PostgresStore) WithTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{db: tx}
}

// legalTransitions enumerates the entry lifecycle
var legalTransitions = map[Status]map[Status]bool{
	StatusPending:   {StatusCompleted: true, StatusFailed: true},
	StatusFailed:    {StatusCompleted: true},
	StatusCompleted: {StatusRefunded: true},
}

// Append inserts a new ledger entry, assigning its ID and defaulting the
// status to PENDING. The session_ref unique constraint turns a concurrent
// duplicate into ErrDuplicateSession rather than a second row.
func (s *PostgresStore) Append(ctx context.Context, entry *Entry) error {
	if entry.EntryID == "" {
		entry.EntryID = uuid.New().String()
	}
	if entry.Status == "" {
		entry.Status = StatusPending
	}

	query := `INSERT INTO billing_ledger (entry_id, account_id, session_ref, plan_id,
			amount_cents, currency, description, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.ExecContext(ctx, query,
		entry.EntryID, entry.AccountID, entry.SessionRef, entry.PlanID,
		entry.AmountCents, entry.Currency, entry.Description, entry.Status)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrDuplicateSession
		}
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	return nil
}

// UpdateStatus performs a guarded transition. The expected current status is
// part of the WHERE clause, so a concurrent transition loses cleanly instead
// of overwriting.
func (s *PostgresStore) UpdateStatus(ctx context.Context, sessionRef string, from, to Status) error {
	if !legalTransitions[from][to] {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	query := `UPDATE billing_ledger
		SET status = $1, updated_at = NOW()
		WHERE session_ref = $2 AND status = $3`

	result, err := s.db.ExecContext(ctx, query, to, sessionRef, from)
	if err != nil {
		return fmt.Errorf("failed to update ledger status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read status update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: entry for session %s is not %s", ErrInvalidTransition, sessionRef, from)
	}

	return nil
}

const entryColumns = `entry_id, account_id, session_ref, plan_id, amount_cents,
		currency, description, status, created_at, updated_at`

// GetBySession returns the entry for a session reference, or nil if none exists
func (s *PostgresStore) GetBySession(ctx context.Context, sessionRef string) (*Entry, error) {
	query := `SELECT ` + entryColumns + `
		FROM billing_ledger
		WHERE session_ref = $1`

	entry, err := scanEntry(s.db.QueryRowContext(ctx, query, sessionRef))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	return entry, nil
}

// ListForAccount returns the account's billing history, newest first
func (s *PostgresStore) ListForAccount(ctx context.Context, accountID string, limit int) ([]*Entry, error) {
	query := `SELECT ` + entryColumns + `
		FROM billing_ledger
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

// ListStalePending returns entries that have sat in PENDING for at least
// minAge, oldest first, for the reconciliation sweep.
func (s *PostgresStore) ListStalePending(ctx context.Context, minAge time.Duration, limit int) ([]*Entry, error) {
	query := `SELECT ` + entryColumns + `
		FROM billing_ledger
		WHERE status = $1 AND created_at < NOW() - make_interval(secs => $2)
		ORDER BY created_at ASC
		LIMIT $3`

	rows, err := s.db.QueryContext(ctx, query, StatusPending, minAge.Seconds(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale pending entries: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	entry := &Entry{}
	err := row.Scan(
		&entry.EntryID, &entry.AccountID, &entry.SessionRef, &entry.PlanID,
		&entry.AmountCents, &entry.Currency, &entry.Description, &entry.Status,
		&entry.CreatedAt, &entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func collectEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}
	return entries, nil
}
