package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"activitylog/internal/adapters/storage"
	domain "activitylog/internal/domain/outbox"
)

const entryColumns = "id, action_type, payload, status, attempts, max_attempts, last_attempted_at, created_at, external_id, error_message"

// SQLiteStore implements the outbox Store interface using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new outbox store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves an outbox entry by its ID.
// PRE: id is non-empty
// POST: Returns the entry or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Entry, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM outbox WHERE id = ?", id)
	e, err := scanEntry(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Entry{}, fmt.Errorf("outbox entry not found: %w", err)
	}
	return e, err
}

// Save persists an outbox entry to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, e domain.Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outbox (`+entryColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   status=excluded.status, attempts=excluded.attempts, max_attempts=excluded.max_attempts,
		   last_attempted_at=excluded.last_attempted_at, external_id=excluded.external_id,
		   error_message=excluded.error_message`,
		e.ID, e.ActionType, e.Payload, e.Status, e.Attempts, e.MaxAttempts,
		storage.FormatTime(e.LastAttemptedAt), e.CreatedAt.Format(storage.TimeLayout), e.ExternalID, e.ErrorMessage)
	return err
}

// ListPending returns entries that need to be processed (pending or retrying) after the cursor.
// PRE: limit > 0
// POST: Returns up to limit entries ordered by (created_at, id)
func (s *SQLiteStore) ListPending(ctx context.Context, after Cursor, limit int) ([]domain.Entry, error) {
	afterCreated := ""
	if !after.CreatedAt.IsZero() {
		afterCreated = after.CreatedAt.Format(storage.TimeLayout)
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM outbox WHERE status IN (?, ?) AND (created_at, id) > (?, ?) ORDER BY created_at ASC, id ASC LIMIT ?",
		domain.StatusPending, domain.StatusRetrying, afterCreated, after.ID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// List returns the most recent entries, optionally restricted to one status.
// PRE: limit > 0
// POST: Returns up to limit entries ordered by created_at desc
func (s *SQLiteStore) List(ctx context.Context, status string, limit int) ([]domain.Entry, error) {
	query := "SELECT " + entryColumns + " FROM outbox"
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntry(scan func(dest ...any) error) (domain.Entry, error) {
	var e domain.Entry
	var createdAt string
	var lastAttemptedAt sql.NullString
	err := scan(&e.ID, &e.ActionType, &e.Payload, &e.Status, &e.Attempts, &e.MaxAttempts,
		&lastAttemptedAt, &createdAt, &e.ExternalID, &e.ErrorMessage)
	if err != nil {
		return domain.Entry{}, err
	}
	e.CreatedAt, _ = storage.ParseTime(createdAt)
	e.LastAttemptedAt = storage.ParseNullTime(lastAttemptedAt)
	return e, nil
}

// scanEntries scans multiple rows into a slice of Entries.
func scanEntries(rows *sql.Rows) ([]domain.Entry, error) {
	var entries []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
