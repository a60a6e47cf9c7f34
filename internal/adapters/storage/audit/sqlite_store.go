package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"activitylog/internal/adapters/storage"
	domain "activitylog/internal/domain/audit"
)

const eventColumns = "id, timestamp, category, action, severity, actor_id, actor_role, resource_type, resource_id, subject_id, description, ip_address, user_agent"

// SQLiteStore implements the audit Store interface using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new audit event store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save persists an audit event.
// PRE: event is valid
// POST: Event is persisted
func (s *SQLiteStore) Save(ctx context.Context, event domain.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_event (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Timestamp.UTC().Format(storage.TimeLayout), string(event.Category), string(event.Action),
		string(event.Severity), event.ActorID, event.ActorRole, event.ResourceType, event.ResourceID,
		event.SubjectID, event.Description, event.IPAddress, event.UserAgent)
	return err
}

// List returns audit events with optional filtering.
// PRE: limit > 0
// POST: Returns events ordered by timestamp desc
func (s *SQLiteStore) List(ctx context.Context, filter Filter, limit int) ([]domain.Event, error) {
	query := "SELECT " + eventColumns + " FROM audit_event WHERE 1=1"
	var args []any

	if filter.Category != "" {
		query += " AND category = ?"
		args = append(args, string(filter.Category))
	}
	if filter.Action != "" {
		query += " AND action = ?"
		args = append(args, string(filter.Action))
	}
	if filter.ActorID != "" {
		query += " AND actor_id = ?"
		args = append(args, filter.ActorID)
	}
	if filter.SubjectID != "" {
		query += " AND subject_id = ?"
		args = append(args, filter.SubjectID)
	}
	if filter.ResourceID != "" {
		query += " AND resource_id = ?"
		args = append(args, filter.ResourceID)
	}
	if !filter.From.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, filter.From.UTC().Format(storage.TimeLayout))
	}
	if !filter.To.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, filter.To.UTC().Format(storage.TimeLayout))
	}

	query += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetByID retrieves a specific audit event.
// PRE: id is non-empty
// POST: Returns the event or error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Event, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM audit_event WHERE id = ?", id)
	e, err := scanEvent(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Event{}, fmt.Errorf("audit event not found: %w", err)
	}
	return e, err
}

func scanEvent(scan func(dest ...any) error) (domain.Event, error) {
	var e domain.Event
	var timestamp string
	err := scan(&e.ID, &timestamp, &e.Category, &e.Action, &e.Severity, &e.ActorID, &e.ActorRole,
		&e.ResourceType, &e.ResourceID, &e.SubjectID, &e.Description, &e.IPAddress, &e.UserAgent)
	if err != nil {
		return domain.Event{}, err
	}
	e.Timestamp, _ = storage.ParseTime(timestamp)
	return e, nil
}
