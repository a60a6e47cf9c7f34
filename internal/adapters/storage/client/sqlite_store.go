package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"activitylog/internal/adapters/storage"
	domain "activitylog/internal/domain/client"
)

const clientColumns = "id, name, email, phone, program, coach_id, case_number, status, created_at"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new client profile store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a client profile by account ID.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Client, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+clientColumns+" FROM client WHERE id = ?", id)
	entity, err := scanClient(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Client{}, fmt.Errorf("client not found: %w", err)
	}
	return entity, err
}

// Save persists a client profile (insert or update).
// PRE: entity has been validated and its account exists
// POST: Entity is persisted
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Client) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO client (`+clientColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name=excluded.name, email=excluded.email, phone=excluded.phone, program=excluded.program,
		   coach_id=excluded.coach_id, case_number=excluded.case_number, status=excluded.status`,
		entity.ID, entity.Name, entity.Email, entity.Phone, entity.Program,
		entity.CoachID, entity.CaseNumber, entity.Status, entity.CreatedAt.Format(storage.TimeLayout))
	return err
}

// listWhereClause builds the WHERE clause and args for List/Count queries.
func listWhereClause(filter ListFilter) (string, []any) {
	where := " WHERE 1=1"
	var args []any

	if filter.CoachID != "" {
		where += " AND coach_id = ?"
		args = append(args, filter.CoachID)
	}
	if filter.Program != "" {
		where += " AND program = ?"
		args = append(args, filter.Program)
	}
	if filter.Status != "" {
		where += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		where += " AND (name LIKE ? OR email LIKE ? OR case_number LIKE ?)"
		term := "%" + filter.Search + "%"
		args = append(args, term, term, term)
	}
	return where, args
}

// sortClause returns a safe ORDER BY clause. Only allowed columns are accepted.
func sortClause(filter ListFilter) string {
	allowed := map[string]string{
		"name": "name", "email": "email", "program": "program",
		"status": "status", "created": "created_at",
	}
	col, ok := allowed[filter.Sort]
	if !ok {
		return " ORDER BY name ASC, id ASC"
	}
	dir := "ASC"
	if filter.Dir == "desc" {
		dir = "DESC"
	}
	return " ORDER BY " + col + " " + dir + ", id ASC"
}

// Count returns the number of clients matching the filter.
// PRE: filter has valid parameters
// POST: Returns count >= 0
func (s *SQLiteStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := listWhereClause(filter)
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM client"+where, args...).Scan(&count)
	return count, err
}

// List retrieves a page of clients matching the filter.
// PRE: filter has valid parameters
// POST: Returns matching entities
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Client, error) {
	where, args := listWhereClause(filter)
	query := "SELECT " + clientColumns + " FROM client" + where + sortClause(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Client
	for rows.Next() {
		entity, err := scanClient(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// ListIDsByCoach returns the IDs of every active client assigned to coachID.
// PRE: coachID is non-empty
func (s *SQLiteStore) ListIDsByCoach(ctx context.Context, coachID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM client WHERE coach_id = ? AND status = ? ORDER BY id", coachID, domain.StatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanClient(scan func(dest ...any) error) (domain.Client, error) {
	var c domain.Client
	var createdAt string
	if err := scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Program, &c.CoachID, &c.CaseNumber, &c.Status, &createdAt); err != nil {
		return domain.Client{}, err
	}
	c.CreatedAt, _ = storage.ParseTime(createdAt)
	return c, nil
}
