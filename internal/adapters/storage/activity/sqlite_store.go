package activity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"activitylog/internal/adapters/storage"
	domain "activitylog/internal/domain/activity"
	"activitylog/internal/domain/week"
)

const activityColumns = "id, owner_id, log_type, week_start, date, start_time, end_time, duration, description, notes, created_by, created_at, updated_at"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new activity store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves an activity with its comments.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Activity, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+activityColumns+" FROM activity WHERE id = ?", id)
	a, err := scanActivity(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Activity{}, fmt.Errorf("activity not found: %w", err)
	}
	if err != nil {
		return domain.Activity{}, err
	}

	comments, err := s.commentsFor(ctx, []string{id})
	if err != nil {
		return domain.Activity{}, err
	}
	a.Comments = comments[id]
	return a, nil
}

// Save persists an activity (insert or update).
// PRE: entity has been validated
// POST: Entity is persisted; owner_id, log_type and created_* are never overwritten
func (s *SQLiteStore) Save(ctx context.Context, a domain.Activity) error {
	var dur any
	if a.Duration != nil {
		dur = *a.Duration
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activity (`+activityColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   week_start=excluded.week_start, date=excluded.date,
		   start_time=excluded.start_time, end_time=excluded.end_time, duration=excluded.duration,
		   description=excluded.description, notes=excluded.notes, updated_at=excluded.updated_at`,
		a.ID, a.OwnerID, string(a.LogType),
		week.FormatDate(a.WeekStart), week.FormatDate(a.Date),
		a.StartTime, a.EndTime, dur, a.Description, a.Notes,
		a.CreatedBy, a.CreatedAt.Format(storage.TimeLayout), storage.FormatTime(a.UpdatedAt))
	return err
}

// Delete removes an activity and its comment thread.
// PRE: id is non-empty
// POST: Neither the activity nor its comments remain
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM activity_comment WHERE activity_id = ?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM activity WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("activity not found: %w", sql.ErrNoRows)
	}
	return tx.Commit()
}

// List retrieves activities matching filter, comments included.
// PRE: filter has valid parameters
// POST: Returns matching entities ordered by date ascending, then created_at
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Activity, error) {
	var b strings.Builder
	var args []any
	b.WriteString("SELECT " + activityColumns + " FROM activity WHERE 1=1")

	if len(filter.OwnerIDs) > 0 {
		b.WriteString(" AND owner_id IN (" + placeholders(len(filter.OwnerIDs)) + ")")
		for _, id := range filter.OwnerIDs {
			args = append(args, id)
		}
	}
	if filter.LogType != "" {
		b.WriteString(" AND log_type = ?")
		args = append(args, filter.LogType)
	}
	if !filter.From.IsZero() {
		b.WriteString(" AND date >= ?")
		args = append(args, week.FormatDate(filter.From))
	}
	if !filter.To.IsZero() {
		b.WriteString(" AND date <= ?")
		args = append(args, week.FormatDate(filter.To))
	}
	b.WriteString(" ORDER BY date ASC, created_at ASC")
	if filter.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	var results []domain.Activity
	for rows.Next() {
		a, err := scanActivity(rows.Scan)
		if err != nil {
			rows.Close()
			return nil, err
		}
		results = append(results, a)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(results) == 0 {
		return results, nil
	}
	ids := make([]string, len(results))
	for i, a := range results {
		ids[i] = a.ID
	}
	comments, err := s.commentsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Comments = comments[results[i].ID]
	}
	return results, nil
}

// AppendComment adds a comment to the end of an activity's thread.
// PRE: comment has been validated
// POST: comment stored with the next sequence number
func (s *SQLiteStore) AppendComment(ctx context.Context, activityID string, c domain.Comment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM activity WHERE id = ?", activityID).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("activity not found: %w", sql.ErrNoRows)
	}

	var seq int
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), 0) + 1 FROM activity_comment WHERE activity_id = ?", activityID).Scan(&seq); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO activity_comment (id, activity_id, seq, author_id, author_name, author_role, text, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, activityID, seq, c.AuthorID, c.AuthorName, c.AuthorRole, c.Text, c.Timestamp.Format(storage.TimeLayout)); err != nil {
		return err
	}
	return tx.Commit()
}

// commentsFor loads the threads of the given activities keyed by activity ID.
func (s *SQLiteStore) commentsFor(ctx context.Context, ids []string) (map[string][]domain.Comment, error) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT activity_id, id, author_id, author_name, author_role, text, created_at
		 FROM activity_comment WHERE activity_id IN (`+placeholders(len(ids))+`)
		 ORDER BY activity_id, seq`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]domain.Comment)
	for rows.Next() {
		var activityID, createdAt string
		var c domain.Comment
		if err := rows.Scan(&activityID, &c.ID, &c.AuthorID, &c.AuthorName, &c.AuthorRole, &c.Text, &createdAt); err != nil {
			return nil, err
		}
		c.Timestamp, _ = storage.ParseTime(createdAt)
		out[activityID] = append(out[activityID], c)
	}
	return out, rows.Err()
}

// scanActivity extracts an Activity from a row scanner function.
// Dates are calendar dates and come back as UTC midnight.
func scanActivity(scan func(dest ...any) error) (domain.Activity, error) {
	var a domain.Activity
	var logType, weekStart, date, createdAt string
	var dur sql.NullInt64
	var updatedAt sql.NullString
	err := scan(&a.ID, &a.OwnerID, &logType, &weekStart, &date, &a.StartTime, &a.EndTime,
		&dur, &a.Description, &a.Notes, &a.CreatedBy, &createdAt, &updatedAt)
	if err != nil {
		return domain.Activity{}, err
	}
	a.LogType = domain.LogType(logType)
	a.Date, _ = time.Parse(week.DateLayout, date)
	a.WeekStart, _ = time.Parse(week.DateLayout, weekStart)
	if dur.Valid {
		v := int(dur.Int64)
		a.Duration = &v
	}
	a.CreatedAt, _ = storage.ParseTime(createdAt)
	a.UpdatedAt = storage.ParseNullTime(updatedAt)
	return a, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
