package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"activitylog/internal/adapters/storage"
	domain "activitylog/internal/domain/account"
)

const accountColumns = "id, email, name, password_hash, role, status, created_at, failed_logins, locked_until"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new AccountStore.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves an Account by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM account WHERE id = ?", id)
	entity, err := scanAccount(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, fmt.Errorf("account not found: %w", err)
	}
	return entity, err
}

// GetByEmail retrieves an Account by email, compared case-insensitively.
// PRE: email is non-empty
// POST: Returns the entity or an error if not found
func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM account WHERE email = ?", domain.NormalizeEmail(email))
	entity, err := scanAccount(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, fmt.Errorf("account not found: %w", err)
	}
	return entity, err
}

// ListByIDs batch-fetches accounts. Unknown IDs are silently absent from the result.
// PRE: none
// POST: Returns at most len(ids) accounts in no particular order
func (s *SQLiteStore) ListByIDs(ctx context.Context, ids []string) ([]domain.Account, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := "SELECT " + accountColumns + " FROM account WHERE id IN (" +
		strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ") + ")"
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAccounts(rows)
}

// Save persists an Account to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update); email stored normalized
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Account) error {
	status := entity.Status
	if status == "" {
		status = domain.StatusActive
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO account (`+accountColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   email=excluded.email, name=excluded.name, password_hash=excluded.password_hash,
		   role=excluded.role, status=excluded.status,
		   failed_logins=excluded.failed_logins, locked_until=excluded.locked_until`,
		entity.ID,
		domain.NormalizeEmail(entity.Email),
		entity.Name,
		entity.PasswordHash,
		entity.Role,
		status,
		entity.CreatedAt.Format(storage.TimeLayout),
		entity.FailedLogins,
		storage.FormatTime(entity.LockedUntil),
	)
	return err
}

// List retrieves Accounts based on the filter.
// PRE: filter has valid parameters
// POST: Returns matching entities newest first
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Account, error) {
	var queryBuilder strings.Builder
	var args []any

	queryBuilder.WriteString("SELECT " + accountColumns + " FROM account")
	if filter.Role != "" {
		queryBuilder.WriteString(" WHERE role = ?")
		args = append(args, filter.Role)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	queryBuilder.WriteString(" ORDER BY created_at DESC LIMIT ? OFFSET ?")
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAccounts(rows)
}

// Count returns the total number of accounts.
// PRE: none
// POST: Returns total account count
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM account").Scan(&count)
	return count, err
}

func scanAccounts(rows *sql.Rows) ([]domain.Account, error) {
	var results []domain.Account
	for rows.Next() {
		entity, err := scanAccount(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// scanAccount extracts an Account from a row scanner function.
func scanAccount(scan func(dest ...any) error) (domain.Account, error) {
	var entity domain.Account
	var createdAt string
	var lockedUntil sql.NullString
	err := scan(
		&entity.ID,
		&entity.Email,
		&entity.Name,
		&entity.PasswordHash,
		&entity.Role,
		&entity.Status,
		&createdAt,
		&entity.FailedLogins,
		&lockedUntil,
	)
	if err != nil {
		return domain.Account{}, err
	}
	entity.CreatedAt, _ = storage.ParseTime(createdAt)
	entity.LockedUntil = storage.ParseNullTime(lockedUntil)
	return entity, nil
}
