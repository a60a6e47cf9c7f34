package account

import (
	"context"

	domain "activitylog/internal/domain/account"
)

// Store persists Account state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.Account, error)
	Save(ctx context.Context, value domain.Account) error
	List(ctx context.Context, filter ListFilter) ([]domain.Account, error)
	Count(ctx context.Context) (int, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Limit  int
	Offset int
	Role   string
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
