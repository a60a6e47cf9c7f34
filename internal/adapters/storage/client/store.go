package client

import (
	"context"

	domain "activitylog/internal/domain/client"
)

// Store persists client profiles.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Client, error)
	Save(ctx context.Context, value domain.Client) error
	List(ctx context.Context, filter ListFilter) ([]domain.Client, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
	ListIDsByCoach(ctx context.Context, coachID string) ([]string, error)
}

// ListFilter carries filtering parameters for List and Count.
type ListFilter struct {
	Limit   int
	Offset  int
	CoachID string
	Program string
	Status  string
	Search  string
	Sort    string
	Dir     string
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
