package activity

import (
	"context"
	"time"

	domain "activitylog/internal/domain/activity"
)

// Store persists activities and their comment threads.
type Store interface {
	// GetByID retrieves an activity with its comments in thread order.
	// PRE: id is non-empty
	// POST: Returns the activity or an error wrapping sql.ErrNoRows
	GetByID(ctx context.Context, id string) (domain.Activity, error)

	// Save inserts or updates the activity row. Comments are not touched.
	// PRE: a has been validated
	Save(ctx context.Context, a domain.Activity) error

	// Delete removes an activity and its comments.
	// PRE: id is non-empty
	Delete(ctx context.Context, id string) error

	// List returns activities matching filter ordered by date, then creation time.
	List(ctx context.Context, filter ListFilter) ([]domain.Activity, error)

	// AppendComment adds c to the end of the activity's thread.
	// PRE: c has been validated
	// POST: c is the last comment returned by GetByID
	AppendComment(ctx context.Context, activityID string, c domain.Comment) error
}

// ListFilter carries filtering parameters for List operations. Zero values do not filter.
type ListFilter struct {
	OwnerIDs []string
	LogType  string
	From     time.Time // inclusive calendar date
	To       time.Time // inclusive calendar date
	Limit    int
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
