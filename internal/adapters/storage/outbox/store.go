package outbox

import (
	"context"
	"time"

	domain "activitylog/internal/domain/outbox"
)

// Store defines the interface for outbox entry persistence.
type Store interface {
	// GetByID retrieves an outbox entry by its ID.
	// PRE: id is non-empty
	// POST: Returns the entry or an error if not found
	GetByID(ctx context.Context, id string) (domain.Entry, error)

	// Save persists an outbox entry to the database.
	// PRE: entity has been validated
	// POST: Entity is persisted (insert or update)
	Save(ctx context.Context, e domain.Entry) error

	// ListPending returns entries that need to be processed (pending or retrying),
	// starting after the cursor. The zero Cursor starts at the oldest entry.
	// PRE: limit > 0
	// POST: Returns up to limit entries ordered by (created_at, id)
	ListPending(ctx context.Context, after Cursor, limit int) ([]domain.Entry, error)

	// List returns the most recent entries, optionally restricted to one status.
	// PRE: limit > 0
	// POST: Returns up to limit entries ordered by created_at desc
	List(ctx context.Context, status string, limit int) ([]domain.Entry, error)
}

// Cursor is a position in the pending queue: the last entry a caller has seen.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// CursorAt returns the cursor positioned on e.
func CursorAt(e domain.Entry) Cursor {
	return Cursor{CreatedAt: e.CreatedAt, ID: e.ID}
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
