package projections

import (
	"context"
	"errors"

	activityStore "activitylog/internal/adapters/storage/activity"
	clientStore "activitylog/internal/adapters/storage/client"
	domainAccount "activitylog/internal/domain/account"
	domainActivity "activitylog/internal/domain/activity"
	domainClient "activitylog/internal/domain/client"
)

// ActivityStore interface for activity queries.
type ActivityStore interface {
	GetByID(ctx context.Context, id string) (domainActivity.Activity, error)
	List(ctx context.Context, filter activityStore.ListFilter) ([]domainActivity.Activity, error)
}

// AccountStore interface for resolving owner and coach names across the auth database.
type AccountStore interface {
	ListByIDs(ctx context.Context, ids []string) ([]domainAccount.Account, error)
}

// ClientStore interface for client profile queries.
type ClientStore interface {
	GetByID(ctx context.Context, id string) (domainClient.Client, error)
	List(ctx context.Context, filter clientStore.ListFilter) ([]domainClient.Client, error)
	Count(ctx context.Context, filter clientStore.ListFilter) (int, error)
	ListIDsByCoach(ctx context.Context, coachID string) ([]string, error)
}

// ErrOwnerRequired is returned when staff query a single-client view without naming the client.
var ErrOwnerRequired = errors.New("owner_id is required")

// displayNames batch-loads accounts and maps their IDs to display names.
// IDs without an account are left out.
func displayNames(ctx context.Context, store AccountStore, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 || store == nil {
		return names, nil
	}
	accts, err := store.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, a := range accts {
		names[a.ID] = a.DisplayName()
	}
	return names, nil
}
