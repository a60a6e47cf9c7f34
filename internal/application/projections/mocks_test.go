package projections

import (
	"context"
	"database/sql"
	"slices"
	"time"

	activityStore "activitylog/internal/adapters/storage/activity"
	clientStore "activitylog/internal/adapters/storage/client"
	"activitylog/internal/domain/account"
	"activitylog/internal/domain/activity"
	"activitylog/internal/domain/client"
	"activitylog/internal/domain/policy"
	"activitylog/internal/domain/week"
)

// Wednesday; the oldest editable week starts 2023-12-31.
var fixedTime = time.Date(2024, time.January, 17, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return fixedTime }

var (
	ownerActor = policy.Actor{ID: "client-1", Role: account.RoleClient}
	otherActor = policy.Actor{ID: "client-2", Role: account.RoleClient}
	coachActor = policy.Actor{ID: "coach-1", Role: account.RoleCoach}
	adminActor = policy.Actor{ID: "admin-1", Role: account.RoleAdmin}
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func rec(id, owner string, lt activity.LogType, d time.Time, minutes int) activity.Activity {
	return activity.Activity{
		ID:        id,
		OwnerID:   owner,
		LogType:   lt,
		Date:      d,
		WeekStart: week.Start(d),
		Duration:  &minutes,
	}
}

// --- activity store ---

type mockActivityStore struct {
	records []activity.Activity
	filters []activityStore.ListFilter
	listErr error
}

// GetByID returns the stored activity.
// PRE: id is non-empty
// POST: Returns the activity or sql.ErrNoRows
func (m *mockActivityStore) GetByID(_ context.Context, id string) (activity.Activity, error) {
	for _, r := range m.records {
		if r.ID == id {
			return r, nil
		}
	}
	return activity.Activity{}, sql.ErrNoRows
}

// List applies the owner, log type and date filters in stored order.
// POST: filter is recorded for assertions
func (m *mockActivityStore) List(_ context.Context, f activityStore.ListFilter) ([]activity.Activity, error) {
	m.filters = append(m.filters, f)
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []activity.Activity
	for _, r := range m.records {
		if len(f.OwnerIDs) > 0 && !slices.Contains(f.OwnerIDs, r.OwnerID) {
			continue
		}
		if f.LogType != "" && string(r.LogType) != f.LogType {
			continue
		}
		if !f.From.IsZero() && !r.Date.IsZero() && r.Date.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && r.Date.After(f.To) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// --- account store ---

type mockAccountStore struct {
	accounts map[string]account.Account
}

func newMockAccountStore(accts ...account.Account) *mockAccountStore {
	m := &mockAccountStore{accounts: make(map[string]account.Account)}
	for _, a := range accts {
		m.accounts[a.ID] = a
	}
	return m
}

// ListByIDs returns the known accounts among ids.
func (m *mockAccountStore) ListByIDs(_ context.Context, ids []string) ([]account.Account, error) {
	var out []account.Account
	for _, id := range ids {
		if a, ok := m.accounts[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// --- client store ---

type mockClientStore struct {
	clients []client.Client
	filters []clientStore.ListFilter
}

// GetByID returns the stored client.
// POST: Returns the client or sql.ErrNoRows
func (m *mockClientStore) GetByID(_ context.Context, id string) (client.Client, error) {
	for _, c := range m.clients {
		if c.ID == id {
			return c, nil
		}
	}
	return client.Client{}, sql.ErrNoRows
}

func (m *mockClientStore) match(f clientStore.ListFilter) []client.Client {
	var out []client.Client
	for _, c := range m.clients {
		if f.CoachID != "" && c.CoachID != f.CoachID {
			continue
		}
		if f.Program != "" && c.Program != f.Program {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		out = append(out, c)
	}
	return out
}

// List returns one page of matching clients.
// POST: filter is recorded for assertions
func (m *mockClientStore) List(_ context.Context, f clientStore.ListFilter) ([]client.Client, error) {
	m.filters = append(m.filters, f)
	out := m.match(f)
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Count returns the number of matching clients.
func (m *mockClientStore) Count(_ context.Context, f clientStore.ListFilter) (int, error) {
	return len(m.match(f)), nil
}

// ListIDsByCoach returns the coach's active caseload.
func (m *mockClientStore) ListIDsByCoach(_ context.Context, coachID string) ([]string, error) {
	var ids []string
	for _, c := range m.clients {
		if c.CoachID == coachID && c.Status == client.StatusActive {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

func testAccounts() *mockAccountStore {
	return newMockAccountStore(
		account.Account{ID: "client-1", Email: "ana@example.org", Name: "Ana", Role: account.RoleClient},
		account.Account{ID: "client-2", Email: "ben@example.org", Name: "Ben", Role: account.RoleClient},
		account.Account{ID: "client-3", Email: "cy@example.org", Role: account.RoleClient},
		account.Account{ID: "coach-1", Email: "casey@example.org", Name: "Casey", Role: account.RoleCoach},
		account.Account{ID: "coach-2", Email: "dana@example.org", Name: "Dana", Role: account.RoleCoach},
	)
}

func testClients() *mockClientStore {
	return &mockClientStore{clients: []client.Client{
		{ID: "client-1", Name: "Ana", Program: client.ProgramW2, CoachID: "coach-1", Status: client.StatusActive},
		{ID: "client-2", Name: "Ben", Program: client.ProgramFSET, CoachID: "coach-2", Status: client.StatusActive},
		{ID: "client-3", Name: "Cy", Program: client.ProgramW2, CoachID: "coach-1", Status: client.StatusArchived},
	}}
}
