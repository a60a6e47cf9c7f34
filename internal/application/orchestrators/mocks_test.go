package orchestrators

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	outboxStore "activitylog/internal/adapters/storage/outbox"
	"activitylog/internal/domain/account"
	"activitylog/internal/domain/activity"
	"activitylog/internal/domain/audit"
	"activitylog/internal/domain/client"
	"activitylog/internal/domain/outbox"
)

// Wednesday; the oldest editable week starts 2023-12-31.
var fixedTime = time.Date(2024, time.January, 17, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return fixedTime }

func day(month time.Month, d int) time.Time {
	y := 2024
	if month == time.December {
		y = 2023
	}
	return time.Date(y, month, d, 0, 0, 0, 0, time.UTC)
}

// sequentialIDs returns a generator yielding prefix-1, prefix-2, ...
func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// --- activity store ---

type mockActivityStore struct {
	records map[string]activity.Activity
	saves   int
}

func newMockActivityStore(recs ...activity.Activity) *mockActivityStore {
	m := &mockActivityStore{records: make(map[string]activity.Activity)}
	for _, r := range recs {
		m.records[r.ID] = r
	}
	return m
}

// GetByID returns a copy of the stored activity.
// PRE: id is non-empty
// POST: Returns the activity or sql.ErrNoRows
func (m *mockActivityStore) GetByID(_ context.Context, id string) (activity.Activity, error) {
	r, ok := m.records[id]
	if !ok {
		return activity.Activity{}, sql.ErrNoRows
	}
	r.Comments = append([]activity.Comment(nil), r.Comments...)
	return r, nil
}

// Save stores the activity without touching its comments.
// PRE: a has been validated
// POST: activity stored
func (m *mockActivityStore) Save(_ context.Context, a activity.Activity) error {
	if existing, ok := m.records[a.ID]; ok {
		a.Comments = existing.Comments
	}
	m.records[a.ID] = a
	m.saves++
	return nil
}

// Delete removes the activity.
// PRE: id is non-empty
// POST: activity removed or sql.ErrNoRows
func (m *mockActivityStore) Delete(_ context.Context, id string) error {
	if _, ok := m.records[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.records, id)
	return nil
}

// AppendComment adds c to the stored thread.
// PRE: c has been validated
// POST: c is last in the thread
func (m *mockActivityStore) AppendComment(_ context.Context, activityID string, c activity.Comment) error {
	r, ok := m.records[activityID]
	if !ok {
		return sql.ErrNoRows
	}
	r.Comments = append(r.Comments, c)
	m.records[activityID] = r
	return nil
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

// GetByID implements AccountReader.
// PRE: id is non-empty
// POST: Returns account or sql.ErrNoRows
func (m *mockAccountStore) GetByID(_ context.Context, id string) (account.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return account.Account{}, sql.ErrNoRows
	}
	return a, nil
}

// GetByEmail looks an account up by normalized email.
// PRE: email is non-empty
// POST: Returns account or sql.ErrNoRows
func (m *mockAccountStore) GetByEmail(_ context.Context, email string) (account.Account, error) {
	for _, a := range m.accounts {
		if a.Email == account.NormalizeEmail(email) {
			return a, nil
		}
	}
	return account.Account{}, sql.ErrNoRows
}

// Save stores the account.
// PRE: a has an ID
// POST: account stored
func (m *mockAccountStore) Save(_ context.Context, a account.Account) error {
	m.accounts[a.ID] = a
	return nil
}

// Count returns the number of stored accounts.
func (m *mockAccountStore) Count(_ context.Context) (int, error) {
	return len(m.accounts), nil
}

// --- client store ---

type mockClientStore struct {
	clients map[string]client.Client
	saveErr error
}

func newMockClientStore(cs ...client.Client) *mockClientStore {
	m := &mockClientStore{clients: make(map[string]client.Client)}
	for _, c := range cs {
		m.clients[c.ID] = c
	}
	return m
}

// GetByID implements ClientStoreForOrchestrator.
// PRE: id is non-empty
// POST: Returns client or sql.ErrNoRows
func (m *mockClientStore) GetByID(_ context.Context, id string) (client.Client, error) {
	c, ok := m.clients[id]
	if !ok {
		return client.Client{}, sql.ErrNoRows
	}
	return c, nil
}

// Save implements ClientStoreForOrchestrator.
// PRE: c has been validated
// POST: client stored unless saveErr is set
func (m *mockClientStore) Save(_ context.Context, c client.Client) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.clients[c.ID] = c
	return nil
}

// --- audit store ---

type mockAuditStore struct {
	events []audit.Event
}

// Save records the event.
func (m *mockAuditStore) Save(_ context.Context, e audit.Event) error {
	m.events = append(m.events, e)
	return nil
}

func (m *mockAuditStore) actions() []audit.Action {
	var out []audit.Action
	for _, e := range m.events {
		out = append(out, e.Action)
	}
	return out
}

// --- outbox store ---

type mockOutboxStore struct {
	mu      sync.Mutex
	entries map[string]outbox.Entry
}

func newMockOutboxStore(es ...outbox.Entry) *mockOutboxStore {
	m := &mockOutboxStore{entries: make(map[string]outbox.Entry)}
	for _, e := range es {
		m.entries[e.ID] = e
	}
	return m
}

// GetByID implements the outbox store.
// PRE: id is non-empty
// POST: Returns entry or sql.ErrNoRows
func (m *mockOutboxStore) GetByID(_ context.Context, id string) (outbox.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return outbox.Entry{}, sql.ErrNoRows
	}
	return e, nil
}

// Save implements the outbox store.
// PRE: e has been validated
// POST: entry stored
func (m *mockOutboxStore) Save(_ context.Context, e outbox.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ID] = e
	return nil
}

// ListPending returns pending and retrying entries after the cursor in (created_at, id) order.
func (m *mockOutboxStore) ListPending(_ context.Context, after outboxStore.Cursor, limit int) ([]outbox.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []outbox.Entry
	for _, e := range m.entries {
		if e.Status != outbox.StatusPending && e.Status != outbox.StatusRetrying {
			continue
		}
		if !after.CreatedAt.IsZero() && (e.CreatedAt.Before(after.CreatedAt) || (e.CreatedAt.Equal(after.CreatedAt) && e.ID <= after.ID)) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// List returns entries with the given status, or all when status is empty.
func (m *mockOutboxStore) List(_ context.Context, status string, limit int) ([]outbox.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []outbox.Entry
	for _, e := range m.entries {
		if status == "" || e.Status == status {
			out = append(out, e)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockOutboxStore) status(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[id].Status
}
