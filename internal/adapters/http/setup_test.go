package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"activitylog/internal/adapters/http/middleware"
	"activitylog/internal/adapters/storage"
	accountStore "activitylog/internal/adapters/storage/account"
	activityStore "activitylog/internal/adapters/storage/activity"
	auditStore "activitylog/internal/adapters/storage/audit"
	clientStore "activitylog/internal/adapters/storage/client"
	outboxStore "activitylog/internal/adapters/storage/outbox"
	"activitylog/internal/domain/account"
	"activitylog/internal/domain/activity"
	"activitylog/internal/domain/client"
	"activitylog/internal/domain/week"
)

// Wednesday; the editable window is 2023-12-31 through 2024-01-20.
var fixedNow = time.Date(2024, time.January, 17, 12, 0, 0, 0, time.UTC)

const testPassword = "correct-horse-battery"

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type testEnv struct {
	t       *testing.T
	handler http.Handler
	stores  *Stores
	cookies map[string]string // account ID to session token
}

// newTestEnv wires a mux over fresh in-memory databases seeded with an admin, a coach
// and two clients of that coach.
func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()

	activityDB, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { activityDB.Close() })
	require.NoError(t, storage.MigrateDB(activityDB, storage.ActivitySchema))

	authDB, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { authDB.Close() })
	require.NoError(t, storage.MigrateDB(authDB, storage.AuthSchema))

	s := &Stores{
		AccountStore:  accountStore.NewSQLiteStore(authDB),
		ClientStore:   clientStore.NewSQLiteStore(authDB),
		ActivityStore: activityStore.NewSQLiteStore(activityDB),
		AuditStore:    auditStore.NewSQLiteStore(activityDB),
		OutboxStore:   outboxStore.NewSQLiteStore(activityDB),
	}

	prevNow := timeNow
	timeNow = func() time.Time { return fixedNow }
	t.Cleanup(func() { timeNow = prevNow })

	if opts.RateLimit == 0 {
		opts.RateLimit = 10000
	}
	opts.CSRFKey = testSecret
	env := &testEnv{t: t, handler: NewMux(s, opts), stores: s, cookies: map[string]string{}}

	env.seedAccount("admin-1", "dana@example.org", "Dana Admin", account.RoleAdmin)
	env.seedAccount("coach-1", "casey@example.org", "Casey Coach", account.RoleCoach)
	env.seedAccount("coach-2", "cy@example.org", "Cy Coach", account.RoleCoach)
	env.seedClient("client-1", "ana@example.org", "Ana Lopez", "coach-1")
	env.seedClient("client-2", "ben@example.org", "Ben Ng", "coach-1")
	return env
}

func (e *testEnv) seedAccount(id, email, name, role string) account.Account {
	e.t.Helper()
	a := account.Account{
		ID:        id,
		Email:     email,
		Name:      name,
		Role:      role,
		Status:    account.StatusActive,
		CreatedAt: fixedNow.AddDate(0, -1, 0),
	}
	require.NoError(e.t, e.stores.AccountStore.Save(context.Background(), a))

	token, err := sessions.Create(middleware.Session{AccountID: id, Email: email, Name: name, Role: role})
	require.NoError(e.t, err)
	e.cookies[id] = token
	return a
}

func (e *testEnv) seedClient(id, email, name, coachID string) {
	e.t.Helper()
	e.seedAccount(id, email, name, account.RoleClient)
	require.NoError(e.t, e.stores.ClientStore.Save(context.Background(), client.Client{
		ID:        id,
		Name:      name,
		Email:     email,
		Program:   client.ProgramW2,
		CoachID:   coachID,
		Status:    client.StatusActive,
		CreatedAt: fixedNow.AddDate(0, -1, 0),
	}))
}

// seedActivity stores a record directly, bypassing the edit window.
func (e *testEnv) seedActivity(id, ownerID, date string, minutes int) activity.Activity {
	e.t.Helper()
	d, err := week.ParseDate(date)
	require.NoError(e.t, err)
	a, err := activity.New(activity.NewInput{
		ID:          id,
		OwnerID:     ownerID,
		LogType:     string(activity.LogTypeProgram),
		Date:        d,
		Duration:    &minutes,
		Description: "seeded " + id,
		CreatedBy:   ownerID,
		CreatedAt:   fixedNow.AddDate(0, 0, -30),
	})
	require.NoError(e.t, err)
	require.NoError(e.t, e.stores.ActivityStore.Save(context.Background(), a))
	return a
}

// do sends a JSON request as accountID; an empty accountID is anonymous.
func (e *testEnv) do(method, path, accountID string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if accountID != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: e.cookies[accountID]})
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	body := decode[middleware.ErrorBody](t, rec)
	require.Equal(t, code, body.Error)
}

func newBearerRequest(t *testing.T, method, path, token string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func serve(e *testEnv, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}
