package account_test

import (
	"context"
	"database/sql"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"activitylog/internal/adapters/storage"
	store "activitylog/internal/adapters/storage/account"
	domain "activitylog/internal/domain/account"
)

func newStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.MigrateDB(db, storage.AuthSchema))
	return store.NewSQLiteStore(db)
}

var created = time.Date(2024, time.January, 10, 8, 0, 0, 0, time.UTC)

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	acct := domain.Account{ID: "a1", Email: "Coach@Example.org", Name: "Casey", PasswordHash: "hash", Role: domain.RoleCoach, CreatedAt: created}
	require.NoError(t, s.Save(ctx, acct))

	got, err := s.GetByEmail(ctx, "  coach@example.ORG ")
	require.NoError(t, err)
	require.Equal(t, "a1", got.ID)
	require.Equal(t, "coach@example.org", got.Email)
	require.Equal(t, domain.StatusActive, got.Status)
	require.True(t, got.CreatedAt.Equal(created))
	require.True(t, got.LockedUntil.IsZero())

	got.RecordFailedLogin(created)
	for i := 1; i < domain.MaxFailedLogins; i++ {
		got.RecordFailedLogin(created)
	}
	require.NoError(t, s.Save(ctx, got))

	locked, err := s.GetByID(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, domain.MaxFailedLogins, locked.FailedLogins)
	require.True(t, locked.IsLocked(created.Add(time.Minute)))
}

func TestSQLiteStore_NotFound(t *testing.T) {
	s := newStore(t)
	_, err := s.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	_, err = s.GetByEmail(context.Background(), "missing@example.org")
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSQLiteStore_ListByIDsAndRoles(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	for i, a := range []domain.Account{
		{ID: "admin", Email: "admin@example.org", Role: domain.RoleAdmin},
		{ID: "c1", Email: "c1@example.org", Role: domain.RoleClient},
		{ID: "c2", Email: "c2@example.org", Role: domain.RoleClient},
	} {
		a.CreatedAt = created.Add(time.Duration(i) * time.Hour)
		require.NoError(t, s.Save(ctx, a))
	}

	batch, err := s.ListByIDs(ctx, []string{"c2", "c1", "ghost"})
	require.NoError(t, err)
	var ids []string
	for _, a := range batch {
		ids = append(ids, a.ID)
	}
	sort.Strings(ids)
	require.Equal(t, []string{"c1", "c2"}, ids)

	empty, err := s.ListByIDs(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, empty)

	clients, err := s.List(ctx, store.ListFilter{Role: domain.RoleClient})
	require.NoError(t, err)
	require.Len(t, clients, 2)
	require.Equal(t, "c2", clients[0].ID)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestSQLiteStore_DuplicateEmailRejected(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, domain.Account{ID: "a1", Email: "dup@example.org", Role: domain.RoleClient, CreatedAt: created}))
	require.Error(t, s.Save(ctx, domain.Account{ID: "a2", Email: "DUP@example.org", Role: domain.RoleClient, CreatedAt: created}))
}
