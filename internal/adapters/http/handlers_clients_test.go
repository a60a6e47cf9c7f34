package web

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"activitylog/internal/domain/account"
	"activitylog/internal/domain/client"
)

func TestClients_List(t *testing.T) {
	env := newTestEnv(t, Options{})

	rec := env.do(http.MethodGet, "/api/clients?sort=name", "coach-1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list := decode[clientListResponse](t, rec)
	require.Len(t, list.Clients, 2)
	require.Equal(t, "Ana Lopez", list.Clients[0].Name)
	require.Equal(t, "Casey Coach", list.Clients[0].CoachName)
	require.Equal(t, 2, list.Page.Total)

	rec = env.do(http.MethodGet, "/api/clients", "coach-2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, decode[clientListResponse](t, rec).Clients)

	rec = env.do(http.MethodGet, "/api/clients?coach=all", "coach-2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[clientListResponse](t, rec).Clients, 2)

	requireError(t, env.do(http.MethodGet, "/api/clients", "client-1", nil), http.StatusForbidden, "forbidden")
	requireError(t, env.do(http.MethodGet, "/api/clients", "", nil), http.StatusUnauthorized, "unauthenticated")
}

func TestClients_RegisterAndGet(t *testing.T) {
	env := newTestEnv(t, Options{})

	rec := env.do(http.MethodPost, "/api/clients", "coach-1", registerClientRequest{
		Name:    "Cam Diaz",
		Email:   "Cam@Example.org",
		Program: "FSET",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	c := decode[clientJSON](t, rec)
	require.Equal(t, "cam@example.org", c.Email)
	require.Equal(t, client.ProgramFSET, c.Program)
	require.Equal(t, "coach-1", c.CoachID)
	require.Equal(t, "Casey Coach", c.CoachName)

	acct, err := env.stores.AccountStore.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	require.Equal(t, account.RoleClient, acct.Role)

	rec = env.do(http.MethodGet, "/api/clients/"+c.ID, "admin-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Cam Diaz", decode[clientJSON](t, rec).Name)

	requireError(t, env.do(http.MethodPost, "/api/clients", "coach-1", registerClientRequest{
		Name: "Cam Again", Email: "cam@example.org", Program: "w2",
	}), http.StatusConflict, "conflict")
	requireError(t, env.do(http.MethodPost, "/api/clients", "coach-1", registerClientRequest{
		Name: "Dee", Email: "dee@example.org", Program: "tanf",
	}), http.StatusBadRequest, "validation")
	requireError(t, env.do(http.MethodGet, "/api/clients/nobody", "coach-1", nil), http.StatusNotFound, "not_found")
}

func TestClients_Archive(t *testing.T) {
	env := newTestEnv(t, Options{})
	a := env.seedActivity("act-1", "client-1", "2024-01-16", 60)

	requireError(t, env.do(http.MethodPost, "/api/clients/client-1/archive", "coach-2", nil), http.StatusForbidden, "forbidden")

	rec := env.do(http.MethodPost, "/api/clients/client-1/archive", "coach-1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, client.StatusArchived, decode[clientJSON](t, rec).Status)

	acct, err := env.stores.AccountStore.GetByID(context.Background(), "client-1")
	require.NoError(t, err)
	require.False(t, acct.IsActive())

	requireError(t, env.do(http.MethodPost, "/api/clients/client-1/archive", "admin-1", nil), http.StatusConflict, "conflict")
	requireError(t, env.do(http.MethodPost, "/api/activities", "coach-1", activityRequest{
		OwnerID: "client-1", LogType: "Program Activity", Date: "2024-01-16", Duration: intPtr(30),
	}), http.StatusConflict, "conflict")
	requireError(t, env.do(http.MethodPatch, "/api/activities/"+a.ID, "coach-1", map[string]any{"notes": "closed"}), http.StatusConflict, "conflict")
	requireError(t, env.do(http.MethodDelete, "/api/activities/"+a.ID, "admin-1", nil), http.StatusConflict, "conflict")

	rec = env.do(http.MethodGet, "/api/clients?status=archived", "coach-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[clientListResponse](t, rec).Clients, 1)
}
