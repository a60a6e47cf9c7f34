package web

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"activitylog/internal/application/orchestrators"
	"activitylog/internal/domain/activity"
	"activitylog/internal/domain/duration"
	"activitylog/internal/domain/policy"
	"activitylog/internal/domain/week"
)

func TestClassify(t *testing.T) {
	_, dateErr := week.ParseDate("2024-13-01")
	_, clockErr := duration.ParseClock("25:00")

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid date", dateErr, http.StatusBadRequest, "invalid_date"},
		{"invalid clock", fmt.Errorf("create: %w", clockErr), http.StatusBadRequest, "invalid_time"},
		{"validation", activity.ErrDurationMismatch, http.StatusBadRequest, "validation"},
		{"unauthenticated", policy.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
		{"forbidden", fmt.Errorf("%w: other client", policy.ErrForbidden), http.StatusForbidden, "forbidden"},
		{"expired", policy.ErrEditWindowExpired, http.StatusConflict, "edit_window_expired"},
		{"missing row", fmt.Errorf("get: %w", sql.ErrNoRows), http.StatusNotFound, "not_found"},
		{"missing client", orchestrators.ErrClientNotFound, http.StatusNotFound, "not_found"},
		{"archived client", orchestrators.ErrClientArchived, http.StatusConflict, "conflict"},
		{"locked", orchestrators.ErrAccountLocked, http.StatusTooManyRequests, "account_locked"},
		{"bad body", errors.Join(errInvalidBody, errors.New("EOF")), http.StatusBadRequest, "invalid_body"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := classify(tt.err)
			require.Equal(t, tt.status, status)
			require.Equal(t, tt.code, code)
		})
	}
}

func TestHandleError_HidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/activities", nil)
	handleError(rec, req, errors.New("database is locked at /var/lib/actlog/activity.db"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.False(t, strings.Contains(rec.Body.String(), "/var/lib"))
	require.JSONEq(t, `{"error":"internal","message":"internal server error"}`, rec.Body.String())
}

func TestStrictDecode_RejectsTrailingFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"text":"hi","extra":1}`))
	var body commentRequest
	require.ErrorIs(t, strictDecode(req, &body), errInvalidBody)
}
