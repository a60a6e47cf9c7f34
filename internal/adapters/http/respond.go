package web

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"activitylog/internal/adapters/http/middleware"
	"activitylog/internal/application/orchestrators"
	"activitylog/internal/application/projections"
	"activitylog/internal/domain/account"
	"activitylog/internal/domain/activity"
	"activitylog/internal/domain/client"
	"activitylog/internal/domain/duration"
	"activitylog/internal/domain/outbox"
	"activitylog/internal/domain/policy"
	"activitylog/internal/domain/week"
)

// validationErrors are domain sentinels reported as 400 validation.
var validationErrors = []error{
	activity.ErrEmptyOwnerID, activity.ErrInvalidLogType, activity.ErrEmptyDate,
	activity.ErrWeekStartMismatch, activity.ErrNegativeDuration, activity.ErrDurationTooLong,
	activity.ErrDurationMismatch, activity.ErrDescriptionTooLong, activity.ErrNotesTooLong,
	activity.ErrImmutableField, activity.ErrEmptyComment, activity.ErrCommentTooLong,
	client.ErrEmptyName, client.ErrNameTooLong, client.ErrInvalidEmail, client.ErrPhoneTooLong,
	client.ErrCaseTooLong, client.ErrInvalidProgram, client.ErrInvalidStatus,
	account.ErrEmptyEmail, account.ErrInvalidEmail, account.ErrEmailTooLong, account.ErrNameTooLong,
	account.ErrInvalidRole, account.ErrEmptyPassword, account.ErrPasswordTooShort,
	projections.ErrOwnerRequired, policy.ErrUnknownAction,
}

// conflictErrors are state conflicts reported as 409 conflict.
var conflictErrors = []error{
	orchestrators.ErrEmailAlreadyExists, orchestrators.ErrClientArchived,
	orchestrators.ErrEntryTerminal, client.ErrAlreadyArchived, outbox.ErrNotAbandonable,
}

// errInvalidBody is reported when a request body cannot be decoded.
var errInvalidBody = errors.New("request body is not valid JSON for this endpoint")

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode_error", "error", err)
	}
}

// writeError writes the standard error envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	middleware.WriteError(w, status, code, message)
}

// methodNotAllowed writes 405 with the allowed methods.
func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
}

// handleError translates err into a status and error code. Unknown errors are logged and
// reported as a generic 500 so internal details never reach the client.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		internalError(w, r, err)
		return
	}
	writeError(w, status, code, err.Error())
}

// classify maps err to its HTTP status and error code.
func classify(err error) (int, string) {
	var dateErr *week.InvalidDateError
	var timeErr *duration.InvalidTimeFormatError
	switch {
	case errors.As(err, &dateErr):
		return http.StatusBadRequest, "invalid_date"
	case errors.As(err, &timeErr):
		return http.StatusBadRequest, "invalid_time"
	case errors.Is(err, errInvalidBody):
		return http.StatusBadRequest, "invalid_body"
	case errors.Is(err, policy.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, orchestrators.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, orchestrators.ErrAccountLocked):
		return http.StatusTooManyRequests, "account_locked"
	case errors.Is(err, orchestrators.ErrAccountDisabled):
		return http.StatusForbidden, "account_disabled"
	case errors.Is(err, policy.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, policy.ErrEditWindowExpired):
		return http.StatusConflict, "edit_window_expired"
	case errors.Is(err, sql.ErrNoRows), errors.Is(err, orchestrators.ErrClientNotFound):
		return http.StatusNotFound, "not_found"
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest, "validation"
		}
	}
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return http.StatusConflict, "conflict"
		}
	}
	return http.StatusInternalServerError, "internal"
}

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("internal_error", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	writeError(w, http.StatusInternalServerError, "internal", "internal server error")
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(errInvalidBody, err)
	}
	return nil
}
