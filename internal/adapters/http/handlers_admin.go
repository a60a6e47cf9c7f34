package web

import (
	"net/http"
	"strconv"
	"time"

	auditStore "activitylog/internal/adapters/storage/audit"
	"activitylog/internal/domain/audit"
	"activitylog/internal/domain/outbox"
)

// Admin list limits.
const (
	defaultAdminLimit = 100
	maxAdminLimit     = 1000
)

// perfWindow is how far back the performance view looks.
const perfWindow = time.Hour

type outboxEntryJSON struct {
	ID              string     `json:"id"`
	ActionType      string     `json:"action_type"`
	Status          string     `json:"status"`
	Attempts        int        `json:"attempts"`
	MaxAttempts     int        `json:"max_attempts"`
	LastAttemptedAt *time.Time `json:"last_attempted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ExternalID      string     `json:"external_id,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
}

func toOutboxEntryJSON(e outbox.Entry) outboxEntryJSON {
	out := outboxEntryJSON{
		ID:           e.ID,
		ActionType:   e.ActionType,
		Status:       e.Status,
		Attempts:     e.Attempts,
		MaxAttempts:  e.MaxAttempts,
		CreatedAt:    e.CreatedAt,
		ExternalID:   e.ExternalID,
		ErrorMessage: e.ErrorMessage,
	}
	if !e.LastAttemptedAt.IsZero() {
		t := e.LastAttemptedAt
		out.LastAttemptedAt = &t
	}
	return out
}

// adminLimit parses ?limit=, clamped to [1, maxAdminLimit].
func adminLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return defaultAdminLimit
	}
	return min(n, maxAdminLimit)
}

// handleAdminAudit handles GET /api/admin/audit
func handleAdminAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	q := r.URL.Query()
	filter := auditStore.Filter{
		Category:   audit.Category(q.Get("category")),
		Action:     audit.Action(q.Get("action")),
		ActorID:    q.Get("actor_id"),
		SubjectID:  q.Get("subject_id"),
		ResourceID: q.Get("resource_id"),
	}
	var err error
	if filter.From, err = queryDate(q, "from"); err != nil {
		handleError(w, r, err)
		return
	}
	if filter.To, err = queryDate(q, "to"); err != nil {
		handleError(w, r, err)
		return
	}
	if !filter.To.IsZero() {
		// to is an inclusive calendar day
		filter.To = filter.To.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}

	events, err := stores.AuditStore.List(r.Context(), filter, adminLimit(r))
	if err != nil {
		internalError(w, r, err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// handleAdminOutbox handles GET /api/admin/outbox?status=
func handleAdminOutbox(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	entries, err := stores.OutboxStore.List(r.Context(), r.URL.Query().Get("status"), adminLimit(r))
	if err != nil {
		internalError(w, r, err)
		return
	}
	out := make([]outboxEntryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, toOutboxEntryJSON(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

// handleAdminOutboxAction handles POST /api/admin/outbox/{id}/{retry|abandon}
func handleAdminOutboxAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	if outboxProcessor == nil {
		writeError(w, http.StatusServiceUnavailable, "outbox_disabled", "outbox processing is not configured")
		return
	}
	id := r.PathValue("id")

	switch r.PathValue("action") {
	case "retry":
		entry, err := outboxProcessor.ProcessSingle(r.Context(), id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toOutboxEntryJSON(entry))

	case "abandon":
		if err := outboxProcessor.AbandonEntry(r.Context(), id); err != nil {
			handleError(w, r, err)
			return
		}
		entry, err := stores.OutboxStore.GetByID(r.Context(), id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toOutboxEntryJSON(entry))

	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown outbox action")
	}
}

// handleAdminPerf handles GET /api/admin/perf: request and query latency over the last hour.
func handleAdminPerf(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	if perfCollector == nil {
		writeError(w, http.StatusServiceUnavailable, "perf_disabled", "performance collection is not configured")
		return
	}
	top, err := strconv.Atoi(r.URL.Query().Get("top"))
	if err != nil || top <= 0 {
		top = 10
	}
	writeJSON(w, http.StatusOK, perfCollector.Snapshot(now().Add(-perfWindow), top))
}
