package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"activitylog/internal/adapters/export"
	"activitylog/internal/adapters/http/middleware"
	"activitylog/internal/application/projections"
	"activitylog/internal/domain/audit"
	"activitylog/internal/domain/week"
)

// weeklyLogsQuery reads the shared filters of the weekly log endpoints.
func weeklyLogsQuery(r *http.Request) (projections.GetWeeklyLogsQuery, error) {
	q := r.URL.Query()
	query := projections.GetWeeklyLogsQuery{
		Actor:   middleware.ActorFromContext(r.Context()),
		OwnerID: q.Get("owner_id"),
		LogType: q.Get("log_type"),
	}
	var err error
	if query.From, err = queryDate(q, "from"); err != nil {
		return query, err
	}
	if query.To, err = queryDate(q, "to"); err != nil {
		return query, err
	}
	return query, nil
}

func weeklyLogsDeps() projections.GetWeeklyLogsDeps {
	return projections.GetWeeklyLogsDeps{
		ActivityStore: stores.ActivityStore,
		AccountStore:  stores.AccountStore,
		ClientStore:   stores.ClientStore,
		Now:           now,
	}
}

// handleWeeklyLogs handles GET /api/weekly-logs
func handleWeeklyLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	query, err := weeklyLogsQuery(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	res, err := projections.QueryGetWeeklyLogs(r.Context(), query, weeklyLogsDeps())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWeeklyLogsResponse(res))
}

// handleWeeklyLogsExport handles GET /api/weekly-logs/export: the same logs as an XLSX workbook.
func handleWeeklyLogsExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	query, err := weeklyLogsQuery(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	res, err := projections.QueryGetWeeklyLogs(r.Context(), query, weeklyLogsDeps())
	if err != nil {
		handleError(w, r, err)
		return
	}

	at := now()
	filename := fmt.Sprintf("weekly-logs-%s.xlsx", week.FormatDate(at))
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := export.WriteXLSX(w, weeklyLogs(res), res.Owners); err != nil {
		// Headers are gone; all that is left is the log line.
		slog.Error("export_event", "event", "export_failed", "error", err)
		return
	}

	slog.Info("export_event", "event", "weekly_logs_exported", "actor_id", query.Actor.ID, "logs", len(res.Logs), "owner_id", query.OwnerID)
	if stores.AuditStore != nil {
		event := audit.NewEvent(query.Actor.ID, query.Actor.Role, audit.CategoryActivity, audit.ActionExport, at).
			WithSubject(query.OwnerID).
			WithDescription(fmt.Sprintf("exported %d weekly logs", len(res.Logs))).
			WithRequest(middleware.ClientIP(r), r.UserAgent())
		if err := stores.AuditStore.Save(r.Context(), event); err != nil {
			slog.Error("audit_event", "event", "audit_write_failed", "action", event.Action, "error", err)
		}
	}
}

// handleCalendar handles GET /api/calendar?owner_id=&month=YYYY-MM
func handleCalendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	q := r.URL.Query()
	today := now()
	month := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	if s := q.Get("month"); s != "" {
		var err error
		if month, err = week.ParseMonth(s, time.UTC); err != nil {
			handleError(w, r, err)
			return
		}
	}
	res, err := projections.QueryGetCalendarMonth(r.Context(), projections.GetCalendarMonthQuery{
		Actor:   middleware.ActorFromContext(r.Context()),
		OwnerID: q.Get("owner_id"),
		Month:   month,
	}, projections.GetCalendarMonthDeps{
		ActivityStore: stores.ActivityStore,
		AccountStore:  stores.AccountStore,
		Now:           now,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCalendarResponse(res))
}
