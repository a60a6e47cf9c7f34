package web

import (
	"net/http"
	"net/url"
	"time"

	"activitylog/internal/adapters/http/middleware"
	activityStore "activitylog/internal/adapters/storage/activity"
	"activitylog/internal/application/orchestrators"
	"activitylog/internal/application/projections"
	"activitylog/internal/domain/account"
	"activitylog/internal/domain/activity"
	"activitylog/internal/domain/policy"
	"activitylog/internal/domain/week"
)

// maxListedActivities caps one GET /api/activities response.
const maxListedActivities = 1000

type activityRequest struct {
	OwnerID     string `json:"owner_id"`
	LogType     string `json:"log_type"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Duration    *int   `json:"duration"`
	Description string `json:"description"`
	Notes       string `json:"notes"`
}

// activityPatch carries only the fields the caller sent.
type activityPatch struct {
	OwnerID     *string `json:"owner_id"`
	LogType     *string `json:"log_type"`
	Date        *string `json:"date"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
	Duration    *int    `json:"duration"`
	Description *string `json:"description"`
	Notes       *string `json:"notes"`
}

func (p activityPatch) changes() (activity.Changes, error) {
	c := activity.Changes{
		OwnerID:     p.OwnerID,
		LogType:     p.LogType,
		StartTime:   p.StartTime,
		EndTime:     p.EndTime,
		Duration:    p.Duration,
		Description: p.Description,
		Notes:       p.Notes,
	}
	if p.Date != nil {
		d, err := week.ParseDateIn(*p.Date, location)
		if err != nil {
			return activity.Changes{}, err
		}
		c.Date = &d
	}
	return c, nil
}

type commentRequest struct {
	Text string `json:"text"`
}

func activityDeps() orchestrators.ActivityDeps {
	return orchestrators.ActivityDeps{
		ActivityStore: stores.ActivityStore,
		ClientStore:   stores.ClientStore,
		AuditStore:    stores.AuditStore,
		Now:           now,
	}
}

// queryDate reads an optional YYYY-MM-DD parameter.
func queryDate(q url.Values, key string) (time.Time, error) {
	s := q.Get(key)
	if s == "" {
		return time.Time{}, nil
	}
	return week.ParseDateIn(s, location)
}

// handleActivities handles GET (list) and POST (create) for /api/activities
func handleActivities(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		listActivities(w, r)
	case http.MethodPost:
		createActivity(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func listActivities(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	q := r.URL.Query()

	ownerID := q.Get("owner_id")
	if ownerID == "" {
		if actor.Role != account.RoleClient {
			handleError(w, r, projections.ErrOwnerRequired)
			return
		}
		ownerID = actor.ID
	}
	if err := policy.CanViewOwner(actor, ownerID); err != nil {
		handleError(w, r, err)
		return
	}

	filter := activityStore.ListFilter{OwnerIDs: []string{ownerID}, Limit: maxListedActivities}
	if lt := q.Get("log_type"); lt != "" {
		parsed, err := activity.ParseLogType(lt)
		if err != nil {
			handleError(w, r, err)
			return
		}
		filter.LogType = string(parsed)
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

	records, err := stores.ActivityStore.List(r.Context(), filter)
	if err != nil {
		internalError(w, r, err)
		return
	}
	at := now()
	out := make([]activityJSON, 0, len(records))
	for _, rec := range records {
		aj := toActivityJSON(rec)
		aj.Editable = policy.Authorize(actor, policy.ActionUpdate, rec, at) == nil
		out = append(out, aj)
	}
	writeJSON(w, http.StatusOK, map[string]any{"activities": out})
}

func createActivity(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	if err := strictDecode(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	date, err := week.ParseDateIn(req.Date, location)
	if err != nil {
		handleError(w, r, err)
		return
	}
	created, err := orchestrators.ExecuteCreateActivity(r.Context(), orchestrators.CreateActivityInput{
		Actor:       middleware.ActorFromContext(r.Context()),
		OwnerID:     req.OwnerID,
		LogType:     req.LogType,
		Date:        date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Duration:    req.Duration,
		Description: req.Description,
		Notes:       req.Notes,
	}, activityDeps())
	if err != nil {
		handleError(w, r, err)
		return
	}
	out := toActivityJSON(created)
	out.Editable = true
	w.Header().Set("Location", "/api/activities/"+created.ID)
	writeJSON(w, http.StatusCreated, out)
}

// handleActivity handles GET, PATCH and DELETE for /api/activities/{id}.
// PATCH is a partial update: absent fields keep their stored values.
func handleActivity(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	id := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		view, err := projections.QueryGetActivity(r.Context(), projections.GetActivityQuery{
			Actor:      actor,
			ActivityID: id,
		}, projections.GetActivityDeps{
			ActivityStore: stores.ActivityStore,
			AccountStore:  stores.AccountStore,
			Now:           now,
		})
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, activityViewJSON(view))

	case http.MethodPatch:
		var patch activityPatch
		if err := strictDecode(r, &patch); err != nil {
			handleError(w, r, err)
			return
		}
		changes, err := patch.changes()
		if err != nil {
			handleError(w, r, err)
			return
		}
		updated, err := orchestrators.ExecuteUpdateActivity(r.Context(), orchestrators.UpdateActivityInput{
			Actor:      actor,
			ActivityID: id,
			Changes:    changes,
		}, activityDeps())
		if err != nil {
			handleError(w, r, err)
			return
		}
		out := toActivityJSON(updated)
		out.Editable = true
		writeJSON(w, http.StatusOK, out)

	case http.MethodDelete:
		err := orchestrators.ExecuteDeleteActivity(r.Context(), orchestrators.DeleteActivityInput{
			Actor:      actor,
			ActivityID: id,
		}, activityDeps())
		if err != nil {
			handleError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, "GET, PATCH, DELETE")
	}
}

// handleActivityComments handles POST /api/activities/{id}/comments
func handleActivityComments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	var req commentRequest
	if err := strictDecode(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	c, err := orchestrators.ExecuteAddComment(r.Context(), orchestrators.AddCommentInput{
		Actor:      middleware.ActorFromContext(r.Context()),
		ActivityID: r.PathValue("id"),
		Text:       req.Text,
	}, orchestrators.AddCommentDeps{
		ActivityStore: stores.ActivityStore,
		AccountStore:  stores.AccountStore,
		OutboxStore:   stores.OutboxStore,
		AuditStore:    stores.AuditStore,
		Now:           now,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCommentJSON(c))
}
