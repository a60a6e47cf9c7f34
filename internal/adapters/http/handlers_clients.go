package web

import (
	"net/http"

	"activitylog/internal/adapters/http/middleware"
	"activitylog/internal/application/listutil"
	"activitylog/internal/application/orchestrators"
	"activitylog/internal/application/projections"
)

type registerClientRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Program    string `json:"program"`
	CoachID    string `json:"coach_id"`
	CaseNumber string `json:"case_number"`
	Password   string `json:"password"`
}

type clientListResponse struct {
	Clients []clientJSON      `json:"clients"`
	Page    listutil.PageInfo `json:"page"`
}

func clientDeps() orchestrators.RegisterClientDeps {
	return orchestrators.RegisterClientDeps{
		AccountStore: stores.AccountStore,
		ClientStore:  stores.ClientStore,
		AuditStore:   stores.AuditStore,
		Now:          now,
	}
}

// coachName resolves the display name of a client's coach; unknown coaches yield "".
func coachName(r *http.Request, coachID string) string {
	if coachID == "" {
		return ""
	}
	a, err := stores.AccountStore.GetByID(r.Context(), coachID)
	if err != nil {
		return ""
	}
	return a.DisplayName()
}

// handleClients handles GET (list) and POST (register) for /api/clients
func handleClients(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())

	switch r.Method {
	case http.MethodGet:
		params := listutil.ParseListParams(r.URL.Query(), projections.ClientListSortColumns, projections.ClientListFilterKeys)
		res, err := projections.QueryGetClientList(r.Context(), projections.GetClientListQuery{
			Actor:  actor,
			Params: params,
		}, projections.GetClientListDeps{
			ClientStore:  stores.ClientStore,
			AccountStore: stores.AccountStore,
		})
		if err != nil {
			handleError(w, r, err)
			return
		}
		out := clientListResponse{Clients: make([]clientJSON, 0, len(res.Clients)), Page: res.Page}
		for _, row := range res.Clients {
			out.Clients = append(out.Clients, toClientJSON(row.Client, row.CoachName))
		}
		writeJSON(w, http.StatusOK, out)

	case http.MethodPost:
		var req registerClientRequest
		if err := strictDecode(r, &req); err != nil {
			handleError(w, r, err)
			return
		}
		c, err := orchestrators.ExecuteRegisterClient(r.Context(), orchestrators.RegisterClientInput{
			Actor:      actor,
			Name:       req.Name,
			Email:      req.Email,
			Phone:      req.Phone,
			Program:    req.Program,
			CoachID:    req.CoachID,
			CaseNumber: req.CaseNumber,
			Password:   req.Password,
		}, clientDeps())
		if err != nil {
			handleError(w, r, err)
			return
		}
		w.Header().Set("Location", "/api/clients/"+c.ID)
		writeJSON(w, http.StatusCreated, toClientJSON(c, coachName(r, c.CoachID)))

	default:
		methodNotAllowed(w, "GET, POST")
	}
}

// handleClient handles GET /api/clients/{id}
func handleClient(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	c, err := stores.ClientStore.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toClientJSON(c, coachName(r, c.CoachID)))
}

// handleArchiveClient handles POST /api/clients/{id}/archive
func handleArchiveClient(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	c, err := orchestrators.ExecuteArchiveClient(r.Context(), orchestrators.ArchiveClientInput{
		Actor:    middleware.ActorFromContext(r.Context()),
		ClientID: r.PathValue("id"),
	}, clientDeps())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toClientJSON(c, coachName(r, c.CoachID)))
}
