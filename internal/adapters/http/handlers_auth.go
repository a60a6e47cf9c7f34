package web

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/csrf"

	"activitylog/internal/adapters/http/middleware"
	"activitylog/internal/application/orchestrators"
	"activitylog/internal/domain/audit"
	"activitylog/internal/domain/week"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type meResponse struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Via       string `json:"via"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// readCredentials accepts a form post or a JSON body.
func readCredentials(r *http.Request) (credentials, error) {
	var c credentials
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := strictDecode(r, &c); err != nil {
			return credentials{}, err
		}
		return c, nil
	}
	if err := r.ParseForm(); err != nil {
		return credentials{}, errInvalidBody
	}
	return credentials{Email: r.FormValue("email"), Password: r.FormValue("password")}, nil
}

func login(r *http.Request, c credentials) (orchestrators.LoginResult, error) {
	return orchestrators.ExecuteLogin(r.Context(), orchestrators.LoginInput{
		Email:     c.Email,
		Password:  c.Password,
		IPAddress: middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	}, orchestrators.LoginDeps{
		AccountStore: stores.AccountStore,
		AuditStore:   stores.AuditStore,
		Now:          now,
	})
}

// handleLogin handles GET (CSRF token) and POST (authenticate) for /login
func handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]string{"csrf_token": csrf.Token(r)})

	case http.MethodPost:
		c, err := readCredentials(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		result, err := login(r, c)
		if err != nil {
			handleError(w, r, err)
			return
		}
		token, err := sessions.Create(middleware.Session{
			AccountID: result.AccountID,
			Email:     result.Email,
			Name:      result.Name,
			Role:      result.Role,
		})
		if err != nil {
			internalError(w, r, err)
			return
		}
		middleware.SetSessionCookie(w, token, sessions.TTL())
		writeJSON(w, http.StatusOK, meResponse{
			AccountID: result.AccountID,
			Email:     result.Email,
			Name:      result.Name,
			Role:      result.Role,
			Via:       middleware.ViaCookie,
		})

	default:
		methodNotAllowed(w, "GET, POST")
	}
}

// handleLogout handles POST /logout
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		sessions.Delete(cookie.Value)
	}
	if sess, ok := middleware.GetSessionFromContext(r.Context()); ok && stores.AuditStore != nil {
		event := audit.NewEvent(sess.AccountID, sess.Role, audit.CategoryAccount, audit.ActionLogout, now()).
			WithResource(audit.ResourceAccount, sess.AccountID).
			WithRequest(middleware.ClientIP(r), r.UserAgent())
		if err := stores.AuditStore.Save(r.Context(), event); err != nil {
			slog.Error("audit_event", "event", "audit_write_failed", "action", event.Action, "error", err)
		}
	}
	middleware.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleToken handles POST /api/token: exchange credentials for a bearer token.
func handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	if tokens == nil {
		writeError(w, http.StatusNotFound, "not_found", "bearer tokens are not enabled")
		return
	}
	c, err := readCredentials(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	result, err := login(r, c)
	if err != nil {
		handleError(w, r, err)
		return
	}
	token, exp, err := tokens.Issue(middleware.Session{
		AccountID: result.AccountID,
		Email:     result.Email,
		Name:      result.Name,
		Role:      result.Role,
	})
	if err != nil {
		internalError(w, r, err)
		return
	}
	slog.Info("auth_event", "event", "token_issued", "account_id", result.AccountID, "expires_at", exp)
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, TokenType: "Bearer", ExpiresAt: exp})
}

// handleMe handles GET /api/me
func handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	sess, _ := middleware.GetSessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, meResponse{
		AccountID: sess.AccountID,
		Email:     sess.Email,
		Name:      sess.Name,
		Role:      sess.Role,
		Via:       sess.Via,
	})
}

type editWindowResponse struct {
	Today      string   `json:"today"`
	From       string   `json:"from"`
	To         string   `json:"to"`
	WeekStarts []string `json:"week_starts"`
}

// handleEditWindow handles GET /api/edit-window: the weeks currently open for edits.
func handleEditWindow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	today := now()
	from, to := week.EditableWindow(today)
	resp := editWindowResponse{
		Today: week.FormatDate(today),
		From:  week.FormatDate(from),
		To:    week.FormatDate(to),
	}
	for ws := from; !ws.After(to); ws = ws.AddDate(0, 0, 7) {
		resp.WeekStarts = append(resp.WeekStarts, week.FormatDate(ws))
	}
	writeJSON(w, http.StatusOK, resp)
}
