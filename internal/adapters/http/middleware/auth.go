package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	domainAccount "activitylog/internal/domain/account"
	"activitylog/internal/domain/policy"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const sessionContextKey contextKey = "session"

// Session sources.
const (
	ViaCookie = "cookie"
	ViaBearer = "bearer"
)

// DefaultSessionTTL is used when NewSessionStore is given a non-positive TTL.
const DefaultSessionTTL = 24 * time.Hour

// SessionCookieName names the cookie carrying the session token.
const SessionCookieName = "actlog_session"

// SecureCookies marks session cookies Secure. Set once at startup in production.
var SecureCookies = false

// Session represents an authenticated caller, from a cookie session or a bearer token.
type Session struct {
	AccountID string
	Email     string
	Name      string
	Role      string
	CreatedAt time.Time
	Via       string
}

// Actor returns the policy identity of the session.
// INVARIANT: Session fields are not mutated
func (s Session) Actor() policy.Actor {
	return policy.Actor{ID: s.AccountID, Role: s.Role}
}

// SessionStore is an in-memory session store.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates a session store whose sessions expire after ttl.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		sessions: make(map[string]Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// TTL returns the session lifetime.
func (ss *SessionStore) TTL() time.Duration {
	return ss.ttl
}

// Create stores a new session and returns its token.
// PRE: sess.AccountID and sess.Role are non-empty
// POST: Session is stored under a fresh random token
func (ss *SessionStore) Create(sess Session) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	sess.CreatedAt = ss.now()
	sess.Via = ViaCookie
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.sessions[token] = sess
	return token, nil
}

// Get retrieves a session by token.
// PRE: token is non-empty
// POST: expired sessions are removed and reported as missing
func (ss *SessionStore) Get(token string) (Session, bool) {
	ss.mu.RLock()
	sess, ok := ss.sessions[token]
	ss.mu.RUnlock()
	if !ok {
		return Session{}, false
	}
	if ss.now().Sub(sess.CreatedAt) > ss.ttl {
		ss.Delete(token)
		return Session{}, false
	}
	return sess, true
}

// Delete removes a session by token.
// POST: Session with given token is removed
func (ss *SessionStore) Delete(token string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.sessions, token)
}

// Auth returns middleware that resolves the caller from the session cookie or, failing
// that, an Authorization bearer token. It does NOT block anonymous requests; use
// RequireAuth or RequireRole for that. tokens may be nil to disable bearer auth.
func Auth(sessions *SessionStore, tokens *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sess, ok := fromCookie(r, sessions); ok {
				r = r.WithContext(ContextWithSession(r.Context(), sess))
			} else if raw, ok := BearerToken(r); ok && tokens != nil {
				sess, err := tokens.Parse(raw)
				if err != nil {
					slog.Info("auth_event", "event", "bearer_rejected", "path", r.URL.Path, "reason", err.Error())
					WriteError(w, http.StatusUnauthorized, "unauthenticated", "invalid bearer token")
					return
				}
				r = r.WithContext(ContextWithSession(r.Context(), sess))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func fromCookie(r *http.Request, sessions *SessionStore) (Session, bool) {
	if sessions == nil {
		return Session{}, false
	}
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return Session{}, false
	}
	return sessions.Get(cookie.Value)
}

// BearerToken extracts the token from an "Authorization: Bearer ..." header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// RequireAuth returns middleware that blocks anonymous requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetSessionFromContext(r.Context()); !ok {
			WriteError(w, http.StatusUnauthorized, "unauthenticated", "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole returns middleware that blocks requests from callers without one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	roleSet := make(map[string]bool, len(roles))
	for _, r := range roles {
		roleSet[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := GetSessionFromContext(r.Context())
			if !ok {
				WriteError(w, http.StatusUnauthorized, "unauthenticated", "authentication required")
				return
			}
			if !roleSet[sess.Role] {
				slog.Warn("auth_denied", "path", r.URL.Path, "account_id", sess.AccountID, "role", sess.Role)
				WriteError(w, http.StatusForbidden, "forbidden", "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireStaff is RequireRole for coaches and admins.
func RequireStaff(next http.Handler) http.Handler {
	return RequireRole(domainAccount.RoleCoach, domainAccount.RoleAdmin)(next)
}

// RequireAdmin is RequireRole for admins.
func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole(domainAccount.RoleAdmin)(next)
}

// GetSessionFromContext extracts the session from the request context.
func GetSessionFromContext(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(sessionContextKey).(Session)
	return sess, ok
}

// ActorFromContext returns the caller's policy identity; anonymous callers yield the zero Actor.
func ActorFromContext(ctx context.Context) policy.Actor {
	sess, _ := GetSessionFromContext(ctx)
	return sess.Actor()
}

// ContextWithSession returns a context carrying sess.
func ContextWithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// SetSessionCookie sets the session cookie on the response.
func SetSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   SecureCookies,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
	})
}

// ClearSessionCookie removes the session cookie.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   SecureCookies,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   -1,
	})
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
