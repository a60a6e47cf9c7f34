package web

import (
	"crypto/rand"
	"log/slog"
	"net/http"
	"time"

	"activitylog/internal/adapters/http/middleware"
	"activitylog/internal/adapters/http/perf"
	"activitylog/internal/adapters/observability"
	accountStore "activitylog/internal/adapters/storage/account"
	activityStore "activitylog/internal/adapters/storage/activity"
	auditStore "activitylog/internal/adapters/storage/audit"
	clientStore "activitylog/internal/adapters/storage/client"
	outboxStore "activitylog/internal/adapters/storage/outbox"
	"activitylog/internal/application/orchestrators"
)

// Stores holds all storage dependencies. Accounts and clients live in the auth database;
// activities, audit events and the outbox in the activity database.
type Stores struct {
	AccountStore  accountStore.Store
	ClientStore   clientStore.Store
	ActivityStore activityStore.Store
	AuditStore    auditStore.Store
	OutboxStore   outboxStore.Store
}

// Options configures NewMux.
type Options struct {
	CSRFKey        []byte // 32 bytes; random per process when empty
	Secure         bool   // production: Secure cookies and TLS-only CSRF checks
	TrustedOrigins []string
	Tokens         *middleware.TokenIssuer // nil disables bearer auth and /api/token
	SessionTTL     time.Duration
	RateLimit      int // requests per second per client IP
	SlowRequest    time.Duration
	Location       *time.Location // zone deciding "today" for edit windows
	Outbox         *orchestrators.OutboxProcessor
	Collector      *perf.Collector
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global session store and token issuer
var (
	sessions *middleware.SessionStore
	tokens   *middleware.TokenIssuer
)

// Global outbox processor for admin retry/abandon (set by NewMux)
var outboxProcessor *orchestrators.OutboxProcessor

// Global perf collector (set by NewMux)
var perfCollector *perf.Collector

// location decides the current calendar day.
var location = time.UTC

// timeNow is a variable for testability.
var timeNow = time.Now

// now returns the current time in the configured zone.
func now() time.Time {
	return timeNow().In(location)
}

// NewMux wires HTTP handlers for the app.
func NewMux(s *Stores, opts Options) http.Handler {
	stores = s
	tokens = opts.Tokens
	outboxProcessor = opts.Outbox
	perfCollector = opts.Collector
	sessions = middleware.NewSessionStore(opts.SessionTTL)
	middleware.SecureCookies = opts.Secure
	location = time.UTC
	if opts.Location != nil {
		location = opts.Location
	}

	mux := http.NewServeMux()
	registerRoutes(mux)

	csrfKey := opts.CSRFKey
	if len(csrfKey) == 0 {
		csrfKey = make([]byte, 32)
		if _, err := rand.Read(csrfKey); err != nil {
			panic("generate CSRF key: " + err.Error())
		}
		slog.Warn("config_event", "event", "random_csrf_key", "detail", "sessions will not survive a restart")
	}

	rate := opts.RateLimit
	if rate <= 0 {
		rate = 10
	}
	limiter := middleware.NewRateLimiter(rate, time.Second)

	// Apply middleware: Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(csrfKey, opts.Secure, opts.TrustedOrigins),
		middleware.Auth(sessions, tokens),
		middleware.RateLimit(limiter),
		middleware.Timing(opts.Collector, opts.SlowRequest),
	)
}

// registerRoutes maps every endpoint. Handlers check the method themselves.
func registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", handleHealthz)
	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("/login", handleLogin)
	mux.HandleFunc("/logout", handleLogout)
	mux.HandleFunc("/api/token", handleToken)
	mux.Handle("/api/me", middleware.RequireAuth(http.HandlerFunc(handleMe)))

	mux.Handle("/api/activities", middleware.RequireAuth(http.HandlerFunc(handleActivities)))
	mux.Handle("/api/activities/{id}", middleware.RequireAuth(http.HandlerFunc(handleActivity)))
	mux.Handle("/api/activities/{id}/comments", middleware.RequireAuth(http.HandlerFunc(handleActivityComments)))

	mux.Handle("/api/weekly-logs", middleware.RequireAuth(http.HandlerFunc(handleWeeklyLogs)))
	mux.Handle("/api/weekly-logs/export", middleware.RequireAuth(http.HandlerFunc(handleWeeklyLogsExport)))
	mux.Handle("/api/calendar", middleware.RequireAuth(http.HandlerFunc(handleCalendar)))
	mux.Handle("/api/edit-window", middleware.RequireAuth(http.HandlerFunc(handleEditWindow)))

	mux.Handle("/api/clients", middleware.RequireStaff(http.HandlerFunc(handleClients)))
	mux.Handle("/api/clients/{id}", middleware.RequireStaff(http.HandlerFunc(handleClient)))
	mux.Handle("/api/clients/{id}/archive", middleware.RequireStaff(http.HandlerFunc(handleArchiveClient)))

	mux.Handle("/api/admin/audit", middleware.RequireAdmin(http.HandlerFunc(handleAdminAudit)))
	mux.Handle("/api/admin/outbox", middleware.RequireAdmin(http.HandlerFunc(handleAdminOutbox)))
	mux.Handle("/api/admin/outbox/{id}/{action}", middleware.RequireAdmin(http.HandlerFunc(handleAdminOutboxAction)))
	mux.Handle("/api/admin/perf", middleware.RequireAdmin(http.HandlerFunc(handleAdminPerf)))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no such endpoint")
	})
}

// handleHealthz handles GET /healthz
func handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
