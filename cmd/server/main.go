package main

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"activitylog/internal/adapters/email"
	web "activitylog/internal/adapters/http"
	"activitylog/internal/adapters/http/middleware"
	"activitylog/internal/adapters/http/perf"
	"activitylog/internal/adapters/observability"
	"activitylog/internal/adapters/storage"
	accountStore "activitylog/internal/adapters/storage/account"
	activityStore "activitylog/internal/adapters/storage/activity"
	auditStore "activitylog/internal/adapters/storage/audit"
	clientStore "activitylog/internal/adapters/storage/client"
	outboxStore "activitylog/internal/adapters/storage/outbox"
	"activitylog/internal/application/orchestrators"
	"activitylog/internal/config"
	"activitylog/internal/domain/outbox"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_event", "event", "load_failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg))

	if err := run(cfg); err != nil {
		slog.Error("server_event", "event", "exit", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// openDB opens and migrates one database and wraps it for query timing.
func openDB(path string, schema storage.Schema, cfg config.Config, observe storage.QueryObserver) (*storage.TimedDB, error) {
	db, err := storage.Open(path)
	if err != nil {
		return nil, err
	}
	if err := storage.MigrateDB(db, schema); err != nil {
		db.Close()
		return nil, err
	}
	return storage.NewTimedDB(db, schema.Name, cfg.SlowQuery).WithObserver(observe), nil
}

func run(cfg config.Config) error {
	collector := perf.NewCollector(perf.DefaultRingSize)
	observe := func(db, op string, d time.Duration) {
		observability.ObserveQuery(db, op, d)
		collector.RecordQuery(db, op, d)
	}

	activityDB, err := openDB(cfg.ActivityDBPath, storage.ActivitySchema, cfg, observe)
	if err != nil {
		return err
	}
	defer activityDB.Close()
	authDB, err := openDB(cfg.AuthDBPath, storage.AuthSchema, cfg, observe)
	if err != nil {
		return err
	}
	defer authDB.Close()

	stores := &web.Stores{
		AccountStore:  accountStore.NewSQLiteStore(authDB),
		ClientStore:   clientStore.NewSQLiteStore(authDB),
		ActivityStore: activityStore.NewSQLiteStore(activityDB),
		AuditStore:    auditStore.NewSQLiteStore(activityDB),
		OutboxStore:   outboxStore.NewSQLiteStore(activityDB),
	}

	ctx := context.Background()
	if cfg.AdminPassword != "" {
		seedDeps := orchestrators.CreateAccountDeps{AccountStore: stores.AccountStore}
		if err := orchestrators.ExecuteSeedAdmin(ctx, seedDeps, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return err
		}
	}

	var sender email.Sender
	if cfg.ResendKey != "" {
		sender = email.NewResendSender(cfg.ResendKey, cfg.EmailFrom, cfg.ReplyTo)
		slog.Info("email_event", "event", "sender_configured", "provider", "resend")
	} else {
		sender = email.NewNoopSender()
		if cfg.IsProduction() {
			slog.Warn("email_event", "event", "sender_disabled", "detail", "ACTLOG_RESEND_KEY is not set")
		}
	}
	processor := orchestrators.NewOutboxProcessor(stores.OutboxStore, map[string]orchestrators.ActionExecutor{
		outbox.ActionTypeCommentNotification: &orchestrators.EmailExecutor{Sender: sender, BaseURL: cfg.BaseURL},
	}, time.Now)
	stopOutbox := make(chan struct{})
	outboxDone := orchestrators.StartBackgroundWorker(processor, cfg.OutboxInterval, stopOutbox)

	secret := cfg.JWTSecret
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return err
		}
		slog.Warn("config_event", "event", "random_jwt_secret", "detail", "bearer tokens will not survive a restart")
	}

	handler := web.NewMux(stores, web.Options{
		CSRFKey:     cfg.CSRFKey,
		Secure:      cfg.IsProduction(),
		Tokens:      middleware.NewTokenIssuer(secret, cfg.JWTIssuer, cfg.TokenTTL, nil),
		SessionTTL:  cfg.SessionTTL,
		RateLimit:   cfg.RateLimit,
		SlowRequest: cfg.SlowRequest,
		Location:    cfg.Location(),
		Outbox:      processor,
		Collector:   collector,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	schemaActivity, _ := storage.SchemaVersion(activityDB.RawDB())
	schemaAuth, _ := storage.SchemaVersion(authDB.RawDB())
	slog.Info("server_event", "event", "starting", "version", version, "addr", cfg.Addr, "env", cfg.Env,
		"timezone", cfg.Timezone, "activity_schema", schemaActivity, "auth_schema", schemaAuth)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-sigCh:
		slog.Info("server_event", "event", "shutdown", "signal", sig.String())
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server_event", "event", "shutdown_failed", "error", err)
	}
	close(stopOutbox)
	<-outboxDone
	return serveErr
}
