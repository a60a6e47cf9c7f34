// Package config loads runtime settings from the environment.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment names.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds every ACTLOG_* setting after defaults are applied.
type Config struct {
	Env            string
	Addr           string
	BaseURL        string // public URL used in email links
	ActivityDBPath string
	AuthDBPath     string
	Timezone       string
	LogLevel       string
	CSRFKey        []byte
	JWTSecret      []byte
	JWTIssuer      string
	TokenTTL       time.Duration
	SessionTTL     time.Duration
	ResendKey      string
	EmailFrom      string
	ReplyTo        string
	AdminEmail     string
	AdminPassword  string
	OutboxInterval time.Duration
	SlowQuery      time.Duration
	SlowRequest    time.Duration
	RateLimit      int // requests per second per client IP

	location *time.Location
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
// POST: every invalid value is reported in one joined error
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary key lookup.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	r := reader{lookup: lookup}
	c := Config{
		Env:            r.str("ACTLOG_ENV", EnvDevelopment),
		Addr:           r.str("ACTLOG_ADDR", ":8080"),
		BaseURL:        strings.TrimRight(r.str("ACTLOG_BASE_URL", ""), "/"),
		ActivityDBPath: r.str("ACTLOG_ACTIVITY_DB", "activity.db"),
		AuthDBPath:     r.str("ACTLOG_AUTH_DB", "auth.db"),
		Timezone:       r.str("ACTLOG_TIMEZONE", "UTC"),
		LogLevel:       strings.ToLower(r.str("ACTLOG_LOG_LEVEL", "info")),
		JWTIssuer:      r.str("ACTLOG_JWT_ISSUER", "activitylog"),
		TokenTTL:       r.duration("ACTLOG_TOKEN_TTL", 12*time.Hour),
		SessionTTL:     r.duration("ACTLOG_SESSION_TTL", 24*time.Hour),
		ResendKey:      r.str("ACTLOG_RESEND_KEY", ""),
		EmailFrom:      r.str("ACTLOG_EMAIL_FROM", "Activity Log <noreply@localhost>"),
		ReplyTo:        r.str("ACTLOG_REPLY_TO", ""),
		AdminEmail:     r.str("ACTLOG_ADMIN_EMAIL", "admin@localhost"),
		AdminPassword:  r.str("ACTLOG_ADMIN_PASSWORD", ""),
		OutboxInterval: r.duration("ACTLOG_OUTBOX_INTERVAL", time.Minute),
		SlowQuery:      time.Duration(r.integer("ACTLOG_SLOW_QUERY_MS", 50)) * time.Millisecond,
		SlowRequest:    time.Duration(r.integer("ACTLOG_SLOW_REQUEST_MS", 200)) * time.Millisecond,
		RateLimit:      r.integer("ACTLOG_RATE_LIMIT", 10),
	}

	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		r.fail("ACTLOG_ENV", c.Env, "must be development or production")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		r.fail("ACTLOG_LOG_LEVEL", c.LogLevel, "must be debug, info, warn or error")
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		r.fail("ACTLOG_TIMEZONE", c.Timezone, err.Error())
		loc = time.UTC
	}
	c.location = loc

	if key := r.str("ACTLOG_CSRF_KEY", ""); key != "" {
		b, err := hex.DecodeString(key)
		if err != nil || len(b) != 32 {
			r.fail("ACTLOG_CSRF_KEY", "<redacted>", "must be 64 hex characters")
		} else {
			c.CSRFKey = b
		}
	}
	if secret := r.str("ACTLOG_JWT_SECRET", ""); secret != "" {
		c.JWTSecret = []byte(secret)
	}

	if c.IsProduction() {
		if c.CSRFKey == nil {
			r.fail("ACTLOG_CSRF_KEY", "", "required in production")
		}
		if len(c.JWTSecret) < 32 {
			r.fail("ACTLOG_JWT_SECRET", "<redacted>", "at least 32 bytes required in production")
		}
	}
	if c.RateLimit <= 0 {
		r.fail("ACTLOG_RATE_LIMIT", strconv.Itoa(c.RateLimit), "must be positive")
	}

	if len(r.errs) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %w", errors.Join(r.errs...))
	}
	return c, nil
}

// IsProduction reports whether the production environment is selected.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Location is the zone used to decide the current date for edit windows.
func (c Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// Now returns the current time in Location.
func (c Config) Now() time.Time {
	return time.Now().In(c.Location())
}

type reader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *reader) str(key, fallback string) string {
	if v, ok := r.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func (r *reader) integer(key string, fallback int) int {
	v := r.str(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, v, "must be an integer")
		return fallback
	}
	return n
}

func (r *reader) duration(key string, fallback time.Duration) time.Duration {
	v := r.str(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		r.fail(key, v, "must be a positive duration such as 30s or 12h")
		return fallback
	}
	return d
}

func (r *reader) fail(key, value, reason string) {
	r.errs = append(r.errs, fmt.Errorf("%s=%q: %s", key, value, reason))
}
