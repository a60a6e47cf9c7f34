package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func lookupFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	c, err := FromLookup(lookupFrom(nil))
	if err != nil {
		t.Fatalf("FromLookup() error = %v", err)
	}
	if c.Env != EnvDevelopment || c.Addr != ":8080" || c.ActivityDBPath != "activity.db" || c.AuthDBPath != "auth.db" {
		t.Errorf("unexpected defaults: %+v", c)
	}
	if c.TokenTTL != 12*time.Hour || c.OutboxInterval != time.Minute || c.SlowQuery != 50*time.Millisecond {
		t.Errorf("unexpected duration defaults: %+v", c)
	}
	if c.Location() != time.UTC {
		t.Errorf("Location() = %v", c.Location())
	}
}

func TestFromLookup_Overrides(t *testing.T) {
	c, err := FromLookup(lookupFrom(map[string]string{
		"ACTLOG_TIMEZONE":      "Pacific/Auckland",
		"ACTLOG_LOG_LEVEL":     "DEBUG",
		"ACTLOG_CSRF_KEY":      strings.Repeat("ab", 32),
		"ACTLOG_SLOW_QUERY_MS": "10",
		"ACTLOG_TOKEN_TTL":     "30m",
	}))
	if err != nil {
		t.Fatalf("FromLookup() error = %v", err)
	}
	if c.Location().String() != "Pacific/Auckland" {
		t.Errorf("Location() = %v", c.Location())
	}
	if c.LogLevel != "debug" || len(c.CSRFKey) != 32 || c.SlowQuery != 10*time.Millisecond || c.TokenTTL != 30*time.Minute {
		t.Errorf("overrides not applied: %+v", c)
	}
}

func TestFromLookup_CollectsEveryError(t *testing.T) {
	_, err := FromLookup(lookupFrom(map[string]string{
		"ACTLOG_ENV":         "staging",
		"ACTLOG_TIMEZONE":    "Mars/Olympus",
		"ACTLOG_TOKEN_TTL":   "forever",
		"ACTLOG_RATE_LIMIT":  "lots",
		"ACTLOG_CSRF_KEY":    "short",
		"ACTLOG_LOG_LEVEL":   "loud",
		"ACTLOG_JWT_ISSUER":  "ok",
		"ACTLOG_ADMIN_EMAIL": "ok@example.org",
	}))
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, key := range []string{"ACTLOG_ENV", "ACTLOG_TIMEZONE", "ACTLOG_TOKEN_TTL", "ACTLOG_RATE_LIMIT", "ACTLOG_CSRF_KEY", "ACTLOG_LOG_LEVEL"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error does not mention %s: %v", key, err)
		}
	}
}

func TestFromLookup_ProductionRequiresSecrets(t *testing.T) {
	_, err := FromLookup(lookupFrom(map[string]string{"ACTLOG_ENV": EnvProduction}))
	if err == nil {
		t.Fatal("production without secrets should fail")
	}
	if !strings.Contains(err.Error(), "ACTLOG_CSRF_KEY") || !strings.Contains(err.Error(), "ACTLOG_JWT_SECRET") {
		t.Errorf("error = %v", err)
	}

	c, err := FromLookup(lookupFrom(map[string]string{
		"ACTLOG_ENV":        EnvProduction,
		"ACTLOG_CSRF_KEY":   strings.Repeat("0f", 32),
		"ACTLOG_JWT_SECRET": strings.Repeat("s", 32),
	}))
	if err != nil {
		t.Fatalf("FromLookup() error = %v", err)
	}
	if !c.IsProduction() {
		t.Error("IsProduction() = false")
	}
}

func TestLoad_ReadsDotEnvWithoutOverriding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("ACTLOG_ADDR=:9999\nACTLOG_AUTH_DB=from-file.db\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ACTLOG_AUTH_DB", "from-env.db")
	t.Setenv("ACTLOG_ADDR", "")
	os.Unsetenv("ACTLOG_ADDR")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Addr != ":9999" {
		t.Errorf("Addr = %q, want value from file", c.Addr)
	}
	if c.AuthDBPath != "from-env.db" {
		t.Errorf("AuthDBPath = %q, want environment to win", c.AuthDBPath)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing file should be ignored: %v", err)
	}
}
