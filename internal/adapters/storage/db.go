package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// TimeLayout is how timestamps are written to TEXT columns.
const TimeLayout = "2006-01-02T15:04:05.999999999Z07:00"

// Migration is one numbered schema step.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Schema is the ordered migration chain of one database.
type Schema struct {
	Name       string
	Migrations []Migration
}

// Latest returns the highest migration version of the schema.
func (s Schema) Latest() int {
	latest := 0
	for _, m := range s.Migrations {
		if m.Version > latest {
			latest = m.Version
		}
	}
	return latest
}

// ActivitySchema holds activities, their comment threads, the audit trail and the outbox.
var ActivitySchema = Schema{
	Name: "activity",
	Migrations: []Migration{
		{
			Version:     1,
			Description: "activity and comments",
			SQL: `
			CREATE TABLE IF NOT EXISTS activity (
				id TEXT PRIMARY KEY,
				owner_id TEXT NOT NULL,
				log_type TEXT NOT NULL,
				week_start TEXT NOT NULL,
				date TEXT NOT NULL,
				start_time TEXT NOT NULL DEFAULT '',
				end_time TEXT NOT NULL DEFAULT '',
				duration INTEGER,
				description TEXT NOT NULL DEFAULT '',
				notes TEXT NOT NULL DEFAULT '',
				created_by TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT
			);
			CREATE INDEX IF NOT EXISTS idx_activity_owner_date ON activity(owner_id, date);
			CREATE INDEX IF NOT EXISTS idx_activity_week ON activity(week_start, log_type);

			CREATE TABLE IF NOT EXISTS activity_comment (
				id TEXT PRIMARY KEY,
				activity_id TEXT NOT NULL,
				seq INTEGER NOT NULL,
				author_id TEXT NOT NULL,
				author_name TEXT NOT NULL DEFAULT '',
				author_role TEXT NOT NULL DEFAULT '',
				text TEXT NOT NULL,
				created_at TEXT NOT NULL,
				UNIQUE (activity_id, seq),
				FOREIGN KEY (activity_id) REFERENCES activity(id) ON DELETE CASCADE
			);`,
		},
		{
			Version:     2,
			Description: "audit trail",
			SQL: `
			CREATE TABLE IF NOT EXISTS audit_event (
				id TEXT PRIMARY KEY,
				timestamp TEXT NOT NULL,
				category TEXT NOT NULL,
				action TEXT NOT NULL,
				severity TEXT NOT NULL,
				actor_id TEXT NOT NULL DEFAULT '',
				actor_role TEXT NOT NULL DEFAULT '',
				resource_type TEXT NOT NULL DEFAULT '',
				resource_id TEXT NOT NULL DEFAULT '',
				subject_id TEXT NOT NULL DEFAULT '',
				description TEXT NOT NULL DEFAULT '',
				ip_address TEXT NOT NULL DEFAULT '',
				user_agent TEXT NOT NULL DEFAULT ''
			);
			CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_event(timestamp);`,
		},
		{
			Version:     3,
			Description: "outbox",
			SQL: `
			CREATE TABLE IF NOT EXISTS outbox (
				id TEXT PRIMARY KEY,
				action_type TEXT NOT NULL,
				payload TEXT NOT NULL,
				status TEXT NOT NULL,
				attempts INTEGER NOT NULL DEFAULT 0,
				max_attempts INTEGER NOT NULL DEFAULT 5,
				last_attempted_at TEXT,
				created_at TEXT NOT NULL,
				external_id TEXT NOT NULL DEFAULT '',
				error_message TEXT NOT NULL DEFAULT ''
			);
			CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox(status);`,
		},
	},
}

// AuthSchema holds login accounts and client profiles.
var AuthSchema = Schema{
	Name: "auth",
	Migrations: []Migration{
		{
			Version:     1,
			Description: "accounts",
			SQL: `
			CREATE TABLE IF NOT EXISTS account (
				id TEXT PRIMARY KEY,
				email TEXT NOT NULL UNIQUE,
				name TEXT NOT NULL DEFAULT '',
				password_hash TEXT NOT NULL DEFAULT '',
				role TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'active',
				created_at TEXT NOT NULL,
				failed_logins INTEGER NOT NULL DEFAULT 0,
				locked_until TEXT
			);`,
		},
		{
			Version:     2,
			Description: "client profiles",
			SQL: `
			CREATE TABLE IF NOT EXISTS client (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				email TEXT NOT NULL,
				phone TEXT NOT NULL DEFAULT '',
				program TEXT NOT NULL,
				coach_id TEXT NOT NULL DEFAULT '',
				case_number TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL,
				created_at TEXT NOT NULL,
				FOREIGN KEY (id) REFERENCES account(id)
			);
			CREATE INDEX IF NOT EXISTS idx_client_coach ON client(coach_id);`,
		},
	},
}

// Open opens a SQLite database with WAL journaling, a busy timeout and foreign keys enforced.
// An in-memory database is pinned to one connection so every query sees the same data.
// PRE: path is a file path or ":memory:"
// POST: returned handle has been pinged
func Open(path string) (*sql.DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}
	return db, nil
}

// MigrateDB applies every migration of schema newer than the recorded version.
// Each migration runs in its own transaction together with its schema_version row.
// PRE: db is a valid database connection
// POST: SchemaVersion(db) == schema.Latest()
func MigrateDB(db *sql.DB, schema Schema) error {
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}

	for _, m := range schema.Migrations {
		if m.Version <= current {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return fmt.Errorf("%s migration %d (%s): %w", schema.Name, m.Version, m.Description, err)
		}
		slog.Info("schema_event", "event", "migration_applied", "db", schema.Name, "version", m.Version, "description", m.Description)
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(m.SQL) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_version (version, description, applied_at) VALUES (?, ?, ?)",
		m.Version, m.Description, time.Now().UTC().Format(TimeLayout)); err != nil {
		return err
	}
	return tx.Commit()
}

// SchemaVersion returns the highest applied migration, or 0 for a fresh database.
// PRE: db is a valid database connection
func SchemaVersion(db *sql.DB) (int, error) {
	var exists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("check schema_version: %w", err)
	}
	if exists == 0 {
		return 0, nil
	}
	var version sql.NullInt64
	if err := db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema_version: %w", err)
	}
	return int(version.Int64), nil
}

// FormatTime renders t for a TEXT column. The zero time is stored as NULL.
func FormatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(TimeLayout)
}

// ParseTime reads a timestamp written by FormatTime or by SQLite's own datetime().
func ParseTime(s string) (time.Time, error) {
	for _, f := range []string{TimeLayout, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time: %s", s)
}

// ParseNullTime is ParseTime for nullable columns; NULL and unparseable values yield the zero time.
func ParseNullTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, _ := ParseTime(s.String)
	return t
}

func splitStatements(script string) []string {
	var out []string
	for _, stmt := range strings.Split(script, ";") {
		if strings.TrimSpace(stmt) != "" {
			out = append(out, stmt)
		}
	}
	return out
}
