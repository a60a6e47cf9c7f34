package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"activitylog/internal/adapters/observability"
)

// SQLDB is the database interface used by all stores.
// Both *sql.DB and *TimedDB satisfy this interface.
type SQLDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Compile-time check that *sql.DB satisfies SQLDB.
var _ SQLDB = (*sql.DB)(nil)

// DefaultSlowQuery is the default threshold for slow query warnings.
const DefaultSlowQuery = 50 * time.Millisecond

// QueryObserver receives the latency of every call made through a TimedDB.
type QueryObserver func(db, op string, d time.Duration)

// TimedDB wraps a *sql.DB to log slow queries and export query latency.
// Satisfies the SQLDB interface so it can be passed to any store constructor.
type TimedDB struct {
	db        *sql.DB
	name      string
	threshold time.Duration
	observe   QueryObserver
}

// Compile-time check that *TimedDB satisfies SQLDB.
var _ SQLDB = (*TimedDB)(nil)

// NewTimedDB wraps db. name labels log lines and metrics ("activity" or "auth").
// A non-positive threshold falls back to DefaultSlowQuery.
// PRE: db is a valid database connection
// POST: Returns a TimedDB reporting to the prometheus query histogram
func NewTimedDB(db *sql.DB, name string, threshold time.Duration) *TimedDB {
	if threshold <= 0 {
		threshold = DefaultSlowQuery
	}
	return &TimedDB{
		db:        db,
		name:      name,
		threshold: threshold,
		observe:   observability.ObserveQuery,
	}
}

// WithObserver replaces the latency sink. A nil observer disables export.
func (t *TimedDB) WithObserver(o QueryObserver) *TimedDB {
	t.observe = o
	return t
}

// RawDB returns the underlying *sql.DB (needed for migrations and pool config).
func (t *TimedDB) RawDB() *sql.DB {
	return t.db
}

// Name returns the label given at construction.
func (t *TimedDB) Name() string {
	return t.name
}

func (t *TimedDB) logQuery(op string, start time.Time) {
	elapsed := time.Since(start)
	durationMs := float64(elapsed.Microseconds()) / 1000.0

	if elapsed >= t.threshold {
		slog.Warn("slow_query", "db", t.name, "op", op, "duration_ms", durationMs)
	} else {
		slog.Debug("query", "db", t.name, "op", op, "duration_ms", durationMs)
	}

	if t.observe != nil {
		t.observe(t.name, op, elapsed)
	}
}

// ExecContext wraps sql.DB.ExecContext with timing.
// PRE: ctx is valid, query is non-empty
// POST: query executed, timing recorded
func (t *TimedDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	result, err := t.db.ExecContext(ctx, query, args...)
	t.logQuery("ExecContext", start)
	return result, err
}

// QueryContext wraps sql.DB.QueryContext with timing.
// PRE: ctx is valid, query is non-empty
// POST: query executed, timing recorded
func (t *TimedDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := t.db.QueryContext(ctx, query, args...)
	t.logQuery("QueryContext", start)
	return rows, err
}

// QueryRowContext wraps sql.DB.QueryRowContext with timing.
// PRE: ctx is valid, query is non-empty
// POST: query executed, timing recorded
func (t *TimedDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	row := t.db.QueryRowContext(ctx, query, args...)
	t.logQuery("QueryRowContext", start)
	return row
}

// BeginTx wraps sql.DB.BeginTx with timing.
// PRE: ctx is valid
// POST: transaction started, timing recorded
func (t *TimedDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	start := time.Now()
	tx, err := t.db.BeginTx(ctx, opts)
	t.logQuery("BeginTx", start)
	return tx, err
}

// PingContext verifies the database connection.
func (t *TimedDB) PingContext(ctx context.Context) error {
	return t.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (t *TimedDB) Close() error {
	return t.db.Close()
}
