package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a queried row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert collides with an existing
// (tag, since_run) pair.
var ErrDuplicate = errors.New("duplicate")

// DB wraps a database/sql connection pool for PostgreSQL.
type DB struct {
	Pool *sql.DB
}

// New creates a new database connection. The lib/pq driver is
// registered by this package.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pool.SetMaxOpenConns(25)
	pool.SetMaxIdleConns(5)

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the connection pool.
func (d *DB) Close() error {
	return d.Pool.Close()
}

// Migrate runs the database schema migrations.
func (d *DB) Migrate(ctx context.Context) error {
	_, err := d.Pool.ExecContext(ctx, migrationSQL)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

const migrationSQL = `
CREATE TABLE IF NOT EXISTS trigger_payloads (
    payload_id  TEXT PRIMARY KEY,
    tag         TEXT NOT NULL,
    since_run   BIGINT NOT NULL,
    trig_map    JSONB NOT NULL,
    inserted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (tag, since_run)
);

CREATE INDEX IF NOT EXISTS idx_trigger_payloads_tag_since ON trigger_payloads(tag, since_run);

CREATE TABLE IF NOT EXISTS update_runs (
    id           TEXT PRIMARY KEY,
    tag          TEXT NOT NULL,
    status       TEXT NOT NULL,
    first_run    BIGINT NOT NULL,
    last_run     BIGINT NOT NULL DEFAULT -1,
    removed      INTEGER NOT NULL DEFAULT 0,
    added        INTEGER NOT NULL DEFAULT 0,
    renamed      INTEGER NOT NULL DEFAULT 0,
    warnings     JSONB NOT NULL DEFAULT '[]',
    error        TEXT,
    started_at   TIMESTAMPTZ NOT NULL,
    completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_update_runs_tag ON update_runs(tag);
`
