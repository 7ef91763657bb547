// Package db provides PostgreSQL persistence for fitting runs.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS fitting_runs (
	id                 UUID PRIMARY KEY,
	name               TEXT NOT NULL DEFAULT '',
	mode               TEXT NOT NULL,
	status             TEXT NOT NULL,
	target_pages       INT NOT NULL,
	initial_pages      INT NOT NULL,
	final_pages        INT NOT NULL,
	best_pages         INT NOT NULL,
	iterations_used    INT NOT NULL,
	edit_attempts      INT NOT NULL,
	exhausted_sections TEXT[] NOT NULL DEFAULT '{}',
	job                JSONB,
	document           JSONB,
	started_at         TIMESTAMPTZ NOT NULL,
	completed_at       TIMESTAMPTZ NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS fitting_iterations (
	run_id       UUID NOT NULL REFERENCES fitting_runs(id) ON DELETE CASCADE,
	attempt      INT NOT NULL,
	section      TEXT NOT NULL,
	score        INT NOT NULL,
	units_before INT NOT NULL,
	units_after  INT NOT NULL,
	pages_before INT NOT NULL,
	pages_after  INT NOT NULL,
	outcome      TEXT NOT NULL,
	PRIMARY KEY (run_id, attempt)
);

CREATE INDEX IF NOT EXISTS fitting_runs_created_at_idx ON fitting_runs (created_at DESC);
`

// EnsureSchema creates the tables when they do not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
