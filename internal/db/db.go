// Package db provides an optional PostgreSQL mirror of campaign results.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS outreach_runs (
		id           UUID PRIMARY KEY,
		input_path   TEXT NOT NULL,
		status       TEXT NOT NULL,
		processed    INTEGER NOT NULL DEFAULT 0,
		sent         INTEGER NOT NULL DEFAULT 0,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS outreach_results (
		url              TEXT PRIMARY KEY,
		website_url      TEXT NOT NULL,
		restaurant_name  TEXT NOT NULL DEFAULT '',
		contact_page_url TEXT,
		status           TEXT NOT NULL,
		recorded_at      TIMESTAMPTZ,
		run_id           TEXT,
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS outreach_results_run_id_idx ON outreach_results (run_id)`,
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

// EnsureSchema creates the tables if they do not exist
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// CreateRun records the start of a campaign run
func (db *DB) CreateRun(ctx context.Context, runID uuid.UUID, inputPath string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO outreach_runs (id, input_path, status) VALUES ($1, $2, $3)`,
		runID, inputPath, RunStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// CompleteRun marks a campaign run as finished with its final counts
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, status string, processed, sent int) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE outreach_runs SET status = $1, processed = $2, sent = $3, completed_at = NOW() WHERE id = $4`,
		status, processed, sent, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return nil
}

// GetRun retrieves a campaign run by ID
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var run Run
	err := db.pool.QueryRow(ctx,
		`SELECT id, input_path, status, processed, sent, created_at, completed_at
		 FROM outreach_runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.InputPath, &run.Status, &run.Processed, &run.Sent, &run.CreatedAt, &run.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}
