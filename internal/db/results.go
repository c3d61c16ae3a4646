package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/outreach-agent/internal/types"
)

// ResultStore keeps ResultRecords in the outreach_results table, one row per
// normalized URL. Rows already marked sent are never updated.
type ResultStore struct {
	db *DB
}

// NewResultStore creates a ResultStore on db
func NewResultStore(db *DB) *ResultStore {
	return &ResultStore{db: db}
}

const upsertResult = `INSERT INTO outreach_results
	(url, website_url, restaurant_name, contact_page_url, status, recorded_at, run_id)
	VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, NULLIF($7, ''))
	ON CONFLICT (url) DO UPDATE SET
		website_url = EXCLUDED.website_url,
		restaurant_name = EXCLUDED.restaurant_name,
		contact_page_url = EXCLUDED.contact_page_url,
		status = EXCLUDED.status,
		recorded_at = EXCLUDED.recorded_at,
		run_id = EXCLUDED.run_id,
		updated_at = NOW()
	WHERE outreach_results.status <> 'sent'`

const selectResults = `SELECT website_url, restaurant_name, COALESCE(contact_page_url, ''), status,
	recorded_at, COALESCE(run_id, '') FROM outreach_results`

// Put upserts rec
func (s *ResultStore) Put(ctx context.Context, rec types.ResultRecord) error {
	var recordedAt *time.Time
	if !rec.Timestamp.IsZero() {
		ts := rec.Timestamp.UTC()
		recordedAt = &ts
	}

	_, err := s.db.pool.Exec(ctx, upsertResult,
		rec.Key(), rec.URL, rec.DisplayName, rec.ContactPageURL, rec.Status.String(), recordedAt, rec.RunID,
	)
	if err != nil {
		return fmt.Errorf("failed to save result for %s: %w", rec.URL, err)
	}
	return nil
}

// Load returns every stored record keyed by normalized URL
func (s *ResultStore) Load(ctx context.Context) (map[string]types.ResultRecord, error) {
	records, err := s.List(ctx, ResultFilters{})
	if err != nil {
		return nil, err
	}
	out := make(map[string]types.ResultRecord, len(records))
	for _, rec := range records {
		out[rec.Key()] = rec
	}
	return out, nil
}

// List retrieves records with optional filters, most recent first
func (s *ResultStore) List(ctx context.Context, filters ResultFilters) ([]types.ResultRecord, error) {
	query, args := buildResultsQuery(filters)

	rows, err := s.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var records []types.ResultRecord
	for rows.Next() {
		var rec types.ResultRecord
		var status string
		var recordedAt *time.Time
		if err := rows.Scan(&rec.URL, &rec.DisplayName, &rec.ContactPageURL, &status, &recordedAt, &rec.RunID); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		rec.Status = types.ParseStatus(status)
		if recordedAt != nil {
			rec.Timestamp = *recordedAt
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}
	return records, nil
}

// buildResultsQuery assembles the filtered SELECT and its arguments
func buildResultsQuery(filters ResultFilters) (string, []any) {
	query := selectResults + ` WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.RunID != "" {
		query += fmt.Sprintf(" AND run_id = $%d", argNum)
		args = append(args, filters.RunID)
		argNum++
	}
	if filters.Status != "" {
		// Stored statuses carry reasons, e.g. "failed: no confirmation detected"
		query += fmt.Sprintf(" AND (status = $%d OR status LIKE $%d)", argNum, argNum+1)
		args = append(args, filters.Status, filters.Status+":%")
		argNum += 2
	}

	query += " ORDER BY recorded_at DESC NULLS LAST, url"
	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filters.Limit)
	}
	return query, args
}
