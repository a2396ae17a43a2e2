package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RunRecord is one persisted ingestion report. Report holds the JSON
// rendering of the run.
type RunRecord struct {
	ID         string
	Source     string
	StartedAt  time.Time
	FinishedAt time.Time
	Report     string
}

func (q *Queries) SaveRun(ctx context.Context, r RunRecord) error {
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO ingest_runs (id, source, started_at, finished_at, report) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.Source, Timestamp(r.StartedAt), Timestamp(r.FinishedAt), r.Report,
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", r.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs first.
func (q *Queries) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := q.q.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, source, started_at, finished_at, report FROM ingest_runs
		ORDER BY started_at DESC, id LIMIT %d`, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.Source, &r.StartedAt, &r.FinishedAt, &r.Report); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (q *Queries) LatestRun(ctx context.Context) (*RunRecord, error) {
	var r RunRecord
	err := q.q.QueryRowContext(ctx,
		`SELECT id, source, started_at, finished_at, report FROM ingest_runs
		ORDER BY started_at DESC, id LIMIT 1`,
	).Scan(&r.ID, &r.Source, &r.StartedAt, &r.FinishedAt, &r.Report)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("latest run: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return &r, nil
}

func (q *Queries) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	var r RunRecord
	err := q.q.QueryRowContext(ctx,
		`SELECT id, source, started_at, finished_at, report FROM ingest_runs WHERE id = ?`, id,
	).Scan(&r.ID, &r.Source, &r.StartedAt, &r.FinishedAt, &r.Report)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return &r, nil
}
