// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/trafficlens/internal/models"
)

// RecordIngestRun stores or replaces the audit row for a loader run.
func (db *DB) RecordIngestRun(ctx context.Context, run *models.IngestRun) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	reasons, err := json.Marshal(run.SkipReasons)
	if err != nil {
		return fmt.Errorf("failed to encode skip reasons: %w", err)
	}

	var ended interface{}
	if !run.EndedAt.IsZero() {
		ended = run.EndedAt.UTC()
	}

	start := time.Now()
	_, err = db.conn.ExecContext(ctx, `INSERT OR REPLACE INTO ingest_runs
		(run_id, kind, file, started_at, ended_at, rows_read, inserted, skipped, skip_reasons, batches, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Kind, run.File, run.StartedAt.UTC(), ended,
		run.RowsRead, run.Inserted, run.Skipped, string(reasons), run.Batches, run.Status, run.Error)
	observe("INSERT", "ingest_runs", start, err)
	if err != nil {
		return fmt.Errorf("failed to record ingest run %s: %w", run.RunID, err)
	}
	return nil
}

// RecentIngestRuns returns the newest runs first.
func (db *DB) RecentIngestRuns(ctx context.Context, limit int) ([]models.IngestRun, error) {
	if limit <= 0 {
		limit = 20
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	runs, err := queryAndScan(ctx, db.conn, `SELECT run_id, kind, file, started_at, ended_at,
			rows_read, inserted, skipped, skip_reasons, batches, status, error
		FROM ingest_runs ORDER BY started_at DESC LIMIT ?`, []interface{}{limit}, scanIngestRun)
	observe("SELECT", "ingest_runs", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingest runs: %w", err)
	}
	if runs == nil {
		runs = []models.IngestRun{}
	}
	return runs, nil
}

func scanIngestRun(row scanner) (models.IngestRun, error) {
	var (
		r       models.IngestRun
		ended   sql.NullTime
		reasons sql.NullString
		errText sql.NullString
	)
	err := row.Scan(&r.RunID, &r.Kind, &r.File, &r.StartedAt, &ended,
		&r.RowsRead, &r.Inserted, &r.Skipped, &reasons, &r.Batches, &r.Status, &errText)
	if err != nil {
		return r, err
	}

	if ended.Valid {
		r.EndedAt = ended.Time
	}
	r.Error = errText.String
	r.SkipReasons = map[string]int64{}
	if reasons.Valid && reasons.String != "" && reasons.String != "null" {
		if err := json.Unmarshal([]byte(reasons.String), &r.SkipReasons); err != nil {
			return r, fmt.Errorf("failed to decode skip reasons: %w", err)
		}
	}
	return r, nil
}
