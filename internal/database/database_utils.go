// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/trafficlens/internal/metrics"
	"github.com/tomtom215/trafficlens/internal/models"
)

const (
	defaultQueryTimeout       = 30 * time.Second
	defaultMaintenanceTimeout = 10 * time.Minute
)

// ensureContext adds a 30 second timeout when ctx carries no deadline.
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return withDefaultTimeout(ctx, defaultQueryTimeout)
}

// ensureLongContext is ensureContext for index builds and backfills.
func (db *DB) ensureLongContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return withDefaultTimeout(ctx, defaultMaintenanceTimeout)
}

func withDefaultTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), d)
	}
	if _, ok := ctx.Deadline(); !ok {
		return context.WithTimeout(ctx, d)
	}
	return ctx, func() {}
}

// Checkpoint forces a WAL checkpoint
func (db *DB) Checkpoint(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	return nil
}

// CountRows returns the row counts of both data tables and publishes
// them as gauges.
func (db *DB) CountRows(ctx context.Context) (models.TableCounts, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var counts models.TableCounts
	start := time.Now()
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM stations").Scan(&counts.Stations)
	observe("SELECT", "stations", start, err)
	if err != nil {
		return counts, fmt.Errorf("failed to count stations: %w", err)
	}

	start = time.Now()
	err = db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM hourly_counts").Scan(&counts.HourlyCounts)
	observe("SELECT", "hourly_counts", start, err)
	if err != nil {
		return counts, fmt.Errorf("failed to count hourly counts: %w", err)
	}

	metrics.RecordTableRows(counts.Stations, counts.HourlyCounts)
	return counts, nil
}
