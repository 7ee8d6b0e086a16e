// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/trafficlens/internal/logging"
	"github.com/tomtom215/trafficlens/internal/models"
)

func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range getTableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

// hourColumnsDDL renders hour_00 INTEGER, ... hour_23 INTEGER.
func hourColumnsDDL() string {
	cols := make([]string, models.HoursPerDay)
	for h := range cols {
		cols[h] = models.HourColumn(h) + " INTEGER"
	}
	return strings.Join(cols, ",\n\t\t\t")
}

func getTableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS stations (
			station_key BIGINT PRIMARY KEY,
			station_id TEXT NOT NULL,
			name TEXT,
			road_name TEXT,
			full_name TEXT,
			common_road_name TEXT,
			lga TEXT,
			suburb TEXT,
			post_code TEXT,
			road_functional_hierarchy TEXT,
			lane_count TEXT,
			road_classification_type TEXT,
			device_type TEXT,
			permanent_station BOOLEAN DEFAULT false,
			vehicle_classifier BOOLEAN DEFAULT false,
			heavy_vehicle_checking_station BOOLEAN DEFAULT false,
			quality_rating INTEGER,
			wgs84_latitude DOUBLE NOT NULL,
			wgs84_longitude DOUBLE NOT NULL,
			location_wkt TEXT
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_stations_station_id ON stations(station_id);`,

		`CREATE SEQUENCE IF NOT EXISTS hourly_counts_seq START 1;`,
		`CREATE TABLE IF NOT EXISTS hourly_counts (
			count_id BIGINT PRIMARY KEY DEFAULT nextval('hourly_counts_seq'),
			station_key BIGINT NOT NULL,
			traffic_direction_seq SMALLINT NOT NULL,
			cardinal_direction_seq SMALLINT NOT NULL,
			classification_seq SMALLINT NOT NULL,
			count_date DATE NOT NULL,
			year INTEGER NOT NULL,
			month SMALLINT NOT NULL,
			day_of_week SMALLINT NOT NULL,
			is_public_holiday BOOLEAN DEFAULT false,
			is_school_holiday BOOLEAN DEFAULT false,
			` + hourColumnsDDL() + `,
			daily_total BIGINT
		);`,
		// Natural key. Reloading the same file upserts instead of duplicating.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_hourly_natural_key ON hourly_counts(
			station_key, count_date, traffic_direction_seq, cardinal_direction_seq, classification_seq);`,

		`CREATE TABLE IF NOT EXISTS ingest_runs (
			run_id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			file TEXT NOT NULL,
			started_at TIMESTAMP NOT NULL,
			ended_at TIMESTAMP,
			rows_read BIGINT DEFAULT 0,
			inserted BIGINT DEFAULT 0,
			skipped BIGINT DEFAULT 0,
			skip_reasons TEXT,
			batches BIGINT DEFAULT 0,
			status TEXT NOT NULL,
			error TEXT
		);`,
	}
}

// addGeometryColumn adds stations.location_geom once spatial is loaded.
func (db *DB) addGeometryColumn() error {
	ctx, cancel := schemaContext()
	defer cancel()

	if _, err := db.conn.ExecContext(ctx,
		`ALTER TABLE stations ADD COLUMN IF NOT EXISTS location_geom GEOMETRY`); err != nil {
		return fmt.Errorf("failed to add location_geom: %w", err)
	}
	return nil
}

// getIndexQueries returns the secondary indexes managed by BuildIndexes.
// Unique indexes backing upserts live in the table DDL instead.
func (db *DB) getIndexQueries() []string {
	queries := []string{
		`CREATE INDEX IF NOT EXISTS idx_stations_lga ON stations(lga);`,
		`CREATE INDEX IF NOT EXISTS idx_stations_suburb ON stations(suburb);`,
		`CREATE INDEX IF NOT EXISTS idx_stations_road_name ON stations(road_name);`,
		`CREATE INDEX IF NOT EXISTS idx_stations_hierarchy ON stations(road_functional_hierarchy);`,

		`CREATE INDEX IF NOT EXISTS idx_hourly_station_date ON hourly_counts(station_key, count_date);`,
		`CREATE INDEX IF NOT EXISTS idx_hourly_station_class ON hourly_counts(station_key, classification_seq);`,
		`CREATE INDEX IF NOT EXISTS idx_hourly_date ON hourly_counts(count_date);`,
		`CREATE INDEX IF NOT EXISTS idx_hourly_year ON hourly_counts(year);`,
	}
	if db.spatialAvailable {
		queries = append(queries, `CREATE INDEX IF NOT EXISTS idx_stations_geom ON stations USING RTREE (location_geom);`)
	}
	return queries
}

// secondaryIndexNames lists every index DropIndexes may remove.
var secondaryIndexNames = []string{
	"idx_stations_lga",
	"idx_stations_suburb",
	"idx_stations_road_name",
	"idx_stations_hierarchy",
	"idx_hourly_station_date",
	"idx_hourly_station_class",
	"idx_hourly_date",
	"idx_hourly_year",
	"idx_stations_geom",
}

// BuildIndexes creates the secondary indexes and refreshes statistics.
// Run it after a bulk load; loading into an unindexed table is faster.
func (db *DB) BuildIndexes(ctx context.Context) error {
	ctx, cancel := db.ensureLongContext(ctx)
	defer cancel()

	for _, q := range db.getIndexQueries() {
		start := time.Now()
		_, err := db.conn.ExecContext(ctx, q)
		observe("CREATE INDEX", "schema", start, err)
		if err != nil {
			return fmt.Errorf("failed to execute index query: %s: %w", q, err)
		}
	}

	if _, err := db.conn.ExecContext(ctx, "ANALYZE"); err != nil {
		return fmt.Errorf("analyze failed: %w", err)
	}

	logging.Info().Int("indexes", len(db.getIndexQueries())).Msg("Indexes built")
	return nil
}

// DropIndexes removes the secondary indexes before a large reload.
func (db *DB) DropIndexes(ctx context.Context) error {
	ctx, cancel := db.ensureLongContext(ctx)
	defer cancel()

	for _, name := range secondaryIndexNames {
		if _, err := db.conn.ExecContext(ctx, "DROP INDEX IF EXISTS "+name); err != nil {
			return fmt.Errorf("failed to drop index %s: %w", name, err)
		}
	}

	logging.Info().Int("indexes", len(secondaryIndexNames)).Msg("Indexes dropped")
	return nil
}

// IndexNames returns the names of existing indexes, sorted.
func (db *DB) IndexNames(ctx context.Context) ([]string, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return queryAndScan(ctx, db.conn,
		`SELECT index_name FROM duckdb_indexes() ORDER BY index_name`, nil,
		func(rows scanner) (string, error) {
			var name string
			err := rows.Scan(&name)
			return name, err
		})
}
