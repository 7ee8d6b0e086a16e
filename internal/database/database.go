// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/trafficlens/internal/config"
	"github.com/tomtom215/trafficlens/internal/logging"
	"github.com/tomtom215/trafficlens/internal/metrics"
)

// DB wraps the DuckDB connection and provides the store and query layer.
type DB struct {
	conn             *sql.DB
	cfg              *config.DatabaseConfig
	spatialAvailable bool
}

// New opens the database, installs extensions and creates the schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	// 0750 per gosec G301
	dbDir := filepath.Dir(cfg.Path)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
		}
	}

	conn, err := openConnection(cfg)
	if err != nil {
		return nil, err
	}

	db := &DB{conn: conn, cfg: cfg}

	if err := db.configureConnectionPool(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to configure connection pool: %w", err)
	}

	if err := db.initialize(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("spatial", db.spatialAvailable).
		Msg("Database ready")

	return db, nil
}

// IsSpatialAvailable reports whether the spatial extension loaded and the
// location_geom column exists.
func (db *DB) IsSpatialAvailable() bool {
	return db.spatialAvailable
}

// Close checkpoints the WAL and closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint database before close")
	}
	cancel()

	return db.conn.Close()
}

// Ping checks if the database connection is alive
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// initialize loads extensions, then creates tables and the spatial column.
func (db *DB) initialize() error {
	if err := db.installExtensions(); err != nil {
		return err
	}

	if err := db.createTables(); err != nil {
		return err
	}

	if db.spatialAvailable {
		if err := db.addGeometryColumn(); err != nil {
			if db.cfg.RequireSpatial {
				return err
			}
			logging.Warn().Err(err).Msg("Spatial column unavailable, storing WKT only")
			db.spatialAvailable = false
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint after schema initialization")
	}

	return nil
}

// observe records query metrics for a finished operation.
func observe(operation, table string, start time.Time, err error) {
	metrics.RecordDBQuery(operation, table, time.Since(start), err)
}
