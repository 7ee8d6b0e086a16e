// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package database

import (
	"database/sql"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/tomtom215/trafficlens/internal/config"
)

// connectionString builds the DuckDB DSN with tuning options. Automatic
// extension install/load is disabled; installExtensions does it
// explicitly with hard timeouts.
func connectionString(cfg *config.DatabaseConfig) string {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "2GB"
	}

	return fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&preserve_insertion_order=%t"+
		"&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, threads, maxMemory, cfg.PreserveInsertionOrder)
}

func openConnection(cfg *config.DatabaseConfig) (*sql.DB, error) {
	conn, err := sql.Open("duckdb", connectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return conn, nil
}

// configureConnectionPool sets connection pool parameters
func (db *DB) configureConnectionPool() error {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
	return nil
}

// isConnectionError checks if an error indicates database connection loss
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"bad connection",
		"database is closed",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// isTransactionConflict checks if an error is a DuckDB transaction conflict
func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Transaction conflict") ||
		strings.Contains(msg, "Conflict on update")
}
