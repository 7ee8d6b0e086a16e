// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package database

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/tomtom215/trafficlens/internal/logging"
)

// extensionTimeout bounds a single extension statement. CGO calls ignore
// context cancellation, so the bound is enforced with a goroutine and select.
// Override with DUCKDB_EXTENSION_TIMEOUT (e.g. "60s").
var extensionTimeout = getExtensionTimeout()

func getExtensionTimeout() time.Duration {
	if s := os.Getenv("DUCKDB_EXTENSION_TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			return d
		}
	}
	return 30 * time.Second
}

// extensionRetryConfig controls retry behavior for extension downloads.
type extensionRetryConfig struct {
	MaxRetries  int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	BackoffMult float64
}

var defaultRetryConfig = extensionRetryConfig{
	MaxRetries:  3,
	BaseDelay:   2 * time.Second,
	MaxDelay:    30 * time.Second,
	BackoffMult: 2.0,
}

// duckdbVersion must match the engine bundled by duckdb-go in go.mod.
const duckdbVersion = "v1.4.3"

// isExtensionInstalledLocally checks ~/.duckdb/extensions for a
// pre-installed extension so startup can skip the network.
func isExtensionInstalledLocally(name string) bool {
	home, err := os.UserHomeDir()
	if err != nil {
		return false
	}
	platform := runtime.GOOS + "_" + runtime.GOARCH
	path := filepath.Join(home, ".duckdb", "extensions", duckdbVersion, platform, name+".duckdb_extension")
	_, err = os.Stat(path)
	return err == nil
}

type execResult struct {
	err error
}

type queryResult struct {
	value interface{}
	err   error
}

// execWithHardTimeout runs a statement and gives up after extensionTimeout.
func (db *DB) execWithHardTimeout(query string) error {
	resultCh := make(chan execResult, 1)

	ctx, cancel := extensionContext()
	defer cancel()

	go func() {
		_, err := db.conn.ExecContext(ctx, query)
		resultCh <- execResult{err: err}
	}()

	select {
	case r := <-resultCh:
		return r.err
	case <-time.After(extensionTimeout):
		return fmt.Errorf("operation timed out after %v", extensionTimeout)
	}
}

// queryRowWithHardTimeout scans a single value with the same bound.
func (db *DB) queryRowWithHardTimeout(query string) (interface{}, error) {
	resultCh := make(chan queryResult, 1)

	ctx, cancel := extensionContext()
	defer cancel()

	go func() {
		var v interface{}
		err := db.conn.QueryRowContext(ctx, query).Scan(&v)
		resultCh <- queryResult{value: v, err: err}
	}()

	select {
	case r := <-resultCh:
		return r.value, r.err
	case <-time.After(extensionTimeout):
		return nil, fmt.Errorf("query timed out after %v", extensionTimeout)
	}
}

// execWithRetry retries timeouts and transient network errors with
// exponential backoff. Other errors fail immediately.
func (db *DB) execWithRetry(query string, cfg extensionRetryConfig) error {
	var lastErr error
	delay := cfg.BaseDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			logging.Debug().
				Int("attempt", attempt).
				Dur("delay", delay).
				Str("query", query).
				Msg("Retrying extension operation")
			time.Sleep(delay)
			delay = time.Duration(float64(delay) * cfg.BackoffMult)
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}

		err := db.execWithHardTimeout(query)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryableExtensionError(err) {
			return err
		}

		logging.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_attempts", cfg.MaxRetries+1).
			Msg("Extension operation failed, will retry")
	}

	return fmt.Errorf("extension operation failed after %d attempts: %w", cfg.MaxRetries+1, lastErr)
}

func isRetryableExtensionError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "timed out") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "503") ||
		strings.Contains(msg, "temporary failure")
}

// installExtensions loads the spatial extension when enabled. It is
// optional unless database.require_spatial is set; without it stations
// keep their WKT column only.
func (db *DB) installExtensions() error {
	if !db.cfg.EnableSpatial {
		logging.Debug().Msg("Spatial extension disabled by configuration")
		return nil
	}

	optional := !db.cfg.RequireSpatial
	return db.installCoreExtension(spatialExtension(), optional)
}
