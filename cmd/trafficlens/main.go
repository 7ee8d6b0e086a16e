// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

// Package main is the trafficlens command.
//
// Trafficlens loads road traffic count CSV exports (a stations table and an
// hourly counts table) into DuckDB and serves traffic analytics over HTTP.
//
// # Commands
//
//	trafficlens ingest-stations [flags] <file>
//	trafficlens ingest-hourly [flags] <file>
//	trafficlens verify
//	trafficlens build-indexes
//	trafficlens drop-indexes
//	trafficlens backfill-geometry
//	trafficlens serve
//
// Stations must be loaded before hourly counts. Both ingest commands accept
// plain or gzip-compressed CSV and the flags -batch-size, -max-rows, -resume
// and -verify, which override the ingest section of the configuration.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 (ENV > config.yaml > defaults). See
// internal/config for the full list; the common ones are:
//   - DUCKDB_PATH: database file (default /data/trafficlens.duckdb)
//   - INGEST_BATCH_SIZE: rows per committed batch (default 5000)
//   - INGEST_CHECKPOINT_PATH: BadgerDB directory for resumable checkpoints
//   - INGEST_AUTO_START with STATIONS_CSV and HOURLY_CSV: load both files
//     in the background when serve starts
//   - HTTP_PORT, HTTP_HOST, LOG_LEVEL, LOG_FORMAT
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. An ingest in progress rolls
// back the batch in flight; committed batches and the checkpoint stay, so
// the same command with -resume continues where it stopped. serve stops
// accepting connections and drains in-flight requests.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/trafficlens/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := Run(ctx, os.Args[1:], os.Stdout)
	stop()

	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	default:
		logging.Error().Err(err).Msg("trafficlens failed")
		os.Exit(1)
	}
}
