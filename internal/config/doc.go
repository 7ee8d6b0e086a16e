// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

/*
Package config provides centralized configuration management for Trafficlens.

Configuration is layered with Koanf v2. Later layers override earlier ones:

 1. Built-in defaults (defaultConfig)
 2. Optional YAML file (CONFIG_PATH, ./config.yaml, /etc/trafficlens/config.yaml)
 3. Environment variables mapped through an explicit table

# Environment Variables

Database:
  - DUCKDB_PATH: Database file path (default: /data/trafficlens.duckdb)
  - DUCKDB_MAX_MEMORY: DuckDB memory limit (default: 2GB)
  - DUCKDB_THREADS: Worker threads, 0 = NumCPU
  - ENABLE_SPATIAL: Load the spatial extension (default: true)
  - REQUIRE_SPATIAL: Fail startup when spatial cannot load (default: false)

Ingestion:
  - INGEST_BATCH_SIZE: Rows per committed batch (default: 5000)
  - INGEST_MAX_ROWS: Stop after this many rows, 0 = all
  - STATIONS_CSV / HOURLY_CSV: Input files for auto-ingest and CLI defaults
  - INGEST_VERIFY: Log table counts after a run (default: true)
  - INGEST_RESUME: Resume from the saved checkpoint (default: true)
  - INGEST_CHECKPOINT_PATH: Badger directory, empty = in-memory
  - DAILY_TOTAL_POLICY: sum or require_min_hours
  - INGEST_AUTO_START: Ingest the configured files when serving

Aggregation:
  - AM_PEAK_START, AM_PEAK_END, PM_PEAK_START, PM_PEAK_END
  - MIN_VALID_HOURS (default: 19)

Server and security:
  - HTTP_HOST, HTTP_PORT, HTTP_TIMEOUT
  - CORS_ORIGINS (comma-separated)
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT

Cache:
  - CACHE_TYPE: ttl or lfu
  - CACHE_TTL, CACHE_CAPACITY

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Usage

	cfg, err := config.LoadWithKoanf()
	if err != nil {
	    log.Fatal(err)
	}
	db, err := database.New(&cfg.Database)

Config is immutable after loading and safe for concurrent reads.
*/
package config
