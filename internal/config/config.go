// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package config

import (
	"time"
)

// Config holds all application configuration.
//
// Loading order (Koanf v2):
//  1. Defaults
//  2. Optional YAML config file
//  3. Environment variables
//
// Config is immutable after LoadWithKoanf and safe for concurrent reads.
type Config struct {
	Database    DatabaseConfig    `koanf:"database"`
	Ingest      IngestConfig      `koanf:"ingest"`
	Aggregation AggregationConfig `koanf:"aggregation"`
	Cache       CacheConfig       `koanf:"cache"`
	Server      ServerConfig      `koanf:"server"`
	Security    SecurityConfig    `koanf:"security"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path                   string `koanf:"path"`
	MaxMemory              string `koanf:"max_memory"`
	Threads                int    `koanf:"threads"`                  // 0 = use NumCPU
	PreserveInsertionOrder bool   `koanf:"preserve_insertion_order"` // DuckDB default is true
	EnableSpatial          bool   `koanf:"enable_spatial"`
	RequireSpatial         bool   `koanf:"require_spatial"` // fail instead of falling back to WKT only
}

// Daily total policies.
const (
	DailyTotalSum             = "sum"
	DailyTotalRequireMinHours = "require_min_hours"
)

// IngestConfig holds batch loader settings.
type IngestConfig struct {
	BatchSize      int    `koanf:"batch_size"`
	MaxRows        int    `koanf:"max_rows"` // 0 = all rows
	StationsCSV    string `koanf:"stations_csv"`
	HourlyCSV      string `koanf:"hourly_csv"`
	Verify         bool   `koanf:"verify"`
	Resume         bool   `koanf:"resume"`
	CheckpointPath string `koanf:"checkpoint_path"` // empty = in-memory checkpoints

	// DailyTotalPolicy is "sum" (sum of coerced hours) or
	// "require_min_hours" (NULL when fewer than MinValidHours are populated).
	DailyTotalPolicy string `koanf:"daily_total_policy"`

	// AutoStart ingests StationsCSV then HourlyCSV when the server starts.
	AutoStart bool `koanf:"auto_start"`
}

// AggregationConfig holds the named constants of the aggregation engine.
// Peak windows are inclusive hour ranges.
type AggregationConfig struct {
	AMPeakStart        int `koanf:"am_peak_start"`
	AMPeakEnd          int `koanf:"am_peak_end"`
	PMPeakStart        int `koanf:"pm_peak_start"`
	PMPeakEnd          int `koanf:"pm_peak_end"`
	MinValidHours      int `koanf:"min_valid_hours"`
	AllVehiclesClass   int `koanf:"all_vehicles_class"`
	HeavyVehiclesClass int `koanf:"heavy_vehicles_class"`
}

// CacheConfig selects the analytics cache implementation.
type CacheConfig struct {
	Type     string        `koanf:"type"` // ttl or lfu
	TTL      time.Duration `koanf:"ttl"`
	Capacity int           `koanf:"capacity"` // lfu only
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port    int           `koanf:"port"`
	Host    string        `koanf:"host"`
	Timeout time.Duration `koanf:"timeout"`
}

// SecurityConfig holds CORS and rate limiting. There is no authentication.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	// Caller includes file:line in each event.
	Caller bool `koanf:"caller"`
}
