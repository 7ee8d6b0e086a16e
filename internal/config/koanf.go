// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
// The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/trafficlens/config.yaml",
	"/etc/trafficlens/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with every default filled in.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:                   "/data/trafficlens.duckdb",
			MaxMemory:              "2GB",
			Threads:                0,
			PreserveInsertionOrder: true,
			EnableSpatial:          true,
			RequireSpatial:         false,
		},
		Ingest: IngestConfig{
			BatchSize:        5000,
			MaxRows:          0,
			StationsCSV:      "",
			HourlyCSV:        "",
			Verify:           true,
			Resume:           true,
			CheckpointPath:   "",
			DailyTotalPolicy: DailyTotalSum,
			AutoStart:        false,
		},
		Aggregation: AggregationConfig{
			AMPeakStart:        6,
			AMPeakEnd:          9,
			PMPeakStart:        15,
			PMPeakEnd:          18,
			MinValidHours:      19,
			AllVehiclesClass:   1,
			HeavyVehiclesClass: 3,
		},
		Cache: CacheConfig{
			Type:     "ttl",
			TTL:      5 * time.Minute,
			Capacity: 1000,
		},
		Server: ServerConfig{
			Port:    8090,
			Host:    "0.0.0.0",
			Timeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration from defaults, an optional YAML file
// and environment variables (ENV > file > defaults), then validates it.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// DUCKDB_PATH -> database.path, INGEST_BATCH_SIZE -> ingest.batch_size
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are parsed as comma-separated lists when set from env.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated strings to slices for known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps lowercased environment variable names to koanf paths.
var envMappings = map[string]string{
	// Database
	"duckdb_path":           "database.path",
	"duckdb_max_memory":     "database.max_memory",
	"duckdb_threads":        "database.threads",
	"duckdb_preserve_order": "database.preserve_insertion_order",
	"enable_spatial":        "database.enable_spatial",
	"require_spatial":       "database.require_spatial",

	// Ingestion
	"ingest_batch_size":      "ingest.batch_size",
	"ingest_max_rows":        "ingest.max_rows",
	"stations_csv":           "ingest.stations_csv",
	"hourly_csv":             "ingest.hourly_csv",
	"ingest_verify":          "ingest.verify",
	"ingest_resume":          "ingest.resume",
	"ingest_checkpoint_path": "ingest.checkpoint_path",
	"daily_total_policy":     "ingest.daily_total_policy",
	"ingest_auto_start":      "ingest.auto_start",

	// Aggregation
	"am_peak_start":        "aggregation.am_peak_start",
	"am_peak_end":          "aggregation.am_peak_end",
	"pm_peak_start":        "aggregation.pm_peak_start",
	"pm_peak_end":          "aggregation.pm_peak_end",
	"min_valid_hours":      "aggregation.min_valid_hours",
	"all_vehicles_class":   "aggregation.all_vehicles_class",
	"heavy_vehicles_class": "aggregation.heavy_vehicles_class",

	// Cache
	"cache_type":     "cache.type",
	"cache_ttl":      "cache.ttl",
	"cache_capacity": "cache.capacity",

	// Server
	"http_port":    "server.port",
	"http_host":    "server.host",
	"http_timeout": "server.timeout",

	// Security
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to a koanf path.
// Unmapped variables return "" and are ignored, so unrelated environment
// variables never leak into the configuration.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
