// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package config

import (
	"fmt"
	"time"
)

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateIngest(); err != nil {
		return err
	}

	if err := c.validateAggregation(); err != nil {
		return err
	}

	if err := c.validateCache(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must be >= 0")
	}
	if c.Database.RequireSpatial && !c.Database.EnableSpatial {
		return fmt.Errorf("REQUIRE_SPATIAL=true conflicts with ENABLE_SPATIAL=false")
	}
	return nil
}

// Batch size bounds
const (
	minBatchSize = 1
	maxBatchSize = 100000
)

func (c *Config) validateIngest() error {
	if c.Ingest.BatchSize < minBatchSize || c.Ingest.BatchSize > maxBatchSize {
		return fmt.Errorf("INGEST_BATCH_SIZE must be between %d and %d", minBatchSize, maxBatchSize)
	}
	if c.Ingest.MaxRows < 0 {
		return fmt.Errorf("INGEST_MAX_ROWS must be >= 0 (0 = all rows)")
	}
	switch c.Ingest.DailyTotalPolicy {
	case DailyTotalSum, DailyTotalRequireMinHours:
	default:
		return fmt.Errorf("DAILY_TOTAL_POLICY must be one of: %s, %s", DailyTotalSum, DailyTotalRequireMinHours)
	}
	if c.Ingest.AutoStart && c.Ingest.StationsCSV == "" && c.Ingest.HourlyCSV == "" {
		return fmt.Errorf("INGEST_AUTO_START requires STATIONS_CSV or HOURLY_CSV")
	}
	return nil
}

func (c *Config) validateAggregation() error {
	a := c.Aggregation
	if err := validatePeakWindow("AM_PEAK", a.AMPeakStart, a.AMPeakEnd); err != nil {
		return err
	}
	if err := validatePeakWindow("PM_PEAK", a.PMPeakStart, a.PMPeakEnd); err != nil {
		return err
	}
	if a.MinValidHours < 0 || a.MinValidHours > 24 {
		return fmt.Errorf("MIN_VALID_HOURS must be between 0 and 24")
	}
	if a.AllVehiclesClass < 0 || a.AllVehiclesClass > 3 || a.HeavyVehiclesClass < 0 || a.HeavyVehiclesClass > 3 {
		return fmt.Errorf("ALL_VEHICLES_CLASS and HEAVY_VEHICLES_CLASS must be between 0 and 3")
	}
	return nil
}

func validatePeakWindow(name string, start, end int) error {
	if start < 0 || end > 23 || start > end {
		return fmt.Errorf("%s_START and %s_END must satisfy 0 <= start <= end <= 23", name, name)
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Type {
	case "ttl":
	case "lfu":
		if c.Cache.Capacity < 1 {
			return fmt.Errorf("CACHE_CAPACITY must be >= 1 for the lfu cache")
		}
	default:
		return fmt.Errorf("CACHE_TYPE must be one of: ttl, lfu")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

// Rate limit bounds
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
