// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package models

import "time"

// Ingest kinds.
const (
	KindStations = "stations"
	KindHourly   = "hourly"
)

// IngestRun is the audit record of one loader run.
type IngestRun struct {
	RunID     string    `json:"run_id"`
	Kind      string    `json:"kind"`
	File      string    `json:"file"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	RowsRead  int64     `json:"rows_read"`
	Inserted  int64     `json:"inserted"`
	Skipped   int64     `json:"skipped"`

	// SkipReasons maps reason to count, e.g. {"geocode": 3}.
	SkipReasons map[string]int64 `json:"skip_reasons"`

	Batches int64  `json:"batches"`
	Status  string `json:"status"` // completed, stopped, failed
	Error   string `json:"error,omitempty"`
}

// Ingest run statuses.
const (
	RunCompleted = "completed"
	RunStopped   = "stopped"
	RunFailed    = "failed"
)

// TableCounts holds row counts used by the verification pass and health checks.
type TableCounts struct {
	Stations     int64 `json:"stations"`
	HourlyCounts int64 `json:"hourly_counts"`
}

// HealthStatus is the health endpoint payload.
type HealthStatus struct {
	Status            string      `json:"status"`
	Version           string      `json:"version"`
	DatabaseConnected bool        `json:"database_connected"`
	SpatialAvailable  bool        `json:"spatial_available"`
	Tables            TableCounts `json:"tables"`
	Uptime            float64     `json:"uptime_seconds"`
}
