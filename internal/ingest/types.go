// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package ingest

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/tomtom215/trafficlens/internal/models"
)

// Skip reasons reported in Stats.SkipReasons and the ingest_rows_skipped_total metric.
const (
	ReasonGeocode          = "geocode"
	ReasonDuplicateStation = "duplicate_station"
	ReasonInvalidRow       = "invalid_row"
	ReasonUnknownStation   = "unknown_station"
	ReasonBadDate          = "bad_date"

	// ReasonDuplicateStationID counts rows with a new station_key whose
	// station_id is already stored. The store drops them on insert.
	ReasonDuplicateStationID = "duplicate_station_id"
)

// Stats holds statistics about one loader run.
type Stats struct {
	RunID string `json:"run_id"`
	Kind  string `json:"kind"`
	File  string `json:"file"`

	// RowsRead counts data rows read in this run, excluding rows skipped
	// by resuming from a checkpoint.
	RowsRead int64 `json:"rows_read"`

	// Inserted is the number of rows the store reported as written.
	Inserted int64 `json:"inserted"`

	Skipped     int64            `json:"skipped"`
	SkipReasons map[string]int64 `json:"skip_reasons"`

	// Collapsed counts hourly rows replaced by a later row with the same
	// natural key inside one batch.
	Collapsed int64 `json:"collapsed"`

	Batches int64 `json:"batches"`

	// ResumedFrom is the checkpoint offset the run started after.
	ResumedFrom int64 `json:"resumed_from"`

	// Offset is the last file row covered by a committed batch.
	Offset int64 `json:"offset"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
}

func newStats(runID, kind, file string) *Stats {
	return &Stats{
		RunID:       runID,
		Kind:        kind,
		File:        file,
		SkipReasons: make(map[string]int64),
		StartTime:   time.Now(),
	}
}

func (s *Stats) skip(reason string) {
	s.Skipped++
	s.SkipReasons[reason]++
}

func (s *Stats) clone() *Stats {
	c := *s
	c.SkipReasons = make(map[string]int64, len(s.SkipReasons))
	for k, v := range s.SkipReasons {
		c.SkipReasons[k] = v
	}
	return &c
}

// Duration returns the elapsed time of the run.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// RowsPerSecond returns the read rate.
func (s *Stats) RowsPerSecond() float64 {
	d := s.Duration().Seconds()
	if d == 0 {
		return 0
	}
	return float64(s.RowsRead) / d
}

// Run converts the stats into the audit row stored in ingest_runs.
func (s *Stats) Run() *models.IngestRun {
	return &models.IngestRun{
		RunID:       s.RunID,
		Kind:        s.Kind,
		File:        s.File,
		StartedAt:   s.StartTime,
		EndedAt:     s.EndTime,
		RowsRead:    s.RowsRead,
		Inserted:    s.Inserted,
		Skipped:     s.Skipped,
		SkipReasons: s.SkipReasons,
		Batches:     s.Batches,
		Status:      s.Status,
		Error:       s.Error,
	}
}

// Summary is a human-readable view of Stats.
type Summary struct {
	Status      string            `json:"status"`
	RunID       string            `json:"run_id"`
	Kind        string            `json:"kind"`
	File        string            `json:"file"`
	RowsRead    string            `json:"rows_read"`
	Inserted    string            `json:"inserted"`
	Skipped     string            `json:"skipped"`
	SkipReasons map[string]string `json:"skip_reasons"`
	Batches     int64             `json:"batches"`
	Rate        string            `json:"rate"`
	Elapsed     string            `json:"elapsed"`
	Started     string            `json:"started"`
}

// ToSummary formats the stats for logs and the API.
func (s *Stats) ToSummary(running bool) *Summary {
	sum := &Summary{
		Status:      s.Status,
		RunID:       s.RunID,
		Kind:        s.Kind,
		File:        s.File,
		RowsRead:    humanize.Comma(s.RowsRead),
		Inserted:    humanize.Comma(s.Inserted),
		Skipped:     humanize.Comma(s.Skipped),
		SkipReasons: make(map[string]string, len(s.SkipReasons)),
		Batches:     s.Batches,
		Rate:        humanize.CommafWithDigits(s.RowsPerSecond(), 1) + " rows/s",
		Elapsed:     s.Duration().Round(time.Millisecond).String(),
		Started:     humanize.Time(s.StartTime),
	}
	for k, v := range s.SkipReasons {
		sum.SkipReasons[k] = humanize.Comma(v)
	}

	switch {
	case running:
		sum.Status = "running"
	case sum.Status == "":
		sum.Status = "pending"
	}
	return sum
}
