// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package services

import (
	"context"
	"fmt"

	"github.com/tomtom215/trafficlens/internal/ingest"
	"github.com/tomtom215/trafficlens/internal/logging"
)

// Loader is the part of *ingest.Loader the service drives.
type Loader interface {
	LoadStations(ctx context.Context, path string) (*ingest.Stats, error)
	LoadHourly(ctx context.Context, path string) (*ingest.Stats, error)
	IsRunning() bool
	Stop() error
}

// IngestService loads the configured stations file and then the hourly
// file once, calls onComplete, and idles until shutdown. Stations go
// first because hourly rows are only accepted for known stations.
//
// A failed load returns an error so suture restarts the service; with
// checkpoints enabled the retry resumes after the last committed batch.
// An empty path skips that file.
type IngestService struct {
	loader      Loader
	stationsCSV string
	hourlyCSV   string
	onComplete  func()
	done        bool
}

// NewIngestService creates the startup ingestion service. onComplete may
// be nil.
func NewIngestService(loader Loader, stationsCSV, hourlyCSV string, onComplete func()) *IngestService {
	return &IngestService{
		loader:      loader,
		stationsCSV: stationsCSV,
		hourlyCSV:   hourlyCSV,
		onComplete:  onComplete,
	}
}

// Serve implements suture.Service.
func (s *IngestService) Serve(ctx context.Context) error {
	if !s.done {
		if err := s.run(ctx); err != nil {
			if ctx.Err() != nil {
				logging.Info().Msg("Startup ingestion interrupted by shutdown")
				return ctx.Err()
			}
			return err
		}
		s.done = true
	}

	<-ctx.Done()
	if s.loader.IsRunning() {
		if err := s.loader.Stop(); err != nil {
			logging.Warn().Err(err).Msg("Failed to stop loader")
		}
	}
	return ctx.Err()
}

func (s *IngestService) run(ctx context.Context) error {
	steps := []struct {
		kind string
		path string
		load func(context.Context, string) (*ingest.Stats, error)
	}{
		{"stations", s.stationsCSV, s.loader.LoadStations},
		{"hourly", s.hourlyCSV, s.loader.LoadHourly},
	}

	loaded := false
	for _, step := range steps {
		if step.path == "" {
			continue
		}
		logging.Info().Str("kind", step.kind).Str("file", step.path).Msg("Starting startup ingestion")
		st, err := step.load(ctx, step.path)
		if err != nil {
			return fmt.Errorf("startup %s ingestion: %w", step.kind, err)
		}
		sum := st.ToSummary(false)
		logging.Info().
			Str("kind", step.kind).
			Str("status", sum.Status).
			Str("inserted", sum.Inserted).
			Str("skipped", sum.Skipped).
			Str("elapsed", sum.Elapsed).
			Msg("Startup ingestion finished")
		loaded = true
	}

	if loaded && s.onComplete != nil {
		s.onComplete()
	}
	return nil
}

// String names the service in supervisor events.
func (s *IngestService) String() string {
	return "startup-ingest"
}
