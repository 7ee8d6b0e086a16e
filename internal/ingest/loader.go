// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/tomtom215/trafficlens/internal/config"
	"github.com/tomtom215/trafficlens/internal/logging"
	"github.com/tomtom215/trafficlens/internal/metrics"
	"github.com/tomtom215/trafficlens/internal/models"
)

// DefaultBatchSize is used when ingest.batch_size is not positive.
const DefaultBatchSize = 5000

var (
	// ErrAlreadyRunning is returned when a load starts while another is in progress.
	ErrAlreadyRunning = errors.New("ingest already in progress")

	// ErrNotRunning is returned by Stop when nothing is loading.
	ErrNotRunning = errors.New("no ingest in progress")

	// ErrStopped is returned by a load interrupted through Stop.
	ErrStopped = errors.New("ingest stopped")
)

// Writer is the store surface the loader needs. Each write call must
// commit in its own transaction.
type Writer interface {
	StationKeys(ctx context.Context) (map[int64]struct{}, error)
	InsertStations(ctx context.Context, stations []models.Station) (int64, error)
	UpsertHourlyCounts(ctx context.Context, rows []models.HourlyCount) (int64, error)
	CountRows(ctx context.Context) (models.TableCounts, error)
	RecordIngestRun(ctx context.Context, run *models.IngestRun) error
}

// Loader streams CSV files into the store in fixed-size batches.
type Loader struct {
	cfg      *config.IngestConfig
	writer   Writer
	progress ProgressTracker
	mapper   *Mapper
	logEvery rate.Sometimes

	mu       sync.RWMutex
	running  bool
	stats    *Stats
	stopChan chan struct{}
}

// NewLoader creates a loader. A nil progress tracker keeps checkpoints in memory.
func NewLoader(cfg *config.IngestConfig, minValidHours int, writer Writer, progress ProgressTracker) *Loader {
	if progress == nil {
		progress = NewInMemoryProgress()
	}
	return &Loader{
		cfg:      cfg,
		writer:   writer,
		progress: progress,
		mapper:   NewMapper(cfg.DailyTotalPolicy, minValidHours),
		logEvery: rate.Sometimes{First: 1, Interval: 5 * time.Second},
		stopChan: make(chan struct{}),
	}
}

func (l *Loader) batchSize() int {
	if l.cfg.BatchSize > 0 {
		return l.cfg.BatchSize
	}
	return DefaultBatchSize
}

// LoadStations loads a station file. Existing station keys are skipped.
func (l *Loader) LoadStations(ctx context.Context, path string) (*Stats, error) {
	return l.run(ctx, models.KindStations, path)
}

// LoadHourly loads an hourly count file. Stations must already be loaded.
func (l *Loader) LoadHourly(ctx context.Context, path string) (*Stats, error) {
	return l.run(ctx, models.KindHourly, path)
}

// batch accumulates rows between commits for either kind.
type batch struct {
	stations []models.Station
	hourly   []models.HourlyCount
	index    map[models.NaturalKey]int

	// first and last are the file rows covered by the batch.
	first, last int64
}

func (b *batch) size() int {
	return len(b.stations) + len(b.hourly)
}

func (b *batch) reset() {
	b.stations = b.stations[:0]
	b.hourly = b.hourly[:0]
	clear(b.index)
	b.first = 0
}

// addHourly stages h, replacing an earlier row with the same natural key.
// Returns true when a row was replaced.
func (b *batch) addHourly(h models.HourlyCount) bool {
	k := h.Key()
	if i, ok := b.index[k]; ok {
		b.hourly[i] = h
		return true
	}
	b.index[k] = len(b.hourly)
	b.hourly = append(b.hourly, h)
	return false
}

func (l *Loader) run(ctx context.Context, kind, path string) (*Stats, error) {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	runID := uuid.NewString()
	l.running = true
	l.stats = newStats(runID, kind, path)
	stopChan := l.stopChan
	l.mu.Unlock()

	ctx = logging.ContextWithRunID(ctx, runID)
	log := logging.Ctx(ctx)

	err := l.load(ctx, kind, path, stopChan)

	l.mu.Lock()
	l.running = false
	l.stats.EndTime = time.Now()
	switch {
	case err == nil:
		l.stats.Status = models.RunCompleted
	case errors.Is(err, ErrStopped), errors.Is(err, context.Canceled):
		l.stats.Status = models.RunStopped
		l.stats.Error = err.Error()
	default:
		l.stats.Status = models.RunFailed
		l.stats.Error = err.Error()
	}
	final := l.stats.clone()
	l.mu.Unlock()

	// The run row is written even when ctx is done.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if rerr := l.writer.RecordIngestRun(recordCtx, final.Run()); rerr != nil {
		log.Warn().Err(rerr).Msg("Failed to record ingest run")
	}

	sum := final.ToSummary(false)
	event := log.Info()
	if err != nil {
		event = log.Error().Err(err)
	}
	event.
		Str("kind", kind).
		Str("file", path).
		Str("status", final.Status).
		Str("rows_read", sum.RowsRead).
		Str("inserted", sum.Inserted).
		Str("skipped", sum.Skipped).
		Interface("skip_reasons", final.SkipReasons).
		Int64("collapsed", final.Collapsed).
		Int64("batches", final.Batches).
		Str("elapsed", sum.Elapsed).
		Msg("Ingest finished")

	if err == nil {
		metrics.RecordIngestSuccess(kind)
		if l.cfg.Verify {
			l.verify(ctx, final)
		}
	}
	return final, err
}

func (l *Loader) load(ctx context.Context, kind, path string, stopChan chan struct{}) error {
	log := logging.Ctx(ctx)

	reader, err := OpenCSV(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := reader.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("Error closing CSV reader")
		}
	}()

	var resumeFrom int64
	if l.cfg.Resume {
		cp, err := l.progress.Load(ctx, kind, path)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to load checkpoint, starting from the top")
		} else if cp != nil && cp.Offset > 0 {
			resumeFrom = cp.Offset
		}
	}
	if resumeFrom > 0 {
		if err := reader.Skip(resumeFrom); err != nil {
			if errors.Is(err, io.EOF) {
				log.Info().Int64("offset", resumeFrom).Msg("Checkpoint covers the whole file")
				return l.progress.Clear(ctx, kind, path)
			}
			return fmt.Errorf("skip to checkpoint: %w", err)
		}
		log.Info().Int64("offset", resumeFrom).Msg("Resuming from checkpoint")
	}

	l.mu.Lock()
	l.stats.ResumedFrom = resumeFrom
	l.stats.Offset = resumeFrom
	l.mu.Unlock()

	var known map[int64]struct{}
	known, err = l.writer.StationKeys(ctx)
	if err != nil {
		return fmt.Errorf("load station keys: %w", err)
	}

	log.Info().
		Str("kind", kind).
		Str("file", path).
		Str("size", humanize.Bytes(uint64(reader.Size()))).
		Int("known_stations", len(known)).
		Int("batch_size", l.batchSize()).
		Msg("Starting ingest")

	b := &batch{index: make(map[models.NaturalKey]int)}
	size := l.batchSize()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopChan:
			return ErrStopped
		default:
		}

		if l.cfg.MaxRows > 0 && reader.Line() >= int64(l.cfg.MaxRows) {
			break
		}

		record, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		line := reader.Line()
		if b.first == 0 {
			b.first = line
		}
		b.last = line

		l.mu.Lock()
		l.stats.RowsRead++
		l.mu.Unlock()
		metrics.RecordRowsRead(kind, 1)

		if err != nil {
			var merr *MalformedRowError
			if !errors.As(err, &merr) {
				return fmt.Errorf("read %s: %w", path, err)
			}
			log.Warn().Err(err).Msg("Skipping malformed row")
			l.skip(kind, ReasonInvalidRow)
		} else {
			l.stage(kind, record, known, b)
		}

		if b.size() >= size {
			if err := l.flush(ctx, kind, path, b); err != nil {
				return err
			}
		}
	}

	if b.size() > 0 {
		if err := l.flush(ctx, kind, path, b); err != nil {
			return err
		}
	}

	// Completed runs leave no checkpoint so the next run reads the whole file.
	if err := l.progress.Clear(ctx, kind, path); err != nil {
		log.Warn().Err(err).Msg("Failed to clear checkpoint")
	}
	return nil
}

// stage maps one record into the pending batch or counts its skip.
func (l *Loader) stage(kind string, record map[string]string, known map[int64]struct{}, b *batch) {
	switch kind {
	case models.KindStations:
		s, reason := l.mapper.MapStation(record)
		if reason == "" {
			if _, dup := known[s.StationKey]; dup {
				reason = ReasonDuplicateStation
			}
		}
		if reason != "" {
			l.skip(kind, reason)
			return
		}
		known[s.StationKey] = struct{}{}
		b.stations = append(b.stations, s)

	case models.KindHourly:
		h, reason := l.mapper.MapHourly(record, known)
		if reason != "" {
			l.skip(kind, reason)
			return
		}
		if b.addHourly(h) {
			l.mu.Lock()
			l.stats.Collapsed++
			l.mu.Unlock()
		}
	}
}

func (l *Loader) skip(kind, reason string) {
	l.mu.Lock()
	l.stats.skip(reason)
	l.mu.Unlock()
	metrics.RecordSkip(kind, reason)
}

// flush commits the pending batch and saves the checkpoint. A failed
// batch is rolled back by the store; earlier batches stay committed.
func (l *Loader) flush(ctx context.Context, kind, path string, b *batch) error {
	log := logging.Ctx(ctx)
	rows := b.size()
	start := time.Now()

	var (
		written int64
		err     error
	)
	if kind == models.KindStations {
		written, err = l.writer.InsertStations(ctx, b.stations)
	} else {
		written, err = l.writer.UpsertHourlyCounts(ctx, b.hourly)
	}
	metrics.RecordBatch(kind, int(written), time.Since(start), err)

	if err != nil {
		log.Error().
			Err(err).
			Str("kind", kind).
			Int64("first_row", b.first).
			Int64("last_row", b.last).
			Int("rows", rows).
			Msg("Batch commit failed, batch rolled back")
		return fmt.Errorf("batch rows %d-%d: %w", b.first, b.last, err)
	}

	// Stations already passed the key check in stage, so any row the store
	// did not insert conflicted on station_id.
	if kind == models.KindStations && written < int64(rows) {
		dropped := int64(rows) - written
		log.Warn().
			Int64("rows", dropped).
			Int64("first_row", b.first).
			Int64("last_row", b.last).
			Msg("Skipping stations whose station_id already exists")
		l.mu.Lock()
		l.stats.Skipped += dropped
		l.stats.SkipReasons[ReasonDuplicateStationID] += dropped
		l.mu.Unlock()
		metrics.RecordSkips(kind, ReasonDuplicateStationID, int(dropped))
	}

	l.mu.Lock()
	l.stats.Inserted += written
	l.stats.Batches++
	l.stats.Offset = b.last
	snapshot := l.stats.clone()
	l.mu.Unlock()

	cp := Checkpoint{Kind: kind, File: path, Offset: b.last, RunID: snapshot.RunID, UpdatedAt: time.Now()}
	if err := l.progress.Save(ctx, cp); err != nil {
		log.Warn().Err(err).Msg("Failed to save checkpoint")
	}

	l.logEvery.Do(func() {
		log.Info().
			Str("kind", kind).
			Str("rows_read", humanize.Comma(snapshot.RowsRead)).
			Str("inserted", humanize.Comma(snapshot.Inserted)).
			Str("skipped", humanize.Comma(snapshot.Skipped)).
			Int64("batches", snapshot.Batches).
			Float64("rows_per_second", snapshot.RowsPerSecond()).
			Msg("Ingest progress")
	})

	b.reset()
	return nil
}

// verify logs the final table counts next to what the file produced.
func (l *Loader) verify(ctx context.Context, s *Stats) {
	log := logging.Ctx(ctx)
	counts, err := l.writer.CountRows(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Verification query failed")
		return
	}
	log.Info().
		Str("kind", s.Kind).
		Int64("csv_rows_read", s.RowsRead).
		Int64("csv_rows_accepted", s.RowsRead-s.Skipped).
		Int64("db_stations", counts.Stations).
		Int64("db_hourly_counts", counts.HourlyCounts).
		Msg("Verification")
}

// Verify returns the current table counts.
func (l *Loader) Verify(ctx context.Context) (models.TableCounts, error) {
	return l.writer.CountRows(ctx)
}

// Stop interrupts a running load after the current row. Committed
// batches and the checkpoint are kept.
func (l *Loader) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running {
		return ErrNotRunning
	}

	close(l.stopChan)
	l.stopChan = make(chan struct{})
	return nil
}

// GetStats returns a copy of the current or last run's statistics.
func (l *Loader) GetStats() *Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.stats == nil {
		return &Stats{SkipReasons: map[string]int64{}}
	}
	return l.stats.clone()
}

// IsRunning reports whether a load is in progress.
func (l *Loader) IsRunning() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.running
}
