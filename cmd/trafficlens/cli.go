// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/tomtom215/trafficlens/internal/config"
	"github.com/tomtom215/trafficlens/internal/database"
	"github.com/tomtom215/trafficlens/internal/ingest"
	"github.com/tomtom215/trafficlens/internal/logging"
	"github.com/tomtom215/trafficlens/internal/metrics"
	"github.com/tomtom215/trafficlens/internal/models"
)

const usageText = `usage: trafficlens <command> [options]

commands:
  ingest-stations <file>   load a stations CSV
  ingest-hourly <file>     load an hourly counts CSV
  verify                   print table row counts
  build-indexes            create secondary indexes
  drop-indexes             drop secondary indexes
  backfill-geometry        fill missing station locations
  serve                    run the HTTP API`

var errUsage = errors.New(usageText)

// loadConfig is swapped in tests.
var loadConfig = config.LoadWithKoanf

// Run executes the command named by args[0]. Summaries are written to out.
func Run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "ingest-stations":
		return runIngest(ctx, models.KindStations, args[1:], out)
	case "ingest-hourly":
		return runIngest(ctx, models.KindHourly, args[1:], out)
	case "verify":
		return runVerify(ctx, args[1:], out)
	case "build-indexes":
		return runIndexes(ctx, args[1:], true)
	case "drop-indexes":
		return runIndexes(ctx, args[1:], false)
	case "backfill-geometry":
		return runBackfill(ctx, args[1:], out)
	case "serve":
		return runServe(ctx, args[1:])
	case "help", "-h", "--help":
		_, _ = fmt.Fprintln(out, usageText)
		return nil
	default:
		return fmt.Errorf("%w\n\nunknown command: %s", errUsage, args[0])
	}
}

// ingestFlags are the per-run overrides of config.IngestConfig.
type ingestFlags struct {
	batchSize int
	maxRows   int
	resume    bool
	verify    bool
	file      string
}

func parseIngestFlags(name string, args []string, base config.IngestConfig) (ingestFlags, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	f := ingestFlags{}
	fs.IntVar(&f.batchSize, "batch-size", base.BatchSize, "rows per committed batch")
	fs.IntVar(&f.maxRows, "max-rows", base.MaxRows, "stop after this many data rows (0 = all)")
	fs.BoolVar(&f.resume, "resume", base.Resume, "continue from the last checkpoint")
	fs.BoolVar(&f.verify, "verify", base.Verify, "count table rows after loading")

	if err := fs.Parse(args); err != nil {
		return f, fmt.Errorf("%w\n\n%s: %v", errUsage, name, err)
	}
	if fs.NArg() != 1 {
		return f, fmt.Errorf("%w\n\n%s: exactly one input file is required", errUsage, name)
	}
	if f.batchSize <= 0 {
		return f, fmt.Errorf("%s: -batch-size must be positive", name)
	}
	if f.maxRows < 0 {
		return f, fmt.Errorf("%s: -max-rows must not be negative", name)
	}
	f.file = fs.Arg(0)
	return f, nil
}

func (f ingestFlags) apply(cfg *config.IngestConfig) {
	cfg.BatchSize = f.batchSize
	cfg.MaxRows = f.maxRows
	cfg.Resume = f.resume
	cfg.Verify = f.verify
}

func noArgs(name string, args []string) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w\n\n%s: %v", errUsage, name, err)
	}
	if fs.NArg() != 0 {
		return fmt.Errorf("%w\n\n%s takes no arguments", errUsage, name)
	}
	return nil
}

// setup loads configuration, initialises logging and opens the store.
func setup() (*config.Config, *database.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func openStore(cfg *config.Config) (*database.DB, error) {
	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	metrics.SetAppInfo(version)

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logging.Info().
		Str("path", cfg.Database.Path).
		Bool("spatial", db.IsSpatialAvailable()).
		Msg("Database opened")
	return db, nil
}

func closeDB(db *database.DB) {
	if err := db.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing database")
	}
}

// openProgress returns the checkpoint store and its closer.
func openProgress(path string) (ingest.ProgressTracker, func(), error) {
	if path == "" {
		return ingest.NewInMemoryProgress(), func() {}, nil
	}
	p, err := ingest.OpenBadgerProgress(path)
	if err != nil {
		return nil, nil, err
	}
	return p, func() {
		if err := p.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing checkpoint store")
		}
	}, nil
}

func runIngest(ctx context.Context, kind string, args []string, out io.Writer) error {
	name := "ingest-" + kind
	// Flag defaults come from the file and environment, so parse after load.
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	f, err := parseIngestFlags(name, args, cfg.Ingest)
	if err != nil {
		return err
	}
	f.apply(&cfg.Ingest)

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeDB(db)

	progress, closeProgress, err := openProgress(cfg.Ingest.CheckpointPath)
	if err != nil {
		return err
	}
	defer closeProgress()

	loader := ingest.NewLoader(&cfg.Ingest, cfg.Aggregation.MinValidHours, db, progress)

	var stats *ingest.Stats
	if kind == models.KindStations {
		stats, err = loader.LoadStations(ctx, f.file)
	} else {
		stats, err = loader.LoadHourly(ctx, f.file)
	}
	if stats != nil {
		if werr := writeJSON(out, stats.ToSummary(false)); werr != nil && err == nil {
			err = werr
		}
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, ingest.ErrStopped) {
			logging.Warn().Str("file", f.file).Msg("Ingest interrupted; rerun with -resume to continue")
		}
		return fmt.Errorf("%s %s: %w", name, f.file, err)
	}
	return nil
}

func runVerify(ctx context.Context, args []string, out io.Writer) error {
	if err := noArgs("verify", args); err != nil {
		return err
	}
	_, db, err := setup()
	if err != nil {
		return err
	}
	defer closeDB(db)

	counts, err := db.CountRows(ctx)
	if err != nil {
		return err
	}
	metrics.RecordTableRows(counts.Stations, counts.HourlyCounts)

	indexes, err := db.IndexNames(ctx)
	if err != nil {
		return err
	}
	return writeJSON(out, struct {
		models.TableCounts
		Indexes []string `json:"indexes"`
		Spatial bool     `json:"spatial"`
	}{counts, indexes, db.IsSpatialAvailable()})
}

func runIndexes(ctx context.Context, args []string, build bool) error {
	name := "drop-indexes"
	if build {
		name = "build-indexes"
	}
	if err := noArgs(name, args); err != nil {
		return err
	}
	_, db, err := setup()
	if err != nil {
		return err
	}
	defer closeDB(db)

	if build {
		err = db.BuildIndexes(ctx)
	} else {
		err = db.DropIndexes(ctx)
	}
	if err != nil {
		return err
	}
	logging.Info().Str("command", name).Msg("Indexes updated")
	return nil
}

func runBackfill(ctx context.Context, args []string, out io.Writer) error {
	if err := noArgs("backfill-geometry", args); err != nil {
		return err
	}
	_, db, err := setup()
	if err != nil {
		return err
	}
	defer closeDB(db)

	wkt, geom, err := db.BackfillGeometry(ctx)
	if err != nil {
		return err
	}
	return writeJSON(out, map[string]int64{"wkt_rows": wkt, "geom_rows": geom})
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
