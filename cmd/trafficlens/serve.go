// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/trafficlens/internal/aggregate"
	"github.com/tomtom215/trafficlens/internal/analytics"
	"github.com/tomtom215/trafficlens/internal/api"
	"github.com/tomtom215/trafficlens/internal/cache"
	"github.com/tomtom215/trafficlens/internal/config"
	"github.com/tomtom215/trafficlens/internal/ingest"
	"github.com/tomtom215/trafficlens/internal/logging"
	"github.com/tomtom215/trafficlens/internal/supervisor"
	"github.com/tomtom215/trafficlens/internal/supervisor/services"
)

func newHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.Timeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Timeout,
		IdleTimeout:       60 * time.Second,
	}
}

func runServe(ctx context.Context, args []string) error {
	if err := noArgs("serve", args); err != nil {
		return err
	}
	cfg, db, err := setup()
	if err != nil {
		return err
	}
	defer closeDB(db)

	logging.Info().Str("version", version).Msg("Starting trafficlens with supervisor tree")

	progress, closeProgress, err := openProgress(cfg.Ingest.CheckpointPath)
	if err != nil {
		return err
	}
	defer closeProgress()
	loader := ingest.NewLoader(&cfg.Ingest, cfg.Aggregation.MinValidHours, db, progress)

	c := cache.NewCacher(cfg.Cache)
	defer c.Close()
	svc := analytics.New(db, aggregate.New(aggregate.ThresholdsFromConfig(cfg.Aggregation)), c)

	handler := api.NewHandler(svc, db, loader, version)
	router := api.NewRouter(handler, api.NewChiMiddleware(api.NewChiMiddlewareConfig(cfg.Security)))
	server := newHTTPServer(cfg.Server, router.SetupChi())

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("failed to create supervisor tree: %w", err)
	}

	if cfg.Ingest.AutoStart {
		tree.AddDataService(services.NewIngestService(loader, cfg.Ingest.StationsCSV, cfg.Ingest.HourlyCSV, svc.Invalidate))
		logging.Info().
			Str("stations_csv", cfg.Ingest.StationsCSV).
			Str("hourly_csv", cfg.Ingest.HourlyCSV).
			Msg("Startup ingest added to supervisor tree")
	}
	tree.AddAPIService(services.NewAPIServerService(server, server.Addr, services.DefaultShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown requested, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, u := range unstopped {
			logging.Warn().Str("service", u.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
	return nil
}
