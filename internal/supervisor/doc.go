// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

/*
Package supervisor runs the long-lived parts of `trafficlens serve` under a
suture v4 supervisor tree.

	RootSupervisor ("trafficlens")
	├── DataSupervisor ("data-layer")
	│   └── IngestService (when ingest.auto_start is set)
	└── APISupervisor ("api-layer")
	    └── APIServerService

A failing startup ingestion is restarted inside the data layer without
touching the API server. Supervisor events (start, failure, backoff) are
logged through sutureslog into the zerolog logger.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddAPIService(services.NewAPIServerService(srv, srv.Addr, cfg.Server.Timeout))
	if cfg.Ingest.AutoStart {
	    tree.AddDataService(services.NewIngestService(loader, cfg.Ingest.StationsCSV, cfg.Ingest.HourlyCSV, svc.Invalidate))
	}
	return tree.Serve(ctx)
*/
package supervisor
