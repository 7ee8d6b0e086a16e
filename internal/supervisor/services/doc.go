// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

// Package services adapts long-running Trafficlens components to the
// suture.Service interface.
//
//   - APIServerService: the HTTP API with graceful shutdown (api layer)
//   - IngestService: optional startup load of the stations and hourly
//     files (data layer)
//
// Serve returns ctx.Err() on a normal shutdown so suture does not treat it
// as a failure. Any other error triggers a restart with backoff.
package services
