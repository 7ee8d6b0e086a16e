// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

/*
Package api provides the read-only HTTP API for Trafficlens.

Routes are served by a chi router. Every response uses the APIResponse
envelope:

	{"success": true, "data": {...}, "meta": {"request_id": "...", "timestamp": "..."}}
	{"success": false, "error": {"code": "NOT_FOUND", "message": "..."}}

Endpoints:

	GET /api/v1/health                       database, spatial and table counts
	GET /api/v1/health/live                  process liveness
	GET /api/v1/health/ready                 503 until the database answers
	GET /api/v1/health/performance           per-route latency and cache stats
	GET /api/v1/stations                     filtered station list
	GET /api/v1/stations/{key}               one station
	GET /api/v1/stations/{key}/summary       AADT, AAWT and heavy-vehicle share
	GET /api/v1/stations/{key}/profile       24-hour average profile
	GET /api/v1/stations/{key}/peaks         AM and PM peak volumes
	GET /api/v1/stations/{key}/trend         daily series
	GET /api/v1/filters/suburbs?lga=a,b      suburbs within LGAs
	GET /api/v1/filters/{column}             distinct column values
	GET /api/v1/ingest/runs                  recent ingestion runs
	GET /api/v1/ingest/status                current or last in-process run
	GET /metrics                             Prometheus exposition

Error mapping:

  - unknown station or no data: 404 NOT_FOUND
  - bad parameters, unknown filter column, inverted window: 400
  - open circuit breaker: 503 SERVICE_UNAVAILABLE
  - anything else: 500 DATABASE_ERROR

There is no authentication. CORS origins and the per-IP rate limit come
from the security section of the configuration.
*/
package api
