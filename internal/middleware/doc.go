// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

/*
Package middleware provides HTTP middleware shared by the API router.

  - RequestID: X-Request-ID propagation into the logging context
  - Metrics: Prometheus request counters and latency, labelled by route pattern
  - Compression: gzip response bodies for clients that accept it
  - PerformanceMonitor: rolling per-route latency percentiles and slow request logging

All middleware uses the func(http.Handler) http.Handler shape so it can be
passed straight to chi's Use.

Labels use the chi route pattern ("/api/v1/stations/{key}") rather than the
raw path so station keys do not explode metric cardinality.
*/
package middleware
