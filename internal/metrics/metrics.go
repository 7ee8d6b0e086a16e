// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package metrics

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingest Metrics
	IngestRowsRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trafficlens_ingest_rows_read_total",
			Help: "CSV rows read by the loader",
		},
		[]string{"kind"}, // stations, hourly
	)

	IngestRowsInserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trafficlens_ingest_rows_inserted_total",
			Help: "Rows written to the store",
		},
		[]string{"kind"},
	)

	IngestRowsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trafficlens_ingest_rows_skipped_total",
			Help: "Rows rejected by the loader",
		},
		[]string{"kind", "reason"}, // geocode, duplicate_station, invalid_row, unknown_station, bad_date
	)

	IngestBatchCommits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trafficlens_ingest_batch_commits_total",
			Help: "Batches committed in their own transaction",
		},
		[]string{"kind"},
	)

	IngestBatchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trafficlens_ingest_batch_failures_total",
			Help: "Batches rolled back",
		},
		[]string{"kind"},
	)

	IngestBatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trafficlens_ingest_batch_duration_seconds",
			Help:    "Time to write one batch",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"kind"},
	)

	IngestLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trafficlens_ingest_last_success_timestamp",
			Help: "Unix time of the last completed ingest run",
		},
		[]string{"kind"},
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trafficlens_db_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trafficlens_db_query_errors_total",
			Help: "DuckDB query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	DBTableRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trafficlens_db_table_rows",
			Help: "Row count per table at the last verification",
		},
		[]string{"table"},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trafficlens_cache_hits_total",
			Help: "Analytics cache hits",
		},
		[]string{"query"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trafficlens_cache_misses_total",
			Help: "Analytics cache misses",
		},
		[]string{"query"},
	)

	CacheInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trafficlens_cache_invalidations_total",
			Help: "Full cache clears after ingest",
		},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trafficlens_http_requests_total",
			Help: "HTTP requests handled",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trafficlens_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trafficlens_http_requests_in_flight",
			Help: "Requests currently being served",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trafficlens_http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"endpoint"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trafficlens_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trafficlens_circuit_breaker_state_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trafficlens_app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trafficlens_app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordDBQuery records the duration of one query and classifies its error.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table, errorType(err)).Inc()
	}
}

// errorType keeps label cardinality bounded.
func errorType(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.Canceled), strings.Contains(msg, "context canceled"):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded), strings.Contains(msg, "deadline exceeded"):
		return "timeout"
	case strings.Contains(msg, "constraint"):
		return "constraint"
	case strings.Contains(msg, "catalog error"), strings.Contains(msg, "does not exist"):
		return "catalog"
	case strings.Contains(msg, "conversion"), strings.Contains(msg, "could not convert"):
		return "conversion"
	default:
		return "other"
	}
}

// RecordBatch records one committed or rolled back batch.
func RecordBatch(kind string, rows int, duration time.Duration, err error) {
	IngestBatchDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if err != nil {
		IngestBatchFailures.WithLabelValues(kind).Inc()
		return
	}
	IngestBatchCommits.WithLabelValues(kind).Inc()
	IngestRowsInserted.WithLabelValues(kind).Add(float64(rows))
}

// RecordRowsRead adds n rows read from the input file.
func RecordRowsRead(kind string, n int) {
	IngestRowsRead.WithLabelValues(kind).Add(float64(n))
}

// RecordSkip counts one rejected row.
func RecordSkip(kind, reason string) {
	IngestRowsSkipped.WithLabelValues(kind, reason).Inc()
}

// RecordSkips counts n rows rejected for the same reason.
func RecordSkips(kind, reason string, n int) {
	IngestRowsSkipped.WithLabelValues(kind, reason).Add(float64(n))
}

// RecordIngestSuccess stamps the completion time of a run.
func RecordIngestSuccess(kind string) {
	IngestLastSuccess.WithLabelValues(kind).Set(float64(time.Now().Unix()))
}

// RecordTableRows publishes the row counts seen by verification.
func RecordTableRows(stations, hourly int64) {
	DBTableRows.WithLabelValues("stations").Set(float64(stations))
	DBTableRows.WithLabelValues("hourly_counts").Set(float64(hourly))
}

// RecordCacheLookup counts a hit or miss for a query name.
func RecordCacheLookup(query string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(query).Inc()
		return
	}
	CacheMisses.WithLabelValues(query).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordBreakerTransition records a state change. States use gobreaker's
// String() names: closed, half-open, open.
func RecordBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
}

func breakerStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}

// SetAppInfo publishes the build version.
func SetAppInfo(version string) {
	AppInfo.WithLabelValues(version, runtime.Version()).Set(1)
}

// UpdateUptime sets the uptime gauge from a start time.
func UpdateUptime(start time.Time) {
	AppUptime.Set(time.Since(start).Seconds())
}
