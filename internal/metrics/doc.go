// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

/*
Package metrics exposes Prometheus collectors for ingest, storage, cache
and HTTP activity.

Collectors are registered on the default registry through promauto and
served by the API at /metrics:

	curl http://localhost:8090/metrics

# Ingest

  - trafficlens_ingest_rows_read_total{kind}
  - trafficlens_ingest_rows_inserted_total{kind}
  - trafficlens_ingest_rows_skipped_total{kind,reason}
  - trafficlens_ingest_batch_commits_total{kind}
  - trafficlens_ingest_batch_failures_total{kind}
  - trafficlens_ingest_batch_duration_seconds{kind}

kind is "stations" or "hourly". reason is one of geocode,
duplicate_station, invalid_row, unknown_station or bad_date.

# Storage and Cache

  - trafficlens_db_query_duration_seconds{operation,table}
  - trafficlens_db_query_errors_total{operation,table,error_type}
  - trafficlens_db_table_rows{table}
  - trafficlens_cache_hits_total{query}, trafficlens_cache_misses_total{query}

# HTTP

  - trafficlens_http_requests_total{method,endpoint,status}
  - trafficlens_http_request_duration_seconds{method,endpoint}
  - trafficlens_http_requests_in_flight
  - trafficlens_circuit_breaker_state{name}
*/
package metrics
