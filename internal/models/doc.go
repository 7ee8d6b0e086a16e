// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

/*
Package models defines the data structures shared by the store, the
ingestion pipeline, the aggregation engine and the HTTP API.

Key types:

  - Station: one counting site, created once by ingestion and never deleted
  - HourlyCount: one day of 24 hourly volumes for a station, direction and
    vehicle classification
  - StationFilter / HourlyQuery: query-layer filters
  - Column: the closed set of station columns that support distinct-value lookups
  - IngestRun / TableCounts: ingestion audit and verification records

Hour volumes are nullable: a nil entry means the hour was not measured,
which is different from a measured zero.
*/
package models
