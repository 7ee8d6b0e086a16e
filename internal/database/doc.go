// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

// Package database is the DuckDB store and query layer.
//
// # Schema
//
//   - stations: one row per counting station, keyed by station_key with a
//     unique station_id. location_wkt is always stored; location_geom
//     (GEOMETRY) exists only when the spatial extension is loaded.
//   - hourly_counts: one row per station, date, direction and
//     classification with hour_00..hour_23 and daily_total. count_id comes
//     from a sequence; the natural key has a unique index.
//   - ingest_runs: audit row per loader run.
//
// # Writes
//
// InsertStations and UpsertHourlyCounts each run in their own transaction
// through WithTx, so the loader controls commit boundaries by choosing
// batch sizes. Stations are insert-or-ignore; hourly rows upsert on the
// natural key.
//
// # Reads
//
// StationKeys, GetStation, ListStations, FilterStationKeys,
// DistinctValues, SuburbsForLGAs, HourlyCounts, DailyTotals,
// LatestCountDate and CountRows. WHERE clauses are assembled by the
// query subpackage with bound parameters only.
//
// # Maintenance
//
// BuildIndexes, DropIndexes, BackfillGeometry and Checkpoint back the
// maintenance subcommands of cmd/trafficlens.
//
// # Extensions
//
// The spatial extension is installed INSTALL, then LOAD, then FORCE
// INSTALL, each bounded by DUCKDB_EXTENSION_TIMEOUT. With
// database.enable_spatial=false it is never attempted; with
// database.require_spatial=true a failure aborts startup.
package database
