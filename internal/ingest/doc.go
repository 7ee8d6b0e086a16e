// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

// Package ingest loads station and hourly count CSV files into the store.
//
// A Loader reads one file at a time, maps each record through Mapper,
// and commits every ingest.batch_size accepted rows in one transaction
// through its Writer. The final partial batch is always flushed. Rows
// are processed strictly in file order.
//
// # Skips
//
// Rejected rows are counted per reason and never abort a run:
//
//   - geocode: missing or non-numeric coordinates (stations)
//   - duplicate_station: station_key already stored or seen earlier
//   - invalid_row: field validation failed, or the CSV line is malformed
//   - unknown_station: hourly row for a station that is not loaded
//   - bad_date: hourly row with an unparseable date
//
// # Failures
//
// A failed batch is rolled back by the store, logged with its first and
// last file rows and returned. Batches committed before it remain.
//
// # Checkpoints
//
// After each commit the loader saves the last covered file row through a
// ProgressTracker (BadgerDB or in-memory). With ingest.resume a later
// run of the same file skips those rows. A run that completes clears its
// checkpoint.
//
// # daily_total
//
// The sum policy stores the sum of populated hours; empty hours are NULL
// and negative volumes clamp to 0. The require_min_hours policy stores a
// NULL daily_total when fewer than aggregation.min_valid_hours hours are
// populated.
package ingest
