// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

// Package aggregate turns hourly count rows into traffic metrics.
//
// Every function is pure and deterministic: no I/O, no clocks, no shared
// state. Callers (the analytics service) are responsible for selecting
// the right rows, for example only classification 1 rows for one station
// and year before calling AADT.
//
// Empty inputs and zero denominators produce neutral values (0.0, or NaN
// entries in hourly profiles) instead of errors.
package aggregate
