// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

// Package query builds parameterized WHERE clauses for the database
// package. Column names passed to the builder are always compile-time
// constants or members of models.Columns; values are always bound as
// placeholders.
package query
