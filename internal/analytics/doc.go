// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

// Package analytics combines the query layer, the aggregation engine and
// a result cache into the operations served by the HTTP API.
//
// Every store call passes through a gobreaker circuit breaker. Not-found
// and bad-column errors are treated as successful calls so that client
// mistakes cannot open the circuit. Results are memoised under
// cache.GenerateKey(method, params) until Invalidate is called, which
// the server does after each ingestion run.
//
// Profile, Peaks and Trend default to the 90 days ending at the
// station's latest count date and to the all-vehicles classification.
package analytics
