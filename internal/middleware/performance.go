// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package middleware

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/tomtom215/trafficlens/internal/logging"
)

// DefaultSlowThreshold is the latency above which a request is logged.
const DefaultSlowThreshold = time.Second

// RequestSample is one observed request.
type RequestSample struct {
	Route      string
	Method     string
	Duration   time.Duration
	StatusCode int
	Timestamp  time.Time
}

// RouteStats summarises the samples of one route.
type RouteStats struct {
	Route        string  `json:"route"`
	RequestCount int     `json:"request_count"`
	AvgMS        float64 `json:"avg_ms"`
	P50MS        float64 `json:"p50_ms"`
	P95MS        float64 `json:"p95_ms"`
	P99MS        float64 `json:"p99_ms"`
	MaxMS        float64 `json:"max_ms"`
	Errors       int     `json:"errors"` // status >= 500
}

// PerformanceMonitor keeps a sliding window of recent requests.
type PerformanceMonitor struct {
	mu         sync.RWMutex
	samples    []RequestSample
	maxSamples int
	slow       time.Duration
}

// NewPerformanceMonitor keeps at most maxSamples requests and logs any
// slower than slow. A zero slow uses DefaultSlowThreshold.
func NewPerformanceMonitor(maxSamples int, slow time.Duration) *PerformanceMonitor {
	if maxSamples <= 0 {
		maxSamples = 1000
	}
	if slow <= 0 {
		slow = DefaultSlowThreshold
	}
	return &PerformanceMonitor{
		samples:    make([]RequestSample, 0, maxSamples),
		maxSamples: maxSamples,
		slow:       slow,
	}
}

// Record adds a sample, evicting the oldest when full.
func (pm *PerformanceMonitor) Record(s RequestSample) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.samples = append(pm.samples, s)
	if len(pm.samples) > pm.maxSamples {
		pm.samples = pm.samples[len(pm.samples)-pm.maxSamples:]
	}
}

// Stats returns per-route statistics ordered by request count, busiest first.
func (pm *PerformanceMonitor) Stats() []RouteStats {
	pm.mu.RLock()
	byRoute := make(map[string][]RequestSample)
	for _, s := range pm.samples {
		key := s.Method + " " + s.Route
		byRoute[key] = append(byRoute[key], s)
	}
	pm.mu.RUnlock()

	out := make([]RouteStats, 0, len(byRoute))
	for route, samples := range byRoute {
		ms := make([]float64, len(samples))
		errs := 0
		for i, s := range samples {
			ms[i] = float64(s.Duration.Microseconds()) / 1000
			if s.StatusCode >= http.StatusInternalServerError {
				errs++
			}
		}
		sort.Float64s(ms)

		out = append(out, RouteStats{
			Route:        route,
			RequestCount: len(ms),
			AvgMS:        stat.Mean(ms, nil),
			P50MS:        stat.Quantile(0.50, stat.Empirical, ms, nil),
			P95MS:        stat.Quantile(0.95, stat.Empirical, ms, nil),
			P99MS:        stat.Quantile(0.99, stat.Empirical, ms, nil),
			MaxMS:        ms[len(ms)-1],
			Errors:       errs,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].RequestCount != out[j].RequestCount {
			return out[i].RequestCount > out[j].RequestCount
		}
		return out[i].Route < out[j].Route
	})
	return out
}

// Middleware times each request and records it under its route pattern.
func (pm *PerformanceMonitor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		d := time.Since(start)
		route := RoutePattern(r)
		pm.Record(RequestSample{
			Route:      route,
			Method:     r.Method,
			Duration:   d,
			StatusCode: wrapper.statusCode,
			Timestamp:  start,
		})

		if d > pm.slow {
			logging.Ctx(r.Context()).Warn().
				Str("method", r.Method).
				Str("route", route).
				Dur("duration", d).
				Msg("Slow request detected")
		}
	})
}
