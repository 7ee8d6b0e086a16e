// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/trafficlens/internal/cache"
	"github.com/tomtom215/trafficlens/internal/logging"
	"github.com/tomtom215/trafficlens/internal/metrics"
	"github.com/tomtom215/trafficlens/internal/middleware"
	"github.com/tomtom215/trafficlens/internal/models"
)

// Health status values.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// Health reports database connectivity, spatial support and table counts.
// It always answers 200; a failed ping is reported as degraded.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	health := models.HealthStatus{
		Status:  StatusHealthy,
		Version: h.version,
		Uptime:  time.Since(h.startTime).Seconds(),
	}
	metrics.UpdateUptime(h.startTime)

	if err := h.store.Ping(ctx); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Health check ping failed")
		health.Status = StatusDegraded
	} else {
		health.DatabaseConnected = true
		health.SpatialAvailable = h.store.IsSpatialAvailable()

		counts, err := h.store.CountRows(ctx)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("Health check row count failed")
			health.Status = StatusDegraded
		} else {
			health.Tables = counts
			metrics.RecordTableRows(counts.Stations, counts.HourlyCounts)
		}
	}

	NewResponseWriter(w, r).Success(health)
}

// HealthLive answers 200 while the process is running.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady answers 503 until the database responds to a ping.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if err := h.store.Ping(r.Context()); err != nil {
		rw.ServiceUnavailable("Database not ready")
		return
	}
	rw.Success(map[string]interface{}{
		"ready":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// PerformanceReport is the payload of GET /health/performance.
type PerformanceReport struct {
	Routes []middleware.RouteStats `json:"routes"`
	Cache  cache.Stats             `json:"cache"`
}

// HealthPerformance reports per-route latency and result cache counters.
func (h *Handler) HealthPerformance(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(PerformanceReport{
		Routes: h.perfMon.Stats(),
		Cache:  h.svc.CacheStats(),
	})
}
