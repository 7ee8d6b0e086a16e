// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/trafficlens/internal/middleware"
)

// Router wires handlers and middleware into a chi router.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil mw uses DefaultChiMiddlewareConfig.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, chiMiddleware: mw}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Applied to all routes, in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // must be global to answer OPTIONS preflight
	r.Use(middleware.Metrics)
	r.Use(router.handler.perfMon.Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("No such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
	})

	// Health is not rate limited so probes keep working under load.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
		r.Get("/performance", router.handler.HealthPerformance)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(middleware.Compression)

		r.Route("/stations", func(r chi.Router) {
			r.Get("/", router.handler.Stations)
			r.Route("/{key}", func(r chi.Router) {
				r.Get("/", router.handler.Station)
				r.Get("/summary", router.handler.StationSummary)
				r.Get("/profile", router.handler.StationProfile)
				r.Get("/peaks", router.handler.StationPeaks)
				r.Get("/trend", router.handler.StationTrend)
			})
		})

		// Static segment first so "suburbs" is not read as a column.
		r.Get("/filters/suburbs", router.handler.FilterSuburbs)
		r.Get("/filters/{column}", router.handler.FilterOptions)

		r.Get("/ingest/runs", router.handler.IngestRuns)
		r.Get("/ingest/status", router.handler.IngestStatus)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
