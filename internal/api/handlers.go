// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/trafficlens/internal/analytics"
	"github.com/tomtom215/trafficlens/internal/database"
	"github.com/tomtom215/trafficlens/internal/ingest"
	"github.com/tomtom215/trafficlens/internal/middleware"
	"github.com/tomtom215/trafficlens/internal/models"
	"github.com/tomtom215/trafficlens/internal/validation"
)

// Store is the part of the database the handlers use directly.
// *database.DB satisfies it.
type Store interface {
	Ping(ctx context.Context) error
	IsSpatialAvailable() bool
	CountRows(ctx context.Context) (models.TableCounts, error)
	RecentIngestRuns(ctx context.Context, limit int) ([]models.IngestRun, error)
}

// IngestStatus reports the in-process loader. *ingest.Loader satisfies it.
type IngestStatus interface {
	GetStats() *ingest.Stats
	IsRunning() bool
}

// Handler contains dependencies for API handlers.
//
//   - handlers.go: Handler struct, constructor, error mapping (this file)
//   - handlers_health.go: health, readiness and performance
//   - handlers_stations.go: stations, filters and station analytics
//   - handlers_ingest.go: ingestion run history and status
type Handler struct {
	svc       *analytics.Service
	store     Store
	ingest    IngestStatus
	perfMon   *middleware.PerformanceMonitor
	version   string
	startTime time.Time
}

// NewHandler creates the API handler. ingestStatus may be nil when the
// server does not run an in-process loader.
func NewHandler(svc *analytics.Service, store Store, ingestStatus IngestStatus, version string) *Handler {
	return &Handler{
		svc:       svc,
		store:     store,
		ingest:    ingestStatus,
		perfMon:   middleware.NewPerformanceMonitor(2000, middleware.DefaultSlowThreshold),
		version:   version,
		startTime: time.Now(),
	}
}

// PerformanceMonitor returns the monitor fed by the router middleware.
func (h *Handler) PerformanceMonitor() *middleware.PerformanceMonitor {
	return h.perfMon
}

// writeServiceError maps service and store errors to HTTP responses.
func writeServiceError(rw *ResponseWriter, err error) {
	var verr *validation.RequestValidationError
	var perr *paramError

	switch {
	case errors.As(err, &verr):
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
	case errors.As(err, &perr):
		rw.BadRequest(perr.Error())
	case errors.Is(err, database.ErrStationNotFound):
		rw.NotFound("Station not found")
	case errors.Is(err, analytics.ErrNoData):
		rw.NotFound("No count data for station")
	case errors.Is(err, database.ErrUnknownColumn):
		rw.BadRequest(err.Error())
	case errors.Is(err, analytics.ErrInvalidWindow):
		rw.BadRequest(err.Error())
	case analytics.IsUnavailable(err):
		rw.ServiceUnavailable("Database temporarily unavailable, retry later")
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful can be written.
		return
	default:
		rw.DatabaseError(err)
	}
}

// respond writes data or the mapped error.
func respond(w http.ResponseWriter, r *http.Request, data interface{}, err error) {
	rw := NewResponseWriter(w, r)
	if err != nil {
		writeServiceError(rw, err)
		return
	}
	rw.Success(data)
}
