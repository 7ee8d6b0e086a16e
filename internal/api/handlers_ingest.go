// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package api

import (
	"net/http"

	"github.com/tomtom215/trafficlens/internal/models"
)

// IngestRuns lists the most recent ingestion runs, newest first.
func (h *Handler) IngestRuns(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	req, err := parseRunsRequest(r.URL.Query())
	if err != nil {
		writeServiceError(rw, err)
		return
	}

	runs, err := h.store.RecentIngestRuns(r.Context(), req.Limit)
	if err != nil {
		writeServiceError(rw, err)
		return
	}
	if runs == nil {
		runs = []models.IngestRun{}
	}
	rw.Success(runs)
}

// IngestStatus reports the current or last run of the in-process loader.
func (h *Handler) IngestStatus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.ingest == nil {
		rw.NotFound("No in-process loader is configured")
		return
	}
	rw.Success(h.ingest.GetStats().ToSummary(h.ingest.IsRunning()))
}
