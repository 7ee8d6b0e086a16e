// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/trafficlens/internal/analytics"
	"github.com/tomtom215/trafficlens/internal/models"
)

// Stations lists stations matching the filter query.
//
// Query: lga, suburb, road, hierarchy (comma-separated or repeated),
// vehicle_classifier, permanent, min_quality, limit, offset.
func (h *Handler) Stations(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	req, err := parseStationsRequest(r.URL.Query())
	if err != nil {
		writeServiceError(rw, err)
		return
	}

	stations, err := h.svc.Stations(r.Context(), req.Filter())
	if err != nil {
		writeServiceError(rw, err)
		return
	}
	if stations == nil {
		stations = []models.Station{}
	}

	rw.SuccessWithPagination(stations, &PaginationMeta{
		Count:   len(stations),
		Offset:  req.Offset,
		Limit:   req.Limit,
		HasMore: len(stations) == req.Limit,
	})
}

// Station returns one station by key.
func (h *Handler) Station(w http.ResponseWriter, r *http.Request) {
	key, err := parseStationKey(chi.URLParam(r, "key"))
	if err != nil {
		writeServiceError(NewResponseWriter(w, r), err)
		return
	}
	station, err := h.svc.Station(r.Context(), key)
	respond(w, r, station, err)
}

// StationSummary returns AADT, AAWT and heavy-vehicle share for ?year=.
func (h *Handler) StationSummary(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	key, err := parseStationKey(chi.URLParam(r, "key"))
	if err != nil {
		writeServiceError(rw, err)
		return
	}
	req, err := parseSummaryRequest(r.URL.Query())
	if err != nil {
		writeServiceError(rw, err)
		return
	}

	summary, err := h.svc.Summary(r.Context(), key, req.Year)
	respond(w, r, summary, err)
}

// StationProfile returns the 24-hour average profile.
func (h *Handler) StationProfile(w http.ResponseWriter, r *http.Request) {
	serveSeries(w, r, func(ctx context.Context, q analytics.Query) (interface{}, error) {
		return h.svc.Profile(ctx, q)
	})
}

// StationPeaks returns the AM and PM peak volumes.
func (h *Handler) StationPeaks(w http.ResponseWriter, r *http.Request) {
	serveSeries(w, r, func(ctx context.Context, q analytics.Query) (interface{}, error) {
		return h.svc.Peaks(ctx, q)
	})
}

// StationTrend returns the daily series.
func (h *Handler) StationTrend(w http.ResponseWriter, r *http.Request) {
	serveSeries(w, r, func(ctx context.Context, q analytics.Query) (interface{}, error) {
		return h.svc.Trend(ctx, q)
	})
}

// serveSeries parses the key and window parameters shared by the
// profile, peaks and trend endpoints and writes fn's result.
func serveSeries(w http.ResponseWriter, r *http.Request, fn func(context.Context, analytics.Query) (interface{}, error)) {
	rw := NewResponseWriter(w, r)

	key, err := parseStationKey(chi.URLParam(r, "key"))
	if err != nil {
		writeServiceError(rw, err)
		return
	}
	req, err := parseSeriesRequest(r.URL.Query())
	if err != nil {
		writeServiceError(rw, err)
		return
	}

	result, err := fn(r.Context(), req.Query(key))
	if err != nil {
		writeServiceError(rw, err)
		return
	}
	rw.Success(result)
}

// FilterOptions returns the distinct values of a station column.
func (h *Handler) FilterOptions(w http.ResponseWriter, r *http.Request) {
	col := models.Column(chi.URLParam(r, "column"))
	values, err := h.svc.FilterOptions(r.Context(), col)
	if values == nil {
		values = []string{}
	}
	respond(w, r, values, err)
}

// FilterSuburbs returns the suburbs within the LGAs given by ?lga=.
func (h *Handler) FilterSuburbs(w http.ResponseWriter, r *http.Request) {
	req, err := parseSuburbsRequest(r.URL.Query())
	if err != nil {
		writeServiceError(NewResponseWriter(w, r), err)
		return
	}
	suburbs, err := h.svc.Suburbs(r.Context(), req.LGAs)
	if suburbs == nil {
		suburbs = []string{}
	}
	respond(w, r, suburbs, err)
}
