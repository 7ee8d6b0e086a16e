// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package api

import (
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/trafficlens/internal/aggregate"
	"github.com/tomtom215/trafficlens/internal/analytics"
	"github.com/tomtom215/trafficlens/internal/cache"
	"github.com/tomtom215/trafficlens/internal/ingest"
	"github.com/tomtom215/trafficlens/internal/models"
)

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		h := testServer(t, newFakeStore(), nil, nil)
		rec, env := get(t, h, "/api/v1/health")
		if rec.Code != http.StatusOK || !env.Success {
			t.Fatalf("status = %d success = %v, want 200 true", rec.Code, env.Success)
		}
		var hs models.HealthStatus
		decodeData(t, env, &hs)
		if hs.Status != StatusHealthy || !hs.DatabaseConnected || !hs.SpatialAvailable {
			t.Errorf("health = %+v, want healthy with database and spatial", hs)
		}
		if hs.Tables.Stations != 2 || hs.Tables.HourlyCounts != 21 {
			t.Errorf("tables = %+v, want 2 stations 21 hourly", hs.Tables)
		}
		if hs.Version != "test" {
			t.Errorf("Version = %q, want test", hs.Version)
		}
	})

	t.Run("degraded when ping fails", func(t *testing.T) {
		store := newFakeStore()
		store.pingErr = errStoreDown
		_, env := get(t, testServer(t, store, nil, nil), "/api/v1/health")

		var hs models.HealthStatus
		decodeData(t, env, &hs)
		if hs.Status != StatusDegraded || hs.DatabaseConnected {
			t.Errorf("health = %+v, want degraded and disconnected", hs)
		}
	})
}

func TestHealthReady(t *testing.T) {
	store := newFakeStore()
	h := testServer(t, store, nil, nil)

	if rec, _ := get(t, h, "/api/v1/health/ready"); rec.Code != http.StatusOK {
		t.Errorf("ready status = %d, want 200", rec.Code)
	}

	store.pingErr = errStoreDown
	rec, env := get(t, h, "/api/v1/health/ready")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("not ready status = %d, want 503", rec.Code)
	}
	if env.Error == nil || env.Error.Code != ErrCodeServiceUnavailable {
		t.Errorf("error = %+v, want SERVICE_UNAVAILABLE", env.Error)
	}

	if rec, _ := get(t, h, "/api/v1/health/live"); rec.Code != http.StatusOK {
		t.Errorf("live status = %d, want 200 regardless of database", rec.Code)
	}
}

func TestHealthPerformance(t *testing.T) {
	h := testServer(t, newFakeStore(), nil, nil)
	get(t, h, "/api/v1/stations/1")
	get(t, h, "/api/v1/stations/1")

	_, env := get(t, h, "/api/v1/health/performance")
	var report PerformanceReport
	decodeData(t, env, &report)

	found := false
	for _, rs := range report.Routes {
		if strings.TrimSuffix(rs.Route, "/") == "GET /api/v1/stations/{key}" {
			found = true
			if rs.RequestCount != 2 {
				t.Errorf("station route count = %d, want 2", rs.RequestCount)
			}
		}
	}
	if !found {
		t.Errorf("routes = %+v, want station route", report.Routes)
	}
	if report.Cache.Hits < 1 {
		t.Errorf("cache hits = %d, want at least 1 after repeated lookup", report.Cache.Hits)
	}
}

func TestStations(t *testing.T) {
	h := testServer(t, newFakeStore(), nil, nil)

	tests := []struct {
		name      string
		target    string
		wantCode  int
		wantCount int
		wantErr   string
	}{
		{"all", "/api/v1/stations", http.StatusOK, 2, ""},
		{"filtered by lga", "/api/v1/stations?lga=Sydney", http.StatusOK, 1, ""},
		{"limit", "/api/v1/stations?limit=1", http.StatusOK, 1, ""},
		{"limit too large", "/api/v1/stations?limit=99999", http.StatusBadRequest, 0, ErrCodeValidationFailed},
		{"negative offset", "/api/v1/stations?offset=-1", http.StatusBadRequest, 0, ErrCodeValidationFailed},
		{"bad boolean", "/api/v1/stations?permanent=maybe", http.StatusBadRequest, 0, ErrCodeBadRequest},
		{"bad integer", "/api/v1/stations?limit=ten", http.StatusBadRequest, 0, ErrCodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := get(t, h, tt.target)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantErr != "" {
				if env.Error == nil || env.Error.Code != tt.wantErr {
					t.Errorf("error = %+v, want code %s", env.Error, tt.wantErr)
				}
				return
			}
			var got []models.Station
			decodeData(t, env, &got)
			if len(got) != tt.wantCount {
				t.Errorf("stations = %d, want %d", len(got), tt.wantCount)
			}
			if env.Meta == nil || env.Meta.Pagination == nil || env.Meta.Pagination.Count != tt.wantCount {
				t.Errorf("pagination = %+v, want count %d", env.Meta, tt.wantCount)
			}
		})
	}
}

func TestStation(t *testing.T) {
	h := testServer(t, newFakeStore(), nil, nil)

	tests := []struct {
		target   string
		wantCode int
	}{
		{"/api/v1/stations/1", http.StatusOK},
		{"/api/v1/stations/99", http.StatusNotFound},
		{"/api/v1/stations/abc", http.StatusBadRequest},
		{"/api/v1/stations/0", http.StatusBadRequest},
	}

	for _, tt := range tests {
		rec, env := get(t, h, tt.target)
		if rec.Code != tt.wantCode {
			t.Errorf("GET %s status = %d, want %d", tt.target, rec.Code, tt.wantCode)
			continue
		}
		if tt.wantCode == http.StatusOK {
			var s models.Station
			decodeData(t, env, &s)
			if s.StationID != "S1" {
				t.Errorf("StationID = %q, want S1", s.StationID)
			}
		}
	}
}

func TestStationProfile(t *testing.T) {
	h := testServer(t, newFakeStore(), nil, nil)

	rec, env := get(t, h, "/api/v1/stations/1/profile")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	var p analytics.ProfileResult
	decodeData(t, env, &p)
	if p.To != "2023-05-07" {
		t.Errorf("window To = %q, want latest count date 2023-05-07", p.To)
	}
	if p.Classification != models.ClassificationAllVehicles {
		t.Errorf("Classification = %d, want all vehicles", p.Classification)
	}
	if p.Records != 14 {
		t.Errorf("Records = %d, want 14", p.Records)
	}
	if len(p.Hours) != models.HoursPerDay {
		t.Fatalf("hours = %d, want 24", len(p.Hours))
	}
	if p.Hours[8].Volume != 75 {
		t.Errorf("hour 8 volume = %v, want 75", p.Hours[8].Volume)
	}
}

func TestStationSeries_Parameters(t *testing.T) {
	h := testServer(t, newFakeStore(), nil, nil)

	tests := []struct {
		name     string
		target   string
		wantCode int
	}{
		{"one direction", "/api/v1/stations/1/profile?direction=1", http.StatusOK},
		{"explicit window", "/api/v1/stations/1/trend?from=2023-05-01&to=2023-05-03", http.StatusOK},
		{"weekdays", "/api/v1/stations/1/peaks?weekdays_only=true", http.StatusOK},
		{"bad direction", "/api/v1/stations/1/profile?direction=9", http.StatusBadRequest},
		{"bad classification", "/api/v1/stations/1/profile?classification=7", http.StatusBadRequest},
		{"bad date", "/api/v1/stations/1/trend?from=01/05/2023", http.StatusBadRequest},
		{"inverted window", "/api/v1/stations/1/trend?from=2023-05-05&to=2023-05-01", http.StatusBadRequest},
		{"from after latest", "/api/v1/stations/1/trend?from=2024-01-01", http.StatusBadRequest},
		{"unknown station", "/api/v1/stations/99/peaks", http.StatusNotFound},
		{"station without data", "/api/v1/stations/2/profile", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := get(t, h, tt.target)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}
}

func TestStationPeaks(t *testing.T) {
	h := testServer(t, newFakeStore(), nil, nil)

	_, env := get(t, h, "/api/v1/stations/1/peaks?direction=1")
	var p analytics.PeaksResult
	decodeData(t, env, &p)

	th := aggregate.DefaultThresholds()
	wantAM := float64(th.AMPeakEnd-th.AMPeakStart+1) * 100
	if p.AMPeak != wantAM {
		t.Errorf("AMPeak = %v, want %v", p.AMPeak, wantAM)
	}
	if p.AMWindow != [2]int{th.AMPeakStart, th.AMPeakEnd} {
		t.Errorf("AMWindow = %v", p.AMWindow)
	}
	if p.DirectionLabel == "" {
		t.Error("DirectionLabel is empty")
	}
}

func TestStationTrend(t *testing.T) {
	h := testServer(t, newFakeStore(), nil, nil)

	_, env := get(t, h, "/api/v1/stations/1/trend?from=2023-05-01&to=2023-05-03")
	var tr analytics.TrendResult
	decodeData(t, env, &tr)

	if len(tr.Points) != 3 {
		t.Fatalf("points = %d, want 3", len(tr.Points))
	}
	if len(tr.Totals) != 3 || tr.Totals[0].DailyTotal != 3600 {
		t.Errorf("totals = %+v, want 3 days of 3600", tr.Totals)
	}
}

func TestStationSummary(t *testing.T) {
	h := testServer(t, newFakeStore(), nil, nil)

	rec, env := get(t, h, "/api/v1/stations/1/summary")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var s analytics.SummaryResult
	decodeData(t, env, &s)
	if s.Year != 2023 || s.Days != 7 || s.Records != 21 {
		t.Errorf("summary = %+v, want 2023 with 7 days and 21 records", s)
	}
	if s.AADT != 1800 {
		t.Errorf("AADT = %v, want 1800", s.AADT)
	}
	if math.Abs(s.HeavyVehiclePercentage-100.0/15) > 1e-9 {
		t.Errorf("HeavyVehiclePercentage = %v, want %v", s.HeavyVehiclePercentage, 100.0/15)
	}

	if rec, _ := get(t, h, "/api/v1/stations/1/summary?year=1800"); rec.Code != http.StatusBadRequest {
		t.Errorf("year 1800 status = %d, want 400", rec.Code)
	}
	if rec, _ := get(t, h, "/api/v1/stations/2/summary"); rec.Code != http.StatusNotFound {
		t.Errorf("no data status = %d, want 404", rec.Code)
	}
}

func TestFilters(t *testing.T) {
	h := testServer(t, newFakeStore(), nil, nil)

	tests := []struct {
		name     string
		target   string
		wantCode int
		want     []string
	}{
		{"column", "/api/v1/filters/lga", http.StatusOK, []string{"Parramatta", "Sydney"}},
		{"unknown column", "/api/v1/filters/password", http.StatusBadRequest, nil},
		{"suburbs of one lga", "/api/v1/filters/suburbs?lga=Sydney", http.StatusOK, []string{"Ultimo"}},
		{"suburbs of two lgas", "/api/v1/filters/suburbs?lga=Sydney,Parramatta", http.StatusOK, []string{"Ultimo", "Westmead"}},
		{"suburbs without lga", "/api/v1/filters/suburbs", http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := get(t, h, tt.target)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.want == nil {
				return
			}
			var got []string
			decodeData(t, env, &got)
			if len(got) != len(tt.want) {
				t.Fatalf("values = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("values[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestIngestRuns(t *testing.T) {
	h := testServer(t, newFakeStore(), nil, nil)

	_, env := get(t, h, "/api/v1/ingest/runs")
	var runs []models.IngestRun
	decodeData(t, env, &runs)
	if len(runs) != 1 || runs[0].RunID != "run-1" {
		t.Errorf("runs = %+v, want run-1", runs)
	}

	if rec, _ := get(t, h, "/api/v1/ingest/runs?limit=0"); rec.Code != http.StatusBadRequest {
		t.Errorf("limit=0 status = %d, want 400", rec.Code)
	}
}

type fakeIngestStatus struct {
	running bool
}

func (f fakeIngestStatus) GetStats() *ingest.Stats {
	return &ingest.Stats{RunID: "run-9", Kind: models.KindStations, RowsRead: 12345, SkipReasons: map[string]int64{}, StartTime: time.Now()}
}

func (f fakeIngestStatus) IsRunning() bool { return f.running }

func TestIngestStatus(t *testing.T) {
	t.Run("no loader", func(t *testing.T) {
		rec, _ := get(t, testServer(t, newFakeStore(), nil, nil), "/api/v1/ingest/status")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("running loader", func(t *testing.T) {
		_, env := get(t, testServer(t, newFakeStore(), fakeIngestStatus{running: true}, nil), "/api/v1/ingest/status")
		var sum ingest.Summary
		decodeData(t, env, &sum)
		if sum.Status != "running" || sum.RowsRead != "12,345" {
			t.Errorf("summary = %+v, want running with 12,345 rows", sum)
		}
	})
}

func TestStoreFailures(t *testing.T) {
	store := newFakeStore()
	store.fail = errStoreDown

	c := cache.New(time.Minute)
	t.Cleanup(c.Close)
	svc := analytics.NewWithBreaker(store, aggregate.New(aggregate.DefaultThresholds()), c, analytics.BreakerSettings{
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		MinRequests:  2,
		FailureRatio: 0.5,
	})
	h := NewRouter(NewHandler(svc, store, nil, "test"), nil).SetupChi()

	for i := 0; i < 2; i++ {
		rec, env := get(t, h, "/api/v1/filters/lga")
		if rec.Code != http.StatusInternalServerError || env.Error.Code != ErrCodeDatabaseError {
			t.Fatalf("failure %d: status = %d error = %+v, want 500 DATABASE_ERROR", i, rec.Code, env.Error)
		}
	}

	rec, env := get(t, h, "/api/v1/filters/lga")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("open breaker status = %d, want 503", rec.Code)
	}
	if env.Error == nil || env.Error.Code != ErrCodeServiceUnavailable {
		t.Errorf("open breaker error = %+v", env.Error)
	}
}

func TestRouter_Misc(t *testing.T) {
	h := testServer(t, newFakeStore(), nil, nil)

	rec, env := get(t, h, "/api/v1/nothing-here")
	if rec.Code != http.StatusNotFound || env.Error == nil || env.Error.Code != ErrCodeNotFound {
		t.Errorf("unknown route = %d %+v, want 404 NOT_FOUND envelope", rec.Code, env.Error)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/stations", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /stations = %d, want 405", rec.Code)
	}

	rec, _ = get(t, h, "/metrics")
	if rec.Code != http.StatusOK {
		t.Errorf("/metrics = %d, want 200", rec.Code)
	}

	rec, env = get(t, h, "/api/v1/stations/1")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
	if env.Meta == nil || env.Meta.RequestID != rec.Header().Get("X-Request-ID") {
		t.Errorf("meta request id = %+v, want header value", env.Meta)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
}
