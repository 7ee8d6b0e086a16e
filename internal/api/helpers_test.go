// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/trafficlens/internal/aggregate"
	"github.com/tomtom215/trafficlens/internal/analytics"
	"github.com/tomtom215/trafficlens/internal/cache"
	"github.com/tomtom215/trafficlens/internal/database"
	"github.com/tomtom215/trafficlens/internal/models"
)

var errStoreDown = errors.New("connection refused")

// fakeStore serves one station with a week of counts. Station 2 exists
// but has no counts.
type fakeStore struct {
	mu      sync.Mutex
	rows    []models.HourlyCount
	runs    []models.IngestRun
	pingErr error
	fail    error
}

var (
	monday = time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	sunday = time.Date(2023, 5, 7, 0, 0, 0, 0, time.UTC)
)

func newFakeStore() *fakeStore {
	f := &fakeStore{}
	for d := monday; !d.After(sunday); d = d.AddDate(0, 0, 1) {
		f.rows = append(f.rows,
			countRow(1, d, models.DirectionPrescribed, models.ClassificationAllVehicles, 100),
			countRow(1, d, models.DirectionOpposite, models.ClassificationAllVehicles, 50),
			countRow(1, d, models.DirectionBoth, models.ClassificationHeavy, 10),
		)
	}
	f.runs = []models.IngestRun{{RunID: "run-1", Kind: models.KindHourly, Status: models.RunCompleted}}
	return f
}

func countRow(station int64, date time.Time, dir, class int, v int64) models.HourlyCount {
	h := models.HourlyCount{
		StationKey:           station,
		TrafficDirectionSeq:  dir,
		CardinalDirectionSeq: 1,
		ClassificationSeq:    class,
		CountDate:            date,
		Year:                 date.Year(),
		Month:                int(date.Month()),
		DayOfWeek:            models.ISOWeekday(date),
	}
	for i := range h.Hours {
		h.Hours[i] = models.Int64Ptr(v)
	}
	h.DailyTotal = models.Int64Ptr(24 * v)
	return h
}

var stations = map[int64]models.Station{
	1: {StationKey: 1, StationID: "S1", LGA: "Sydney", Suburb: "Ultimo"},
	2: {StationKey: 2, StationID: "S2", LGA: "Parramatta", Suburb: "Westmead"},
}

func (f *fakeStore) err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) IsSpatialAvailable() bool { return true }

func (f *fakeStore) CountRows(context.Context) (models.TableCounts, error) {
	if err := f.err(); err != nil {
		return models.TableCounts{}, err
	}
	return models.TableCounts{Stations: int64(len(stations)), HourlyCounts: int64(len(f.rows))}, nil
}

func (f *fakeStore) RecentIngestRuns(_ context.Context, limit int) ([]models.IngestRun, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	if limit < len(f.runs) {
		return f.runs[:limit], nil
	}
	return f.runs, nil
}

func (f *fakeStore) ListStations(_ context.Context, flt models.StationFilter) ([]models.Station, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	var out []models.Station
	for _, key := range []int64{1, 2} {
		s := stations[key]
		if len(flt.LGAs) > 0 && flt.LGAs[0] != s.LGA {
			continue
		}
		out = append(out, s)
	}
	if flt.Limit > 0 && len(out) > flt.Limit {
		out = out[:flt.Limit]
	}
	return out, nil
}

func (f *fakeStore) GetStation(_ context.Context, key int64) (*models.Station, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	s, ok := stations[key]
	if !ok {
		return nil, database.ErrStationNotFound
	}
	return &s, nil
}

func (f *fakeStore) DistinctValues(_ context.Context, col models.Column) ([]string, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	if !col.Valid() {
		return nil, database.ErrUnknownColumn
	}
	return []string{"Parramatta", "Sydney"}, nil
}

func (f *fakeStore) SuburbsForLGAs(_ context.Context, lgas []string) ([]string, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	if len(lgas) == 1 && lgas[0] == "Sydney" {
		return []string{"Ultimo"}, nil
	}
	return []string{"Ultimo", "Westmead"}, nil
}

func (f *fakeStore) HourlyCounts(_ context.Context, q models.HourlyQuery) ([]models.HourlyCount, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	var out []models.HourlyCount
	for _, r := range f.rows {
		if r.StationKey != q.StationKeys[0] || r.CountDate.Before(q.From) || r.CountDate.After(q.To) {
			continue
		}
		if q.Direction != models.DirectionBoth && r.TrafficDirectionSeq != q.Direction {
			continue
		}
		match := false
		for _, c := range q.Classifications {
			match = match || c == r.ClassificationSeq
		}
		if match {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) DailyTotals(ctx context.Context, q models.HourlyQuery) ([]models.DailyTotal, error) {
	rows, err := f.HourlyCounts(ctx, q)
	if err != nil {
		return nil, err
	}
	var out []models.DailyTotal
	for _, r := range rows {
		n := len(out)
		if n > 0 && out[n-1].CountDate.Equal(r.CountDate) {
			out[n-1].DailyTotal += *r.DailyTotal
			continue
		}
		out = append(out, models.DailyTotal{CountDate: r.CountDate, ClassificationSeq: r.ClassificationSeq, DailyTotal: *r.DailyTotal})
	}
	return out, nil
}

func (f *fakeStore) LatestCountDate(_ context.Context, key int64) (time.Time, bool, error) {
	if err := f.err(); err != nil {
		return time.Time{}, false, err
	}
	var latest time.Time
	for _, r := range f.rows {
		if r.StationKey == key && r.CountDate.After(latest) {
			latest = r.CountDate
		}
	}
	return latest, !latest.IsZero(), nil
}

func (f *fakeStore) CountYears(_ context.Context, key int64) ([]int, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	for _, r := range f.rows {
		if r.StationKey == key {
			return []int{r.Year}, nil
		}
	}
	return nil, nil
}

// testServer builds the full router over store.
func testServer(t *testing.T, store *fakeStore, ingestStatus IngestStatus, mw *ChiMiddleware) http.Handler {
	t.Helper()
	c := cache.New(time.Minute)
	t.Cleanup(c.Close)

	svc := analytics.New(store, aggregate.New(aggregate.DefaultThresholds()), c)
	return NewRouter(NewHandler(svc, store, ingestStatus, "test"), mw).SetupChi()
}

// envelope is APIResponse with the payload left raw.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("GET %s: decode envelope: %v (body %s)", target, err, rec.Body.String())
		}
	}
	return rec, env
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data: %v (data %s)", err, env.Data)
	}
}
