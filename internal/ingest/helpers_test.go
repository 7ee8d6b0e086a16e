// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/tomtom215/trafficlens/internal/models"
	"github.com/tomtom215/trafficlens/internal/validation"
)

var hourlyHeader = func() []string {
	h := []string{"station_key", "traffic_direction_seq", "cardinal_direction_seq", "classification_seq",
		"date", "is_public_holiday", "is_school_holiday"}
	for i := 0; i < models.HoursPerDay; i++ {
		h = append(h, models.HourColumn(i))
	}
	return h
}()

// stationRow builds a full station record with the given key and coordinates.
func stationRow(key, lat, lon string) []string {
	return []string{
		key, "ID" + key, "Station " + key, "Main Rd", "Main Road North", "Main Rd",
		"Sydney", "Haymarket", "2000", "Arterial", "4", "State",
		"Loop", "true", "yes", "0", "3", lat, lon,
	}
}

// hourlyRow builds an hourly record with every hour set to v.
func hourlyRow(key, date string, dir, class int, v string) []string {
	row := []string{key, strconv.Itoa(dir), "1", strconv.Itoa(class), date, "false", "false"}
	for i := 0; i < models.HoursPerDay; i++ {
		row = append(row, v)
	}
	return row
}

// writeCSV writes header and rows to a temp file. Names ending in .gz
// are gzip-compressed.
func writeCSV(t *testing.T, name string, header []string, rows [][]string) string {
	t.Helper()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteAll(rows); err != nil {
		t.Fatal(err)
	}

	data := buf.Bytes()
	if filepath.Ext(name) == ".gz" {
		var gz bytes.Buffer
		zw := gzip.NewWriter(&gz)
		if _, err := zw.Write(data); err != nil {
			t.Fatal(err)
		}
		if err := zw.Close(); err != nil {
			t.Fatal(err)
		}
		data = gz.Bytes()
	}

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeStationsCSV(t *testing.T, rows [][]string) string {
	return writeCSV(t, "stations.csv", validation.StationFields, rows)
}

func writeHourlyCSV(t *testing.T, rows [][]string) string {
	return writeCSV(t, "hourly.csv", hourlyHeader, rows)
}

// fakeWriter records every write call. Each call is one commit.
type fakeWriter struct {
	mu       sync.Mutex
	keys     map[int64]struct{}
	ids      map[string]struct{}
	stations []models.Station
	hourly   map[models.NaturalKey]models.HourlyCount
	commits  int
	batches  []int
	runs     []*models.IngestRun

	// failOnCommit makes the n-th commit (1-based) fail.
	failOnCommit int
}

func newFakeWriter(keys ...int64) *fakeWriter {
	w := &fakeWriter{keys: map[int64]struct{}{}, ids: map[string]struct{}{}, hourly: map[models.NaturalKey]models.HourlyCount{}}
	for _, k := range keys {
		w.keys[k] = struct{}{}
	}
	return w
}

func (w *fakeWriter) StationKeys(context.Context) (map[int64]struct{}, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[int64]struct{}, len(w.keys))
	for k := range w.keys {
		out[k] = struct{}{}
	}
	return out, nil
}

func (w *fakeWriter) commit(n int) error {
	if w.failOnCommit > 0 && len(w.batches)+1 == w.failOnCommit {
		w.batches = append(w.batches, -n)
		return errors.New("disk full")
	}
	w.commits++
	w.batches = append(w.batches, n)
	return nil
}

func (w *fakeWriter) InsertStations(_ context.Context, s []models.Station) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.commit(len(s)); err != nil {
		return 0, err
	}
	var n int64
	for _, st := range s {
		if _, ok := w.keys[st.StationKey]; ok {
			continue
		}
		if _, ok := w.ids[st.StationID]; ok {
			continue
		}
		w.keys[st.StationKey] = struct{}{}
		w.ids[st.StationID] = struct{}{}
		w.stations = append(w.stations, st)
		n++
	}
	return n, nil
}

func (w *fakeWriter) UpsertHourlyCounts(_ context.Context, rows []models.HourlyCount) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.commit(len(rows)); err != nil {
		return 0, err
	}
	for _, r := range rows {
		w.hourly[r.Key()] = r
	}
	return int64(len(rows)), nil
}

func (w *fakeWriter) CountRows(context.Context) (models.TableCounts, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return models.TableCounts{Stations: int64(len(w.keys)), HourlyCounts: int64(len(w.hourly))}, nil
}

func (w *fakeWriter) RecordIngestRun(_ context.Context, run *models.IngestRun) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.runs = append(w.runs, run)
	return nil
}

func manyStationRows(n int) [][]string {
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = stationRow(fmt.Sprint(i+1), "-33.87", "151.21")
	}
	return rows
}
