// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/trafficlens/internal/config"
	"github.com/tomtom215/trafficlens/internal/models"
)

func testConfig(batch int) *config.IngestConfig {
	return &config.IngestConfig{BatchSize: batch, Resume: true, DailyTotalPolicy: config.DailyTotalSum}
}

func TestLoader_BatchCommits(t *testing.T) {
	tests := []struct {
		name    string
		rows    int
		batch   int
		commits int
		sizes   []int
	}{
		{"two and a half batches", 250, 100, 3, []int{100, 100, 50}},
		{"exact multiple", 200, 100, 2, []int{100, 100}},
		{"smaller than one batch", 7, 100, 1, []int{7}},
		{"empty file", 0, 100, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newFakeWriter()
			path := writeStationsCSV(t, manyStationRows(tt.rows))
			l := NewLoader(testConfig(tt.batch), 19, w, nil)

			stats, err := l.LoadStations(context.Background(), path)
			if err != nil {
				t.Fatalf("LoadStations() error = %v", err)
			}
			if w.commits != tt.commits {
				t.Errorf("commits = %d, want %d", w.commits, tt.commits)
			}
			for i, want := range tt.sizes {
				if w.batches[i] != want {
					t.Errorf("batch %d size = %d, want %d", i, w.batches[i], want)
				}
			}
			if stats.Inserted != int64(tt.rows) || stats.RowsRead != int64(tt.rows) {
				t.Errorf("stats = read %d inserted %d, want %d", stats.RowsRead, stats.Inserted, tt.rows)
			}
			if stats.Status != models.RunCompleted {
				t.Errorf("Status = %q, want completed", stats.Status)
			}
			if len(w.runs) != 1 || w.runs[0].RunID != stats.RunID {
				t.Errorf("runs recorded = %d, want 1 with run id %s", len(w.runs), stats.RunID)
			}
		})
	}
}

func TestLoader_DefaultBatchSize(t *testing.T) {
	w := newFakeWriter()
	path := writeStationsCSV(t, manyStationRows(DefaultBatchSize*5/2))
	l := NewLoader(&config.IngestConfig{}, 19, w, nil)

	if _, err := l.LoadStations(context.Background(), path); err != nil {
		t.Fatalf("LoadStations() error = %v", err)
	}
	if w.commits != 3 {
		t.Errorf("commits = %d, want 3", w.commits)
	}
}

func TestLoader_StationSkips(t *testing.T) {
	w := newFakeWriter(1)
	rows := [][]string{
		stationRow("1", "-33.8", "151.2"),   // already stored
		stationRow("2", "", "151.2"),        // geocode
		stationRow("3", "-33.8", "999"),     // invalid
		stationRow("4", "-33.8", "151.2"),   // ok
		stationRow("4", "-33.9", "151.3"),   // repeated in file
		stationRow("5", "-33.8", "151.2"),   // ok
		stationRow("6", "bad", "bad"),       // geocode
		stationRow("7", "-33.8", "151.2"),   // ok
		stationRow("8", "-91", "151.2"),     // invalid
		stationRow("9", "-33.8", "151.201"), // ok
	}
	path := writeStationsCSV(t, rows)

	stats, err := NewLoader(testConfig(3), 19, w, nil).LoadStations(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadStations() error = %v", err)
	}

	want := map[string]int64{ReasonDuplicateStation: 2, ReasonGeocode: 2, ReasonInvalidRow: 2}
	for reason, n := range want {
		if stats.SkipReasons[reason] != n {
			t.Errorf("SkipReasons[%s] = %d, want %d", reason, stats.SkipReasons[reason], n)
		}
	}
	if stats.Skipped != 6 || stats.Inserted != 4 || stats.RowsRead != 10 {
		t.Errorf("stats = read %d inserted %d skipped %d", stats.RowsRead, stats.Inserted, stats.Skipped)
	}
	if len(w.stations) != 4 {
		t.Errorf("stored stations = %d, want 4", len(w.stations))
	}
}

func TestLoader_DuplicateStationID(t *testing.T) {
	w := newFakeWriter()
	w.ids["ID1"] = struct{}{}

	reused := stationRow("10", "-33.8", "151.2")
	reused[1] = "ID1"
	sameFile := stationRow("12", "-33.8", "151.2")
	sameFile[1] = "ID11"
	path := writeStationsCSV(t, [][]string{
		reused,
		stationRow("11", "-33.8", "151.2"),
		sameFile,
		stationRow("13", "-33.8", "151.2"),
	})

	stats, err := NewLoader(testConfig(2), 19, w, nil).LoadStations(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadStations() error = %v", err)
	}
	if got := stats.SkipReasons[ReasonDuplicateStationID]; got != 2 {
		t.Errorf("SkipReasons[%s] = %d, want 2", ReasonDuplicateStationID, got)
	}
	if stats.Inserted != 2 || stats.Skipped != 2 {
		t.Errorf("stats = inserted %d skipped %d, want 2 and 2", stats.Inserted, stats.Skipped)
	}
	if stats.RowsRead != stats.Inserted+stats.Skipped {
		t.Errorf("RowsRead = %d, want Inserted + Skipped = %d", stats.RowsRead, stats.Inserted+stats.Skipped)
	}
}

func TestLoader_HourlySkipsAndCollapse(t *testing.T) {
	w := newFakeWriter(10, 11)
	rows := [][]string{
		hourlyRow("10", "2023-05-01", 1, 1, "5"),
		hourlyRow("10", "2023-05-01", 1, 1, "7"), // same natural key, replaces the first
		hourlyRow("10", "2023-05-01", 2, 1, "5"),
		hourlyRow("99", "2023-05-01", 1, 1, "5"), // unknown station
		hourlyRow("11", "yesterday", 1, 1, "5"),  // bad date
		hourlyRow("11", "2023-05-02", 1, 1, "5"),
	}
	path := writeHourlyCSV(t, rows)

	stats, err := NewLoader(testConfig(100), 19, w, nil).LoadHourly(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadHourly() error = %v", err)
	}

	if stats.SkipReasons[ReasonUnknownStation] != 1 || stats.SkipReasons[ReasonBadDate] != 1 {
		t.Errorf("SkipReasons = %v", stats.SkipReasons)
	}
	if stats.Collapsed != 1 {
		t.Errorf("Collapsed = %d, want 1", stats.Collapsed)
	}
	if w.batches[0] != 3 {
		t.Errorf("batch size = %d, want 3 after collapsing", w.batches[0])
	}

	var kept models.HourlyCount
	for _, h := range w.hourly {
		if h.StationKey == 10 && h.TrafficDirectionSeq == 1 {
			kept = h
		}
	}
	if v, _ := kept.Hour(0); v != 7 {
		t.Errorf("collapsed row hour 0 = %d, want 7 (last wins)", v)
	}
}

func TestLoader_BatchFailure(t *testing.T) {
	w := newFakeWriter()
	w.failOnCommit = 2
	path := writeStationsCSV(t, manyStationRows(25))

	stats, err := NewLoader(testConfig(10), 19, w, nil).LoadStations(context.Background(), path)
	if err == nil {
		t.Fatal("LoadStations() error = nil, want batch failure")
	}
	if w.commits != 1 {
		t.Errorf("commits = %d, want 1 before the failure", w.commits)
	}
	if len(w.stations) != 10 {
		t.Errorf("stored = %d, want 10 from the first batch", len(w.stations))
	}
	if stats.Status != models.RunFailed || stats.Offset != 10 {
		t.Errorf("stats = status %q offset %d, want failed at 10", stats.Status, stats.Offset)
	}
	if len(w.runs) != 1 || w.runs[0].Status != models.RunFailed {
		t.Errorf("recorded runs = %+v", w.runs)
	}
}

func TestLoader_ResumeFromCheckpoint(t *testing.T) {
	w := newFakeWriter()
	w.failOnCommit = 2
	path := writeStationsCSV(t, manyStationRows(25))
	progress := NewInMemoryProgress()
	l := NewLoader(testConfig(10), 19, w, progress)

	if _, err := l.LoadStations(context.Background(), path); err == nil {
		t.Fatal("first run should fail")
	}
	cp, _ := progress.Load(context.Background(), models.KindStations, path)
	if cp == nil || cp.Offset != 10 {
		t.Fatalf("checkpoint = %+v, want offset 10", cp)
	}

	w.failOnCommit = 0
	stats, err := l.LoadStations(context.Background(), path)
	if err != nil {
		t.Fatalf("resumed LoadStations() error = %v", err)
	}
	if stats.ResumedFrom != 10 || stats.RowsRead != 15 {
		t.Errorf("resumed stats = from %d read %d, want from 10 read 15", stats.ResumedFrom, stats.RowsRead)
	}
	if len(w.stations) != 25 {
		t.Errorf("stored = %d, want 25", len(w.stations))
	}

	cp, _ = progress.Load(context.Background(), models.KindStations, path)
	if cp != nil {
		t.Errorf("checkpoint after completion = %+v, want cleared", cp)
	}
}

func TestLoader_ResumeDisabled(t *testing.T) {
	w := newFakeWriter()
	path := writeStationsCSV(t, manyStationRows(5))
	progress := NewInMemoryProgress()
	_ = progress.Save(context.Background(), Checkpoint{Kind: models.KindStations, File: path, Offset: 3})

	cfg := testConfig(10)
	cfg.Resume = false
	stats, err := NewLoader(cfg, 19, w, progress).LoadStations(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadStations() error = %v", err)
	}
	if stats.RowsRead != 5 || stats.ResumedFrom != 0 {
		t.Errorf("stats = read %d from %d, want 5 from 0", stats.RowsRead, stats.ResumedFrom)
	}
}

func TestLoader_MaxRows(t *testing.T) {
	w := newFakeWriter()
	path := writeStationsCSV(t, manyStationRows(50))
	cfg := testConfig(10)
	cfg.MaxRows = 12

	stats, err := NewLoader(cfg, 19, w, nil).LoadStations(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadStations() error = %v", err)
	}
	if stats.RowsRead != 12 || w.commits != 2 {
		t.Errorf("read %d commits %d, want 12 and 2", stats.RowsRead, w.commits)
	}
}

func TestLoader_Guards(t *testing.T) {
	l := NewLoader(testConfig(10), 19, newFakeWriter(), nil)

	if err := l.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Stop() idle error = %v, want ErrNotRunning", err)
	}
	if l.IsRunning() {
		t.Error("IsRunning() = true before any load")
	}
	if s := l.GetStats(); s.RowsRead != 0 || s.SkipReasons == nil {
		t.Errorf("GetStats() idle = %+v", s)
	}

	l.running = true
	if _, err := l.LoadStations(context.Background(), "x.csv"); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("concurrent load error = %v, want ErrAlreadyRunning", err)
	}
	l.running = false
}

func TestLoader_CanceledContext(t *testing.T) {
	w := newFakeWriter()
	path := writeStationsCSV(t, manyStationRows(5))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := NewLoader(testConfig(10), 19, w, nil).LoadStations(ctx, path)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if stats.Status != models.RunStopped {
		t.Errorf("Status = %q, want stopped", stats.Status)
	}
	if w.commits != 0 {
		t.Errorf("commits = %d, want 0", w.commits)
	}
	if len(w.runs) != 1 {
		t.Errorf("run should still be recorded, got %d", len(w.runs))
	}
}

func TestLoader_MissingFile(t *testing.T) {
	w := newFakeWriter()
	stats, err := NewLoader(testConfig(10), 19, w, nil).LoadStations(context.Background(), "/nonexistent/stations.csv")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if stats.Status != models.RunFailed {
		t.Errorf("Status = %q, want failed", stats.Status)
	}
}

func TestLoader_Verify(t *testing.T) {
	w := newFakeWriter()
	path := writeStationsCSV(t, manyStationRows(3))
	cfg := testConfig(10)
	cfg.Verify = true
	l := NewLoader(cfg, 19, w, nil)

	if _, err := l.LoadStations(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	counts, err := l.Verify(context.Background())
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if counts.Stations != 3 {
		t.Errorf("Stations = %d, want 3", counts.Stations)
	}
}
