// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package ingest

import (
	"context"
	"testing"

	"github.com/tomtom215/trafficlens/internal/config"
	"github.com/tomtom215/trafficlens/internal/database"
	"github.com/tomtom215/trafficlens/internal/models"
	"github.com/tomtom215/trafficlens/internal/validation"
)

func setupDuckDB(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping DuckDB integration test in short mode")
	}

	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "512MB"})
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestIntegration_StationsThenHourly(t *testing.T) {
	db := setupDuckDB(t)
	ctx := context.Background()

	stationsPath := writeCSV(t, "stations.csv.gz", validation.StationFields, [][]string{
		stationRow("1", "-33.8688", "151.2093"),
		stationRow("2", "-33.87", "151.21"),
		stationRow("3", "", "151.21"),
	})
	hourlyPath := writeHourlyCSV(t, [][]string{
		hourlyRow("1", "2023-05-01", 1, 1, "10"),
		hourlyRow("1", "2023-05-01", 2, 1, "12"),
		hourlyRow("2", "2023-05-02", 1, 3, "1"),
		hourlyRow("3", "2023-05-02", 1, 1, "1"), // station 3 was never loaded
	})

	cfg := testConfig(2)
	cfg.Verify = true
	l := NewLoader(cfg, 19, db, nil)

	st, err := l.LoadStations(ctx, stationsPath)
	if err != nil {
		t.Fatalf("LoadStations() error = %v", err)
	}
	if st.Inserted != 2 || st.SkipReasons[ReasonGeocode] != 1 {
		t.Errorf("station stats = %+v", st)
	}

	hs, err := l.LoadHourly(ctx, hourlyPath)
	if err != nil {
		t.Fatalf("LoadHourly() error = %v", err)
	}
	if hs.SkipReasons[ReasonUnknownStation] != 1 || hs.Batches != 2 {
		t.Errorf("hourly stats = %+v", hs)
	}

	counts, err := db.CountRows(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Stations != 2 || counts.HourlyCounts != 3 {
		t.Errorf("counts = %+v, want 2 stations 3 hourly", counts)
	}

	rows, err := db.HourlyCounts(ctx, models.HourlyQuery{StationKeys: []int64{1}, Direction: models.DirectionOpposite})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].DailyTotal == nil || *rows[0].DailyTotal != 288 {
		t.Errorf("direction 2 rows = %+v, want one with daily_total 288", rows)
	}

	s, err := db.GetStation(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if s.LocationWKT != "POINT(151.209300 -33.868800)" {
		t.Errorf("LocationWKT = %q", s.LocationWKT)
	}

	runs, err := db.RecentIngestRuns(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Errorf("ingest runs = %d, want 2", len(runs))
	}
}

func TestIntegration_Idempotent(t *testing.T) {
	db := setupDuckDB(t)
	ctx := context.Background()

	stationsPath := writeStationsCSV(t, manyStationRows(5))
	hourlyPath := writeHourlyCSV(t, [][]string{
		hourlyRow("1", "2023-05-01", 1, 1, "10"),
		hourlyRow("2", "2023-05-01", 1, 1, "10"),
	})

	l := NewLoader(testConfig(3), 19, db, nil)
	for i := 0; i < 2; i++ {
		st, err := l.LoadStations(ctx, stationsPath)
		if err != nil {
			t.Fatalf("run %d LoadStations() error = %v", i, err)
		}
		if i == 1 && (st.Inserted != 0 || st.SkipReasons[ReasonDuplicateStation] != 5) {
			t.Errorf("second station run = %+v, want all duplicates", st)
		}
		if _, err := l.LoadHourly(ctx, hourlyPath); err != nil {
			t.Fatalf("run %d LoadHourly() error = %v", i, err)
		}
	}

	counts, _ := db.CountRows(ctx)
	if counts.Stations != 5 || counts.HourlyCounts != 2 {
		t.Errorf("counts after reload = %+v, want 5 and 2", counts)
	}
}

func TestIntegration_DuplicateStationID(t *testing.T) {
	db := setupDuckDB(t)
	ctx := context.Background()

	second := stationRow("2", "-33.87", "151.21")
	second[1] = "ID1"
	path := writeStationsCSV(t, [][]string{
		stationRow("1", "-33.87", "151.21"),
		second,
	})

	st, err := NewLoader(testConfig(5), 19, db, nil).LoadStations(ctx, path)
	if err != nil {
		t.Fatalf("LoadStations() error = %v", err)
	}
	if st.RowsRead != st.Inserted+st.Skipped {
		t.Errorf("read %d, want inserted %d + skipped %d", st.RowsRead, st.Inserted, st.Skipped)
	}
	if st.Inserted != 1 || st.SkipReasons[ReasonDuplicateStationID] != 1 {
		t.Errorf("stats = %+v, want 1 inserted and 1 duplicate_station_id", st)
	}

	counts, err := db.CountRows(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Stations != 1 {
		t.Errorf("stations = %d, want 1", counts.Stations)
	}
}
