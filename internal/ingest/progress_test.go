// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package ingest

import (
	"context"
	"testing"
	"time"
)

func testTrackers(t *testing.T) map[string]ProgressTracker {
	t.Helper()

	bp, err := OpenBadgerProgress(t.TempDir())
	if err != nil {
		t.Fatalf("OpenBadgerProgress() error = %v", err)
	}
	t.Cleanup(func() { _ = bp.Close() })

	return map[string]ProgressTracker{
		"memory": NewInMemoryProgress(),
		"badger": bp,
	}
}

func TestProgressTrackers(t *testing.T) {
	for name, tracker := range testTrackers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			loaded, err := tracker.Load(ctx, "hourly", "counts.csv")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if loaded != nil {
				t.Fatalf("Load() before Save = %+v, want nil", loaded)
			}

			cp := Checkpoint{Kind: "hourly", File: "counts.csv", Offset: 5000, RunID: "r1", UpdatedAt: time.Now()}
			if err := tracker.Save(ctx, cp); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			if err := tracker.Save(ctx, Checkpoint{Kind: "stations", File: "counts.csv", Offset: 7}); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			loaded, err = tracker.Load(ctx, "hourly", "counts.csv")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if loaded == nil || loaded.Offset != 5000 || loaded.RunID != "r1" {
				t.Errorf("Load() = %+v, want offset 5000 run r1", loaded)
			}

			if err := tracker.Clear(ctx, "hourly", "counts.csv"); err != nil {
				t.Fatalf("Clear() error = %v", err)
			}
			loaded, _ = tracker.Load(ctx, "hourly", "counts.csv")
			if loaded != nil {
				t.Errorf("Load() after Clear() = %+v, want nil", loaded)
			}

			other, _ := tracker.Load(ctx, "stations", "counts.csv")
			if other == nil || other.Offset != 7 {
				t.Errorf("other kind checkpoint = %+v, want offset 7", other)
			}

			if err := tracker.Clear(ctx, "hourly", "missing.csv"); err != nil {
				t.Errorf("Clear() of missing key error = %v", err)
			}
		})
	}
}

func TestStats(t *testing.T) {
	t.Run("Duration of a finished run", func(t *testing.T) {
		start := time.Now().Add(-10 * time.Minute)
		s := &Stats{StartTime: start, EndTime: start.Add(5 * time.Minute)}
		if s.Duration() != 5*time.Minute {
			t.Errorf("Duration() = %v, want 5m", s.Duration())
		}
	})

	t.Run("RowsPerSecond", func(t *testing.T) {
		now := time.Now()
		s := &Stats{RowsRead: 100, StartTime: now.Add(-10 * time.Second), EndTime: now}
		if r := s.RowsPerSecond(); r < 9 || r > 11 {
			t.Errorf("RowsPerSecond() = %f, want ~10", r)
		}

		s = &Stats{RowsRead: 100, StartTime: now, EndTime: now}
		if r := s.RowsPerSecond(); r != 0 {
			t.Errorf("RowsPerSecond() zero duration = %f, want 0", r)
		}
	})

	t.Run("clone copies skip reasons", func(t *testing.T) {
		s := newStats("r", "stations", "f.csv")
		s.skip(ReasonGeocode)
		c := s.clone()
		s.skip(ReasonGeocode)
		if c.SkipReasons[ReasonGeocode] != 1 {
			t.Errorf("clone SkipReasons = %v, want geocode=1", c.SkipReasons)
		}
		if s.Skipped != 2 {
			t.Errorf("Skipped = %d, want 2", s.Skipped)
		}
	})

	t.Run("ToSummary", func(t *testing.T) {
		s := newStats("r", "hourly", "f.csv")
		s.RowsRead = 1234567
		s.SkipReasons[ReasonBadDate] = 1500

		sum := s.ToSummary(true)
		if sum.Status != "running" {
			t.Errorf("Status = %q, want running", sum.Status)
		}
		if sum.RowsRead != "1,234,567" {
			t.Errorf("RowsRead = %q, want 1,234,567", sum.RowsRead)
		}
		if sum.SkipReasons[ReasonBadDate] != "1,500" {
			t.Errorf("SkipReasons = %v", sum.SkipReasons)
		}

		s.Status = "completed"
		if got := s.ToSummary(false).Status; got != "completed" {
			t.Errorf("Status = %q, want completed", got)
		}
		if got := (&Stats{}).ToSummary(false).Status; got != "pending" {
			t.Errorf("Status = %q, want pending", got)
		}
	})

	t.Run("Run", func(t *testing.T) {
		s := newStats("r", "stations", "f.csv")
		s.Inserted = 3
		s.Status = "completed"
		run := s.Run()
		if run.RunID != "r" || run.Inserted != 3 || run.Status != "completed" {
			t.Errorf("Run() = %+v", run)
		}
	})
}
