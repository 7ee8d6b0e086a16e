// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/trafficlens/internal/aggregate"
	"github.com/tomtom215/trafficlens/internal/cache"
	"github.com/tomtom215/trafficlens/internal/logging"
	"github.com/tomtom215/trafficlens/internal/metrics"
	"github.com/tomtom215/trafficlens/internal/models"
)

// DefaultWindowDays is the profile window ending at a station's latest count date.
const DefaultWindowDays = 90

// ErrNoData is returned when a station has no hourly counts.
var ErrNoData = errors.New("no count data for station")

// ErrInvalidWindow is returned when a window starts after it ends.
var ErrInvalidWindow = errors.New("invalid window")

// Store is the read surface of the query layer.
type Store interface {
	ListStations(ctx context.Context, f models.StationFilter) ([]models.Station, error)
	GetStation(ctx context.Context, key int64) (*models.Station, error)
	DistinctValues(ctx context.Context, col models.Column) ([]string, error)
	SuburbsForLGAs(ctx context.Context, lgas []string) ([]string, error)
	HourlyCounts(ctx context.Context, q models.HourlyQuery) ([]models.HourlyCount, error)
	DailyTotals(ctx context.Context, q models.HourlyQuery) ([]models.DailyTotal, error)
	LatestCountDate(ctx context.Context, stationKey int64) (time.Time, bool, error)
	CountYears(ctx context.Context, stationKey int64) ([]int, error)
}

// Service answers analytics questions over the store, memoising results.
type Service struct {
	store  Store
	engine *aggregate.Engine
	cache  cache.Cacher
	cb     *gobreaker.CircuitBreaker[any]
}

// New creates a service with the default breaker settings.
func New(store Store, engine *aggregate.Engine, c cache.Cacher) *Service {
	return NewWithBreaker(store, engine, c, DefaultBreakerSettings())
}

// NewWithBreaker creates a service with explicit breaker settings.
func NewWithBreaker(store Store, engine *aggregate.Engine, c cache.Cacher, st BreakerSettings) *Service {
	return &Service{
		store:  store,
		engine: engine,
		cache:  c,
		cb:     newBreaker(st),
	}
}

// Engine exposes the aggregation engine and its thresholds.
func (s *Service) Engine() *aggregate.Engine {
	return s.engine
}

// cached returns the memoised result for method+params or computes it
// through load and stores it.
func cached[T any](s *Service, method string, params interface{}, load func() (T, error)) (T, error) {
	key := cache.GenerateKey(method, params)
	if v, ok := s.cache.Get(key); ok {
		if typed, ok := v.(T); ok {
			metrics.RecordCacheLookup(method, true)
			return typed, nil
		}
	}
	metrics.RecordCacheLookup(method, false)

	v, err := load()
	if err != nil {
		return v, err
	}
	s.cache.Set(key, v)
	return v, nil
}

// Invalidate drops every memoised result. Called after ingestion.
func (s *Service) Invalidate() {
	s.cache.Clear()
	metrics.CacheInvalidations.Inc()
	logging.Debug().Msg("Analytics cache invalidated")
}

// CacheStats returns hit and miss counters of the result cache.
func (s *Service) CacheStats() cache.Stats {
	return s.cache.GetStats()
}

// Stations lists stations matching f.
func (s *Service) Stations(ctx context.Context, f models.StationFilter) ([]models.Station, error) {
	return cached(s, "Stations", f, func() ([]models.Station, error) {
		return guarded(s, func() ([]models.Station, error) { return s.store.ListStations(ctx, f) })
	})
}

// Station returns one station.
func (s *Service) Station(ctx context.Context, key int64) (*models.Station, error) {
	return cached(s, "Station", key, func() (*models.Station, error) {
		return guarded(s, func() (*models.Station, error) { return s.store.GetStation(ctx, key) })
	})
}

// FilterOptions returns the distinct values of a permitted column.
func (s *Service) FilterOptions(ctx context.Context, col models.Column) ([]string, error) {
	return cached(s, "FilterOptions", col, func() ([]string, error) {
		return guarded(s, func() ([]string, error) { return s.store.DistinctValues(ctx, col) })
	})
}

// Suburbs returns the suburbs inside lgas, or all suburbs.
func (s *Service) Suburbs(ctx context.Context, lgas []string) ([]string, error) {
	return cached(s, "Suburbs", lgas, func() ([]string, error) {
		return guarded(s, func() ([]string, error) { return s.store.SuburbsForLGAs(ctx, lgas) })
	})
}

// Query selects the rows behind a profile, peak or trend result.
type Query struct {
	StationKey int64 `json:"station_key"`

	// From and To bound the window. When both are zero the window is the
	// DefaultWindowDays ending at the latest count date. When only From is
	// zero it starts DefaultWindowDays before To.
	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	// Direction is 1, 2 or 3 (both). 0 means both.
	Direction int `json:"direction"`

	// Classification defaults to the all-vehicles class.
	Classification *int `json:"classification,omitempty"`

	WeekdaysOnly          bool `json:"weekdays_only"`
	ExcludePublicHolidays bool `json:"exclude_public_holidays"`
}

// Window is the resolved date range and filters of a result.
type Window struct {
	StationKey     int64  `json:"station_key"`
	From           string `json:"from"`
	To             string `json:"to"`
	Direction      int    `json:"direction"`
	DirectionLabel string `json:"direction_label"`
	Classification int    `json:"classification"`
	Records        int    `json:"records"`
}

// resolve fills defaults and returns the hourly query for q.
func (s *Service) resolve(ctx context.Context, q Query) (models.HourlyQuery, Window, error) {
	if _, err := s.Station(ctx, q.StationKey); err != nil {
		return models.HourlyQuery{}, Window{}, err
	}

	if q.Direction == 0 {
		q.Direction = models.DirectionBoth
	}
	class := s.engine.Thresholds().AllVehiclesClass
	if q.Classification != nil {
		class = *q.Classification
	}

	from, to := q.From, q.To
	if to.IsZero() {
		latest, err := s.latest(ctx, q.StationKey)
		if err != nil {
			return models.HourlyQuery{}, Window{}, err
		}
		to = latest
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -(DefaultWindowDays - 1))
	}
	if from.After(to) {
		return models.HourlyQuery{}, Window{}, fmt.Errorf("%w: start %s is after end %s", ErrInvalidWindow,
			from.Format(models.DateLayout), to.Format(models.DateLayout))
	}

	hq := models.HourlyQuery{
		StationKeys:           []int64{q.StationKey},
		From:                  from,
		To:                    to,
		Direction:             q.Direction,
		Classifications:       []int{class},
		ExcludePublicHolidays: q.ExcludePublicHolidays,
	}
	w := Window{
		StationKey:     q.StationKey,
		From:           from.Format(models.DateLayout),
		To:             to.Format(models.DateLayout),
		Direction:      q.Direction,
		DirectionLabel: aggregate.DirectionLabel(q.Direction),
		Classification: class,
	}
	return hq, w, nil
}

func (s *Service) latest(ctx context.Context, key int64) (time.Time, error) {
	type latestDate struct {
		Date time.Time
		OK   bool
	}
	ld, err := cached(s, "LatestCountDate", key, func() (latestDate, error) {
		return guarded(s, func() (latestDate, error) {
			d, ok, err := s.store.LatestCountDate(ctx, key)
			return latestDate{Date: d, OK: ok}, err
		})
	})
	if err != nil {
		return time.Time{}, err
	}
	if !ld.OK {
		return time.Time{}, ErrNoData
	}
	return ld.Date, nil
}

func (s *Service) rows(ctx context.Context, hq models.HourlyQuery) ([]models.HourlyCount, error) {
	return cached(s, "HourlyCounts", hq, func() ([]models.HourlyCount, error) {
		return guarded(s, func() ([]models.HourlyCount, error) { return s.store.HourlyCounts(ctx, hq) })
	})
}

// ProfileResult is the average hourly volume of a window.
type ProfileResult struct {
	Window
	WeekdaysOnly bool                      `json:"weekdays_only"`
	Hours        []aggregate.HourlyAverage `json:"hours"`
	Weekday      []aggregate.HourlyAverage `json:"weekday"`
	Weekend      []aggregate.HourlyAverage `json:"weekend"`
}

// Profile computes the 24-hour average profile for q.
func (s *Service) Profile(ctx context.Context, q Query) (*ProfileResult, error) {
	return cached(s, "Profile", q, func() (*ProfileResult, error) {
		hq, w, err := s.resolve(ctx, q)
		if err != nil {
			return nil, err
		}
		rows, err := s.rows(ctx, hq)
		if err != nil {
			return nil, err
		}
		w.Records = len(rows)
		weekday, weekend := s.engine.SplitProfiles(rows)
		return &ProfileResult{
			Window:       w,
			WeekdaysOnly: q.WeekdaysOnly,
			Hours:        s.engine.HourlyProfile(rows, q.WeekdaysOnly),
			Weekday:      weekday,
			Weekend:      weekend,
		}, nil
	})
}

// PeaksResult holds the AM and PM peak volumes of a window.
type PeaksResult struct {
	Window
	aggregate.PeakVolumes
	AMWindow [2]int `json:"am_window"`
	PMWindow [2]int `json:"pm_window"`
}

// Peaks computes average AM and PM peak volumes for q.
func (s *Service) Peaks(ctx context.Context, q Query) (*PeaksResult, error) {
	return cached(s, "Peaks", q, func() (*PeaksResult, error) {
		hq, w, err := s.resolve(ctx, q)
		if err != nil {
			return nil, err
		}
		rows, err := s.rows(ctx, hq)
		if err != nil {
			return nil, err
		}
		if q.WeekdaysOnly {
			rows = weekdayRows(rows)
		}
		w.Records = len(rows)
		th := s.engine.Thresholds()
		return &PeaksResult{
			Window:      w,
			PeakVolumes: s.engine.PeakVolumes(rows),
			AMWindow:    [2]int{th.AMPeakStart, th.AMPeakEnd},
			PMWindow:    [2]int{th.PMPeakStart, th.PMPeakEnd},
		}, nil
	})
}

func weekdayRows(rows []models.HourlyCount) []models.HourlyCount {
	out := make([]models.HourlyCount, 0, len(rows))
	for i := range rows {
		if rows[i].IsWeekday() {
			out = append(out, rows[i])
		}
	}
	return out
}

// TrendResult is the daily series of a window.
type TrendResult struct {
	Window

	// Points average daily_total per date across the matching rows.
	Points []aggregate.TrendPoint `json:"points"`

	// Totals sum daily_total per date across directions.
	Totals []models.DailyTotal `json:"totals"`
}

// Trend returns the daily series for q.
func (s *Service) Trend(ctx context.Context, q Query) (*TrendResult, error) {
	return cached(s, "Trend", q, func() (*TrendResult, error) {
		hq, w, err := s.resolve(ctx, q)
		if err != nil {
			return nil, err
		}
		rows, err := s.rows(ctx, hq)
		if err != nil {
			return nil, err
		}
		totals, err := guarded(s, func() ([]models.DailyTotal, error) { return s.store.DailyTotals(ctx, hq) })
		if err != nil {
			return nil, err
		}
		w.Records = len(rows)
		return &TrendResult{Window: w, Points: aggregate.DailyTrend(rows), Totals: totals}, nil
	})
}

// SummaryResult holds the annual indicators of a station.
type SummaryResult struct {
	StationKey             int64   `json:"station_key"`
	Year                   int     `json:"year"`
	Years                  []int   `json:"years"`
	AADT                   float64 `json:"aadt"`
	AAWT                   float64 `json:"aawt"`
	HeavyVehiclePercentage float64 `json:"heavy_vehicle_percentage"`
	Days                   int     `json:"days"`
	Records                int     `json:"records"`
}

// Summary computes AADT, AAWT and heavy-vehicle share for a station and
// year. Year 0 selects the newest year with data.
func (s *Service) Summary(ctx context.Context, stationKey int64, year int) (*SummaryResult, error) {
	return cached(s, "Summary", []int64{stationKey, int64(year)}, func() (*SummaryResult, error) {
		if _, err := s.Station(ctx, stationKey); err != nil {
			return nil, err
		}

		years, err := guarded(s, func() ([]int, error) { return s.store.CountYears(ctx, stationKey) })
		if err != nil {
			return nil, err
		}
		if len(years) == 0 {
			return nil, ErrNoData
		}
		if year == 0 {
			year = years[0]
		}

		th := s.engine.Thresholds()
		hq := models.HourlyQuery{
			StationKeys:     []int64{stationKey},
			From:            time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
			To:              time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
			Direction:       models.DirectionBoth,
			Classifications: []int{th.AllVehiclesClass, th.HeavyVehiclesClass},
		}
		rows, err := s.rows(ctx, hq)
		if err != nil {
			return nil, err
		}

		all := make([]models.HourlyCount, 0, len(rows))
		days := make(map[time.Time]struct{})
		for i := range rows {
			if rows[i].ClassificationSeq == th.AllVehiclesClass {
				all = append(all, rows[i])
				days[rows[i].CountDate] = struct{}{}
			}
		}

		return &SummaryResult{
			StationKey:             stationKey,
			Year:                   year,
			Years:                  years,
			AADT:                   s.engine.AADT(all),
			AAWT:                   s.engine.AAWT(all),
			HeavyVehiclePercentage: s.engine.HeavyVehiclePercentage(rows),
			Days:                   len(days),
			Records:                len(rows),
		}, nil
	})
}
