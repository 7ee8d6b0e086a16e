// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package aggregate

import (
	"math"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/tomtom215/trafficlens/internal/config"
	"github.com/tomtom215/trafficlens/internal/models"
)

// Thresholds are the named constants the metrics depend on.
// Peak windows are inclusive on both ends.
type Thresholds struct {
	AMPeakStart        int `json:"am_peak_start"`
	AMPeakEnd          int `json:"am_peak_end"`
	PMPeakStart        int `json:"pm_peak_start"`
	PMPeakEnd          int `json:"pm_peak_end"`
	MinValidHours      int `json:"min_valid_hours"`
	AllVehiclesClass   int `json:"all_vehicles_class"`
	HeavyVehiclesClass int `json:"heavy_vehicles_class"`
}

// DefaultThresholds returns AM 6..9, PM 15..18 and the 19 of 24 hour floor.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AMPeakStart:        6,
		AMPeakEnd:          9,
		PMPeakStart:        15,
		PMPeakEnd:          18,
		MinValidHours:      19,
		AllVehiclesClass:   models.ClassificationAllVehicles,
		HeavyVehiclesClass: models.ClassificationHeavy,
	}
}

// ThresholdsFromConfig copies the aggregation section of the config.
func ThresholdsFromConfig(cfg config.AggregationConfig) Thresholds {
	return Thresholds{
		AMPeakStart:        cfg.AMPeakStart,
		AMPeakEnd:          cfg.AMPeakEnd,
		PMPeakStart:        cfg.PMPeakStart,
		PMPeakEnd:          cfg.PMPeakEnd,
		MinValidHours:      cfg.MinValidHours,
		AllVehiclesClass:   cfg.AllVehiclesClass,
		HeavyVehiclesClass: cfg.HeavyVehiclesClass,
	}
}

// Engine computes metrics under a fixed set of thresholds.
type Engine struct {
	th Thresholds
}

// New creates an Engine.
func New(th Thresholds) *Engine {
	return &Engine{th: th}
}

// Thresholds returns the engine's thresholds.
func (e *Engine) Thresholds() Thresholds {
	return e.th
}

// PeakVolumes are mean per-record window totals.
type PeakVolumes struct {
	AMPeak float64 `json:"am_peak"`
	PMPeak float64 `json:"pm_peak"`
}

// PeakVolumes sums each peak window across all rows and divides by the
// row count. Unmeasured hours count as 0. Both peaks are 0 for no rows.
func (e *Engine) PeakVolumes(rows []models.HourlyCount) PeakVolumes {
	if len(rows) == 0 {
		return PeakVolumes{}
	}

	var am, pm float64
	for i := range rows {
		am += windowSum(&rows[i], e.th.AMPeakStart, e.th.AMPeakEnd)
		pm += windowSum(&rows[i], e.th.PMPeakStart, e.th.PMPeakEnd)
	}

	n := float64(len(rows))
	return PeakVolumes{AMPeak: am / n, PMPeak: pm / n}
}

func windowSum(row *models.HourlyCount, start, end int) float64 {
	var sum float64
	for h := start; h <= end; h++ {
		if v, ok := row.Hour(h); ok {
			sum += float64(v)
		}
	}
	return sum
}

// HourlyAverage is one point of an hourly profile. Volume is NaN when no
// row carried a value for the hour.
type HourlyAverage struct {
	Hour    int     `json:"hour"`
	Volume  float64 `json:"volume"`
	Samples int     `json:"samples"`
}

// MarshalJSON encodes a NaN volume as null.
func (h HourlyAverage) MarshalJSON() ([]byte, error) {
	var volume *float64
	if !math.IsNaN(h.Volume) {
		v := h.Volume
		volume = &v
	}
	return json.Marshal(struct {
		Hour    int      `json:"hour"`
		Volume  *float64 `json:"volume"`
		Samples int      `json:"samples"`
	}{h.Hour, volume, h.Samples})
}

// HourlyProfile returns exactly 24 (hour, mean) pairs in hour order. With
// weekdaysOnly, rows with day_of_week 6 or 7 are ignored. Each mean is
// taken over the rows that measured that hour.
func (e *Engine) HourlyProfile(rows []models.HourlyCount, weekdaysOnly bool) []HourlyAverage {
	return profile(rows, func(r *models.HourlyCount) bool {
		return !weekdaysOnly || r.IsWeekday()
	})
}

func profile(rows []models.HourlyCount, include func(*models.HourlyCount) bool) []HourlyAverage {
	values := make([][]float64, models.HoursPerDay)
	for i := range rows {
		if !include(&rows[i]) {
			continue
		}
		for h := 0; h < models.HoursPerDay; h++ {
			if v, ok := rows[i].Hour(h); ok {
				values[h] = append(values[h], float64(v))
			}
		}
	}

	out := make([]HourlyAverage, models.HoursPerDay)
	for h := range out {
		out[h] = HourlyAverage{Hour: h, Volume: math.NaN(), Samples: len(values[h])}
		if len(values[h]) > 0 {
			out[h].Volume = stat.Mean(values[h], nil)
		}
	}
	return out
}

// AADT is the mean daily_total over rows with at least MinValidHours
// measured hours. 0 when no row qualifies.
func (e *Engine) AADT(rows []models.HourlyCount) float64 {
	totals := make([]float64, 0, len(rows))
	for i := range rows {
		r := &rows[i]
		if r.DailyTotal == nil || r.PopulatedHours() < e.th.MinValidHours {
			continue
		}
		totals = append(totals, float64(*r.DailyTotal))
	}
	return meanOrZero(totals)
}

// AAWT is the mean daily_total over weekday rows that are not public
// holidays. 0 when no row qualifies.
func (e *Engine) AAWT(rows []models.HourlyCount) float64 {
	totals := make([]float64, 0, len(rows))
	for i := range rows {
		r := &rows[i]
		if r.DailyTotal == nil || !r.IsWeekday() || r.IsPublicHoliday {
			continue
		}
		totals = append(totals, float64(*r.DailyTotal))
	}
	return meanOrZero(totals)
}

// HeavyVehiclePercentage is 100 * sum(heavy daily_total) / sum(all-vehicle
// daily_total). 0 when the all-vehicle sum is 0.
func (e *Engine) HeavyVehiclePercentage(rows []models.HourlyCount) float64 {
	var all, heavy []float64
	for i := range rows {
		r := &rows[i]
		if r.DailyTotal == nil {
			continue
		}
		switch r.ClassificationSeq {
		case e.th.AllVehiclesClass:
			all = append(all, float64(*r.DailyTotal))
		case e.th.HeavyVehiclesClass:
			heavy = append(heavy, float64(*r.DailyTotal))
		}
	}

	allSum := floats.Sum(all)
	if allSum == 0 {
		return 0
	}
	return 100 * floats.Sum(heavy) / allSum
}

func meanOrZero(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// TrendPoint is the mean daily_total for one date.
type TrendPoint struct {
	Date       time.Time `json:"date"`
	DailyTotal float64   `json:"daily_total"`
	Records    int       `json:"records"`
}

// DailyTrend averages daily_total per count_date, sorted by date. Rows
// without a daily_total are skipped.
func DailyTrend(rows []models.HourlyCount) []TrendPoint {
	byDate := make(map[time.Time][]float64)
	for i := range rows {
		r := &rows[i]
		if r.DailyTotal == nil {
			continue
		}
		d := r.CountDate.UTC().Truncate(24 * time.Hour)
		byDate[d] = append(byDate[d], float64(*r.DailyTotal))
	}

	out := make([]TrendPoint, 0, len(byDate))
	for d, totals := range byDate {
		out = append(out, TrendPoint{Date: d, DailyTotal: stat.Mean(totals, nil), Records: len(totals)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// SplitProfiles returns separate weekday (Mon..Fri) and weekend (Sat, Sun)
// hourly profiles. Public holidays are excluded from both.
func (e *Engine) SplitProfiles(rows []models.HourlyCount) (weekday, weekend []HourlyAverage) {
	weekday = profile(rows, func(r *models.HourlyCount) bool {
		return !r.IsPublicHoliday && r.IsWeekday()
	})
	weekend = profile(rows, func(r *models.HourlyCount) bool {
		return !r.IsPublicHoliday && (r.DayOfWeek == 6 || r.DayOfWeek == 7)
	})
	return weekday, weekend
}

// DirectionLabel names a traffic direction sequence.
func DirectionLabel(seq int) string {
	switch seq {
	case models.DirectionPrescribed:
		return "Prescribed"
	case models.DirectionOpposite:
		return "Opposite"
	case models.DirectionBoth:
		return "Both"
	default:
		return "Unknown"
	}
}
