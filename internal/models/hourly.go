// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package models

import (
	"fmt"
	"time"
)

// HoursPerDay is the number of hourly volume columns on a count record.
const HoursPerDay = 24

// DateLayout is the canonical count_date format.
const DateLayout = "2006-01-02"

// Traffic direction sequence values. DirectionBoth is a query-time flag
// only and is never stored.
const (
	DirectionPrescribed = 1
	DirectionOpposite   = 2
	DirectionBoth       = 3
)

// Classification sequence values used by the aggregation engine.
const (
	ClassificationUnclassified = 0
	ClassificationAllVehicles  = 1
	ClassificationLight        = 2
	ClassificationHeavy        = 3
)

// HourlyCount is one day of hourly volumes for a station, traffic
// direction, cardinal direction and vehicle classification.
type HourlyCount struct {
	CountID              int64     `json:"count_id"`
	StationKey           int64     `json:"station_key"`
	TrafficDirectionSeq  int       `json:"traffic_direction_seq"`
	CardinalDirectionSeq int       `json:"cardinal_direction_seq"`
	ClassificationSeq    int       `json:"classification_seq"`
	CountDate            time.Time `json:"count_date"`
	Year                 int       `json:"year"`
	Month                int       `json:"month"`
	DayOfWeek            int       `json:"day_of_week"` // ISO: 1=Mon..7=Sun
	IsPublicHoliday      bool      `json:"is_public_holiday"`
	IsSchoolHoliday      bool      `json:"is_school_holiday"`

	// Hours holds hour_00..hour_23. nil means not measured.
	Hours [HoursPerDay]*int64 `json:"hours"`

	// DailyTotal is nil only under the require_min_hours policy.
	DailyTotal *int64 `json:"daily_total"`
}

// NaturalKey identifies an hourly record independently of its surrogate count_id.
type NaturalKey struct {
	StationKey           int64
	CountDate            string
	TrafficDirectionSeq  int
	CardinalDirectionSeq int
	ClassificationSeq    int
}

// Key returns the record's natural key.
func (h *HourlyCount) Key() NaturalKey {
	return NaturalKey{
		StationKey:           h.StationKey,
		CountDate:            h.CountDate.Format(DateLayout),
		TrafficDirectionSeq:  h.TrafficDirectionSeq,
		CardinalDirectionSeq: h.CardinalDirectionSeq,
		ClassificationSeq:    h.ClassificationSeq,
	}
}

// PopulatedHours counts the measured hours.
func (h *HourlyCount) PopulatedHours() int {
	n := 0
	for _, v := range h.Hours {
		if v != nil {
			n++
		}
	}
	return n
}

// Hour returns the volume for hour and whether it was measured.
func (h *HourlyCount) Hour(hour int) (int64, bool) {
	if hour < 0 || hour >= HoursPerDay || h.Hours[hour] == nil {
		return 0, false
	}
	return *h.Hours[hour], true
}

// IsWeekday reports whether the record falls on Monday..Friday.
func (h *HourlyCount) IsWeekday() bool {
	return h.DayOfWeek >= 1 && h.DayOfWeek <= 5
}

// HourColumn returns the column name for an hour, e.g. hour_07.
func HourColumn(hour int) string {
	return fmt.Sprintf("hour_%02d", hour)
}

// ISOWeekday converts Go's Sunday-based weekday to ISO 1=Mon..7=Sun.
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// Int64Ptr is a small helper for building nullable hour values.
func Int64Ptr(v int64) *int64 {
	return &v
}

// HourlyQuery selects hourly rows for aggregation.
type HourlyQuery struct {
	StationKeys []int64 `json:"station_keys"`

	// From and To bound count_date inclusively. Zero values are open ends.
	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	// Direction is 1, 2, or DirectionBoth. 0 is treated as DirectionBoth.
	Direction int `json:"direction"`

	// Classifications restricts classification_seq; empty means all.
	Classifications []int `json:"classifications,omitempty"`

	ExcludePublicHolidays bool `json:"exclude_public_holidays,omitempty"`
}

// DailyTotal is one (date, daily_total) point used for trend charts.
type DailyTotal struct {
	CountDate         time.Time `json:"count_date"`
	ClassificationSeq int       `json:"classification_seq"`
	DailyTotal        int64     `json:"daily_total"`
}
