// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package ingest

import (
	"strconv"
	"strings"

	"github.com/tomtom215/trafficlens/internal/config"
	"github.com/tomtom215/trafficlens/internal/logging"
	"github.com/tomtom215/trafficlens/internal/models"
	"github.com/tomtom215/trafficlens/internal/validation"
)

// Mapper converts raw CSV records into store rows.
type Mapper struct {
	policy        string
	minValidHours int
}

// NewMapper creates a mapper. An empty policy means config.DailyTotalSum.
func NewMapper(policy string, minValidHours int) *Mapper {
	if policy == "" {
		policy = config.DailyTotalSum
	}
	return &Mapper{policy: policy, minValidHours: minValidHours}
}

// text returns a trimmed value with null tokens mapped to "".
func text(record map[string]string, field string) string {
	raw := record[field]
	if validation.IsNull(raw) {
		return ""
	}
	return strings.TrimSpace(raw)
}

// MapStation converts a station record. reason is non-empty when the
// row must be skipped.
func (m *Mapper) MapStation(record map[string]string) (s models.Station, reason string) {
	lat, latOK := validation.ParseNumber(record["wgs84_latitude"])
	lon, lonOK := validation.ParseNumber(record["wgs84_longitude"])
	if !latOK || !lonOK {
		logging.Warn().
			Str("station_key", record["station_key"]).
			Str("wgs84_latitude", record["wgs84_latitude"]).
			Str("wgs84_longitude", record["wgs84_longitude"]).
			Msg("Skipping station with missing or non-numeric coordinates")
		return s, ReasonGeocode
	}

	if !validation.ValidateStationRow(record) {
		return s, ReasonInvalidRow
	}

	key, ok := validation.ParseInt(record["station_key"])
	if !ok {
		logging.Warn().Str("station_key", record["station_key"]).Msg("Skipping station with non-integer key")
		return s, ReasonInvalidRow
	}

	quality, _ := validation.ParseInt(record["quality_rating"])

	s = models.Station{
		StationKey:                  key,
		StationID:                   text(record, "station_id"),
		Name:                        text(record, "name"),
		RoadName:                    text(record, "road_name"),
		FullName:                    text(record, "full_name"),
		CommonRoadName:              text(record, "common_road_name"),
		LGA:                         text(record, "lga"),
		Suburb:                      text(record, "suburb"),
		PostCode:                    text(record, "post_code"),
		RoadFunctionalHierarchy:     text(record, "road_functional_hierarchy"),
		LaneCount:                   text(record, "lane_count"),
		RoadClassificationType:      text(record, "road_classification_type"),
		DeviceType:                  text(record, "device_type"),
		PermanentStation:            validation.ParseBool(record["permanent_station"]),
		VehicleClassifier:           validation.ParseBool(record["vehicle_classifier"]),
		HeavyVehicleCheckingStation: validation.ParseBool(record["heavy_vehicle_checking_station"]),
		QualityRating:               int(quality),
		Latitude:                    lat,
		Longitude:                   lon,
		LocationWKT:                 models.PointWKT(lon, lat),
	}
	if s.StationID == "" {
		s.StationID = strconv.FormatInt(key, 10)
	}
	return s, ""
}

// coerceHour parses one hour cell. Missing or non-numeric values are
// stored as NULL but count as 0 in daily_total, so the stored hour and
// the summed hour differ for unmeasured cells. Negative volumes clamp
// to 0 and fractions truncate.
func coerceHour(raw string) *int64 {
	f, ok := validation.ParseNumber(raw)
	if !ok {
		return nil
	}
	if f < 0 {
		f = 0
	}
	return models.Int64Ptr(int64(f))
}

// MapHourly converts an hourly record whose station is in known.
// reason is non-empty when the row must be skipped.
func (m *Mapper) MapHourly(record map[string]string, known map[int64]struct{}) (h models.HourlyCount, reason string) {
	key, ok := validation.ParseInt(record["station_key"])
	if !ok {
		logging.Warn().Str("station_key", record["station_key"]).Msg("Skipping hourly row with invalid station key")
		return h, ReasonInvalidRow
	}
	if _, ok := known[key]; !ok {
		logging.Warn().Int64("station_key", key).Msg("Skipping hourly row for unknown station")
		return h, ReasonUnknownStation
	}

	date, err := validation.ParseDate(record["date"])
	if err != nil {
		logging.Warn().Int64("station_key", key).Str("date", record["date"]).Msg("Skipping hourly row with unparseable date")
		return h, ReasonBadDate
	}

	h = models.HourlyCount{
		StationKey:      key,
		CountDate:       date,
		Year:            date.Year(),
		Month:           int(date.Month()),
		DayOfWeek:       models.ISOWeekday(date),
		IsPublicHoliday: validation.ParseBool(record["is_public_holiday"]),
		IsSchoolHoliday: validation.ParseBool(record["is_school_holiday"]),
	}

	var sum int64
	for i := range h.Hours {
		h.Hours[i] = coerceHour(record[models.HourColumn(i)])
		if h.Hours[i] != nil {
			sum += *h.Hours[i]
		}
	}
	h.DailyTotal = models.Int64Ptr(sum)

	derived := make(map[string]string, len(record)+4)
	for k, v := range record {
		derived[k] = v
	}
	derived["year"] = strconv.Itoa(h.Year)
	derived["month"] = strconv.Itoa(h.Month)
	derived["day_of_week"] = strconv.Itoa(h.DayOfWeek)
	derived["daily_total"] = strconv.FormatInt(sum, 10)
	for _, f := range []string{"is_public_holiday", "is_school_holiday"} {
		if _, ok := derived[f]; !ok {
			derived[f] = "false"
		}
	}

	if !validation.ValidateHourlyRow(derived) {
		return models.HourlyCount{}, ReasonInvalidRow
	}

	dir, _ := validation.ParseInt(record["traffic_direction_seq"])
	card, _ := validation.ParseInt(record["cardinal_direction_seq"])
	class, _ := validation.ParseInt(record["classification_seq"])
	h.TrafficDirectionSeq, h.CardinalDirectionSeq, h.ClassificationSeq = int(dir), int(card), int(class)

	if m.policy == config.DailyTotalRequireMinHours && h.PopulatedHours() < m.minValidHours {
		h.DailyTotal = nil
	}
	return h, ""
}
