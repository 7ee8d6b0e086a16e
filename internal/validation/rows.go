// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package validation

import (
	"fmt"

	"github.com/tomtom215/trafficlens/internal/logging"
)

// StationFields are the columns every station record must carry.
var StationFields = []string{
	"station_key",
	"station_id",
	"name",
	"road_name",
	"full_name",
	"common_road_name",
	"lga",
	"suburb",
	"post_code",
	"road_functional_hierarchy",
	"lane_count",
	"road_classification_type",
	"device_type",
	"permanent_station",
	"vehicle_classifier",
	"heavy_vehicle_checking_station",
	"quality_rating",
	"wgs84_latitude",
	"wgs84_longitude",
}

// stationNumericFields must be present, non-null and numeric.
var stationNumericFields = []string{"station_key", "wgs84_latitude", "wgs84_longitude"}

// HourlyFields are the columns every derived hourly record must carry.
var HourlyFields = []string{
	"station_key",
	"traffic_direction_seq",
	"cardinal_direction_seq",
	"classification_seq",
	"date",
	"year",
	"month",
	"day_of_week",
	"is_public_holiday",
	"is_school_holiday",
	"daily_total",
}

var hourlyNumericFields = []string{
	"station_key",
	"traffic_direction_seq",
	"cardinal_direction_seq",
	"classification_seq",
}

// RowError describes why a record was rejected.
type RowError struct {
	Field  string
	Value  string
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s=%q: %s", e.Field, e.Value, e.Reason)
}

// stationCoordinates carries the range rules checked by the struct validator.
// Out-of-range coordinates cannot form a WGS84 point, so they are rejected
// along with non-numeric ones.
type stationCoordinates struct {
	Latitude  float64 `validate:"latitude"`
	Longitude float64 `validate:"longitude"`
}

// hourlyRanges carries the sequence range rules checked by the struct validator.
type hourlyRanges struct {
	TrafficDirectionSeq  int64 `validate:"min=1,max=2"`
	CardinalDirectionSeq int64 `validate:"min=1,max=4"`
	ClassificationSeq    int64 `validate:"min=0,max=3"`
}

var rangeFieldNames = map[string]string{
	"Latitude":             "wgs84_latitude",
	"Longitude":            "wgs84_longitude",
	"TrafficDirectionSeq":  "traffic_direction_seq",
	"CardinalDirectionSeq": "cardinal_direction_seq",
	"ClassificationSeq":    "classification_seq",
}

// CheckStationRow returns nil when record is a valid station row.
func CheckStationRow(record map[string]string) *RowError {
	for _, field := range StationFields {
		if _, ok := record[field]; !ok {
			return &RowError{Field: field, Reason: "missing required field"}
		}
	}

	numbers := make(map[string]float64, len(stationNumericFields))
	for _, field := range stationNumericFields {
		raw := record[field]
		if IsNull(raw) {
			return &RowError{Field: field, Value: raw, Reason: "null value"}
		}
		f, ok := ParseNumber(raw)
		if !ok {
			return &RowError{Field: field, Value: raw, Reason: "not numeric"}
		}
		numbers[field] = f
	}

	coords := stationCoordinates{
		Latitude:  numbers["wgs84_latitude"],
		Longitude: numbers["wgs84_longitude"],
	}
	if verr := ValidateStruct(&coords); verr != nil {
		return rangeError(verr, record)
	}
	return nil
}

// CheckHourlyRow returns nil when record is a valid derived hourly row.
func CheckHourlyRow(record map[string]string) *RowError {
	for _, field := range HourlyFields {
		if _, ok := record[field]; !ok {
			return &RowError{Field: field, Reason: "missing required field"}
		}
	}

	seqs := make(map[string]int64, len(hourlyNumericFields))
	for _, field := range hourlyNumericFields {
		raw := record[field]
		if _, ok := ParseNumber(raw); !ok {
			return &RowError{Field: field, Value: raw, Reason: "not numeric"}
		}
		v, ok := ParseInt(raw)
		if !ok {
			return &RowError{Field: field, Value: raw, Reason: "not an integer"}
		}
		seqs[field] = v
	}

	if _, err := ParseDate(record["date"]); err != nil {
		return &RowError{Field: "date", Value: record["date"], Reason: "not a calendar date"}
	}

	if _, ok := ParseNumber(record["daily_total"]); !ok {
		return &RowError{Field: "daily_total", Value: record["daily_total"], Reason: "not numeric"}
	}

	ranges := hourlyRanges{
		TrafficDirectionSeq:  seqs["traffic_direction_seq"],
		CardinalDirectionSeq: seqs["cardinal_direction_seq"],
		ClassificationSeq:    seqs["classification_seq"],
	}
	if verr := ValidateStruct(&ranges); verr != nil {
		return rangeError(verr, record)
	}
	return nil
}

func rangeError(verr *RequestValidationError, record map[string]string) *RowError {
	first := verr.Errors()[0]
	field := rangeFieldNames[first.Field()]
	return &RowError{Field: field, Value: record[field], Reason: first.Error()}
}

// ValidateStationRow reports whether record is a valid station row,
// logging the offending field and value on failure.
func ValidateStationRow(record map[string]string) bool {
	if rerr := CheckStationRow(record); rerr != nil {
		logRejection("station", record["station_key"], rerr)
		return false
	}
	return true
}

// ValidateHourlyRow reports whether record is a valid hourly row,
// logging the offending field and value on failure.
func ValidateHourlyRow(record map[string]string) bool {
	if rerr := CheckHourlyRow(record); rerr != nil {
		logRejection("hourly", record["station_key"], rerr)
		return false
	}
	return true
}

func logRejection(rowType, stationKey string, rerr *RowError) {
	logging.Warn().
		Str("row_type", rowType).
		Str("station_key", stationKey).
		Str("field", rerr.Field).
		Str("value", rerr.Value).
		Str("reason", rerr.Reason).
		Msg("Row rejected")
}

// BatchResult summarises a batch validation.
type BatchResult struct {
	Total  int
	Passed int
	Failed int
}

// AllPassed reports whether every record in the batch was valid.
func (r BatchResult) AllPassed() bool {
	return r.Failed == 0
}

// ValidateStationRows validates every record and counts the outcomes.
func ValidateStationRows(records []map[string]string) BatchResult {
	return validateBatch(records, ValidateStationRow)
}

// ValidateHourlyRows validates every record and counts the outcomes.
func ValidateHourlyRows(records []map[string]string) BatchResult {
	return validateBatch(records, ValidateHourlyRow)
}

func validateBatch(records []map[string]string, check func(map[string]string) bool) BatchResult {
	res := BatchResult{Total: len(records)}
	for _, rec := range records {
		if check(rec) {
			res.Passed++
		} else {
			res.Failed++
		}
	}
	return res
}
