// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package models

import (
	"fmt"
	"math"
)

// CoordinatePrecision is the number of decimals kept when building station geometry.
const CoordinatePrecision = 6

// Station is a traffic counting site.
type Station struct {
	StationKey                  int64   `json:"station_key"`
	StationID                   string  `json:"station_id"`
	Name                        string  `json:"name"`
	RoadName                    string  `json:"road_name"`
	FullName                    string  `json:"full_name"`
	CommonRoadName              string  `json:"common_road_name"`
	LGA                         string  `json:"lga"`
	Suburb                      string  `json:"suburb"`
	PostCode                    string  `json:"post_code"`
	RoadFunctionalHierarchy     string  `json:"road_functional_hierarchy"`
	LaneCount                   string  `json:"lane_count"`
	RoadClassificationType      string  `json:"road_classification_type"`
	DeviceType                  string  `json:"device_type"`
	PermanentStation            bool    `json:"permanent_station"`
	VehicleClassifier           bool    `json:"vehicle_classifier"`
	HeavyVehicleCheckingStation bool    `json:"heavy_vehicle_checking_station"`
	QualityRating               int     `json:"quality_rating"`
	Latitude                    float64 `json:"wgs84_latitude"`
	Longitude                   float64 `json:"wgs84_longitude"`

	// LocationWKT is POINT(lon lat) with both coordinates rounded to
	// CoordinatePrecision decimals, SRID 4326.
	LocationWKT string `json:"location_wkt"`
}

// RoundCoordinate rounds a WGS84 coordinate to CoordinatePrecision decimals.
func RoundCoordinate(v float64) float64 {
	p := math.Pow10(CoordinatePrecision)
	return math.Round(v*p) / p
}

// PointWKT builds the WKT point for a longitude/latitude pair.
// Longitude comes first, as in every WKT/GeoJSON consumer.
func PointWKT(lon, lat float64) string {
	return fmt.Sprintf("POINT(%.*f %.*f)",
		CoordinatePrecision, RoundCoordinate(lon),
		CoordinatePrecision, RoundCoordinate(lat))
}

// StationFilter narrows station listings. Empty slices and nil pointers
// mean "no restriction".
type StationFilter struct {
	LGAs        []string `json:"lgas,omitempty"`
	Suburbs     []string `json:"suburbs,omitempty"`
	RoadNames   []string `json:"road_names,omitempty"` // matched against road_name or common_road_name
	Hierarchies []string `json:"hierarchies,omitempty"`

	VehicleClassifier *bool `json:"vehicle_classifier,omitempty"`
	PermanentStation  *bool `json:"permanent_station,omitempty"`
	MinQualityRating  *int  `json:"min_quality_rating,omitempty"`

	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Column identifies a station column that supports distinct-value lookups.
type Column string

// Permitted distinct-value columns.
const (
	ColumnLGA                     Column = "lga"
	ColumnSuburb                  Column = "suburb"
	ColumnRoadName                Column = "road_name"
	ColumnRoadFunctionalHierarchy Column = "road_functional_hierarchy"
	ColumnRoadClassificationType  Column = "road_classification_type"
	ColumnDeviceType              Column = "device_type"
)

// Columns lists every permitted Column in display order.
var Columns = []Column{
	ColumnLGA,
	ColumnSuburb,
	ColumnRoadName,
	ColumnRoadFunctionalHierarchy,
	ColumnRoadClassificationType,
	ColumnDeviceType,
}

// Valid reports whether c is one of the permitted columns.
func (c Column) Valid() bool {
	for _, known := range Columns {
		if c == known {
			return true
		}
	}
	return false
}
