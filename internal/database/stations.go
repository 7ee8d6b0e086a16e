// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/trafficlens/internal/database/query"
	"github.com/tomtom215/trafficlens/internal/logging"
	"github.com/tomtom215/trafficlens/internal/models"
)

const stationColumns = `station_key, station_id, name, road_name, full_name, common_road_name,
	lga, suburb, post_code, road_functional_hierarchy, lane_count, road_classification_type,
	device_type, permanent_station, vehicle_classifier, heavy_vehicle_checking_station,
	quality_rating, wgs84_latitude, wgs84_longitude, location_wkt`

// InsertStations inserts stations in one transaction. Rows whose
// station_key or station_id already exists are dropped, so reloading a
// file is a no-op. Returns the number of rows actually inserted.
func (db *DB) InsertStations(ctx context.Context, stations []models.Station) (int64, error) {
	if len(stations) == 0 {
		return 0, nil
	}

	geom := "NULL"
	if db.spatialAvailable {
		geom = "ST_GeomFromText(?)"
	}
	stmtSQL := `INSERT INTO stations (` + stationColumns + db.geomColumn() + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?` + db.geomPlaceholder(geom) + `)
		ON CONFLICT DO NOTHING`

	start := time.Now()
	var inserted int64
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, stmtSQL)
		if err != nil {
			return fmt.Errorf("failed to prepare station insert: %w", err)
		}
		defer closeWithLog(stmt, nil, "prepared statement")

		for i := range stations {
			s := &stations[i]
			args := []interface{}{
				s.StationKey, s.StationID, s.Name, s.RoadName, s.FullName, s.CommonRoadName,
				s.LGA, s.Suburb, s.PostCode, s.RoadFunctionalHierarchy, s.LaneCount, s.RoadClassificationType,
				s.DeviceType, s.PermanentStation, s.VehicleClassifier, s.HeavyVehicleCheckingStation,
				s.QualityRating, s.Latitude, s.Longitude, s.LocationWKT,
			}
			if db.spatialAvailable {
				args = append(args, s.LocationWKT)
			}

			res, err := stmt.ExecContext(ctx, args...)
			if err != nil {
				return fmt.Errorf("failed to insert station %d: %w", s.StationKey, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				inserted += n
			}
		}
		return nil
	})
	observe("INSERT", "stations", start, err)
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (db *DB) geomColumn() string {
	if db.spatialAvailable {
		return ", location_geom"
	}
	return ""
}

func (db *DB) geomPlaceholder(expr string) string {
	if db.spatialAvailable {
		return ", " + expr
	}
	return ""
}

// StationKeys returns every stored station key.
func (db *DB) StationKeys(ctx context.Context) (map[int64]struct{}, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	keys, err := queryAndScan(ctx, db.conn, `SELECT station_key FROM stations`, nil,
		func(rows scanner) (int64, error) {
			var k int64
			err := rows.Scan(&k)
			return k, err
		})
	observe("SELECT", "stations", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to load station keys: %w", err)
	}

	set := make(map[int64]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set, nil
}

func scanStation(row scanner) (models.Station, error) {
	var (
		s                                 models.Station
		name, road, full, common          sql.NullString
		lga, suburb, post, hier, lanes    sql.NullString
		class, device, wkt                sql.NullString
		permanent, classifier, hvChecking sql.NullBool
		quality                           sql.NullInt64
	)
	err := row.Scan(
		&s.StationKey, &s.StationID, &name, &road, &full, &common,
		&lga, &suburb, &post, &hier, &lanes, &class,
		&device, &permanent, &classifier, &hvChecking,
		&quality, &s.Latitude, &s.Longitude, &wkt,
	)
	if err != nil {
		return s, err
	}

	s.Name, s.RoadName, s.FullName, s.CommonRoadName = name.String, road.String, full.String, common.String
	s.LGA, s.Suburb, s.PostCode = lga.String, suburb.String, post.String
	s.RoadFunctionalHierarchy, s.LaneCount, s.RoadClassificationType = hier.String, lanes.String, class.String
	s.DeviceType, s.LocationWKT = device.String, wkt.String
	s.PermanentStation, s.VehicleClassifier, s.HeavyVehicleCheckingStation = permanent.Bool, classifier.Bool, hvChecking.Bool
	s.QualityRating = int(quality.Int64)
	return s, nil
}

// GetStation returns one station or ErrStationNotFound.
func (db *DB) GetStation(ctx context.Context, key int64) (*models.Station, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	row := db.conn.QueryRowContext(ctx, `SELECT `+stationColumns+` FROM stations WHERE station_key = ?`, key)
	s, err := scanStation(row)
	if errors.Is(err, sql.ErrNoRows) {
		observe("SELECT", "stations", start, nil)
		return nil, ErrStationNotFound
	}
	observe("SELECT", "stations", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get station %d: %w", key, err)
	}
	return &s, nil
}

// stationWhere translates a filter into a WHERE clause.
func stationWhere(f models.StationFilter) (string, []interface{}) {
	wb := query.NewWhereBuilder()
	query.AddIn(wb, "lga", f.LGAs)
	query.AddIn(wb, "suburb", f.Suburbs)
	wb.AddInEither("road_name", "common_road_name", f.RoadNames)
	query.AddIn(wb, "road_functional_hierarchy", f.Hierarchies)
	if f.VehicleClassifier != nil {
		wb.AddEq("vehicle_classifier", *f.VehicleClassifier)
	}
	if f.PermanentStation != nil {
		wb.AddEq("permanent_station", *f.PermanentStation)
	}
	if f.MinQualityRating != nil {
		wb.AddClause("quality_rating >= ?", *f.MinQualityRating)
	}
	return wb.BuildWithPrefix()
}

// ListStations returns stations matching the filter ordered by key.
func (db *DB) ListStations(ctx context.Context, f models.StationFilter) ([]models.Station, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	where, args := stationWhere(f)
	q := `SELECT ` + stationColumns + ` FROM stations ` + where + ` ORDER BY station_key`
	if f.Limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	start := time.Now()
	stations, err := queryAndScan(ctx, db.conn, q, args, scanStation)
	observe("SELECT", "stations", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list stations: %w", err)
	}
	if stations == nil {
		stations = []models.Station{}
	}
	return stations, nil
}

// FilterStationKeys returns only the keys of stations matching the filter.
func (db *DB) FilterStationKeys(ctx context.Context, f models.StationFilter) ([]int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	where, args := stationWhere(f)
	start := time.Now()
	keys, err := queryAndScan(ctx, db.conn,
		`SELECT station_key FROM stations `+where+` ORDER BY station_key`, args,
		func(rows scanner) (int64, error) {
			var k int64
			err := rows.Scan(&k)
			return k, err
		})
	observe("SELECT", "stations", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to filter stations: %w", err)
	}
	return keys, nil
}

// DistinctValues returns the sorted non-empty values of a permitted
// column. Any other column returns ErrUnknownColumn without touching SQL.
func (db *DB) DistinctValues(ctx context.Context, col models.Column) ([]string, error) {
	if !col.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, col)
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	c := string(col)
	start := time.Now()
	values, err := queryAndScan(ctx, db.conn,
		`SELECT DISTINCT `+c+` FROM stations WHERE `+c+` IS NOT NULL AND `+c+` <> '' ORDER BY `+c, nil,
		scanString)
	observe("SELECT", "stations", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s values: %w", c, err)
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}

// SuburbsForLGAs returns the sorted suburbs inside the given LGAs, or
// every suburb when lgas is empty.
func (db *DB) SuburbsForLGAs(ctx context.Context, lgas []string) ([]string, error) {
	if len(lgas) == 0 {
		return db.DistinctValues(ctx, models.ColumnSuburb)
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	wb := query.NewWhereBuilder()
	query.AddIn(wb, "lga", lgas)
	wb.AddClause("suburb IS NOT NULL AND suburb <> ''")
	where, args := wb.BuildWithPrefix()

	start := time.Now()
	values, err := queryAndScan(ctx, db.conn,
		`SELECT DISTINCT suburb FROM stations `+where+` ORDER BY suburb`, args, scanString)
	observe("SELECT", "stations", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list suburbs: %w", err)
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}

func scanString(rows scanner) (string, error) {
	var s string
	err := rows.Scan(&s)
	return s, err
}

// BackfillGeometry fills location_wkt for rows that lack it and, when
// spatial is available, location_geom from the WKT. Returns how many rows
// each step touched.
func (db *DB) BackfillGeometry(ctx context.Context) (wkt, geom int64, err error) {
	ctx, cancel := db.ensureLongContext(ctx)
	defer cancel()

	start := time.Now()
	res, err := db.conn.ExecContext(ctx, `UPDATE stations
		SET location_wkt = printf('POINT(%.6f %.6f)', wgs84_longitude, wgs84_latitude)
		WHERE location_wkt IS NULL OR location_wkt = ''`)
	observe("UPDATE", "stations", start, err)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to backfill WKT: %w", err)
	}
	wkt, _ = res.RowsAffected()

	if !db.spatialAvailable {
		logging.Info().Int64("wkt", wkt).Msg("Geometry backfill skipped, spatial extension not loaded")
		return wkt, 0, ErrSpatialUnavailable
	}

	start = time.Now()
	res, err = db.conn.ExecContext(ctx, `UPDATE stations
		SET location_geom = ST_GeomFromText(location_wkt)
		WHERE location_geom IS NULL AND location_wkt IS NOT NULL`)
	observe("UPDATE", "stations", start, err)
	if err != nil {
		return wkt, 0, fmt.Errorf("failed to backfill geometry: %w", err)
	}
	geom, _ = res.RowsAffected()

	logging.Info().Int64("wkt", wkt).Int64("geom", geom).Msg("Geometry backfilled")
	return wkt, geom, nil
}
