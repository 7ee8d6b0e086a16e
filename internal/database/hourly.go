// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/trafficlens/internal/database/query"
	"github.com/tomtom215/trafficlens/internal/models"
)

var hourColumnList = func() string {
	cols := make([]string, models.HoursPerDay)
	for h := range cols {
		cols[h] = models.HourColumn(h)
	}
	return strings.Join(cols, ", ")
}()

var hourlyColumns = `count_id, station_key, traffic_direction_seq, cardinal_direction_seq,
	classification_seq, count_date, year, month, day_of_week, is_public_holiday,
	is_school_holiday, ` + hourColumnList + `, daily_total`

// upsertHourlySQL inserts one row or, when the natural key exists,
// overwrites its volumes and holiday flags. Key and date-derived columns
// never change on conflict.
var upsertHourlySQL = func() string {
	var b strings.Builder
	b.WriteString(`INSERT INTO hourly_counts (station_key, traffic_direction_seq, cardinal_direction_seq,
		classification_seq, count_date, year, month, day_of_week, is_public_holiday,
		is_school_holiday, `)
	b.WriteString(hourColumnList)
	b.WriteString(`, daily_total) VALUES (`)
	b.WriteString(strings.TrimSuffix(strings.Repeat("?, ", 11+models.HoursPerDay), ", "))
	b.WriteString(`)
		ON CONFLICT (station_key, count_date, traffic_direction_seq, cardinal_direction_seq, classification_seq)
		DO UPDATE SET is_public_holiday = EXCLUDED.is_public_holiday,
			is_school_holiday = EXCLUDED.is_school_holiday, `)
	for h := 0; h < models.HoursPerDay; h++ {
		c := models.HourColumn(h)
		b.WriteString(c + " = EXCLUDED." + c + ", ")
	}
	b.WriteString(`daily_total = EXCLUDED.daily_total`)
	return b.String()
}()

// nullableInt converts a nil pointer to a SQL NULL.
func nullableInt(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// UpsertHourlyCounts writes rows in one transaction. Rows must already be
// unique on their natural key; the loader collapses duplicates first.
// Returns the number of rows written (inserted or updated).
func (db *DB) UpsertHourlyCounts(ctx context.Context, rows []models.HourlyCount) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	start := time.Now()
	var written int64
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertHourlySQL)
		if err != nil {
			return fmt.Errorf("failed to prepare hourly upsert: %w", err)
		}
		defer closeWithLog(stmt, nil, "prepared statement")

		args := make([]interface{}, 0, 11+models.HoursPerDay)
		for i := range rows {
			r := &rows[i]
			args = append(args[:0],
				r.StationKey, r.TrafficDirectionSeq, r.CardinalDirectionSeq, r.ClassificationSeq,
				r.CountDate, r.Year, r.Month, r.DayOfWeek, r.IsPublicHoliday, r.IsSchoolHoliday)
			for _, v := range r.Hours {
				args = append(args, nullableInt(v))
			}
			args = append(args, nullableInt(r.DailyTotal))

			res, err := stmt.ExecContext(ctx, args...)
			if err != nil {
				return fmt.Errorf("failed to upsert hourly row station=%d date=%s: %w",
					r.StationKey, r.CountDate.Format(models.DateLayout), err)
			}
			if n, err := res.RowsAffected(); err == nil {
				written += n
			}
		}
		return nil
	})
	observe("UPSERT", "hourly_counts", start, err)
	if err != nil {
		return 0, err
	}
	return written, nil
}

// hourlyWhere translates an HourlyQuery into a WHERE clause.
func hourlyWhere(q models.HourlyQuery) *query.WhereBuilder {
	wb := query.NewWhereBuilder()
	query.AddIn(wb, "station_key", q.StationKeys)
	wb.AddDateRange("count_date", q.From, q.To)
	if q.Direction == models.DirectionPrescribed || q.Direction == models.DirectionOpposite {
		wb.AddEq("traffic_direction_seq", q.Direction)
	}
	query.AddIn(wb, "classification_seq", q.Classifications)
	if q.ExcludePublicHolidays {
		wb.AddClause("NOT is_public_holiday")
	}
	return wb
}

func scanHourly(row scanner) (models.HourlyCount, error) {
	var (
		h     models.HourlyCount
		hours [models.HoursPerDay]sql.NullInt64
		total sql.NullInt64
		ph    sql.NullBool
		sh    sql.NullBool
	)

	dest := []interface{}{
		&h.CountID, &h.StationKey, &h.TrafficDirectionSeq, &h.CardinalDirectionSeq,
		&h.ClassificationSeq, &h.CountDate, &h.Year, &h.Month, &h.DayOfWeek, &ph, &sh,
	}
	for i := range hours {
		dest = append(dest, &hours[i])
	}
	dest = append(dest, &total)

	if err := row.Scan(dest...); err != nil {
		return h, err
	}

	h.IsPublicHoliday, h.IsSchoolHoliday = ph.Bool, sh.Bool
	for i, v := range hours {
		if v.Valid {
			h.Hours[i] = models.Int64Ptr(v.Int64)
		}
	}
	if total.Valid {
		h.DailyTotal = models.Int64Ptr(total.Int64)
	}
	return h, nil
}

// HourlyCounts returns rows matching q ordered by date, station,
// classification and direction. Direction 0 or 3 returns both directions.
func (db *DB) HourlyCounts(ctx context.Context, q models.HourlyQuery) ([]models.HourlyCount, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	where, args := hourlyWhere(q).BuildWithPrefix()
	sqlText := `SELECT ` + hourlyColumns + ` FROM hourly_counts ` + where +
		` ORDER BY count_date, station_key, classification_seq, traffic_direction_seq, cardinal_direction_seq`

	start := time.Now()
	rows, err := queryAndScan(ctx, db.conn, sqlText, args, scanHourly)
	observe("SELECT", "hourly_counts", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query hourly counts: %w", err)
	}
	if rows == nil {
		rows = []models.HourlyCount{}
	}
	return rows, nil
}

// DailyTotals sums daily_total per (date, classification) for rows
// matching q. Rows with a NULL daily_total are ignored.
func (db *DB) DailyTotals(ctx context.Context, q models.HourlyQuery) ([]models.DailyTotal, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	wb := hourlyWhere(q)
	wb.AddClause("daily_total IS NOT NULL")
	where, args := wb.BuildWithPrefix()

	start := time.Now()
	totals, err := queryAndScan(ctx, db.conn,
		`SELECT count_date, classification_seq, SUM(daily_total)::BIGINT
		FROM hourly_counts `+where+`
		GROUP BY count_date, classification_seq
		ORDER BY count_date, classification_seq`, args,
		func(rows scanner) (models.DailyTotal, error) {
			var d models.DailyTotal
			err := rows.Scan(&d.CountDate, &d.ClassificationSeq, &d.DailyTotal)
			return d, err
		})
	observe("SELECT", "hourly_counts", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily totals: %w", err)
	}
	if totals == nil {
		totals = []models.DailyTotal{}
	}
	return totals, nil
}

// LatestCountDate returns the most recent count_date for a station.
// ok is false when the station has no hourly rows.
func (db *DB) LatestCountDate(ctx context.Context, stationKey int64) (latest time.Time, ok bool, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var d sql.NullTime
	start := time.Now()
	err = db.conn.QueryRowContext(ctx,
		`SELECT MAX(count_date) FROM hourly_counts WHERE station_key = ?`, stationKey).Scan(&d)
	observe("SELECT", "hourly_counts", start, err)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get latest count date: %w", err)
	}
	if !d.Valid {
		return time.Time{}, false, nil
	}
	return d.Time, true, nil
}

// CountYears returns the distinct years with data for a station, newest first.
func (db *DB) CountYears(ctx context.Context, stationKey int64) ([]int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	years, err := queryAndScan(ctx, db.conn,
		`SELECT DISTINCT year FROM hourly_counts WHERE station_key = ? ORDER BY year DESC`,
		[]interface{}{stationKey},
		func(rows scanner) (int, error) {
			var y int
			err := rows.Scan(&y)
			return y, err
		})
	observe("SELECT", "hourly_counts", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list years: %w", err)
	}
	if years == nil {
		years = []int{}
	}
	return years, nil
}
