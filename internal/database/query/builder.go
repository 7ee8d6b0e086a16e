// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package query

import (
	"strings"
	"time"
)

// WhereBuilder collects AND-joined conditions and their arguments.
//
//	wb := query.NewWhereBuilder()
//	wb.AddIn("lga", []string{"Sydney", "Parramatta"})
//	wb.AddDateRange("count_date", from, to)
//	where, args := wb.BuildWithPrefix()
//	// WHERE lga IN (?, ?) AND count_date >= ? AND count_date <= ?
type WhereBuilder struct {
	clauses []string
	args    []interface{}
}

// NewWhereBuilder creates an empty builder.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{}
}

// AddClause adds a raw condition with its arguments.
func (wb *WhereBuilder) AddClause(clause string, args ...interface{}) *WhereBuilder {
	wb.clauses = append(wb.clauses, clause)
	wb.args = append(wb.args, args...)
	return wb
}

// AddEq adds "column = ?".
func (wb *WhereBuilder) AddEq(column string, value interface{}) *WhereBuilder {
	return wb.AddClause(column+" = ?", value)
}

// AddDateRange bounds column inclusively. Zero times are skipped.
func (wb *WhereBuilder) AddDateRange(column string, from, to time.Time) *WhereBuilder {
	if !from.IsZero() {
		wb.AddClause(column+" >= ?", from)
	}
	if !to.IsZero() {
		wb.AddClause(column+" <= ?", to)
	}
	return wb
}

// AddIn adds "column IN (?, ...)". Empty value lists are skipped.
func AddIn[T any](wb *WhereBuilder, column string, values []T) *WhereBuilder {
	if len(values) == 0 {
		return wb
	}
	wb.clauses = append(wb.clauses, column+" IN ("+placeholders(len(values))+")")
	for _, v := range values {
		wb.args = append(wb.args, v)
	}
	return wb
}

// AddInEither matches values against either of two columns, e.g. a road
// name that may be stored as road_name or common_road_name.
func (wb *WhereBuilder) AddInEither(first, second string, values []string) *WhereBuilder {
	if len(values) == 0 {
		return wb
	}
	ph := placeholders(len(values))
	wb.clauses = append(wb.clauses, "("+first+" IN ("+ph+") OR "+second+" IN ("+ph+"))")
	for range 2 {
		for _, v := range values {
			wb.args = append(wb.args, v)
		}
	}
	return wb
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// Build returns the AND-joined conditions, or "1=1" when empty.
func (wb *WhereBuilder) Build() (string, []interface{}) {
	if len(wb.clauses) == 0 {
		return "1=1", []interface{}{}
	}
	return strings.Join(wb.clauses, " AND "), wb.args
}

// BuildWithPrefix returns Build prefixed with "WHERE ".
func (wb *WhereBuilder) BuildWithPrefix() (string, []interface{}) {
	where, args := wb.Build()
	return "WHERE " + where, args
}

// Count returns the number of conditions.
func (wb *WhereBuilder) Count() int {
	return len(wb.clauses)
}

// IsEmpty reports whether no conditions were added.
func (wb *WhereBuilder) IsEmpty() bool {
	return len(wb.clauses) == 0
}
