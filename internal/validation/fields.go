// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package validation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// nullTokens are the CSV spellings treated as a missing value.
var nullTokens = map[string]bool{
	"":     true,
	"nan":  true,
	"null": true,
	"none": true,
	"na":   true,
	"n/a":  true,
}

// IsNull reports whether a raw CSV value represents a missing value.
func IsNull(raw string) bool {
	return nullTokens[strings.ToLower(strings.TrimSpace(raw))]
}

// ParseNumber parses a finite number. Null tokens and NaN/Inf fail.
func ParseNumber(raw string) (float64, bool) {
	if IsNull(raw) {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseInt parses an integer, accepting integral float spellings such as "12.0".
func ParseInt(raw string) (int64, bool) {
	s := strings.TrimSpace(raw)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	f, ok := ParseNumber(s)
	if !ok || f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// ParseBool coerces a CSV flag. Anything unparseable is false.
func ParseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "t", "yes", "y", "1", "1.0":
		return true
	default:
		return false
	}
}

// dateLayouts are tried in order by ParseDate.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"02/01/2006",
	"20060102",
}

// ParseDate parses a count date and truncates it to a UTC calendar day.
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}
