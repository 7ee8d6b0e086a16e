// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/trafficlens/internal/analytics"
	"github.com/tomtom215/trafficlens/internal/models"
	"github.com/tomtom215/trafficlens/internal/validation"
)

// Paging limits for list endpoints.
const (
	DefaultStationLimit = 500
	DefaultRunsLimit    = 20
)

// StationsRequest holds the validated query of GET /stations.
type StationsRequest struct {
	LGAs        []string `validate:"dive,max=200"`
	Suburbs     []string `validate:"dive,max=200"`
	RoadNames   []string `validate:"dive,max=200"`
	Hierarchies []string `validate:"dive,max=200"`

	VehicleClassifier *bool
	PermanentStation  *bool
	MinQualityRating  *int `validate:"omitempty,min=0,max=10"`

	Limit  int `validate:"min=1,max=5000"`
	Offset int `validate:"min=0,max=10000000"`
}

// Filter converts the request to the store filter.
func (req StationsRequest) Filter() models.StationFilter {
	return models.StationFilter{
		LGAs:              req.LGAs,
		Suburbs:           req.Suburbs,
		RoadNames:         req.RoadNames,
		Hierarchies:       req.Hierarchies,
		VehicleClassifier: req.VehicleClassifier,
		PermanentStation:  req.PermanentStation,
		MinQualityRating:  req.MinQualityRating,
		Limit:             req.Limit,
		Offset:            req.Offset,
	}
}

// SeriesRequest holds the validated query shared by profile, peaks and trend.
type SeriesRequest struct {
	From                  string `validate:"omitempty,datetime=2006-01-02"`
	To                    string `validate:"omitempty,datetime=2006-01-02"`
	Direction             int    `validate:"oneof=0 1 2 3"`
	Classification        *int   `validate:"omitempty,min=0,max=3"`
	WeekdaysOnly          bool
	ExcludePublicHolidays bool
}

// Query converts the request for station key. Dates were validated, so
// parse errors cannot occur.
func (req SeriesRequest) Query(key int64) analytics.Query {
	q := analytics.Query{
		StationKey:            key,
		Direction:             req.Direction,
		Classification:        req.Classification,
		WeekdaysOnly:          req.WeekdaysOnly,
		ExcludePublicHolidays: req.ExcludePublicHolidays,
	}
	if req.From != "" {
		q.From, _ = time.Parse(models.DateLayout, req.From)
	}
	if req.To != "" {
		q.To, _ = time.Parse(models.DateLayout, req.To)
	}
	return q
}

// SummaryRequest holds the validated query of GET /stations/{key}/summary.
// Year 0 selects the newest year with data.
type SummaryRequest struct {
	Year int `validate:"omitempty,min=1900,max=2200"`
}

// SuburbsRequest holds the validated query of GET /filters/suburbs.
type SuburbsRequest struct {
	LGAs []string `validate:"required,min=1,max=100,dive,required,max=200"`
}

// RunsRequest holds the validated query of GET /ingest/runs.
type RunsRequest struct {
	Limit int `validate:"min=1,max=500"`
}

// paramError reports a query parameter that could not be parsed.
type paramError struct {
	name  string
	value string
	want  string
}

func (e *paramError) Error() string {
	return fmt.Sprintf("query parameter %q must be %s, got %q", e.name, e.want, e.value)
}

// queryParser reads typed values from a query string, keeping the
// first parse failure.
type queryParser struct {
	q   url.Values
	err error
}

func newQueryParser(q url.Values) *queryParser {
	return &queryParser{q: q}
}

func (p *queryParser) fail(name, value, want string) {
	if p.err == nil {
		p.err = &paramError{name: name, value: value, want: want}
	}
}

func (p *queryParser) raw(name string) string {
	return strings.TrimSpace(p.q.Get(name))
}

func (p *queryParser) Int(name string, def int) int {
	v := p.raw(name)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		p.fail(name, v, "an integer")
		return def
	}
	return i
}

func (p *queryParser) IntPtr(name string) *int {
	v := p.raw(name)
	if v == "" {
		return nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		p.fail(name, v, "an integer")
		return nil
	}
	return &i
}

func (p *queryParser) Bool(name string) bool {
	b := p.BoolPtr(name)
	return b != nil && *b
}

func (p *queryParser) BoolPtr(name string) *bool {
	v := p.raw(name)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(name, v, "a boolean")
		return nil
	}
	return &b
}

func (p *queryParser) String(name string) string {
	return p.raw(name)
}

// List accepts both repeated keys and comma-separated values.
func (p *queryParser) List(name string) []string {
	var out []string
	for _, v := range p.q[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// parseStationsRequest reads and validates GET /stations parameters.
func parseStationsRequest(q url.Values) (StationsRequest, error) {
	p := newQueryParser(q)
	req := StationsRequest{
		LGAs:              p.List("lga"),
		Suburbs:           p.List("suburb"),
		RoadNames:         p.List("road"),
		Hierarchies:       p.List("hierarchy"),
		VehicleClassifier: p.BoolPtr("vehicle_classifier"),
		PermanentStation:  p.BoolPtr("permanent"),
		MinQualityRating:  p.IntPtr("min_quality"),
		Limit:             p.Int("limit", DefaultStationLimit),
		Offset:            p.Int("offset", 0),
	}
	return req, check(p, &req)
}

// parseSeriesRequest reads and validates profile, peaks and trend parameters.
func parseSeriesRequest(q url.Values) (SeriesRequest, error) {
	p := newQueryParser(q)
	req := SeriesRequest{
		From:                  p.String("from"),
		To:                    p.String("to"),
		Direction:             p.Int("direction", 0),
		Classification:        p.IntPtr("classification"),
		WeekdaysOnly:          p.Bool("weekdays_only"),
		ExcludePublicHolidays: p.Bool("exclude_public_holidays"),
	}
	if err := check(p, &req); err != nil {
		return req, err
	}
	if req.From != "" && req.To != "" && req.From > req.To {
		return req, fmt.Errorf("from %s is after to %s", req.From, req.To)
	}
	return req, nil
}

func parseSummaryRequest(q url.Values) (SummaryRequest, error) {
	p := newQueryParser(q)
	req := SummaryRequest{Year: p.Int("year", 0)}
	return req, check(p, &req)
}

func parseSuburbsRequest(q url.Values) (SuburbsRequest, error) {
	p := newQueryParser(q)
	req := SuburbsRequest{LGAs: p.List("lga")}
	return req, check(p, &req)
}

func parseRunsRequest(q url.Values) (RunsRequest, error) {
	p := newQueryParser(q)
	req := RunsRequest{Limit: p.Int("limit", DefaultRunsLimit)}
	return req, check(p, &req)
}

// check returns the first parse error, then any validation failure.
func check(p *queryParser, req interface{}) error {
	if p.err != nil {
		return p.err
	}
	if verr := validation.ValidateStruct(req); verr != nil {
		return verr
	}
	return nil
}

// parseStationKey parses the {key} path segment.
func parseStationKey(raw string) (int64, error) {
	key, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || key <= 0 {
		return 0, &paramError{name: "key", value: raw, want: "a positive station key"}
	}
	return key, nil
}
