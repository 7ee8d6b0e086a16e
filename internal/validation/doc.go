// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

// Package validation checks CSV records and API parameters.
//
// Row validation works on raw records (column name to string value) and
// never panics or returns an error: ValidateStationRow and
// ValidateHourlyRow return a boolean and log the offending field and
// value. CheckStationRow and CheckHourlyRow expose the same checks with
// the rejection detail.
//
// Range rules (coordinates, direction and classification sequences) and
// API request structs go through a singleton go-playground/validator
// instance:
//
//	type profileParams struct {
//	    Direction int `validate:"oneof=0 1 2 3"`
//	}
//	if verr := validation.ValidateStruct(&p); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    ...
//	}
//
// The field helpers (ParseNumber, ParseInt, ParseBool, ParseDate, IsNull)
// are shared with the batch loader so validation and coercion agree on
// what a number, flag or date looks like.
package validation
