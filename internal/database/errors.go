// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package database

import (
	"errors"
	"io"
	"log/slog"

	"github.com/tomtom215/trafficlens/internal/logging"
)

var (
	// ErrStationNotFound is returned by GetStation for an unknown key.
	ErrStationNotFound = errors.New("station not found")

	// ErrUnknownColumn is returned for a distinct-value column outside models.Columns.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrSpatialUnavailable is returned by operations that need the spatial extension.
	ErrSpatialUnavailable = errors.New("spatial extension not available")
)

// closeWithLog closes a resource and logs any error
func closeWithLog(closer io.Closer, logger *slog.Logger, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		if logger != nil {
			logger.Error("failed to close resource",
				"type", resourceType,
				"error", err)
		} else {
			logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
		}
	}
}

// closeQuietly closes a resource on an error path where Close errors are not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
