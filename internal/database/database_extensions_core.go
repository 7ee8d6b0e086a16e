// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/trafficlens/internal/logging"
)

func extensionContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// extensionSpec describes how to install and verify one extension.
type extensionSpec struct {
	Name        string
	VerifyQuery string

	// Available points at the DB field tracking the extension.
	Available func(*DB) *bool

	// WarningMessage is logged when an optional extension is skipped.
	WarningMessage string
}

func spatialExtension() *extensionSpec {
	return &extensionSpec{
		Name:           "spatial",
		VerifyQuery:    "SELECT ST_AsText(ST_Point(151.2093, -33.8688))",
		Available:      func(db *DB) *bool { return &db.spatialAvailable },
		WarningMessage: "Spatial extension unavailable, station geometry stored as WKT only",
	}
}

// installCoreExtension tries INSTALL, then LOAD of an already installed
// copy, then FORCE INSTALL. An optional extension that cannot be loaded
// is marked unavailable instead of failing startup.
func (db *DB) installCoreExtension(spec *extensionSpec, optional bool) error {
	if isExtensionInstalledLocally(spec.Name) {
		logging.Debug().Str("extension", spec.Name).Msg("Extension found locally, skipping download")
	} else if err := db.execWithRetry(fmt.Sprintf("INSTALL %s;", spec.Name), defaultRetryConfig); err != nil {
		if loadErr := db.execWithHardTimeout(fmt.Sprintf("LOAD %s;", spec.Name)); loadErr == nil {
			return db.verifyExtension(spec, optional)
		}
		if forceErr := db.execWithRetry(fmt.Sprintf("FORCE INSTALL %s;", spec.Name), defaultRetryConfig); forceErr != nil {
			if optional {
				db.setExtensionUnavailable(spec, forceErr)
				return nil
			}
			return fmt.Errorf("failed to install %s extension: install error: %w, force install error: %v",
				spec.Name, err, forceErr)
		}
	}

	if err := db.execWithHardTimeout(fmt.Sprintf("LOAD %s;", spec.Name)); err != nil {
		if optional {
			db.setExtensionUnavailable(spec, err)
			return nil
		}
		return fmt.Errorf("failed to load %s extension: %w", spec.Name, err)
	}

	return db.verifyExtension(spec, optional)
}

// verifyExtension runs the spec's probe query.
func (db *DB) verifyExtension(spec *extensionSpec, optional bool) error {
	if spec.VerifyQuery != "" {
		if _, err := db.queryRowWithHardTimeout(spec.VerifyQuery); err != nil {
			if optional {
				db.setExtensionUnavailable(spec, err)
				return nil
			}
			return fmt.Errorf("%s extension loaded but functions unavailable: %w", spec.Name, err)
		}
	}

	if field := spec.Available; field != nil {
		*field(db) = true
	}
	logging.Debug().Str("extension", spec.Name).Msg("Extension loaded")
	return nil
}

func (db *DB) setExtensionUnavailable(spec *extensionSpec, cause error) {
	if field := spec.Available; field != nil {
		*field(db) = false
	}
	logging.Warn().Str("extension", spec.Name).Err(cause).Msg(spec.WarningMessage)
}
