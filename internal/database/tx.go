// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomtom215/trafficlens/internal/logging"
)

// WithTx runs fn in a transaction. It commits when fn returns nil and
// rolls back otherwise, returning fn's error. The transaction is always
// finished before WithTx returns, including when fn panics.
func (db *DB) WithTx(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			logging.Error().
				Err(rbErr).
				AnErr("original_error", err).
				Msg("Transaction rollback failed")
		}
	}()

	if err = fn(tx); err != nil {
		if isConnectionError(err) {
			logging.Error().Err(err).Msg("Database connection lost during transaction")
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		if isTransactionConflict(err) {
			return fmt.Errorf("transaction conflict on commit: %w", err)
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}
