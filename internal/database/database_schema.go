// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package database

import (
	"context"
	"fmt"
)

// payload holds the full session JSON; the other columns exist for queries.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS import_sessions (
		session_id      VARCHAR PRIMARY KEY,
		year            INTEGER NOT NULL,
		status          VARCHAR NOT NULL,
		processed_rows  BIGINT NOT NULL DEFAULT 0,
		total_file_rows BIGINT NOT NULL DEFAULT 0,
		current_file    INTEGER NOT NULL DEFAULT 0,
		current_batch   INTEGER NOT NULL DEFAULT 0,
		started_at      TIMESTAMP NOT NULL,
		updated_at      TIMESTAMP NOT NULL,
		payload         VARCHAR NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_import_sessions_status ON import_sessions(status)`,
}

func (db *DB) createTables(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}
