// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	registryimport "github.com/tomtom215/registrar/internal/import"
)

// Upsert implements registryimport.SessionMirror.
func (db *DB) Upsert(ctx context.Context, s *registryimport.Session) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO import_sessions
			(session_id, year, status, processed_rows, total_file_rows, current_file, current_batch, started_at, updated_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			status = excluded.status,
			processed_rows = excluded.processed_rows,
			total_file_rows = excluded.total_file_rows,
			current_file = excluded.current_file,
			current_batch = excluded.current_batch,
			updated_at = excluded.updated_at,
			payload = excluded.payload`,
		s.ID, s.Year, string(s.Status), s.ProcessedRows, s.TotalFileRows,
		s.CurrentFile, s.CurrentBatch, s.StartTime.UTC(), s.LastUpdateTime.UTC(), string(payload),
	)
	if err != nil {
		return fmt.Errorf("upsert session %s: %w", s.ID, err)
	}
	return nil
}

// Get returns the mirrored session, or nil if unknown.
func (db *DB) Get(ctx context.Context, id string) (*registryimport.Session, error) {
	var payload string
	err := db.conn.QueryRowContext(ctx,
		`SELECT payload FROM import_sessions WHERE session_id = ?`, id,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}

	var s registryimport.Session
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &s, nil
}

// Delete removes a session record. Deleting an unknown id is not an error.
func (db *DB) Delete(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM import_sessions WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// Recent lists the most recently updated sessions, newest first.
func (db *DB) Recent(ctx context.Context, limit int) ([]*registryimport.Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT payload FROM import_sessions ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*registryimport.Session
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		var s registryimport.Session
		if err := json.Unmarshal([]byte(payload), &s); err != nil {
			return nil, fmt.Errorf("decode session: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}
