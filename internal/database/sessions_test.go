// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/registrar/internal/config"
	registryimport "github.com/tomtom215/registrar/internal/import"
)

// testDBSemaphore serializes DuckDB use across tests; concurrent CGO
// connections have been seen to hang under CI load.
var testDBSemaphore = make(chan struct{}, 1)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	db, err := New(&config.DatabaseConfig{
		Path:      filepath.Join(t.TempDir(), "mirror.duckdb"),
		MaxMemory: "256MB",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func session(id string, updated time.Time) *registryimport.Session {
	return &registryimport.Session{
		ID:             id,
		Year:           2024,
		FileNames:      []string{"a.csv", "b.xlsx"},
		Files:          []registryimport.FileStatus{{Name: "a.csv", Status: registryimport.FileCompleted, Rows: 10, RowsProcessed: 10}, {Name: "b.xlsx", Status: registryimport.FileProcessing}},
		TotalFileRows:  30,
		ProcessedRows:  10,
		CurrentFile:    1,
		CurrentBatch:   0,
		Status:         registryimport.StatusActive,
		StartTime:      updated.Add(-time.Minute),
		LastUpdateTime: updated,
	}
}

func TestSessionMirror_UpsertGetDelete(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	if got, err := db.Get(ctx, "missing"); got != nil || err != nil {
		t.Errorf("Get(missing) = %v, %v; want nil, nil", got, err)
	}

	s := session("s1", now)
	if err := db.Upsert(ctx, s); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	s.ProcessedRows = 25
	s.CurrentBatch = 3
	s.Status = registryimport.StatusPaused
	if err := db.Upsert(ctx, s); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}

	got, err := db.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ProcessedRows != 25 || got.CurrentBatch != 3 || got.Status != registryimport.StatusPaused {
		t.Errorf("Get() = %+v", got)
	}
	if len(got.Files) != 2 || got.Files[0].RowsProcessed != 10 {
		t.Errorf("Files = %+v", got.Files)
	}
	if !got.StartTime.Equal(s.StartTime) {
		t.Errorf("StartTime = %v, want %v", got.StartTime, s.StartTime)
	}

	var n int
	if err := db.Conn().QueryRowContext(ctx, `SELECT count(*) FROM import_sessions`).Scan(&n); err != nil || n != 1 {
		t.Errorf("rows = %d, %v; want 1", n, err)
	}

	if err := db.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if got, _ := db.Get(ctx, "s1"); got != nil {
		t.Error("session still present after Delete")
	}
	if err := db.Delete(ctx, "s1"); err != nil {
		t.Errorf("Delete(unknown) error = %v", err)
	}
}

func TestSessionMirror_Recent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	for i, id := range []string{"old", "mid", "new"} {
		if err := db.Upsert(ctx, session(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
	}

	got, err := db.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "new" || got[1].ID != "mid" {
		ids := make([]string, len(got))
		for i, s := range got {
			ids[i] = s.ID
		}
		t.Errorf("Recent(2) = %v, want [new mid]", ids)
	}
}

func TestSessionMirror_WithStore(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// A second process: empty local store, shared mirror.
	store := registryimport.NewStore(registryimport.NewInMemorySessionStore(), registryimport.WithMirror(db))
	if err := db.Upsert(ctx, session("elsewhere", time.Now())); err != nil {
		t.Fatal(err)
	}
	got, err := store.Load(ctx, "elsewhere")
	if err != nil || got == nil {
		t.Fatalf("Load() = %v, %v; want mirrored session", got, err)
	}
	if got.CurrentFile != 1 {
		t.Errorf("CurrentFile = %d, want 1", got.CurrentFile)
	}
}
