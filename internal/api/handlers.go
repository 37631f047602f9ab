// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package api

import (
	"context"
	"time"

	"github.com/tomtom215/registrar/internal/config"
	registryimport "github.com/tomtom215/registrar/internal/import"
)

// ImportController is implemented by *registryimport.Driver.
type ImportController interface {
	StartSession(ctx context.Context, id string, year int, paths []string) (*registryimport.Session, error)
	ResumeSession(ctx context.Context, id string, paths []string) (*registryimport.Session, error)
	Pause() error
	Resume() error
	Cancel() error
	Stop() error
	Snapshot() (*registryimport.Session, registryimport.DriverState)
}

// SessionLoader is implemented by *registryimport.Store.
type SessionLoader interface {
	Load(ctx context.Context, id string) (*registryimport.Session, error)
	Current(ctx context.Context) (*registryimport.Session, error)
	Clear(ctx context.Context, id string) error
}

// SessionHistory is implemented by *database.DB.
type SessionHistory interface {
	Get(ctx context.Context, id string) (*registryimport.Session, error)
	Recent(ctx context.Context, limit int) ([]*registryimport.Session, error)
	Delete(ctx context.Context, id string) error
}

// ProgressSource is implemented by *registryimport.Reporter.
type ProgressSource interface {
	Latest() (registryimport.Progress, bool)
}

// Pinger is implemented by *database.DB.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BreakerReporter is implemented by *ingestion.Client.
type BreakerReporter interface {
	BreakerState() string
}

// ClientCounter is implemented by *websocket.Hub.
type ClientCounter interface {
	GetClientCount() int
}

// Handler serves the import API.
type Handler struct {
	driver   ImportController
	sessions SessionLoader

	history   SessionHistory
	progress  ProgressSource
	database  Pinger
	ingestion BreakerReporter
	clients   ClientCounter

	uploadDir      string
	maxUploadBytes int64
	startTime      time.Time
	now            func() time.Time
}

// NewHandler creates a Handler. Optional dependencies are attached with
// the Set methods.
func NewHandler(driver ImportController, sessions SessionLoader, cfg *config.ImportConfig) *Handler {
	return &Handler{
		driver:         driver,
		sessions:       sessions,
		uploadDir:      cfg.UploadDir,
		maxUploadBytes: cfg.MaxUploadBytes,
		startTime:      time.Now(),
		now:            time.Now,
	}
}

// SetHistory enables the session list and mirror lookups.
func (h *Handler) SetHistory(s SessionHistory) { h.history = s }

// SetProgressSource supplies live progress for the running session.
func (h *Handler) SetProgressSource(p ProgressSource) { h.progress = p }

// SetDatabase adds a database check to /health.
func (h *Handler) SetDatabase(p Pinger) { h.database = p }

// SetIngestion adds the circuit breaker state to /health.
func (h *Handler) SetIngestion(b BreakerReporter) { h.ingestion = b }

// SetClientCounter adds the WebSocket client count to /health.
func (h *Handler) SetClientCounter(c ClientCounter) { h.clients = c }
