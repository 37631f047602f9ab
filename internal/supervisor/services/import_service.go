// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	registryimport "github.com/tomtom215/registrar/internal/import"
	"github.com/tomtom215/registrar/internal/logging"
)

// ImportDriver is satisfied by *registryimport.Driver.
type ImportDriver interface {
	ResumeSession(ctx context.Context, id string, paths []string) (*registryimport.Session, error)
	Stop() error
	Wait(ctx context.Context) (*registryimport.Result, error)
	Snapshot() (*registryimport.Session, registryimport.DriverState)
}

// CurrentSession is satisfied by *registryimport.Store.
type CurrentSession interface {
	Current(ctx context.Context) (*registryimport.Session, error)
}

// ImportService ties the import driver to the process lifecycle. At
// startup it optionally continues the saved session; at shutdown it stops
// the running import so the session is saved as paused.
type ImportService struct {
	driver     ImportDriver
	sessions   CurrentSession
	uploadDir  string
	autoResume bool
	stopWait   time.Duration

	// Auto-resume runs once per process, not on every supervisor restart.
	attempted atomic.Bool
}

// NewImportService creates the service. uploadDir is where session files
// were stored at upload time.
func NewImportService(driver ImportDriver, sessions CurrentSession, uploadDir string, autoResume bool) *ImportService {
	return &ImportService{
		driver:     driver,
		sessions:   sessions,
		uploadDir:  uploadDir,
		autoResume: autoResume,
		stopWait:   30 * time.Second,
	}
}

// Serve implements suture.Service.
func (s *ImportService) Serve(ctx context.Context) error {
	if s.autoResume && s.attempted.CompareAndSwap(false, true) {
		s.resumeSaved(ctx)
	}

	<-ctx.Done()
	s.stopRunning()
	return ctx.Err()
}

func (s *ImportService) String() string { return "import-lifecycle" }

func (s *ImportService) resumeSaved(ctx context.Context) {
	log := logging.Ctx(ctx)

	saved, err := s.sessions.Current(ctx)
	switch {
	case errors.Is(err, registryimport.ErrSessionStale):
		log.Info().Msg("Saved import session is stale; not resuming")
		return
	case err != nil:
		log.Warn().Err(err).Msg("Failed to read saved import session")
		return
	case saved == nil:
		return
	case !saved.Status.Resumable():
		return
	}

	paths, err := registryimport.StoredPaths(s.uploadDir, saved)
	if err != nil {
		log.Warn().Err(err).Str("session_id", saved.ID).Msg("Cannot resume saved import session")
		return
	}
	if _, err := s.driver.ResumeSession(ctx, saved.ID, paths); err != nil {
		log.Warn().Err(err).Str("session_id", saved.ID).Msg("Failed to resume saved import session")
		return
	}
	log.Info().
		Str("session_id", saved.ID).
		Int("file", saved.CurrentFile).
		Int("next_batch", saved.CurrentBatch+1).
		Msg("Resumed saved import session")
}

func (s *ImportService) stopRunning() {
	_, state := s.driver.Snapshot()
	if state != registryimport.StateProcessing && state != registryimport.StatePaused {
		return
	}
	logging.Info().Msg("Stopping running import for shutdown")
	if err := s.driver.Stop(); err != nil && !errors.Is(err, registryimport.ErrNotRunning) {
		logging.Warn().Err(err).Msg("Failed to stop import")
		return
	}

	waitCtx, cancel := context.WithTimeout(context.Background(), s.stopWait)
	defer cancel()
	if _, err := s.driver.Wait(waitCtx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Warn().Err(err).Msg("Import did not stop before the deadline")
	}
}
