// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package services

import (
	"context"
	"errors"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/registrar/internal/logging"
)

// EmbeddedNATS is satisfied by *notify.EmbeddedServer.
type EmbeddedNATS interface {
	IsRunning() bool
	Shutdown(ctx context.Context) error
}

var errNATSStopped = errors.New("embedded NATS server stopped")

// EmbeddedNATSService owns an already started embedded NATS server: it
// reports the server's death to the supervisor and shuts it down with the
// tree.
type EmbeddedNATSService struct {
	server          EmbeddedNATS
	checkInterval   time.Duration
	shutdownTimeout time.Duration
}

// NewEmbeddedNATSService wraps server.
func NewEmbeddedNATSService(server EmbeddedNATS, shutdownTimeout time.Duration) *EmbeddedNATSService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &EmbeddedNATSService{
		server:          server,
		checkInterval:   5 * time.Second,
		shutdownTimeout: shutdownTimeout,
	}
}

// Serve implements suture.Service. A server that died cannot be
// restarted in place, so the service then asks not to be restarted.
func (s *EmbeddedNATSService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		if !s.server.IsRunning() {
			logging.Error().Err(errNATSStopped).Msg("Embedded NATS server is no longer running")
			return suture.ErrDoNotRestart
		}
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
			defer cancel()
			if err := s.server.Shutdown(shutdownCtx); err != nil {
				logging.Warn().Err(err).Msg("Embedded NATS shutdown did not complete")
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *EmbeddedNATSService) String() string { return "embedded-nats" }
