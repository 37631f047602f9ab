// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package main

import (
	"fmt"
	"time"

	"github.com/tomtom215/registrar/internal/config"
	registryimport "github.com/tomtom215/registrar/internal/import"
	"github.com/tomtom215/registrar/internal/logging"
	"github.com/tomtom215/registrar/internal/notify"
	"github.com/tomtom215/registrar/internal/supervisor"
	"github.com/tomtom215/registrar/internal/supervisor/services"
)

// initNotify wires NATS notifications when enabled. The embedded server,
// if any, joins the messaging layer; the publisher observes the driver and
// the follower refreshes progress from notifications. The returned func
// closes the clients.
func initNotify(cfg *config.Config, tree *supervisor.Tree, driver *registryimport.Driver, reporter *registryimport.Reporter) (func(), error) {
	if !cfg.NATS.Enabled {
		logging.Info().Msg("NATS notifications disabled")
		return func() {}, nil
	}

	url := cfg.NATS.URL
	if cfg.NATS.EmbeddedServer {
		srv, err := notify.NewEmbeddedServerFromURL(cfg.NATS.URL)
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS: %w", err)
		}
		url = srv.ClientURL()
		tree.AddMessagingService(services.NewEmbeddedNATSService(srv, 10*time.Second))
		logging.Info().Str("url", url).Msg("Embedded NATS server started")
	}

	publisher, err := notify.NewPublisher(url, &cfg.NATS, logging.NewWatermillAdapter("notify-publisher"))
	if err != nil {
		return nil, fmt.Errorf("create publisher: %w", err)
	}
	driver.Subscribe(publisher.Observe)

	listener, err := notify.NewListener(url, &cfg.NATS, logging.NewWatermillAdapter("notify-listener"))
	if err != nil {
		_ = publisher.Close()
		return nil, fmt.Errorf("create listener: %w", err)
	}
	tree.AddMessagingService(notify.NewFollower(listener, driver, reporter.Refresh, time.Second))

	logging.Info().Str("url", url).Str("prefix", cfg.NATS.SubjectPrefix).Msg("NATS notifications enabled")

	return func() {
		if err := listener.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing NATS listener")
		}
		if err := publisher.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing NATS publisher")
		}
	}, nil
}
