// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/registrar/internal/api"
	"github.com/tomtom215/registrar/internal/config"
	"github.com/tomtom215/registrar/internal/database"
	registryimport "github.com/tomtom215/registrar/internal/import"
	"github.com/tomtom215/registrar/internal/ingestion"
	"github.com/tomtom215/registrar/internal/logging"
	"github.com/tomtom215/registrar/internal/supervisor"
	"github.com/tomtom215/registrar/internal/supervisor/services"
	ws "github.com/tomtom215/registrar/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("ingestion_url", cfg.Ingestion.URL).
		Int("batch_size", cfg.Import.BatchSize).
		Bool("database_enabled", cfg.Database.Enabled).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Msg("Starting Registrar with supervisor tree")

	if err := os.MkdirAll(cfg.Import.UploadDir, 0o750); err != nil {
		logging.Fatal().Err(err).Str("dir", cfg.Import.UploadDir).Msg("Failed to create upload directory")
	}

	local, closeLocal, err := openLocalStore(&cfg.Store)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open session store")
	}
	defer closeLocal()

	storeOpts := []registryimport.StoreOption{registryimport.WithStaleAfter(cfg.Import.StaleAfter)}

	var db *database.DB
	if cfg.Database.Enabled {
		db, err = database.New(&cfg.Database)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer func() {
			if err := db.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing database")
			}
		}()
		storeOpts = append(storeOpts, registryimport.WithMirror(db))
		logging.Info().Str("path", cfg.Database.Path).Msg("Session mirror enabled")
	}

	sessions := registryimport.NewStore(local, storeOpts...)
	ingester := ingestion.New(&cfg.Ingestion)
	driver := registryimport.NewDriver(ingester, sessions, driverOptions(cfg))

	reporter := registryimport.NewReporter(driver, cfg.Import.ProgressInterval)
	hub := ws.NewHub()
	reporter.AddSink(hub.BroadcastProgress)
	driver.Subscribe(reporter.Observe)
	driver.Subscribe(hub.BroadcastEvent)

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	closeNotify, err := initNotify(cfg, tree, driver, reporter)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize NATS notifications")
	}
	defer closeNotify()

	handler := api.NewHandler(driver, sessions, &cfg.Import)
	handler.SetProgressSource(reporter)
	handler.SetIngestion(ingester)
	handler.SetClientCounter(hub)
	if db != nil {
		handler.SetHistory(db)
		handler.SetDatabase(db)
	}

	router := api.NewRouter(
		handler,
		api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(&cfg.Server)),
		ws.NewHandler(hub, cfg.Server.CORSOrigins),
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	tree.AddImportService(services.NewImportService(driver, sessions, cfg.Import.UploadDir, cfg.Import.AutoResume))
	tree.AddImportService(reporter)
	tree.AddImportService(hub)
	tree.AddAPIService(services.NewHTTPServerService(server, addr, cfg.Server.Timeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", addr).Msg("Supervisor tree starting")
	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("Supervisor tree stopped unexpectedly")
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop in time")
		}
	}
	logging.Info().Msg("Registrar stopped")
}

// driverOptions maps configuration onto driver settings. Zero values keep
// the driver defaults, except the retry count: config defaults it to 3 and
// validates it, so 0 means no retries.
func driverOptions(cfg *config.Config) registryimport.Options {
	opts := registryimport.DefaultOptions()
	ic := cfg.Import

	if ic.BatchSize > 0 {
		opts.BatchSize = ic.BatchSize
	}
	if ic.RateLimitCooldown > 0 {
		opts.RateLimitCooldown = ic.RateLimitCooldown
	}
	opts.MaxRateLimitRetries = ic.MaxRateLimitRetries
	if ic.InterFileDelay > 0 {
		opts.InterFileDelay = ic.InterFileDelay
	}
	if ic.LargeImportThresholdBytes > 0 {
		opts.LargeImportThreshold = ic.LargeImportThresholdBytes
	}
	if cfg.Ingestion.RequestTimeout > 0 {
		opts.RequestTimeout = cfg.Ingestion.RequestTimeout
	}
	if ic.CSVDelimiter != "" {
		opts.Decode.Delimiter = ic.CSVDelimiter
	}
	opts.Normalize.DefaultCountryCode = ic.DefaultCountryCode
	opts.Normalize.DefaultShareClass = ic.DefaultShareClass
	opts.Normalize.LogMatches = ic.LogAliasMatches
	return opts
}

// openLocalStore opens the BadgerDB session store, or an in-memory store
// when persistence is disabled.
func openLocalStore(cfg *config.StoreConfig) (registryimport.LocalStore, func(), error) {
	if cfg.InMemory {
		logging.Warn().Msg("Session store is in memory; imports cannot be resumed after restart")
		return registryimport.NewInMemorySessionStore(), func() {}, nil
	}

	store, err := registryimport.OpenBadgerSessionStore(cfg.Path)
	if err != nil {
		return nil, nil, err
	}
	logging.Info().Str("path", cfg.Path).Msg("Session store opened")
	return store, func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing session store")
		}
	}, nil
}
