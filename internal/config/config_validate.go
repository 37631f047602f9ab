// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package config

import (
	"fmt"
	"net/url"
)

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

var validLogFormats = map[string]bool{"json": true, "console": true}

var validDelimiters = map[string]bool{";": true, ",": true, "\t": true, "|": true, "auto": true}

// Validate checks that required configuration is present and consistent.
func (c *Config) Validate() error {
	if err := c.validateImport(); err != nil {
		return err
	}
	if err := c.validateIngestion(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateNATS(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateImport() error {
	imp := &c.Import
	if imp.BatchSize < 1 || imp.BatchSize > 10000 {
		return fmt.Errorf("IMPORT_BATCH_SIZE must be between 1 and 10000, got %d", imp.BatchSize)
	}
	if imp.RateLimitCooldown < 0 {
		return fmt.Errorf("IMPORT_RATE_LIMIT_COOLDOWN must not be negative")
	}
	if imp.MaxRateLimitRetries < 0 {
		return fmt.Errorf("IMPORT_MAX_RATE_LIMIT_RETRIES must not be negative")
	}
	if imp.InterFileDelay < 0 {
		return fmt.Errorf("IMPORT_INTER_FILE_DELAY must not be negative")
	}
	if imp.StaleAfter <= 0 {
		return fmt.Errorf("IMPORT_STALE_AFTER must be positive")
	}
	if imp.ProgressInterval <= 0 {
		return fmt.Errorf("IMPORT_PROGRESS_INTERVAL must be positive")
	}
	if !validDelimiters[imp.CSVDelimiter] {
		return fmt.Errorf("IMPORT_CSV_DELIMITER must be one of ; , tab | auto, got %q", imp.CSVDelimiter)
	}
	if len(imp.DefaultCountryCode) != 2 {
		return fmt.Errorf("IMPORT_DEFAULT_COUNTRY must be a two-letter code, got %q", imp.DefaultCountryCode)
	}
	if imp.UploadDir == "" {
		return fmt.Errorf("IMPORT_UPLOAD_DIR is required")
	}
	return nil
}

func (c *Config) validateIngestion() error {
	ing := &c.Ingestion
	if ing.URL == "" {
		return fmt.Errorf("INGESTION_URL is required")
	}
	if err := validateEndpointURL(ing.URL, "INGESTION_URL"); err != nil {
		return err
	}
	if ing.RequestTimeout <= 0 {
		return fmt.Errorf("INGESTION_TIMEOUT must be positive")
	}
	if ing.RequestsPerSecond < 0 {
		return fmt.Errorf("INGESTION_RPS must not be negative")
	}
	if ing.RequestsPerSecond > 0 && ing.Burst < 1 {
		return fmt.Errorf("INGESTION_BURST must be at least 1 when INGESTION_RPS is set")
	}
	return nil
}

func (c *Config) validateStore() error {
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("SESSION_STORE_PATH is required unless SESSION_STORE_IN_MEMORY=true")
	}
	if c.Database.Enabled && c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required when DUCKDB_ENABLED=true")
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if err := validateNATSURL(c.NATS.URL); err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}
	if c.NATS.SubjectPrefix == "" {
		return fmt.Errorf("NATS_SUBJECT_PREFIX is required when NATS_ENABLED=true")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RateLimitReqs < 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// validateEndpointURL accepts an absolute http(s) URL; unlike a base URL,
// a path is allowed because the ingestion endpoint is usually a function route.
func validateEndpointURL(raw, field string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", field, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s host is required", field)
	}
	return nil
}

func validateNATSURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	switch u.Scheme {
	case "nats", "tls", "ws", "wss":
	default:
		return fmt.Errorf("scheme must be nats, tls, ws, or wss, got: %s", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required (e.g., localhost:4222)")
	}
	return nil
}
