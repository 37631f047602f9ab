// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

// Package config loads Registrar configuration from defaults, an optional
// YAML file and environment variables, in that order of precedence.
package config

import "time"

// Config is the complete application configuration.
type Config struct {
	Import    ImportConfig    `koanf:"import"`
	Ingestion IngestionConfig `koanf:"ingestion"`
	Store     StoreConfig     `koanf:"store"`
	Database  DatabaseConfig  `koanf:"database"`
	NATS      NATSConfig      `koanf:"nats"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ImportConfig controls how registry files are decoded, normalized and
// submitted.
//
// Environment Variables:
//   - IMPORT_BATCH_SIZE: holdings per submitted batch (default: 1000)
//   - IMPORT_RATE_LIMIT_COOLDOWN: wait after a rate-limited batch (default: 10s)
//   - IMPORT_MAX_RATE_LIMIT_RETRIES: retries of one batch before the file fails (default: 3)
//   - IMPORT_INTER_FILE_DELAY: pause between files (default: 3s)
//   - IMPORT_LARGE_THRESHOLD_BYTES: total upload size that triggers a warning (default: 50MB)
//   - IMPORT_STALE_AFTER: age after which a saved session is not resumable (default: 24h)
//   - IMPORT_PROGRESS_INTERVAL: progress recompute period (default: 2s)
//   - IMPORT_CSV_DELIMITER: ";", ",", "\t", "|" or "auto" (default: ";")
//   - IMPORT_DEFAULT_COUNTRY: country code for holders without one (default: NO)
//   - IMPORT_DEFAULT_SHARE_CLASS: share class when absent (default: Ordinære aksjer)
//   - IMPORT_UPLOAD_DIR: where uploaded files are kept for resumption
//   - IMPORT_AUTO_RESUME: continue a fresh saved session at startup (default: false)
//   - IMPORT_LOG_ALIAS_MATCHES: debug-log which header matched each field (default: false)
type ImportConfig struct {
	BatchSize                 int           `koanf:"batch_size"`
	RateLimitCooldown         time.Duration `koanf:"rate_limit_cooldown"`
	MaxRateLimitRetries       int           `koanf:"max_rate_limit_retries"`
	InterFileDelay            time.Duration `koanf:"inter_file_delay"`
	LargeImportThresholdBytes int64         `koanf:"large_threshold_bytes"`
	StaleAfter                time.Duration `koanf:"stale_after"`
	ProgressInterval          time.Duration `koanf:"progress_interval"`
	CSVDelimiter              string        `koanf:"csv_delimiter"`
	DefaultCountryCode        string        `koanf:"default_country"`
	DefaultShareClass         string        `koanf:"default_share_class"`
	UploadDir                 string        `koanf:"upload_dir"`
	MaxUploadBytes            int64         `koanf:"max_upload_bytes"`
	AutoResume                bool          `koanf:"auto_resume"`
	LogAliasMatches           bool          `koanf:"log_alias_matches"`
}

// IngestionConfig describes the remote endpoint batches are posted to.
//
// Environment Variables:
//   - INGESTION_URL: full URL of the ingestion endpoint (required)
//   - INGESTION_API_KEY: bearer token sent with every request
//   - INGESTION_TIMEOUT: per-request timeout (default: 60s)
//   - INGESTION_RPS / INGESTION_BURST: client-side request pacing
//   - INGESTION_BREAKER_FAILURES / INGESTION_BREAKER_TIMEOUT: circuit breaker tuning
type IngestionConfig struct {
	URL                string        `koanf:"url"`
	APIKey             string        `koanf:"api_key"`
	RequestTimeout     time.Duration `koanf:"request_timeout"`
	RequestsPerSecond  float64       `koanf:"requests_per_second"`
	Burst              int           `koanf:"burst"`
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
}

// StoreConfig locates the local session store (BadgerDB).
type StoreConfig struct {
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// DatabaseConfig locates the DuckDB database that mirrors session state so
// other processes can discover an import in progress.
type DatabaseConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
}

// NATSConfig controls push notifications about import progress.
type NATSConfig struct {
	Enabled        bool          `koanf:"enabled"`
	URL            string        `koanf:"url"`
	EmbeddedServer bool          `koanf:"embedded_server"`
	SubjectPrefix  string        `koanf:"subject_prefix"`
	MaxReconnects  int           `koanf:"max_reconnects"`
	ReconnectWait  time.Duration `koanf:"reconnect_wait"`
}

// ServerConfig controls the operator HTTP API.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
