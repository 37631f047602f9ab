// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order; the first existing file is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/registrar/config.yaml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Import: ImportConfig{
			BatchSize:                 1000,
			RateLimitCooldown:         10 * time.Second,
			MaxRateLimitRetries:       3,
			InterFileDelay:            3 * time.Second,
			LargeImportThresholdBytes: 50 << 20,
			StaleAfter:                24 * time.Hour,
			ProgressInterval:          2 * time.Second,
			CSVDelimiter:              ";",
			DefaultCountryCode:        "NO",
			DefaultShareClass:         "Ordinære aksjer",
			UploadDir:                 "/data/uploads",
			MaxUploadBytes:            512 << 20,
		},
		Ingestion: IngestionConfig{
			RequestTimeout:     60 * time.Second,
			RequestsPerSecond:  2,
			Burst:              1,
			BreakerMaxFailures: 5,
			BreakerTimeout:     30 * time.Second,
		},
		Store: StoreConfig{
			Path: "/data/sessions",
		},
		Database: DatabaseConfig{
			Enabled:   true,
			Path:      "/data/registrar.duckdb",
			MaxMemory: "512MB",
		},
		NATS: NATSConfig{
			Enabled:        true,
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: true,
			SubjectPrefix:  "registry.import",
			MaxReconnects:  -1,
			ReconnectWait:  2 * time.Second,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from three layers:
//  1. built-in defaults
//  2. an optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. environment variables listed in envMappings
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields splits comma-separated env values for slice fields.
// Values that came from YAML are already slices and are left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) == 0 {
			continue
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"import_batch_size":             "import.batch_size",
	"import_rate_limit_cooldown":    "import.rate_limit_cooldown",
	"import_max_rate_limit_retries": "import.max_rate_limit_retries",
	"import_inter_file_delay":       "import.inter_file_delay",
	"import_large_threshold_bytes":  "import.large_threshold_bytes",
	"import_stale_after":            "import.stale_after",
	"import_progress_interval":      "import.progress_interval",
	"import_csv_delimiter":          "import.csv_delimiter",
	"import_default_country":        "import.default_country",
	"import_default_share_class":    "import.default_share_class",
	"import_upload_dir":             "import.upload_dir",
	"import_max_upload_bytes":       "import.max_upload_bytes",
	"import_auto_resume":            "import.auto_resume",
	"import_log_alias_matches":      "import.log_alias_matches",

	"ingestion_url":              "ingestion.url",
	"ingestion_api_key":          "ingestion.api_key",
	"ingestion_timeout":          "ingestion.request_timeout",
	"ingestion_rps":              "ingestion.requests_per_second",
	"ingestion_burst":            "ingestion.burst",
	"ingestion_breaker_failures": "ingestion.breaker_max_failures",
	"ingestion_breaker_timeout":  "ingestion.breaker_timeout",

	"session_store_path":      "store.path",
	"session_store_in_memory": "store.in_memory",

	"duckdb_enabled":    "database.enabled",
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",

	"nats_enabled":        "nats.enabled",
	"nats_url":            "nats.url",
	"nats_embedded":       "nats.embedded_server",
	"nats_subject_prefix": "nats.subject_prefix",
	"nats_max_reconnects": "nats.max_reconnects",
	"nats_reconnect_wait": "nats.reconnect_wait",

	"http_host":           "server.host",
	"http_port":           "server.port",
	"http_timeout":        "server.timeout",
	"cors_origins":        "server.cors_origins",
	"rate_limit_requests": "server.rate_limit_reqs",
	"rate_limit_window":   "server.rate_limit_window",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable to its koanf path.
// Unknown variables map to "" and are skipped.
//
//	IMPORT_BATCH_SIZE -> import.batch_size
//	DUCKDB_PATH       -> database.path
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
