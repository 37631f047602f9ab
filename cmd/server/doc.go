// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

/*
Package main is the entry point for the Registrar import server.

Registrar loads annual shareholder registry exports (CSV or XLSX), normalizes
each row into a holding and submits the holdings in batches to a remote
ingestion endpoint. Imports run one at a time, survive restarts and can be
paused, resumed, stopped or cancelled through the operator API.

# Application Architecture

The server runs under a Suture v4 supervisor tree:

	RootSupervisor ("registrar")
	├── MessagingSupervisor ("messaging-layer")
	│   ├── Embedded NATS (optional)
	│   └── Notification follower (optional)
	├── ImportSupervisor ("import-layer")
	│   ├── Import lifecycle (auto-resume, stop on shutdown)
	│   ├── Progress reporter
	│   └── WebSocket hub
	└── APISupervisor ("api-layer")
	    └── HTTP Server

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and config files
 2. Logging: zerolog with JSON/console output modes
 3. Session store: BadgerDB, mirrored to DuckDB when enabled
 4. Ingestion client: rate limited, behind a circuit breaker
 5. Import driver and progress reporter
 6. WebSocket hub for live progress
 7. NATS notifications (optional)
 8. HTTP Server: Chi router with middleware stack

# Configuration

	INGESTION_URL=https://registry.example.com/api/holdings   # required
	INGESTION_API_KEY=<token>
	IMPORT_BATCH_SIZE=1000
	IMPORT_UPLOAD_DIR=/data/uploads
	IMPORT_AUTO_RESUME=true
	SESSION_STORE_PATH=/data/sessions
	DUCKDB_ENABLED=true
	DUCKDB_PATH=/data/registrar.duckdb
	NATS_ENABLED=true
	NATS_EMBEDDED=true
	HTTP_PORT=8080
	LOG_LEVEL=info

# Signal Handling

SIGINT and SIGTERM stop the tree. A running import is stopped first so its
session is saved as paused and can be continued after restart.
*/
package main
