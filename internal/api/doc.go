// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

/*
Package api serves the operator HTTP API with the chi router.

Routes:

	POST   /api/v1/imports                 upload files (multipart: year, files) and start
	GET    /api/v1/imports                 recent sessions (DuckDB mirror)
	GET    /api/v1/imports/current         the driver's session and progress
	GET    /api/v1/imports/ws              live progress over WebSocket
	GET    /api/v1/imports/{id}            one session (local store, then mirror)
	POST   /api/v1/imports/{id}/pause      pause before the next batch
	POST   /api/v1/imports/{id}/resume     resume a paused import
	POST   /api/v1/imports/{id}/cancel     abort and forget local progress
	POST   /api/v1/imports/{id}/stop       abort but keep progress for later
	POST   /api/v1/imports/{id}/continue   resume a saved session from its files
	DELETE /api/v1/imports/{id}            forget a finished session
	GET    /api/v1/health                  liveness and dependency state
	GET    /metrics                        Prometheus exposition

Every JSON body uses the models.APIResponse envelope. Uploaded files are
kept under <upload_dir>/<sessionId>/ so an interrupted session can be
continued by a later process.

The middleware stack is request ID, real IP, panic recovery and CORS on
every route, plus per-IP rate limiting (go-chi/httprate), security headers
and Prometheus instrumentation on the API group. Uploads have their own,
stricter limit.
*/
package api
