// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

// Package middleware holds HTTP middleware shared by the operator API.
//
//   - RequestID: accepts or generates X-Request-ID and puts it, with a fresh
//     correlation ID, on the request context for logging.Ctx.
//   - PrometheusMetrics: records request count and latency per chi route
//     pattern, so /api/v1/imports/{id} is one series rather than one per
//     session.
//
// Both have the chi signature func(http.Handler) http.Handler.
package middleware
