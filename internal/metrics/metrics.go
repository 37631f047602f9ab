// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

// Package metrics holds the Prometheus collectors for the import pipeline
// and the HTTP API. Collectors are package globals registered with the
// default registry through promauto.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Import pipeline

	ImportBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registrar_import_batches_total",
			Help: "Batches submitted to the ingestion endpoint by outcome",
		},
		[]string{"outcome"}, // "acknowledged", "rate_limited", "failed"
	)

	ImportBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "registrar_import_batch_duration_seconds",
			Help:    "Round-trip time of one batch submission",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	ImportRowsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registrar_import_rows_processed_total",
			Help: "Rows the ingestion endpoint reported as processed",
		},
	)

	ImportRowsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registrar_import_rows_rejected_total",
			Help: "Source rows dropped during normalization",
		},
		[]string{"reason"},
	)

	ImportFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registrar_import_files_total",
			Help: "Files finished by status",
		},
		[]string{"status"}, // "completed", "error"
	)

	ImportRateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registrar_import_rate_limit_hits_total",
			Help: "Rate-limit responses received from the ingestion endpoint",
		},
	)

	ImportSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registrar_import_sessions_active",
			Help: "Import sessions currently processing",
		},
	)

	ImportProgressPercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registrar_import_progress_percent",
			Help: "Overall progress of the current import session",
		},
	)

	// Ingestion client circuit breaker

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Requests through the circuit breaker",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// HTTP API

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registrar_api_requests_total",
			Help: "HTTP requests handled by the operator API",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "registrar_api_request_duration_seconds",
			Help:    "Latency of operator API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registrar_websocket_connections",
			Help: "Connected progress WebSocket clients",
		},
	)

	NotificationsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registrar_notifications_total",
			Help: "Push notifications by direction",
		},
		[]string{"direction"}, // "published", "received"
	)
)

// RecordBatch records the outcome and latency of one batch submission.
func RecordBatch(outcome string, d time.Duration) {
	ImportBatchesTotal.WithLabelValues(outcome).Inc()
	ImportBatchDuration.Observe(d.Seconds())
}

// RecordRowsProcessed adds endpoint-reported processed rows.
func RecordRowsProcessed(n int) {
	if n > 0 {
		ImportRowsProcessed.Add(float64(n))
	}
}

// RecordRejection counts one row dropped by the normalizer.
func RecordRejection(reason string) {
	ImportRowsRejected.WithLabelValues(reason).Inc()
}

// RecordFile counts a finished file.
func RecordFile(status string) {
	ImportFilesTotal.WithLabelValues(status).Inc()
}

// RecordRateLimit counts a rate-limit response.
func RecordRateLimit() {
	ImportRateLimitHits.Inc()
	ImportBatchesTotal.WithLabelValues("rate_limited").Inc()
}

// RecordAPIRequest records one operator API request.
func RecordAPIRequest(method, route string, status int, d time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordNotification counts a NATS notification.
func RecordNotification(direction string) {
	NotificationsPublished.WithLabelValues(direction).Inc()
}
