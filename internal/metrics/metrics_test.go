// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestRecordBatch(t *testing.T) {
	before := testutil.ToFloat64(ImportBatchesTotal.WithLabelValues("acknowledged"))

	RecordBatch("acknowledged", 150*time.Millisecond)

	after := testutil.ToFloat64(ImportBatchesTotal.WithLabelValues("acknowledged"))
	if after-before != 1 {
		t.Errorf("acknowledged batches delta = %v, want 1", after-before)
	}

	var m dto.Metric
	if err := ImportBatchDuration.Write(&m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if m.GetHistogram().GetSampleCount() == 0 {
		t.Error("batch duration histogram has no samples")
	}
}

func TestRecordRowsProcessed_IgnoresNonPositive(t *testing.T) {
	before := testutil.ToFloat64(ImportRowsProcessed)

	RecordRowsProcessed(0)
	RecordRowsProcessed(-3)
	RecordRowsProcessed(40)

	if got := testutil.ToFloat64(ImportRowsProcessed) - before; got != 40 {
		t.Errorf("rows processed delta = %v, want 40", got)
	}
}

func TestRecordRateLimit(t *testing.T) {
	hits := testutil.ToFloat64(ImportRateLimitHits)
	limited := testutil.ToFloat64(ImportBatchesTotal.WithLabelValues("rate_limited"))

	RecordRateLimit()

	if got := testutil.ToFloat64(ImportRateLimitHits) - hits; got != 1 {
		t.Errorf("rate limit hits delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(ImportBatchesTotal.WithLabelValues("rate_limited")) - limited; got != 1 {
		t.Errorf("rate_limited batches delta = %v, want 1", got)
	}
}

func TestRecordRejection(t *testing.T) {
	tests := []string{"missing_company_id", "invalid_company_id", "missing_holder_name"}
	for _, reason := range tests {
		before := testutil.ToFloat64(ImportRowsRejected.WithLabelValues(reason))
		RecordRejection(reason)
		if got := testutil.ToFloat64(ImportRowsRejected.WithLabelValues(reason)) - before; got != 1 {
			t.Errorf("RecordRejection(%q) delta = %v, want 1", reason, got)
		}
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/imports/current", "200"))

	RecordAPIRequest("GET", "/api/v1/imports/current", 200, 5*time.Millisecond)

	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/imports/current", "200"))
	if after-before != 1 {
		t.Errorf("api requests delta = %v, want 1", after-before)
	}
}
