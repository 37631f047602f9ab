// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package models

// IngestRequest is the body posted to the ingestion endpoint for one batch.
type IngestRequest struct {
	Records   []Holding `json:"records"`
	Dimension int       `json:"dimension"`
	BatchInfo BatchInfo `json:"batchInfo"`
	SessionID string    `json:"sessionId"`
}

// BatchInfo positions a batch within its file. Both fields are 1-based.
type BatchInfo struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// IngestResponse is the endpoint's acknowledgement of a batch.
// ProcessedRows may be lower than the batch size when the endpoint
// collapses duplicates.
type IngestResponse struct {
	ProcessedRows int `json:"processedRows"`
	Duplicates    int `json:"duplicates,omitempty"`
	Errors        int `json:"errors,omitempty"`
}
