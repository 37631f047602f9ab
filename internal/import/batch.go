// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package registryimport

import (
	"errors"

	"github.com/tomtom215/registrar/internal/models"
)

// ErrInvalidBatchSize is returned by MakeBatches for size <= 0.
var ErrInvalidBatchSize = errors.New("batch size must be positive")

// Batch is the unit of submission and retry.
type Batch struct {
	Index   int // 1-based
	Total   int
	Records []models.Holding
}

// MakeBatches splits records into consecutive batches of at most size
// records. Order is preserved and nothing is copied: every batch is a
// capacity-capped window into records, so appending to one batch can
// never write into the next.
func MakeBatches(records []models.Holding, size int) ([]Batch, error) {
	if size <= 0 {
		return nil, ErrInvalidBatchSize
	}
	total := (len(records) + size - 1) / size
	batches := make([]Batch, 0, total)
	for i := 0; i < total; i++ {
		lo := i * size
		hi := min(lo+size, len(records))
		batches = append(batches, Batch{
			Index:   i + 1,
			Total:   total,
			Records: records[lo:hi:hi],
		})
	}
	return batches, nil
}
