// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package registryimport

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/tomtom215/registrar/internal/logging"
	"github.com/tomtom215/registrar/internal/metrics"
)

// Progress is the read-only projection shown to operators.
type Progress struct {
	SessionID          string       `json:"sessionId"`
	Status             Status       `json:"status"`
	DriverState        DriverState  `json:"driverState,omitempty"`
	OverallPercent     float64      `json:"overallPercent"`
	ProcessedRows      int          `json:"processedRows"`
	TotalFileRows      int          `json:"totalFileRows"`
	ImportSpeed        float64      `json:"importSpeed"`                  // rows per minute
	EstimatedRemaining *float64     `json:"estimatedRemaining,omitempty"` // minutes
	ElapsedMinutes     float64      `json:"elapsedMinutes"`
	CurrentFile        int          `json:"currentFile"`
	CurrentBatch       int          `json:"currentBatch"`
	TotalBatches       int          `json:"totalBatches"`
	DuplicatesCount    int          `json:"duplicatesCount"`
	RejectedRows       int          `json:"rejectedRows"`
	Files              []FileStatus `json:"fileStatuses"`
	Message            string       `json:"message,omitempty"`
	ComputedAt         time.Time    `json:"computedAt"`
}

// ComputeProgress derives a Progress from a session. Overall progress is
// capped at 95% until the session is completed.
func ComputeProgress(s *Session, now time.Time) Progress {
	p := Progress{
		SessionID:       s.ID,
		Status:          s.Status,
		ProcessedRows:   s.ProcessedRows,
		TotalFileRows:   s.TotalFileRows,
		CurrentFile:     s.CurrentFile,
		CurrentBatch:    s.CurrentBatch,
		TotalBatches:    s.TotalBatches,
		DuplicatesCount: s.DuplicatesCount,
		RejectedRows:    s.RejectedRows,
		Files:           append([]FileStatus(nil), s.Files...),
		Message:         s.Message,
		ComputedAt:      now,
	}

	switch {
	case s.Status == StatusCompleted:
		p.OverallPercent = 100
	case s.TotalFileRows > 0:
		p.OverallPercent = math.Min(95, float64(s.ProcessedRows)/float64(s.TotalFileRows)*100)
	}

	if !s.StartTime.IsZero() {
		p.ElapsedMinutes = now.Sub(s.StartTime).Minutes()
	}
	if p.ElapsedMinutes > 0 {
		p.ImportSpeed = float64(s.ProcessedRows) / p.ElapsedMinutes
	}
	if p.ImportSpeed > 0 {
		remaining := float64(max(s.TotalFileRows-s.ProcessedRows, 0)) / p.ImportSpeed
		p.EstimatedRemaining = &remaining
	}
	return p
}

// SnapshotSource is implemented by *Driver.
type SnapshotSource interface {
	Snapshot() (*Session, DriverState)
}

// ProgressSink receives every recomputed Progress.
type ProgressSink func(Progress)

// Reporter recomputes progress on a fixed interval while an import is
// active, and immediately on Refresh. It never modifies the session.
type Reporter struct {
	src      SnapshotSource
	interval time.Duration
	now      func() time.Time
	refresh  chan struct{}

	mu     sync.RWMutex
	sinks  []ProgressSink
	latest *Progress
}

// NewReporter creates a Reporter. interval <= 0 means 2s.
func NewReporter(src SnapshotSource, interval time.Duration) *Reporter {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Reporter{
		src:      src,
		interval: interval,
		now:      time.Now,
		refresh:  make(chan struct{}, 1),
	}
}

// AddSink registers a consumer of progress updates.
func (r *Reporter) AddSink(s ProgressSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = append(r.sinks, s)
}

// Refresh requests an immediate recomputation. It never blocks; requests
// made while one is pending are coalesced.
func (r *Reporter) Refresh() {
	select {
	case r.refresh <- struct{}{}:
	default:
	}
}

// Observe is a driver observer that refreshes on every event.
func (r *Reporter) Observe(Event) {
	r.Refresh()
}

// Latest returns the most recent projection, if any.
func (r *Reporter) Latest() (Progress, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.latest == nil {
		return Progress{}, false
	}
	return *r.latest, true
}

// Serve runs until ctx is done. It implements suture.Service.
func (r *Reporter) Serve(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.tick(false)
		case <-r.refresh:
			r.tick(true)
		}
	}
}

func (r *Reporter) String() string { return "progress-reporter" }

// tick publishes a projection. Timer ticks only publish while the
// session is active.
func (r *Reporter) tick(forced bool) {
	s, state := r.src.Snapshot()
	if s == nil {
		return
	}
	if !forced && s.Status != StatusActive {
		return
	}

	p := ComputeProgress(s, r.now())
	p.DriverState = state
	metrics.ImportProgressPercent.Set(p.OverallPercent)

	r.mu.Lock()
	r.latest = &p
	sinks := append([]ProgressSink(nil), r.sinks...)
	r.mu.Unlock()

	for _, sink := range sinks {
		sink(p)
	}

	logging.Debug().
		Str("session_id", p.SessionID).
		Float64("percent", p.OverallPercent).
		Float64("rows_per_min", p.ImportSpeed).
		Msg("Import progress")
}
