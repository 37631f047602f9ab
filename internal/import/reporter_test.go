// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package registryimport

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"
)

func TestComputeProgress(t *testing.T) {
	start := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		processed   int
		total       int
		status      Status
		elapsed     time.Duration
		wantPercent float64
		wantSpeed   float64
		wantETA     *float64
	}{
		{"halfway", 500, 1000, StatusActive, 10 * time.Minute, 50, 50, ptr(10)},
		{"capped at 95", 999, 1000, StatusActive, 10 * time.Minute, 95, 99.9, ptr(1.0 / 99.9)},
		{"completed is 100", 1000, 1000, StatusCompleted, 20 * time.Minute, 100, 50, ptr(0)},
		{"no speed no eta", 0, 1000, StatusActive, 5 * time.Minute, 0, 0, nil},
		{"unknown total", 10, 0, StatusActive, time.Minute, 0, 10, ptr(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Session{
				ID:            "p",
				Status:        tt.status,
				ProcessedRows: tt.processed,
				TotalFileRows: tt.total,
				StartTime:     start,
			}
			p := ComputeProgress(s, start.Add(tt.elapsed))

			if !near(p.OverallPercent, tt.wantPercent) {
				t.Errorf("OverallPercent = %v, want %v", p.OverallPercent, tt.wantPercent)
			}
			if !near(p.ImportSpeed, tt.wantSpeed) {
				t.Errorf("ImportSpeed = %v, want %v", p.ImportSpeed, tt.wantSpeed)
			}
			switch {
			case tt.wantETA == nil && p.EstimatedRemaining != nil:
				t.Errorf("EstimatedRemaining = %v, want nil", *p.EstimatedRemaining)
			case tt.wantETA != nil && (p.EstimatedRemaining == nil || !near(*p.EstimatedRemaining, *tt.wantETA)):
				t.Errorf("EstimatedRemaining = %v, want %v", p.EstimatedRemaining, *tt.wantETA)
			}
		})
	}
}

func TestComputeProgress_DoesNotAliasSession(t *testing.T) {
	s := &Session{Files: []FileStatus{{Name: "a.csv", Status: FileProcessing}}, StartTime: time.Now()}
	p := ComputeProgress(s, time.Now())
	p.Files[0].Status = FileError
	if s.Files[0].Status != FileProcessing {
		t.Error("ComputeProgress shares the session's file slice")
	}
}

func ptr(f float64) *float64 { return &f }

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

type fakeSource struct {
	mu    sync.Mutex
	s     *Session
	state DriverState
}

func (f *fakeSource) Snapshot() (*Session, DriverState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.s.Clone(), f.state
}

func (f *fakeSource) set(s *Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s = s
}

func TestReporter_TicksOnlyWhileActive(t *testing.T) {
	src := &fakeSource{state: StateProcessing}
	src.set(&Session{ID: "r", Status: StatusActive, ProcessedRows: 10, TotalFileRows: 100, StartTime: time.Now().Add(-time.Minute)})

	r := NewReporter(src, 10*time.Millisecond)
	updates := make(chan Progress, 64)
	r.AddSink(func(p Progress) { updates <- p })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.Serve(ctx) }()

	select {
	case p := <-updates:
		if p.SessionID != "r" || p.DriverState != StateProcessing {
			t.Errorf("progress = %+v", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no progress while active")
	}

	src.set(&Session{ID: "r", Status: StatusPaused, StartTime: time.Now()})
	time.Sleep(30 * time.Millisecond)
	for len(updates) > 0 {
		<-updates
	}
	time.Sleep(50 * time.Millisecond)
	if n := len(updates); n != 0 {
		t.Errorf("%d ticks published for a paused session", n)
	}

	r.Refresh()
	select {
	case p := <-updates:
		if p.Status != StatusPaused {
			t.Errorf("refreshed Status = %s, want paused", p.Status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Refresh() did not publish")
	}

	if latest, ok := r.Latest(); !ok || latest.Status != StatusPaused {
		t.Errorf("Latest() = %+v, %v", latest, ok)
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Serve() error = %v, want context.Canceled", err)
	}
}

func TestReporter_RefreshNeverBlocks(t *testing.T) {
	r := NewReporter(&fakeSource{}, time.Hour)
	for i := 0; i < 100; i++ {
		r.Refresh()
	}
	r.Observe(Event{Type: EventBatchAcknowledged})
	if _, ok := r.Latest(); ok {
		t.Error("Latest() before any computation should be empty")
	}
}
