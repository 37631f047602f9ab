// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

type mockService struct {
	name     string
	starts   atomic.Int32
	stops    atomic.Int32
	failures atomic.Int32
	maxFails int32
}

func (m *mockService) Serve(ctx context.Context) error {
	m.starts.Add(1)
	defer m.stops.Add(1)
	if m.failures.Add(1) <= m.maxFails {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockService) String() string { return m.name }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestTreeConfig_Defaults(t *testing.T) {
	got := TreeConfig{FailureBackoff: time.Second}.withDefaults()
	if got.FailureThreshold != 5 || got.FailureDecay != 30 || got.ShutdownTimeout != 10*time.Second {
		t.Errorf("withDefaults() = %+v", got)
	}
	if got.FailureBackoff != time.Second {
		t.Errorf("FailureBackoff = %v, want 1s (explicit value kept)", got.FailureBackoff)
	}
}

func TestTree_StartsEveryLayerAndStops(t *testing.T) {
	tree := NewTree(quietLogger(), TreeConfig{FailureBackoff: 50 * time.Millisecond, ShutdownTimeout: time.Second})

	services := []*mockService{{name: "nats"}, {name: "reporter"}, {name: "http"}}
	tree.AddMessagingService(services[0])
	tree.AddImportService(services[1])
	tree.AddAPIService(services[2])

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	waitUntil(t, func() bool {
		for _, s := range services {
			if s.starts.Load() == 0 {
				return false
			}
		}
		return true
	})
	cancel()

	select {
	case <-errCh:
	case <-time.After(3 * time.Second):
		t.Fatal("tree did not stop")
	}
	for _, s := range services {
		if s.stops.Load() != s.starts.Load() {
			t.Errorf("%s: starts = %d, stops = %d", s.name, s.starts.Load(), s.stops.Load())
		}
	}
	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) != 0 {
		t.Errorf("unstopped services: %v", report)
	}
}

func TestTree_RestartsFailedService(t *testing.T) {
	tree := NewTree(quietLogger(), TreeConfig{FailureThreshold: 10, FailureBackoff: 10 * time.Millisecond, ShutdownTimeout: time.Second})
	flaky := &mockService{name: "flaky", maxFails: 2}
	steady := &mockService{name: "steady"}
	tree.AddImportService(flaky)
	tree.AddAPIService(steady)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tree.ServeBackground(ctx)

	waitUntil(t, func() bool { return flaky.starts.Load() >= 3 })
	if n := steady.starts.Load(); n != 1 {
		t.Errorf("steady service started %d times, want 1", n)
	}
}
