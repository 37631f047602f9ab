// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fakeBreaker string

func (f fakeBreaker) BreakerState() string { return string(f) }

type fakeClients int

func (f fakeClients) GetClientCount() int { return int(f) }

func TestHealth(t *testing.T) {
	tests := []struct {
		name    string
		db      Pinger
		breaker BreakerReporter
		want    string
	}{
		{"no optional deps", nil, nil, "healthy"},
		{"all good", fakePinger{}, fakeBreaker("closed"), "healthy"},
		{"database down", fakePinger{err: errors.New("closed")}, fakeBreaker("closed"), "degraded"},
		{"breaker open", fakePinger{}, fakeBreaker("open"), "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			if tt.db != nil {
				e.handler.SetDatabase(tt.db)
			}
			if tt.breaker != nil {
				e.handler.SetIngestion(tt.breaker)
			}
			e.handler.SetClientCounter(fakeClients(3))

			rec, resp := e.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			var hs HealthStatus
			raw, _ := json.Marshal(resp.Data)
			if err := json.Unmarshal(raw, &hs); err != nil {
				t.Fatal(err)
			}
			if hs.Status != tt.want {
				t.Errorf("Status = %q, want %q", hs.Status, tt.want)
			}
			if hs.WebSocketClients != 3 {
				t.Errorf("WebSocketClients = %d, want 3", hs.WebSocketClients)
			}
			if hs.DriverState != "idle" {
				t.Errorf("DriverState = %q, want idle", hs.DriverState)
			}
		})
	}
}

func TestRouter_NotFoundEnvelope(t *testing.T) {
	e := newTestEnv(t)
	rec, resp := e.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/nothing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if errorCode(resp) != ErrCodeNotFound {
		t.Errorf("code = %q, want %q", errorCode(resp), ErrCodeNotFound)
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	e := newTestEnv(t)
	rec, _ := e.do(t, httptest.NewRequest(http.MethodPut, "/api/v1/imports/current", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestRouter_RequestIDAndSecurityHeaders(t *testing.T) {
	e := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "ops-123")
	rec, resp := e.do(t, req)

	if got := rec.Header().Get("X-Request-ID"); got != "ops-123" {
		t.Errorf("X-Request-ID = %q, want ops-123", got)
	}
	if resp.Metadata.RequestID != "ops-123" {
		t.Errorf("Metadata.RequestID = %q, want ops-123", resp.Metadata.RequestID)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
}

func TestRouter_Metrics(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/imports/current", nil))

	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "registrar_api_requests_total") {
		t.Error("metrics output missing registrar_api_requests_total")
	}
}

func TestRateLimit(t *testing.T) {
	mw := NewChiMiddleware(&ChiMiddlewareConfig{RateLimitRequests: 2})
	h := mw.RateLimit()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 3)
	for i := range codes {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.10:4000"
		h.ServeHTTP(rec, req)
		codes[i] = rec.Code
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [204 204 429]", codes)
	}
}

func TestUploadName(t *testing.T) {
	tests := map[string]string{
		"registry.csv":          "registry.csv",
		"../../etc/passwd":      "passwd",
		`C:\Users\ops\reg.xlsx`: "reg.xlsx",
		"..":                    "",
		"/":                     "",
	}
	for in, want := range tests {
		if got := uploadName(in); got != want {
			t.Errorf("uploadName(%q) = %q, want %q", in, got, want)
		}
	}
}

var routerAnnotation = regexp.MustCompile(`(?m)^// @Router (\S+) \[(\w+)\]$`)

// Every public API route must carry a swag annotation so the generated
// docs match what the router serves.
func TestRouter_RoutesAnnotated(t *testing.T) {
	sources, err := filepath.Glob("*.go")
	if err != nil {
		t.Fatal(err)
	}
	annotated := make(map[string]bool)
	for _, name := range sources {
		if strings.HasSuffix(name, "_test.go") {
			continue
		}
		src, err := os.ReadFile(name)
		if err != nil {
			t.Fatal(err)
		}
		for _, m := range routerAnnotation.FindAllStringSubmatch(string(src), -1) {
			annotated[strings.ToUpper(m[2])+" "+m[1]] = true
		}
	}

	e := newTestEnv(t)
	routes, ok := e.server.(chi.Routes)
	if !ok {
		t.Fatalf("router %T does not expose its routes", e.server)
	}
	seen := 0
	err = chi.Walk(routes, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if !strings.HasPrefix(route, "/api/v1/") || strings.HasSuffix(route, "/ws") {
			return nil
		}
		seen++
		key := method + " " + strings.TrimSuffix(route, "/")
		if !annotated[key] {
			t.Errorf("route %s has no @Router annotation", key)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if seen != len(annotated) {
		t.Errorf("routes = %d, annotations = %d", seen, len(annotated))
	}
}
