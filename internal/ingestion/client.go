// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

/*
Package ingestion is the HTTP client for the remote ingestion endpoint.

Each batch is POSTed as JSON. The client paces requests with a token bucket
(golang.org/x/time/rate) and guards the endpoint with a circuit breaker
(sony/gobreaker). It does not retry: throttling and timeouts are surfaced
as errors and the import driver decides when to resubmit.

Error responses become *Error, which exposes the HTTP status and any
Retry-After hint.
*/
package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/registrar/internal/config"
	"github.com/tomtom215/registrar/internal/logging"
	"github.com/tomtom215/registrar/internal/metrics"
	"github.com/tomtom215/registrar/internal/models"
)

// maxErrorBodySize bounds how much of an error response is read.
const maxErrorBodySize = 64 * 1024

const breakerName = "ingestion-api"

// Error is a non-2xx response from the ingestion endpoint.
type Error struct {
	StatusCode int
	Message    string
	retryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ingestion endpoint returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("ingestion endpoint returned HTTP %d: %s", e.StatusCode, e.Message)
}

// HTTPStatus returns the response status code.
func (e *Error) HTTPStatus() int { return e.StatusCode }

// RetryAfter is the server's Retry-After hint, or zero.
func (e *Error) RetryAfter() time.Duration { return e.retryAfter }

// Client submits batches. It is safe for concurrent use.
type Client struct {
	url     string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[*models.IngestResponse]
}

// New creates a Client from configuration.
func New(cfg *config.IngestionConfig) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := max(cfg.Burst, 1)

	return &Client{
		url:     cfg.URL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
		cb:      newBreaker(cfg.BreakerMaxFailures, cfg.BreakerTimeout),
	}
}

func newBreaker(maxFailures uint32, timeout time.Duration) *gobreaker.CircuitBreaker[*models.IngestResponse] {
	if maxFailures == 0 {
		maxFailures = 5
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	return gobreaker.NewCircuitBreaker[*models.IngestResponse](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= maxFailures
			if trip {
				logging.Warn().Uint32("consecutive_failures", counts.ConsecutiveFailures).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return trip
		},
		// Throttling and 4xx responses do not count against the endpoint.
		IsSuccessful: func(err error) bool {
			var e *Error
			if errors.As(err, &e) {
				return e.StatusCode == http.StatusTooManyRequests || e.StatusCode < 500
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("from", from.String()).Str("to", to.String()).Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})
}

// Submit posts one batch and decodes the acknowledgement.
func (c *Client) Submit(ctx context.Context, req *models.IngestRequest) (*models.IngestResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limiter: %w", err)
	}

	resp, err := c.cb.Execute(func() (*models.IngestResponse, error) {
		return c.post(ctx, req)
	})
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "rejected").Inc()
		return nil, fmt.Errorf("ingestion endpoint unavailable: %w", err)
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "failure").Inc()
		return nil, err
	}
	return resp, nil
}

// BreakerState reports the circuit breaker state ("closed", "half-open"
// or "open").
func (c *Client) BreakerState() string {
	return c.cb.State().String()
}

func (c *Client) post(ctx context.Context, req *models.IngestRequest) (*models.IngestResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal batch: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("post batch %d/%d: %w", req.BatchInfo.Current, req.BatchInfo.Total, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, responseError(resp)
	}

	var out models.IngestResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode acknowledgement: %w", err)
	}
	return &out, nil
}

// responseError builds an *Error from a failed response. The message is
// taken from a JSON {"error"} or {"message"} body, else the raw text.
func responseError(resp *http.Response) *Error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	e := &Error{StatusCode: resp.StatusCode, retryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		e.Message = body.Error
		if e.Message == "" {
			e.Message = body.Message
		}
	}
	if e.Message == "" {
		e.Message = strings.TrimSpace(string(raw))
	}
	return e
}

// parseRetryAfter accepts delay-seconds or an HTTP date.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
