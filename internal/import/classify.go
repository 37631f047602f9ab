// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package registryimport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"time"
)

var rateLimitPattern = regexp.MustCompile(`(?i)rate[ _-]?limit|too many requests`)

// RateLimitError is returned when a batch was still throttled after the
// configured number of retries. The file is marked as failed.
type RateLimitError struct {
	Attempts int
	Err      error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// RemoteIngestionError is any other failed submission. The file is marked
// as failed and the import continues with the next one.
type RemoteIngestionError struct {
	Batch int
	Err   error
}

func (e *RemoteIngestionError) Error() string {
	return fmt.Sprintf("batch %d rejected by ingestion endpoint: %v", e.Batch, e.Err)
}

func (e *RemoteIngestionError) Unwrap() error { return e.Err }

// IsRateLimited reports whether err signals throttling: an error carrying
// HTTP status 429, or one whose message mentions a rate limit.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var status interface{ HTTPStatus() int }
	if errors.As(err, &status) && status.HTTPStatus() == http.StatusTooManyRequests {
		return true
	}
	return rateLimitPattern.MatchString(err.Error())
}

// IsTimeout reports whether err is a per-request timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// retryable errors wait out the cooldown and resubmit the same batch.
func retryable(err error) bool {
	return IsRateLimited(err) || IsTimeout(err)
}

// cooldownFor honours a server-provided Retry-After when it is longer
// than the configured cooldown.
func cooldownFor(err error, cooldown time.Duration) time.Duration {
	var ra interface{ RetryAfter() time.Duration }
	if errors.As(err, &ra) {
		if d := ra.RetryAfter(); d > cooldown {
			return d
		}
	}
	return cooldown
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
