// Package client: retry support for idempotent store reads.
//
// Order and profile fetches may be retried safely; inserts and updates must
// not be, since the caller surfaces store errors verbatim and leaves retry
// to the user. RetryTransport therefore only retries GET requests.
package client

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"net/http"
	"time"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts.
	MaxRetries int
	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration
	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration
	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
	// Jitter adds randomness to backoff (0.0 to 1.0).
	Jitter float64
	// RetryableStatusCodes are HTTP status codes that should be retried.
	RetryableStatusCodes []int
}

// DefaultRetryConfig returns sensible defaults for retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            0.1,
		RetryableStatusCodes: []int{
			http.StatusTooManyRequests,     // 429
			http.StatusInternalServerError, // 500
			http.StatusBadGateway,          // 502
			http.StatusServiceUnavailable,  // 503
			http.StatusGatewayTimeout,      // 504
		},
	}
}

// RetryTransport wraps an http.RoundTripper with retry for GET requests.
type RetryTransport struct {
	Base   http.RoundTripper
	Config RetryConfig
}

// NewRetryHTTPClient returns an http.Client whose GET requests are retried
// with exponential backoff. A zero timeout falls back to 30 seconds.
func NewRetryHTTPClient(timeout time.Duration, cfg RetryConfig) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &RetryTransport{
			Base:   http.DefaultTransport,
			Config: cfg,
		},
	}
}

// RoundTrip implements http.RoundTripper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	// Non-idempotent methods go straight through.
	if req.Method != http.MethodGet {
		return base.RoundTrip(req)
	}

	var lastErr error
	var resp *http.Response

	for attempt := 0; attempt <= t.Config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := t.backoff(attempt)
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(backoff):
			}
			req = req.Clone(req.Context())
		}

		resp, lastErr = base.RoundTrip(req)

		if lastErr != nil {
			if t.retryableError(lastErr) {
				continue
			}
			return nil, lastErr
		}

		if t.retryableStatus(resp.StatusCode) {
			lastErr = &HTTPError{StatusCode: resp.StatusCode}
			resp.Body.Close()
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

func (t *RetryTransport) backoff(attempt int) time.Duration {
	backoff := float64(t.Config.InitialBackoff) * math.Pow(t.Config.BackoffMultiplier, float64(attempt-1))

	if backoff > float64(t.Config.MaxBackoff) {
		backoff = float64(t.Config.MaxBackoff)
	}

	if t.Config.Jitter > 0 {
		jitter := backoff * t.Config.Jitter * (rand.Float64()*2 - 1)
		backoff += jitter
	}

	return time.Duration(backoff)
}

func (t *RetryTransport) retryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func (t *RetryTransport) retryableStatus(code int) bool {
	for _, retryable := range t.Config.RetryableStatusCodes {
		if code == retryable {
			return true
		}
	}
	return false
}

// HTTPError represents an HTTP error status encountered during retry.
type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return http.StatusText(e.StatusCode)
}
