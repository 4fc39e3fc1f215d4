package http

import (
	"context"
	"errors"
	"math/rand"
	"net"
	nethttp "net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// ErrorType represents different classes of errors for retry strategy
type ErrorType int

const (
	// ErrorTypeSuccess indicates operation succeeded
	ErrorTypeSuccess ErrorType = iota
	// ErrorTypeNetwork indicates network/connection issues (timeouts, connection refused, etc.)
	ErrorTypeNetwork
	// ErrorTypeRetryable indicates server errors that can be retried (500, 502, 503, 429)
	ErrorTypeRetryable
	// ErrorTypeFatal indicates errors that should not be retried (4xx, TLS, bad URL)
	ErrorTypeFatal
)

type noRetryKey struct{}

// WithoutRetry marks a request context so the retry policy never retries it.
// Mutations and best-effort cleanup calls use this.
func WithoutRetry(ctx context.Context) context.Context {
	return context.WithValue(ctx, noRetryKey{}, true)
}

func retryDisabled(ctx context.Context) bool {
	v, _ := ctx.Value(noRetryKey{}).(bool)
	return v
}

// ClassifyError determines the error type of a transport error.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrorTypeSuccess
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// Bad scheme or TLS verification problems will not fix themselves.
		msg := urlErr.Err.Error()
		if strings.Contains(msg, "unsupported protocol scheme") ||
			strings.Contains(msg, "certificate") {
			return ErrorTypeFatal
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorTypeNetwork
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "eof") ||
		strings.Contains(errStr, "timeout") {
		return ErrorTypeNetwork
	}

	return ErrorTypeFatal
}

// ClassifyStatus maps an HTTP status to an ErrorType.
func ClassifyStatus(status int) ErrorType {
	switch {
	case status < 400:
		return ErrorTypeSuccess
	case status == nethttp.StatusTooManyRequests:
		return ErrorTypeRetryable
	case status == nethttp.StatusNotImplemented:
		return ErrorTypeFatal
	case status >= 500:
		return ErrorTypeRetryable
	default:
		return ErrorTypeFatal
	}
}

// RetryPolicy is a retryablehttp.CheckRetry that only retries reads.
// Requests whose context carries WithoutRetry, and any request that is not
// GET or HEAD, are attempted exactly once.
func RetryPolicy(ctx context.Context, resp *nethttp.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if retryDisabled(ctx) {
		return false, nil
	}
	if resp != nil && resp.Request != nil {
		if m := resp.Request.Method; m != nethttp.MethodGet && m != nethttp.MethodHead {
			return false, nil
		}
	}

	if err != nil {
		return ClassifyError(err) == ErrorTypeNetwork, nil
	}
	return ClassifyStatus(resp.StatusCode) == ErrorTypeRetryable, nil
}

// Backoff is a retryablehttp.Backoff using full jitter. A Retry-After header
// on 429/503 takes precedence.
func Backoff(min, max time.Duration, attemptNum int, resp *nethttp.Response) time.Duration {
	if resp != nil && (resp.StatusCode == nethttp.StatusTooManyRequests || resp.StatusCode == nethttp.StatusServiceUnavailable) {
		return retryablehttp.DefaultBackoff(min, max, attemptNum, resp)
	}
	return CalculateBackoff(attemptNum+1, min, max)
}

// CalculateBackoff returns exponential backoff duration with full jitter
//
// Formula: random(0, min(maxDelay, initialDelay * 2^attempt))
func CalculateBackoff(attempt int, initialDelay, maxDelay time.Duration) time.Duration {
	if attempt <= 0 || initialDelay <= 0 {
		return 0
	}

	base := time.Duration(1<<uint(attempt)) * initialDelay
	if base > maxDelay || base <= 0 {
		base = maxDelay
	}
	if base <= 0 {
		return 0
	}

	return time.Duration(rand.Int63n(int64(base)))
}

// ErrorTypeName returns a human-readable name for an ErrorType
func ErrorTypeName(errType ErrorType) string {
	switch errType {
	case ErrorTypeSuccess:
		return "success"
	case ErrorTypeNetwork:
		return "network"
	case ErrorTypeRetryable:
		return "retryable"
	case ErrorTypeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}
