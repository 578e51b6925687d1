package http

import (
	"context"
	"crypto/x509"
	"errors"
	"math/rand"
	nethttp "net/http"
	"time"
)

// ErrorType represents different classes of failures for the retry strategy
type ErrorType int

const (
	// ErrorTypeSuccess indicates the request succeeded
	ErrorTypeSuccess ErrorType = iota
	// ErrorTypeCredential indicates authentication/authorization failure (401, 403)
	ErrorTypeCredential
	// ErrorTypeNetwork indicates transport issues (timeouts, connection refused, etc.)
	ErrorTypeNetwork
	// ErrorTypeRetryable indicates server errors that can be retried (429, 5xx)
	ErrorTypeRetryable
	// ErrorTypeFatal indicates client errors that should not be retried (400, 404, ...)
	ErrorTypeFatal
)

// Classify determines the error type of a completed round trip.
func Classify(resp *nethttp.Response, err error) ErrorType {
	if err != nil {
		var certErr *x509.UnknownAuthorityError
		if errors.As(err, &certErr) {
			return ErrorTypeFatal
		}
		return ErrorTypeNetwork
	}
	if resp == nil {
		return ErrorTypeFatal
	}

	switch code := resp.StatusCode; {
	case code < 400:
		return ErrorTypeSuccess
	case code == nethttp.StatusUnauthorized || code == nethttp.StatusForbidden:
		return ErrorTypeCredential
	case code == nethttp.StatusTooManyRequests || code == nethttp.StatusRequestTimeout:
		return ErrorTypeRetryable
	case code >= 500 && code != nethttp.StatusNotImplemented:
		return ErrorTypeRetryable
	default:
		return ErrorTypeFatal
	}
}

// CheckRetry is a retryablehttp.CheckRetry policy.
// Only network and server-side failures are retried; credential failures
// surface immediately so the session guard can react.
func CheckRetry(ctx context.Context, resp *nethttp.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	switch Classify(resp, err) {
	case ErrorTypeNetwork, ErrorTypeRetryable:
		return true, nil
	default:
		return false, nil
	}
}

// NoRetry is the policy for non-idempotent requests: never retry.
func NoRetry(ctx context.Context, _ *nethttp.Response, _ error) (bool, error) {
	return false, ctx.Err()
}

// Backoff is a retryablehttp.Backoff with exponential growth and full jitter.
//
// Formula: random(0, min(max, min * 2^attempt))
func Backoff(minDelay, maxDelay time.Duration, attemptNum int, _ *nethttp.Response) time.Duration {
	return CalculateBackoff(attemptNum, minDelay, maxDelay)
}

// CalculateBackoff returns exponential backoff duration with full jitter
func CalculateBackoff(attempt int, initialDelay, maxDelay time.Duration) time.Duration {
	if attempt <= 0 || initialDelay <= 0 {
		return 0
	}

	base := time.Duration(1<<uint(min(attempt, 30))) * initialDelay
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
	case ErrorTypeCredential:
		return "credential"
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
