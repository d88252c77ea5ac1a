package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// UpstreamError wraps a failure from one of the upstream services (language
// model, search, marketplace, price oracle) that is safe to retry.
type UpstreamError struct {
	Err        error
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstreamError marks an error as retryable, with an optional HTTP status.
func NewUpstreamError(err error, statusCode int) *UpstreamError {
	return &UpstreamError{Err: err, StatusCode: statusCode}
}

// Retryable reports whether the error chain contains an UpstreamError or
// matches a transient network failure (timeout, reset, DNS).
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	var ue *UpstreamError
	if errors.As(err, &ue) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// Wrapped transport errors lose their type by the time they surface
	// from the API clients, so fall back to message matching.
	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// RetryableStatus reports whether an HTTP status from an upstream service
// indicates a transient condition.
func RetryableStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
