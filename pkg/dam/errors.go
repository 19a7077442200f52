package dam

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotSupported is returned when a mutation is requested for a path the
// repository has no update API for (anything outside the asset tree).
var ErrNotSupported = errors.New("dam: operation not supported for this path")

// TransportError wraps a network-level failure during a repository call.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("dam: %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError reports a non-success HTTP status from an otherwise completed
// repository call.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("dam: %s %s: server returned %d", e.Method, e.Path, e.StatusCode)
}

// IsRetryable reports whether err is a transient failure worth retrying:
// any transport error, or a 5xx / 429 / 408 status. Conflict and client
// errors are permanent.
func IsRetryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500 ||
			se.StatusCode == http.StatusTooManyRequests ||
			se.StatusCode == http.StatusRequestTimeout
	}
	return false
}
