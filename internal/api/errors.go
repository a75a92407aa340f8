package api

import (
	"errors"
	"fmt"
)

// Sentinel errors for distinguished backend responses.
var (
	// ErrProjectNotFound is returned when the server no longer knows the
	// project, typically after a cleanup or restart.
	ErrProjectNotFound = errors.New("project not found")

	// ErrServerBusy is the transient-busy signal: the server is mid-write
	// or warming up and the caller should retry shortly. It is not a
	// failure.
	ErrServerBusy = errors.New("server busy, retry shortly")
)

// TransportError wraps network-level failures: unreachable host, dropped
// connection, malformed response body. These are retryable from the user's
// point of view.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError is a non-2xx response with a decoded detail message.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Detail)
}

// IsBusy reports whether err is the transient-busy signal.
func IsBusy(err error) bool {
	return errors.Is(err, ErrServerBusy)
}

// IsNotFound reports whether err means the project no longer exists.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProjectNotFound)
}
