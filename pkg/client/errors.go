package client

import (
	"errors"
	"fmt"
)

// HTTPError represents a non-2xx HTTP response from the API.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// NetworkError is a request that never produced an HTTP response:
// connection refused, DNS failure, timeout or cancellation.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "network unavailable: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsStatus returns true if err (or any wrapped error) is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}

// IsUnreachable returns true if err (or any wrapped error) is a NetworkError.
func IsUnreachable(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
