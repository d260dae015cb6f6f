// internal/providers/errors.go
package providers

import (
	"fmt"
	"strings"
)

// HTTPError reports a non-2xx response from a model endpoint.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("provider returned HTTP %d", e.Status)
	}
	return fmt.Sprintf("provider returned HTTP %d: %s", e.Status, body)
}

// NetworkError reports a connection, DNS, or timeout failure before any
// response was received.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("provider unreachable: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// StreamReadError reports a response body that failed mid-read. Partial
// metrics accumulated before the failure are discarded by the caller.
type StreamReadError struct {
	Err error
}

func (e *StreamReadError) Error() string {
	return fmt.Sprintf("stream interrupted: %v", e.Err)
}

func (e *StreamReadError) Unwrap() error { return e.Err }
