package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// maxMessageLength caps error bodies copied into APIError.
const maxMessageLength = 512

// APIError is returned when the remote answers with a non-success status.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// TransportError is returned when the request could not complete: connection
// refused, timeout, cancelled context or an unreadable body.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// errorMessage extracts a readable message from a Frappe error body.
func errorMessage(body []byte) string {
	var payload struct {
		Exception      string `json:"exception"`
		ExcType        string `json:"exc_type"`
		Message        any    `json:"message"`
		ServerMessages string `json:"_server_messages"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Exception != "":
			return truncate(payload.Exception)
		case payload.ServerMessages != "":
			return truncate(payload.ServerMessages)
		case payload.Message != nil:
			return truncate(fmt.Sprint(payload.Message))
		case payload.ExcType != "":
			return truncate(payload.ExcType)
		}
	}
	return truncate(strings.TrimSpace(string(body)))
}

func truncate(s string) string {
	if len(s) <= maxMessageLength {
		return s
	}
	return s[:maxMessageLength] + "..."
}
