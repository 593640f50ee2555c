package clients

import (
	"errors"
	"fmt"
	"net/http"
)

const maxErrorBody = 256

// TransportError is a network, timeout or cancellation failure. No response was received.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ErrEmptyBody is returned when a successful response carries no body but one was expected.
var ErrEmptyBody = errors.New("empty response body")

// DecodeError is a successful response whose body does not have the expected shape.
type DecodeError struct {
	Method string
	Path   string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("api: decode %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// APIError is a non-success response from the parking API.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api: %s %s returned %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("api: %s %s returned %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// Unauthorized reports whether the API rejected the session token.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

func checkStatus(method, path string, status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	text := string(body)
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody] + "..."
	}
	return &APIError{Method: method, Path: path, Status: status, Body: text}
}
