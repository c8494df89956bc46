package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is returned by every Client operation that fails. Status is the HTTP
// status code, or 0 when no response was received. Data is the decoded JSON
// error body, or an empty map when the body was not JSON.
type Error struct {
	Method string
	Path   string
	Status int
	Data   map[string]any
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Status == 0:
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: status %d: %v", e.Method, e.Path, e.Status, e.Err)
	case e.Detail() != "":
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Detail())
	default:
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Detail returns the human-readable message carried by the error body, looking
// at "detail" (string or object with "error"), then "message", then "error".
func (e *Error) Detail() string {
	switch d := e.Data["detail"].(type) {
	case string:
		return d
	case map[string]any:
		if s, ok := d["error"].(string); ok {
			return s
		}
	}
	for _, key := range []string{"message", "error"} {
		if s, ok := e.Data[key].(string); ok {
			return s
		}
	}
	return ""
}

// NeedsAuth reports whether the body flags a missing Gmail authorization.
func (e *Error) NeedsAuth() bool {
	d, ok := e.Data["detail"].(map[string]any)
	if !ok {
		return false
	}
	v, _ := d["needs_auth"].(bool)
	return v
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// DetailOf returns the server detail message carried by err, or "".
func DetailOf(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Detail()
	}
	return ""
}

// IsNetwork reports whether err is a transport failure: no response at all,
// or a successful status with an unreadable body.
func IsNetwork(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && (apiErr.Status == 0 || apiErr.Err != nil)
}

// IsUnauthorized reports whether the user is not logged in. Missing Gmail
// authorization is reported by NeedsGmailAuth instead.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized && !apiErr.NeedsAuth()
}

// NeedsGmailAuth reports whether the backend requires Gmail to be connected first.
func NeedsGmailAuth(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized && apiErr.NeedsAuth()
}

// IsNotFound reports whether the backend answered 404.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}
