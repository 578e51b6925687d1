// Package api provides the HTTP client for the Cloud Drive backend.
package api

import (
	"errors"
	"fmt"
	nethttp "net/http"
)

// ErrEmptyBaseURL is returned by NewClient when no API URL is configured.
var ErrEmptyBaseURL = errors.New("API base URL is empty")

// ErrEmptyAccessURL indicates GET /files/open/{id} answered without a URL.
var ErrEmptyAccessURL = errors.New("access URL missing from response")

// RemoteError describes a failed API call: either a transport failure (Err set)
// or a non-2xx response (StatusCode set).
type RemoteError struct {
	Method     string
	Path       string
	StatusCode int
	RequestID  string
	Msg        string // server-supplied {"msg": ...}, if any
	Err        error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %v", e.Method, e.Path, e.Err)
	}
	if e.Msg != "" {
		return fmt.Sprintf("%s %s failed: status %d: %s", e.Method, e.Path, e.StatusCode, e.Msg)
	}
	return fmt.Sprintf("%s %s failed: status %d", e.Method, e.Path, e.StatusCode)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// IsUnauthorized reports whether err is a 401 from the API.
//
// Usage:
//
//	if api.IsUnauthorized(err) {
//	    fmt.Println("Session rejected by the server, run `drive login`")
//	}
func IsUnauthorized(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.StatusCode == nethttp.StatusUnauthorized
}

// ServerMessage returns the server-supplied message of err, or "".
func ServerMessage(err error) string {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Msg
	}
	return ""
}
