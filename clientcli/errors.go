package clientcli

import (
	"errors"
	"net/http"
	"strconv"
)

// Errors for profile operations.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrNoProfiles      = errors.New("no profiles configured")
	ErrProfileExists   = errors.New("profile already exists")
)

// Errors for configuration and credentials.
var (
	ErrConfigRequired   = errors.New("config is required")
	ErrInvalidEndpoint  = errors.New("endpoint must be an http or https URL")
	ErrNotSignedIn      = errors.New("not signed in")
	ErrSessionExpired   = errors.New("session expired, sign in again")
	ErrClientIDRequired = errors.New("client id is required")
)

// Errors for input validation.
var (
	ErrEmptyID = errors.New("item id is required")
)

// DefaultErrorMessage is used when the server gives no usable message.
const DefaultErrorMessage = "an error occurred"

// APIError is returned for every failed exchange with the server: a non-2xx
// response, or a transport failure (StatusCode 0).
type APIError struct {
	StatusCode int
	Message    string
	// Err is the transport error for StatusCode 0.
	Err error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		if e.Err != nil {
			return "request failed: " + e.Err.Error()
		}
		return "request failed: " + e.Message
	}
	return "server error: " + strconv.Itoa(e.StatusCode) + " - " + e.Message
}

func (e *APIError) Unwrap() error { return e.Err }

// Is reports whether target matches this error.
// It matches if target is an *APIError with the same StatusCode.
func (e *APIError) Is(target error) bool {
	var t *APIError
	if !errors.As(target, &t) {
		return false
	}
	return t.StatusCode == e.StatusCode
}

// IsNotFound returns true if the error is a 404.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Sentinel errors for common API error conditions.
// Use errors.Is() to check for these conditions.
var (
	// ErrUnreachable is returned when the server could not be reached.
	ErrUnreachable = &APIError{StatusCode: 0}

	// ErrBadRequest is returned when the server rejected the input (400).
	ErrBadRequest = &APIError{StatusCode: http.StatusBadRequest}

	// ErrUnauthorized is returned when the token is missing, expired or
	// rejected (401).
	ErrUnauthorized = &APIError{StatusCode: http.StatusUnauthorized}

	// ErrForbidden is returned when the item belongs to someone else (403).
	ErrForbidden = &APIError{StatusCode: http.StatusForbidden}

	// ErrNotFound is returned when the requested item does not exist (404).
	ErrNotFound = &APIError{StatusCode: http.StatusNotFound}

	// ErrConflict is returned when the item already exists (409).
	ErrConflict = &APIError{StatusCode: http.StatusConflict}
)
