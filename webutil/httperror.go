package webutil

import (
	"errors"
	"net/http"
)

const (
	msgBadRequest         = "Bad Request"
	msgNotFound           = "Resource not found"
	msgInternalServer     = "Internal Server Error"
	msgServiceUnavailable = "Service Unavailable"
)

// Represents an error with an associated HTTP status code
// and a user-facing message.
type HTTPError struct {
	cause       error    // The underlying error, can be nil
	Code        int      // HTTP status code
	Message     string   // User-facing error message
	Remediation []string // Optional steps the client can take
}

// Implements the error interface.
// It returns the Message, which is intended for the HTTP response.
func (he HTTPError) Error() string {
	return he.Message
}

// Provides compatibility for errors.Is and errors.As.
func (he HTTPError) Unwrap() error {
	return he.cause
}

// Returns the defaultVal if the initial message is empty.
func defaultMessageIfEmpty(initialMsg, defaultVal string) string {
	if initialMsg == "" {
		return defaultVal
	}
	return initialMsg
}

// Creates a new HTTPError with a code and message.
func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{
		cause:   errors.New(message),
		Code:    code,
		Message: message,
	}
}

// Creates a new HTTPError that wraps an existing error (cause).
// The message is a user-facing message for this specific HTTP error context.
func NewHTTPErrorWrap(code int, message string, cause error) *HTTPError {
	return &HTTPError{
		cause:   cause,
		Code:    code,
		Message: message,
	}
}

func ErrBadRequest(message string) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, defaultMessageIfEmpty(message, msgBadRequest))
}

func ErrBadRequestWrap(message string, cause error) *HTTPError {
	return NewHTTPErrorWrap(http.StatusBadRequest, defaultMessageIfEmpty(message, msgBadRequest), cause)
}

func ErrNotFound(message string) *HTTPError {
	return NewHTTPError(http.StatusNotFound, defaultMessageIfEmpty(message, msgNotFound))
}

// ErrServiceUnavailable carries a user-facing explanation, e.g. why the
// verse sources could not be loaded, and what to do about it.
func ErrServiceUnavailable(message string, cause error, remediation ...string) *HTTPError {
	he := NewHTTPErrorWrap(http.StatusServiceUnavailable, defaultMessageIfEmpty(message, msgServiceUnavailable), cause)
	he.Remediation = remediation
	return he
}
