// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-http.

package api

import "fmt"

// Common errors used across the library.
var (
	// ErrCanceled marks an operation discarded by its owner during teardown.
	// It is never a failure and must not be logged.
	ErrCanceled = fmt.Errorf("operation canceled")

	// ErrEndOfStream is returned when the peer closed the stream cleanly
	// between two requests.
	ErrEndOfStream = fmt.Errorf("end of stream")

	ErrTransportClosed  = fmt.Errorf("transport is closed")
	ErrMalformedRequest = fmt.Errorf("malformed request")
	ErrHeaderTooLarge   = fmt.Errorf("request header too large")
	ErrBodyTooLarge     = fmt.Errorf("request body too large")
	ErrInvalidArgument  = fmt.Errorf("invalid argument")
	ErrNotSupported     = fmt.Errorf("operation not supported")
	ErrNotFound         = fmt.Errorf("resource not found")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeTimeout
	ErrCodeNotSupported
	ErrCodeNotFound
	ErrCodeInternal
)

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Unwrap maps structured codes onto the sentinel errors so callers can use errors.Is.
func (e *Error) Unwrap() error {
	switch e.Code {
	case ErrCodeInvalidArgument:
		return ErrInvalidArgument
	case ErrCodeNotSupported:
		return ErrNotSupported
	case ErrCodeNotFound:
		return ErrNotFound
	default:
		return nil
	}
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}
