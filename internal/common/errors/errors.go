// Package errors provides the standardized error taxonomy for the lookup pipeline.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Task-level failures. All of them are terminal for the task that
	// produced them and are persisted as its raw result.
	ErrCodeInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrCodeTimeout        ErrorCode = "TIMEOUT"
	ErrCodeTransportError ErrorCode = "TRANSPORT_ERROR"
	ErrCodeRemoteError    ErrorCode = "REMOTE_ERROR"

	// Infrastructure failures. Never attached to a task; they abort the
	// current worker iteration or table render instead.
	ErrCodeStoreError         ErrorCode = "STORE_ERROR"
	ErrCodeNormalizationError ErrorCode = "NORMALIZATION_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	HTTPStatus int       `json:"httpStatus,omitempty"`
	Retryable  bool      `json:"retryable"`
	Timestamp  time.Time `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewInvalidInputError creates a non-retryable malformed-identifier error.
// The lookup client returns it before any network call is made.
func NewInvalidInputError(identifier string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   "identifier must be exactly 14 digits",
		Details:   fmt.Sprintf("identifier: %s", identifier),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTimeoutError creates a lookup timeout error. The task stays ERROR
// until re-enqueued manually, so the error is not marked retryable.
func NewTimeoutError(identifier string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTimeout,
		Message:   "lookup API did not respond within the timeout budget",
		Details:   fmt.Sprintf("identifier: %s", identifier),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTransportError creates an error for DNS, connection or other
// transport-level failures.
func NewTransportError(identifier string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTransportError,
		Message:   "lookup API transport failure",
		Details:   fmt.Sprintf("identifier: %s, error: %s", identifier, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRemoteError creates an error for a non-2xx API response. Message
// carries the remote-supplied message when the body was parsable,
// otherwise a plain HTTP status description.
func NewRemoteError(httpStatus int, message string) *StandardError {
	if message == "" {
		message = fmt.Sprintf("Erro HTTP: %d", httpStatus)
	}
	return &StandardError{
		Code:       ErrCodeRemoteError,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  false,
		Timestamp:  time.Now().UTC(),
	}
}

// NewStoreError creates a retryable persistence error. It aborts the
// current worker iteration; the loop backs off and resumes.
func NewStoreError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreError,
		Message:   "persistent store operation failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNormalizationError creates an error for a raw result whose shape
// could not be flattened. The offending task falls back to an
// unflattened row; the rest of the table still renders.
func NewNormalizationError(identifier string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNormalizationError,
		Message:   "raw result could not be normalized",
		Details:   fmt.Sprintf("identifier: %s, error: %s", identifier, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
