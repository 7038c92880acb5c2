// Package pipeline defines the shared error taxonomy for the ingestion pipeline.
package pipeline

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes every component reports against.
var (
	ErrTransientNetwork = errors.New("transient network error")
	ErrQuotaExceeded    = errors.New("provider quota exceeded")
	ErrEndpointDisabled = errors.New("provider endpoint disabled")
	ErrMalformedDoc     = errors.New("malformed document")
	ErrStoreWrite       = errors.New("store write error")
	ErrNoCapacity       = errors.New("no request capacity")
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	CodeTransient        ErrorCode = "TRANSIENT_NETWORK"
	CodeQuotaExceeded    ErrorCode = "QUOTA_EXCEEDED"
	CodeEndpointDisabled ErrorCode = "ENDPOINT_DISABLED"
	CodeMalformed        ErrorCode = "MALFORMED_DOCUMENT"
	CodeStoreWrite       ErrorCode = "STORE_WRITE"
	CodeConfig           ErrorCode = "CONFIG"
)

// Error wraps pipeline failures with classification context.
type Error struct {
	Code       ErrorCode
	Source     string
	Message    string
	Underlying error
	Retry      bool
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is checks if the error matches the target
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return errors.Is(e.Underlying, target)
}

// New creates a classified pipeline error.
func New(code ErrorCode, source, message string, err error) *Error {
	return &Error{
		Code:       code,
		Source:     source,
		Message:    message,
		Underlying: err,
	}
}

// WithRetry marks the error as retryable on the next scheduled run.
func (e *Error) WithRetry() *Error {
	e.Retry = true
	return e
}
