// Package apperrors provides standardized error handling for the scoring API.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed     ErrorCode = "VALIDATION_FAILED"
	ErrCodeAuthenticationFailed ErrorCode = "AUTHENTICATION_FAILED"
	ErrCodeMethodNotFound       ErrorCode = "METHOD_NOT_FOUND"
	ErrCodeBadRequest           ErrorCode = "BAD_REQUEST"
	ErrCodeStoreTimeout         ErrorCode = "STORE_TIMEOUT"
	ErrCodeStoreConnection      ErrorCode = "STORE_CONNECTION_FAILED"
	ErrCodeInternal             ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewValidationError creates a non-retryable validation error.
func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Request validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuthenticationError creates a non-retryable authentication error.
func NewAuthenticationError(login string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthenticationFailed,
		Message:   fmt.Sprintf("Authentication failed for user %s", login),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMethodNotFoundError creates a non-retryable routing error.
func NewMethodNotFoundError(method string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMethodNotFound,
		Message:   fmt.Sprintf("Method %s not found", method),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreTimeoutError creates a retryable backend timeout error.
func NewStoreTimeoutError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreTimeout,
		Message:   "Store operation timed out",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreConnectionError creates a retryable backend connection error.
func NewStoreConnectionError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreConnection,
		Message:   "Store connection failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// IsRetryable reports whether err is a retryable StandardError.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return false
}

// CodeOf returns the error code of err, or ErrCodeInternal for foreign errors.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// HTTPStatus maps an error code to the HTTP status returned to the caller.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed:
		return http.StatusUnprocessableEntity
	case ErrCodeAuthenticationFailed:
		return http.StatusForbidden
	case ErrCodeMethodNotFound:
		return http.StatusNotFound
	case ErrCodeBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
