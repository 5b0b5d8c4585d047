package common

import (
	"errors"
	"net/http"
)

// Canonical error codes rendered in the error envelope.
const (
	CodeNotFound    = "NOT_FOUND"
	CodeValidation  = "VALIDATION_ERROR"
	CodeInternal    = "INTERNAL"
	CodeRateLimited = "RATE_LIMITED"
	CodeTooLarge    = "PAYLOAD_TOO_LARGE"
	CodeUnavailable = "SERVICE_UNAVAILABLE"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// NotFound wraps err as a 404.
func NotFound(message string, err error) *AppError {
	return NewAppError(CodeNotFound, message, http.StatusNotFound, err)
}

// BadRequest wraps err as a 400 validation failure with optional details.
func BadRequest(message string, err error, details any) *AppError {
	appErr := NewAppError(CodeValidation, message, http.StatusBadRequest, err)
	appErr.Details = details
	return appErr
}

// Internal wraps err as a 500.
func Internal(err error) *AppError {
	return NewAppError(CodeInternal, "internal error", http.StatusInternalServerError, err)
}

// Unavailable wraps err as a 503 for a dependency that is refusing work.
func Unavailable(message string, err error) *AppError {
	return NewAppError(CodeUnavailable, message, http.StatusServiceUnavailable, err)
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}
