package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error types.
var (
	// ErrValidation marks a caller input fault.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a referenced entity that does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidTransition marks an illegal state machine transition.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidOperation marks a business rule violation.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrConfiguration marks a missing or inactive provider configuration.
	ErrConfiguration = errors.New("provider configuration unavailable")

	// ErrConflict marks an optimistic concurrency conflict; the caller
	// must retry from a fresh read.
	ErrConflict = errors.New("concurrent update conflict")

	// ErrGatewayUnavailable marks a gateway call that could not complete.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

// AppError represents an application error with HTTP status and error code.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// ErrorResponse represents the JSON error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error constructors.

// Validation creates a validation error.
func Validation(message string) *AppError {
	return &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Err:        ErrValidation,
	}
}

// NotFound creates a not found error.
func NotFound(resource string) *AppError {
	return &AppError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
		Err:        ErrNotFound,
	}
}

// InvalidTransition creates an invalid transition error.
func InvalidTransition(entity, from, to string) *AppError {
	return &AppError{
		Code:       "INVALID_TRANSITION",
		Message:    fmt.Sprintf("%s cannot move from %s to %s", entity, from, to),
		StatusCode: http.StatusConflict,
		Err:        ErrInvalidTransition,
	}
}

// InvalidOperation creates an invalid operation error.
func InvalidOperation(message string) *AppError {
	return &AppError{
		Code:       "INVALID_OPERATION",
		Message:    message,
		StatusCode: http.StatusConflict,
		Err:        ErrInvalidOperation,
	}
}

// Configuration creates a configuration error.
func Configuration(message string) *AppError {
	return &AppError{
		Code:       "CONFIGURATION_ERROR",
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
		Err:        ErrConfiguration,
	}
}

// Conflict creates an optimistic concurrency conflict error.
func Conflict(message string) *AppError {
	return &AppError{
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
		Err:        ErrConflict,
	}
}

// GatewayUnavailable creates a gateway failure error.
func GatewayUnavailable(message string, err error) *AppError {
	return &AppError{
		Code:       "GATEWAY_UNAVAILABLE",
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Err:        fmt.Errorf("%w: %w", ErrGatewayUnavailable, err),
	}
}

// Internal creates an internal error.
func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToResponse converts an AppError to ErrorResponse.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetail{
			Code:    e.Code,
			Message: e.Message,
		},
	}
}

// GetStatusCode returns the appropriate HTTP status code for an error.
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrInvalidOperation), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrConfiguration):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrGatewayUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
