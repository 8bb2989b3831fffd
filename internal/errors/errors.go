package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	// ErrorTypeConfig is fatal and deployment-level: a required credential is
	// missing. It cannot be resolved by the end user or by retrying.
	ErrorTypeConfig ErrorType = "config"

	ErrorTypePermissionDenied     ErrorType = "permission_denied"
	ErrorTypeDeviceUnavailable    ErrorType = "device_unavailable"
	ErrorTypeCapture              ErrorType = "capture"
	ErrorTypeImageProcessing      ErrorType = "image_processing"
	ErrorTypeToolchainUnavailable ErrorType = "toolchain_unavailable"
	ErrorTypeServiceRequest       ErrorType = "service_request"
	ErrorTypeValidation           ErrorType = "validation"
	ErrorTypeNotFound             ErrorType = "not_found"
	ErrorTypeBusy                 ErrorType = "busy"
)

// AppError is a structured application error. Message is safe to present to
// the user; Cause carries the underlying detail for logs only.
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates the fatal missing-credential error.
func NewConfigError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConfig,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// NewPermissionDeniedError creates a camera-permission error.
func NewPermissionDeniedError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypePermissionDenied,
		Message:    message,
		StatusCode: http.StatusForbidden,
		Cause:      cause,
	}
}

// NewDeviceUnavailableError creates an error for a missing or busy camera.
func NewDeviceUnavailableError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeDeviceUnavailable,
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
		Cause:      cause,
	}
}

// NewCaptureError creates a frame-capture timing error.
func NewCaptureError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeCapture,
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
		Cause:      cause,
	}
}

// NewImageProcessingError creates a vision-pipeline error.
func NewImageProcessingError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeImageProcessing,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Cause:      cause,
	}
}

// NewToolchainUnavailableError reports a failed decoder-toolkit initialization.
func NewToolchainUnavailableError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeToolchainUnavailable,
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
		Cause:      cause,
	}
}

// NewServiceRequestError creates a remote-classification transport or schema
// error. The message must stay generic and retry-friendly; raw service error
// text belongs in the cause.
func NewServiceRequestError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeServiceRequest,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewValidationError creates a request-validation error.
func NewValidationError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Cause:      cause,
	}
}

// NewNotFoundError creates a not-found error.
func NewNotFoundError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
		Cause:      cause,
	}
}

// NewBusyError rejects a request that arrived while another operation of the
// same kind is still in flight.
func NewBusyError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeBusy,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error, unwrapping as
// needed. Context cancellation and deadline failures map to their transport
// statuses; anything untyped is an internal error.
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage returns the presentable message for an error, falling back to a
// generic retry prompt for untyped failures.
func UserMessage(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Message
	}
	return "An unexpected error occurred. Please try again."
}
