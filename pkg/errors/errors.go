package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeImage represents image decode/encode errors
	ErrorTypeImage ErrorType = "image"
	// ErrorTypeRequest represents upstream HTTP request errors
	ErrorTypeRequest ErrorType = "request"
	// ErrorTypeParse represents response parsing errors
	ErrorTypeParse ErrorType = "parse"
	// ErrorTypeContext represents context cancellation/timeout errors
	ErrorTypeContext ErrorType = "context"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// ErrType returns the error category; promoted through embedding so typed
// wrappers report their category too
func (e *BaseError) ErrType() ErrorType {
	return e.Type
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Config Errors

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// Image Errors

// ErrImageDecodeFailed is returned when the input image cannot be decoded
type ErrImageDecodeFailed struct {
	*BaseError
}

func NewImageDecodeFailed(err error) *ErrImageDecodeFailed {
	return &ErrImageDecodeFailed{
		BaseError: NewBaseError(ErrorTypeImage, "failed to decode image", err),
	}
}

// ErrImageEncodeFailed is returned when re-encoding the image fails
type ErrImageEncodeFailed struct {
	*BaseError
	Format string
}

func NewImageEncodeFailed(format string, err error) *ErrImageEncodeFailed {
	return &ErrImageEncodeFailed{
		BaseError: NewBaseError(ErrorTypeImage, fmt.Sprintf("failed to encode image as %s", format), err),
		Format:    format,
	}
}

// Request Errors

// ErrRequestFailed is returned when the upstream request cannot be completed
type ErrRequestFailed struct {
	*BaseError
	URL string
}

func NewRequestFailed(url string, err error) *ErrRequestFailed {
	return &ErrRequestFailed{
		BaseError: NewBaseError(ErrorTypeRequest, fmt.Sprintf("request to %s failed", url), err),
		URL:       url,
	}
}

// ErrUpstreamStatus is returned when the upstream answers with an error status
type ErrUpstreamStatus struct {
	*BaseError
	URL    string
	Status int
}

func NewUpstreamStatus(url string, status int) *ErrUpstreamStatus {
	return &ErrUpstreamStatus{
		BaseError: NewBaseError(ErrorTypeRequest, fmt.Sprintf("upstream returned HTTP %d", status), nil),
		URL:       url,
		Status:    status,
	}
}

// Parse Errors

// ErrEmptyCompletion is returned when the server answers with no usable text
var ErrEmptyCompletion = NewBaseError(ErrorTypeParse, "empty content from server", nil)

// ErrResponseParseFailed is returned when the response body is not valid JSON
type ErrResponseParseFailed struct {
	*BaseError
	Status int
}

func NewResponseParseFailed(status int, err error) *ErrResponseParseFailed {
	return &ErrResponseParseFailed{
		BaseError: NewBaseError(ErrorTypeParse, fmt.Sprintf("failed to parse response (HTTP %d)", status), err),
		Status:    status,
	}
}

// Context Errors

// ErrContextCancelled is returned when context is cancelled
type ErrContextCancelled struct {
	*BaseError
	Operation string
}

func NewContextCancelled(operation string, err error) *ErrContextCancelled {
	return &ErrContextCancelled{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context cancelled: %s", operation), err),
		Operation: operation,
	}
}

// ErrContextTimeout is returned when context times out
type ErrContextTimeout struct {
	*BaseError
	Operation string
	Timeout   time.Duration
}

func NewContextTimeout(operation string, timeout time.Duration) *ErrContextTimeout {
	return &ErrContextTimeout{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context timeout: %s (timeout: %v)", operation, timeout), nil),
		Operation: operation,
		Timeout:   timeout,
	}
}

// Helper functions

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	if err == nil {
		return false
	}
	if typed, ok := err.(interface{ ErrType() ErrorType }); ok {
		return typed.ErrType() == errType
	}
	// Check wrapped errors
	if wrapped, ok := err.(interface{ Unwrap() error }); ok {
		return IsErrorType(wrapped.Unwrap(), errType)
	}
	return false
}

// IsRetryable checks if an error is worth re-running the node for
func IsRetryable(err error) bool {
	// Context errors are not retryable
	if IsErrorType(err, ErrorTypeContext) {
		return false
	}
	// Server-side statuses may clear up; client errors will not
	if statusErr, ok := err.(*ErrUpstreamStatus); ok {
		return statusErr.Status >= 500
	}
	// Transport failures are retryable
	if IsErrorType(err, ErrorTypeRequest) {
		return true
	}
	return false
}
