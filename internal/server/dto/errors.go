// Defines structured API errors with status codes and machine-readable codes.

package dto

import (
	"fmt"
	"net/http"
)

// ErrorCode is a machine-readable error code for API responses.
type ErrorCode string

const (
	// Generic errors
	ErrorCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrorCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrorCodeInternal         ErrorCode = "INTERNAL_ERROR"
	ErrorCodeRateLimited      ErrorCode = "RATE_LIMITED"
	ErrorCodePayloadTooLarge  ErrorCode = "PAYLOAD_TOO_LARGE"
	ErrorCodeQuotaExceeded    ErrorCode = "QUOTA_EXCEEDED"

	// Taxonomy errors
	ErrorCodeLayerNotFound ErrorCode = "LAYER_NOT_FOUND"
	ErrorCodeItemNotFound  ErrorCode = "ITEM_NOT_FOUND"
	ErrorCodeCycleDetected ErrorCode = "CYCLE_DETECTED"
	ErrorCodeStaleWrite    ErrorCode = "STALE_WRITE"
	ErrorCodeLayerInUse    ErrorCode = "LAYER_IN_USE"

	// Condition errors
	ErrorCodeConditionNotFound ErrorCode = "CONDITION_NOT_FOUND"
	ErrorCodeInvalidEdge       ErrorCode = "INVALID_EDGE"
)

// APIError is a structured error with HTTP status code, machine-readable
// error code, and optional details. It implements the error interface.
type APIError struct {
	statusCode int
	code       ErrorCode
	message    string
	details    map[string]any
	wrappedErr error
}

// ErrorWithStatus is implemented by errors that carry an HTTP status code.
type ErrorWithStatus interface {
	error
	StatusCode() int
	Code() ErrorCode
	Details() map[string]any
}

// NewAPIError creates a new APIError.
func NewAPIError(statusCode int, code ErrorCode, message string) *APIError {
	return &APIError{
		statusCode: statusCode,
		code:       code,
		message:    message,
	}
}

// WithDetails attaches a details map to the error.
func (e *APIError) WithDetails(details map[string]any) *APIError {
	e.details = details
	return e
}

// WithDetail attaches a single detail key to the error.
func (e *APIError) WithDetail(key string, value any) *APIError {
	if e.details == nil {
		e.details = map[string]any{}
	}
	e.details[key] = value
	return e
}

// Wrap records the underlying error for logging without exposing it to clients.
func (e *APIError) Wrap(err error) *APIError {
	e.wrappedErr = err
	return e
}

func (e *APIError) Error() string {
	if e.wrappedErr != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrappedErr)
	}
	return e.message
}

// StatusCode returns the HTTP status code.
func (e *APIError) StatusCode() int {
	return e.statusCode
}

// Code returns the machine-readable error code.
func (e *APIError) Code() ErrorCode {
	return e.code
}

// Message returns the client-facing message.
func (e *APIError) Message() string {
	return e.message
}

// Details returns the details map, which may be nil.
func (e *APIError) Details() map[string]any {
	return e.details
}

// Unwrap supports errors.Is and errors.As on the wrapped error.
func (e *APIError) Unwrap() error {
	return e.wrappedErr
}

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   ErrorDetails   `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorDetails carries the code and message inside an ErrorResponse.
type ErrorDetails struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// NotFound creates a 404 error for a named resource.
func NotFound(resource string) *APIError {
	return NewAPIError(http.StatusNotFound, ErrorCodeNotFound, resource+" not found")
}

// BadRequest creates a 400 validation error.
func BadRequest(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrorCodeValidationFailed, message)
}

// MissingField creates a 400 error for a required field.
func MissingField(field string) *APIError {
	return BadRequest("missing required field: " + field).WithDetail("field", field)
}

// Conflict creates a 409 error with the given code.
func Conflict(code ErrorCode, message string) *APIError {
	return NewAPIError(http.StatusConflict, code, message)
}

// Internal creates a 500 error with a generic message.
func Internal() *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrorCodeInternal, "internal server error")
}

// InternalWithError creates a 500 error wrapping the underlying cause.
func InternalWithError(err error) *APIError {
	return Internal().Wrap(err)
}

// RateLimitExceeded creates a 429 error.
func RateLimitExceeded(retryAfterSeconds int) *APIError {
	return NewAPIError(http.StatusTooManyRequests, ErrorCodeRateLimited, "rate limit exceeded").
		WithDetail("retry_after_seconds", retryAfterSeconds)
}

// PayloadTooLarge creates a 413 error.
func PayloadTooLarge(limitBytes int64) *APIError {
	return NewAPIError(http.StatusRequestEntityTooLarge, ErrorCodePayloadTooLarge, "request body too large").
		WithDetail("limit_bytes", limitBytes)
}
