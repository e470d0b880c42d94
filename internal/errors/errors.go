package errors

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// API error codes for failures detected by the transport layer, before a
// request reaches the session
const (
	APICodeInvalidRequest       = "INVALID_REQUEST"
	APICodeInvalidJSON          = "INVALID_JSON"
	APICodeValidationFailed     = "VALIDATION_FAILED"
	APICodePayloadTooLarge      = "PAYLOAD_TOO_LARGE"
	APICodeUnsupportedMediaType = "UNSUPPORTED_MEDIA_TYPE"
	APICodeRateLimitExceeded    = "RATE_LIMIT_EXCEEDED"
	APICodeTimeout              = "TIMEOUT"
)

// APIError is a request-level failure with a fixed HTTP status. Domain
// failures use AppError instead.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ValidationError represents a single field validation failure
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors represents multiple validation errors
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// New creates a new APIError with the given parameters
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates a new APIError with additional details
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// InvalidRequestWithError reports an unreadable request body
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, APICodeInvalidRequest, "Invalid request format", err.Error())
}

// InvalidJSON reports a body that is not valid JSON
func InvalidJSON() *APIError {
	return New(http.StatusBadRequest, APICodeInvalidJSON, "Request body contains invalid JSON")
}

// ErrValidation reports one invalid field or query parameter
func ErrValidation(field, message string) *APIError {
	return NewWithDetails(http.StatusBadRequest, APICodeValidationFailed, "Request validation failed", ValidationError{
		Field:   field,
		Message: message,
	})
}

// NewValidationErrors reports every failed field of a request struct
func NewValidationErrors(errors []ValidationError) *APIError {
	return NewWithDetails(http.StatusBadRequest, APICodeValidationFailed, "Request validation failed",
		ValidationErrors{Errors: errors})
}

// PayloadTooLarge reports a body above max bytes. A size of -1 means the
// length was only discovered while reading.
func PayloadTooLarge(max, size int64) *APIError {
	details := map[string]interface{}{"max_size": max}
	if size >= 0 {
		details["size"] = size
	}
	return NewWithDetails(http.StatusRequestEntityTooLarge, APICodePayloadTooLarge,
		"Request body exceeds maximum allowed size", details)
}

// UnsupportedMediaType reports a Content-Type outside allowed
func UnsupportedMediaType(contentType string, allowed []string) *APIError {
	return NewWithDetails(http.StatusUnsupportedMediaType, APICodeUnsupportedMediaType,
		"Unsupported content type", map[string]interface{}{
			"content_type": contentType,
			"allowed":      allowed,
		})
}

// RateLimited reports a request rejected by the rate limiter
func RateLimited() *APIError {
	return New(http.StatusTooManyRequests, APICodeRateLimitExceeded, "Rate limit exceeded. Please retry shortly")
}

// TimedOut reports a request that ran past its deadline
func TimedOut(limit fmt.Stringer) *APIError {
	return New(http.StatusGatewayTimeout, APICodeTimeout, fmt.Sprintf("Request did not complete within %s", limit))
}
