package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of an application error
type ErrorType string

const (
	ErrTypeFileLoad   ErrorType = "FILE_LOAD"
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeExport     ErrorType = "EXPORT"
	ErrTypeNotFound   ErrorType = "NOT_FOUND"
	ErrTypeConfig     ErrorType = "CONFIG"
	ErrTypeBusy       ErrorType = "BUSY"
	ErrTypeState      ErrorType = "STATE"
)

// AppError represents an application-specific error.
// Code is the message catalogue key used to localize the error for users.
type AppError struct {
	Type    ErrorType
	Code    string
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCode sets the message catalogue key
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// AsAppError returns the first AppError in err's chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether err carries an AppError of the given category
func IsType(err error, errType ErrorType) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Type == errType
}

// Helper functions for common error types

// NewFileLoadError creates a file load error
func NewFileLoadError(code, message string, cause error) *AppError {
	return NewAppError(ErrTypeFileLoad, message, cause).WithCode(code)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(code, message string, cause error) *AppError {
	return NewAppError(ErrTypeValidation, message, cause).WithCode(code)
}

// NewExportError creates an export error
func NewExportError(code, message string, cause error) *AppError {
	return NewAppError(ErrTypeExport, message, cause).WithCode(code)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil).WithCode(CodeNotFound)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause).WithCode(CodeConfig)
}

// NewBusyError creates an error for a rejected concurrent operation
func NewBusyError(cause error) *AppError {
	return NewAppError(ErrTypeBusy, "another operation is in progress", cause).WithCode(CodeBusy)
}

// NewStateError creates an error for an operation invalid in the current state
func NewStateError(code, message string, cause error) *AppError {
	return NewAppError(ErrTypeState, message, cause).WithCode(code)
}
