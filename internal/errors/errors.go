package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies an application error.
type ErrorType string

const (
	ErrTypeFormat       ErrorType = "FORMAT"
	ErrTypeSizeExceeded ErrorType = "SIZE_EXCEEDED"
	ErrTypeEmptyInput   ErrorType = "EMPTY_INPUT"
	ErrTypeValidation   ErrorType = "VALIDATION"
	ErrTypeChartRequest ErrorType = "CHART_REQUEST"
	ErrTypeNotFound     ErrorType = "NOT_FOUND"
	ErrTypeStorage      ErrorType = "STORAGE"
	ErrTypeConfig       ErrorType = "CONFIG"
)

// AppError is an application-specific error with a type, an optional cause
// and free-form context for logging.
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to reach the cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext attaches a key/value pair to the error.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error.
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// IsType reports whether err is (or wraps) an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// NewFormatError reports unparseable input content.
func NewFormatError(message string, cause error) *AppError {
	return NewAppError(ErrTypeFormat, message, cause)
}

// NewSizeExceededError reports an upload above the configured ceiling.
func NewSizeExceededError(limit int64) *AppError {
	return NewAppError(ErrTypeSizeExceeded,
		fmt.Sprintf("input exceeds the %d byte limit", limit), nil).
		WithContext("limit_bytes", limit)
}

// NewEmptyInputError reports input with no rows or no columns.
func NewEmptyInputError(message string) *AppError {
	return NewAppError(ErrTypeEmptyInput, message, nil)
}

// NewValidationError reports an invalid request or configuration value.
func NewValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewChartRequestError reports a chart spec that violates the requested
// kind's column constraints. The message names the unmet constraint.
func NewChartRequestError(message string) *AppError {
	return NewAppError(ErrTypeChartRequest, message, nil)
}

// NewNotFoundError reports a missing resource.
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewStorageError reports a filesystem or I/O failure.
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewConfigError reports invalid configuration.
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}
