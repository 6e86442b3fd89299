package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents different types of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeStorage    ErrorType = "storage"
	ErrorTypeExternal   ErrorType = "external_api"
	ErrorTypeInternal   ErrorType = "internal"
	// ErrorTypeContentMismatch marks an image that does not depict the
	// expected subject. Callers show a specific message for it instead
	// of the generic retry prompt.
	ErrorTypeContentMismatch ErrorType = "content_mismatch"
	// ErrorTypeDeviceAccess marks microphone acquisition failures that
	// block a voice session from starting.
	ErrorTypeDeviceAccess ErrorType = "device_access"
)

// AppError represents an application error with additional context
type AppError struct {
	Type     ErrorType
	Message  string
	Code     string
	Internal error
	Context  map[string]interface{}
	Source   string
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the internal error
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Is checks if the error matches the target
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return e.Type == t.Type && e.Code == t.Code
	}
	return errors.Is(e.Internal, target)
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// LogFields returns structured logging fields
func (e *AppError) LogFields() []interface{} {
	fields := []interface{}{
		"error_type", e.Type,
		"error_code", e.Code,
		"error_message", e.Message,
		"source", e.Source,
	}

	if e.Internal != nil {
		fields = append(fields, "internal_error", e.Internal.Error())
	}

	for k, v := range e.Context {
		fields = append(fields, k, v)
	}

	return fields
}

// New creates a new AppError
func New(errorType ErrorType, code, message string) *AppError {
	_, file, line, _ := runtime.Caller(1)
	source := fmt.Sprintf("%s:%d", file, line)

	return &AppError{
		Type:    errorType,
		Code:    code,
		Message: message,
		Source:  source,
		Context: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error into AppError
func Wrap(err error, errorType ErrorType, code, message string) *AppError {
	_, file, line, _ := runtime.Caller(1)
	source := fmt.Sprintf("%s:%d", file, line)

	return &AppError{
		Type:     errorType,
		Code:     code,
		Message:  message,
		Internal: err,
		Source:   source,
		Context:  make(map[string]interface{}),
	}
}

// Predefined errors
var (
	ErrInvalidInput = New(ErrorTypeValidation, "INVALID_INPUT", "Invalid input provided")
	ErrStorage      = New(ErrorTypeStorage, "STORAGE_ERROR", "Storage operation failed")
	ErrExternalAPI  = New(ErrorTypeExternal, "EXTERNAL_API", "External API error")
	// ErrWrongSubject is the distinguishable "wrong kind of photo"
	// condition: classification decided the image does not show the
	// expected instrument or food.
	ErrWrongSubject = New(ErrorTypeContentMismatch, "WRONG_SUBJECT", "Image does not show the expected subject")
	// ErrMicrophoneUnavailable blocks voice session start when the
	// capture device cannot be acquired.
	ErrMicrophoneUnavailable = New(ErrorTypeDeviceAccess, "MIC_UNAVAILABLE", "Microphone is unavailable")
)

// Convenience functions for common errors
func NewValidationError(message string) *AppError {
	return New(ErrorTypeValidation, "VALIDATION", message)
}

func NewStorageError(err error) *AppError {
	return Wrap(err, ErrorTypeStorage, "STORAGE_ERROR", "Storage operation failed")
}

func NewExternalAPIError(err error, api string) *AppError {
	return Wrap(err, ErrorTypeExternal, "EXTERNAL_API", fmt.Sprintf("%s API error", api)).
		WithContext("api", api)
}

func NewDeviceAccessError(err error) *AppError {
	return Wrap(err, ErrorTypeDeviceAccess, "MIC_UNAVAILABLE", "Microphone is unavailable")
}

func NewInternalError(err error) *AppError {
	return Wrap(err, ErrorTypeInternal, "INTERNAL", "Internal server error")
}
