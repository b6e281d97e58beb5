package errors

import (
	"fmt"
	"strings"
)

// ErrorType classifies an error for callers that need to branch on outcome
// (HTTP status mapping, callback results) without string matching.
type ErrorType string

const (
	// ErrTypeValidation represents a request rejected before any remote call
	// was attempted (blank or missing required identifiers).
	ErrTypeValidation ErrorType = "validation"
	// ErrTypeWrite represents a write the remote store rejected or the
	// transport failed to deliver. Writes are never retried automatically.
	ErrTypeWrite ErrorType = "write"
	// ErrTypePermission represents a caller lacking rights for a sharing or
	// edit mutation.
	ErrTypePermission ErrorType = "permission"
	// ErrTypeNotFound represents a missing entity.
	ErrTypeNotFound ErrorType = "not_found"
	// ErrTypeConnection represents transport-level failures.
	ErrTypeConnection ErrorType = "connection"
	// ErrTypeReadDegraded represents a read that returned a partial or empty
	// result instead of failing outright.
	ErrTypeReadDegraded ErrorType = "read_degraded"
	// ErrTypeInternal represents internal failures.
	ErrTypeInternal ErrorType = "internal"
)

// AppError is a structured application error carrying a type, an optional
// cause and free-form context.
type AppError struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	parts := []string{string(e.Type), e.Message}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Cause))
	}

	if len(e.Context) > 0 {
		contextParts := make([]string, 0, len(e.Context))
		for k, v := range e.Context {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("context={%s}", strings.Join(contextParts, ", ")))
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause
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

// ValidationError creates a new validation error
func ValidationError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeValidation,
		Message: msg,
	}
}

// WriteError creates a new write error
func WriteError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeWrite,
		Message: msg,
		Cause:   cause,
	}
}

// PermissionError creates a new permission error
func PermissionError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypePermission,
		Message: msg,
	}
}

// NotFoundError creates a new not found error
func NotFoundError(resource string) *AppError {
	return &AppError{
		Type:    ErrTypeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// ConnectionError creates a new connection error
func ConnectionError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeConnection,
		Message: msg,
		Cause:   cause,
	}
}

// ReadDegradedError creates an error describing a read that was served with
// degraded (partial or empty) results.
func ReadDegradedError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeReadDegraded,
		Message: msg,
		Cause:   cause,
	}
}

// InternalError creates a new internal error
func InternalError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeInternal,
		Message: msg,
		Cause:   cause,
	}
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	if err == nil {
		return false
	}

	appErr, ok := err.(*AppError)
	if !ok {
		return false
	}

	return appErr.Type == errType
}

// GetType returns the error type if it's an AppError, otherwise returns ErrTypeInternal
func GetType(err error) ErrorType {
	if err == nil {
		return ""
	}

	appErr, ok := err.(*AppError)
	if !ok {
		return ErrTypeInternal
	}

	return appErr.Type
}
