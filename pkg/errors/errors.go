package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"

	// Classification errors, rejected before any mutation
	ErrNotATree            ErrorCode = "NOT_A_TREE"
	ErrUnresolvedConflicts ErrorCode = "UNRESOLVED_CONFLICTS"

	// Resolution errors
	ErrConflict ErrorCode = "CONFLICT"

	// Execution errors
	ErrFilesystem      ErrorCode = "FILESYSTEM"
	ErrLockedDirectory ErrorCode = "LOCKED_DIRECTORY"
	ErrCancelled       ErrorCode = "CANCELLED"

	// Collaborator errors
	ErrObjectRead  ErrorCode = "OBJECT_READ"
	ErrObjectWrite ErrorCode = "OBJECT_WRITE"
	ErrIndexRead   ErrorCode = "INDEX_READ"
	ErrIndexWrite  ErrorCode = "INDEX_WRITE"
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"
)

// CastorError represents a structured error with code and details
type CastorError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *CastorError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *CastorError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *CastorError) Is(target error) bool {
	var targetErr *CastorError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new CastorError with the given code and message
func New(code ErrorCode, message string) *CastorError {
	return &CastorError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new CastorError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *CastorError {
	return &CastorError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a CastorError
func Wrap(err error, code ErrorCode, message string) *CastorError {
	if err == nil {
		return nil
	}
	return &CastorError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *CastorError {
	if err == nil {
		return nil
	}
	return &CastorError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail key-value pair to the error
func (e *CastorError) WithDetail(key string, value interface{}) *CastorError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// GetCode extracts the error code from an error, or ErrUnknown for foreign
// errors.
func GetCode(err error) ErrorCode {
	var ce *CastorError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrUnknown
}

// IsCode reports whether the error carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}
