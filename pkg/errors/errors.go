// Package errors provides structured error types for the dlgforge tools.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI and HTTP facade
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures (bad flags, malformed files,
//     broken manifests)
//   - INVARIANT_*: Graph preconditions rejected by the mutation engine
//   - NOT_FOUND_*: Resource not found
//   - NETWORK_*: Cache backend unreachable
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "unknown language id: %d", id)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidManifest, origErr, "load %s", path)
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidFormat   Code = "INVALID_FORMAT"
	ErrCodeInvalidManifest Code = "INVALID_MANIFEST"

	// Graph preconditions rejected by the mutation engine
	ErrCodeInvariant Code = "INVARIANT_VIOLATION"

	// Resource not found errors
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Cache backend errors
	ErrCodeNetwork Code = "NETWORK_ERROR"

	// Cancelled or timed-out operations
	ErrCodeCancelled Code = "CANCELLED"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// HTTPStatus maps an error code to the HTTP status the facade responds
// with. Unknown codes map to 500.
func HTTPStatus(code Code) int {
	switch code {
	case ErrCodeInvalidInput, ErrCodeInvalidManifest:
		return http.StatusBadRequest
	case ErrCodeInvalidFormat, ErrCodeInvariant:
		return http.StatusUnprocessableEntity
	case ErrCodeFileNotFound:
		return http.StatusNotFound
	case ErrCodeNetwork:
		return http.StatusBadGateway
	case ErrCodeCancelled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ExitCode maps an error code to the CLI process exit code. The empty
// code (no structured error) and unknown codes map to 1.
func ExitCode(code Code) int {
	switch code {
	case "":
		return 1
	case ErrCodeInvalidInput, ErrCodeInvalidManifest:
		return 2
	case ErrCodeInvalidFormat:
		return 3
	case ErrCodeInvariant:
		return 4
	case ErrCodeFileNotFound:
		return 5
	case ErrCodeNetwork:
		return 6
	case ErrCodeCancelled:
		return 130
	default:
		return 1
	}
}
