package apperr

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// AppError is the single error type that crosses the service boundary. Every
// failure a caller can observe is one of the codes below; anything else is a
// bug in the layer that let it escape.
type AppError struct {
	Code    string // stable machine code
	Message string // human-readable message
	Err     error  // underlying cause, never exposed to clients
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Error codes. This set is closed: handlers map exactly these to HTTP
// statuses and nothing else reaches the boundary.
const (
	CodeLedgerNotFound     = "LEDGER_NOT_FOUND"
	CodeInvariantViolation = "INVARIANT_VIOLATION"
	CodeRepositoryError    = "REPOSITORY_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
)

// LedgerNotFound creates a ledger-not-found error for the given ledger ID.
func LedgerNotFound(id uuid.UUID) *AppError {
	return &AppError{
		Code:    CodeLedgerNotFound,
		Message: fmt.Sprintf("Ledger not found: %s", id),
	}
}

// InvariantViolation creates a domain invariant violation error.
func InvariantViolation(message string) *AppError {
	return &AppError{
		Code:    CodeInvariantViolation,
		Message: message,
	}
}

// InvariantViolationf creates a domain invariant violation error with a
// formatted message.
func InvariantViolationf(format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    CodeInvariantViolation,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapInvariantViolation creates an invariant violation carrying its cause.
func WrapInvariantViolation(err error, message string) *AppError {
	return &AppError{
		Code:    CodeInvariantViolation,
		Message: message,
		Err:     err,
	}
}

// RepositoryError wraps an unexpected persistence failure. The message shown
// to clients is always generic; the cause stays server-side.
func RepositoryError(err error) *AppError {
	return &AppError{
		Code:    CodeRepositoryError,
		Message: "Internal server error",
		Err:     err,
	}
}

// Unauthorized creates an authentication failure error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

// Forbidden creates an authorization failure error.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
	}
}

// As extracts an AppError from an error chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the AppError in the chain, or CodeRepositoryError
// when the error is not an AppError.
func CodeOf(err error) string {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return CodeRepositoryError
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code string) bool {
	return CodeOf(err) == code
}
