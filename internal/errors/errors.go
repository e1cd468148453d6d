package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a tabdigest error code.
type ErrorCode string

const (
	ErrInputRejected             ErrorCode = "INPUT_REJECTED"             // exit 3/4
	ErrClassificationUnavailable ErrorCode = "CLASSIFICATION_UNAVAILABLE" // recovered locally
	ErrInvariantViolation        ErrorCode = "INVARIANT_VIOLATION"        // always fatal
	ErrInvalidConfig             ErrorCode = "INVALID_CONFIG"             // exit 2
	ErrInternal                  ErrorCode = "INTERNAL"                   // exit 1
)

// Exit statuses used by the CLI for rejected input.
const (
	StatusNoItems           = 3
	StatusMissingProvenance = 4
)

// DigestError represents a structured error with code, status, and details.
type DigestError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	cause   error
}

// Error implements the error interface.
func (e *DigestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *DigestError) Unwrap() error {
	return e.cause
}

// ExitCode maps the error to a process exit status.
func (e *DigestError) ExitCode() int {
	if e.Status > 0 {
		return e.Status
	}
	return 1
}

// NewMissingProvenance rejects input that carries no tabdump_id.
func NewMissingProvenance() *DigestError {
	return &DigestError{
		Code:    ErrInputRejected,
		Status:  StatusMissingProvenance,
		Message: "missing tabdump_id frontmatter; refusing to postprocess",
	}
}

// NewNoItems rejects input with an empty item list.
func NewNoItems() *DigestError {
	return &DigestError{
		Code:    ErrInputRejected,
		Status:  StatusNoItems,
		Message: "no tab items found in the note; nothing to do",
	}
}

// NewInputRejected creates an input error with a custom message.
func NewInputRejected(msg string) *DigestError {
	return &DigestError{
		Code:    ErrInputRejected,
		Status:  2,
		Message: msg,
	}
}

// NewClassificationUnavailable wraps an LLM failure. Callers degrade to the
// local classifier; the error is logged, never surfaced as fatal.
func NewClassificationUnavailable(err error) *DigestError {
	msg := "classification unavailable"
	if err != nil {
		msg = err.Error()
	}
	return &DigestError{
		Code:    ErrClassificationUnavailable,
		Status:  1,
		Message: msg,
		cause:   err,
	}
}

// NewInvariantViolation reports a pipeline logic defect.
func NewInvariantViolation(msg string, details map[string]any) *DigestError {
	return &DigestError{
		Code:    ErrInvariantViolation,
		Status:  1,
		Message: msg,
		Details: details,
	}
}

// NewInvalidConfig creates an error for an unusable configuration bundle.
func NewInvalidConfig(msg string) *DigestError {
	return &DigestError{
		Code:    ErrInvalidConfig,
		Status:  2,
		Message: msg,
	}
}

// NewInternal creates an error for unexpected internal failures.
func NewInternal(err error) *DigestError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &DigestError{
		Code:    ErrInternal,
		Status:  1,
		Message: msg,
		cause:   err,
	}
}

// Is checks if an error is (or wraps) a DigestError with the given code.
func Is(err error, code ErrorCode) bool {
	var dErr *DigestError
	if stderrors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// As extracts a DigestError from err.
func As(err error) (*DigestError, bool) {
	var dErr *DigestError
	if stderrors.As(err, &dErr) {
		return dErr, true
	}
	return nil, false
}
