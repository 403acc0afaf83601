// Package apperr provides the coded error type shared by the ledger packages.
//
// Every failure the core reports carries a Code. Validation errors are
// recoverable and never touch persisted state; storage errors are fatal for
// the attempted operation only, because all writes are atomic.
package apperr

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeOutOfOrderAction  Code = "OUT_OF_ORDER_ACTION"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeInvalidInstant    Code = "INVALID_INSTANT"
	CodeOverlapConflict   Code = "OVERLAP_CONFLICT"
	CodeZeroDuration      Code = "ZERO_DURATION"
	CodeNothingToRetract  Code = "NOTHING_TO_RETRACT"
	CodeInvalidIssue      Code = "INVALID_ISSUE"

	CodeRotationConflict Code = "ROTATION_CONFLICT"
	CodeAlreadyRunning   Code = "ALREADY_RUNNING"
	CodeStorageIO        Code = "STORAGE_IO"
	CodeCorruptFile      Code = "CORRUPT_FILE"
)

// Kind groups codes into the two error classes callers react to.
type Kind string

const (
	KindValidation Kind = "validation"
	KindStorage    Kind = "storage"
)

// Kind returns the class of the code.
func (c Code) Kind() Kind {
	switch c {
	case CodeRotationConflict, CodeAlreadyRunning, CodeStorageIO, CodeCorruptFile:
		return KindStorage
	default:
		return KindValidation
	}
}

// Sentinels for errors.Is checks. Matching is by code only.
var (
	ErrOutOfOrderAction  = &Error{Code: CodeOutOfOrderAction}
	ErrInvalidTransition = &Error{Code: CodeInvalidTransition}
	ErrInvalidInstant    = &Error{Code: CodeInvalidInstant}
	ErrOverlapConflict   = &Error{Code: CodeOverlapConflict}
	ErrZeroDuration      = &Error{Code: CodeZeroDuration}
	ErrNothingToRetract  = &Error{Code: CodeNothingToRetract}
	ErrInvalidIssue      = &Error{Code: CodeInvalidIssue}
	ErrRotationConflict  = &Error{Code: CodeRotationConflict}
	ErrAlreadyRunning    = &Error{Code: CodeAlreadyRunning}
	ErrStorageIO         = &Error{Code: CodeStorageIO}
	ErrCorruptFile       = &Error{Code: CodeCorruptFile}
)

// Error is the domain error type.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable detail
	Cause   error  // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Kind returns the class of the error.
func (e *Error) Kind() Kind {
	return e.Code.Kind()
}

// New creates an error with a code and a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates an error that wraps an underlying cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// CodeOf extracts the code from err, or "" when err carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsValidation reports whether err is a recoverable validation error.
func IsValidation(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind() == KindValidation
}
