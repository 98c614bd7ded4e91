package errors

import (
	"errors"
	"fmt"
)

// Code is the stable, client-visible error identifier.
type Code string

const (
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeAlreadySwiped   Code = "ALREADY_SWIPED"
	CodeQuotaExceeded   Code = "QUOTA_EXCEEDED"
	CodeProfileNotFound Code = "PROFILE_NOT_FOUND"
	CodeUnavailable     Code = "UNAVAILABLE"
)

// Error carries a Code through the service layer.
// errors.Is matches any two *Error values with the same Code.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrUnauthorized    = &Error{Code: CodeUnauthorized}
	ErrInvalidInput    = &Error{Code: CodeInvalidInput}
	ErrAlreadySwiped   = &Error{Code: CodeAlreadySwiped}
	ErrQuotaExceeded   = &Error{Code: CodeQuotaExceeded}
	ErrProfileNotFound = &Error{Code: CodeProfileNotFound}
	ErrUnavailable     = &Error{Code: CodeUnavailable}
)

// New builds a coded error with a human message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Newf is New with formatting.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Transient marks a storage failure as retryable. Coded errors and nil pass
// through unchanged so validation results survive a transaction rollback.
func Transient(err error, msg string) error {
	if err == nil {
		return nil
	}
	var coded *Error
	if errors.As(err, &coded) {
		return err
	}
	return &Error{Code: CodeUnavailable, Message: msg, Err: err}
}

// CodeOf extracts the Code of err, or "" when it carries none.
func CodeOf(err error) Code {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}
