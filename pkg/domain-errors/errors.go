// Package dErrors classifies domain errors by code so transport layers can
// map them to responses without inspecting error strings. Services wrap
// storage failures with CodeInternal; validation failures carry
// CodeBadRequest or CodeInvalidInput and are safe to echo to clients.
package dErrors

import (
	"errors"
	"fmt"
)

// Code is the machine-readable classification of a domain error.
type Code string

const (
	// CodeBadRequest marks malformed request bodies or parameters.
	CodeBadRequest Code = "bad_request"
	// CodeInvalidInput marks values that parse but violate a domain rule.
	CodeInvalidInput Code = "invalid_input"
	// CodeNotFound marks references to records that do not exist.
	CodeNotFound Code = "not_found"
	// CodeConflict marks writes rejected because current state forbids them.
	CodeConflict Code = "conflict"
	// CodeUnauthorized marks missing or invalid operator credentials.
	CodeUnauthorized Code = "unauthorized"
	// CodeInternal marks upstream store or infrastructure failures. Detail
	// must not reach clients.
	CodeInternal Code = "internal"
	// CodeUnavailable marks transient upstream failures worth retrying.
	CodeUnavailable Code = "unavailable"
)

// Error is a code-classified domain error, optionally wrapping a cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates a domain error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap annotates an underlying error with a code and message. A nil err
// yields nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is a readable alias of HasCode for call sites that test a single code.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the code from err, defaulting to CodeInternal for
// unclassified errors so unknown failures never leak detail.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Message extracts the client-safe message from err. Unclassified errors
// yield an empty message.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
