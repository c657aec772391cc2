// Package domainerrors defines the typed errors services return to transports.
//
// Stores and infrastructure return sentinel errors (pkg/platform/sentinel);
// services translate those facts into coded domain errors so handlers can map
// them onto HTTP statuses without inspecting internals.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for transport mapping and retry decisions.
type Code string

const (
	CodeInvalidInput Code = "invalid_input"
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	// CodeUnavailable marks transient failures a caller may retry.
	CodeUnavailable Code = "unavailable"
	CodeInternal    Code = "internal_error"
)

// Error is a coded domain error. Description is safe to show to API clients
// for all codes except CodeInternal.
type Error struct {
	Code        Code
	Description string
	cause       error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Description, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a domain error with the given code and client-facing description.
func New(code Code, description string) error {
	return &Error{Code: code, Description: description}
}

// Wrap attaches a code and description to an underlying error, preserving the
// chain for errors.Is/errors.As.
func Wrap(err error, code Code, description string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Description: description, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for errors
// that did not pass through the domain layer.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// DescriptionOf extracts the client-facing description, empty when unknown.
func DescriptionOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Description
	}
	return ""
}
