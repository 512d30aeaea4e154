// Package apperror defines the failure taxonomy shared by all handlers and the
// terminal error normalizer that converts any failure into the uniform
// {success:false, error, stack?} JSON envelope. Handlers never format error
// bodies themselves; they return an error (ideally an *Error with a status
// hint) and let the normalizer classify it.
package apperror

import (
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failure for the normalizer. Every failure reaching the
// normalizer maps to exactly one kind; anything unrecognized is Generic.
type Kind int

const (
	KindGeneric Kind = iota
	KindUnauthenticated
	KindForbidden
	KindValidation
	KindDuplicate
	KindBadID
	KindRouteNotFound
)

// Error is a classified failure with an HTTP status hint.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	// Fields holds per-field validation messages in field-declaration order.
	// Only set for KindValidation.
	Fields []string
	Err    error
}

func (e *Error) Error() string {
	if len(e.Fields) > 0 {
		return strings.Join(e.Fields, "; ")
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New returns a Generic failure with an explicit status hint. Mirrors the
// handler pattern of setting a status before failing with a plain message.
func New(status int, message string) *Error {
	return &Error{Kind: KindGeneric, Status: status, Message: message}
}

// Newf is New with formatting.
func Newf(status int, format string, args ...interface{}) *Error {
	return New(status, fmt.Sprintf(format, args...))
}

// Unauthenticated returns a 401 failure. The message is intentionally coarse;
// signature and expiry failures are never distinguished to the caller.
func Unauthenticated(message string) *Error {
	return &Error{Kind: KindUnauthenticated, Status: http.StatusUnauthorized, Message: message}
}

// Forbidden returns a 403 failure naming the offending role.
func Forbidden(role string) *Error {
	return &Error{
		Kind:    KindForbidden,
		Status:  http.StatusForbidden,
		Message: fmt.Sprintf("Role %s is not authorized to access this route", role),
	}
}

// Validation returns a field-validation failure. Messages keep the order they
// were passed in, which follows the field-declaration order of the model.
func Validation(fields ...string) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusUnprocessableEntity, Fields: fields}
}

// Duplicate returns a duplicate-key failure. The client message is fixed by
// the normalizer regardless of which unique constraint was violated.
func Duplicate(err error) *Error {
	return &Error{Kind: KindDuplicate, Status: http.StatusBadRequest, Message: "Duplicate field value entered", Err: err}
}

// BadID returns the failure for a malformed or unresolvable identifier. The
// client cannot tell a malformed id apart from a missing resource.
func BadID(err error) *Error {
	return &Error{Kind: KindBadID, Status: http.StatusNotFound, Message: "Resource not found", Err: err}
}

// RouteNotFound returns the failure synthesized when no route matched.
func RouteNotFound(path string) *Error {
	return &Error{
		Kind:    KindRouteNotFound,
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf("Not Found - %s", path),
	}
}

// WithStatus overrides the status hint, preserving the kind.
func (e *Error) WithStatus(status int) *Error {
	clone := *e
	clone.Status = status
	return &clone
}
