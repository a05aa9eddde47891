// Package apperr defines the error kinds returned across the asset workflow.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers deciding how to present it
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindUnauthorized      Kind = "unauthorized"
	KindInvalidTransition Kind = "invalid_transition"
	KindValidation        Kind = "validation_error"
	KindConflict          Kind = "conflict"
)

var (
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "record not found"}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized, Message: "actor is not permitted to perform this action"}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition, Message: "transition not allowed from current state"}
	ErrValidation        = &Error{Kind: KindValidation, Message: "invalid input"}
	ErrConflict          = &Error{Kind: KindConflict, Message: "this record was already acted upon; please refresh"}
)

// Error is a typed workflow error. Two errors match under errors.Is when
// their kinds are equal, so callers compare against the Err* sentinels.
type Error struct {
	Kind    Kind
	Message string
	// Field names the offending input for validation errors
	Field string
	Err   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NotFound builds a KindNotFound error
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized builds a KindUnauthorized error
func Unauthorized(format string, args ...interface{}) *Error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

// InvalidTransition builds a KindInvalidTransition error
func InvalidTransition(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidTransition, Message: fmt.Sprintf(format, args...)}
}

// Validation builds a KindValidation error for a named field
func Validation(field, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

// Conflict builds a KindConflict error wrapping the underlying cause
func Conflict(err error) *Error {
	return &Error{Kind: KindConflict, Message: ErrConflict.Message, Err: err}
}

// KindOf extracts the Kind of err, or "" when err carries no workflow kind
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Wrap attaches kind to an underlying error, keeping the sentinel message
func Wrap(kind Kind, err error) *Error {
	msg := string(kind)
	for _, s := range []*Error{ErrNotFound, ErrUnauthorized, ErrInvalidTransition, ErrValidation, ErrConflict} {
		if s.Kind == kind {
			msg = s.Message
			break
		}
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}
