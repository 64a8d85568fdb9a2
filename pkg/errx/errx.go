// Package errx defines the closed set of error kinds surfaced by the session
// core. Callers branch on the kind with errors.Is or IsKind, never on the
// message text.
package errx

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind tags an Error with its category.
type Kind string

const (
	KindUnauthorized    Kind = "unauthorized"
	KindValidation      Kind = "validation"
	KindTokenValidation Kind = "token_validation" // subtype of KindValidation
	KindInternalServer  Kind = "internal_server"
	KindConflict        Kind = "conflict"
	KindNotFound        Kind = "not_found"
	KindTransport       Kind = "transport"
	KindUnexpected      Kind = "unexpected"
)

// Error is a tagged error value. Message is safe to show inline, Detail is
// for diagnostics only.
type Error struct {
	Kind       Kind
	Message    string
	Detail     string
	StatusCode int
	Cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error of a kind e belongs to. A token
// validation error also matches the validation kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind.within(t.Kind)
}

func (k Kind) within(parent Kind) bool {
	if k == parent {
		return true
	}
	return k == KindTokenValidation && parent == KindValidation
}

// Sentinels for errors.Is. Only the Kind is compared.
var (
	ErrUnauthorized    = &Error{Kind: KindUnauthorized}
	ErrValidation      = &Error{Kind: KindValidation}
	ErrTokenValidation = &Error{Kind: KindTokenValidation}
	ErrInternalServer  = &Error{Kind: KindInternalServer}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrTransport       = &Error{Kind: KindTransport}
	ErrUnexpected      = &Error{Kind: KindUnexpected}
)

// New creates an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error of the given kind around cause. An existing *Error in
// the chain is returned unchanged so classification happens once, at the
// boundary where the failure occurred.
func Wrap(kind Kind, message string, cause error) *Error {
	if cause == nil {
		return nil
	}

	var typed *Error
	if errors.As(cause, &typed) {
		return typed
	}

	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Unauthorized(message string) *Error    { return New(KindUnauthorized, message) }
func Validation(message string) *Error      { return New(KindValidation, message) }
func TokenValidation(message string) *Error { return New(KindTokenValidation, message) }
func Conflict(message string) *Error        { return New(KindConflict, message) }
func NotFound(message string) *Error        { return New(KindNotFound, message) }

// InternalServer creates an upstream 5xx error.
func InternalServer(message string) *Error {
	return &Error{Kind: KindInternalServer, Message: message, StatusCode: http.StatusInternalServerError}
}

// Unexpected creates an error for a status code with no dedicated mapping.
func Unexpected(status int) *Error {
	return &Error{
		Kind:       KindUnexpected,
		Message:    fmt.Sprintf("unexpected response: HTTP %d %s", status, http.StatusText(status)),
		StatusCode: status,
	}
}

// IsKind checks whether any error in the chain matches kind.
func IsKind(err error, kind Kind) bool {
	var target *Error
	if !errors.As(err, &target) {
		return false
	}
	return target.Kind.within(kind)
}

// KindOf returns the kind of the first *Error in the chain, or "" if none.
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return ""
}

const genericMessage = "Something went wrong. Please try again later."

// UserMessage returns the text a UI should show for err. Server, transport
// and unclassified failures collapse to one generic message so internals do
// not leak; field-level kinds keep their own message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var typed *Error
	if !errors.As(err, &typed) {
		return genericMessage
	}

	switch typed.Kind {
	case KindUnauthorized:
		return "Please sign in again."
	case KindValidation, KindTokenValidation, KindConflict, KindNotFound:
		return typed.Message
	default:
		return genericMessage
	}
}
