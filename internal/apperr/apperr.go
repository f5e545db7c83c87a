// Package apperr defines the tagged error kind that every component surfaces
// across an API boundary, generalizing the sentinel-error idiom the registry
// and resilience packages use into a single type HTTPFront can map to a
// status code without each handler re-deriving one.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind tags an error with the HTTP status family it maps to.
type Kind string

const (
	KindBadRequest        Kind = "bad_request"
	KindUnauthorized      Kind = "unauthorized"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindEngineUnavailable Kind = "engine_unavailable"
	KindEngineFailure     Kind = "engine_failure"
	KindTimeout           Kind = "timeout"
	KindNotImplemented    Kind = "not_implemented"
)

// Status returns the HTTP status code associated with k, defaulting to 500
// for any kind HTTPFront does not recognize (including the zero value).
func (k Kind) Status() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindEngineUnavailable:
		return http.StatusServiceUnavailable
	case KindEngineFailure:
		return http.StatusInternalServerError
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// Error is the tagged error every component-level operation returns when it
// wants to surface a specific condition to the HTTP layer rather than a
// generic 500.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs a tagged error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap tags err with kind, preserving it as the unwrap target.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// BadRequest, NotFound, Conflict, EngineUnavailable, EngineFailure, Timeout,
// and NotImplemented are convenience constructors for the kinds named in
// §7 of the error handling design.
func BadRequest(format string, args ...any) *Error {
	return New(KindBadRequest, fmt.Sprintf(format, args...))
}

func Unauthorized(format string, args ...any) *Error {
	return New(KindUnauthorized, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, fmt.Sprintf(format, args...))
}

func Conflict(format string, args ...any) *Error {
	return New(KindConflict, fmt.Sprintf(format, args...))
}

func EngineUnavailable(format string, args ...any) *Error {
	return New(KindEngineUnavailable, fmt.Sprintf(format, args...))
}

func EngineFailure(format string, args ...any) *Error {
	return New(KindEngineFailure, fmt.Sprintf(format, args...))
}

func Timeout(format string, args ...any) *Error {
	return New(KindTimeout, fmt.Sprintf(format, args...))
}

func NotImplemented(format string, args ...any) *Error {
	return New(KindNotImplemented, fmt.Sprintf(format, args...))
}

// KindOf extracts the tagged Kind from err, walking its Unwrap chain.
// Untagged errors report KindEngineFailure, matching the "unexpected errors
// become 500" rule.
func KindOf(err error) Kind {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	return KindEngineFailure
}
