// Package proxyerr defines the error kinds the core distinguishes and the
// HTTP status/envelope mapping each kind renders to.
package proxyerr

import (
	"errors"
	"fmt"
)

// Kind is one of the seven error kinds the core distinguishes.
type Kind string

const (
	NotAuthenticated  Kind = "not_authenticated"
	RefreshFailed     Kind = "refresh_failed"
	UpstreamTransient Kind = "upstream_transient"
	UpstreamFatal     Kind = "upstream_fatal"
	BadRequest        Kind = "bad_request"
	Throttled         Kind = "throttled"
	Cancelled         Kind = "cancelled"
)

// Error is a sentinel-style error carrying a Kind, a human message, and
// (for BadRequest) the offending field name.
type Error struct {
	Kind    Kind
	Message string
	Field   string
	// Status overrides the kind's default HTTP status when set to non-zero.
	Status int
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field %q)", e.Kind, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// HTTPStatus returns the status code the kind renders as for non-stream
// responses.
func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Kind {
	case NotAuthenticated, RefreshFailed:
		return 401
	case UpstreamTransient:
		return 502
	case UpstreamFatal:
		return 500
	case BadRequest:
		return 400
	case Throttled:
		return 429
	case Cancelled:
		return 499
	default:
		return 500
	}
}

// New builds an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// NewBadRequest builds a BadRequest error naming the offending field.
func NewBadRequest(field, message string) *Error {
	return &Error{Kind: BadRequest, Message: message, Field: field}
}

// NewThrottled builds a Throttled error carrying a reason string.
func NewThrottled(reason string) *Error {
	return &Error{Kind: Throttled, Message: reason}
}

// As reports whether err (or one it wraps) is a *Error, returning it.
func As(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
