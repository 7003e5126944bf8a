// Package common defines shared constants, sentinel errors and the tagged
// domain error used across the server and the CLI client. Callers should use
// errors.Is / errors.As (or KindOf) to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")
)

// Kind classifies a domain failure. The zero value is not a valid kind.
type Kind int

const (
	KindConflict Kind = iota + 1
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindBadRequest
)

func (k Kind) String() string {
	switch k {
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not found"
	case KindBadRequest:
		return "bad request"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a classified domain failure carrying a caller-facing message.
// Err optionally keeps the underlying cause for logs; it is never shown to callers.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a domain error of the given kind.
func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// WrapError builds a domain error of the given kind keeping err as the cause.
func WrapError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Conflict(msg string) *Error     { return NewError(KindConflict, msg) }
func Unauthorized(msg string) *Error { return NewError(KindUnauthorized, msg) }
func Forbidden(msg string) *Error    { return NewError(KindForbidden, msg) }
func NotFound(msg string) *Error     { return NewError(KindNotFound, msg) }
func BadRequest(msg string) *Error   { return NewError(KindBadRequest, msg) }

// KindOf reports the kind of the first *Error in err's chain.
// ok is false for unclassified (internal) errors.
func KindOf(err error) (kind Kind, ok bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return 0, false
}

// IsKind reports whether err carries a domain error of the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
