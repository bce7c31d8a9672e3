package service

import (
	"errors"
	"fmt"
)

// Kind classifies failures so the transport can pick a status code.
type Kind int

const (
	KindUnhandled Kind = iota
	KindInvalidInput
	KindNotFound
	KindConflict
	KindUnauthorized
	KindIntegrity
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "INVALID_INPUT"
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindIntegrity:
		return "INTEGRITY_VIOLATION"
	default:
		return "UNHANDLED"
	}
}

// Error is a classified service failure. Field is set for input errors.
type Error struct {
	Kind    Kind
	Field   string
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

func invalidInput(field, msg string) *Error {
	return &Error{Kind: KindInvalidInput, Field: field, Message: msg}
}

func notFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// KindOf reports the Kind of err, KindUnhandled for unclassified errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnhandled
}
