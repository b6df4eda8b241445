package ingest

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an ingestion failure. Handlers map each kind to exactly one
// HTTP status.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuth
	KindNotFound
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

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

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err. Anything that is not an *Error is a
// persistence failure.
func KindOf(err error) Kind {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return KindPersistence
}

// ErrInvalidToken is the only message an auth failure ever carries, whatever
// the state of the referenced entity.
const ErrInvalidToken = "invalid API token"

func validationErr(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func authErr() *Error {
	return &Error{Kind: KindAuth, Message: ErrInvalidToken}
}

func notFoundErr(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// persistenceErr wraps a storage failure. Errors that are already classified
// pass through unchanged.
func persistenceErr(err error) error {
	var ie *Error
	if errors.As(err, &ie) {
		return ie
	}
	msg := "storage failure"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		msg = "request timed out"
	case errors.Is(err, context.Canceled):
		msg = "request cancelled"
	}
	return &Error{Kind: KindPersistence, Message: msg, Err: err}
}
