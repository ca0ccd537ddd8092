// Package apperr defines the error taxonomy shared by the store, the
// ingestion engine and the command/query services. Every error that leaves
// the core carries a stable Kind tag so the HTTP adapter and the CLI can
// react without inspecting driver messages.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the stable tag of an application error.
type Kind string

const (
	KindConstraint        Kind = "constraint_violation"
	KindNotFound          Kind = "not_found"
	KindValidation        Kind = "validation_error"
	KindSourceUnavailable Kind = "source_unavailable"
	KindTimeout           Kind = "timeout"
	KindInternal          Kind = "internal"
)

// Sentinels usable with errors.Is. Two *Error values match when their kinds
// are equal, so errors.Is(err, apperr.ErrNotFound) holds for any not-found.
var (
	ErrConstraint        = &Error{Kind: KindConstraint}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrValidation        = &Error{Kind: KindValidation}
	ErrSourceUnavailable = &Error{Kind: KindSourceUnavailable}
	ErrTimeout           = &Error{Kind: KindTimeout}
)

// Error is an application error with a kind, a human readable message and,
// for constraint violations, the name of the violated constraint.
type Error struct {
	Kind       Kind
	Message    string
	Constraint string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Constraint != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Constraint)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so sentinels match any error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func NotFound(msg string) *Error   { return New(KindNotFound, msg) }
func Validation(msg string) *Error { return New(KindValidation, msg) }

// Constraint builds a constraint violation naming the violated key.
func Constraint(constraint, msg string, err error) *Error {
	return &Error{Kind: KindConstraint, Message: msg, Constraint: constraint, Err: err}
}

// KindOf returns the kind of err, KindInternal for foreign errors and ""
// for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the human readable message of err without the wrapped
// driver text. Foreign errors yield a generic message.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		return string(e.Kind)
	}
	return "internal error"
}
