// Package errors carries classified errors across layer boundaries so
// transports can map failures to status codes without string matching.
package errors

import (
	"errors"
	"fmt"
)

// Kind names the subsystem a failure belongs to.
type Kind string

const (
	KindConfig    Kind = "config"
	KindGovernor  Kind = "governor"
	KindProvider  Kind = "provider"
	KindSession   Kind = "session"
	KindTransport Kind = "transport"
	KindStorage   Kind = "storage"
	KindBootstrap Kind = "bootstrap"
	KindUnknown   Kind = "unknown"
)

// Error pairs a kind and operation name with a human message and an
// optional cause. It participates in errors.Is/As chains via Unwrap.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Op, e.Message)
	}
	return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Op, e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a classified error with no underlying cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap classifies err. An error that is already classified passes through
// untouched so the first classification wins; nil stays nil.
func Wrap(kind Kind, op, message string, err error) *Error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}
	return &Error{Kind: kind, Op: op, Message: message, Cause: err}
}

// IsKind reports whether the first classified error in the chain has the
// given kind.
func IsKind(err error, kind Kind) bool {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind == kind
	}
	return false
}
