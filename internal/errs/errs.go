// Package errs implements the error taxonomy of kinds (not types) used
// across the engine: Transient, Validation, Conflict, Fatal, External.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation-policy purposes. Kinds are
// not Go types — every error in the system wraps one of these five.
type Kind string

const (
	Transient  Kind = "transient"
	Validation Kind = "validation"
	Conflict   Kind = "conflict"
	Fatal      Kind = "fatal"
	External   Kind = "external"
)

// taggedError pairs an underlying error with its propagation kind plus
// an optional categorical reason (used for rejection logging).
type taggedError struct {
	kind   Kind
	reason string
	err    error
}

func (e *taggedError) Error() string {
	if e.reason != "" {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.reason, e.err)
	}
	return fmt.Sprintf("%s: %v", e.kind, e.err)
}

func (e *taggedError) Unwrap() error { return e.err }

// New creates a new error of the given kind from a message.
func New(kind Kind, msg string) error {
	return &taggedError{kind: kind, err: errors.New(msg)}
}

// Newf creates a new error of the given kind from a format string.
func Newf(kind Kind, format string, args ...any) error {
	return &taggedError{kind: kind, err: fmt.Errorf(format, args...)}
}

// Wrap tags an existing error with a kind, preserving it for errors.Unwrap.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &taggedError{kind: kind, err: err}
}

// WithReason tags an error with a kind and a categorical reason string
// that ReasonOf reads back.
func WithReason(kind Kind, reason string, err error) error {
	return &taggedError{kind: kind, reason: reason, err: err}
}

// KindOf returns the Kind attached to err, or "" if err was never tagged.
func KindOf(err error) Kind {
	var te *taggedError
	if errors.As(err, &te) {
		return te.kind
	}
	return ""
}

// ReasonOf returns the categorical reason attached to err, if any.
func ReasonOf(err error) string {
	var te *taggedError
	if errors.As(err, &te) {
		return te.reason
	}
	return ""
}

// Is reports whether err (or any error it wraps) has the given Kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
