// Package apperr defines the error kinds shared by the domain services.
//
// Services declare their own sentinel errors wrapping one of these kinds, so a
// caller can match the precise failure (scheduling.ErrSlotTaken) or only its
// category (apperr.ErrConflict) with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidState = errors.New("invalid state")
	ErrConflict     = errors.New("conflict")
)

// New returns a sentinel error of the given kind carrying msg.
func New(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// Wrapf annotates a sentinel with request-specific detail while keeping it
// matchable with errors.Is.
func Wrapf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

// Kind reports which of the shared kinds err belongs to, or nil.
func Kind(err error) error {
	for _, k := range []error{ErrNotFound, ErrInvalidInput, ErrInvalidState, ErrConflict} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
