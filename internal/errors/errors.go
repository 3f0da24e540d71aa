// Package errors defines the sentinel errors shared by every hub module. Use cases wrap
// them with context; the command router turns them into rejection reason codes and the
// admin API into HTTP statuses.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound: the referenced mission, checklist, grant or other record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict: the write collides with stored state.
	ErrConflict = errors.New("conflict")
	// ErrInvalidInput: a payload field is missing or malformed.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized: the sender or admin caller could not be identified.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden: the caller is known but lacks the capability.
	ErrForbidden = errors.New("forbidden")
	// ErrUnsupported: a collaborator the operation needs is not configured.
	ErrUnsupported = errors.New("unsupported")
)

// New returns a plain error.
func New(message string) error { return errors.New(message) }

// Wrap prefixes err with message, keeping the chain intact. A nil err stays nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a formatted prefix.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// Is forwards to errors.Is.
func Is(err, target error) bool { return errors.Is(err, target) }

// As forwards to errors.As.
func As(err error, target any) bool { return errors.As(err, target) }

// Join forwards to errors.Join.
func Join(errs ...error) error { return errors.Join(errs...) }
