package command

import (
	"fmt"

	apperrors "github.com/allisson/missionhub/internal/errors"
)

// Error is a handler failure that carries its own rejection reason.
type Error struct {
	Code    ReasonCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is lets errors.Is match on the reason code alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// NewError creates an Error.
func NewError(code ReasonCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// ErrUnsupportedOperation matches any unsupported_operation Error.
var ErrUnsupportedOperation = &Error{Code: ReasonUnsupportedOperation}

// Unsupported reports that a collaborator the command needs is not configured.
func Unsupported(service string) *Error {
	return NewError(ReasonUnsupportedOperation, service+" is not configured")
}

// classify maps a handler error to a rejection. It reports false for errors the
// router must not mask.
func classify(err error) (ReasonCode, bool) {
	var commandErr *Error
	if apperrors.As(err, &commandErr) {
		return commandErr.Code, true
	}
	if apperrors.Is(err, apperrors.ErrUnsupported) {
		return ReasonUnsupportedOperation, true
	}
	if apperrors.Is(err, apperrors.ErrNotFound) || apperrors.Is(err, apperrors.ErrInvalidInput) ||
		apperrors.Is(err, apperrors.ErrConflict) {
		return ReasonInvalidPayload, true
	}
	return "", false
}
