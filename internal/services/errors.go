package services

import (
	"errors"
	"fmt"
)

// Engine error taxonomy. Handlers map these onto HTTP statuses with
// errors.Is / errors.As; services never return gorm errors directly.
var (
	// ErrNotFound means the referenced posting, submission or
	// conversation does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied means the actor lacks authority for the
	// operation. Deliberately generic: it does not reveal whether the
	// resource exists.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrPostingClosed means a submission was attempted against a
	// posting that is no longer open.
	ErrPostingClosed = errors.New("posting is closed")

	// ErrDuplicateSubmission means the actor already has a submission
	// against this posting.
	ErrDuplicateSubmission = errors.New("duplicate submission")

	// ErrInvalidState means the operation is not valid for the record's
	// current lifecycle state, e.g. deciding an already-decided
	// submission.
	ErrInvalidState = errors.New("invalid state for operation")

	// ErrUnavailable wraps backing-store failures. Retryable: Submit's
	// duplicate check absorbs a replayed request, so callers may retry
	// on this error without double-counting.
	ErrUnavailable = errors.New("store unavailable")
)

// ValidationError reports malformed or missing input. Recoverable by
// the caller correcting the named field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalidField(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
