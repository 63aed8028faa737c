package metadata

import (
	"context"
	"errors"
	"fmt"
)

// Common metadata errors. Callers should match them with errors.Is; the typed
// ConflictError and UpdateError carry the details.
var (
	// ErrConflictingField is returned when one field id maps to two different names or
	// types, or one name maps to two different ids, within a type
	ErrConflictingField = errors.New("conflicting field definition")

	// ErrConflictingTypeName is returned when one type id is submitted under two type names
	ErrConflictingTypeName = errors.New("conflicting type name")

	// ErrUpdaterFailed is returned when the Updater rejected or failed to deliver a push
	ErrUpdaterFailed = errors.New("metadata updater failed")

	// ErrHandlerClosed is returned when a field is written to a closed handler
	ErrHandlerClosed = errors.New("metadata handler closed")

	// ErrNilHandler is returned when a nil handler is submitted
	ErrNilHandler = errors.New("nil metadata handler")

	// ErrHandlerTypeMismatch is returned when a handler is submitted under a type id
	// different from the one it was created for
	ErrHandlerTypeMismatch = errors.New("handler type id mismatch")

	// ErrEmptyTypeName is returned when a type name is required but empty
	ErrEmptyTypeName = errors.New("empty type name")
)

// ConflictError describes an id allocation collision found while merging.
// It is never retryable: the same input always produces the same conflict.
type ConflictError struct {
	// TypeID is the type the conflict was found in
	TypeID TypeID

	// TypeName is the name the type is published or submitted under
	TypeName string

	// Existing is the field already known for the conflicting id or name
	Existing Field

	// Incoming is the field that collided with Existing
	Incoming Field

	// IncomingTypeName is set for type name conflicts
	IncomingTypeName string

	// Diffs are the diffs drained by the failed reconciliation, if any
	Diffs []Diff

	// Rejected is the diff the conflict was found in, when known
	Rejected Diff

	// rejectedAt is the position of Rejected in Diffs plus one; zero means unknown
	rejectedAt int
}

// Remaining returns the drained diffs that did not cause the conflict. They can be
// handed to Manager.Requeue so that one conflicting diff does not cost the fields of
// every other diff drained with it. When the rejected diff is unknown, every diff of
// the conflicting type is left out.
func (e *ConflictError) Remaining() []Diff {
	out := make([]Diff, 0, len(e.Diffs))
	for i, d := range e.Diffs {
		if e.rejectedAt > 0 {
			if i == e.rejectedAt-1 {
				continue
			}
		} else if d.TypeID == e.TypeID {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e.IncomingTypeName != "" {
		return fmt.Sprintf("%s: type %d is known as %q, submitted as %q",
			ErrConflictingTypeName, e.TypeID, e.TypeName, e.IncomingTypeName)
	}
	return fmt.Sprintf("%s: type %d (%s): existing {id=%d name=%q type=%d}, incoming {id=%d name=%q type=%d}",
		ErrConflictingField, e.TypeID, e.TypeName,
		e.Existing.ID, e.Existing.Name, e.Existing.Type,
		e.Incoming.ID, e.Incoming.Name, e.Incoming.Type)
}

// Is matches ErrConflictingField or ErrConflictingTypeName depending on the conflict kind.
func (e *ConflictError) Is(target error) bool {
	if e.IncomingTypeName != "" {
		return target == ErrConflictingTypeName
	}
	return target == ErrConflictingField
}

// UpdateError wraps an Updater failure. The drained diffs are handed back so the caller
// can retry them with Manager.Requeue; the Manager never re-enqueues them on its own.
type UpdateError struct {
	// Err is the error returned by the Updater
	Err error

	// Diffs are the diffs that were drained for the failed push
	Diffs []Diff
}

// Error implements the error interface.
func (e *UpdateError) Error() string {
	return fmt.Sprintf("%s: %v", ErrUpdaterFailed, e.Err)
}

// Unwrap returns the underlying Updater error.
func (e *UpdateError) Unwrap() error {
	return e.Err
}

// Is matches ErrUpdaterFailed.
func (e *UpdateError) Is(target error) bool {
	return target == ErrUpdaterFailed
}

// IsRetryableError returns true if repeating the failed reconciliation with the same
// diffs may succeed.
func IsRetryableError(err error) bool {
	if err == nil || IsPermanentError(err) {
		return false
	}
	return errors.Is(err, ErrUpdaterFailed)
}

// IsPermanentError returns true if the error will not go away by retrying.
func IsPermanentError(err error) bool {
	switch {
	case errors.Is(err, ErrConflictingField),
		errors.Is(err, ErrConflictingTypeName),
		errors.Is(err, ErrHandlerClosed),
		errors.Is(err, ErrNilHandler),
		errors.Is(err, ErrHandlerTypeMismatch),
		errors.Is(err, ErrEmptyTypeName),
		errors.Is(err, context.Canceled),
		IsPermanentUpdaterError(err):
		return true
	default:
		return false
	}
}

// PermanentError marks an Updater error as not worth retrying. Backends wrap authority
// rejections with it so retry wrappers stop early.
type PermanentError struct {
	Err error
}

// Error implements the error interface.
func (e *PermanentError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err so that IsPermanentUpdaterError reports true for it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanentUpdaterError reports whether an Updater marked err as permanent.
func IsPermanentUpdaterError(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
