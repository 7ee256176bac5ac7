/*
errors.go - Centralized error taxonomy for the engine

PURPOSE:
  All error categories in one place. The engine distinguishes three
  failure classes, none of which are fatal:

  1. Validation errors  - bad input (non-positive amount, invalid date,
                          lateFeeDay <= billingDay)
  2. Authorization errors - a non-privileged actor invoking a privileged
                          command (raised explicitly, never a silent no-op)
  3. State errors       - illegal ledger-status transitions (approving an
                          already-rejected payment, acting on a charge as
                          if it were a payment)

USAGE:
  Callers classify with errors.Is:

    if errors.Is(err, academy.ErrValidation) { ... 400 ... }
    if errors.Is(err, academy.ErrAuthorization) { ... 403 ... }

SEE ALSO:
  - api/handlers.go: Maps these categories onto HTTP status codes
*/
package academy

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation marks rejected input. Surface synchronously to the caller.
	ErrValidation = errors.New("validation failed")

	// ErrAuthorization marks a command invoked without the required capability.
	ErrAuthorization = errors.New("not authorized")

	// ErrState marks an illegal ledger-status transition.
	ErrState = errors.New("illegal state transition")

	// ErrNotFound marks a missing student, class, event, or ledger record.
	ErrNotFound = errors.New("not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports which field of the input was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// AuthorizationError reports who attempted which privileged command.
type AuthorizationError struct {
	ActorID string
	Command string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("actor %q is not allowed to invoke %s", e.ActorID, e.Command)
}

func (e *AuthorizationError) Unwrap() error { return ErrAuthorization }

// StateError reports a ledger record in the wrong status for an action.
type StateError struct {
	RecordID RecordID
	Status   string // current status
	Action   string // attempted action
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s record %s in status %q", e.Action, e.RecordID, e.Status)
}

func (e *StateError) Unwrap() error { return ErrState }

// NotFoundError reports a missing entity by kind and id.
type NotFoundError struct {
	Kind string // "student", "class", "event", "record"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input
// rather than an engine or store failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrState) ||
		errors.Is(err, ErrNotFound)
}
