package chore

import "fmt"

// The lifecycle raises four recoverable error kinds. Anything else that
// escapes an operation is an infrastructure failure (storage, encoding) and
// is wrapped, not classified.

// ValidationError reports malformed input: wrong assignee count for a mode,
// bad range bounds, a blank rejection reason, a missing range reward value.
// It is always raised before any mutation.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// AuthorizationError reports that the caller lacks rights over the template,
// child, or family. NotFound distinguishes "no such thing" from "exists but
// belongs to someone else" so the HTTP layer can answer 404 vs 403.
type AuthorizationError struct {
	Msg      string
	NotFound bool
}

func (e *AuthorizationError) Error() string { return e.Msg }

// StateError reports an operation that is invalid for the record's current
// state: already completed, already approved, in cooldown, disabled template,
// rejecting an approved record. DaysUntilAvailable is set for cooldown
// failures so callers can render the wait without re-querying.
type StateError struct {
	Msg                string
	State              State
	DaysUntilAvailable int
}

func (e *StateError) Error() string { return e.Msg }

// ConflictError reports a lost race on an unassigned-pool claim.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
