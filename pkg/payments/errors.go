package payments

import (
	"errors"
	"fmt"
)

// InvalidEventError is terminal: the session is unpaid, incomplete or refers
// to an unknown plan. Redelivering the same session cannot succeed.
type InvalidEventError struct {
	SessionRef string
	Reason     string
}

func (e *InvalidEventError) Error() string {
	return fmt.Sprintf("invalid payment event for session %s: %s", e.SessionRef, e.Reason)
}

// IsInvalidEvent checks if the error is a terminal event validation failure
func IsInvalidEvent(err error) bool {
	var target *InvalidEventError
	return errors.As(err, &target)
}

// TransientProviderError is retryable: the provider call timed out or failed
// in a way that says nothing about the session itself.
type TransientProviderError struct {
	Operation string
	Err       error
}

func (e *TransientProviderError) Error() string {
	return fmt.Sprintf("transient provider error during %s: %v", e.Operation, e.Err)
}

func (e *TransientProviderError) Unwrap() error { return e.Err }

// IsTransientProvider checks if the error is a retryable provider failure
func IsTransientProvider(err error) bool {
	var target *TransientProviderError
	return errors.As(err, &target)
}

// StateConflictError is retryable: another delivery of the same session is
// being processed right now. The redelivery will hit the idempotency guard
// once the winner finishes.
type StateConflictError struct {
	SessionRef string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("session %s is being processed concurrently", e.SessionRef)
}

// IsStateConflict checks if the error is a concurrent-processing conflict
func IsStateConflict(err error) bool {
	var target *StateConflictError
	return errors.As(err, &target)
}

// PersistenceError is retryable: a store operation failed mid-flight.
type PersistenceError struct {
	Operation string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Operation, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsPersistence checks if the error is a store failure
func IsPersistence(err error) bool {
	var target *PersistenceError
	return errors.As(err, &target)
}

// IsRetryable reports whether redelivering the event can succeed
func IsRetryable(err error) bool {
	return IsTransientProvider(err) || IsStateConflict(err) || IsPersistence(err)
}
