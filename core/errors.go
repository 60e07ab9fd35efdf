package core

import "errors"

var (
	// ErrEmptyTask rejects a start request with a blank task before any
	// workflow is created.
	ErrEmptyTask = errors.New("task must not be empty")

	// ErrUnknownWorkflow is returned for lookups with a stale or invalid id.
	ErrUnknownWorkflow = errors.New("unknown workflow")

	// ErrWorkflowExists is returned when a caller-supplied workflow id is
	// already in use by a retained workflow.
	ErrWorkflowExists = errors.New("workflow id already in use")

	// ErrIterationLimit is recorded when the routing budget is exhausted.
	// The text is part of the wire contract.
	ErrIterationLimit = errors.New("iteration_limit_exceeded")

	// ErrRegistryClosed is returned by Start after Shutdown has begun.
	ErrRegistryClosed = errors.New("registry is shut down")
)

// RecoverableError marks a transient agent failure (typically a provider
// hiccup). The coordinator retries the invocation with backoff before
// escalating to fatal.
type RecoverableError struct{ Err error }

func (e *RecoverableError) Error() string { return "recoverable: " + e.Err.Error() }
func (e *RecoverableError) Unwrap() error { return e.Err }

// Recoverable wraps err so the coordinator will retry the invocation.
// A nil err yields nil.
func Recoverable(err error) error {
	if err == nil {
		return nil
	}
	return &RecoverableError{Err: err}
}

// IsRecoverable reports whether err (or anything it wraps) is retryable.
// Unclassified errors are fatal by default: an agent that cannot say why it
// failed must not be blindly re-run against the same state.
func IsRecoverable(err error) bool {
	var re *RecoverableError
	return errors.As(err, &re)
}
