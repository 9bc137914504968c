package domain

import "errors"

var (
	// ErrValidation marks malformed input: credentials, send options, or
	// request payloads. Surfaced to the caller, never retried.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a missing entity lookup.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks an operation rejected by the current entity state.
	ErrConflict = errors.New("conflict")

	// ErrNotRegistered marks a provider name with no registered constructor.
	ErrNotRegistered = errors.New("provider not registered")

	// ErrCredentialsNotFound marks a credential lookup miss during
	// provider resolution or message dispatch.
	ErrCredentialsNotFound = errors.New("credentials not found")

	// ErrNotImplemented marks a medium the dispatcher cannot deliver.
	ErrNotImplemented = errors.New("not implemented")

	// ErrQueueAborted marks an enqueue attempt after the dispatch queue's
	// cancellation signal fired. The queue cannot be resumed.
	ErrQueueAborted = errors.New("queue processing aborted")
)
