package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSyncInProgress indicates a sync is already running.
	// Overlapping triggers are rejected rather than queued.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrTaskTerminal indicates an attempt to mutate a task whose
	// status is already terminal.
	ErrTaskTerminal = errors.New("task already terminal")

	// ErrMissingCredentials indicates required source credentials are
	// absent from the environment. Fatal at startup.
	ErrMissingCredentials = errors.New("missing source credentials")
)
