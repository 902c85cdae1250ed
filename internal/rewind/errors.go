package rewind

import "errors"

// Sentinel errors returned (wrapped) by engine operations. Callers match them
// with errors.Is; the CLI maps each one to its own exit code.
var (
	// ErrNotFound reports a missing hash, entry, checkpoint or project.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateName reports a checkpoint name that is already bound.
	ErrDuplicateName = errors.New("duplicate checkpoint name")

	// ErrLocked reports that another process holds the project lock.
	ErrLocked = errors.New("project is locked")

	// ErrBackendUnavailable reports that the chosen storage backend cannot be used.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrCorrupt reports fetched content that does not match its hash.
	ErrCorrupt = errors.New("corrupt content")
)
