package app

import (
	"errors"

	"rewind-go/internal/rewind"
)

// Process exit codes.
const (
	ExitOK                 = 0
	ExitError              = 1
	ExitNotFound           = 2
	ExitDuplicateName      = 3
	ExitLocked             = 4
	ExitBackendUnavailable = 5
	ExitCorrupt            = 6
)

// ExitCode maps an operation error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, rewind.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, rewind.ErrDuplicateName):
		return ExitDuplicateName
	case errors.Is(err, rewind.ErrLocked):
		return ExitLocked
	case errors.Is(err, rewind.ErrBackendUnavailable):
		return ExitBackendUnavailable
	case errors.Is(err, rewind.ErrCorrupt):
		return ExitCorrupt
	default:
		return ExitError
	}
}
