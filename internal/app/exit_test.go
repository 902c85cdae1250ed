package app

import (
	"errors"
	"fmt"
	"testing"

	"rewind-go/internal/rewind"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", err: nil, want: 0},
		{name: "generic", err: errors.New("boom"), want: 1},
		{name: "not found", err: fmt.Errorf("checkpoint %q: %w", "v1", rewind.ErrNotFound), want: 2},
		{name: "duplicate name", err: fmt.Errorf("creating checkpoint: %w", rewind.ErrDuplicateName), want: 3},
		{name: "locked", err: fmt.Errorf("project /a: %w", rewind.ErrLocked), want: 4},
		{name: "backend unavailable", err: fmt.Errorf("storage mode git: %w", rewind.ErrBackendUnavailable), want: 5},
		{name: "corrupt", err: fmt.Errorf("fetching: %w", fmt.Errorf("hash mismatch: %w", rewind.ErrCorrupt)), want: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
