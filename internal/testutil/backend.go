package testutil

import (
	"rewind-go/internal/backend"
	"rewind-go/internal/rewind"
)

// NewTestBackends returns an inline backend plus an in-memory backend standing
// in for the file backend, which auto mode always falls back to.
func NewTestBackends() (*backend.MemoryBackend, []rewind.Backend) {
	mem := backend.NewMemoryBackend(rewind.BackendFile)
	return mem, []rewind.Backend{backend.InlineBackend{}, mem}
}
