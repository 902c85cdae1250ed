package backend

import (
	"fmt"
	"path/filepath"

	"rewind-go/internal/config"
	"rewind-go/internal/rewind"
)

// NewBackendsFromConfig returns every backend the store may choose from:
// inline for small payloads plus the snapshot, git and file volume backends,
// each under its own directory of cfg.Root. Which volume backend a project
// uses is decided per project by probing.
func NewBackendsFromConfig(cfg config.StorageConfig) ([]rewind.Backend, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	if _, err := rewind.ParseStorageMode(cfg.Mode); err != nil {
		return nil, err
	}

	return []rewind.Backend{
		InlineBackend{},
		NewSnapshotBackend(filepath.Join(cfg.Root, "snapshots")),
		NewGitBackend(filepath.Join(cfg.Root, "shadow.git")),
		NewFileBackend(filepath.Join(cfg.Root, "objects")),
	}, nil
}
