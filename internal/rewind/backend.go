package rewind

import (
	"context"
	"fmt"
)

// BackendKind names a physical storage strategy for backup payloads.
type BackendKind string

const (
	BackendInline   BackendKind = "inline"
	BackendGit      BackendKind = "git"
	BackendSnapshot BackendKind = "snapshot"
	BackendFile     BackendKind = "file"
	BackendMemory   BackendKind = "memory"
)

// Backend stores opaque payloads. The payload handed to Put is already
// compressed and encrypted; the returned ref is what Get and Delete take.
type Backend interface {
	Kind() BackendKind

	// Probe reports whether the backend can serve the project rooted at projectPath.
	// A failed probe returns an error wrapping ErrBackendUnavailable.
	Probe(ctx context.Context, projectPath string) error

	Put(ctx context.Context, hash string, data []byte) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
	Delete(ctx context.Context, ref string) error
}

// Capabilities is the outcome of probing the volume backends for a project.
type Capabilities map[BackendKind]bool

// autoOrder is the preference order used by ModeAuto.
var autoOrder = []BackendKind{BackendSnapshot, BackendGit, BackendFile}

// SelectBackend chooses where a payload of size bytes goes. Payloads below
// inlineFloor are always stored inline. Otherwise auto mode takes the first
// available of snapshot, git and file, and an explicit mode takes exactly that
// backend or fails with ErrBackendUnavailable.
func SelectBackend(mode StorageMode, size, inlineFloor int64, available Capabilities) (BackendKind, error) {
	if size < inlineFloor {
		return BackendInline, nil
	}

	if mode == ModeAuto || mode == "" {
		for _, kind := range autoOrder {
			if available[kind] {
				return kind, nil
			}
		}
		return "", fmt.Errorf("no storage backend available: %w", ErrBackendUnavailable)
	}

	kind := BackendKind(mode)
	if !available[kind] {
		return "", fmt.Errorf("storage mode %s: %w", mode, ErrBackendUnavailable)
	}
	return kind, nil
}
