package backend

import (
	"context"
	"fmt"

	"rewind-go/internal/rewind"
)

// SnapshotBackend keeps payloads on a copy-on-write volume (btrfs, XFS with
// reflink, APFS-like filesystems on Linux) that the project shares. It is only
// selected when a real reflink succeeds inside its root and the root lives on
// the project's filesystem.
type SnapshotBackend struct {
	objects objectDir
}

var _ rewind.Backend = (*SnapshotBackend)(nil)

// NewSnapshotBackend creates a snapshot backend rooted at root.
func NewSnapshotBackend(root string) *SnapshotBackend {
	return &SnapshotBackend{objects: objectDir{root: root}}
}

func (b *SnapshotBackend) Kind() rewind.BackendKind { return rewind.BackendSnapshot }

func (b *SnapshotBackend) Probe(ctx context.Context, projectPath string) error {
	if err := b.objects.writable(); err != nil {
		return err
	}
	if err := sameDevice(b.objects.root, projectPath); err != nil {
		return fmt.Errorf("%w: %v", rewind.ErrBackendUnavailable, err)
	}
	if err := probeReflink(b.objects.root); err != nil {
		return fmt.Errorf("%w: %v", rewind.ErrBackendUnavailable, err)
	}
	return nil
}

// Put writes data as a plain object file. The store hands over content, not a
// source path, so there is nothing to reflink from; the reflink check only
// qualifies the volume in Probe.
func (b *SnapshotBackend) Put(ctx context.Context, hash string, data []byte) (string, error) {
	return b.objects.put(hash, data)
}

func (b *SnapshotBackend) Get(ctx context.Context, ref string) ([]byte, error) {
	return b.objects.get(ref)
}

func (b *SnapshotBackend) Delete(ctx context.Context, ref string) error {
	return b.objects.delete(ref)
}
