package backend

import (
	"context"

	"rewind-go/internal/rewind"
)

// FileBackend keeps each payload as a plain file under root.
// It works on any writable volume and is the fallback of auto mode.
type FileBackend struct {
	objects objectDir
}

var _ rewind.Backend = (*FileBackend)(nil)

// NewFileBackend creates a file backend rooted at root. The directory is
// created on first use.
func NewFileBackend(root string) *FileBackend {
	return &FileBackend{objects: objectDir{root: root}}
}

func (b *FileBackend) Kind() rewind.BackendKind { return rewind.BackendFile }

func (b *FileBackend) Probe(ctx context.Context, projectPath string) error {
	return b.objects.writable()
}

func (b *FileBackend) Put(ctx context.Context, hash string, data []byte) (string, error) {
	return b.objects.put(hash, data)
}

func (b *FileBackend) Get(ctx context.Context, ref string) ([]byte, error) {
	return b.objects.get(ref)
}

func (b *FileBackend) Delete(ctx context.Context, ref string) error {
	return b.objects.delete(ref)
}
