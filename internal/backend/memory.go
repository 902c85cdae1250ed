package backend

import (
	"context"
	"fmt"
	"sync"

	"rewind-go/internal/rewind"
)

// MemoryBackend is an in-memory implementation of the Backend interface.
// It can impersonate any kind, which lets tests drive backend selection, and
// it counts physical writes. It is safe for concurrent use.
type MemoryBackend struct {
	kind rewind.BackendKind

	mu          sync.RWMutex
	objects     map[string][]byte // ref -> payload
	puts        int
	unavailable bool
}

var _ rewind.Backend = (*MemoryBackend)(nil)

// NewMemoryBackend creates an empty memory backend reporting kind.
func NewMemoryBackend(kind rewind.BackendKind) *MemoryBackend {
	return &MemoryBackend{
		kind:    kind,
		objects: make(map[string][]byte),
	}
}

func (m *MemoryBackend) Kind() rewind.BackendKind { return m.kind }

func (m *MemoryBackend) Probe(ctx context.Context, projectPath string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.unavailable {
		return fmt.Errorf("%s backend disabled: %w", m.kind, rewind.ErrBackendUnavailable)
	}
	return nil
}

// SetAvailable toggles what Probe and Put report.
func (m *MemoryBackend) SetAvailable(available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = !available
}

func (m *MemoryBackend) Put(ctx context.Context, hash string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unavailable {
		return "", fmt.Errorf("%s backend disabled: %w", m.kind, rewind.ErrBackendUnavailable)
	}

	stored := make([]byte, len(data))
	copy(stored, data)
	m.objects[hash] = stored
	m.puts++
	return hash, nil
}

func (m *MemoryBackend) Get(ctx context.Context, ref string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[ref]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", ref, rewind.ErrNotFound)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemoryBackend) Delete(ctx context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, ref)
	return nil
}

// Puts returns the number of physical writes performed.
func (m *MemoryBackend) Puts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}

// Len returns the number of stored objects.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// Corrupt flips the first byte of a stored object.
func (m *MemoryBackend) Corrupt(ref string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if data := m.objects[ref]; len(data) > 0 {
		data[0] ^= 0xff
	}
}
