package testutil

import (
	"fmt"
	"io/fs"
	"maps"
	"slices"
	"sync"

	"rewind-go/internal/rewind"
)

// MemoryWorkspace is an in-memory rewind.Workspace keyed by absolute path.
// Safe for concurrent use.
type MemoryWorkspace struct {
	mu     sync.Mutex
	files  map[string][]byte
	fail   map[string]error
	holds  map[string]*hold
	writes int
}

type hold struct {
	entered chan struct{}
	release chan struct{}
}

var _ rewind.Workspace = (*MemoryWorkspace)(nil)

// NewMemoryWorkspace creates an empty workspace.
func NewMemoryWorkspace() *MemoryWorkspace {
	return &MemoryWorkspace{
		files: make(map[string][]byte),
		fail:  make(map[string]error),
		holds: make(map[string]*hold),
	}
}

// AddFile places a file without counting it as a write.
func (w *MemoryWorkspace) AddFile(path string, content []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.files[path] = slices.Clone(content)
}

// Content returns the file content and whether the file exists.
func (w *MemoryWorkspace) Content(path string) ([]byte, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	data, ok := w.files[path]
	return slices.Clone(data), ok
}

// Paths returns every file path, sorted.
func (w *MemoryWorkspace) Paths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Sorted(maps.Keys(w.files))
}

// Writes returns how many WriteFile and Remove calls succeeded.
func (w *MemoryWorkspace) Writes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}

// FailOn makes every later mutation of path return err.
func (w *MemoryWorkspace) FailOn(path string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fail[path] = err
}

// HoldOn parks the next mutation of path until release is called. entered is
// closed once that mutation is waiting.
func (w *MemoryWorkspace) HoldOn(path string) (entered <-chan struct{}, release func()) {
	h := &hold{entered: make(chan struct{}), release: make(chan struct{})}
	w.mu.Lock()
	w.holds[path] = h
	w.mu.Unlock()

	var once sync.Once
	return h.entered, func() { once.Do(func() { close(h.release) }) }
}

// wait blocks on a hold for path without keeping w.mu.
func (w *MemoryWorkspace) wait(path string) {
	w.mu.Lock()
	h, ok := w.holds[path]
	delete(w.holds, path)
	w.mu.Unlock()

	if ok {
		close(h.entered)
		<-h.release
	}
}

func (w *MemoryWorkspace) ReadFile(path string) ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, ok := w.files[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, fs.ErrNotExist)
	}
	return slices.Clone(data), nil
}

func (w *MemoryWorkspace) WriteFile(path string, data []byte) error {
	w.wait(path)
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.fail[path]; err != nil {
		return err
	}
	content := slices.Clone(data)
	if content == nil {
		content = []byte{}
	}
	w.files[path] = content
	w.writes++
	return nil
}

func (w *MemoryWorkspace) Remove(path string) error {
	w.wait(path)
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.fail[path]; err != nil {
		return err
	}
	delete(w.files, path)
	w.writes++
	return nil
}
