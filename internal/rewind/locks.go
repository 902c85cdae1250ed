package rewind

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// ProjectLocks serializes writers per project. Waiters for the same project
// queue in process; different projects never contend. When lockDir is set each
// holder also takes a file lock, and a project held by another process fails
// fast with ErrLocked.
type ProjectLocks struct {
	lockDir string

	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewProjectLocks creates the lock table. An empty lockDir disables the
// cross-process file lock.
func NewProjectLocks(lockDir string) *ProjectLocks {
	return &ProjectLocks{
		lockDir: lockDir,
		slots:   make(map[string]chan struct{}),
	}
}

func (l *ProjectLocks) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

// Lock blocks until the project identified by key is free or ctx is done.
// The returned function releases the lock.
func (l *ProjectLocks) Lock(ctx context.Context, key string) (func(), error) {
	ch := l.slot(key)
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for project lock: %w", ctx.Err())
	}

	if l.lockDir == "" {
		return func() { <-ch }, nil
	}

	fl, err := l.fileLock(key)
	if err != nil {
		<-ch
		return nil, err
	}
	return func() {
		_ = fl.Unlock()
		<-ch
	}, nil
}

func (l *ProjectLocks) fileLock(key string) (*flock.Flock, error) {
	if err := os.MkdirAll(l.lockDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	sum := sha256.Sum256([]byte(key))
	fl := flock.New(filepath.Join(l.lockDir, hex.EncodeToString(sum[:8])+".lock"))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", fl.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("project %s: %w", key, ErrLocked)
	}
	return fl, nil
}
