package rewind_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"rewind-go/internal/rewind"
)

func TestProjectLocks_SameProjectQueues(t *testing.T) {
	locks := rewind.NewProjectLocks("")

	unlock, err := locks.Lock(context.Background(), "/work/a")
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := locks.Lock(ctx, "/work/a"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("second Lock() error = %v, want DeadlineExceeded", err)
	}

	acquired := make(chan struct{})
	go func() {
		unlock2, err := locks.Lock(context.Background(), "/work/a")
		if err == nil {
			unlock2()
		}
		close(acquired)
	}()

	unlock()
	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("queued Lock() did not acquire after release")
	}
}

func TestProjectLocks_DifferentProjectsDoNotContend(t *testing.T) {
	locks := rewind.NewProjectLocks("")

	unlock, err := locks.Lock(context.Background(), "/work/a")
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	unlockB, err := locks.Lock(ctx, "/work/b")
	if err != nil {
		t.Fatalf("Lock(other project) error = %v", err)
	}
	unlockB()
}

func TestProjectLocks_HeldByAnotherProcess(t *testing.T) {
	dir := t.TempDir()
	first := rewind.NewProjectLocks(dir)
	second := rewind.NewProjectLocks(dir)

	unlock, err := first.Lock(context.Background(), "/work/a")
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}

	if _, err := second.Lock(context.Background(), "/work/a"); !errors.Is(err, rewind.ErrLocked) {
		t.Fatalf("Lock() from second table error = %v, want ErrLocked", err)
	}

	unlockB, err := second.Lock(context.Background(), "/work/b")
	if err != nil {
		t.Fatalf("Lock(other project) error = %v", err)
	}
	unlockB()

	unlock()
	unlock2, err := second.Lock(context.Background(), "/work/a")
	if err != nil {
		t.Fatalf("Lock() after release error = %v", err)
	}
	unlock2()
}
