package rewind_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"rewind-go/internal/rewind"
	"rewind-go/internal/testutil"
)

func TestRecorder_Record(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the project on first change", func(t *testing.T) {
		h := testutil.NewHarness(t)
		entry, err := h.Recorder.Record(ctx, rewind.Change{
			Project: projectRoot,
			Path:    "main.go",
			Type:    rewind.EntryCreate,
			After:   []byte("package main\n"),
		})
		if err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if entry.Seq != 1 {
			t.Errorf("seq = %d, want 1", entry.Seq)
		}
		if entry.BeforeHash != "" {
			t.Errorf("create has before hash %q", entry.BeforeHash)
		}
		if entry.AfterHash != testutil.SHA256Hex([]byte("package main\n")) {
			t.Errorf("after hash = %q, want hash of content", entry.AfterHash)
		}
		if entry.Description != "create main.go" {
			t.Errorf("description = %q, want %q", entry.Description, "create main.go")
		}
		if _, err := h.Ledger.FindProject(ctx, projectRoot); err != nil {
			t.Errorf("FindProject() error = %v", err)
		}
	})

	t.Run("delete stores only the before side", func(t *testing.T) {
		h := testutil.NewHarness(t)
		entry, err := h.Recorder.Record(ctx, rewind.Change{
			Project: projectRoot,
			Path:    "gone.txt",
			Type:    rewind.EntryDelete,
			Before:  []byte("last words"),
			After:   []byte("ignored"),
		})
		if err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if entry.AfterHash != "" {
			t.Errorf("delete has after hash %q", entry.AfterHash)
		}
		if entry.BeforeHash != testutil.SHA256Hex([]byte("last words")) {
			t.Errorf("before hash = %q, want hash of content", entry.BeforeHash)
		}
	})

	t.Run("rename without content change stores no hashes", func(t *testing.T) {
		h := testutil.NewHarness(t)
		entry, err := h.Recorder.Record(ctx, rewind.Change{
			Project:     projectRoot,
			Path:        "pkg/new.go",
			OldPath:     "pkg/old.go",
			Type:        rewind.EntryRename,
			Description: "move file",
			Metadata:    rewind.Metadata{"tool": "editor"},
		})
		if err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if entry.BeforeHash != "" || entry.AfterHash != "" {
			t.Errorf("rename hashes = %q/%q, want none", entry.BeforeHash, entry.AfterHash)
		}
		if entry.OldPath() != "pkg/old.go" {
			t.Errorf("old path = %q, want pkg/old.go", entry.OldPath())
		}
		if entry.Metadata["tool"] != "editor" || entry.Description != "move file" {
			t.Errorf("caller metadata or description lost: %v %q", entry.Metadata, entry.Description)
		}
	})

	t.Run("rename with identical content stores no hashes", func(t *testing.T) {
		h := testutil.NewHarness(t)
		content := []byte(big("moved unchanged "))
		entry, err := h.Recorder.Record(ctx, rewind.Change{
			Project: projectRoot,
			Path:    "pkg/new.go",
			OldPath: "pkg/old.go",
			Type:    rewind.EntryRename,
			Before:  content,
			After:   content,
		})
		if err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if entry.BeforeHash != "" || entry.AfterHash != "" {
			t.Errorf("rename hashes = %q/%q, want none", entry.BeforeHash, entry.AfterHash)
		}
		if h.Backend.Puts() != 0 {
			t.Errorf("backend writes = %d, want 0", h.Backend.Puts())
		}
	})

	t.Run("rename with changed content stores both sides", func(t *testing.T) {
		h := testutil.NewHarness(t)
		before, after := []byte("package old\n"), []byte("package new\n")
		entry, err := h.Recorder.Record(ctx, rewind.Change{
			Project: projectRoot,
			Path:    "pkg/new.go",
			OldPath: "pkg/old.go",
			Type:    rewind.EntryRename,
			Before:  before,
			After:   after,
		})
		if err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if entry.BeforeHash != rewind.HashContent(before) || entry.AfterHash != rewind.HashContent(after) {
			t.Errorf("rename hashes = %q/%q, want both sides", entry.BeforeHash, entry.AfterHash)
		}
	})

	t.Run("empty file is content", func(t *testing.T) {
		h := testutil.NewHarness(t)
		entry, err := h.Recorder.Record(ctx, rewind.Change{
			Project: projectRoot,
			Path:    "empty.txt",
			Type:    rewind.EntryCreate,
			After:   []byte{},
		})
		if err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if entry.AfterHash != testutil.SHA256Hex(nil) {
			t.Errorf("after hash = %q, want hash of empty content", entry.AfterHash)
		}
	})
}

func TestRecorder_RejectsInvalidChanges(t *testing.T) {
	h := testutil.NewHarness(t)

	tests := []struct {
		name   string
		change rewind.Change
	}{
		{name: "no project", change: rewind.Change{Path: "a.txt", Type: rewind.EntryCreate, After: []byte("x")}},
		{name: "no path", change: rewind.Change{Project: projectRoot, Type: rewind.EntryCreate, After: []byte("x")}},
		{name: "absolute path", change: rewind.Change{Project: projectRoot, Path: "/etc/passwd", Type: rewind.EntryEdit, After: []byte("x")}},
		{name: "escaping path", change: rewind.Change{Project: projectRoot, Path: "../outside.txt", Type: rewind.EntryEdit, After: []byte("x")}},
		{name: "unclean path", change: rewind.Change{Project: projectRoot, Path: "a/./b.txt", Type: rewind.EntryEdit, After: []byte("x")}},
		{name: "edit without content", change: rewind.Change{Project: projectRoot, Path: "a.txt", Type: rewind.EntryEdit}},
		{name: "create without content", change: rewind.Change{Project: projectRoot, Path: "a.txt", Type: rewind.EntryCreate}},
		{name: "rename to itself", change: rewind.Change{Project: projectRoot, Path: "a.txt", OldPath: "a.txt", Type: rewind.EntryRename}},
		{name: "rename without source", change: rewind.Change{Project: projectRoot, Path: "a.txt", Type: rewind.EntryRename}},
		{name: "checkpoint", change: rewind.Change{Project: projectRoot, Path: "a.txt", Type: rewind.EntryCheckpoint}},
		{name: "restore", change: rewind.Change{Project: projectRoot, Path: "a.txt", Type: rewind.EntryRestore, After: []byte("x")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.Recorder.Record(context.Background(), tt.change); err == nil {
				t.Error("Record() expected error")
			}
		})
	}

	if _, err := h.Ledger.FindProject(context.Background(), projectRoot); err == nil {
		t.Error("rejected changes created the project")
	}
}

func TestRecorder_IdenticalContentSharesOneBackup(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()
	content := big("same bytes ")

	first := write(t, h, "one.txt", content)
	second := write(t, h, "two.txt", content)

	if first.Seq == second.Seq {
		t.Fatal("both changes got the same entry")
	}
	if first.AfterHash != second.AfterHash {
		t.Errorf("after hashes differ: %s vs %s", first.AfterHash, second.AfterHash)
	}
	if h.Backend.Puts() != 1 || h.Backend.Len() != 1 {
		t.Errorf("backend writes = %d objects = %d, want 1 and 1", h.Backend.Puts(), h.Backend.Len())
	}

	backup, err := h.DB.FindFileBackup(ctx, first.AfterHash)
	if err != nil || backup == nil {
		t.Fatalf("FindFileBackup() = %v, %v", backup, err)
	}
}

func TestRecorder_ProjectsRecordIndependently(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()

	const projects, changes = 4, 15
	var wg sync.WaitGroup
	errs := make(chan error, projects*changes)
	for p := range projects {
		wg.Add(1)
		go func() {
			defer wg.Done()
			root := fmt.Sprintf("/work/p%d", p)
			for i := range changes {
				_, err := h.Recorder.Record(ctx, rewind.Change{
					Project: root,
					Path:    fmt.Sprintf("f%d.txt", i),
					Type:    rewind.EntryCreate,
					After:   []byte(fmt.Sprintf("project %d file %d", p, i)),
				})
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	for p := range projects {
		head, err := h.Ledger.Head(ctx, fmt.Sprintf("/work/p%d", p))
		if err != nil {
			t.Fatalf("Head() error = %v", err)
		}
		if head.Seq != changes {
			t.Errorf("project %d head seq = %d, want %d", p, head.Seq, changes)
		}
	}
}

func TestRecorder_LockedProjectDoesNotBlockOthers(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()

	for _, c := range []rewind.Change{
		{Project: "/work/a", Path: "x.txt", Type: rewind.EntryCreate, After: []byte("version one")},
		{Project: "/work/a", Path: "x.txt", Type: rewind.EntryEdit, Before: []byte("version one"), After: []byte("version two")},
	} {
		if _, err := h.Recorder.Record(ctx, c); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	// Undo on project a parks inside the workspace write while holding a's lock.
	entered, release := h.Workspace.HoldOn(filepath.Join("/work/a", "x.txt"))
	defer release()
	undone := make(chan error, 1)
	go func() {
		_, err := h.Restorer.UndoLast(ctx, "/work/a")
		undone <- err
	}()
	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("undo on project a never reached the workspace")
	}

	recorded := make(chan error, 1)
	go func() {
		_, err := h.Recorder.Record(ctx, rewind.Change{
			Project: "/work/b",
			Path:    "y.txt",
			Type:    rewind.EntryCreate,
			After:   []byte("independent"),
		})
		recorded <- err
	}()
	select {
	case err := <-recorded:
		if err != nil {
			t.Fatalf("Record() on project b error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Record() on project b waited for project a's lock")
	}

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err := h.Recorder.Record(waitCtx, rewind.Change{
		Project: "/work/a",
		Path:    "z.txt",
		Type:    rewind.EntryCreate,
		After:   []byte("queued"),
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Record() on locked project a error = %v, want DeadlineExceeded", err)
	}

	release()
	if err := <-undone; err != nil {
		t.Fatalf("UndoLast() error = %v", err)
	}
	if got, _ := h.Workspace.Content(filepath.Join("/work/a", "x.txt")); string(got) != "version one" {
		t.Errorf("x.txt = %q, want %q", got, "version one")
	}
}
