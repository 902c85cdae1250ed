package rewind_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"rewind-go/internal/rewind"
	"rewind-go/internal/testutil"
)

const projectRoot = "/work/app"

func wsPath(rel string) string {
	return filepath.Join(projectRoot, filepath.FromSlash(rel))
}

// big returns content above the inline floor so it lands in the memory backend.
func big(s string) string {
	return strings.Repeat(s, 1024/len(s)+1)
}

// write records a create or edit of rel and mirrors it in the workspace.
func write(t *testing.T, h *testutil.Harness, rel, content string) *rewind.Entry {
	t.Helper()

	change := rewind.Change{Project: projectRoot, Path: rel, Type: rewind.EntryCreate, After: []byte(content)}
	if before, ok := h.Workspace.Content(wsPath(rel)); ok {
		change.Type = rewind.EntryEdit
		change.Before = before
	}

	entry, err := h.Recorder.Record(context.Background(), change)
	if err != nil {
		t.Fatalf("Record(%s %s) error = %v", change.Type, rel, err)
	}
	h.Workspace.AddFile(wsPath(rel), []byte(content))
	return entry
}

// remove records a delete of rel and mirrors it in the workspace.
func remove(t *testing.T, h *testutil.Harness, rel string) *rewind.Entry {
	t.Helper()

	before, ok := h.Workspace.Content(wsPath(rel))
	if !ok {
		t.Fatalf("remove(%s): file not in workspace", rel)
	}
	entry, err := h.Recorder.Record(context.Background(), rewind.Change{
		Project: projectRoot,
		Path:    rel,
		Type:    rewind.EntryDelete,
		Before:  before,
	})
	if err != nil {
		t.Fatalf("Record(delete %s) error = %v", rel, err)
	}
	if err := h.Workspace.Remove(wsPath(rel)); err != nil {
		t.Fatalf("Remove(%s) error = %v", rel, err)
	}
	return entry
}

// rename records a content-preserving rename and mirrors it in the workspace.
func rename(t *testing.T, h *testutil.Harness, from, to string) *rewind.Entry {
	t.Helper()

	content, ok := h.Workspace.Content(wsPath(from))
	if !ok {
		t.Fatalf("rename(%s): file not in workspace", from)
	}
	entry, err := h.Recorder.Record(context.Background(), rewind.Change{
		Project: projectRoot,
		Path:    to,
		OldPath: from,
		Type:    rewind.EntryRename,
	})
	if err != nil {
		t.Fatalf("Record(rename %s -> %s) error = %v", from, to, err)
	}
	h.Workspace.Remove(wsPath(from))
	h.Workspace.AddFile(wsPath(to), content)
	return entry
}

func timeline(t *testing.T, h *testutil.Harness, r rewind.Range) []*rewind.Entry {
	t.Helper()

	var entries []*rewind.Entry
	for e, err := range h.Ledger.Timeline(context.Background(), projectRoot, r) {
		if err != nil {
			t.Fatalf("Timeline() error = %v", err)
		}
		entries = append(entries, e)
	}
	return entries
}

func seqs(entries []*rewind.Entry) []int64 {
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.Seq
	}
	return out
}

func fileContent(t *testing.T, h *testutil.Harness, rel string) (string, bool) {
	t.Helper()
	data, ok := h.Workspace.Content(wsPath(rel))
	return string(data), ok
}
