package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rewind-go/internal/config"
	"rewind-go/internal/rewind"
)

func newTestApp(t *testing.T, configure func(*config.Config)) (*RewindApp, string) {
	t.Helper()

	cfg := config.NewConfig(t.TempDir())
	cfg.Database.Type = "memory"
	cfg.Storage.Mode = "file"
	cfg.LogLevel = "error"
	if configure != nil {
		configure(cfg)
	}

	a, err := NewRewindApp(cfg)
	if err != nil {
		t.Fatalf("NewRewindApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })

	return a, t.TempDir()
}

func writeFile(t *testing.T, project, rel, content string) {
	t.Helper()
	path := filepath.Join(project, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", rel, err)
	}
}

func readFile(t *testing.T, project, rel string) (string, bool) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(project, filepath.FromSlash(rel)))
	if errors.Is(err, os.ErrNotExist) {
		return "", false
	}
	if err != nil {
		t.Fatalf("reading %s: %v", rel, err)
	}
	return string(data), true
}

func record(t *testing.T, a *RewindApp, opts RecordOptions) *rewind.Entry {
	t.Helper()
	entry, err := a.Record(context.Background(), opts)
	if err != nil {
		t.Fatalf("Record(%+v) error = %v", opts, err)
	}
	return entry
}

func TestNewRewindApp_InvalidConfig(t *testing.T) {
	tests := []struct {
		name      string
		configure func(*config.Config)
	}{
		{name: "storage mode", configure: func(c *config.Config) { c.Storage.Mode = "tape" }},
		{name: "log level", configure: func(c *config.Config) { c.LogLevel = "loud" }},
		{name: "encryption", configure: func(c *config.Config) { c.Encryption.Type = "rot13" }},
		{name: "storage root", configure: func(c *config.Config) { c.Storage.Root = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewConfig(t.TempDir())
			cfg.Database.Type = "memory"
			tt.configure(cfg)

			if _, err := NewRewindApp(cfg); err == nil {
				t.Fatal("NewRewindApp() expected error")
			}
		})
	}
}

func TestRewindApp_RecordInfersType(t *testing.T) {
	a, project := newTestApp(t, nil)

	writeFile(t, project, "main.go", "package main\n")
	entry := record(t, a, RecordOptions{Project: project, Path: "main.go"})
	if entry == nil || entry.Type != rewind.EntryCreate {
		t.Fatalf("first record = %+v, want a create entry", entry)
	}

	if entry := record(t, a, RecordOptions{Project: project, Path: "main.go"}); entry != nil {
		t.Errorf("record of unchanged file = %+v, want nil", entry)
	}

	writeFile(t, project, "main.go", "package main\n\nfunc main() {}\n")
	entry = record(t, a, RecordOptions{Project: project, Path: filepath.Join(project, "main.go"), Message: "add main"})
	if entry == nil || entry.Type != rewind.EntryEdit {
		t.Fatalf("record after edit = %+v, want an edit entry", entry)
	}
	if entry.Description != "add main" {
		t.Errorf("Description = %q, want %q", entry.Description, "add main")
	}
	if entry.BeforeHash != rewind.HashContent([]byte("package main\n")) {
		t.Errorf("BeforeHash = %q, want the hash of the first version", entry.BeforeHash)
	}

	if err := os.Remove(filepath.Join(project, "main.go")); err != nil {
		t.Fatal(err)
	}
	entry = record(t, a, RecordOptions{Project: project, Path: "main.go"})
	if entry == nil || entry.Type != rewind.EntryDelete {
		t.Fatalf("record after remove = %+v, want a delete entry", entry)
	}
	if entry.Seq != 3 {
		t.Errorf("Seq = %d, want 3", entry.Seq)
	}
}

func TestRewindApp_RecordRename(t *testing.T) {
	a, project := newTestApp(t, nil)
	ctx := context.Background()

	writeFile(t, project, "old.txt", "content")
	record(t, a, RecordOptions{Project: project, Path: "old.txt"})

	writeFile(t, project, "docs/new.txt", "content")
	if err := os.Remove(filepath.Join(project, "old.txt")); err != nil {
		t.Fatal(err)
	}

	entry := record(t, a, RecordOptions{Project: project, Path: "docs/new.txt", From: "old.txt"})
	if entry.Type != rewind.EntryRename {
		t.Fatalf("Type = %s, want rename", entry.Type)
	}
	if entry.OldPath() != "old.txt" || entry.Path != "docs/new.txt" {
		t.Errorf("rename = %s -> %s, want old.txt -> docs/new.txt", entry.OldPath(), entry.Path)
	}

	if _, err := a.Last(ctx, project); err != nil {
		t.Fatalf("Last() error = %v", err)
	}
	if got, ok := readFile(t, project, "old.txt"); !ok || got != "content" {
		t.Errorf("old.txt = %q (exists %v), want restored content", got, ok)
	}
	if _, ok := readFile(t, project, "docs/new.txt"); ok {
		t.Error("docs/new.txt still exists after undoing the rename")
	}

	if _, err := a.Record(ctx, RecordOptions{Project: project, Path: "b.txt", Type: "rename"}); err == nil {
		t.Error("rename without a source expected error")
	}
}

func TestRewindApp_RecordSkips(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		a, project := newTestApp(t, func(c *config.Config) { c.Enabled = false })
		writeFile(t, project, "a.txt", "a")

		if entry := record(t, a, RecordOptions{Project: project, Path: "a.txt"}); entry != nil {
			t.Errorf("Record() = %+v, want nil while disabled", entry)
		}
		if _, err := a.Timeline(context.Background(), project, rewind.Range{}); !errors.Is(err, rewind.ErrNotFound) {
			t.Errorf("Timeline() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("ignored", func(t *testing.T) {
		a, project := newTestApp(t, nil)
		writeFile(t, project, ".rewindignore", "*.log\nbuild\n")
		for _, rel := range []string{"node_modules/pkg/index.js", "debug.log", "build/out.bin", ".rewindignore"} {
			writeFile(t, project, rel, "x")
			if entry := record(t, a, RecordOptions{Project: project, Path: rel}); entry != nil {
				t.Errorf("Record(%s) = %+v, want nil for an ignored path", rel, entry)
			}
		}
	})
}

func TestRewindApp_RecordErrors(t *testing.T) {
	a, project := newTestApp(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		opts RecordOptions
		want error
	}{
		{name: "missing file", opts: RecordOptions{Project: project, Path: "ghost.txt"}, want: rewind.ErrNotFound},
		{name: "outside project", opts: RecordOptions{Project: project, Path: "../escape.txt"}},
		{name: "project root", opts: RecordOptions{Project: project, Path: project}},
		{name: "empty path", opts: RecordOptions{Project: project}},
		{name: "unknown type", opts: RecordOptions{Project: project, Path: "a.txt", Type: "copy"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Record(ctx, tt.opts)
			if err == nil {
				t.Fatal("Record() expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Record() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRewindApp_CheckpointAndRestore(t *testing.T) {
	a, project := newTestApp(t, nil)
	ctx := context.Background()

	writeFile(t, project, "notes.md", "one")
	record(t, a, RecordOptions{Project: project, Path: "notes.md"})
	writeFile(t, project, "notes.md", "two")
	record(t, a, RecordOptions{Project: project, Path: "notes.md"})

	cp, err := a.Checkpoint(ctx, project, "draft", 0)
	if err != nil {
		t.Fatalf("Checkpoint() error = %v", err)
	}
	if cp.Seq != 3 {
		t.Errorf("checkpoint seq = %d, want 3", cp.Seq)
	}
	if _, err := a.Checkpoint(ctx, project, "draft", 0); ExitCode(err) != ExitDuplicateName {
		t.Errorf("duplicate Checkpoint() error = %v, want exit code %d", err, ExitDuplicateName)
	}

	writeFile(t, project, "notes.md", strings.Repeat("three ", 2000))
	record(t, a, RecordOptions{Project: project, Path: "notes.md"})

	result, err := a.Restore(ctx, project, "draft")
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if !result.Changed() || result.Target != 3 {
		t.Errorf("Restore() = %+v, want one change to target 3", result)
	}
	if got, _ := readFile(t, project, "notes.md"); got != "two" {
		t.Errorf("notes.md = %q, want %q", got, "two")
	}

	if _, err := a.Last(ctx, project); err != nil {
		t.Fatalf("Last() error = %v", err)
	}
	if got, _ := readFile(t, project, "notes.md"); got != strings.Repeat("three ", 2000) {
		t.Errorf("notes.md after undoing the restore has %d bytes, want the third version", len(got))
	}

	entries, err := a.Timeline(ctx, project, rewind.Range{Limit: 3})
	if err != nil {
		t.Fatalf("Timeline() error = %v", err)
	}
	var got []int64
	for _, e := range entries {
		got = append(got, e.Seq)
	}
	if len(got) != 3 || got[0] != 6 || got[1] != 5 || got[2] != 4 {
		t.Errorf("Timeline() seqs = %v, want [6 5 4]", got)
	}

	checkpoints, err := a.Checkpoints(ctx, project)
	if err != nil {
		t.Fatalf("Checkpoints() error = %v", err)
	}
	if len(checkpoints) != 1 || checkpoints[0].Name != "draft" {
		t.Errorf("Checkpoints() = %+v, want [draft]", checkpoints)
	}

	if _, err := a.Restore(ctx, project, "nope"); ExitCode(err) != ExitNotFound {
		t.Errorf("Restore(nope) error = %v, want exit code %d", err, ExitNotFound)
	}
}

func TestRewindApp_Prune(t *testing.T) {
	a, project := newTestApp(t, nil)
	ctx := context.Background()

	writeFile(t, project, "a.txt", "a")
	record(t, a, RecordOptions{Project: project, Path: "a.txt"})

	report, err := a.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if report.EntriesRemoved != 0 {
		t.Errorf("EntriesRemoved = %d, want 0 for a fresh entry", report.EntriesRemoved)
	}
}

func TestProjectRelative(t *testing.T) {
	root := filepath.FromSlash("/work/app")

	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "main.go", want: "main.go"},
		{raw: "src/../lib/a.go", want: "lib/a.go"},
		{raw: filepath.FromSlash("/work/app/cmd/x.go"), want: "cmd/x.go"},
		{raw: filepath.FromSlash("/work/other/x.go"), wantErr: true},
		{raw: "..", wantErr: true},
		{raw: ".", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := projectRelative(root, tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("projectRelative(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("projectRelative(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
