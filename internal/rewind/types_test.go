package rewind_test

import (
	"slices"
	"testing"

	"rewind-go/internal/rewind"
)

func TestParseStorageMode(t *testing.T) {
	tests := []struct {
		in      string
		want    rewind.StorageMode
		wantErr bool
	}{
		{in: "", want: rewind.ModeAuto},
		{in: "auto", want: rewind.ModeAuto},
		{in: "git", want: rewind.ModeGit},
		{in: "snapshot", want: rewind.ModeSnapshot},
		{in: "btrfs", want: rewind.ModeSnapshot},
		{in: "file", want: rewind.ModeFile},
		{in: "tape", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := rewind.ParseStorageMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseStorageMode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseStorageMode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseEntryType(t *testing.T) {
	for _, s := range []string{"edit", "create", "delete", "rename", "checkpoint", "restore"} {
		if _, err := rewind.ParseEntryType(s); err != nil {
			t.Errorf("ParseEntryType(%q) error = %v", s, err)
		}
	}
	if _, err := rewind.ParseEntryType("touch"); err == nil {
		t.Error("ParseEntryType(touch) expected error")
	}
}

func TestEntry_Paths(t *testing.T) {
	tests := []struct {
		name  string
		entry rewind.Entry
		want  []string
	}{
		{name: "checkpoint", entry: rewind.Entry{Type: rewind.EntryCheckpoint}, want: nil},
		{name: "edit", entry: rewind.Entry{Type: rewind.EntryEdit, Path: "a.txt"}, want: []string{"a.txt"}},
		{
			name:  "rename",
			entry: rewind.Entry{Type: rewind.EntryRename, Path: "b.txt", Metadata: rewind.Metadata{rewind.MetaOldPath: "a.txt"}},
			want:  []string{"a.txt", "b.txt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.Paths(); !slices.Equal(got, tt.want) {
				t.Errorf("Paths() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHashContent(t *testing.T) {
	const emptySHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := rewind.HashContent(nil); got != emptySHA256 {
		t.Errorf("HashContent(nil) = %s, want %s", got, emptySHA256)
	}
	if rewind.HashContent([]byte("a")) == rewind.HashContent([]byte("b")) {
		t.Error("different content produced the same hash")
	}
}
