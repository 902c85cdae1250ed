package rewind_test

import (
	"errors"
	"testing"

	"rewind-go/internal/rewind"
)

func TestSelectBackend(t *testing.T) {
	all := rewind.Capabilities{rewind.BackendSnapshot: true, rewind.BackendGit: true, rewind.BackendFile: true}
	noSnapshot := rewind.Capabilities{rewind.BackendGit: true, rewind.BackendFile: true}
	fileOnly := rewind.Capabilities{rewind.BackendFile: true}

	tests := []struct {
		name      string
		mode      rewind.StorageMode
		size      int64
		available rewind.Capabilities
		want      rewind.BackendKind
		wantErr   error
	}{
		{name: "small payload is inline", mode: rewind.ModeAuto, size: 10, available: all, want: rewind.BackendInline},
		{name: "small payload ignores explicit mode", mode: rewind.ModeGit, size: 10, available: nil, want: rewind.BackendInline},
		{name: "auto prefers snapshot", mode: rewind.ModeAuto, size: 4096, available: all, want: rewind.BackendSnapshot},
		{name: "auto falls back to git", mode: rewind.ModeAuto, size: 4096, available: noSnapshot, want: rewind.BackendGit},
		{name: "auto falls back to file", mode: rewind.ModeAuto, size: 4096, available: fileOnly, want: rewind.BackendFile},
		{name: "empty mode means auto", mode: "", size: 4096, available: fileOnly, want: rewind.BackendFile},
		{name: "auto with nothing available", mode: rewind.ModeAuto, size: 4096, available: rewind.Capabilities{}, wantErr: rewind.ErrBackendUnavailable},
		{name: "explicit mode available", mode: rewind.ModeGit, size: 4096, available: all, want: rewind.BackendGit},
		{name: "explicit mode never falls back", mode: rewind.ModeSnapshot, size: 4096, available: noSnapshot, wantErr: rewind.ErrBackendUnavailable},
		{name: "floor is exclusive", mode: rewind.ModeAuto, size: 512, available: fileOnly, want: rewind.BackendFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rewind.SelectBackend(tt.mode, tt.size, 512, tt.available)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("SelectBackend() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("SelectBackend() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("SelectBackend() = %s, want %s", got, tt.want)
			}
		})
	}
}
