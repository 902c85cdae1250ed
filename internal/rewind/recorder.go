package rewind

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
)

// Change is one file change event. Before and After hold the file content on
// either side of the change; nil means the file did not exist on that side,
// while an empty non-nil slice is an empty file.
type Change struct {
	// Project is the project root.
	Project string

	// Path is the project-relative, slash-separated file path.
	Path string

	Type EntryType

	// OldPath is the source path of a rename.
	OldPath string

	Before []byte
	After  []byte

	Description string
	Metadata    Metadata
}

// Recorder turns change events into stored backups plus one ledger entry.
type Recorder struct {
	ledger *Ledger
	store  *Store
	logger Logger
}

// NewRecorder creates a Recorder.
func NewRecorder(ledger *Ledger, store *Store, logger Logger) *Recorder {
	return &Recorder{
		ledger: ledger,
		store:  store,
		logger: logger,
	}
}

// Record stores the content of c and appends its entry. Content that does not
// apply to the change type is ignored: a create has no before side, a delete
// has no after side.
func (r *Recorder) Record(ctx context.Context, c Change) (*Entry, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	project, unlock, err := r.ledger.lockProject(ctx, c.Project, true)
	if err != nil {
		return nil, err
	}
	defer unlock()

	release := r.store.pinShared()
	defer release()

	draft := Draft{
		Type:        c.Type,
		Path:        c.Path,
		Description: c.Description,
		Metadata:    Metadata{},
	}
	for k, v := range c.Metadata {
		draft.Metadata[k] = v
	}
	if c.Type == EntryRename {
		draft.Metadata[MetaOldPath] = c.OldPath
	}
	if draft.Description == "" {
		draft.Description = describe(c)
	}

	// A rename that keeps the content resolves through the old path.
	if c.Type == EntryRename && c.Before != nil && c.After != nil && bytes.Equal(c.Before, c.After) {
		c.Before, c.After = nil, nil
	}

	if c.Before != nil && c.Type != EntryCreate {
		backup, err := r.store.put(ctx, project, c.Before)
		if err != nil {
			return nil, fmt.Errorf("storing content before %s: %w", c.Type, err)
		}
		draft.BeforeHash = backup.Hash
		draft.BackupRef = backup.Backend
	}
	if c.After != nil && c.Type != EntryDelete {
		backup, err := r.store.put(ctx, project, c.After)
		if err != nil {
			return nil, fmt.Errorf("storing content after %s: %w", c.Type, err)
		}
		draft.AfterHash = backup.Hash
		draft.BackupRef = backup.Backend
	}

	entries, err := r.ledger.appendLocked(ctx, project, []Draft{draft})
	if err != nil {
		return nil, err
	}
	entry := entries[0]

	r.logger.Info("recorded change", "project", project.Path, "seq", entry.Seq, "type", entry.Type, "path", entry.Path)
	return entry, nil
}

func (c Change) validate() error {
	if c.Project == "" {
		return fmt.Errorf("change requires a project")
	}
	if err := validRelPath(c.Path); err != nil {
		return err
	}

	switch c.Type {
	case EntryEdit:
		if c.After == nil {
			return fmt.Errorf("edit of %s requires the new content", c.Path)
		}
	case EntryCreate:
		if c.After == nil {
			return fmt.Errorf("create of %s requires the new content", c.Path)
		}
	case EntryDelete:
	case EntryRename:
		if err := validRelPath(c.OldPath); err != nil {
			return fmt.Errorf("rename source: %w", err)
		}
		if c.OldPath == c.Path {
			return fmt.Errorf("rename of %s to itself", c.Path)
		}
	default:
		return fmt.Errorf("cannot record a %q change", c.Type)
	}
	return nil
}

func validRelPath(p string) error {
	if p == "" {
		return fmt.Errorf("change requires a path")
	}
	if strings.HasPrefix(p, "/") || p != path.Clean(p) || p == ".." || strings.HasPrefix(p, "../") {
		return fmt.Errorf("path %q must be relative to the project root", p)
	}
	return nil
}

func describe(c Change) string {
	if c.Type == EntryRename {
		return fmt.Sprintf("rename %s -> %s", c.OldPath, c.Path)
	}
	return fmt.Sprintf("%s %s", c.Type, c.Path)
}
