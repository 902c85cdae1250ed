package rewind

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strconv"

	"rewind-go/internal/database/sqlc"
)

// Restorer rewinds project files to an earlier ledger position.
type Restorer struct {
	ledger    *Ledger
	store     *Store
	workspace Workspace
	logger    Logger
}

// NewRestorer creates a Restorer.
func NewRestorer(ledger *Ledger, store *Store, workspace Workspace, logger Logger) *Restorer {
	return &Restorer{
		ledger:    ledger,
		store:     store,
		workspace: workspace,
		logger:    logger,
	}
}

// RestoreResult describes what a restore changed.
type RestoreResult struct {
	// Target is the sequence id the files were restored to.
	Target int64

	// Entries are the restore entries appended, one per mutated path.
	Entries []*Entry

	Written []string
	Removed []string
}

// Changed reports whether the restore touched any file.
func (r *RestoreResult) Changed() bool {
	return len(r.Entries) > 0
}

// RestoreTo brings every file changed after ref back to its state at ref. ref is
// a sequence id or a checkpoint name. Files not touched since ref are left alone.
func (r *Restorer) RestoreTo(ctx context.Context, projectPath, ref string) (*RestoreResult, error) {
	project, unlock, err := r.ledger.lockProject(ctx, projectPath, false)
	if err != nil {
		return nil, err
	}
	defer unlock()

	release := r.store.pinShared()
	defer release()

	target, err := r.ledger.ResolveTarget(ctx, project, ref)
	if err != nil {
		return nil, err
	}

	later, err := r.ledger.database.FindEntriesAfter(ctx, project.ID, target)
	if err != nil {
		return nil, fmt.Errorf("listing entries after #%d: %w", target, err)
	}
	var paths []string
	for _, row := range later {
		paths = append(paths, newEntry(row).Paths()...)
	}

	r.logger.Info("restoring", "project", project.Path, "ref", ref, "target", target, "paths", len(paths))
	return r.restorePaths(ctx, project, target, paths, "restore to "+ref)
}

// UndoLast reverts the most recent change: every path it touched goes back to
// its state just before it. Checkpoint entries are skipped.
func (r *Restorer) UndoLast(ctx context.Context, projectPath string) (*RestoreResult, error) {
	project, unlock, err := r.ledger.lockProject(ctx, projectPath, false)
	if err != nil {
		return nil, err
	}
	defer unlock()

	release := r.store.pinShared()
	defer release()

	row, err := r.ledger.database.FindLatestChange(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("finding last change: %w", err)
	}
	if row == nil {
		return nil, fmt.Errorf("project %s has no changes: %w", project.Path, ErrNotFound)
	}
	last := newEntry(row)

	r.logger.Info("undoing last change", "project", project.Path, "seq", last.Seq, "type", last.Type, "path", last.Path)
	return r.restorePaths(ctx, project, last.Seq-1, last.Paths(), fmt.Sprintf("undo #%d", last.Seq))
}

type mutation struct {
	path string
	from string // head hash, "" when absent
	to   string // target hash, "" when absent
}

// restorePaths moves each path from its head state to its state at target.
// Every needed blob is fetched and verified before the first file is touched.
// The caller holds the project lock and the store pin.
func (r *Restorer) restorePaths(ctx context.Context, project *sqlc.Project, target int64, paths []string, description string) (*RestoreResult, error) {
	slices.Sort(paths)
	paths = slices.Compact(paths)

	var mutations []mutation
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		head, err := r.ledger.StateAt(ctx, project, path, project.HeadSeq)
		if err != nil {
			return nil, err
		}
		want, err := r.ledger.StateAt(ctx, project, path, target)
		if err != nil {
			return nil, err
		}
		if head != want {
			mutations = append(mutations, mutation{path: path, from: head, to: want})
		}
	}

	result := &RestoreResult{Target: target}
	if len(mutations) == 0 {
		r.logger.Info("nothing to restore", "project", project.Path, "target", target)
		return result, nil
	}

	contents := make(map[string][]byte, len(mutations))
	for _, m := range mutations {
		if m.to == "" {
			continue
		}
		if _, ok := contents[m.to]; ok {
			continue
		}
		data, err := r.store.Fetch(ctx, m.to)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", m.path, err)
		}
		contents[m.to] = data
	}

	// Past this point the workspace is being changed, so cancellation is no
	// longer honoured and a failure always rolls the written paths back.
	ctx = context.WithoutCancel(ctx)

	applied := make([]appliedMutation, 0, len(mutations))
	for _, m := range mutations {
		step := appliedMutation{mutation: m, abs: filepath.Join(project.Path, filepath.FromSlash(m.path))}
		prior, err := r.workspace.ReadFile(step.abs)
		switch {
		case err == nil:
			step.prior, step.existed = prior, true
		case !errors.Is(err, fs.ErrNotExist):
			return nil, r.abort(ctx, project, target, description, applied, fmt.Errorf("reading %s: %w", m.path, err))
		}

		if m.to == "" {
			if err := r.workspace.Remove(step.abs); err != nil {
				return nil, r.abort(ctx, project, target, description, applied, fmt.Errorf("removing %s: %w", m.path, err))
			}
			result.Removed = append(result.Removed, m.path)
		} else {
			if err := r.workspace.WriteFile(step.abs, contents[m.to]); err != nil {
				return nil, r.abort(ctx, project, target, description, applied, fmt.Errorf("writing %s: %w", m.path, err))
			}
			result.Written = append(result.Written, m.path)
		}
		r.logger.Debug("restored path", "project", project.Path, "path", m.path, "from", m.from, "to", m.to)
		applied = append(applied, step)
	}

	drafts := make([]Draft, 0, len(applied))
	for _, step := range applied {
		drafts = append(drafts, step.draft(target, description))
	}

	entries, err := r.ledger.appendLocked(ctx, project, drafts)
	if err != nil {
		return nil, r.abort(ctx, project, target, description, applied, err)
	}
	result.Entries = entries

	r.logger.Info("restore complete", "project", project.Path, "target", target, "written", len(result.Written), "removed", len(result.Removed))
	return result, nil
}

// appliedMutation is a mutation already written to the workspace, with the
// file as it was beforehand.
type appliedMutation struct {
	mutation
	abs     string
	prior   []byte
	existed bool
}

func (a appliedMutation) draft(target int64, description string) Draft {
	return Draft{
		Type:        EntryRestore,
		Path:        a.path,
		Description: description,
		BeforeHash:  a.from,
		AfterHash:   a.to,
		Metadata:    Metadata{MetaTarget: strconv.FormatInt(target, 10)},
	}
}

// abort puts the applied paths back as they were, newest first, and returns
// cause. Paths that cannot be put back are recorded as restored so the ledger
// still matches the workspace.
func (r *Restorer) abort(ctx context.Context, project *sqlc.Project, target int64, description string, applied []appliedMutation, cause error) error {
	for i := len(applied) - 1; i >= 0; i-- {
		step := applied[i]
		var err error
		if step.existed {
			err = r.workspace.WriteFile(step.abs, step.prior)
		} else {
			err = r.workspace.Remove(step.abs)
		}
		if err == nil {
			continue
		}

		r.logger.Error("rolling back restore failed", "project", project.Path, "path", step.path, "error", err)
		drafts := make([]Draft, 0, i+1)
		for _, left := range applied[:i+1] {
			drafts = append(drafts, left.draft(target, description))
		}
		if _, err := r.ledger.appendLocked(ctx, project, drafts); err != nil {
			r.logger.Error("failed to record partial restore", "project", project.Path, "paths", len(drafts), "error", err)
		}
		return cause
	}

	if len(applied) > 0 {
		r.logger.Warn("restore rolled back", "project", project.Path, "target", target, "paths", len(applied), "error", cause)
	}
	return cause
}
