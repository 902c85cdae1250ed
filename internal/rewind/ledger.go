package rewind

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"path/filepath"
	"strconv"

	"rewind-go/internal/database/sqlc"
)

// timelinePageSize is how many entries a timeline walk loads per query.
const timelinePageSize = 100

// Ledger is the append-only, per-project ordered record of changes.
type Ledger struct {
	database    Database
	locks       *ProjectLocks
	logger      Logger
	clock       Clock
	idgen       IDGenerator
	storageMode StorageMode
}

// NewLedger creates a Ledger. New projects are created with storageMode.
func NewLedger(database Database, locks *ProjectLocks, logger Logger, clock Clock, idgen IDGenerator, storageMode StorageMode) *Ledger {
	return &Ledger{
		database:    database,
		locks:       locks,
		logger:      logger,
		clock:       clock,
		idgen:       idgen,
		storageMode: storageMode,
	}
}

func projectKey(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving project path: %w", err)
	}
	return filepath.Clean(abs), nil
}

// FindProject returns the project rooted at path, or ErrNotFound.
func (l *Ledger) FindProject(ctx context.Context, path string) (*sqlc.Project, error) {
	key, err := projectKey(path)
	if err != nil {
		return nil, err
	}
	project, err := l.database.FindProjectByPath(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("looking up project: %w", err)
	}
	if project == nil {
		return nil, fmt.Errorf("project %s: %w", key, ErrNotFound)
	}
	return project, nil
}

// lockProject takes the project lock and loads the project row. With create
// set a missing project is created; otherwise it is ErrNotFound.
func (l *Ledger) lockProject(ctx context.Context, path string, create bool) (*sqlc.Project, func(), error) {
	key, err := projectKey(path)
	if err != nil {
		return nil, nil, err
	}

	unlock, err := l.locks.Lock(ctx, key)
	if err != nil {
		return nil, nil, err
	}

	project, err := l.database.FindProjectByPath(ctx, key)
	if err != nil {
		unlock()
		return nil, nil, fmt.Errorf("looking up project: %w", err)
	}
	if project != nil {
		return project, unlock, nil
	}
	if !create {
		unlock()
		return nil, nil, fmt.Errorf("project %s: %w", key, ErrNotFound)
	}

	now := l.clock.Now()
	project, err = l.database.CreateProject(ctx, &sqlc.Project{
		ID:          l.idgen.New(),
		Path:        key,
		StorageMode: string(l.storageMode),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		unlock()
		return nil, nil, fmt.Errorf("creating project: %w", err)
	}
	l.logger.Info("created project", "project", key, "id", project.ID)
	return project, unlock, nil
}

// Append records one change for the project rooted at projectPath.
func (l *Ledger) Append(ctx context.Context, projectPath string, draft Draft) (*Entry, error) {
	project, unlock, err := l.lockProject(ctx, projectPath, true)
	if err != nil {
		return nil, err
	}
	defer unlock()

	entries, err := l.appendLocked(ctx, project, []Draft{draft})
	if err != nil {
		return nil, err
	}
	return entries[0], nil
}

// appendLocked appends drafts in one transaction. The caller holds the project lock.
func (l *Ledger) appendLocked(ctx context.Context, project *sqlc.Project, drafts []Draft) ([]*Entry, error) {
	now := l.clock.Now()
	rows := make([]*sqlc.Entry, 0, len(drafts))
	for _, d := range drafts {
		if err := d.validate(); err != nil {
			return nil, err
		}
		row, err := d.row(project.ID, now)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	stored, err := l.database.AppendEntries(ctx, project.ID, rows)
	if err != nil {
		return nil, fmt.Errorf("appending entries: %w", err)
	}
	if n := len(stored); n > 0 {
		project.HeadSeq = stored[n-1].Seq
	}

	entries := newEntries(stored)
	for _, e := range entries {
		l.logger.Debug("appended entry", "project", project.Path, "seq", e.Seq, "type", e.Type, "path", e.Path)
	}
	return entries, nil
}

// Checkpoint appends a checkpoint entry and binds name to the entry with
// sequence id at, or to the new checkpoint entry when at is 0. Names are
// unique across the whole store.
func (l *Ledger) Checkpoint(ctx context.Context, projectPath, name string, at int64) (*Checkpoint, error) {
	if name == "" {
		return nil, fmt.Errorf("checkpoint name is required")
	}
	if _, err := strconv.ParseInt(name, 10, 64); err == nil {
		return nil, fmt.Errorf("checkpoint name %q would be read as a sequence id", name)
	}
	if at < 0 {
		return nil, fmt.Errorf("invalid sequence id %d", at)
	}

	project, unlock, err := l.lockProject(ctx, projectPath, true)
	if err != nil {
		return nil, err
	}
	defer unlock()

	draft := Draft{
		Type:        EntryCheckpoint,
		Description: "checkpoint " + name,
		Metadata:    Metadata{MetaCheckpoint: name},
	}
	if at > 0 {
		draft.Metadata[MetaTarget] = strconv.FormatInt(at, 10)
	}
	row, err := draft.row(project.ID, l.clock.Now())
	if err != nil {
		return nil, err
	}

	cp, entry, err := l.database.AppendCheckpoint(ctx, project.ID, name, row, at)
	if err != nil {
		return nil, fmt.Errorf("creating checkpoint %q: %w", name, err)
	}
	project.HeadSeq = entry.Seq

	seq := entry.Seq
	if at > 0 {
		seq = at
	}
	l.logger.Info("created checkpoint", "project", project.Path, "name", name, "seq", seq)
	return &Checkpoint{
		Name:      cp.Name,
		ProjectID: cp.ProjectID,
		EntryID:   cp.EntryID,
		Seq:       seq,
		CreatedAt: cp.CreatedAt,
	}, nil
}

// Checkpoints lists the project's checkpoints, oldest first.
func (l *Ledger) Checkpoints(ctx context.Context, projectPath string) ([]*Checkpoint, error) {
	project, err := l.FindProject(ctx, projectPath)
	if err != nil {
		return nil, err
	}

	rows, err := l.database.FindCheckpointsForProject(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("listing checkpoints: %w", err)
	}

	checkpoints := make([]*Checkpoint, 0, len(rows))
	for _, cp := range rows {
		entry, err := l.database.FindEntryByID(ctx, cp.EntryID)
		if err != nil {
			return nil, fmt.Errorf("loading checkpoint entry: %w", err)
		}
		if entry == nil {
			return nil, fmt.Errorf("checkpoint %q entry %d: %w", cp.Name, cp.EntryID, ErrNotFound)
		}
		checkpoints = append(checkpoints, &Checkpoint{
			Name:      cp.Name,
			ProjectID: cp.ProjectID,
			EntryID:   cp.EntryID,
			Seq:       entry.Seq,
			CreatedAt: cp.CreatedAt,
		})
	}
	return checkpoints, nil
}

// Timeline walks the project's entries newest first, loading them lazily one
// page at a time. Each range over the returned sequence starts a fresh walk
// bounded by the head at that moment.
func (l *Ledger) Timeline(ctx context.Context, projectPath string, r Range) iter.Seq2[*Entry, error] {
	return func(yield func(*Entry, error) bool) {
		project, err := l.FindProject(ctx, projectPath)
		if err != nil {
			yield(nil, err)
			return
		}

		cursor := project.HeadSeq + 1
		if r.To > 0 && r.To < project.HeadSeq {
			cursor = r.To + 1
		}

		emitted := 0
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			page, err := l.database.ListEntries(ctx, project.ID, cursor, r.From, timelinePageSize)
			if err != nil {
				yield(nil, fmt.Errorf("listing entries: %w", err))
				return
			}
			if len(page) == 0 {
				return
			}

			for _, row := range page {
				if !yield(newEntry(row), nil) {
					return
				}
				emitted++
				if r.Limit > 0 && emitted >= r.Limit {
					return
				}
			}
			cursor = page[len(page)-1].Seq
		}
	}
}

// Head returns the newest surviving entry of the project.
func (l *Ledger) Head(ctx context.Context, projectPath string) (*Entry, error) {
	project, err := l.FindProject(ctx, projectPath)
	if err != nil {
		return nil, err
	}

	rows, err := l.database.ListEntries(ctx, project.ID, project.HeadSeq+1, 0, 1)
	if err != nil {
		return nil, fmt.Errorf("loading head: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("project %s has no entries: %w", project.Path, ErrNotFound)
	}
	return newEntry(rows[0]), nil
}

// ResolveTarget turns a restore reference into a sequence id. A reference is
// either a sequence id or a checkpoint name of this project.
func (l *Ledger) ResolveTarget(ctx context.Context, project *sqlc.Project, ref string) (int64, error) {
	if seq, err := strconv.ParseInt(ref, 10, 64); err == nil {
		entry, err := l.database.FindEntryBySeq(ctx, project.ID, seq)
		if err != nil {
			return 0, fmt.Errorf("looking up entry: %w", err)
		}
		if entry == nil {
			return 0, fmt.Errorf("entry #%d: %w", seq, ErrNotFound)
		}
		return seq, nil
	}

	cp, err := l.database.FindCheckpointByName(ctx, ref)
	if err != nil {
		return 0, fmt.Errorf("looking up checkpoint: %w", err)
	}
	if cp == nil || cp.ProjectID != project.ID {
		return 0, fmt.Errorf("checkpoint %q: %w", ref, ErrNotFound)
	}

	entry, err := l.database.FindEntryByID(ctx, cp.EntryID)
	if err != nil {
		return 0, fmt.Errorf("loading checkpoint entry: %w", err)
	}
	if entry == nil {
		return 0, fmt.Errorf("checkpoint %q entry: %w", ref, ErrNotFound)
	}
	return entry.Seq, nil
}

// CurrentHash returns the content hash path holds at the head of the project
// rooted at projectPath, or "" when the file is absent or the project unknown.
func (l *Ledger) CurrentHash(ctx context.Context, projectPath, path string) (string, error) {
	project, err := l.FindProject(ctx, projectPath)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return l.StateAt(ctx, project, path, project.HeadSeq)
}

// maxRenameHops bounds how many renames stateAt follows backwards.
const maxRenameHops = 1024

// StateAt returns the content hash path held after the entry with sequence id
// seq, or "" when the file did not exist.
func (l *Ledger) StateAt(ctx context.Context, project *sqlc.Project, path string, seq int64) (string, error) {
	for hop := 0; hop < maxRenameHops; hop++ {
		row, err := l.database.FindLatestEntryForPath(ctx, project.ID, path, seq)
		if err != nil {
			return "", fmt.Errorf("looking up history of %s: %w", path, err)
		}
		if row == nil {
			return l.stateBefore(ctx, project, path, seq)
		}

		e := newEntry(row)
		switch e.Type {
		case EntryDelete:
			return "", nil
		case EntryRename:
			if e.Path != path {
				// renamed away
				return "", nil
			}
			if e.AfterHash != "" {
				return e.AfterHash, nil
			}
			path, seq = e.OldPath(), e.Seq-1
		default:
			return e.AfterHash, nil
		}
	}
	return "", fmt.Errorf("rename chain of %s too long", path)
}

// stateBefore handles a path with no surviving entry at or before seq, as after
// retention removed its early history. The earliest later entry's before-hash
// is what the file held.
func (l *Ledger) stateBefore(ctx context.Context, project *sqlc.Project, path string, seq int64) (string, error) {
	row, err := l.database.FindEarliestEntryForPath(ctx, project.ID, path, seq)
	if err != nil {
		return "", fmt.Errorf("looking up history of %s: %w", path, err)
	}
	if row == nil {
		return "", nil
	}

	e := newEntry(row)
	if e.Type == EntryRename && e.Path == path && e.OldPath() != path {
		// The file only appeared here through the rename.
		return "", nil
	}
	return e.BeforeHash, nil
}
