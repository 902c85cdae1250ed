package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rewind-go/internal/backend"
	"rewind-go/internal/config"
	"rewind-go/internal/database"
	"rewind-go/internal/encryption"
	"rewind-go/internal/fs"
	"rewind-go/internal/rewind"

	"github.com/google/uuid"
)

// RewindApp is the application layer between the CLI and the engine.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw paths, and owns the database and log file until Close.
type RewindApp struct {
	cfg       *config.Config
	db        *database.SQLiteDatabase
	workspace rewind.Workspace
	engine    *rewind.Engine
	logger    rewind.Logger
	logFile   *os.File
}

// NewRewindApp creates a fully wired RewindApp from the given config.
// The caller must call Close when done.
func NewRewindApp(cfg *config.Config) (*RewindApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	opts, err := engineOptions(cfg)
	if err != nil {
		return nil, err
	}

	backends, err := backend.NewBackendsFromConfig(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("creating backends: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}
	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z") + "-" + uuid.NewString()[:8]
	slogger, logFile, err := newLogger(cfg.LogDir, opID, cfg.LogLevel)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	workspace := fs.NewOSWorkspace()
	engine, err := rewind.NewEngine(db, backends, workspace, enc, logger, rewind.RealClock{}, rewind.UUIDGenerator{}, opts)
	if err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating engine: %w", err)
	}

	return &RewindApp{
		cfg:       cfg,
		db:        db,
		workspace: workspace,
		engine:    engine,
		logger:    logger,
		logFile:   logFile,
	}, nil
}

// engineOptions translates the config into engine options.
func engineOptions(cfg *config.Config) (rewind.Options, error) {
	mode, err := rewind.ParseStorageMode(cfg.Storage.Mode)
	if err != nil {
		return rewind.Options{}, err
	}
	opts := rewind.Options{
		StorageMode:       mode,
		CompressThreshold: cfg.Storage.CompressThreshold,
		InlineFloor:       cfg.Storage.InlineFloor,
		Retention: rewind.Policy{
			EntriesHours: cfg.Retention.EntriesHours,
			HourlyDays:   cfg.Retention.HourlyCheckpointsDays,
			DailyDays:    cfg.Retention.DailyCheckpointsDays,
		},
	}
	if cfg.DataDir != "" {
		opts.LockDir = filepath.Join(cfg.DataDir, "locks")
	}
	return opts, nil
}

// RecordOptions describes one change reported by the caller.
type RecordOptions struct {
	// Project is the project root.
	Project string

	// Path is the changed file, absolute or relative to Project.
	Path string

	// Type is the change type. When empty it is inferred from the ledger
	// and the disk: create, edit or delete.
	Type string

	// From is the source path of a rename.
	From string

	Message string
}

// Record captures a file change. It returns a nil entry when recording is
// disabled, the path is ignored, or the content did not change.
func (a *RewindApp) Record(ctx context.Context, opts RecordOptions) (*rewind.Entry, error) {
	if !a.cfg.Enabled {
		a.logger.Debug("recording disabled, skipping", "path", opts.Path)
		return nil, nil
	}

	root, err := filepath.Abs(opts.Project)
	if err != nil {
		return nil, fmt.Errorf("resolving project: %w", err)
	}
	rel, err := projectRelative(root, opts.Path)
	if err != nil {
		return nil, err
	}

	ignore, err := fs.LoadIgnoreMatcher(root, a.cfg.Filesystem.Ignore)
	if err != nil {
		return nil, err
	}
	if ignore.Match(rel) {
		a.logger.Debug("ignored path, skipping", "path", rel)
		return nil, nil
	}

	change := rewind.Change{
		Project:     root,
		Path:        rel,
		Description: opts.Message,
	}

	if opts.Type != "" {
		change.Type, err = rewind.ParseEntryType(opts.Type)
		if err != nil {
			return nil, err
		}
	}

	switch {
	case change.Type == rewind.EntryRename || opts.From != "":
		if opts.From == "" {
			return nil, fmt.Errorf("rename of %s requires a source path", rel)
		}
		change.Type = rewind.EntryRename
		if change.OldPath, err = projectRelative(root, opts.From); err != nil {
			return nil, err
		}
		if change.Before, err = a.headContent(ctx, root, change.OldPath); err != nil {
			return nil, err
		}
	default:
		if change.Before, err = a.headContent(ctx, root, rel); err != nil {
			return nil, err
		}
	}

	if change.Type != rewind.EntryDelete {
		if change.After, err = a.diskContent(filepath.Join(root, filepath.FromSlash(rel))); err != nil {
			return nil, err
		}
	}

	if change.Type == "" {
		switch {
		case change.Before == nil && change.After == nil:
			return nil, fmt.Errorf("%s: %w", rel, rewind.ErrNotFound)
		case change.Before == nil:
			change.Type = rewind.EntryCreate
		case change.After == nil:
			change.Type = rewind.EntryDelete
		case bytes.Equal(change.Before, change.After):
			a.logger.Debug("content unchanged, skipping", "path", rel)
			return nil, nil
		default:
			change.Type = rewind.EntryEdit
		}
	}

	entry, err := a.engine.Recorder.Record(ctx, change)
	if err != nil {
		return nil, err
	}

	if err := a.enforceStorageLimit(ctx, root); err != nil {
		a.logger.Warn("pruning after record failed", "error", err)
	}
	return entry, nil
}

// headContent returns what the ledger says path holds right now, or nil when
// the file is absent or was never recorded.
func (a *RewindApp) headContent(ctx context.Context, root, rel string) ([]byte, error) {
	hash, err := a.engine.Ledger.CurrentHash(ctx, root, rel)
	if err != nil {
		return nil, err
	}
	if hash == "" {
		return nil, nil
	}
	return a.engine.Store.Fetch(ctx, hash)
}

// diskContent returns the file content, or nil when the file does not exist.
func (a *RewindApp) diskContent(path string) ([]byte, error) {
	data, err := a.workspace.ReadFile(path)
	if errors.Is(err, iofs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// enforceStorageLimit prunes the store once the project's backups outgrow
// max_storage_mb.
func (a *RewindApp) enforceStorageLimit(ctx context.Context, root string) error {
	limit := a.cfg.Storage.MaxStorageMB * 1024 * 1024
	if limit <= 0 {
		return nil
	}
	project, err := a.engine.Ledger.FindProject(ctx, root)
	if err != nil {
		return err
	}
	if project.TotalSize <= limit {
		return nil
	}

	a.logger.Info("storage limit exceeded, pruning", "project", root, "size", project.TotalSize, "limit", limit)
	_, err = a.engine.Retention.Prune(ctx)
	return err
}

// projectRelative turns a raw path into a slash-separated path relative to root.
func projectRelative(root, raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("path is required")
	}
	abs := raw
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(root, raw)
	}
	rel, err := filepath.Rel(root, filepath.Clean(abs))
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", raw, err)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside project %s", raw, root)
	}
	return filepath.ToSlash(rel), nil
}

// Checkpoint names the project's current head, or the entry at seq when seq > 0.
func (a *RewindApp) Checkpoint(ctx context.Context, project, name string, seq int64) (*rewind.Checkpoint, error) {
	return a.engine.Ledger.Checkpoint(ctx, project, name, seq)
}

// Last undoes the most recent change of the project.
func (a *RewindApp) Last(ctx context.Context, project string) (*rewind.RestoreResult, error) {
	return a.engine.Restorer.UndoLast(ctx, project)
}

// Restore rewinds the project to a sequence id or checkpoint name.
func (a *RewindApp) Restore(ctx context.Context, project, ref string) (*rewind.RestoreResult, error) {
	return a.engine.Restorer.RestoreTo(ctx, project, ref)
}

// Timeline returns the project's entries within r, newest first.
func (a *RewindApp) Timeline(ctx context.Context, project string, r rewind.Range) ([]*rewind.Entry, error) {
	var entries []*rewind.Entry
	for entry, err := range a.engine.Ledger.Timeline(ctx, project, r) {
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Checkpoints returns the project's checkpoints, oldest first.
func (a *RewindApp) Checkpoints(ctx context.Context, project string) ([]*rewind.Checkpoint, error) {
	return a.engine.Ledger.Checkpoints(ctx, project)
}

// Prune applies the retention policy to every project.
func (a *RewindApp) Prune(ctx context.Context) (*rewind.PruneReport, error) {
	return a.engine.Retention.Prune(ctx)
}

// Close releases the engine, the database and the log file.
func (a *RewindApp) Close() error {
	var firstErr error

	if err := a.engine.Close(); err != nil {
		firstErr = fmt.Errorf("closing engine: %w", err)
	}
	if err := a.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
