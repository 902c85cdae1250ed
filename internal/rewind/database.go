package rewind

import (
	"context"

	"rewind-go/internal/database/sqlc"
)

// Database provides the persisted state of the engine.
// Lookups return (nil, nil) when nothing matches; multi-row writes are atomic.
type Database interface {
	// Project operations

	// FindProjectByPath returns the project rooted at path.
	FindProjectByPath(ctx context.Context, path string) (*sqlc.Project, error)

	// CreateProject inserts a new project row.
	CreateProject(ctx context.Context, project *sqlc.Project) (*sqlc.Project, error)

	// UpdateProjectBackend caches the resolved backend kind on the project.
	UpdateProjectBackend(ctx context.Context, projectID, backend string) error

	// ListProjects returns every known project.
	ListProjects(ctx context.Context) ([]*sqlc.Project, error)

	// FileBackup operations

	// FindFileBackup returns the backup row for a content hash.
	FindFileBackup(ctx context.Context, hash string) (*sqlc.FileBackup, error)

	// CreateFileBackup inserts a backup row unless one with the same hash exists.
	// It reports whether a row was inserted.
	CreateFileBackup(ctx context.Context, backup *sqlc.FileBackup) (bool, error)

	// FindUnreferencedFileBackups returns backups no entry refers to.
	FindUnreferencedFileBackups(ctx context.Context) ([]*sqlc.FileBackup, error)

	// DeleteFileBackupIfUnreferenced removes the row only if it is still unreferenced
	// at the time of the delete. It reports whether the row was removed.
	DeleteFileBackupIfUnreferenced(ctx context.Context, hash string) (bool, error)

	// Entry operations

	// AppendEntries assigns consecutive sequence ids after the project's head and
	// inserts the entries together with the project update in one transaction.
	AppendEntries(ctx context.Context, projectID string, entries []*sqlc.Entry) ([]*sqlc.Entry, error)

	// AppendCheckpoint appends a checkpoint entry and binds name to the entry with
	// sequence id atSeq, or to the new entry when atSeq is 0, in one transaction.
	AppendCheckpoint(ctx context.Context, projectID, name string, entry *sqlc.Entry, atSeq int64) (*sqlc.Checkpoint, *sqlc.Entry, error)

	// FindEntryBySeq returns the entry with the given sequence id.
	FindEntryBySeq(ctx context.Context, projectID string, seq int64) (*sqlc.Entry, error)

	// FindEntryByID returns an entry by row id.
	FindEntryByID(ctx context.Context, id int64) (*sqlc.Entry, error)

	// FindLatestChange returns the newest entry that is not a checkpoint.
	FindLatestChange(ctx context.Context, projectID string) (*sqlc.Entry, error)

	// ListEntries returns up to limit entries with minSeq <= seq < beforeSeq, newest first.
	ListEntries(ctx context.Context, projectID string, beforeSeq, minSeq int64, limit int) ([]*sqlc.Entry, error)

	// FindEntriesAfter returns the path-carrying entries with seq > afterSeq, oldest first.
	FindEntriesAfter(ctx context.Context, projectID string, afterSeq int64) ([]*sqlc.Entry, error)

	// FindLatestEntryForPath returns the newest entry with seq <= maxSeq that touched
	// path, either as its path or as the source of a rename.
	FindLatestEntryForPath(ctx context.Context, projectID, path string, maxSeq int64) (*sqlc.Entry, error)

	// FindEarliestEntryForPath returns the oldest entry with seq > afterSeq that touched path.
	FindEarliestEntryForPath(ctx context.Context, projectID, path string, afterSeq int64) (*sqlc.Entry, error)

	// Checkpoint operations

	// FindCheckpointByName returns a checkpoint by its store-wide unique name.
	FindCheckpointByName(ctx context.Context, name string) (*sqlc.Checkpoint, error)

	// FindCheckpointsForProject returns the project's checkpoints, oldest first.
	FindCheckpointsForProject(ctx context.Context, projectID string) ([]*sqlc.Checkpoint, error)

	// Retention operations

	// ListRetentionCandidates returns every entry with a flag telling whether a
	// checkpoint is bound to it, ordered by project then seq.
	ListRetentionCandidates(ctx context.Context) ([]*sqlc.ListRetentionCandidatesRow, error)

	// DeleteEntryIfUnbound deletes the entry unless a checkpoint refers to it.
	// It reports whether the entry was removed.
	DeleteEntryIfUnbound(ctx context.Context, id int64) (bool, error)

	// RecomputeProjectSizes refreshes total_size of every project.
	RecomputeProjectSizes(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
