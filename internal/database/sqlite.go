package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"rewind-go/internal/database/migrations"
	"rewind-go/internal/database/sqlc"
	"rewind-go/internal/rewind"
)

// SQLiteDatabase implements the rewind.Database interface using SQLite.
type SQLiteDatabase struct {
	db      *sql.DB
	queries *sqlc.Queries
	path    string
}

var _ rewind.Database = (*SQLiteDatabase)(nil)

// NewSQLiteDatabase opens a SQLite database.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
		path:    path,
	}, nil
}

// OpenConnection opens and configures a SQLite connection.
// The pool is limited to one connection: writes are serialized by SQLite
// anyway, and an in-memory database only lives as long as its connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Migrate brings the schema to the latest version.
func (s *SQLiteDatabase) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// CheckMigrations verifies the schema is at the latest version.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func pointers[T any](rows []T) []*T {
	result := make([]*T, len(rows))
	for i := range rows {
		result[i] = &rows[i]
	}
	return result
}

// Project operations

func (s *SQLiteDatabase) FindProjectByPath(ctx context.Context, path string) (*sqlc.Project, error) {
	project, err := s.queries.GetProjectByPath(ctx, path)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding project by path: %w", err)
	}
	return &project, nil
}

func (s *SQLiteDatabase) CreateProject(ctx context.Context, project *sqlc.Project) (*sqlc.Project, error) {
	err := s.queries.InsertProject(ctx, sqlc.InsertProjectParams{
		ID:          project.ID,
		Path:        project.Path,
		StorageMode: project.StorageMode,
		Backend:     project.Backend,
		CreatedAt:   project.CreatedAt,
		UpdatedAt:   project.UpdatedAt,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("project %s already exists: %w", project.Path, err)
		}
		return nil, fmt.Errorf("creating project: %w", err)
	}

	created, err := s.queries.GetProjectByID(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("reloading project: %w", err)
	}
	return &created, nil
}

func (s *SQLiteDatabase) UpdateProjectBackend(ctx context.Context, projectID, backend string) error {
	err := s.queries.UpdateProjectBackend(ctx, sqlc.UpdateProjectBackendParams{
		Backend: backend,
		ID:      projectID,
	})
	if err != nil {
		return fmt.Errorf("updating project backend: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListProjects(ctx context.Context) ([]*sqlc.Project, error) {
	projects, err := s.queries.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return pointers(projects), nil
}

// FileBackup operations

func (s *SQLiteDatabase) FindFileBackup(ctx context.Context, hash string) (*sqlc.FileBackup, error) {
	backup, err := s.queries.GetFileBackup(ctx, hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding file backup: %w", err)
	}
	return &backup, nil
}

func (s *SQLiteDatabase) CreateFileBackup(ctx context.Context, backup *sqlc.FileBackup) (bool, error) {
	n, err := s.queries.InsertFileBackup(ctx, sqlc.InsertFileBackupParams{
		Hash:       backup.Hash,
		Compressed: backup.Compressed,
		Encrypted:  backup.Encrypted,
		Backend:    backup.Backend,
		Ref:        backup.Ref,
		Size:       backup.Size,
		StoredSize: backup.StoredSize,
		CreatedAt:  backup.CreatedAt,
	})
	if err != nil {
		return false, fmt.Errorf("creating file backup: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteDatabase) FindUnreferencedFileBackups(ctx context.Context) ([]*sqlc.FileBackup, error) {
	backups, err := s.queries.ListUnreferencedFileBackups(ctx)
	if err != nil {
		return nil, fmt.Errorf("finding unreferenced file backups: %w", err)
	}
	return pointers(backups), nil
}

func (s *SQLiteDatabase) DeleteFileBackupIfUnreferenced(ctx context.Context, hash string) (bool, error) {
	n, err := s.queries.DeleteFileBackupIfUnreferenced(ctx, hash)
	if err != nil {
		return false, fmt.Errorf("deleting file backup: %w", err)
	}
	return n > 0, nil
}

// Entry operations

// AppendEntries atomically assigns sequence ids and records entries:
// 1. Loads the project to read its head sequence id.
// 2. Inserts every entry with the next sequence id.
// 3. Moves the project head and recomputes its total size.
func (s *SQLiteDatabase) AppendEntries(ctx context.Context, projectID string, entries []*sqlc.Entry) ([]*sqlc.Entry, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	project, err := qtx.GetProjectByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project %s: %w", projectID, rewind.ErrNotFound)
		}
		return nil, fmt.Errorf("loading project: %w", err)
	}

	seq := project.HeadSeq
	stored := make([]*sqlc.Entry, 0, len(entries))
	for _, e := range entries {
		seq++
		row, err := insertEntry(ctx, qtx, projectID, seq, e)
		if err != nil {
			return nil, err
		}
		stored = append(stored, row)
	}

	if err := finishAppend(ctx, qtx, projectID, seq, entries[len(entries)-1]); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return stored, nil
}

// AppendCheckpoint appends a checkpoint entry and binds name in one transaction.
// The binding target is the entry with sequence id atSeq, or the new entry when
// atSeq is 0.
func (s *SQLiteDatabase) AppendCheckpoint(ctx context.Context, projectID, name string, entry *sqlc.Entry, atSeq int64) (*sqlc.Checkpoint, *sqlc.Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	project, err := qtx.GetProjectByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("project %s: %w", projectID, rewind.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("loading project: %w", err)
	}

	bindID := int64(0)
	if atSeq > 0 {
		target, err := qtx.GetEntryBySeq(ctx, sqlc.GetEntryBySeqParams{ProjectID: projectID, Seq: atSeq})
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil, fmt.Errorf("entry #%d: %w", atSeq, rewind.ErrNotFound)
			}
			return nil, nil, fmt.Errorf("loading checkpoint target: %w", err)
		}
		bindID = target.ID
	}

	seq := project.HeadSeq + 1
	row, err := insertEntry(ctx, qtx, projectID, seq, entry)
	if err != nil {
		return nil, nil, err
	}
	if bindID == 0 {
		bindID = row.ID
	}

	err = qtx.InsertCheckpoint(ctx, sqlc.InsertCheckpointParams{
		Name:      name,
		ProjectID: projectID,
		EntryID:   bindID,
		CreatedAt: entry.CreatedAt,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, nil, fmt.Errorf("checkpoint %q: %w", name, rewind.ErrDuplicateName)
		}
		return nil, nil, fmt.Errorf("inserting checkpoint: %w", err)
	}

	if err := finishAppend(ctx, qtx, projectID, seq, entry); err != nil {
		return nil, nil, err
	}
	err = qtx.UpdateProjectLastCheckpoint(ctx, sqlc.UpdateProjectLastCheckpointParams{
		LastCheckpoint: nullString(name),
		UpdatedAt:      entry.CreatedAt,
		ID:             projectID,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("updating last checkpoint: %w", err)
	}

	cp, err := qtx.GetCheckpointByName(ctx, name)
	if err != nil {
		return nil, nil, fmt.Errorf("reloading checkpoint: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("committing transaction: %w", err)
	}
	return &cp, row, nil
}

func insertEntry(ctx context.Context, qtx *sqlc.Queries, projectID string, seq int64, e *sqlc.Entry) (*sqlc.Entry, error) {
	id, err := qtx.InsertEntry(ctx, sqlc.InsertEntryParams{
		ProjectID:   projectID,
		Seq:         seq,
		CreatedAt:   e.CreatedAt,
		Type:        e.Type,
		Path:        e.Path,
		Description: e.Description,
		BeforeHash:  e.BeforeHash,
		AfterHash:   e.AfterHash,
		BackupRef:   e.BackupRef,
		Metadata:    e.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("inserting entry #%d: %w", seq, err)
	}

	row, err := qtx.GetEntryByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reloading entry #%d: %w", seq, err)
	}
	return &row, nil
}

func finishAppend(ctx context.Context, qtx *sqlc.Queries, projectID string, headSeq int64, last *sqlc.Entry) error {
	err := qtx.UpdateProjectHead(ctx, sqlc.UpdateProjectHeadParams{
		HeadSeq:   headSeq,
		UpdatedAt: last.CreatedAt,
		ID:        projectID,
	})
	if err != nil {
		return fmt.Errorf("updating project head: %w", err)
	}
	if err := qtx.UpdateProjectTotalSize(ctx, projectID); err != nil {
		return fmt.Errorf("updating project size: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FindEntryBySeq(ctx context.Context, projectID string, seq int64) (*sqlc.Entry, error) {
	entry, err := s.queries.GetEntryBySeq(ctx, sqlc.GetEntryBySeqParams{ProjectID: projectID, Seq: seq})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding entry by seq: %w", err)
	}
	return &entry, nil
}

func (s *SQLiteDatabase) FindEntryByID(ctx context.Context, id int64) (*sqlc.Entry, error) {
	entry, err := s.queries.GetEntryByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding entry by id: %w", err)
	}
	return &entry, nil
}

func (s *SQLiteDatabase) FindLatestChange(ctx context.Context, projectID string) (*sqlc.Entry, error) {
	entry, err := s.queries.GetLatestChangeEntry(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding latest change: %w", err)
	}
	return &entry, nil
}

func (s *SQLiteDatabase) ListEntries(ctx context.Context, projectID string, beforeSeq, minSeq int64, limit int) ([]*sqlc.Entry, error) {
	entries, err := s.queries.ListEntriesPage(ctx, sqlc.ListEntriesPageParams{
		ProjectID: projectID,
		BeforeSeq: beforeSeq,
		MinSeq:    minSeq,
		PageSize:  int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	return pointers(entries), nil
}

func (s *SQLiteDatabase) FindEntriesAfter(ctx context.Context, projectID string, afterSeq int64) ([]*sqlc.Entry, error) {
	entries, err := s.queries.ListEntriesAfter(ctx, sqlc.ListEntriesAfterParams{ProjectID: projectID, Seq: afterSeq})
	if err != nil {
		return nil, fmt.Errorf("listing entries after #%d: %w", afterSeq, err)
	}
	return pointers(entries), nil
}

func (s *SQLiteDatabase) FindLatestEntryForPath(ctx context.Context, projectID, path string, maxSeq int64) (*sqlc.Entry, error) {
	entry, err := s.queries.GetLatestEntryForPath(ctx, sqlc.GetLatestEntryForPathParams{
		ProjectID: projectID,
		MaxSeq:    maxSeq,
		Path:      nullString(path),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding latest entry for path: %w", err)
	}
	return &entry, nil
}

func (s *SQLiteDatabase) FindEarliestEntryForPath(ctx context.Context, projectID, path string, afterSeq int64) (*sqlc.Entry, error) {
	entry, err := s.queries.GetEarliestEntryForPath(ctx, sqlc.GetEarliestEntryForPathParams{
		ProjectID: projectID,
		AfterSeq:  afterSeq,
		Path:      nullString(path),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding earliest entry for path: %w", err)
	}
	return &entry, nil
}

// Checkpoint operations

func (s *SQLiteDatabase) FindCheckpointByName(ctx context.Context, name string) (*sqlc.Checkpoint, error) {
	cp, err := s.queries.GetCheckpointByName(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding checkpoint: %w", err)
	}
	return &cp, nil
}

func (s *SQLiteDatabase) FindCheckpointsForProject(ctx context.Context, projectID string) ([]*sqlc.Checkpoint, error) {
	cps, err := s.queries.ListCheckpointsByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing checkpoints: %w", err)
	}
	return pointers(cps), nil
}

// Retention operations

func (s *SQLiteDatabase) ListRetentionCandidates(ctx context.Context) ([]*sqlc.ListRetentionCandidatesRow, error) {
	rows, err := s.queries.ListRetentionCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing retention candidates: %w", err)
	}
	return pointers(rows), nil
}

func (s *SQLiteDatabase) DeleteEntryIfUnbound(ctx context.Context, id int64) (bool, error) {
	n, err := s.queries.DeleteEntryIfUnbound(ctx, id)
	if err != nil {
		return false, fmt.Errorf("deleting entry: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteDatabase) RecomputeProjectSizes(ctx context.Context) error {
	if err := s.queries.UpdateAllProjectTotalSizes(ctx); err != nil {
		return fmt.Errorf("recomputing project sizes: %w", err)
	}
	return nil
}
