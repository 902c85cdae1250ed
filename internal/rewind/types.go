package rewind

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"rewind-go/internal/database/sqlc"
)

// EntryType is the kind of change an Entry records.
type EntryType string

const (
	EntryEdit       EntryType = "edit"
	EntryCreate     EntryType = "create"
	EntryDelete     EntryType = "delete"
	EntryRename     EntryType = "rename"
	EntryCheckpoint EntryType = "checkpoint"
	EntryRestore    EntryType = "restore"
)

// Valid reports whether t is one of the known entry types.
func (t EntryType) Valid() bool {
	switch t {
	case EntryEdit, EntryCreate, EntryDelete, EntryRename, EntryCheckpoint, EntryRestore:
		return true
	}
	return false
}

// ParseEntryType parses a user-supplied change type.
func ParseEntryType(s string) (EntryType, error) {
	t := EntryType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown entry type %q", s)
	}
	return t, nil
}

// StorageMode is the configured backend preference of a project.
type StorageMode string

const (
	ModeAuto     StorageMode = "auto"
	ModeGit      StorageMode = "git"
	ModeSnapshot StorageMode = "snapshot"
	ModeFile     StorageMode = "file"
)

// ParseStorageMode parses a configured storage mode. An empty string means auto;
// "btrfs" is accepted as an alias of snapshot.
func ParseStorageMode(s string) (StorageMode, error) {
	switch s {
	case "", "auto":
		return ModeAuto, nil
	case "git":
		return ModeGit, nil
	case "snapshot", "btrfs":
		return ModeSnapshot, nil
	case "file":
		return ModeFile, nil
	}
	return "", fmt.Errorf("unknown storage mode %q", s)
}

// Metadata is the free-form key/value payload stored with an entry.
type Metadata map[string]string

// Metadata keys written by the engine.
const (
	MetaOldPath    = "old_path"
	MetaCheckpoint = "checkpoint"
	MetaTarget     = "target"
)

func (m Metadata) encode() (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encoding metadata: %w", err)
	}
	return string(b), nil
}

func decodeMetadata(s string) Metadata {
	m := Metadata{}
	if s == "" {
		return m
	}
	// Rows are only ever written through encode, a parse failure leaves m empty.
	_ = json.Unmarshal([]byte(s), &m)
	return m
}

// Entry is one immutable ledger record.
type Entry struct {
	ID          int64
	ProjectID   string
	Seq         int64
	CreatedAt   time.Time
	Type        EntryType
	Path        string
	Description string
	BeforeHash  string
	AfterHash   string
	BackupRef   string
	Metadata    Metadata
}

// OldPath is the source path of a rename entry.
func (e *Entry) OldPath() string {
	return e.Metadata[MetaOldPath]
}

// Paths lists every project path the entry touched.
func (e *Entry) Paths() []string {
	if e.Path == "" {
		return nil
	}
	if old := e.OldPath(); e.Type == EntryRename && old != "" && old != e.Path {
		return []string{old, e.Path}
	}
	return []string{e.Path}
}

func newEntry(row *sqlc.Entry) *Entry {
	return &Entry{
		ID:          row.ID,
		ProjectID:   row.ProjectID,
		Seq:         row.Seq,
		CreatedAt:   row.CreatedAt,
		Type:        EntryType(row.Type),
		Path:        row.Path.String,
		Description: row.Description,
		BeforeHash:  row.BeforeHash.String,
		AfterHash:   row.AfterHash.String,
		BackupRef:   row.BackupRef,
		Metadata:    decodeMetadata(row.Metadata),
	}
}

func newEntries(rows []*sqlc.Entry) []*Entry {
	entries := make([]*Entry, len(rows))
	for i, row := range rows {
		entries[i] = newEntry(row)
	}
	return entries
}

// Draft is an entry before the ledger assigns its sequence id and timestamp.
type Draft struct {
	Type        EntryType
	Path        string
	Description string
	BeforeHash  string
	AfterHash   string
	BackupRef   string
	Metadata    Metadata
}

func (d Draft) validate() error {
	if !d.Type.Valid() {
		return fmt.Errorf("invalid entry type %q", d.Type)
	}
	if d.Type == EntryCheckpoint {
		if d.Path != "" {
			return fmt.Errorf("checkpoint entry cannot carry a path")
		}
		return nil
	}
	if d.Path == "" {
		return fmt.Errorf("%s entry requires a path", d.Type)
	}
	switch d.Type {
	case EntryCreate:
		if d.BeforeHash != "" {
			return fmt.Errorf("create entry cannot have a before hash")
		}
	case EntryDelete:
		if d.AfterHash != "" {
			return fmt.Errorf("delete entry cannot have an after hash")
		}
	case EntryRename:
		if d.Metadata[MetaOldPath] == "" {
			return fmt.Errorf("rename entry requires %s metadata", MetaOldPath)
		}
	}
	return nil
}

func (d Draft) row(projectID string, now time.Time) (*sqlc.Entry, error) {
	meta, err := d.Metadata.encode()
	if err != nil {
		return nil, err
	}
	return &sqlc.Entry{
		ProjectID:   projectID,
		CreatedAt:   now,
		Type:        string(d.Type),
		Path:        nullString(d.Path),
		Description: d.Description,
		BeforeHash:  nullString(d.BeforeHash),
		AfterHash:   nullString(d.AfterHash),
		BackupRef:   d.BackupRef,
		Metadata:    meta,
	}, nil
}

// Checkpoint is a named, never-pruned bookmark into a project's ledger.
type Checkpoint struct {
	Name      string
	ProjectID string
	EntryID   int64
	Seq       int64
	CreatedAt time.Time
}

// Range bounds a timeline walk. From and To are inclusive sequence ids; zero
// leaves that side open. Limit caps the number of entries returned; zero means all.
type Range struct {
	From  int64
	To    int64
	Limit int
}

// HashContent returns the lowercase hex SHA-256 of content. It is the
// content-addressing key of the backup store.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
