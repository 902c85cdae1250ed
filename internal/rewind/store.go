package rewind

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/singleflight"

	"rewind-go/internal/database/sqlc"
)

const (
	// DefaultCompressThreshold is the size above which payloads are zstd-compressed.
	DefaultCompressThreshold = 4 * 1024

	// DefaultInlineFloor is the size below which payloads live in the database row.
	DefaultInlineFloor = 512
)

// Store is the content-addressed backup store. Content is keyed by the SHA-256
// of its original bytes and stored at most once.
type Store struct {
	database  Database
	backends  map[BackendKind]Backend
	encryptor Encryptor
	logger    Logger
	clock     Clock

	compressThreshold int64
	inlineFloor       int64

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	group singleflight.Group

	// pin is held shared by record and restore while hashes they stored are not
	// yet referenced by an entry; sweep deletes under the exclusive side.
	pin sync.RWMutex

	mu       sync.Mutex
	verified map[string]BackendKind // project id -> backend probed in this process
}

// NewStore creates a Store over the given backends. At most one backend per kind is used.
func NewStore(database Database, backends []Backend, encryptor Encryptor, logger Logger, clock Clock, compressThreshold, inlineFloor int64) (*Store, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	byKind := make(map[BackendKind]Backend, len(backends))
	for _, b := range backends {
		byKind[b.Kind()] = b
	}

	return &Store{
		database:          database,
		backends:          byKind,
		encryptor:         encryptor,
		logger:            logger,
		clock:             clock,
		compressThreshold: compressThreshold,
		inlineFloor:       inlineFloor,
		encoder:           encoder,
		decoder:           decoder,
		verified:          make(map[string]BackendKind),
	}, nil
}

// Close releases the codec resources.
func (s *Store) Close() error {
	s.decoder.Close()
	return s.encoder.Close()
}

func (s *Store) pinShared() func() {
	s.pin.RLock()
	return s.pin.RUnlock
}

// Put stores content for project and returns its hash. Storing content that is
// already present performs no write.
func (s *Store) Put(ctx context.Context, project *sqlc.Project, content []byte) (string, error) {
	release := s.pinShared()
	defer release()

	backup, err := s.put(ctx, project, content)
	if err != nil {
		return "", err
	}
	return backup.Hash, nil
}

// put is Put for callers that already hold the pin.
func (s *Store) put(ctx context.Context, project *sqlc.Project, content []byte) (*sqlc.FileBackup, error) {
	hash := HashContent(content)

	v, err, shared := s.group.Do(hash, func() (any, error) {
		existing, err := s.database.FindFileBackup(ctx, hash)
		if err != nil {
			return nil, fmt.Errorf("looking up backup: %w", err)
		}
		if existing != nil {
			s.logger.Debug("backup already stored", "hash", hash)
			return existing, nil
		}

		size := int64(len(content))
		backend, err := s.backendFor(ctx, project, size)
		if err != nil {
			return nil, err
		}

		payload, compressed, err := s.encode(content)
		if err != nil {
			return nil, err
		}

		ref, err := backend.Put(ctx, hash, payload)
		if errors.Is(err, ErrBackendUnavailable) && backend.Kind() != BackendInline && isAuto(project) {
			failed := backend.Kind()
			s.forget(project.ID)
			s.logger.Warn("backend failed during write, falling back", "project", project.Path, "backend", failed, "error", err)
			next, serr := s.selectBackend(ctx, project, ModeAuto, size, failed)
			if serr != nil {
				return nil, fmt.Errorf("writing to %s backend: %w (fallback: %w)", failed, err, serr)
			}
			backend = next
			ref, err = backend.Put(ctx, hash, payload)
		}
		if err != nil {
			if errors.Is(err, ErrBackendUnavailable) {
				s.forget(project.ID)
			}
			return nil, fmt.Errorf("writing to %s backend: %w", backend.Kind(), err)
		}

		backup := &sqlc.FileBackup{
			Hash:       hash,
			Compressed: compressed,
			Encrypted:  s.encryptor != nil,
			Backend:    string(backend.Kind()),
			Ref:        ref,
			Size:       size,
			StoredSize: int64(len(payload)),
			CreatedAt:  s.clock.Now(),
		}
		inserted, err := s.database.CreateFileBackup(ctx, backup)
		if err != nil {
			return nil, fmt.Errorf("recording backup: %w", err)
		}
		if !inserted {
			// Another process stored the same content first; its row wins.
			stored, err := s.database.FindFileBackup(ctx, hash)
			if err != nil {
				return nil, fmt.Errorf("looking up backup: %w", err)
			}
			if stored != nil {
				return stored, nil
			}
		}

		s.logger.Debug("stored backup", "hash", hash, "backend", backup.Backend, "size", size, "stored_size", backup.StoredSize)
		return backup, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("collapsed concurrent store", "hash", hash)
	}
	return v.(*sqlc.FileBackup), nil
}

// Fetch returns the original content stored under hash.
func (s *Store) Fetch(ctx context.Context, hash string) ([]byte, error) {
	backup, err := s.database.FindFileBackup(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("looking up backup: %w", err)
	}
	if backup == nil {
		return nil, fmt.Errorf("backup %s: %w", hash, ErrNotFound)
	}

	backend, ok := s.backends[BackendKind(backup.Backend)]
	if !ok {
		return nil, fmt.Errorf("backup %s is held by %s backend: %w", hash, backup.Backend, ErrBackendUnavailable)
	}

	payload, err := backend.Get(ctx, backup.Ref)
	if err != nil {
		return nil, fmt.Errorf("reading backup %s: %w", hash, err)
	}

	content, err := s.decode(payload, backup)
	if err != nil {
		return nil, fmt.Errorf("backup %s: %w: %v", hash, ErrCorrupt, err)
	}
	if HashContent(content) != hash {
		return nil, fmt.Errorf("backup %s: %w: hash mismatch", hash, ErrCorrupt)
	}
	return content, nil
}

// Delete removes the backup when no entry refers to it. It reports whether the
// backup was removed.
func (s *Store) Delete(ctx context.Context, hash string) (bool, error) {
	s.pin.Lock()
	defer s.pin.Unlock()

	backup, err := s.database.FindFileBackup(ctx, hash)
	if err != nil {
		return false, fmt.Errorf("looking up backup: %w", err)
	}
	if backup == nil {
		return false, nil
	}
	return s.deleteLocked(ctx, backup)
}

func (s *Store) deleteLocked(ctx context.Context, backup *sqlc.FileBackup) (bool, error) {
	removed, err := s.database.DeleteFileBackupIfUnreferenced(ctx, backup.Hash)
	if err != nil {
		return false, fmt.Errorf("deleting backup row: %w", err)
	}
	if !removed {
		return false, nil
	}

	backend, ok := s.backends[BackendKind(backup.Backend)]
	if !ok {
		s.logger.Warn("backend missing for swept backup", "hash", backup.Hash, "backend", backup.Backend)
		return true, nil
	}
	if err := backend.Delete(ctx, backup.Ref); err != nil {
		// The row is gone, so the object is unreachable. An orphan is harmless.
		s.logger.Warn("failed to delete backup object", "hash", backup.Hash, "backend", backup.Backend, "error", err)
	}
	return true, nil
}

// SweepResult summarizes a mark-and-sweep pass.
type SweepResult struct {
	Removed    int
	BytesFreed int64
}

// Sweep removes every backup that no entry in any project refers to.
func (s *Store) Sweep(ctx context.Context) (*SweepResult, error) {
	candidates, err := s.database.FindUnreferencedFileBackups(ctx)
	if err != nil {
		return nil, fmt.Errorf("finding unreferenced backups: %w", err)
	}

	result := &SweepResult{}
	for _, backup := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		s.pin.Lock()
		removed, err := s.deleteLocked(ctx, backup)
		s.pin.Unlock()
		if err != nil {
			return result, err
		}
		if removed {
			result.Removed++
			result.BytesFreed += backup.StoredSize
		}
	}

	s.logger.Debug("swept backups", "candidates", len(candidates), "removed", result.Removed)
	return result, nil
}

func (s *Store) encode(content []byte) ([]byte, bool, error) {
	payload := content
	compressed := false
	if int64(len(content)) > s.compressThreshold {
		packed := s.encoder.EncodeAll(content, nil)
		if len(packed) < len(content) {
			payload = packed
			compressed = true
		}
	}

	if s.encryptor == nil {
		return payload, compressed, nil
	}
	var buf bytes.Buffer
	if err := s.encryptor.Encrypt(bytes.NewReader(payload), &buf); err != nil {
		return nil, false, fmt.Errorf("encrypting backup: %w", err)
	}
	return buf.Bytes(), compressed, nil
}

func (s *Store) decode(payload []byte, backup *sqlc.FileBackup) ([]byte, error) {
	if backup.Encrypted {
		if s.encryptor == nil {
			return nil, fmt.Errorf("backup is encrypted and no key is configured")
		}
		var buf bytes.Buffer
		if err := s.encryptor.Decrypt(bytes.NewReader(payload), &buf); err != nil {
			return nil, fmt.Errorf("decrypting: %w", err)
		}
		payload = buf.Bytes()
	}

	if backup.Compressed {
		out, err := s.decoder.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("decompressing: %w", err)
		}
		return out, nil
	}
	return payload, nil
}

// backendFor resolves the backend for a payload of size bytes. Volume backends
// are resolved once per project and cached on the project row; a cached
// backend is re-probed only in auto mode and only when its probe fails.
func (s *Store) backendFor(ctx context.Context, project *sqlc.Project, size int64) (Backend, error) {
	if size < s.inlineFloor {
		if b, ok := s.backends[BackendInline]; ok {
			return b, nil
		}
	}

	s.mu.Lock()
	kind, ok := s.verified[project.ID]
	s.mu.Unlock()
	if ok {
		return s.backends[kind], nil
	}

	mode, err := ParseStorageMode(project.StorageMode)
	if err != nil {
		return nil, err
	}

	if cached := BackendKind(project.Backend); cached != "" {
		if b, ok := s.backends[cached]; ok {
			err := b.Probe(ctx, project.Path)
			if err == nil {
				s.remember(project.ID, cached)
				return b, nil
			}
			if mode != ModeAuto {
				return nil, fmt.Errorf("probing %s backend: %w", cached, err)
			}
			s.logger.Warn("cached backend unavailable, re-probing", "project", project.Path, "backend", cached, "error", err)
		}
	}

	return s.selectBackend(ctx, project, mode, size, "")
}

// selectBackend probes every volume backend except skip, picks one for mode
// and caches the choice on the project.
func (s *Store) selectBackend(ctx context.Context, project *sqlc.Project, mode StorageMode, size int64, skip BackendKind) (Backend, error) {
	available := s.probe(ctx, project.Path)
	delete(available, skip)
	kind, err := SelectBackend(mode, size, s.inlineFloor, available)
	if err != nil {
		return nil, err
	}
	if kind == BackendInline {
		return nil, fmt.Errorf("inline backend not configured: %w", ErrBackendUnavailable)
	}

	if err := s.database.UpdateProjectBackend(ctx, project.ID, string(kind)); err != nil {
		return nil, fmt.Errorf("caching project backend: %w", err)
	}
	project.Backend = string(kind)
	s.remember(project.ID, kind)
	s.logger.Info("selected storage backend", "project", project.Path, "mode", mode, "backend", kind)
	return s.backends[kind], nil
}

func (s *Store) probe(ctx context.Context, projectPath string) Capabilities {
	available := Capabilities{}
	for _, kind := range autoOrder {
		b, ok := s.backends[kind]
		if !ok {
			continue
		}
		if err := b.Probe(ctx, projectPath); err != nil {
			s.logger.Debug("backend probe failed", "backend", kind, "error", err)
			continue
		}
		available[kind] = true
	}
	return available
}

// isAuto reports whether the project lets the store choose its backend.
func isAuto(project *sqlc.Project) bool {
	mode, err := ParseStorageMode(project.StorageMode)
	return err == nil && mode == ModeAuto
}

func (s *Store) remember(projectID string, kind BackendKind) {
	s.mu.Lock()
	s.verified[projectID] = kind
	s.mu.Unlock()
}

func (s *Store) forget(projectID string) {
	s.mu.Lock()
	delete(s.verified, projectID)
	s.mu.Unlock()
}
