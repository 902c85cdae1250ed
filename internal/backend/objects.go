package backend

import (
	"fmt"
	"os"
	"path/filepath"

	"rewind-go/internal/rewind"
)

// objectDir stores payloads as files named by content hash, sharded by the
// first two hex characters:
//
//	<root>/
//	  ab/
//	    cdef0123...  (payload of hash abcdef0123...)
type objectDir struct {
	root string
}

func validRef(ref string) error {
	if len(ref) < 3 {
		return fmt.Errorf("invalid object ref %q", ref)
	}
	for _, c := range ref {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return fmt.Errorf("invalid object ref %q", ref)
		}
	}
	return nil
}

func (d objectDir) path(ref string) (string, error) {
	if err := validRef(ref); err != nil {
		return "", err
	}
	return filepath.Join(d.root, ref[:2], ref[2:]), nil
}

// put stores data under hash and returns the ref. Storing a hash that is
// already present is a no-op.
func (d objectDir) put(hash string, data []byte) (string, error) {
	destPath, err := d.path(hash)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(destPath); err == nil {
		return hash, nil
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o700); err != nil {
		return "", fmt.Errorf("failed to create object directory: %w", err)
	}
	if err := writeFile(destPath, data); err != nil {
		return "", err
	}
	return hash, nil
}

func (d objectDir) get(ref string) ([]byte, error) {
	srcPath, err := d.path(ref)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("object %s: %w", ref, rewind.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}

func (d objectDir) delete(ref string) error {
	p, err := d.path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// writable verifies the root exists, or can be created, and accepts new files.
func (d objectDir) writable() error {
	if err := os.MkdirAll(d.root, 0o700); err != nil {
		return fmt.Errorf("object root not accessible: %w: %v", rewind.ErrBackendUnavailable, err)
	}
	f, err := os.CreateTemp(d.root, ".probe-*")
	if err != nil {
		return fmt.Errorf("object root not writable: %w: %v", rewind.ErrBackendUnavailable, err)
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return nil
}

// writeFile writes data to destPath atomically (temp file + rename).
func writeFile(destPath string, data []byte) error {
	// Create temp file in the same directory to ensure atomic rename works
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
