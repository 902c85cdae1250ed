package rewind

// Workspace is the project file tree the restore engine writes into.
// Paths are absolute.
type Workspace interface {
	// ReadFile returns the file content. Missing files yield an error matching fs.ErrNotExist.
	ReadFile(path string) ([]byte, error)

	// WriteFile replaces the file content atomically, creating parent directories.
	WriteFile(path string, data []byte) error

	// Remove deletes the file. Removing a missing file is not an error.
	Remove(path string) error
}
