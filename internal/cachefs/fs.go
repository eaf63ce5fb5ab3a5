// Package cachefs resolves halen's XDG locations and provides the rooted
// filesystem that holds overflow files.
package cachefs

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// FS is a filesystem rooted at a single directory. Names are slash separated
// and validated with fs.ValidPath, so nothing outside the root is reachable.
type FS struct {
	root string
}

// New creates an FS rooted at dir, creating the directory if needed.
func New(dir string) (*FS, error) {
	if dir == "" {
		return nil, fmt.Errorf("empty root directory")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return &FS{root: dir}, nil
}

// NewWithRoot creates an FS without touching the disk (for testing)
func NewWithRoot(root string) *FS {
	return &FS{root: root}
}

// Open implements fs.FS
func (cfs *FS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	return os.Open(filepath.Join(cfs.root, name))
}

// ReadFile implements fs.ReadFileFS
func (cfs *FS) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrInvalid}
	}
	return os.ReadFile(filepath.Join(cfs.root, name))
}

// WriteFile writes data to a file relative to the root
func (cfs *FS) WriteFile(name string, data []byte, perm os.FileMode) error {
	if !fs.ValidPath(name) {
		return &fs.PathError{Op: "writefile", Path: name, Err: fs.ErrInvalid}
	}

	fullPath := filepath.Join(cfs.root, name)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(fullPath, data, perm)
}

// Remove removes a file relative to the root
func (cfs *FS) Remove(name string) error {
	if !fs.ValidPath(name) {
		return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrInvalid}
	}
	return os.Remove(filepath.Join(cfs.root, name))
}

// Root returns the root directory path
func (cfs *FS) Root() string {
	return cfs.root
}

// MigrateLegacyHistory copies the history log from legacyPath to path when
// only the legacy one exists. If both exist the current log wins and the
// legacy file is left alone.
func MigrateLegacyHistory(path, legacyPath string) error {
	if _, err := os.Stat(legacyPath); os.IsNotExist(err) {
		return nil
	}

	if _, err := os.Stat(path); err == nil {
		slog.Debug("legacy history ignored, current history exists", "legacy", legacyPath, "path", path)
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check history file: %w", err)
	}

	if err := copyFile(legacyPath, path); err != nil {
		return fmt.Errorf("failed to migrate legacy history %s: %w", legacyPath, err)
	}

	slog.Info("migrated legacy history", "from", legacyPath, "to", path)
	return nil
}
