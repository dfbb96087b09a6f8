// Package backupstore is the file-system boundary for backup artifacts:
// named blobs under one directory, addressed purely by name. The backup
// manager layers the record/metadata convention on top.
package backupstore

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound is returned by Get for an absent blob.
var ErrNotFound = errors.New("backup artifact not found")

// Store reads and writes named blobs under a single directory.
type Store struct {
	dir string
}

// New creates a store rooted at dir. The directory is created on first write,
// not here: a store over a non-existent directory lists as empty.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the backing directory.
func (s *Store) Dir() string {
	return s.dir
}

// Put writes a blob, creating the directory if needed.
func (s *Store) Put(name string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, name), data, 0644)
}

// Get reads a blob. An absent blob is ErrNotFound.
func (s *Store) Get(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Exists reports whether a blob is present.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(filepath.Join(s.dir, name))
	return err == nil
}

// ListPrefix returns the names of all blobs with the given prefix, sorted.
// A missing directory yields an empty listing.
func (s *Store) ListPrefix(prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), prefix) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a blob. Deleting an absent blob is a no-op.
func (s *Store) Delete(name string) error {
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
