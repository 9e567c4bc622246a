package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// Storage writes artifacts under a single directory.
type Storage struct {
	dir string
}

func New(dir string) *Storage {
	return &Storage{dir: dir}
}

// SaveFile writes content to name inside the storage directory, creating the
// directory if needed, and returns the full path.
func (s *Storage) SaveFile(name string, content []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("error creating directory: %w", err)
	}

	path := filepath.Join(s.dir, filepath.Base(name))
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}
	return path, nil
}

// HasFile reports whether name already exists in the storage directory.
func (s *Storage) HasFile(name string) bool {
	_, err := os.Stat(filepath.Join(s.dir, filepath.Base(name)))
	return err == nil
}
