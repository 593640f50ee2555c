package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore persists the record as a JSON file, replaced atomically on save.
type FileStore struct {
	path string
}

// NewFileStore returns store.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the record; a missing file yields ErrNoRecord.
func (s *FileStore) Load(_ context.Context) (*Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoRecord
		}
		return nil, fmt.Errorf("session: read %s: %w", s.path, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("session: decode %s: %w", s.path, err)
	}
	if rec.Token == "" {
		return nil, ErrNoRecord
	}
	return &rec, nil
}

// Save overwrites the record.
func (s *FileStore) Save(_ context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return fmt.Errorf("session: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("session: write temp file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("session: chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("session: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("session: replace %s: %w", s.path, err)
	}
	return nil
}
