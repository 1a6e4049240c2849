package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MRamiBalles/IdleAbsurditree/internal/domain/gamedata"
)

// TrashSuffix is appended to a save file's path when the save is deleted.
const TrashSuffix = ".trash"

// FileStore keeps the save in a single file on disk.
type FileStore struct {
	path     string
	compress bool
}

// NewFileStore creates a file-backed store. compress writes LZ4 frames instead of indented JSON.
func NewFileStore(path string, compress bool) *FileStore {
	return &FileStore{path: path, compress: compress}
}

// Path returns the save file location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(ctx context.Context) (*gamedata.GameData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSave
		}
		return nil, fmt.Errorf("failed to read save %s: %w", s.path, err)
	}
	d, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", s.path, err)
	}
	return d, nil
}

// Save writes to a temp file in the same directory and renames it over the old save,
// so a crash mid-write never leaves a truncated save behind.
func (s *FileStore) Save(ctx context.Context, data *gamedata.GameData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := Encode(data, s.compress)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create save directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create temp save: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp save: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp save: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp save: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace save: %w", err)
	}
	return nil
}

// Delete moves the save to <path>.trash, replacing any older trashed save.
func (s *FileStore) Delete(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil
	}
	trash := s.path + TrashSuffix
	if err := os.Remove(trash); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear old trash: %w", err)
	}
	if err := os.Rename(s.path, trash); err != nil {
		return fmt.Errorf("failed to move save to trash: %w", err)
	}
	return nil
}
