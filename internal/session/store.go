package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Store loads and saves session state.
type Store interface {
	Load() State
	Save(State) error
}

// FileStore keeps the state in a single JSON file in the app data dir.
// Writes go to a temp file in the same directory which is then renamed over
// the old one, so an interrupted save leaves the previous state intact.
type FileStore struct {
	path   string
	logger *zap.Logger
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{path: path, logger: logger}
}

// Path returns the state file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load returns the saved state. A missing file yields the default state; an
// unreadable or corrupt file is logged and discarded.
func (s *FileStore) Load() State {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("reading session state", zap.String("path", s.path), zap.Error(err))
		}
		return Default()
	}
	if len(b) == 0 {
		return Default()
	}

	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		s.logger.Warn("discarding corrupt session state", zap.String("path", s.path), zap.Error(err))
		return Default()
	}
	if st.Selected != nil && st.Selected.Path == "" {
		s.logger.Warn("discarding selection without a path", zap.String("path", s.path))
		st.Selected = nil
	}
	return st
}

// Save atomically replaces the state file.
func (s *FileStore) Save(st State) error {
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp state file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("setting state file mode: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing state file: %w", err)
	}

	s.logger.Debug("session state saved", zap.String("path", s.path))
	return nil
}
