// Package state persists which app the board should run after a restart.
//
// The record is a single JSON object, {"run": "app_pictures"} or
// {"run": null}. It is read once at boot and written once per launcher
// selection, so writes replace the whole file atomically.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// AppState is the persisted selection. An empty Run means no app is
// selected and the launcher should be shown.
type AppState struct {
	Run string
}

// None reports whether no app is selected.
func (s AppState) None() bool { return s.Run == "" }

type record struct {
	Run *string `json:"run"`
}

// MarshalJSON writes an empty selection as null.
func (s AppState) MarshalJSON() ([]byte, error) {
	var r record
	if s.Run != "" {
		run := s.Run
		r.Run = &run
	}
	return json.Marshal(r)
}

// UnmarshalJSON accepts a string, null, or a missing run key.
func (s *AppState) UnmarshalJSON(data []byte) error {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	s.Run = ""
	if r.Run != nil {
		s.Run = *r.Run
	}
	return nil
}

// Store reads and writes the state record at a fixed path.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore returns a Store backed by path. A nil logger discards output.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{path: path, logger: logger}
}

// Path returns the location of the state record.
func (s *Store) Path() string { return s.path }

// Load returns the persisted selection. A missing, unreadable, or malformed
// record yields the empty state; Load never fails.
func (s *Store) Load() AppState {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("state record unreadable", "path", s.path, "error", err)
		}
		return AppState{}
	}

	var st AppState
	if err := json.Unmarshal(data, &st); err != nil {
		s.logger.Warn("state record malformed, treating as empty", "path", s.path, "error", err)
		return AppState{}
	}
	return st
}

// Save replaces the record with st. The new content is written to a
// temporary file in the same directory, synced, then renamed over the old
// record, so a power cut leaves either the old or the new record.
func (s *Store) Save(st AppState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("state: marshal: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("state: create directory %s: %w", dir, err)
	}
	if err := atomicWrite(s.path, data, dir); err != nil {
		return fmt.Errorf("state: write %s: %w", s.path, err)
	}
	return nil
}

// Clear removes the record. Clearing an absent record is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("state: remove %s: %w", s.path, err)
	}
	return nil
}

// atomicWrite writes data to path via a temporary file and rename.
func atomicWrite(path string, data []byte, tmpDir string) error {
	tmp, err := os.CreateTemp(tmpDir, ".state-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	success = true
	return nil
}
