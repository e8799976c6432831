// Package health records the outcome of each app cycle in a small JSON
// file, so the board's state can be inspected over SSH without a display.
package health

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Status describes the most recent cycle.
type Status struct {
	App        string        `json:"app"`
	PID        int           `json:"pid"`
	Started    time.Time     `json:"started"`
	Cycles     int           `json:"cycles"`
	Failures   int           `json:"failures"`
	LastUpdate time.Time     `json:"last_update"`
	LastError  string        `json:"last_error,omitempty"`
	Interval   time.Duration `json:"interval_ns"`
	NextWake   time.Time     `json:"next_wake"`
}

// Healthy reports whether the last cycle finished without an error.
func (s *Status) Healthy() bool {
	return s.LastError == ""
}

// Write stores status as indented JSON at path. The write is atomic:
// content goes to a temporary file first, then is renamed into place to
// prevent partial reads.
func Write(path string, status *Status) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("health: create directory: %w", err)
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("health: marshal status: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("health: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("health: rename: %w", err)
	}
	return nil
}

// Read parses the status file at path.
func Read(path string) (*Status, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("health: read: %w", err)
	}
	var status Status
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("health: unmarshal: %w", err)
	}
	return &status, nil
}
