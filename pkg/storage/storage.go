// Package storage mounts the removable card that holds pictures, status
// icons and downloaded images.
package storage

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrUnavailable reports a card that could not be mounted or read. Apps
// that need the card stop using it for the rest of the session.
var ErrUnavailable = errors.New("storage: unavailable")

// ErrNoFiles is returned by PickRandom when nothing matches.
var ErrNoFiles = errors.New("storage: no matching files")

// Config describes where the card lives.
type Config struct {
	// MountPoint is the directory the card is mounted on.
	MountPoint string

	// Device is the block device to mount. Empty means the operating
	// system mounts the card and MountPoint only has to exist.
	Device string

	// FSType is the filesystem type passed to mount(2).
	FSType string
}

// Medium is a mounted card.
type Medium struct {
	cfg Config

	mu      sync.Mutex
	mounted bool
	owned   bool
}

// New returns an unmounted Medium.
func New(cfg Config) *Medium {
	if cfg.FSType == "" {
		cfg.FSType = "vfat"
	}
	return &Medium{cfg: cfg}
}

// Mount makes the card readable. Mounting twice is a no-op.
func (m *Medium) Mount() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mounted {
		return nil
	}
	if m.cfg.MountPoint == "" {
		return fmt.Errorf("%w: no mount point configured", ErrUnavailable)
	}
	if m.cfg.Device != "" {
		if err := os.MkdirAll(m.cfg.MountPoint, 0o755); err != nil {
			return fmt.Errorf("%w: create %s: %w", ErrUnavailable, m.cfg.MountPoint, err)
		}
		if err := mount(m.cfg.Device, m.cfg.MountPoint, m.cfg.FSType); err != nil {
			return fmt.Errorf("%w: mount %s on %s: %w", ErrUnavailable, m.cfg.Device, m.cfg.MountPoint, err)
		}
		m.owned = true
	}
	fi, err := os.Stat(m.cfg.MountPoint)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrUnavailable, m.cfg.MountPoint)
	}
	m.mounted = true
	return nil
}

// Unmount releases a card this Medium mounted itself.
func (m *Medium) Unmount() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.mounted {
		return nil
	}
	m.mounted = false
	if !m.owned {
		return nil
	}
	m.owned = false
	if err := unmount(m.cfg.MountPoint); err != nil {
		return fmt.Errorf("storage: unmount %s: %w", m.cfg.MountPoint, err)
	}
	return nil
}

// Mounted reports whether Mount succeeded.
func (m *Medium) Mounted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mounted
}

// Path joins elem onto the mount point.
func (m *Medium) Path(elem ...string) string {
	return filepath.Join(append([]string{m.cfg.MountPoint}, elem...)...)
}

// List returns paths of regular, non-hidden files in dir (relative to the
// mount point) whose extension is one of exts, compared case-insensitively.
// With no exts every file is listed. Results are sorted by name.
func (m *Medium) List(dir string, exts ...string) ([]string, error) {
	if !m.Mounted() {
		return nil, ErrUnavailable
	}
	want := make(map[string]bool, len(exts))
	for _, e := range exts {
		want[strings.ToLower(e)] = true
	}

	root := m.Path(dir)
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrUnavailable, root, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if len(want) > 0 && !want[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		files = append(files, filepath.Join(root, name))
	}
	return files, nil
}

// PickRandom selects one file from List.
func (m *Medium) PickRandom(dir string, exts ...string) (string, error) {
	files, err := m.List(dir, exts...)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoFiles, m.Path(dir))
	}
	return files[rand.IntN(len(files))], nil
}

// Exists reports whether a file exists under the mount point.
func (m *Medium) Exists(elem ...string) bool {
	if !m.Mounted() {
		return false
	}
	_, err := os.Stat(m.Path(elem...))
	return err == nil
}
