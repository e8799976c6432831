// Package cache keeps the last good payload each app fetched, on disk, so a
// failed fetch can still render recent content after a restart.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// StoreConfig holds configuration for a cache Store.
type StoreConfig struct {
	// Dir is the directory path where cache files are stored.
	Dir string

	// MaxSizeKB caps the total size of cached payloads. Default: 1024.
	MaxSizeKB int64

	// DefaultTTL is how long an entry may be served after it was fetched.
	// Default: 6 hours. A negative value means entries never expire.
	DefaultTTL time.Duration

	// Now overrides the clock for tests.
	Now func() time.Time
}

// Entry is a cached payload with its fetch time.
type Entry struct {
	Key     string
	Data    []byte
	Fetched time.Time
	Expires time.Time
}

// Age returns how long ago the entry was fetched.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.Fetched)
}

// entryMeta is the JSON structure persisted alongside each cache entry.
type entryMeta struct {
	Key     string `json:"key"`
	Fetched int64  `json:"fetched"` // UnixNano
	TTLNS   int64  `json:"ttl_ns"`  // <0 = no expiry
	Size    int64  `json:"size"`
}

// Store is a disk-backed payload cache. Each entry is two files,
// {hash}.cache (data) and {hash}.meta (JSON metadata), both written with
// temp-file-then-rename. The board runs one app at a time, so Store does
// no background work: expired entries are dropped when read or pruned.
type Store struct {
	cfg StoreConfig
	mu  sync.Mutex
}

// NewStore creates the cache directory if needed and prunes it to size.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Dir == "" {
		return nil, errors.New("cache: no directory configured")
	}
	if cfg.MaxSizeKB <= 0 {
		cfg.MaxSizeKB = 1024
	}
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = 6 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create directory %s: %w", cfg.Dir, err)
	}
	s := &Store{cfg: cfg}
	if _, err := s.Prune(); err != nil {
		return nil, fmt.Errorf("cache: prune: %w", err)
	}
	return s, nil
}

// Get returns the entry for key unless it is missing, unreadable, or
// expired. Expired entries are removed.
func (s *Store) Get(key string) (Entry, bool) {
	h := hashKey(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.readMeta(h)
	if err != nil || meta.Key != key {
		return Entry{}, false
	}
	if s.isExpired(meta) {
		s.removeLocked(h)
		return Entry{}, false
	}
	data, err := os.ReadFile(s.dataPath(h))
	if err != nil {
		return Entry{}, false
	}
	return s.entry(meta, data), true
}

// Put stores value under key with the store's default TTL.
func (s *Store) Put(key string, value []byte) error {
	return s.PutWithTTL(key, value, s.cfg.DefaultTTL)
}

// PutWithTTL stores value under key with a custom TTL. A negative TTL means
// the entry never expires.
func (s *Store) PutWithTTL(key string, value []byte, ttl time.Duration) error {
	h := hashKey(key)
	meta := entryMeta{
		Key:     key,
		Fetched: s.cfg.Now().UnixNano(),
		TTLNS:   int64(ttl),
		Size:    int64(len(value)),
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("cache: marshal meta for %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := atomicWrite(s.dataPath(h), value, s.cfg.Dir); err != nil {
		return fmt.Errorf("cache: write data for %q: %w", key, err)
	}
	if err := atomicWrite(s.metaPath(h), metaBytes, s.cfg.Dir); err != nil {
		_ = os.Remove(s.dataPath(h))
		return fmt.Errorf("cache: write meta for %q: %w", key, err)
	}
	_, err = s.pruneLocked()
	return err
}

// Delete removes a specific entry from the cache.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(hashKey(key))
}

// Prune removes expired and orphaned entries, then the oldest entries until
// the cache fits MaxSizeKB. It returns how many entries were removed.
func (s *Store) Prune() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pruneLocked()
}

// Size returns the total bytes of cached payloads.
func (s *Store) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, m := range s.scanLocked() {
		total += m.Size
	}
	return total
}

// --- internal helpers ---

func (s *Store) entry(meta entryMeta, data []byte) Entry {
	e := Entry{Key: meta.Key, Data: data, Fetched: time.Unix(0, meta.Fetched)}
	if meta.TTLNS >= 0 {
		e.Expires = e.Fetched.Add(time.Duration(meta.TTLNS))
	}
	return e
}

func (s *Store) dataPath(hash string) string {
	return filepath.Join(s.cfg.Dir, hash+".cache")
}

func (s *Store) metaPath(hash string) string {
	return filepath.Join(s.cfg.Dir, hash+".meta")
}

func (s *Store) readMeta(hash string) (entryMeta, error) {
	var m entryMeta
	data, err := os.ReadFile(s.metaPath(hash))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, err
	}
	return m, nil
}

func (s *Store) isExpired(m entryMeta) bool {
	if m.TTLNS < 0 {
		return false
	}
	fetched := time.Unix(0, m.Fetched)
	return s.cfg.Now().Sub(fetched) > time.Duration(m.TTLNS)
}

func (s *Store) removeLocked(hash string) {
	_ = os.Remove(s.dataPath(hash))
	_ = os.Remove(s.metaPath(hash))
}

type scanned struct {
	hash string
	entryMeta
}

// scanLocked returns valid entries and removes broken ones.
func (s *Store) scanLocked() []scanned {
	dirEntries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		return nil
	}
	var out []scanned
	for _, e := range dirEntries {
		name := e.Name()
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(name, ".tmp-") {
			_ = os.Remove(filepath.Join(s.cfg.Dir, name))
			continue
		}
		if !strings.HasSuffix(name, ".meta") {
			continue
		}
		hash := strings.TrimSuffix(name, ".meta")
		if _, err := os.Stat(s.dataPath(hash)); err != nil {
			_ = os.Remove(s.metaPath(hash))
			continue
		}
		meta, err := s.readMeta(hash)
		if err != nil {
			s.removeLocked(hash)
			continue
		}
		out = append(out, scanned{hash: hash, entryMeta: meta})
	}
	return out
}

func (s *Store) pruneLocked() (int, error) {
	entries := s.scanLocked()
	removed := 0

	var live []scanned
	var total int64
	for _, e := range entries {
		if s.isExpired(e.entryMeta) {
			s.removeLocked(e.hash)
			removed++
			continue
		}
		live = append(live, e)
		total += e.Size
	}

	limit := s.cfg.MaxSizeKB * 1024
	if total <= limit {
		return removed, nil
	}
	sort.Slice(live, func(i, j int) bool { return live[i].Fetched < live[j].Fetched })
	for _, e := range live {
		if total <= limit {
			break
		}
		s.removeLocked(e.hash)
		total -= e.Size
		removed++
	}
	return removed, nil
}

// atomicWrite writes data to path via a temporary file and rename.
func atomicWrite(path string, data []byte, tmpDir string) error {
	tmp, err := os.CreateTemp(tmpDir, ".tmp-*")
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
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	success = true
	return nil
}
