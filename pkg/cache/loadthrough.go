package cache

import (
	"context"
	"fmt"
	"time"
)

// Result is the outcome of LoadThrough.
type Result struct {
	Data    []byte
	Fetched time.Time

	// Stale is set when the fetch failed and Data came from the cache.
	Stale bool

	// FetchErr is the fetch failure behind a stale result.
	FetchErr error

	// CacheErr is set when a fresh payload could not be written back.
	CacheErr error
}

// LoadThrough calls fetch and caches its payload under key. When fetch
// fails it falls back to the cached payload, if one is still valid. A nil
// store disables caching.
func LoadThrough(ctx context.Context, s *Store, key string, fetch func(context.Context) ([]byte, error)) (Result, error) {
	return LoadThroughTTL(ctx, s, key, 0, fetch)
}

// LoadThroughTTL is LoadThrough with a per-key TTL. Zero uses the store
// default.
func LoadThroughTTL(ctx context.Context, s *Store, key string, ttl time.Duration, fetch func(context.Context) ([]byte, error)) (Result, error) {
	data, err := fetch(ctx)
	if err == nil {
		res := Result{Data: data, Fetched: time.Now()}
		if s != nil {
			res.Fetched = s.cfg.Now()
			if ttl == 0 {
				ttl = s.cfg.DefaultTTL
			}
			if perr := s.PutWithTTL(key, data, ttl); perr != nil {
				res.CacheErr = fmt.Errorf("cache: store %q: %w", key, perr)
			}
		}
		return res, nil
	}
	if s == nil {
		return Result{}, err
	}
	e, ok := s.Get(key)
	if !ok {
		return Result{}, err
	}
	return Result{Data: e.Data, Fetched: e.Fetched, Stale: true, FetchErr: err}, nil
}
