package memory

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/ducdang03/money-ez-ai/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Store is an in-process db.Store backed by ristretto. It serves
// single-instance deployments that do not warrant a Redis server.
type Store struct {
	cache *ristretto.Cache[string, []byte]
}

// NewStore creates an in-memory store. maxBytes bounds the total cached
// payload size; values <= 0 fall back to 256 MiB.
func NewStore(maxBytes int64) (*Store, error) {
	if maxBytes <= 0 {
		maxBytes = 256 << 20
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 1e6,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &Store{cache: cache}, nil
}

// Get retrieves a value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := s.cache.Get(key)
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return data, nil
}

// Set stores a value at the given key. Admission is best-effort: a
// rejected entry simply misses later.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.cache.Set(key, value, int64(len(value)))
	return nil
}

// SetWithTTL stores a value with an expiration.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.cache.SetWithTTL(key, value, int64(len(value)), ttl)
	return nil
}

// Ping always succeeds for the in-process store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close releases the cache resources.
func (s *Store) Close() {
	s.cache.Close()
}

// WaitForReady returns immediately for the in-process store.
func (s *Store) WaitForReady(_ context.Context, _ time.Duration) error { return nil }
