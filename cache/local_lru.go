package cache

import (
	"context"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tiercache/tiercache/types"
)

// LRUStoreFactory creates LRU-backed local tiers.
type LRUStoreFactory struct {
	maxSize int
}

// NewLRUStoreFactory creates a new LRU store factory.
func NewLRUStoreFactory(maxSize int) LocalStoreFactory {
	return &LRUStoreFactory{maxSize: maxSize}
}

// Create creates a new LRU store instance.
func (f *LRUStoreFactory) Create() (TierStore, error) {
	return NewLRUStore(f.maxSize)
}

// lruEntry carries the value plus its materialized deadline. golang-lru has
// no per-entry TTL, so expiration is checked lazily on read.
type lruEntry struct {
	value    any
	spec     types.ExpirationSpec
	deadline time.Time
}

// LRUStore is a local tier backed by golang-lru.
type LRUStore struct {
	cache     *lru.Cache[string, lruEntry]
	index     *tagIndex
	hits      int64
	misses    int64
	evictions int64
	maxSize   int64
}

// NewLRUStore creates a new LRU-backed local tier.
func NewLRUStore(maxSize int) (*LRUStore, error) {
	s := &LRUStore{index: newTagIndex(), maxSize: int64(maxSize)}

	cache, err := lru.NewWithEvict[string, lruEntry](maxSize, func(key string, _ lruEntry) {
		atomic.AddInt64(&s.evictions, 1)
	})
	if err != nil {
		return nil, err
	}

	s.cache = cache
	return s, nil
}

// Get retrieves a value, discarding entries whose deadline has passed. A hit
// on a sliding entry pushes the deadline forward.
func (s *LRUStore) Get(ctx context.Context, key string) (any, bool, error) {
	entry, found := s.cache.Get(key)
	if !found {
		atomic.AddInt64(&s.misses, 1)
		return nil, false, nil
	}

	if !entry.deadline.IsZero() && time.Now().After(entry.deadline) {
		s.cache.Remove(key)
		s.index.drop(key)
		atomic.AddInt64(&s.misses, 1)
		return nil, false, nil
	}

	atomic.AddInt64(&s.hits, 1)
	if entry.spec.Kind == types.Sliding {
		entry.deadline = time.Now().Add(entry.spec.Duration)
		s.cache.Add(key, entry)
	}
	return entry.value, true, nil
}

// Set stores a value under key.
func (s *LRUStore) Set(ctx context.Context, key string, value any, spec types.ExpirationSpec, tags ...string) error {
	entry := lruEntry{value: value, spec: spec}
	if spec.Expires() {
		entry.deadline = time.Now().Add(spec.Duration)
	}
	s.index.add(key, tags)
	s.cache.Add(key, entry)
	return nil
}

// Remove deletes a single key.
func (s *LRUStore) Remove(ctx context.Context, key string) error {
	s.index.drop(key)
	s.cache.Remove(key)
	return nil
}

// RemoveByTag deletes every key carrying tag.
func (s *LRUStore) RemoveByTag(ctx context.Context, tag string) error {
	for _, key := range s.index.take(tag) {
		s.cache.Remove(key)
	}
	return nil
}

// Clear deletes all entries.
func (s *LRUStore) Clear(ctx context.Context) error {
	s.index.reset()
	s.cache.Purge()
	return nil
}

// Close closes the store.
func (s *LRUStore) Close() error {
	s.cache.Purge()
	return nil
}

// Metrics returns store counters.
func (s *LRUStore) Metrics() LocalMetrics {
	return LocalMetrics{
		Hits:      atomic.LoadInt64(&s.hits),
		Misses:    atomic.LoadInt64(&s.misses),
		Evictions: atomic.LoadInt64(&s.evictions),
		Size:      s.maxSize,
	}
}
