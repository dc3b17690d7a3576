package cache

import (
	"context"
	"sync/atomic"

	lfu "github.com/dgraph-io/ristretto"

	"github.com/tiercache/tiercache/types"
)

// LFUStoreFactory creates Ristretto-backed local tiers.
type LFUStoreFactory struct {
	config LocalStoreConfig
}

// NewLFUStoreFactory creates a new Ristretto store factory.
func NewLFUStoreFactory(config LocalStoreConfig) LocalStoreFactory {
	return &LFUStoreFactory{config: config}
}

// Create creates a new Ristretto store instance.
func (f *LFUStoreFactory) Create() (TierStore, error) {
	return NewLFUStore(f.config)
}

// localEntry is what the local tiers actually store: the value plus the
// spec it was written with, so sliding reads know how far to push the
// deadline.
type localEntry struct {
	value any
	spec  types.ExpirationSpec
}

// LFUStore is a local tier backed by Ristretto.
type LFUStore struct {
	cache     *lfu.Cache
	index     *tagIndex
	hits      int64
	misses    int64
	evictions int64
}

// NewLFUStore creates a new Ristretto-backed local tier.
func NewLFUStore(config LocalStoreConfig) (*LFUStore, error) {
	s := &LFUStore{index: newTagIndex()}

	cache, err := lfu.NewCache(&lfu.Config{
		NumCounters:        config.NumCounters,
		MaxCost:            config.MaxCost,
		BufferItems:        config.BufferItems,
		IgnoreInternalCost: config.IgnoreInternalCost,
		OnEvict: func(item *lfu.Item) {
			atomic.AddInt64(&s.evictions, 1)
		},
	})
	if err != nil {
		return nil, err
	}

	s.cache = cache
	return s, nil
}

// Get retrieves a value. A hit on a sliding entry re-admits it with a fresh
// TTL, renewing the deadline.
func (s *LFUStore) Get(ctx context.Context, key string) (any, bool, error) {
	v, found := s.cache.Get(key)
	if !found {
		atomic.AddInt64(&s.misses, 1)
		return nil, false, nil
	}

	entry, ok := v.(localEntry)
	if !ok {
		atomic.AddInt64(&s.misses, 1)
		return nil, false, nil
	}

	atomic.AddInt64(&s.hits, 1)
	if entry.spec.Kind == types.Sliding {
		s.cache.SetWithTTL(key, entry, 1, entry.spec.Duration)
	}
	return entry.value, true, nil
}

// Set stores a value. Ristretto enforces the TTL; the Wait call makes the
// write visible to an immediately following Get.
func (s *LFUStore) Set(ctx context.Context, key string, value any, spec types.ExpirationSpec, tags ...string) error {
	s.index.add(key, tags)
	s.cache.SetWithTTL(key, localEntry{value: value, spec: spec}, 1, spec.Duration)
	s.cache.Wait()
	return nil
}

// Remove deletes a single key.
func (s *LFUStore) Remove(ctx context.Context, key string) error {
	s.index.drop(key)
	s.cache.Del(key)
	return nil
}

// RemoveByTag deletes every key carrying tag.
func (s *LFUStore) RemoveByTag(ctx context.Context, tag string) error {
	for _, key := range s.index.take(tag) {
		s.cache.Del(key)
	}
	return nil
}

// Clear deletes all entries.
func (s *LFUStore) Clear(ctx context.Context) error {
	s.index.reset()
	s.cache.Clear()
	return nil
}

// Close closes the store.
func (s *LFUStore) Close() error {
	s.cache.Close()
	return nil
}

// Metrics returns store counters.
func (s *LFUStore) Metrics() LocalMetrics {
	return LocalMetrics{
		Hits:      atomic.LoadInt64(&s.hits),
		Misses:    atomic.LoadInt64(&s.misses),
		Evictions: atomic.LoadInt64(&s.evictions),
		Size:      int64(s.cache.MaxCost()),
	}
}
