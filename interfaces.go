package tiercache

import (
	"github.com/tiercache/tiercache/cache"
	"github.com/tiercache/tiercache/types"
)

// Logger is an alias for cache.Logger.
type Logger = cache.Logger

// Marshaller is an alias for cache.Marshaller.
type Marshaller = cache.Marshaller

// TierStore is an alias for cache.TierStore.
type TierStore = cache.TierStore

// Loader is an alias for cache.Loader.
type Loader = cache.Loader

// LocalStoreFactory is an alias for cache.LocalStoreFactory.
type LocalStoreFactory = cache.LocalStoreFactory

// LocalStoreConfig is an alias for cache.LocalStoreConfig.
type LocalStoreConfig = cache.LocalStoreConfig

// LocalMetrics is an alias for cache.LocalMetrics.
type LocalMetrics = cache.LocalMetrics

// Stats is an alias for cache.Stats.
type Stats = cache.Stats

// ExpirationSpec is an alias for types.ExpirationSpec.
type ExpirationSpec = types.ExpirationSpec

// InvalidationEvent is an alias for types.InvalidationEvent.
type InvalidationEvent = types.InvalidationEvent

// AbsoluteExpiration returns a spec that expires d after the write.
var AbsoluteExpiration = types.AbsoluteExpiration

// SlidingExpiration returns a spec whose deadline renews on each read.
var SlidingExpiration = types.SlidingExpiration

// DefaultLocalStoreConfig returns default local tier configuration for Ristretto.
func DefaultLocalStoreConfig() LocalStoreConfig {
	return cache.DefaultLocalStoreConfig()
}
