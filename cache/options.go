package cache

import (
	"time"
)

// LocalStoreConfig configures the local tier.
type LocalStoreConfig struct {
	// NumCounters is the number of frequency counters (Ristretto only).
	// Recommended: 10 * the expected number of items.
	NumCounters int64

	// MaxCost is the maximum total cost of items (Ristretto only).
	MaxCost int64

	// BufferItems is the size of the admission buffer (Ristretto only).
	// Recommended: 64.
	BufferItems int64

	// IgnoreInternalCost ignores the internal cost of items (Ristretto only).
	IgnoreInternalCost bool

	// MaxSize is the maximum number of items (LRU only).
	MaxSize int
}

// Options configures an Orchestrator instance.
type Options struct {
	// InstanceID uniquely identifies this process instance. Used to filter
	// self-published invalidation events.
	InstanceID string

	// LocalStoreConfig configures the local tier.
	LocalStoreConfig LocalStoreConfig

	// LocalStoreFactory creates the local tier. If nil, defaults to the
	// Ristretto factory.
	LocalStoreFactory LocalStoreFactory

	// SharedStore is the shared tier. If nil, a Redis store is created from
	// RedisAddr/RedisPassword/RedisDB.
	SharedStore TierStore

	// RedisAddr is the Redis server address (e.g., "localhost:6379").
	RedisAddr string

	// RedisPassword is the optional Redis password.
	RedisPassword string

	// RedisDB is the Redis database number.
	RedisDB int

	// InvalidationChannel is the Redis pub/sub channel for invalidation
	// broadcasts. Empty disables cross-instance synchronization. The channel
	// rides on the internally created Redis client, so it only takes effect
	// when SharedStore is nil; with an injected SharedStore it is ignored
	// and a warning is logged.
	InvalidationChannel string

	// Marshaller serializes values for the shared tier. If nil, defaults to
	// JSON.
	Marshaller Marshaller

	// Logger is the logger for debug logging. If nil, defaults to no-op.
	Logger Logger

	// DebugMode enables debug logging.
	DebugMode bool

	// ContextTimeout is the default timeout for cache operations.
	ContextTimeout time.Duration

	// LockWaitTimeout bounds how long a GetOrLoad call waits for a key's
	// lock before failing with ErrLockTimeout.
	LockWaitTimeout time.Duration

	// LocalTTLRatio scales the shared-tier duration down for the local tier,
	// in (0, 1]. The local tier should expire no later than the shared tier;
	// the ratio is a caller policy, not enforced by the orchestrator.
	LocalTTLRatio float64

	// MaxLocalTTL caps the local-tier deadline regardless of the ratio.
	// Zero means no cap.
	MaxLocalTTL time.Duration

	// NegativeCacheTTL, when positive, caches a loader's ErrNotFound as a
	// short-lived negative entry so repeated lookups of a truly absent key
	// skip the origin. Zero (the default) disables negative caching.
	NegativeCacheTTL time.Duration

	// OnError is called when an error occurs in background operations.
	OnError func(error)
}

// DefaultOptions returns default orchestrator options.
func DefaultOptions() Options {
	return Options{
		InstanceID:          "default-instance",
		RedisAddr:           "localhost:6379",
		RedisDB:             0,
		InvalidationChannel: "cache:invalidate",
		ContextTimeout:      5 * time.Second,
		LockWaitTimeout:     10 * time.Second,
		LocalTTLRatio:       0.5,
		MaxLocalTTL:         5 * time.Minute,
		NegativeCacheTTL:    0,
		LocalStoreConfig:    DefaultLocalStoreConfig(),
		LocalStoreFactory:   nil, // Will default to Ristretto in New()
		Marshaller:          nil, // Will default to JSON in New()
		Logger:              nil, // Will default to no-op in New()
		DebugMode:           false,
	}
}

// DefaultLocalStoreConfig returns default local tier configuration.
func DefaultLocalStoreConfig() LocalStoreConfig {
	return LocalStoreConfig{
		NumCounters:        1e7,
		MaxCost:            1 << 30,
		BufferItems:        64,
		IgnoreInternalCost: false,
		MaxSize:            10000,
	}
}

// Validate validates the options.
func (o *Options) Validate() error {
	if o.InstanceID == "" {
		return ErrInvalidConfig
	}
	if o.SharedStore == nil && o.RedisAddr == "" {
		return ErrInvalidConfig
	}
	if o.LockWaitTimeout <= 0 {
		return ErrInvalidConfig
	}
	if o.LocalTTLRatio <= 0 || o.LocalTTLRatio > 1 {
		return ErrInvalidConfig
	}
	if o.NegativeCacheTTL < 0 {
		return ErrInvalidConfig
	}
	if o.LocalStoreFactory == nil {
		if o.LocalStoreConfig.NumCounters <= 0 {
			return ErrInvalidConfig
		}
		if o.LocalStoreConfig.MaxCost <= 0 {
			return ErrInvalidConfig
		}
	}
	return nil
}
