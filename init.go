package tiercache

import (
	"time"

	"github.com/tiercache/tiercache/cache"
)

// Config configures a tiered cache instance.
type Config struct {
	// InstanceID uniquely identifies this process instance.
	// Used to avoid self-invalidation in pub/sub.
	InstanceID string

	// LocalStoreConfig configures the local tier.
	LocalStoreConfig LocalStoreConfig

	// LocalStoreFactory creates the local tier.
	// If nil, defaults to the Ristretto factory.
	LocalStoreFactory LocalStoreFactory

	// SharedStore is the shared tier. If nil, a Redis store is created
	// from the Redis fields below.
	SharedStore TierStore

	// RedisAddr is the Redis server address (e.g., "localhost:6379").
	RedisAddr string

	// RedisPassword is the optional Redis password.
	RedisPassword string

	// RedisDB is the Redis database number.
	RedisDB int

	// InvalidationChannel is the Redis pub/sub channel for invalidation
	// broadcasts. Empty disables cross-instance synchronization.
	InvalidationChannel string

	// Marshaller serializes values for the shared tier.
	// If nil, defaults to JSON.
	Marshaller Marshaller

	// Logger is the logger for debug logging.
	// If nil, defaults to no-op logger.
	Logger Logger

	// DebugMode enables debug logging.
	DebugMode bool

	// ContextTimeout is the default timeout for cache operations.
	ContextTimeout time.Duration

	// LockWaitTimeout bounds how long a read waits for a key's lock.
	LockWaitTimeout time.Duration

	// LocalTTLRatio scales shared-tier durations down for the local tier.
	LocalTTLRatio float64

	// MaxLocalTTL caps the local-tier deadline. Zero means no cap.
	MaxLocalTTL time.Duration

	// NegativeCacheTTL, when positive, caches origin "not found" results
	// for that long. Zero (the default) disables negative caching.
	NegativeCacheTTL time.Duration

	// OnError is called when an error occurs in background operations.
	OnError func(error)
}

// New creates a new tiered cache instance.
// This is the root-level initialization function that allows users to import
// from the root package.
func New(cfg Config) (*Cache, error) {
	opts := cache.Options{
		InstanceID:          cfg.InstanceID,
		LocalStoreConfig:    cfg.LocalStoreConfig,
		LocalStoreFactory:   cfg.LocalStoreFactory,
		SharedStore:         cfg.SharedStore,
		RedisAddr:           cfg.RedisAddr,
		RedisPassword:       cfg.RedisPassword,
		RedisDB:             cfg.RedisDB,
		InvalidationChannel: cfg.InvalidationChannel,
		Marshaller:          cfg.Marshaller,
		Logger:              cfg.Logger,
		DebugMode:           cfg.DebugMode,
		ContextTimeout:      cfg.ContextTimeout,
		LockWaitTimeout:     cfg.LockWaitTimeout,
		LocalTTLRatio:       cfg.LocalTTLRatio,
		MaxLocalTTL:         cfg.MaxLocalTTL,
		NegativeCacheTTL:    cfg.NegativeCacheTTL,
		OnError:             cfg.OnError,
	}

	return cache.New(opts)
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		InstanceID:          "default-instance",
		RedisAddr:           "localhost:6379",
		RedisDB:             0,
		InvalidationChannel: "cache:invalidate",
		ContextTimeout:      5 * time.Second,
		LockWaitTimeout:     10 * time.Second,
		LocalTTLRatio:       0.5,
		MaxLocalTTL:         5 * time.Minute,
		LocalStoreConfig:    DefaultLocalStoreConfig(),
		LocalStoreFactory:   nil, // Will default to Ristretto in New()
		Marshaller:          nil, // Will default to JSON in New()
		Logger:              nil, // Will default to no-op in New()
		DebugMode:           false,
	}
}

// Cache is an alias for cache.Orchestrator.
type Cache = cache.Orchestrator
