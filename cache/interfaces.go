package cache

import (
	"context"

	"github.com/tiercache/tiercache/types"
)

// Logger defines the interface for logging in the cache.
type Logger interface {
	// Debug logs a debug message.
	Debug(msg string, args ...any)

	// Info logs an info message.
	Info(msg string, args ...any)

	// Warn logs a warning message.
	Warn(msg string, args ...any)

	// Error logs an error message.
	Error(msg string, args ...any)
}

// Marshaller defines the interface for serializing values to and from the
// shared tier's wire format.
type Marshaller interface {
	// Marshal serializes a value to bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal deserializes a value from bytes.
	Unmarshal(data []byte, v any) error
}

// TierStore is the capability set both cache tiers implement. The local tier
// is an in-process store; the shared tier is an external store reachable over
// the network. Implementations must be safe for concurrent use, and Remove /
// RemoveByTag must be safe to run concurrently with Gets of the same keys:
// a racing Get may observe the old value or a miss, never a partial value.
type TierStore interface {
	// Get retrieves a value. The boolean reports a hit. For entries written
	// with a sliding spec, a hit renews the entry's deadline.
	Get(ctx context.Context, key string) (any, bool, error)

	// Set stores a value under key with the given expiration and optional
	// invalidation tags. A write replaces the previous entry wholesale.
	Set(ctx context.Context, key string, value any, spec types.ExpirationSpec, tags ...string) error

	// Remove deletes a single key.
	Remove(ctx context.Context, key string) error

	// RemoveByTag deletes every key carrying tag and drops the tag's index.
	RemoveByTag(ctx context.Context, tag string) error

	// Clear deletes all entries.
	Clear(ctx context.Context) error

	// Close releases the tier's resources.
	Close() error
}

// LocalMetrics reports local-tier counters.
type LocalMetrics struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int64
}

// MetricsReporter is implemented by tiers that expose internal counters.
type MetricsReporter interface {
	Metrics() LocalMetrics
}

// LocalStoreFactory creates the local-tier store.
type LocalStoreFactory interface {
	// Create creates a new local tier instance.
	Create() (TierStore, error)
}

// Loader fetches a value from the authoritative origin. It may be slow and
// may fail transiently. Returning ErrNotFound signals a truly absent key,
// which the orchestrator can optionally cache as a short-lived negative entry.
type Loader func(ctx context.Context, key string) (any, error)

// Synchronizer broadcasts invalidation events across cache instances.
type Synchronizer interface {
	// Subscribe starts listening for invalidation events.
	Subscribe(ctx context.Context) error

	// Publish publishes an invalidation event.
	Publish(ctx context.Context, event types.InvalidationEvent) error

	// OnInvalidate registers a callback for received events.
	OnInvalidate(callback func(event types.InvalidationEvent))

	// Close closes the synchronizer.
	Close() error
}

// Stats represents cache statistics.
type Stats struct {
	LocalHits     int64
	LocalMisses   int64
	SharedHits    int64
	SharedMisses  int64
	LoaderCalls   int64
	LoaderErrors  int64
	LockTimeouts  int64
	NegativeHits  int64
	Invalidations int64
}
