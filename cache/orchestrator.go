package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tiercache/tiercache/storage"
	cachesync "github.com/tiercache/tiercache/sync"
	"github.com/tiercache/tiercache/types"
)

// Orchestrator is the stampede-safe two-tier cache-aside coordinator. Reads
// probe the local tier, then the shared tier, then the origin loader, with a
// per-key lock guaranteeing at most one in-flight origin fetch per key within
// this process instance. Writes invalidate sibling instances' local tiers via
// pub/sub rather than propagating values.
type Orchestrator struct {
	local        TierStore
	shared       TierStore
	locks        *KeyLockRegistry
	synchronizer Synchronizer
	logger       Logger
	options      Options
	closed       int32
	stats        Stats
}

// New creates a new Orchestrator instance.
func New(opts Options) (*Orchestrator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	// Set defaults for optional fields
	if opts.LocalStoreFactory == nil {
		opts.LocalStoreFactory = NewLFUStoreFactory(opts.LocalStoreConfig)
	}
	if opts.Marshaller == nil {
		opts.Marshaller = NewJSONMarshaller()
	}
	if opts.Logger == nil {
		opts.Logger = NewNoOpLogger()
	}
	if opts.ContextTimeout <= 0 {
		opts.ContextTimeout = 5 * time.Second
	}

	local, err := opts.LocalStoreFactory.Create()
	if err != nil {
		return nil, err
	}

	shared := opts.SharedStore
	var synchronizer Synchronizer
	if shared == nil {
		rs, err := storage.NewRedisStore(storage.RedisConfig{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		}, opts.Marshaller)
		if err != nil {
			local.Close()
			return nil, err
		}
		shared = rs
		if opts.InvalidationChannel != "" {
			synchronizer = cachesync.NewPubSubSynchronizer(rs.Client(), opts.InvalidationChannel, opts.InstanceID)
		}
	} else if opts.InvalidationChannel != "" {
		// The synchronizer rides on the internally created Redis client, so
		// an injected shared tier runs without cross-instance broadcasts.
		opts.Logger.Warn("InvalidationChannel is ignored when SharedStore is injected",
			"channel", opts.InvalidationChannel)
	}

	o := &Orchestrator{
		local:        local,
		shared:       shared,
		locks:        NewKeyLockRegistry(),
		synchronizer: synchronizer,
		logger:       opts.Logger,
		options:      opts,
	}

	if synchronizer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), opts.ContextTimeout)
		defer cancel()

		if err := synchronizer.Subscribe(ctx); err != nil {
			o.Close()
			return nil, err
		}
		synchronizer.OnInvalidate(o.handleInvalidation)
	}

	return o, nil
}

// GetOrLoad returns the value for key, serving it from the local tier, the
// shared tier, or the loader, in that order. Of N concurrent callers missing
// on a cold key, exactly one executes the loader; the rest observe its result
// after the lock is released. Loader failures are returned as *LoadError and
// never cached. Waiting for the key's lock is bounded by LockWaitTimeout and
// surfaces ErrLockTimeout.
func (o *Orchestrator) GetOrLoad(ctx context.Context, key string, loader Loader, spec types.ExpirationSpec, tags ...string) (any, error) {
	if atomic.LoadInt32(&o.closed) != 0 {
		return nil, ErrCacheClosed
	}

	// Fast path, no lock.
	if value, found, err := o.probeTiers(ctx, key, spec, tags); found {
		return value, err
	}

	lockCtx, cancel := context.WithTimeout(ctx, o.options.LockWaitTimeout)
	handle, err := o.locks.Acquire(lockCtx, key)
	cancel()
	if err != nil {
		atomic.AddInt64(&o.stats.LockTimeouts, 1)
		if o.options.DebugMode {
			o.logger.Warn("GetOrLoad: lock wait failed", "key", key, "error", err)
		}
		return nil, err
	}
	defer handle.Release()

	// Double-check: another caller may have populated a tier while this one
	// waited on the lock.
	if value, found, err := o.probeTiers(ctx, key, spec, tags); found {
		if o.options.DebugMode {
			o.logger.Debug("GetOrLoad: double-check hit", "key", key)
		}
		return value, err
	}

	atomic.AddInt64(&o.stats.LoaderCalls, 1)
	if o.options.DebugMode {
		o.logger.Debug("GetOrLoad: invoking loader", "key", key)
	}

	value, err := loader(ctx, key)
	if err != nil {
		atomic.AddInt64(&o.stats.LoaderErrors, 1)
		if errors.Is(err, ErrNotFound) && o.options.NegativeCacheTTL > 0 {
			o.writeTiers(ctx, key, types.NegativeEntry{}, types.AbsoluteExpiration(o.options.NegativeCacheTTL), nil)
		}
		return nil, &LoadError{Key: key, Err: err}
	}

	o.writeTiers(ctx, key, value, spec, tags)
	return value, nil
}

// Get probes the tiers only, without a loader or lock. It returns ErrNotFound
// on a full miss.
func (o *Orchestrator) Get(ctx context.Context, key string) (any, error) {
	if atomic.LoadInt32(&o.closed) != 0 {
		return nil, ErrCacheClosed
	}

	value, found, err := o.probeTiers(ctx, key, types.ExpirationSpec{}, nil)
	if !found {
		return nil, ErrNotFound
	}
	return value, err
}

// Set writes the value through both tiers and tells sibling instances to
// drop their local copies.
func (o *Orchestrator) Set(ctx context.Context, key string, value any, spec types.ExpirationSpec, tags ...string) error {
	if atomic.LoadInt32(&o.closed) != 0 {
		return ErrCacheClosed
	}

	if err := o.shared.Set(ctx, key, value, spec, tags...); err != nil {
		o.reportError(err)
		if o.options.DebugMode {
			o.logger.Error("Set: shared tier write failed", "key", key, "error", err)
		}
		return err
	}
	if err := o.local.Set(ctx, key, value, o.localSpec(spec), tags...); err != nil {
		o.reportError(err)
		return err
	}

	o.publish(ctx, types.InvalidationEvent{
		Key:    key,
		Sender: o.options.InstanceID,
		Action: types.Invalidate,
	})
	return nil
}

// Invalidate removes key from both tiers so the next read re-fetches fresh
// data from the origin. It does not take the key's lock; an in-flight get
// racing with the invalidation may observe the old value or a miss.
func (o *Orchestrator) Invalidate(ctx context.Context, key string) error {
	if atomic.LoadInt32(&o.closed) != 0 {
		return ErrCacheClosed
	}

	atomic.AddInt64(&o.stats.Invalidations, 1)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return o.local.Remove(gctx, key) })
	g.Go(func() error { return o.shared.Remove(gctx, key) })
	if err := g.Wait(); err != nil {
		o.reportError(err)
		return err
	}

	o.publish(ctx, types.InvalidationEvent{
		Key:    key,
		Sender: o.options.InstanceID,
		Action: types.Invalidate,
	})
	return nil
}

// InvalidateTag removes every key carrying tag from both tiers and drops the
// tag's index entry.
func (o *Orchestrator) InvalidateTag(ctx context.Context, tag string) error {
	if atomic.LoadInt32(&o.closed) != 0 {
		return ErrCacheClosed
	}

	atomic.AddInt64(&o.stats.Invalidations, 1)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return o.local.RemoveByTag(gctx, tag) })
	g.Go(func() error { return o.shared.RemoveByTag(gctx, tag) })
	if err := g.Wait(); err != nil {
		o.reportError(err)
		return err
	}

	o.publish(ctx, types.InvalidationEvent{
		Tag:    tag,
		Sender: o.options.InstanceID,
		Action: types.InvalidateTag,
	})
	return nil
}

// InvalidateAll removes every entry from both tiers.
func (o *Orchestrator) InvalidateAll(ctx context.Context) error {
	if atomic.LoadInt32(&o.closed) != 0 {
		return ErrCacheClosed
	}

	atomic.AddInt64(&o.stats.Invalidations, 1)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return o.local.Clear(gctx) })
	g.Go(func() error { return o.shared.Clear(gctx) })
	if err := g.Wait(); err != nil {
		o.reportError(err)
		return err
	}

	o.publish(ctx, types.InvalidationEvent{
		Key:    "*",
		Sender: o.options.InstanceID,
		Action: types.Clear,
	})
	return nil
}

// Close closes the cache and releases all resources.
func (o *Orchestrator) Close() error {
	if !atomic.CompareAndSwapInt32(&o.closed, 0, 1) {
		return nil
	}

	var errs []error

	if o.synchronizer != nil {
		if err := o.synchronizer.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := o.shared.Close(); err != nil {
		errs = append(errs, err)
	}

	if err := o.local.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Stats returns the orchestrator's operation counters.
func (o *Orchestrator) Stats() Stats {
	s := Stats{
		LocalHits:     atomic.LoadInt64(&o.stats.LocalHits),
		LocalMisses:   atomic.LoadInt64(&o.stats.LocalMisses),
		SharedHits:    atomic.LoadInt64(&o.stats.SharedHits),
		SharedMisses:  atomic.LoadInt64(&o.stats.SharedMisses),
		LoaderCalls:   atomic.LoadInt64(&o.stats.LoaderCalls),
		LoaderErrors:  atomic.LoadInt64(&o.stats.LoaderErrors),
		LockTimeouts:  atomic.LoadInt64(&o.stats.LockTimeouts),
		NegativeHits:  atomic.LoadInt64(&o.stats.NegativeHits),
		Invalidations: atomic.LoadInt64(&o.stats.Invalidations),
	}
	return s
}

// LocalMetrics reports the local tier's own counters. The boolean is false
// when the tier does not expose them.
func (o *Orchestrator) LocalMetrics() (LocalMetrics, bool) {
	if r, ok := o.local.(MetricsReporter); ok {
		return r.Metrics(), true
	}
	return LocalMetrics{}, false
}

// LockRegistryLen reports how many key locks are currently live.
func (o *Orchestrator) LockRegistryLen() int {
	return o.locks.Len()
}

// taggedGetter is implemented by shared tiers that can report the tags an
// entry was written with, so a backfill can register them in the local tag
// index.
type taggedGetter interface {
	GetWithTags(ctx context.Context, key string) (any, []string, bool, error)
}

// probeTiers checks local then shared. On a shared hit the value is
// backfilled into the local tier with the derived spec and the entry's tags,
// keeping the backfilled copy reachable by tag invalidation. Tier errors
// degrade to misses so an outage falls through to the origin instead of
// failing the read. A cached negative entry counts as a hit carrying
// ErrNotFound.
func (o *Orchestrator) probeTiers(ctx context.Context, key string, spec types.ExpirationSpec, tags []string) (any, bool, error) {
	value, found, err := o.local.Get(ctx, key)
	if err != nil {
		o.reportError(err)
		if o.options.DebugMode {
			o.logger.Warn("probe: local tier error, treating as miss", "key", key, "error", err)
		}
	}
	if found {
		atomic.AddInt64(&o.stats.LocalHits, 1)
		if _, neg := value.(types.NegativeEntry); neg {
			atomic.AddInt64(&o.stats.NegativeHits, 1)
			return nil, true, ErrNotFound
		}
		return value, true, nil
	}
	atomic.AddInt64(&o.stats.LocalMisses, 1)

	entryTags := tags
	if tg, ok := o.shared.(taggedGetter); ok {
		var storedTags []string
		value, storedTags, found, err = tg.GetWithTags(ctx, key)
		if len(storedTags) > 0 {
			entryTags = storedTags
		}
	} else {
		value, found, err = o.shared.Get(ctx, key)
	}
	if err != nil {
		o.reportError(err)
		if o.options.DebugMode {
			o.logger.Warn("probe: shared tier error, treating as miss", "key", key, "error", err)
		}
	}
	if !found {
		atomic.AddInt64(&o.stats.SharedMisses, 1)
		return nil, false, nil
	}

	atomic.AddInt64(&o.stats.SharedHits, 1)
	if _, neg := value.(types.NegativeEntry); neg {
		atomic.AddInt64(&o.stats.NegativeHits, 1)
		return nil, true, ErrNotFound
	}

	if err := o.local.Set(ctx, key, value, o.localSpec(spec), entryTags...); err != nil {
		o.reportError(err)
	} else if o.options.DebugMode {
		o.logger.Debug("probe: backfilled local tier", "key", key)
	}
	return value, true, nil
}

// writeTiers stores the loader's result: shared tier with the caller's spec,
// local tier with the derived spec. Shared-tier failures are degraded, not
// fatal, so a shared outage does not lose the fetched value.
func (o *Orchestrator) writeTiers(ctx context.Context, key string, value any, spec types.ExpirationSpec, tags []string) {
	if err := o.shared.Set(ctx, key, value, spec, tags...); err != nil {
		o.reportError(err)
		if o.options.DebugMode {
			o.logger.Warn("write: shared tier failed", "key", key, "error", err)
		}
	}
	if err := o.local.Set(ctx, key, value, o.localSpec(spec), tags...); err != nil {
		o.reportError(err)
	}
}

// localSpec derives the local-tier expiration from the shared spec.
func (o *Orchestrator) localSpec(spec types.ExpirationSpec) types.ExpirationSpec {
	return deriveLocalSpec(spec, o.options.LocalTTLRatio, o.options.MaxLocalTTL)
}

// handleInvalidation applies events published by sibling instances to the
// local tier. The shared tier was already updated by the sender.
func (o *Orchestrator) handleInvalidation(event types.InvalidationEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), o.options.ContextTimeout)
	defer cancel()

	switch event.Action {
	case types.Invalidate:
		if err := o.local.Remove(ctx, event.Key); err != nil {
			o.reportError(err)
		}
		atomic.AddInt64(&o.stats.Invalidations, 1)
	case types.InvalidateTag:
		if err := o.local.RemoveByTag(ctx, event.Tag); err != nil {
			o.reportError(err)
		}
		atomic.AddInt64(&o.stats.Invalidations, 1)
	case types.Clear:
		if err := o.local.Clear(ctx); err != nil {
			o.reportError(err)
		}
		atomic.AddInt64(&o.stats.Invalidations, 1)
	default:
		if o.options.DebugMode {
			o.logger.Warn("sync: unknown action", "action", event.Action, "key", event.Key, "sender", event.Sender)
		}
	}
}

// publish sends an invalidation event to sibling instances. Publish failures
// are reported, not returned: the caller's own tiers are already consistent.
func (o *Orchestrator) publish(ctx context.Context, event types.InvalidationEvent) {
	if o.synchronizer == nil {
		return
	}
	if err := o.synchronizer.Publish(ctx, event); err != nil {
		o.reportError(err)
		if o.options.DebugMode {
			o.logger.Warn("publish: failed", "action", event.Action, "key", event.Key, "error", err)
		}
	}
}

func (o *Orchestrator) reportError(err error) {
	if o.options.OnError != nil {
		o.options.OnError(err)
	}
}

