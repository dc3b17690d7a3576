package tiercache

import "github.com/tiercache/tiercache/cache"

// ErrNotFound is returned when a key is absent from the cache and the origin.
var ErrNotFound = cache.ErrNotFound

// ErrCacheClosed is returned when operations are performed on a closed cache.
var ErrCacheClosed = cache.ErrCacheClosed

// ErrInvalidConfig is returned when the cache configuration is invalid.
var ErrInvalidConfig = cache.ErrInvalidConfig

// ErrLockTimeout is returned when waiting for a key's lock exceeds the bound.
var ErrLockTimeout = cache.ErrLockTimeout

// ErrLockInvariant reports two concurrent holders observed for one key.
var ErrLockInvariant = cache.ErrLockInvariant

// LoadError wraps a failure from the origin loader.
type LoadError = cache.LoadError
