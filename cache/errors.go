package cache

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by a Loader (or by Get) when the origin reports
// the key as absent.
var ErrNotFound = errors.New("key not found")

// ErrCacheClosed is returned when operations are performed on a closed cache.
var ErrCacheClosed = errors.New("cache is closed")

// ErrInvalidConfig is returned when the cache configuration is invalid.
var ErrInvalidConfig = errors.New("invalid cache configuration")

// ErrLockTimeout is returned when waiting for a key's lock exceeds the
// configured bound. The timed-out caller never held the lock.
var ErrLockTimeout = errors.New("timed out waiting for key lock")

// ErrLockInvariant reports two concurrent holders observed for one key.
// It indicates a programming error in the lock registry and is not
// user-recoverable.
var ErrLockInvariant = errors.New("key lock granted to two holders")

// LoadError wraps a failure from the origin loader. Loader failures are
// never cached; a subsequent GetOrLoad retries the loader.
type LoadError struct {
	Key string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %q: %v", e.Key, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
