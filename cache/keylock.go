package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// KeyLockRegistry hands out one exclusive lock per cache key, created lazily
// on first contention and reclaimed once no caller holds or waits on it.
// Locks for distinct keys are fully independent; the registry's own mutex
// only guards map insertion and removal, never a fetch in progress.
type KeyLockRegistry struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

// keyLock is a semaphore-style lock with a waiter refcount. The channel has
// capacity one; sending acquires, receiving releases. refs counts the holder
// plus every waiter, so the lock is only evicted from the registry when refs
// drops to zero, and eviction and get-or-create share the registry mutex.
type keyLock struct {
	ch   chan struct{}
	refs int
	held int32
}

// LockHandle represents a held key lock. It must be released exactly once;
// Release is safe on every exit path of the holder.
type LockHandle struct {
	reg      *KeyLockRegistry
	key      string
	lock     *keyLock
	released int32
}

// NewKeyLockRegistry creates an empty registry.
func NewKeyLockRegistry() *KeyLockRegistry {
	return &KeyLockRegistry{locks: make(map[string]*keyLock)}
}

// Acquire blocks the calling goroutine until the key's exclusive lock is
// available or ctx expires. On success the returned handle must be released.
// A deadline hit surfaces ErrLockTimeout; any other context error is
// returned as-is. The timed-out caller never held the lock.
func (r *KeyLockRegistry) Acquire(ctx context.Context, key string) (*LockHandle, error) {
	r.mu.Lock()
	l, ok := r.locks[key]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		r.locks[key] = l
	}
	l.refs++
	r.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		if !atomic.CompareAndSwapInt32(&l.held, 0, 1) {
			<-l.ch
			r.unref(key, l)
			return nil, ErrLockInvariant
		}
		return &LockHandle{reg: r, key: key, lock: l}, nil
	case <-ctx.Done():
		r.unref(key, l)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrLockTimeout
		}
		return nil, ctx.Err()
	}
}

// Release releases the lock and wakes the next waiter, if any. Calling it
// more than once is a no-op.
func (h *LockHandle) Release() {
	if !atomic.CompareAndSwapInt32(&h.released, 0, 1) {
		return
	}
	atomic.StoreInt32(&h.lock.held, 0)
	<-h.lock.ch
	h.reg.unref(h.key, h.lock)
}

// unref drops one reference and evicts the lock once nobody holds or waits
// on it. The registry mutex makes eviction atomic with get-or-create: a
// newly arriving acquirer either finds this lock before eviction (refs > 0)
// or creates a fresh one after.
func (r *KeyLockRegistry) unref(key string, l *keyLock) {
	r.mu.Lock()
	l.refs--
	if l.refs == 0 && r.locks[key] == l {
		delete(r.locks, key)
	}
	r.mu.Unlock()
}

// Len reports the number of locks currently in the registry. After load
// subsides it returns to zero; tests use it to assert reclamation.
func (r *KeyLockRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}
