// Package types holds the data types shared between the cache core and its
// storage and synchronization collaborators.
package types

import "time"

// ExpirationKind selects how an entry's deadline is computed.
type ExpirationKind uint8

const (
	// NoExpiration leaves the entry without an automatic deadline.
	NoExpiration ExpirationKind = iota

	// Absolute expires the entry at writeTime + Duration, regardless of access.
	Absolute

	// Sliding resets the entry's deadline to lastAccess + Duration on every
	// successful read.
	Sliding
)

// String returns the kind's name.
func (k ExpirationKind) String() string {
	switch k {
	case Absolute:
		return "absolute"
	case Sliding:
		return "sliding"
	default:
		return "none"
	}
}

// ExpirationSpec describes the expiration attached to a cache write.
// Exactly one kind applies per entry; Absolute and Sliding are never combined.
type ExpirationSpec struct {
	Kind     ExpirationKind `json:"kind"`
	Duration time.Duration  `json:"duration"`
}

// AbsoluteExpiration returns a spec that expires d after the write.
func AbsoluteExpiration(d time.Duration) ExpirationSpec {
	return ExpirationSpec{Kind: Absolute, Duration: d}
}

// SlidingExpiration returns a spec whose deadline renews on each read.
func SlidingExpiration(d time.Duration) ExpirationSpec {
	return ExpirationSpec{Kind: Sliding, Duration: d}
}

// Valid reports whether the spec is internally consistent: expiring kinds
// need a positive duration, NoExpiration must not carry one.
func (s ExpirationSpec) Valid() bool {
	if s.Kind == NoExpiration {
		return s.Duration == 0
	}
	return s.Duration > 0
}

// Expires reports whether the spec carries a deadline at all.
func (s ExpirationSpec) Expires() bool {
	return s.Kind != NoExpiration
}

// NegativeEntry is the sentinel cached in place of a value when negative
// caching is enabled and the origin reported the key as absent.
type NegativeEntry struct{}

// Action identifies the kind of a synchronization event.
type Action string

const (
	// Invalidate drops a single key from receivers' local tiers.
	Invalidate Action = "invalidate"

	// InvalidateTag drops every key carrying the tag from receivers' local tiers.
	InvalidateTag Action = "invalidate_tag"

	// Clear drops receivers' entire local tiers.
	Clear Action = "clear"
)

// InvalidationEvent is broadcast to sibling instances after a write or an
// explicit invalidation so their local tiers drop stale entries. Receivers
// never repopulate from the event; the next read falls through the tiers.
type InvalidationEvent struct {
	Key    string `json:"key,omitempty"`
	Tag    string `json:"tag,omitempty"`
	Sender string `json:"sender"`
	Action Action `json:"action"`
}
