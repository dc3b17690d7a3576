package cache

import (
	"time"

	"github.com/tiercache/tiercache/types"
)

// deriveLocalSpec computes the local-tier expiration from the shared-tier
// spec. The local deadline is the shared duration scaled by ratio and capped
// at max, keeping the local tier strictly fresher than the shared tier.
// Entries without a shared deadline get an absolute local deadline of max,
// so an invalidation elsewhere cannot pin a stale value in memory forever.
func deriveLocalSpec(spec types.ExpirationSpec, ratio float64, max time.Duration) types.ExpirationSpec {
	if !spec.Expires() {
		if max > 0 {
			return types.AbsoluteExpiration(max)
		}
		return spec
	}

	d := time.Duration(float64(spec.Duration) * ratio)
	if max > 0 && d > max {
		d = max
	}
	if d <= 0 {
		d = time.Millisecond
	}
	return types.ExpirationSpec{Kind: spec.Kind, Duration: d}
}
