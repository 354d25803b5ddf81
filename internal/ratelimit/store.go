// Package ratelimit implements the admission controller's tiered,
// sliding-window rate limits (spec §4.5): four independent buckets
// (upload/download/api/auth), each split into an anonymous-per-IP
// limit, an authenticated-per-user limit, and an unconditional IP
// ceiling, all on a sliding window with sub-bucket resolution.
package ratelimit

import (
	"context"
	"time"
)

// Store is the pluggable counter backend: an in-memory map for
// single-instance development, Redis for multi-instance deployments.
// Grounded on MaxIOFS-MaxIOFS's RateLimitStore abstraction.
type Store interface {
	// Allow reports whether one attempt at key is within limit for a
	// sliding window of length window, and records the attempt when it
	// is allowed. subBuckets is a resolution hint (spec §4.5 point 3);
	// MemoryStore and RedisStore ignore it and keep exact timestamps,
	// which is finer. retryAfter is populated on reject.
	Allow(ctx context.Context, key string, limit int, window time.Duration, subBuckets int) (allowed bool, retryAfter time.Duration, err error)
}
