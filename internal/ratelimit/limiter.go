package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/ianjiteshan/ShareSYNC/internal/logging"
	"github.com/ianjiteshan/ShareSYNC/internal/metrics"
)

// Bucket names spec §4.5's table.
type Bucket string

const (
	BucketUpload   Bucket = "upload"
	BucketDownload Bucket = "download"
	BucketAPI      Bucket = "api"
	BucketAuth     Bucket = "auth"
)

// Tier mirrors config.RateLimitTier without importing config, so this
// package stays usable without a dependency cycle.
type Tier struct {
	AnonymousPerIP int
	AuthPerUser    int
	IPCeiling      int
	Window         time.Duration
}

// Decision is the admission controller's verdict for one request.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Controller enforces spec §4.5: the IP ceiling is always checked,
// even for authenticated users; the lower of the applicable limits
// wins; the shared store degrades to local counters rather than
// failing open.
type Controller struct {
	shared     Store
	local      *MemoryStore
	tiers      map[Bucket]Tier
	subBuckets int
}

// NewController wires the shared store (nil if none configured) with
// a mandatory local fallback store.
func NewController(shared Store, tiers map[Bucket]Tier, subBuckets int) *Controller {
	return &Controller{
		shared:     shared,
		local:      NewMemoryStore(),
		tiers:      tiers,
		subBuckets: subBuckets,
	}
}

// Close releases the local fallback store's background goroutine.
func (c *Controller) Close() { c.local.Close() }

// Check enforces the tiered policy for one (bucket, subject) request.
// subject is a user id string when authenticated is true, otherwise a
// hashed IP. ip is always the caller's hashed IP, used for the
// unconditional ceiling regardless of authentication state.
func (c *Controller) Check(ctx context.Context, bucket Bucket, authenticated bool, subject, ip string) Decision {
	tier, ok := c.tiers[bucket]
	if !ok {
		return Decision{Allowed: true}
	}

	ipDecision := c.allow(ctx, fmt.Sprintf("%s:ip:%s", bucket, ip), tier.IPCeiling, tier.Window)
	if !ipDecision.Allowed {
		metrics.RateLimitRejections.WithLabelValues(string(bucket)).Inc()
		return ipDecision
	}

	var subjectLimit int
	var subjectKey string
	if authenticated {
		subjectLimit = tier.AuthPerUser
		subjectKey = fmt.Sprintf("%s:user:%s", bucket, subject)
	} else {
		subjectLimit = tier.AnonymousPerIP
		subjectKey = fmt.Sprintf("%s:anon:%s", bucket, subject)
	}
	subjectDecision := c.allow(ctx, subjectKey, subjectLimit, tier.Window)
	if !subjectDecision.Allowed {
		metrics.RateLimitRejections.WithLabelValues(string(bucket)).Inc()
	}
	return subjectDecision
}

func (c *Controller) allow(ctx context.Context, key string, limit int, window time.Duration) Decision {
	if limit <= 0 {
		return Decision{Allowed: true}
	}

	store := c.shared
	if store != nil {
		deadlineCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
		allowed, retryAfter, err := store.Allow(deadlineCtx, key, limit, window, c.subBuckets)
		cancel()
		if err == nil {
			return Decision{Allowed: allowed, RetryAfter: retryAfter}
		}
		logging.From(ctx).WithError(err).Warn("shared rate-limit store unavailable, degrading to local counters")
		metrics.RateLimitStoreDegraded.Inc()
	}

	allowed, retryAfter, _ := c.local.Allow(ctx, key, limit, window, c.subBuckets)
	return Decision{Allowed: allowed, RetryAfter: retryAfter}
}
