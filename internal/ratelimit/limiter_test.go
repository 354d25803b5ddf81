package ratelimit

import (
	"context"
	"testing"
	"time"
)

func testTiers() map[Bucket]Tier {
	return map[Bucket]Tier{
		BucketUpload: {AnonymousPerIP: 2, AuthPerUser: 5, IPCeiling: 3, Window: time.Minute},
	}
}

func TestControllerAllowsWithinLimit(t *testing.T) {
	c := NewController(nil, testTiers(), 10)
	defer c.Close()

	for i := 0; i < 2; i++ {
		d := c.Check(context.Background(), BucketUpload, false, "1.2.3.4", "1.2.3.4")
		if !d.Allowed {
			t.Fatalf("request %d: expected allowed, got denied", i)
		}
	}
}

func TestControllerRejectsOverAnonymousLimit(t *testing.T) {
	c := NewController(nil, testTiers(), 10)
	defer c.Close()

	for i := 0; i < 2; i++ {
		if d := c.Check(context.Background(), BucketUpload, false, "9.9.9.9", "9.9.9.9"); !d.Allowed {
			t.Fatalf("warm-up request %d unexpectedly denied", i)
		}
	}

	d := c.Check(context.Background(), BucketUpload, false, "9.9.9.9", "9.9.9.9")
	if d.Allowed {
		t.Fatalf("expected third anonymous request to be denied (limit 2)")
	}
	if d.RetryAfter <= 0 {
		t.Fatalf("expected a positive RetryAfter, got %v", d.RetryAfter)
	}
}

// TestControllerIPCeilingAppliesToAuthenticatedCallers verifies spec
// §4.5's rule that the IP ceiling binds even when the caller is
// authenticated and has headroom left on their per-user limit.
func TestControllerIPCeilingAppliesToAuthenticatedCallers(t *testing.T) {
	c := NewController(nil, testTiers(), 10)
	defer c.Close()

	ip := "5.5.5.5"
	for i := 0; i < 3; i++ {
		d := c.Check(context.Background(), BucketUpload, true, "user-a", ip)
		if !d.Allowed {
			t.Fatalf("warm-up request %d unexpectedly denied", i)
		}
	}

	// A different authenticated user sharing the same IP should still
	// trip the IP ceiling even though their per-user count is zero.
	d := c.Check(context.Background(), BucketUpload, true, "user-b", ip)
	if d.Allowed {
		t.Fatalf("expected IP ceiling (3) to reject a 4th request from the same IP")
	}
}

func TestControllerUnknownBucketAllowsByDefault(t *testing.T) {
	c := NewController(nil, map[Bucket]Tier{}, 10)
	defer c.Close()

	d := c.Check(context.Background(), BucketAuth, false, "x", "x")
	if !d.Allowed {
		t.Fatalf("expected an unconfigured bucket to allow unconditionally")
	}
}

// failingStore always errors, exercising the degrade-to-local path.
type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration, int) (bool, time.Duration, error) {
	return false, 0, context.DeadlineExceeded
}

func TestControllerDegradesToLocalOnSharedStoreFailure(t *testing.T) {
	c := NewController(failingStore{}, testTiers(), 10)
	defer c.Close()

	// The shared store always errors; the controller must fall back to
	// its local counters rather than failing closed or open.
	d := c.Check(context.Background(), BucketUpload, false, "8.8.8.8", "8.8.8.8")
	if !d.Allowed {
		t.Fatalf("expected first request to be allowed via local fallback")
	}
}
