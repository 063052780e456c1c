package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterAllowsUpToQuota(t *testing.T) {
	limiter := NewLimiter()

	for i := 0; i < 3; i++ {
		result := limiter.Apply("k", 3, time.Minute)
		if !result.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	result := limiter.Apply("k", 3, time.Minute)
	if result.Allowed {
		t.Fatal("fourth request must be rejected")
	}
	if result.Remaining != 0 {
		t.Fatalf("remaining %d, want 0", result.Remaining)
	}
}

func TestLimiterKeysIndependent(t *testing.T) {
	limiter := NewLimiter()

	limiter.Apply("a", 1, time.Minute)
	if result := limiter.Apply("a", 1, time.Minute); result.Allowed {
		t.Fatal("key a should be exhausted")
	}
	if result := limiter.Apply("b", 1, time.Minute); !result.Allowed {
		t.Fatal("key b has its own window")
	}
}

func TestLimiterWindowRestart(t *testing.T) {
	limiter := NewLimiter()
	base := time.Now()
	limiter.now = func() time.Time { return base }

	limiter.Apply("k", 1, time.Minute)
	if result := limiter.Apply("k", 1, time.Minute); result.Allowed {
		t.Fatal("quota exhausted inside the window")
	}

	limiter.now = func() time.Time { return base.Add(time.Minute) }
	result := limiter.Apply("k", 1, time.Minute)
	if !result.Allowed {
		t.Fatal("expired window must restart entirely")
	}
	if got := result.ResetAt; !got.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("resetAt %v, want %v", got, base.Add(2*time.Minute))
	}
}
