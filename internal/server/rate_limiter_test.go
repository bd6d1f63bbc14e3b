package server

import (
	"fmt"
	"testing"
	"time"
)

func TestRateLimiterAllowsWithinLimit(t *testing.T) {
	limiter := newRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !limiter.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatalf("request over the limit should be refused")
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	limiter := newRateLimiter(1, time.Minute)

	if !limiter.Allow("10.0.0.1") {
		t.Fatalf("first key should be allowed")
	}
	if !limiter.Allow("10.0.0.2") {
		t.Fatalf("second key should be allowed")
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatalf("first key should now be refused")
	}
}

func TestRateLimiterResetsAfterWindow(t *testing.T) {
	limiter := newRateLimiter(1, 10*time.Millisecond)

	if !limiter.Allow("10.0.0.1") {
		t.Fatalf("first request should be allowed")
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatalf("second request inside the window should be refused")
	}
	time.Sleep(15 * time.Millisecond)
	if !limiter.Allow("10.0.0.1") {
		t.Fatalf("request after the window should be allowed")
	}
}

func TestRateLimiterPrunesStaleKeysAtCapacity(t *testing.T) {
	limiter := newRateLimiter(1, 5*time.Millisecond)

	for i := 0; i < maxTrackedKeys; i++ {
		limiter.Allow(fmt.Sprintf("10.0.%d.%d", i/256, i%256))
	}
	time.Sleep(10 * time.Millisecond)

	if !limiter.Allow("192.168.0.1") {
		t.Fatalf("fresh key should be allowed")
	}

	limiter.mu.Lock()
	tracked := len(limiter.items)
	limiter.mu.Unlock()
	if tracked > 1 {
		t.Fatalf("expected stale keys to be pruned, still tracking %d", tracked)
	}
}

func TestRateLimiterRefusesEmptyKey(t *testing.T) {
	limiter := newRateLimiter(10, time.Minute)
	if limiter.Allow("") {
		t.Fatalf("empty key must be refused")
	}
}
