package cache

import (
	"testing"
	"time"
)

func TestTTLCacheSetGet(t *testing.T) {
	c := NewTTLCache[string, string]()
	c.Set("a", "1", time.Minute)

	got, ok := c.Get("a")
	if !ok || got != "1" {
		t.Fatalf("expected hit with 1, got %q ok=%v", got, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatalf("expected miss for unknown key")
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache[string, int]()
	c.Set("a", 1, time.Nanosecond)
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected expired entry to miss")
	}
}

func TestTTLCacheZeroTTLNeverExpires(t *testing.T) {
	c := NewTTLCache[string, int]()
	c.Set("a", 1, 0)

	if _, ok := c.Get("a"); !ok {
		t.Fatalf("zero TTL entry should not expire")
	}
}

func TestTTLCacheDelete(t *testing.T) {
	c := NewTTLCache[string, int]()
	c.Set("a", 1, time.Minute)
	c.Delete("a")

	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected deleted entry to miss")
	}
}

func TestTTLCacheSweepsExpiredAtThreshold(t *testing.T) {
	c := NewTTLCache[int, int]()
	for i := 0; i < sweepThreshold; i++ {
		c.Set(i, i, time.Nanosecond)
	}
	time.Sleep(5 * time.Millisecond)

	c.Set(-1, 1, time.Minute)
	if got := c.Len(); got > sweepThreshold/2 {
		t.Fatalf("expected expired entries swept, still holding %d", got)
	}
	if _, ok := c.Get(-1); !ok {
		t.Fatalf("fresh entry must survive the sweep")
	}
}

func TestNilTTLCacheIsSafe(t *testing.T) {
	var c *TTLCache[string, int]
	c.Set("a", 1, time.Minute)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatalf("nil cache must always miss")
	}
}

func TestNoopCache(t *testing.T) {
	var c Cache[string, int] = NoopCache[string, int]{}
	c.Set("a", 1, time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("noop cache must always miss")
	}
}
