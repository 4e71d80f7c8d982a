package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache(t *testing.T, size int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRUCache_GetSet(t *testing.T) {
	c, _ := newTestCache(t, 2, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss on empty cache")
	}
	c.Set("a", "1")
	c.Set("a", "2")
	if got, ok := c.Get("a"); !ok || got != "2" {
		t.Fatalf("Get(a) = %q, %v; want 2, true", got, ok)
	}
	if c.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", c.Size())
	}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(t, 2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a") // a is now most recent
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s should still be cached", k)
		}
	}
}

func TestLRUCache_TTL(t *testing.T) {
	c, clock := newTestCache(t, 4, time.Minute)
	c.Set("a", "1")
	clock.advance(30 * time.Second)
	c.Set("b", "2")

	clock.advance(45 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Error("a should have expired")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("b should still be live")
	}

	clock.advance(time.Minute)
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired() = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d after cleanup", c.Size())
	}
}

func TestLRUCache_ZeroTTLNeverExpires(t *testing.T) {
	c, clock := newTestCache(t, 1, 0)
	c.Set("a", "1")
	clock.advance(24 * time.Hour)
	if _, ok := c.Get("a"); !ok {
		t.Error("entry with zero TTL expired")
	}
}

func TestLRUCache_DeleteAndClear(t *testing.T) {
	c, _ := newTestCache(t, 4, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("a should be deleted")
	}
	c.Clear()
	if c.Size() != 0 {
		t.Errorf("Size() = %d after Clear", c.Size())
	}
	c.Set("c", "3")
	if _, ok := c.Get("c"); !ok {
		t.Error("cache unusable after Clear")
	}
}

func TestManager_CleanNowAndStop(t *testing.T) {
	c, clock := newTestCache(t, 4, time.Second)
	c.Set("a", "1")
	clock.advance(2 * time.Second)

	m := NewManager(nil)
	m.Register(c)
	m.StartCleanup(time.Hour)
	m.StartCleanup(time.Hour) // second start is ignored

	if n := m.CleanNow(); n != 1 {
		t.Errorf("CleanNow() = %d, want 1", n)
	}
	m.Stop()
	m.Stop()
}
