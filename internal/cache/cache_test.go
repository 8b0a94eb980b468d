package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestLRUCacheExpiry(t *testing.T) {
	clk := &fakeClock{t: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](10, time.Minute).WithClock(clk.now)

	c.Set("a", "1")
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("expected hit, got %q %v", v, ok)
	}

	clk.advance(59 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("entry expired too early")
	}

	clk.advance(time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatal("entry should expire at TTL")
	}
	if c.Size() != 0 {
		t.Fatalf("expired entry not removed, size=%d", c.Size())
	}

	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should survive")
	}
	if c.Stats().Evictions != 1 {
		t.Fatalf("unexpected evictions %d", c.Stats().Evictions)
	}
}

func TestLRUCacheOverwriteDeleteClear(t *testing.T) {
	c := NewLRUCache[int](0, time.Hour)
	c.Set("a", 1)
	c.Set("a", 2)
	if v, _ := c.Get("a"); v != 2 || c.Size() != 1 {
		t.Fatalf("overwrite failed: %d size=%d", v, c.Size())
	}
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("delete failed")
	}
	for i := 0; i < 100; i++ {
		c.Set(string(rune('a'+i%26))+string(rune('0'+i/26)), i)
	}
	if c.Size() != 100 {
		t.Fatalf("unbounded cache evicted entries, size=%d", c.Size())
	}
	c.Clear()
	if c.Size() != 0 {
		t.Fatalf("clear failed, size=%d", c.Size())
	}
}

func TestCleanExpiredAndManagerSweep(t *testing.T) {
	clk := &fakeClock{t: time.Now()}
	short := NewLRUCache[int](0, time.Second).WithClock(clk.now)
	long := NewLRUCache[int](0, time.Hour).WithClock(clk.now)
	short.Set("a", 1)
	short.Set("b", 2)
	long.Set("c", 3)

	m := NewManager()
	m.Register(short)
	m.Register(long)

	if n := m.Sweep(); n != 0 {
		t.Fatalf("nothing should expire yet, removed %d", n)
	}
	clk.advance(2 * time.Second)
	if n := m.Sweep(); n != 2 {
		t.Fatalf("expected 2 removed, got %d", n)
	}
	if long.Size() != 1 {
		t.Fatalf("long-lived entry removed")
	}
}

func TestManagerStartStop(t *testing.T) {
	m := NewManager()
	m.Register(NewLRUCache[int](1, time.Millisecond))
	m.StartCleanup(time.Millisecond)
	m.StartCleanup(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	m.Stop()
	m.Stop()
}
