package cache

import (
	"testing"
	"time"
)

type manualTime struct{ t time.Time }

func (m *manualTime) now() time.Time { return m.t }

func TestLRUCacheExpiry(t *testing.T) {
	clock := &manualTime{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](4, time.Minute).WithClock(clock.now)

	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %v, %v", v, ok)
	}

	clock.t = clock.t.Add(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expired entry returned")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not removed on read, size=%d", c.Len())
	}
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[string](2, time.Hour)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a") // a becomes most recent
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Fatalf("least recently used entry should be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("recently used entry evicted")
	}
	if c.Len() != 2 {
		t.Fatalf("size = %d, want 2", c.Len())
	}

	want := Stats{Hits: 2, Misses: 1, Evictions: 1}
	if got := c.Stats(); got != want {
		t.Fatalf("stats = %+v, want %+v", got, want)
	}
}

func TestLRUCacheCleanAndPurge(t *testing.T) {
	clock := &manualTime{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](10, time.Minute).WithClock(clock.now)
	c.Set("old", 1)
	clock.t = clock.t.Add(30 * time.Second)
	c.Set("new", 2)
	clock.t = clock.t.Add(45 * time.Second)

	m := NewManager(nil)
	m.Register(c)
	if n := m.CleanAll(); n != 1 {
		t.Fatalf("CleanAll removed %d, want 1", n)
	}
	if _, ok := c.Get("new"); !ok {
		t.Fatalf("fresh entry removed")
	}

	c.Purge()
	if c.Len() != 0 {
		t.Fatalf("Purge left %d entries", c.Len())
	}
	m.Stop()
	m.Stop()
}

func TestManagerStartStop(t *testing.T) {
	m := NewManager(nil)
	m.Register(NewLRUCache[int](1, time.Millisecond))
	m.StartCleanup(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	m.Stop()
}

func TestLRUCacheOverwriteRefreshesExpiry(t *testing.T) {
	clock := &manualTime{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](1, time.Minute).WithClock(clock.now)

	c.Set("a", 1)
	clock.t = clock.t.Add(50 * time.Second)
	c.Set("a", 2)
	clock.t = clock.t.Add(50 * time.Second)

	if v, ok := c.Get("a"); !ok || v != 2 {
		t.Fatalf("Get(a) = %v, %v; want 2, true", v, ok)
	}
	if c.Stats().Evictions != 0 {
		t.Fatalf("overwrite counted as eviction")
	}
}
