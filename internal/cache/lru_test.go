package cache

import (
	"testing"
	"time"
)

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be cached")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("a = %v, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d, want 2", c.Size())
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute).WithClock(func() time.Time { return now })
	c.Set("k", "v")
	c.Set("k2", "v2")

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expired entry returned")
	}
	if removed := c.CleanExpired(); removed != 1 {
		t.Fatalf("CleanExpired removed %d, want 1", removed)
	}
	if c.Size() != 0 {
		t.Fatalf("size = %d, want 0", c.Size())
	}
}

func TestLRUCachePurgeAndManager(t *testing.T) {
	c := NewLRUCache[int](5, time.Nanosecond)
	c.Set("a", 1)
	c.Purge()
	if c.Size() != 0 {
		t.Fatal("purge left entries")
	}

	c.Set("b", 2)
	time.Sleep(time.Millisecond)
	m := NewManager(nil)
	m.Register("reports", c)
	if got := m.CleanAll()["reports"]; got != 1 {
		t.Fatalf("manager cleaned %d, want 1", got)
	}
	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
