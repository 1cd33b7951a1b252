package cache

import (
	"testing"
	"time"
)

func TestLRUGetSet(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)

	if _, ok := c.Get("a"); ok {
		t.Fatal("empty cache should miss")
	}
	c.Set("a", "1")
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("got %q %v", v, ok)
	}
	c.Set("a", "2")
	if v, _ := c.Get("a"); v != "2" {
		t.Fatalf("overwrite failed: %q", v)
	}
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // refresh a
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should survive")
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	c := NewLRUCache[int](10, 10*time.Millisecond)
	c.Set("a", 1)
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("a"); ok {
		t.Fatal("entry should have expired")
	}
	if c.Size() != 0 {
		t.Fatalf("expired entry not removed: size %d", c.Size())
	}
}

func TestLRUDelete(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("a", 1)
	c.Delete("a")
	c.Delete("missing")
	if _, ok := c.Get("a"); ok {
		t.Fatal("deleted entry returned")
	}
}
