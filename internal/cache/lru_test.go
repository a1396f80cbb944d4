package cache

import (
	"testing"
	"time"
)

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int64](2, 0)
	c.Set("Transacciones", 0)
	c.Set("Cuentas", 11)
	if _, ok := c.Get("Transacciones"); !ok {
		t.Fatalf("expected hit")
	}
	c.Set("Presupuestos", 22)

	if _, ok := c.Get("Cuentas"); ok {
		t.Fatalf("least recently used entry should be evicted")
	}
	if v, ok := c.Get("Presupuestos"); !ok || v != 22 {
		t.Fatalf("unexpected value %d %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
}

func TestLRUCacheTTL(t *testing.T) {
	clock := newFakeClock()
	c := NewLRUCache[string](10, time.Minute)
	c.SetClock(clock.Now)
	c.Set("k", "v")
	clock.Advance(59 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatalf("entry expired early")
	}
	clock.Advance(time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("entry served past its TTL")
	}
}

func TestLRUCacheDeleteAndPurge(t *testing.T) {
	c := NewLRUCache[int](3, 0)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatalf("deleted key still present")
	}
	c.Purge()
	if c.Size() != 0 {
		t.Fatalf("expected empty cache after purge")
	}
	if n := c.CleanExpired(); n != 0 {
		t.Fatalf("non-expiring cache cleaned %d entries", n)
	}
}
