package cache

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache[T any](size int, ttl time.Duration) (*LRUCache[T], *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[T](size, ttl)
	c.now = clock.Now
	return c, clock
}

func TestLRUCache_GetSet(t *testing.T) {
	c, _ := newTestCache[string](2, time.Minute)

	c.Set("a", "alpha")
	got, ok := c.Get("a")
	if !ok || got != "alpha" {
		t.Fatalf("Get(a) = %q, %v; want alpha, true", got, ok)
	}

	c.Set("a", "again")
	if got, _ := c.Get("a"); got != "again" {
		t.Errorf("overwrite failed, got %q", got)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache[int](2, time.Minute)

	var evicted []string
	c.OnEvict = func(key string, _ int) { evicted = append(evicted, key) }

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to survive")
	}
	if len(evicted) != 1 || evicted[0] != "b" {
		t.Errorf("evicted = %v, want [b]", evicted)
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	c, clock := newTestCache[int](10, time.Minute)

	c.Set("short", 1)
	c.SetWithTTL("long", 2, time.Hour)

	clock.Advance(2 * time.Minute)

	if _, ok := c.Get("short"); ok {
		t.Error("expected short to expire")
	}
	if _, ok := c.Get("long"); !ok {
		t.Error("expected long to be live")
	}
}

func TestLRUCache_Touch(t *testing.T) {
	c, clock := newTestCache[int](10, time.Minute)
	c.Set("k", 1)

	clock.Advance(50 * time.Second)
	if !c.Touch("k") {
		t.Fatal("Touch on live key returned false")
	}
	clock.Advance(50 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Error("touched key should still be live")
	}

	clock.Advance(2 * time.Minute)
	if c.Touch("k") {
		t.Error("Touch on expired key returned true")
	}
	if c.Touch("missing") {
		t.Error("Touch on missing key returned true")
	}
}

func TestLRUCache_ReplaceNeverCreates(t *testing.T) {
	c, clock := newTestCache[int](10, time.Minute)

	if c.Replace("missing", 1, time.Hour) {
		t.Fatal("Replace on missing key returned true")
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatal("Replace created a missing key")
	}

	c.Set("k", 1)
	if !c.Replace("k", 2, time.Hour) {
		t.Fatal("Replace on live key returned false")
	}
	clock.Advance(30 * time.Minute)
	if v, ok := c.Get("k"); !ok || v != 2 {
		t.Fatalf("Get(k) = %d, %v; want 2, true", v, ok)
	}

	c.Delete("k")
	if c.Replace("k", 3, time.Hour) {
		t.Error("Replace after Delete returned true")
	}

	c.Set("old", 1)
	clock.Advance(2 * time.Minute)
	if c.Replace("old", 2, time.Hour) {
		t.Error("Replace on expired key returned true")
	}
}

func TestLRUCache_CleanExpired(t *testing.T) {
	c, clock := newTestCache[int](10, time.Minute)

	removed := map[string]bool{}
	c.OnEvict = func(key string, _ int) { removed[key] = true }

	c.Set("a", 1)
	c.Set("b", 2)
	c.SetWithTTL("c", 3, time.Hour)

	clock.Advance(5 * time.Minute)

	if n := c.CleanExpired(); n != 2 {
		t.Errorf("CleanExpired() = %d, want 2", n)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
	if !removed["a"] || !removed["b"] || removed["c"] {
		t.Errorf("unexpected evictions: %v", removed)
	}
}

func TestLRUCache_DeleteCallsOnEvict(t *testing.T) {
	c, _ := newTestCache[int](10, time.Minute)
	var got []string
	c.OnEvict = func(key string, _ int) { got = append(got, key) }

	c.Set("a", 1)
	c.Delete("a")
	c.Delete("a")

	if len(got) != 1 {
		t.Errorf("OnEvict called %d times, want 1", len(got))
	}
}

func TestManager_Sweep(t *testing.T) {
	c, clock := newTestCache[int](10, time.Minute)
	c.Set("a", 1)
	clock.Advance(time.Hour)

	m := NewManager(nil)
	m.Register(c)

	if n := m.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}

func TestManager_StopWithoutStart(t *testing.T) {
	m := NewManager(nil)
	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked without StartCleanup")
	}
}
