package cache

import (
	"testing"
	"time"
)

func TestCacheGetSet(t *testing.T) {
	t.Run("set followed by get returns the value", func(t *testing.T) {
		c := New[string]("test", time.Minute)
		c.Set("k", "v")

		got, ok := c.Get("k")
		if !ok {
			t.Fatal("expected hit for freshly set key")
		}
		if got != "v" {
			t.Errorf("got %q, want %q", got, "v")
		}
	})

	t.Run("get of a never-set key is a miss", func(t *testing.T) {
		c := New[string]("test", time.Minute)

		if _, ok := c.Get("missing"); ok {
			t.Error("expected miss for never-set key")
		}
	})

	t.Run("set replaces a previous value", func(t *testing.T) {
		c := New[int]("test", time.Minute)
		c.Set("k", 1)
		c.Set("k", 2)

		got, ok := c.Get("k")
		if !ok || got != 2 {
			t.Errorf("got %d (hit=%v), want 2", got, ok)
		}
	})

	t.Run("zero ttl entries never expire", func(t *testing.T) {
		c := New[string]("test", 0)
		c.Set("k", "v")

		c.now = func() time.Time { return time.Now().Add(1000 * time.Hour) }
		if _, ok := c.Get("k"); !ok {
			t.Error("expected hit with ttl 0 long after set")
		}
	})
}

func TestCacheExpiry(t *testing.T) {
	base := time.Now()

	newCache := func(ttl time.Duration) *Cache[string] {
		c := New[string]("test", ttl)
		c.now = func() time.Time { return base }
		return c
	}

	t.Run("entry past ttl is a miss and is evicted", func(t *testing.T) {
		c := newCache(time.Minute)
		c.Set("k", "v")

		c.now = func() time.Time { return base.Add(2 * time.Minute) }
		if _, ok := c.Get("k"); ok {
			t.Error("expected miss for expired entry")
		}
		if c.Size() != 0 {
			t.Errorf("Size() = %d after expiry, want 0", c.Size())
		}
	})

	t.Run("entry within ttl is a hit", func(t *testing.T) {
		c := newCache(time.Minute)
		c.Set("k", "v")

		c.now = func() time.Time { return base.Add(30 * time.Second) }
		if _, ok := c.Get("k"); !ok {
			t.Error("expected hit within ttl")
		}
	})

	t.Run("size excludes expired entries", func(t *testing.T) {
		c := newCache(time.Minute)
		c.Set("old", "v")

		c.now = func() time.Time { return base.Add(2 * time.Minute) }
		c.Set("fresh", "v")

		if got := c.Size(); got != 1 {
			t.Errorf("Size() = %d, want 1", got)
		}
	})

	t.Run("has evicts expired entries", func(t *testing.T) {
		c := newCache(time.Minute)
		c.Set("k", "v")

		c.now = func() time.Time { return base.Add(2 * time.Minute) }
		if c.Has("k") {
			t.Error("expected Has to report false for expired entry")
		}
	})
}

func TestCacheOperations(t *testing.T) {
	t.Run("delete removes an entry", func(t *testing.T) {
		c := New[string]("test", time.Minute)
		c.Set("k", "v")
		c.Delete("k")

		if c.Has("k") {
			t.Error("expected key to be gone after Delete")
		}
	})

	t.Run("clear removes all entries", func(t *testing.T) {
		c := New[string]("test", time.Minute)
		c.Set("a", "1")
		c.Set("b", "2")
		c.Clear()

		if got := c.Size(); got != 0 {
			t.Errorf("Size() = %d after Clear, want 0", got)
		}
	})
}

func TestCacheStats(t *testing.T) {
	t.Run("tracks hits and misses", func(t *testing.T) {
		c := New[string]("stats", time.Minute)
		c.Set("k", "v")

		c.Get("k")       // hit
		c.Get("k")       // hit
		c.Get("missing") // miss

		stats := c.Stats()
		if stats.Hits != 2 {
			t.Errorf("Hits = %d, want 2", stats.Hits)
		}
		if stats.Misses != 1 {
			t.Errorf("Misses = %d, want 1", stats.Misses)
		}
		if want := 2.0 / 3.0; stats.HitRate != want {
			t.Errorf("HitRate = %f, want %f", stats.HitRate, want)
		}
		if stats.Name != "stats" {
			t.Errorf("Name = %q, want %q", stats.Name, "stats")
		}
	})

	t.Run("reports per-entry age and remaining ttl", func(t *testing.T) {
		base := time.Now()
		c := New[string]("stats", time.Minute)
		c.now = func() time.Time { return base }
		c.Set("k", "v")

		c.now = func() time.Time { return base.Add(10 * time.Second) }
		stats := c.Stats()
		if len(stats.Entries) != 1 {
			t.Fatalf("got %d entries, want 1", len(stats.Entries))
		}
		e := stats.Entries[0]
		if e.Age != 10*time.Second {
			t.Errorf("Age = %v, want 10s", e.Age)
		}
		if e.Remaining != 50*time.Second {
			t.Errorf("Remaining = %v, want 50s", e.Remaining)
		}
	})
}
