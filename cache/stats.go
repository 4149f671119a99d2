package cache

import "time"

// EntryStats describes one live cache entry for operational visibility.
type EntryStats struct {
	Key       string        `json:"key"`
	Age       time.Duration `json:"age"`
	Remaining time.Duration `json:"remaining"`
}

// Stats is a point-in-time snapshot of a cache instance.
type Stats struct {
	Name    string        `json:"name"`
	Size    int           `json:"size"`
	TTL     time.Duration `json:"ttl"`
	Hits    uint64        `json:"hits"`
	Misses  uint64        `json:"misses"`
	HitRate float64       `json:"hit_rate"`
	Entries []EntryStats  `json:"entries"`
}

// Stats returns a snapshot of the cache, including per-entry age and
// remaining TTL. Expired entries are evicted before the snapshot is taken.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	stats := Stats{
		Name:   c.name,
		TTL:    c.ttl,
		Hits:   c.hits,
		Misses: c.misses,
	}

	for key, e := range c.entries {
		age := now.Sub(e.storedAt)
		if c.ttl > 0 && age > c.ttl {
			delete(c.entries, key)
			continue
		}
		remaining := time.Duration(0)
		if c.ttl > 0 {
			remaining = c.ttl - age
		}
		stats.Entries = append(stats.Entries, EntryStats{
			Key:       key,
			Age:       age,
			Remaining: remaining,
		})
	}

	stats.Size = len(c.entries)
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}
