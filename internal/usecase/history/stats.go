package history

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Stats describes the cost and size of one history calculation
type Stats struct {
	UserID          uuid.UUID
	Duration        time.Duration
	SnapshotCount   int
	SymbolCount     int
	CoveragePercent float64
	CalculatedAt    time.Time
}

// StatsCacheConfig bounds the stats cache
type StatsCacheConfig struct {
	Capacity int
	TTL      time.Duration
}

// StatsCache keeps the latest calculation stats per user.
// Entries expire after TTL; when Capacity is reached the oldest entry is evicted.
type StatsCache struct {
	mu       sync.Mutex // serializes the capacity check with the insert in Record
	items    *cache.Cache
	capacity int
}

// NewStatsCache creates a stats cache. Zero values fall back to 1000 entries and 15 minutes.
func NewStatsCache(cfg StatsCacheConfig) *StatsCache {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 1000
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	return &StatsCache{
		items:    cache.New(cfg.TTL, 2*cfg.TTL),
		capacity: cfg.Capacity,
	}
}

// Record stores stats for a user, replacing any previous entry
func (c *StatsCache) Record(stats Stats) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := stats.UserID.String()
	if _, exists := c.items.Get(key); !exists && c.items.ItemCount() >= c.capacity {
		c.items.DeleteExpired()
		if c.items.ItemCount() >= c.capacity {
			c.evictOldest()
		}
	}
	c.items.SetDefault(key, stats)
}

// Get returns the latest stats recorded for a user
func (c *StatsCache) Get(userID uuid.UUID) (Stats, bool) {
	v, ok := c.items.Get(userID.String())
	if !ok {
		return Stats{}, false
	}
	return v.(Stats), true
}

// Len returns the number of cached entries, expired ones included until cleanup
func (c *StatsCache) Len() int {
	return c.items.ItemCount()
}

func (c *StatsCache) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for k, item := range c.items.Items() {
		s, ok := item.Object.(Stats)
		if !ok {
			continue
		}
		if oldestKey == "" || s.CalculatedAt.Before(oldest) {
			oldestKey, oldest = k, s.CalculatedAt
		}
	}
	if oldestKey != "" {
		c.items.Delete(oldestKey)
	}
}
