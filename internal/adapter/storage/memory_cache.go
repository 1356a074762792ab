package storage

import (
	"context"
	"sync"
	"time"

	"github.com/rl1809/maintenance-engine/internal/core/domain"
)

// MemoryCache is the single-process stand-in for RedisAdapter.
type MemoryCache struct {
	mu       sync.Mutex
	keys     map[string]time.Time
	stats    *domain.ScheduleStats
	statsExp time.Time
	statsGen int64
	statsTTL time.Duration
	now      func() time.Time
}

func NewMemoryCache(statsTTL time.Duration) *MemoryCache {
	if statsTTL <= 0 {
		statsTTL = defaultStatsTTL
	}
	return &MemoryCache{keys: make(map[string]time.Time), statsTTL: statsTTL, now: time.Now}
}

func (c *MemoryCache) SetIdempotency(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if exp, ok := c.keys[key]; ok && now.Before(exp) {
		return false, nil
	}
	c.keys[key] = now.Add(idempotencyKeyTTL)
	return true, nil
}

func (c *MemoryCache) ReleaseIdempotency(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.keys, key)
	return nil
}

func (c *MemoryCache) GetStats(_ context.Context) (*domain.ScheduleStats, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stats == nil || !c.now().Before(c.statsExp) {
		return nil, c.statsGen, nil
	}
	s := *c.stats
	return &s, c.statsGen, nil
}

func (c *MemoryCache) SetStats(_ context.Context, gen int64, stats domain.ScheduleStats) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.statsGen {
		return nil
	}
	c.stats = &stats
	c.statsExp = c.now().Add(c.statsTTL)
	return nil
}

func (c *MemoryCache) InvalidateStats(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = nil
	c.statsGen++
	return nil
}
