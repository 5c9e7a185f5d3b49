// Package cache keeps derived, recomputable values in redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"skillswap/internal/domain"

	"github.com/redis/go-redis/v9"
)

const platformStatsKey = "skillswap:stats:platform"

// StatsCache stores the admin platform statistics snapshot. A nil client
// turns every call into a miss or no-op, so callers need no redis guard.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{client: client, ttl: ttl}
}

func (c *StatsCache) Enabled() bool { return c != nil && c.client != nil }

// GetPlatformStats returns the cached snapshot and whether it was present.
func (c *StatsCache) GetPlatformStats(ctx context.Context) (domain.PlatformStats, bool, error) {
	if !c.Enabled() {
		return domain.PlatformStats{}, false, nil
	}
	raw, err := c.client.Get(ctx, platformStatsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.PlatformStats{}, false, nil
	}
	if err != nil {
		return domain.PlatformStats{}, false, fmt.Errorf("get platform stats: %w", err)
	}
	var ps domain.PlatformStats
	if err := json.Unmarshal(raw, &ps); err != nil {
		// A payload from an older layout; treat as a miss.
		return domain.PlatformStats{}, false, nil
	}
	return ps, true, nil
}

func (c *StatsCache) SetPlatformStats(ctx context.Context, ps domain.PlatformStats) error {
	if !c.Enabled() {
		return nil
	}
	raw, err := json.Marshal(ps)
	if err != nil {
		return fmt.Errorf("encode platform stats: %w", err)
	}
	if err := c.client.Set(ctx, platformStatsKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set platform stats: %w", err)
	}
	return nil
}

func (c *StatsCache) Invalidate(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	if err := c.client.Del(ctx, platformStatsKey).Err(); err != nil {
		return fmt.Errorf("invalidate platform stats: %w", err)
	}
	return nil
}

// Open connects to redis at addr and verifies it answers a ping. An empty
// addr returns a nil client.
func Open(ctx context.Context, addr, password string) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
