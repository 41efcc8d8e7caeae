// api/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis key patterns.
const (
	realtimeVisitorsKey = "realtime:visitors"
	slideVisitorsPrefix = "realtime:slide:"
	sessionKeyPrefix    = "session:"
)

// RedisCache implements SessionStore and Presence on a shared Redis client.
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) Get(ctx context.Context, visitorID string) (*Entry, error) {
	raw, err := c.rdb.Get(ctx, sessionKeyPrefix+visitorID).Result()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session cache: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, fmt.Errorf("failed to decode session cache entry: %w", err)
	}
	return &entry, nil
}

func (c *RedisCache) Set(ctx context.Context, visitorID string, entry *Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode session cache entry: %w", err)
	}
	if err := c.rdb.Set(ctx, sessionKeyPrefix+visitorID, raw, SessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to write session cache: %w", err)
	}
	return nil
}

// Track adds the visitor to the global and per-slide presence sets and
// refreshes both TTLs in one pipeline round trip.
func (c *RedisCache) Track(ctx context.Context, visitorID, slideID string) error {
	pipe := c.rdb.Pipeline()
	pipe.SAdd(ctx, realtimeVisitorsKey, visitorID)
	pipe.Expire(ctx, realtimeVisitorsKey, RealtimeTTL)
	pipe.SAdd(ctx, slideVisitorsPrefix+slideID, visitorID)
	pipe.Expire(ctx, slideVisitorsPrefix+slideID, SlideRealtimeTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to track realtime visitor: %w", err)
	}
	return nil
}

func (c *RedisCache) CurrentVisitors(ctx context.Context) (int, error) {
	n, err := c.rdb.SCard(ctx, realtimeVisitorsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count realtime visitors: %w", err)
	}
	return int(n), nil
}

func (c *RedisCache) SlideBreakdown(ctx context.Context, slideIDs []string) (map[string]int, error) {
	breakdown := make(map[string]int)
	for _, slideID := range slideIDs {
		n, err := c.rdb.SCard(ctx, slideVisitorsPrefix+slideID).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to count visitors on slide %s: %w", slideID, err)
		}
		if n > 0 {
			breakdown[slideID] = int(n)
		}
	}
	return breakdown, nil
}
