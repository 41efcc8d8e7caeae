// api/cache/memory.go
package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is the in-process SessionStore/Presence backend used in tests
// and single-node deployments without Redis. Expiry is checked lazily on
// read rather than with timers.
type MemoryCache struct {
	mu       sync.Mutex
	now      func() time.Time
	sessions map[string]memoryEntry
	global   map[string]time.Time // visitorID -> expiry
	slides   map[string]map[string]time.Time
}

type memoryEntry struct {
	entry     Entry
	expiresAt time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		now:      time.Now,
		sessions: make(map[string]memoryEntry),
		global:   make(map[string]time.Time),
		slides:   make(map[string]map[string]time.Time),
	}
}

// SetClock overrides the time source. Test hook.
func (c *MemoryCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *MemoryCache) Get(ctx context.Context, visitorID string) (*Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	me, ok := c.sessions[visitorID]
	if !ok || c.now().After(me.expiresAt) {
		delete(c.sessions, visitorID)
		return nil, ErrSessionNotFound
	}

	// Copy so callers can mutate freely before Set.
	entry := me.entry
	entry.SlidesViewed = append([]string(nil), me.entry.SlidesViewed...)
	return &entry, nil
}

func (c *MemoryCache) Set(ctx context.Context, visitorID string, entry *Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := *entry
	stored.SlidesViewed = append([]string(nil), entry.SlidesViewed...)
	c.sessions[visitorID] = memoryEntry{
		entry:     stored,
		expiresAt: c.now().Add(SessionTTL),
	}
	return nil
}

func (c *MemoryCache) Track(ctx context.Context, visitorID, slideID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.global[visitorID] = now.Add(RealtimeTTL)

	slide, ok := c.slides[slideID]
	if !ok {
		slide = make(map[string]time.Time)
		c.slides[slideID] = slide
	}
	slide[visitorID] = now.Add(SlideRealtimeTTL)
	return nil
}

func (c *MemoryCache) CurrentVisitors(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	count := 0
	for visitorID, expiry := range c.global {
		if now.After(expiry) {
			delete(c.global, visitorID)
			continue
		}
		count++
	}
	return count, nil
}

func (c *MemoryCache) SlideBreakdown(ctx context.Context, slideIDs []string) (map[string]int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	breakdown := make(map[string]int)
	for _, slideID := range slideIDs {
		slide := c.slides[slideID]
		count := 0
		for visitorID, expiry := range slide {
			if now.After(expiry) {
				delete(slide, visitorID)
				continue
			}
			count++
		}
		if count > 0 {
			breakdown[slideID] = count
		}
	}
	return breakdown, nil
}
