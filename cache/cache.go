// api/cache/cache.go
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrSessionNotFound is returned when no live entry exists for a visitor,
// either because none was created or because it expired. Handlers map it to a
// 400-class "session not found" response.
var ErrSessionNotFound = errors.New("session not found")

// TTLs mirror the lifetimes the landing page was tuned for: a visitor goes
// stale after 30 minutes of inactivity, the global presence set after 5
// minutes, per-slide presence after 1 minute.
const (
	SessionTTL       = 30 * time.Minute
	RealtimeTTL      = 5 * time.Minute
	SlideRealtimeTTL = 1 * time.Minute
)

// Entry is the live-session record kept per visitor. SlidesViewed preserves
// insertion order and is used only for membership and count.
type Entry struct {
	SessionID    string   `json:"sessionId"`
	CurrentSlide string   `json:"currentSlide"`
	StartedAt    int64    `json:"startedAt"`  // epoch ms
	LastActive   int64    `json:"lastActive"` // epoch ms
	SlidesViewed []string `json:"slidesViewed"`
}

// HasViewed reports whether slideID is already in the viewed-set.
func (e *Entry) HasViewed(slideID string) bool {
	for _, s := range e.SlidesViewed {
		if s == slideID {
			return true
		}
	}
	return false
}

// SessionStore holds one Entry per visitor with automatic expiration. Set
// always refreshes the TTL.
type SessionStore interface {
	Get(ctx context.Context, visitorID string) (*Entry, error)
	Set(ctx context.Context, visitorID string, entry *Entry) error
}

// Presence tracks which visitors are currently active, globally and per
// slide. Writes are append-mostly and self-expiring; reads may be stale.
type Presence interface {
	Track(ctx context.Context, visitorID, slideID string) error
	CurrentVisitors(ctx context.Context) (int, error)
	SlideBreakdown(ctx context.Context, slideIDs []string) (map[string]int, error)
}
