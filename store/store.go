// api/store/store.go
package store

import (
	"context"
	"time"

	"slidetrack/api/models"
)

// EventStore is the durable, append-only record store. Sessions are the only
// mutable rows and only through EndSession; everything else is insert-only.
// Deleting sessions cascades to page views, click events, and CTA clicks.
//
// Two backends exist: PostgresStore for production and MemoryStore for tests.
// Time windows are inclusive on both ends.
type EventStore interface {
	CreateSession(ctx context.Context, session *models.Session) (string, error)
	EndSession(ctx context.Context, sessionID string, endedAt time.Time, exitSlide string, totalSlidesViewed int) error

	InsertPageView(ctx context.Context, pv *models.PageView) error
	InsertClickEvent(ctx context.Context, ce *models.ClickEvent) error
	InsertCTAClick(ctx context.Context, cc *models.CTAClick) error

	SessionsBetween(ctx context.Context, from, to time.Time) ([]models.Session, error)
	PageViewsBetween(ctx context.Context, from, to time.Time) ([]models.PageView, error)
	ClickEventsBetween(ctx context.Context, from, to time.Time) ([]models.ClickEvent, error)
	ClickEventsForSlide(ctx context.Context, slideID string, from, to time.Time) ([]models.ClickEvent, error)
	CTAClicksBetween(ctx context.Context, from, to time.Time) ([]models.CTAClick, error)

	DeleteAllSessions(ctx context.Context) error
}
