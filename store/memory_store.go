// api/store/memory_store.go
package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"slidetrack/api/models"
)

// MemoryStore is the in-memory EventStore backend used in tests. Rows live in
// plain slices; windows are filtered on read, matching the Postgres queries.
type MemoryStore struct {
	mu        sync.Mutex
	sessions  []models.Session
	pageViews []models.PageView
	clicks    []models.ClickEvent
	ctaClicks []models.CTAClick
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) CreateSession(ctx context.Context, session *models.Session) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *session
	stored.ID = uuid.NewString()
	s.sessions = append(s.sessions, stored)
	return stored.ID, nil
}

func (s *MemoryStore) EndSession(ctx context.Context, sessionID string, endedAt time.Time, exitSlide string, totalSlidesViewed int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.sessions {
		if s.sessions[i].ID == sessionID {
			t := endedAt
			s.sessions[i].EndedAt = &t
			s.sessions[i].ExitSlide = exitSlide
			s.sessions[i].TotalSlidesViewed = totalSlidesViewed
			return nil
		}
	}
	// Matches the UPDATE-with-no-match behavior of the SQL backend.
	return nil
}

func (s *MemoryStore) InsertPageView(ctx context.Context, pv *models.PageView) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *pv
	stored.ID = uuid.NewString()
	s.pageViews = append(s.pageViews, stored)
	return nil
}

func (s *MemoryStore) InsertClickEvent(ctx context.Context, ce *models.ClickEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *ce
	stored.ID = uuid.NewString()
	s.clicks = append(s.clicks, stored)
	return nil
}

func (s *MemoryStore) InsertCTAClick(ctx context.Context, cc *models.CTAClick) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *cc
	stored.ID = uuid.NewString()
	s.ctaClicks = append(s.ctaClicks, stored)
	return nil
}

func inWindow(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}

func (s *MemoryStore) SessionsBetween(ctx context.Context, from, to time.Time) ([]models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Session
	for _, sess := range s.sessions {
		if inWindow(sess.StartedAt, from, to) {
			out = append(out, sess)
		}
	}
	return out, nil
}

func (s *MemoryStore) PageViewsBetween(ctx context.Context, from, to time.Time) ([]models.PageView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.PageView
	for _, pv := range s.pageViews {
		if inWindow(pv.ViewedAt, from, to) {
			out = append(out, pv)
		}
	}
	return out, nil
}

func (s *MemoryStore) ClickEventsBetween(ctx context.Context, from, to time.Time) ([]models.ClickEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.ClickEvent
	for _, ce := range s.clicks {
		if inWindow(ce.ClickedAt, from, to) {
			out = append(out, ce)
		}
	}
	return out, nil
}

func (s *MemoryStore) ClickEventsForSlide(ctx context.Context, slideID string, from, to time.Time) ([]models.ClickEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.ClickEvent
	for _, ce := range s.clicks {
		if ce.SlideID == slideID && inWindow(ce.ClickedAt, from, to) {
			out = append(out, ce)
		}
	}
	return out, nil
}

func (s *MemoryStore) CTAClicksBetween(ctx context.Context, from, to time.Time) ([]models.CTAClick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.CTAClick
	for _, cc := range s.ctaClicks {
		if inWindow(cc.ClickedAt, from, to) {
			out = append(out, cc)
		}
	}
	return out, nil
}

func (s *MemoryStore) DeleteAllSessions(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = nil
	s.pageViews = nil
	s.clicks = nil
	s.ctaClicks = nil
	return nil
}
