package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidetrack/api/models"
)

func TestMemoryStoreSessionLifecycle(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	id, err := s.CreateSession(ctx, &models.Session{
		VisitorID:  "v1",
		StartedAt:  started,
		EntrySlide: "01",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	ended := started.Add(90 * time.Second)
	require.NoError(t, s.EndSession(ctx, id, ended, "03", 3))

	sessions, err := s.SessionsBetween(ctx, started.Add(-time.Hour), started.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	sess := sessions[0]
	assert.Equal(t, id, sess.ID)
	require.NotNil(t, sess.EndedAt)
	assert.True(t, sess.EndedAt.Equal(ended))
	assert.Equal(t, "03", sess.ExitSlide)
	assert.Equal(t, 3, sess.TotalSlidesViewed)
}

func TestMemoryStoreEndUnknownSessionIsNoOp(t *testing.T) {
	s := NewMemoryStore()
	assert.NoError(t, s.EndSession(context.Background(), "missing", time.Now(), "01", 1))
}

func TestMemoryStoreWindowFiltering(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	day1 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	day3 := day1.AddDate(0, 0, 2)

	for _, at := range []time.Time{day1, day2, day3} {
		require.NoError(t, s.InsertPageView(ctx, &models.PageView{SessionID: "s1", SlideID: "01", ViewedAt: at}))
	}

	views, err := s.PageViewsBetween(ctx, day1, day2)
	require.NoError(t, err)
	assert.Len(t, views, 2) // window is inclusive on both ends

	views, err = s.PageViewsBetween(ctx, day3.Add(time.Hour), day3.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestMemoryStoreClickQueries(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.InsertClickEvent(ctx, &models.ClickEvent{SessionID: "s1", SlideID: "01", XPercent: 10, YPercent: 20, ClickedAt: at}))
	require.NoError(t, s.InsertClickEvent(ctx, &models.ClickEvent{SessionID: "s1", SlideID: "02", XPercent: 30, YPercent: 40, ClickedAt: at}))

	all, err := s.ClickEventsBetween(ctx, at.Add(-time.Minute), at.Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, all, 2)

	only02, err := s.ClickEventsForSlide(ctx, "02", at.Add(-time.Minute), at.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, only02, 1)
	assert.Equal(t, "02", only02[0].SlideID)
}

func TestMemoryStoreDeleteAllSessionsCascades(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	id, err := s.CreateSession(ctx, &models.Session{VisitorID: "v1", StartedAt: at, EntrySlide: "01"})
	require.NoError(t, err)
	require.NoError(t, s.InsertPageView(ctx, &models.PageView{SessionID: id, SlideID: "01", ViewedAt: at}))
	require.NoError(t, s.InsertClickEvent(ctx, &models.ClickEvent{SessionID: id, SlideID: "01", ClickedAt: at}))
	require.NoError(t, s.InsertCTAClick(ctx, &models.CTAClick{SessionID: id, SlideID: "01", CTAText: "Buy", CTAAction: "link", ClickedAt: at}))

	require.NoError(t, s.DeleteAllSessions(ctx))

	from, to := at.Add(-time.Hour), at.Add(time.Hour)
	sessions, _ := s.SessionsBetween(ctx, from, to)
	views, _ := s.PageViewsBetween(ctx, from, to)
	clicks, _ := s.ClickEventsBetween(ctx, from, to)
	ctas, _ := s.CTAClicksBetween(ctx, from, to)
	assert.Empty(t, sessions)
	assert.Empty(t, views)
	assert.Empty(t, clicks)
	assert.Empty(t, ctas)

	// Idempotent: a second reset on an empty store succeeds.
	assert.NoError(t, s.DeleteAllSessions(ctx))
}
