package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidetrack/api/models"
)

func ts(day, hour int) time.Time {
	return time.Date(2026, 3, day, hour, 0, 0, 0, time.UTC)
}

func closedSession(id, visitor, entry, exit string, started, ended time.Time, slides int) models.Session {
	e := ended
	return models.Session{
		ID:                id,
		VisitorID:         visitor,
		StartedAt:         started,
		EndedAt:           &e,
		EntrySlide:        entry,
		ExitSlide:         exit,
		TotalSlidesViewed: slides,
	}
}

func view(session, slide string, at time.Time, durationMs int64) models.PageView {
	return models.PageView{SessionID: session, SlideID: slide, ViewedAt: at, DurationMs: durationMs}
}

func TestDashboardKPIs(t *testing.T) {
	sessions := []models.Session{
		closedSession("s1", "v1", "01", "03", ts(1, 10), ts(1, 10).Add(60*time.Second), 3),
		closedSession("s2", "v2", "01", "01", ts(1, 11), ts(1, 11).Add(20*time.Second), 1),
		// Open session: excluded from duration and bounce KPIs.
		{ID: "s3", VisitorID: "v3", StartedAt: ts(2, 9), EntrySlide: "01"},
		// Same visitor returning: does not inflate unique count.
		closedSession("s4", "v1", "01", "02", ts(2, 10), ts(2, 10).Add(40*time.Second), 2),
	}
	pageViews := []models.PageView{
		view("s1", "01", ts(1, 10), 0),
		view("s1", "02", ts(1, 10).Add(10*time.Second), 10000),
		view("s1", "03", ts(1, 10).Add(30*time.Second), 20000),
		view("s2", "01", ts(1, 11), 0),
		view("s3", "01", ts(2, 9), 0),
		view("s4", "01", ts(2, 10), 0),
		view("s4", "02", ts(2, 10).Add(15*time.Second), 15000),
	}
	ctaClicks := []models.CTAClick{
		{SessionID: "s1", SlideID: "03", ClickedAt: ts(1, 10)},
		{SessionID: "s4", SlideID: "02", ClickedAt: ts(2, 10)},
	}
	clicks := []models.ClickEvent{
		{SessionID: "s1", SlideID: "02", XPercent: 10, YPercent: 20, ClickedAt: ts(1, 10)},
	}

	stats := Dashboard(sessions, pageViews, clicks, ctaClicks)

	assert.Equal(t, 7, stats.TotalPageViews)
	assert.Equal(t, 3, stats.UniqueVisitors)
	// Closed sessions: 60s, 20s, 40s -> mean 40s.
	assert.InDelta(t, 40000, stats.AvgSessionDuration, 0.001)
	// One of three closed sessions viewed <= 1 slide.
	assert.InDelta(t, 100.0/3.0, stats.BounceRate, 0.001)
	// 2 CTA clicks / 3 unique visitors * 100.
	assert.InDelta(t, 200.0/3.0, stats.CTAClickRate, 0.001)

	// Per-slide view counts must sum to the total page-view count.
	sum := 0
	for _, row := range stats.AllSlides {
		sum += row.Views
	}
	assert.Equal(t, stats.TotalPageViews, sum)
}

func TestDashboardSlideTable(t *testing.T) {
	sessions := []models.Session{
		closedSession("s1", "v1", "01", "02", ts(1, 10), ts(1, 11), 2),
		closedSession("s2", "v2", "01", "02", ts(1, 10), ts(1, 11), 2),
		closedSession("s3", "v3", "01", "02", ts(1, 10), ts(1, 11), 2),
	}
	// Slide 02: 10 views total across sessions, 3 sessions exiting there.
	var pageViews []models.PageView
	for i := 0; i < 10; i++ {
		sessionID := []string{"s1", "s2", "s3"}[i%3]
		pageViews = append(pageViews, view(sessionID, "02", ts(1, 10).Add(time.Duration(i)*time.Minute), 1000))
	}

	stats := Dashboard(sessions, pageViews, nil, nil)
	require.Len(t, stats.AllSlides, 1)

	row := stats.AllSlides[0]
	assert.Equal(t, "02", row.SlideID)
	assert.Equal(t, 10, row.Views)
	assert.Equal(t, 3, row.UniqueVisitors)
	// 3 exits / 10 views = exactly 30%.
	assert.InDelta(t, 30.0, row.BounceRate, 0.0001)
	assert.InDelta(t, 1000.0, row.AvgDurationMs, 0.0001)
}

func TestDashboardNaturalSlideOrder(t *testing.T) {
	var pageViews []models.PageView
	for _, slide := range []string{"10", "04b", "9", "04", "04a", "01"} {
		pageViews = append(pageViews, view("s1", slide, ts(1, 10), 0))
	}

	stats := Dashboard(nil, pageViews, nil, nil)

	var order []string
	for _, row := range stats.AllSlides {
		order = append(order, row.SlideID)
	}
	assert.Equal(t, []string{"01", "04", "04a", "04b", "9", "10"}, order)
}

func TestDashboardRankings(t *testing.T) {
	sessions := []models.Session{
		closedSession("s1", "v1", "01", "03", ts(1, 10), ts(1, 11), 3),
		closedSession("s2", "v2", "01", "03", ts(1, 10), ts(1, 11), 3),
		closedSession("s3", "v3", "01", "02", ts(1, 10), ts(1, 11), 2),
	}
	var pageViews []models.PageView
	for slide, n := range map[string]int{"01": 6, "02": 5, "03": 4, "04": 3, "05": 2, "06": 1} {
		for i := 0; i < n; i++ {
			pageViews = append(pageViews, view("s1", slide, ts(1, 10), 0))
		}
	}

	stats := Dashboard(sessions, pageViews, nil, nil)

	require.Len(t, stats.TopSlides, 5)
	assert.Equal(t, "01", stats.TopSlides[0].SlideID)
	assert.Equal(t, 6, stats.TopSlides[0].Views)
	assert.Equal(t, "05", stats.TopSlides[4].SlideID)

	// Only slides with exits appear in the high-bounce ranking.
	// 03: 2 exits / 4 views = 50%; 02: 1 exit / 5 views = 20%.
	require.Len(t, stats.HighBounceSlides, 2)
	assert.Equal(t, "03", stats.HighBounceSlides[0].SlideID)
	assert.InDelta(t, 50.0, stats.HighBounceSlides[0].BounceRate, 0.0001)
	assert.Equal(t, "02", stats.HighBounceSlides[1].SlideID)
}

func TestDashboardTimeSeries(t *testing.T) {
	pageViews := []models.PageView{
		view("s1", "01", ts(2, 10), 0),
		view("s1", "02", ts(2, 11), 0),
		view("s2", "01", ts(2, 12), 0),
		view("s3", "01", ts(1, 9), 0),
	}

	stats := Dashboard(nil, pageViews, nil, nil)

	require.Len(t, stats.TimeSeries, 2)
	assert.Equal(t, "2026-03-01", stats.TimeSeries[0].Date)
	assert.Equal(t, 1, stats.TimeSeries[0].PageViews)
	assert.Equal(t, "2026-03-02", stats.TimeSeries[1].Date)
	assert.Equal(t, 3, stats.TimeSeries[1].PageViews)
	assert.Equal(t, 2, stats.TimeSeries[1].Sessions)
}

func TestDashboardEmptyWindow(t *testing.T) {
	stats := Dashboard(nil, nil, nil, nil)

	assert.Zero(t, stats.TotalPageViews)
	assert.Zero(t, stats.UniqueVisitors)
	assert.Zero(t, stats.AvgSessionDuration)
	assert.Zero(t, stats.BounceRate)
	assert.Empty(t, stats.AllSlides)
	assert.Empty(t, stats.TimeSeries)
}

func TestFunnelTransitionsCountAdjacentPairs(t *testing.T) {
	// View sequence [A, B, B, C]: the immediate repeat counts like any pair.
	pageViews := []models.PageView{
		view("s1", "A", ts(1, 10), 0),
		view("s1", "B", ts(1, 10).Add(1*time.Second), 0),
		view("s1", "B", ts(1, 10).Add(2*time.Second), 0),
		view("s1", "C", ts(1, 10).Add(3*time.Second), 0),
	}

	funnel := Funnel(nil, pageViews, nil)

	counts := make(map[string]int)
	for _, tr := range funnel.Transitions {
		counts[tr.From+"->"+tr.To] = tr.Count
	}
	assert.Equal(t, map[string]int{"A->B": 1, "B->B": 1, "B->C": 1}, counts)
}

func TestFunnelSingleViewSessionContributesNoTransitions(t *testing.T) {
	pageViews := []models.PageView{view("s1", "A", ts(1, 10), 0)}

	funnel := Funnel(nil, pageViews, nil)
	assert.Empty(t, funnel.Transitions)
}

func TestFunnelOrdersViewsByTimestamp(t *testing.T) {
	// Rows handed over out of order must still produce time-ordered pairs.
	pageViews := []models.PageView{
		view("s1", "C", ts(1, 10).Add(2*time.Second), 0),
		view("s1", "A", ts(1, 10), 0),
		view("s1", "B", ts(1, 10).Add(1*time.Second), 0),
	}

	funnel := Funnel(nil, pageViews, nil)

	require.Len(t, funnel.Transitions, 2)
	assert.Equal(t, "A", funnel.Transitions[0].From)
	assert.Equal(t, "B", funnel.Transitions[0].To)
	assert.Equal(t, "B", funnel.Transitions[1].From)
	assert.Equal(t, "C", funnel.Transitions[1].To)
}

func TestFunnelStepsDropOffUsesUniqueVisitors(t *testing.T) {
	sessions := []models.Session{
		closedSession("s1", "v1", "A", "B", ts(1, 10), ts(1, 11), 2),
		closedSession("s2", "v2", "A", "B", ts(1, 10), ts(1, 11), 2),
		closedSession("s3", "v3", "A", "A", ts(1, 10), ts(1, 11), 1),
		closedSession("s4", "v4", "A", "B", ts(1, 10), ts(1, 11), 2),
	}
	pageViews := []models.PageView{
		view("s1", "B", ts(1, 10), 2000),
		view("s1", "B", ts(1, 10).Add(time.Second), 4000), // revisit: view count 2, visitors 1
		view("s2", "B", ts(1, 10), 3000),
		view("s4", "B", ts(1, 10), 3000),
	}

	funnel := Funnel(sessions, pageViews, nil)

	require.Len(t, funnel.Steps, 1)
	step := funnel.Steps[0]
	assert.Equal(t, "B", step.SlideID)
	assert.Equal(t, 3, step.Visitors)
	// 3 sessions exited at B / 3 unique visitors = 100%, even though B has 4
	// raw views. This is the visitor-denominator definition, distinct from
	// the slide table's view-denominator bounce rate.
	assert.InDelta(t, 100.0, step.DropOffRate, 0.0001)
	assert.InDelta(t, 3000.0, step.AvgDuration, 0.0001)
}

func TestFunnelDistributionsBoundedBySessionCount(t *testing.T) {
	sessions := []models.Session{
		closedSession("s1", "v1", "01", "02", ts(1, 10), ts(1, 11), 2),
		closedSession("s2", "v2", "01", "03", ts(1, 10), ts(1, 11), 3),
		{ID: "s3", VisitorID: "v3", StartedAt: ts(1, 10), EntrySlide: "02"}, // open: no exit
	}

	funnel := Funnel(sessions, nil, nil)

	assert.Equal(t, 3, funnel.TotalSessions)

	entryTotal := 0
	for _, e := range funnel.EntryDistribution {
		entryTotal += e.Count
	}
	exitTotal := 0
	for _, e := range funnel.ExitDistribution {
		exitTotal += e.Count
	}
	assert.LessOrEqual(t, entryTotal, funnel.TotalSessions)
	assert.LessOrEqual(t, exitTotal, funnel.TotalSessions)
	assert.Equal(t, 3, entryTotal)
	assert.Equal(t, 2, exitTotal) // open session contributes no exit

	assert.Equal(t, "01", funnel.EntryDistribution[0].SlideID)
	assert.Equal(t, 2, funnel.EntryDistribution[0].Count)
}

func TestHeatmapQuantization(t *testing.T) {
	clicks := []models.ClickEvent{
		{SlideID: "05", XPercent: 53, YPercent: 77, ElementType: "other"},
		{SlideID: "05", XPercent: 54, YPercent: 78, ElementType: "cta"},
		{SlideID: "05", XPercent: 10, YPercent: 10, ElementType: "image"},
	}

	data := Heatmap("05", clicks)

	assert.Equal(t, 3, data.TotalClicks)
	assert.Equal(t, 1, data.CTAClicks)

	// (53,77) rounds to (54,78) and merges with the exact (54,78) click.
	require.Len(t, data.Points, 2)
	byCell := make(map[[2]int]int)
	for _, p := range data.Points {
		byCell[[2]int{p.XPercent, p.YPercent}] = p.Count
	}
	assert.Equal(t, 2, byCell[[2]int{54, 78}])
	assert.Equal(t, 1, byCell[[2]int{10, 10}])
}

func TestHeatmapEmpty(t *testing.T) {
	data := Heatmap("01", nil)

	assert.Equal(t, "01", data.SlideID)
	assert.Zero(t, data.TotalClicks)
	assert.Zero(t, data.CTAClicks)
	assert.Empty(t, data.Points)
}
