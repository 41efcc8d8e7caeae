// api/aggregate/aggregate.go

// Package aggregate derives dashboard, funnel, and heatmap statistics from
// durable rows. Every function is a pure computation over the rows it is
// handed; fetching them (and any time-window filtering) is the caller's job.
package aggregate

import (
	"math"
	"sort"
	"time"

	"slidetrack/api/models"
)

const (
	topSlidesLimit   = 5
	transitionsLimit = 50
)

// Dashboard builds the stats-summary payload: KPIs, the time series, the full
// per-slide table, and the top/high-bounce rankings derived from it.
func Dashboard(sessions []models.Session, pageViews []models.PageView, clicks []models.ClickEvent, ctaClicks []models.CTAClick) models.DashboardStats {
	stats := models.DashboardStats{
		TotalPageViews: len(pageViews),
	}

	visitors := make(map[string]struct{})
	for _, s := range sessions {
		visitors[s.VisitorID] = struct{}{}
	}
	stats.UniqueVisitors = len(visitors)

	// Duration and bounce KPIs consider closed sessions only. Open sessions
	// (lost session_end) are excluded, skewing toward completed visits.
	var closed, bounces int
	var totalDuration float64
	for _, s := range sessions {
		if s.EndedAt == nil {
			continue
		}
		closed++
		totalDuration += float64(s.EndedAt.Sub(s.StartedAt).Milliseconds())
		if s.TotalSlidesViewed <= 1 {
			bounces++
		}
	}
	if closed > 0 {
		stats.AvgSessionDuration = totalDuration / float64(closed)
		stats.BounceRate = float64(bounces) / float64(closed) * 100
	}

	// CTA rate denominator is visit count, not CTA-eligible views.
	if stats.UniqueVisitors > 0 {
		stats.CTAClickRate = float64(len(ctaClicks)) / float64(stats.UniqueVisitors) * 100
	}

	stats.AllSlides = slideTable(sessions, pageViews, clicks, ctaClicks)

	stats.TopSlides = topByViews(stats.AllSlides)
	stats.HighBounceSlides = topByBounce(stats.AllSlides)
	stats.TimeSeries = timeSeries(pageViews)

	return stats
}

// slideTable computes one SlideStats row per slide seen in the window, in
// natural slide-id order. BounceRate divides exits at the slide by the
// slide's raw view count; revisits inflate the denominator, which is the
// documented approximation.
func slideTable(sessions []models.Session, pageViews []models.PageView, clicks []models.ClickEvent, ctaClicks []models.CTAClick) []models.SlideStats {
	type acc struct {
		views         int
		totalDuration int64
		sessions      map[string]struct{}
	}
	bySlide := make(map[string]*acc)
	for _, pv := range pageViews {
		a, ok := bySlide[pv.SlideID]
		if !ok {
			a = &acc{sessions: make(map[string]struct{})}
			bySlide[pv.SlideID] = a
		}
		a.views++
		a.totalDuration += pv.DurationMs
		a.sessions[pv.SessionID] = struct{}{}
	}

	exits := exitCounts(sessions)

	ctaBySlide := make(map[string]int)
	for _, cc := range ctaClicks {
		ctaBySlide[cc.SlideID]++
	}
	clicksBySlide := make(map[string]int)
	for _, ce := range clicks {
		clicksBySlide[ce.SlideID]++
	}

	table := make([]models.SlideStats, 0, len(bySlide))
	for slideID, a := range bySlide {
		row := models.SlideStats{
			SlideID:        slideID,
			Views:          a.views,
			UniqueVisitors: len(a.sessions),
			AvgDurationMs:  float64(a.totalDuration) / float64(a.views),
			CTAClicks:      ctaBySlide[slideID],
			TotalClicks:    clicksBySlide[slideID],
		}
		if n := exits[slideID]; n > 0 {
			row.BounceRate = float64(n) / float64(a.views) * 100
		}
		table = append(table, row)
	}

	sort.SliceStable(table, func(i, j int) bool {
		return NaturalLess(table[i].SlideID, table[j].SlideID)
	})
	return table
}

func topByViews(table []models.SlideStats) []models.SlideStats {
	ranked := append([]models.SlideStats(nil), table...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Views > ranked[j].Views })
	if len(ranked) > topSlidesLimit {
		ranked = ranked[:topSlidesLimit]
	}
	return ranked
}

func topByBounce(table []models.SlideStats) []models.SlideStats {
	ranked := make([]models.SlideStats, 0, len(table))
	for _, row := range table {
		if row.BounceRate > 0 {
			ranked = append(ranked, row)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].BounceRate > ranked[j].BounceRate })
	if len(ranked) > topSlidesLimit {
		ranked = ranked[:topSlidesLimit]
	}
	return ranked
}

func timeSeries(pageViews []models.PageView) []models.TimeSeriesPoint {
	type bucket struct {
		pageViews int
		sessions  map[string]struct{}
	}
	byDate := make(map[string]*bucket)
	for _, pv := range pageViews {
		date := pv.ViewedAt.UTC().Format(time.DateOnly)
		b, ok := byDate[date]
		if !ok {
			b = &bucket{sessions: make(map[string]struct{})}
			byDate[date] = b
		}
		b.pageViews++
		b.sessions[pv.SessionID] = struct{}{}
	}

	series := make([]models.TimeSeriesPoint, 0, len(byDate))
	for date, b := range byDate {
		series = append(series, models.TimeSeriesPoint{
			Date:           date,
			PageViews:      b.pageViews,
			UniqueVisitors: len(b.sessions),
			Sessions:       len(b.sessions),
		})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })
	return series
}

// Funnel reconstructs each session's ordered view sequence and derives
// adjacent-pair transition counts, per-step drop-off, and the entry/exit
// distributions.
func Funnel(sessions []models.Session, pageViews []models.PageView, ctaClicks []models.CTAClick) models.FunnelData {
	// Group views per session preserving timestamp order. PageViewsBetween
	// returns rows ordered by viewed_at, so appending keeps that order; sort
	// defensively anyway since MemoryStore preserves insertion order instead.
	bySession := make(map[string][]models.PageView)
	for _, pv := range pageViews {
		bySession[pv.SessionID] = append(bySession[pv.SessionID], pv)
	}
	for id := range bySession {
		views := bySession[id]
		sort.SliceStable(views, func(i, j int) bool { return views[i].ViewedAt.Before(views[j].ViewedAt) })
		bySession[id] = views
	}

	// Transitions: one count per adjacent pair, immediate repeats included.
	type pair struct{ from, to string }
	transitionCounts := make(map[pair]int)
	var pairOrder []pair
	for _, views := range bySession {
		for i := 0; i+1 < len(views); i++ {
			p := pair{views[i].SlideID, views[i+1].SlideID}
			if _, seen := transitionCounts[p]; !seen {
				pairOrder = append(pairOrder, p)
			}
			transitionCounts[p]++
		}
	}
	transitions := make([]models.SlideTransition, 0, len(pairOrder))
	for _, p := range pairOrder {
		transitions = append(transitions, models.SlideTransition{From: p.from, To: p.to, Count: transitionCounts[p]})
	}
	sort.SliceStable(transitions, func(i, j int) bool { return transitions[i].Count > transitions[j].Count })
	if len(transitions) > transitionsLimit {
		transitions = transitions[:transitionsLimit]
	}

	// Per-step stats keyed by slide: distinct sessions, view count, duration.
	type stepAcc struct {
		visitors      map[string]struct{}
		viewCount     int
		totalDuration int64
	}
	steps := make(map[string]*stepAcc)
	for sessionID, views := range bySession {
		for _, v := range views {
			a, ok := steps[v.SlideID]
			if !ok {
				a = &stepAcc{visitors: make(map[string]struct{})}
				steps[v.SlideID] = a
			}
			a.visitors[sessionID] = struct{}{}
			a.viewCount++
			a.totalDuration += v.DurationMs
		}
	}

	exits := exitCounts(sessions)
	ctaBySlide := make(map[string]int)
	for _, cc := range ctaClicks {
		ctaBySlide[cc.SlideID]++
	}

	funnelSteps := make([]models.FunnelStep, 0, len(steps))
	for slideID, a := range steps {
		visitors := len(a.visitors)
		step := models.FunnelStep{
			SlideID:   slideID,
			SlideName: "Slide " + slideID,
			Visitors:  visitors,
			CTAClicks: ctaBySlide[slideID],
		}
		if visitors > 0 {
			step.DropOffRate = float64(exits[slideID]) / float64(visitors) * 100
		}
		if a.viewCount > 0 {
			step.AvgDuration = float64(a.totalDuration) / float64(a.viewCount)
		}
		funnelSteps = append(funnelSteps, step)
	}
	sort.SliceStable(funnelSteps, func(i, j int) bool { return funnelSteps[i].Visitors > funnelSteps[j].Visitors })

	entries := make(map[string]int)
	for _, s := range sessions {
		if s.EntrySlide != "" {
			entries[s.EntrySlide]++
		}
	}

	return models.FunnelData{
		Transitions:       transitions,
		Steps:             funnelSteps,
		EntryDistribution: distribution(entries),
		ExitDistribution:  distribution(exits),
		TotalSessions:     len(sessions),
	}
}

// Heatmap aggregates one slide's clicks onto a 2% grid: each coordinate is
// rounded to the nearest even percent and clicks landing in the same cell
// merge into one point.
func Heatmap(slideID string, clicks []models.ClickEvent) models.HeatmapData {
	data := models.HeatmapData{
		SlideID:     slideID,
		TotalClicks: len(clicks),
	}

	type cell struct{ x, y int }
	counts := make(map[cell]int)
	var cellOrder []cell
	for _, ce := range clicks {
		if ce.ElementType == "cta" {
			data.CTAClicks++
		}
		c := cell{snapToGrid(ce.XPercent), snapToGrid(ce.YPercent)}
		if _, seen := counts[c]; !seen {
			cellOrder = append(cellOrder, c)
		}
		counts[c]++
	}

	data.Points = make([]models.HeatmapPoint, 0, len(cellOrder))
	for _, c := range cellOrder {
		data.Points = append(data.Points, models.HeatmapPoint{XPercent: c.x, YPercent: c.y, Count: counts[c]})
	}
	return data
}

func snapToGrid(p float64) int {
	return int(math.Round(p/2) * 2)
}

// exitCounts counts closed sessions per exit slide. Open sessions carry no
// exit slide and contribute nothing.
func exitCounts(sessions []models.Session) map[string]int {
	exits := make(map[string]int)
	for _, s := range sessions {
		if s.ExitSlide != "" {
			exits[s.ExitSlide]++
		}
	}
	return exits
}

func distribution(counts map[string]int) []models.SlideCount {
	out := make([]models.SlideCount, 0, len(counts))
	for slideID, count := range counts {
		out = append(out, models.SlideCount{SlideID: slideID, Count: count})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return NaturalLess(out[i].SlideID, out[j].SlideID)
	})
	return out
}
