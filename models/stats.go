// api/models/stats.go
package models

// Aggregate shapes returned by the stats, funnel, and heatmap endpoints.
// All of them are derived on demand from durable rows; none is persisted.

type TimeSeriesPoint struct {
	Date           string `json:"date"` // YYYY-MM-DD, UTC
	PageViews      int    `json:"pageViews"`
	UniqueVisitors int    `json:"uniqueVisitors"`
	Sessions       int    `json:"sessions"`
}

// SlideStats is one row of the per-slide table. BounceRate divides sessions
// exiting at the slide by the slide's raw view count.
type SlideStats struct {
	SlideID        string  `json:"slideId"`
	Views          int     `json:"views"`
	UniqueVisitors int     `json:"uniqueVisitors"`
	AvgDurationMs  float64 `json:"avgDurationMs"`
	BounceRate     float64 `json:"bounceRate"`
	CTAClicks      int     `json:"ctaClicks"`
	TotalClicks    int     `json:"totalClicks"`
}

type RealtimeStats struct {
	CurrentVisitors int            `json:"currentVisitors"`
	SlideBreakdown  map[string]int `json:"slideBreakdown,omitempty"`
	LastUpdated     int64          `json:"lastUpdated"`
}

type DashboardStats struct {
	TotalPageViews     int               `json:"totalPageViews"`
	UniqueVisitors     int               `json:"uniqueVisitors"`
	AvgSessionDuration float64           `json:"avgSessionDuration"` // ms, closed sessions only
	BounceRate         float64           `json:"bounceRate"`
	CTAClickRate       float64           `json:"ctaClickRate"`
	TopSlides          []SlideStats      `json:"topSlides"`
	HighBounceSlides   []SlideStats      `json:"highBounceSlides"`
	AllSlides          []SlideStats      `json:"allSlides"`
	TimeSeries         []TimeSeriesPoint `json:"timeSeries"`
	Realtime           *RealtimeStats    `json:"realtime,omitempty"`
}

type SlideTransition struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
}

// FunnelStep uses the drop-off definition with unique visitors as the
// denominator, distinct from SlideStats.BounceRate. Both are kept as-is.
type FunnelStep struct {
	SlideID     string  `json:"slideId"`
	SlideName   string  `json:"slideName"`
	Visitors    int     `json:"visitors"`
	DropOffRate float64 `json:"dropOffRate"`
	CTAClicks   int     `json:"ctaClicks"`
	AvgDuration float64 `json:"avgDuration"` // ms
}

type SlideCount struct {
	SlideID string `json:"slideId"`
	Count   int    `json:"count"`
}

type FunnelData struct {
	Transitions       []SlideTransition `json:"transitions"`
	Steps             []FunnelStep      `json:"steps"`
	EntryDistribution []SlideCount      `json:"entryDistribution"`
	ExitDistribution  []SlideCount      `json:"exitDistribution"`
	TotalSessions     int               `json:"totalSessions"`
}

type HeatmapPoint struct {
	XPercent int `json:"xPercent"`
	YPercent int `json:"yPercent"`
	Count    int `json:"count"`
}

type HeatmapData struct {
	SlideID     string         `json:"slideId"`
	TotalClicks int            `json:"totalClicks"`
	CTAClicks   int            `json:"ctaClicks"`
	Points      []HeatmapPoint `json:"points"`
}
