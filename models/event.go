// api/models/event.go
package models

import (
	"encoding/json"
	"time"
)

// Event kinds accepted by the track endpoint.
const (
	EventSessionStart = "session_start"
	EventPageView     = "page_view"
	EventClick        = "click"
	EventCTAClick     = "cta_click"
	EventSessionEnd   = "session_end"
)

// TrackEvent is the envelope every client event arrives in. Data is decoded
// per Type into one of the payload structs below.
type TrackEvent struct {
	Type      string          `json:"type" binding:"required"`
	VisitorID string          `json:"visitorId" binding:"required"`
	SessionID string          `json:"sessionId"`
	Timestamp int64           `json:"timestamp"` // epoch milliseconds, client clock
	Data      json.RawMessage `json:"data"`
}

// SessionStartData carries session_start and session_end payloads. EntrySlide
// is set on start, ExitSlide on end.
type SessionStartData struct {
	DeviceType string `json:"deviceType"`
	UserAgent  string `json:"userAgent"`
	Referrer   string `json:"referrer"`
	EntrySlide string `json:"entrySlide"`
	ExitSlide  string `json:"exitSlide"`
}

type PageViewData struct {
	SlideID         string `json:"slideId"`
	SlideType       string `json:"slideType"` // vertical | horizontal
	ParentSlideID   string `json:"parentSlideId,omitempty"`
	ScrollDirection string `json:"scrollDirection,omitempty"` // next | prev | horizontal
	// DurationMs is accepted for wire compatibility but ignored: the server
	// attributes duration from the session cache's last-active timestamp.
	DurationMs int64 `json:"durationMs,omitempty"`
}

type ClickData struct {
	SlideID     string  `json:"slideId"`
	XPercent    float64 `json:"xPercent"`
	YPercent    float64 `json:"yPercent"`
	ElementType string  `json:"elementType"` // cta | image | other
	ElementText string  `json:"elementText,omitempty"`
}

type CTAClickData struct {
	SlideID   string `json:"slideId"`
	CTAText   string `json:"ctaText"`
	CTAAction string `json:"ctaAction"`
	CTAHref   string `json:"ctaHref,omitempty"`
}

// TrackResponse is returned for every track call. SessionID is only populated
// for session_start, where the server-assigned id is handed back to the client.
type TrackResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Session is one visit. EndedAt and ExitSlide stay unset until the terminating
// event arrives; a session with nil EndedAt is open.
type Session struct {
	ID                string     `json:"id"`
	VisitorID         string     `json:"visitorId"`
	StartedAt         time.Time  `json:"startedAt"`
	EndedAt           *time.Time `json:"endedAt,omitempty"`
	DeviceType        string     `json:"deviceType,omitempty"`
	UserAgent         string     `json:"userAgent,omitempty"`
	Referrer          string     `json:"referrer,omitempty"`
	EntrySlide        string     `json:"entrySlide,omitempty"`
	ExitSlide         string     `json:"exitSlide,omitempty"`
	TotalSlidesViewed int        `json:"totalSlidesViewed"`
	IPAddress         string     `json:"-"`
}

type PageView struct {
	ID              string    `json:"id"`
	SessionID       string    `json:"sessionId"`
	SlideID         string    `json:"slideId"`
	SlideType       string    `json:"slideType"`
	ParentSlideID   string    `json:"parentSlideId,omitempty"`
	ViewedAt        time.Time `json:"viewedAt"`
	DurationMs      int64     `json:"durationMs"` // time spent on the slide being left
	ScrollDirection string    `json:"scrollDirection,omitempty"`
}

type ClickEvent struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"sessionId"`
	SlideID     string    `json:"slideId"`
	XPercent    float64   `json:"xPercent"`
	YPercent    float64   `json:"yPercent"`
	ElementType string    `json:"elementType,omitempty"`
	ElementText string    `json:"elementText,omitempty"`
	ClickedAt   time.Time `json:"clickedAt"`
}

type CTAClick struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	SlideID   string    `json:"slideId"`
	CTAText   string    `json:"ctaText"`
	CTAAction string    `json:"ctaAction"`
	CTAHref   string    `json:"ctaHref,omitempty"`
	ClickedAt time.Time `json:"clickedAt"`
}

// ArchiveEvent is the flattened raw-event row written to the ClickHouse
// archive. Payload holds the original Data JSON verbatim.
type ArchiveEvent struct {
	EventID   string
	EventType string
	VisitorID string
	SessionID string
	SlideID   string
	Timestamp time.Time
	IPAddress string
	UserAgent string
	Payload   string
}
