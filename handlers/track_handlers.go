// api/handlers/track_handlers.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mssola/useragent"
	"github.com/rs/zerolog/log"

	"slidetrack/api/cache"
	"slidetrack/api/models"
	"slidetrack/api/store"
)

// TrackHandlers is the ingestion boundary: one endpoint, five event kinds.
// Sessions, presence, and the viewed-slide set live in the cache; every
// accepted event lands in the durable store. Archive is optional and
// best-effort.
type TrackHandlers struct {
	Store    store.EventStore
	Sessions cache.SessionStore
	Presence cache.Presence
	Archive  *store.ArchiveStore
}

func NewTrackHandlers(s store.EventStore, sessions cache.SessionStore, presence cache.Presence, archive *store.ArchiveStore) *TrackHandlers {
	return &TrackHandlers{
		Store:    s,
		Sessions: sessions,
		Presence: presence,
		Archive:  archive,
	}
}

func (h *TrackHandlers) TrackEvent(c *gin.Context) {
	var event models.TrackEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, models.TrackResponse{Error: "Invalid request body"})
		return
	}

	// Client clocks are advisory. A missing timestamp gets server time; the
	// cache's last-active value is what duration attribution runs on either way.
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	switch event.Type {
	case models.EventSessionStart:
		h.handleSessionStart(ctx, c, &event)
	case models.EventPageView:
		h.handlePageView(ctx, c, &event)
	case models.EventClick:
		h.handleClick(ctx, c, &event)
	case models.EventCTAClick:
		h.handleCTAClick(ctx, c, &event)
	case models.EventSessionEnd:
		h.handleSessionEnd(ctx, c, &event)
	default:
		c.JSON(http.StatusBadRequest, models.TrackResponse{Error: "Unknown event type"})
	}
}

func (h *TrackHandlers) handleSessionStart(ctx context.Context, c *gin.Context, event *models.TrackEvent) {
	var data models.SessionStartData
	if err := json.Unmarshal(event.Data, &data); err != nil || data.EntrySlide == "" {
		c.JSON(http.StatusBadRequest, models.TrackResponse{Error: "Invalid session_start payload"})
		return
	}

	if data.UserAgent == "" {
		data.UserAgent = c.Request.UserAgent()
	}
	if data.DeviceType == "" {
		data.DeviceType = deviceTypeFromUA(data.UserAgent)
	}

	session := &models.Session{
		VisitorID:  event.VisitorID,
		StartedAt:  time.UnixMilli(event.Timestamp).UTC(),
		DeviceType: data.DeviceType,
		UserAgent:  data.UserAgent,
		Referrer:   data.Referrer,
		EntrySlide: data.EntrySlide,
		IPAddress:  c.ClientIP(),
	}

	sessionID, err := h.Store.CreateSession(ctx, session)
	if err != nil {
		log.Error().Err(err).Str("visitor_id", event.VisitorID).Msg("Failed to create session")
		c.JSON(http.StatusInternalServerError, models.TrackResponse{Error: "Failed to record session"})
		return
	}

	entry := &cache.Entry{
		SessionID:    sessionID,
		CurrentSlide: data.EntrySlide,
		StartedAt:    event.Timestamp,
		LastActive:   event.Timestamp,
		SlidesViewed: []string{data.EntrySlide},
	}
	if err := h.Sessions.Set(ctx, event.VisitorID, entry); err != nil {
		// Durable session exists but is now unaddressable: it will simply
		// never receive further events. Accepted degraded state.
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to cache new session")
		c.JSON(http.StatusInternalServerError, models.TrackResponse{Error: "Failed to cache session"})
		return
	}

	if err := h.Presence.Track(ctx, event.VisitorID, data.EntrySlide); err != nil {
		log.Warn().Err(err).Msg("Failed to track realtime presence")
	}

	h.archive(event, data.EntrySlide, sessionID, data.UserAgent, c.ClientIP())
	c.JSON(http.StatusOK, models.TrackResponse{Success: true, SessionID: sessionID})
}

func (h *TrackHandlers) handlePageView(ctx context.Context, c *gin.Context, event *models.TrackEvent) {
	var data models.PageViewData
	if err := json.Unmarshal(event.Data, &data); err != nil || data.SlideID == "" {
		c.JSON(http.StatusBadRequest, models.TrackResponse{Error: "Invalid page_view payload"})
		return
	}

	entry, ok := h.liveEntry(ctx, c, event.VisitorID)
	if !ok {
		return
	}

	// Duration is attributed to the slide being left: elapsed time since the
	// cache last saw this visitor. Processing order, not event-generation
	// order, decides the value.
	durationMs := event.Timestamp - entry.LastActive
	if durationMs < 0 {
		durationMs = 0
	}

	slideType := data.SlideType
	if slideType == "" {
		slideType = "vertical"
	}

	pv := &models.PageView{
		SessionID:       entry.SessionID,
		SlideID:         data.SlideID,
		SlideType:       slideType,
		ParentSlideID:   data.ParentSlideID,
		ViewedAt:        time.UnixMilli(event.Timestamp).UTC(),
		DurationMs:      durationMs,
		ScrollDirection: data.ScrollDirection,
	}
	if err := h.Store.InsertPageView(ctx, pv); err != nil {
		log.Error().Err(err).Str("session_id", entry.SessionID).Msg("Failed to insert page view")
		c.JSON(http.StatusInternalServerError, models.TrackResponse{Error: "Failed to record page view"})
		return
	}

	if err := h.Presence.Track(ctx, event.VisitorID, data.SlideID); err != nil {
		log.Warn().Err(err).Msg("Failed to track realtime presence")
	}

	entry.CurrentSlide = data.SlideID
	entry.LastActive = event.Timestamp
	if !entry.HasViewed(data.SlideID) {
		entry.SlidesViewed = append(entry.SlidesViewed, data.SlideID)
	}
	if err := h.Sessions.Set(ctx, event.VisitorID, entry); err != nil {
		log.Error().Err(err).Str("session_id", entry.SessionID).Msg("Failed to update session cache")
		c.JSON(http.StatusInternalServerError, models.TrackResponse{Error: "Failed to update session"})
		return
	}

	h.archive(event, data.SlideID, entry.SessionID, "", c.ClientIP())
	c.JSON(http.StatusOK, models.TrackResponse{Success: true})
}

func (h *TrackHandlers) handleClick(ctx context.Context, c *gin.Context, event *models.TrackEvent) {
	var data models.ClickData
	if err := json.Unmarshal(event.Data, &data); err != nil || data.SlideID == "" {
		c.JSON(http.StatusBadRequest, models.TrackResponse{Error: "Invalid click payload"})
		return
	}

	entry, ok := h.liveEntry(ctx, c, event.VisitorID)
	if !ok {
		return
	}

	ce := &models.ClickEvent{
		SessionID:   entry.SessionID,
		SlideID:     data.SlideID,
		XPercent:    data.XPercent,
		YPercent:    data.YPercent,
		ElementType: data.ElementType,
		ElementText: data.ElementText,
		ClickedAt:   time.UnixMilli(event.Timestamp).UTC(),
	}
	if err := h.Store.InsertClickEvent(ctx, ce); err != nil {
		log.Error().Err(err).Str("session_id", entry.SessionID).Msg("Failed to insert click event")
		c.JSON(http.StatusInternalServerError, models.TrackResponse{Error: "Failed to record click"})
		return
	}

	h.archive(event, data.SlideID, entry.SessionID, "", c.ClientIP())
	c.JSON(http.StatusOK, models.TrackResponse{Success: true})
}

func (h *TrackHandlers) handleCTAClick(ctx context.Context, c *gin.Context, event *models.TrackEvent) {
	var data models.CTAClickData
	if err := json.Unmarshal(event.Data, &data); err != nil || data.SlideID == "" {
		c.JSON(http.StatusBadRequest, models.TrackResponse{Error: "Invalid cta_click payload"})
		return
	}

	entry, ok := h.liveEntry(ctx, c, event.VisitorID)
	if !ok {
		return
	}

	cc := &models.CTAClick{
		SessionID: entry.SessionID,
		SlideID:   data.SlideID,
		CTAText:   data.CTAText,
		CTAAction: data.CTAAction,
		CTAHref:   data.CTAHref,
		ClickedAt: time.UnixMilli(event.Timestamp).UTC(),
	}
	if err := h.Store.InsertCTAClick(ctx, cc); err != nil {
		log.Error().Err(err).Str("session_id", entry.SessionID).Msg("Failed to insert cta click")
		c.JSON(http.StatusInternalServerError, models.TrackResponse{Error: "Failed to record cta click"})
		return
	}

	h.archive(event, data.SlideID, entry.SessionID, "", c.ClientIP())
	c.JSON(http.StatusOK, models.TrackResponse{Success: true})
}

func (h *TrackHandlers) handleSessionEnd(ctx context.Context, c *gin.Context, event *models.TrackEvent) {
	// Delivered via sendBeacon at page teardown: it may never arrive, or
	// arrive after the cache expired. Either way the session just stays open.
	entry, ok := h.liveEntry(ctx, c, event.VisitorID)
	if !ok {
		return
	}

	var data models.SessionStartData
	if err := json.Unmarshal(event.Data, &data); err != nil || data.ExitSlide == "" {
		c.JSON(http.StatusBadRequest, models.TrackResponse{Error: "Invalid session_end payload"})
		return
	}

	endedAt := time.UnixMilli(event.Timestamp).UTC()
	if err := h.Store.EndSession(ctx, entry.SessionID, endedAt, data.ExitSlide, len(entry.SlidesViewed)); err != nil {
		log.Error().Err(err).Str("session_id", entry.SessionID).Msg("Failed to end session")
		c.JSON(http.StatusInternalServerError, models.TrackResponse{Error: "Failed to end session"})
		return
	}

	// No cache delete: natural expiration handles cleanup.
	h.archive(event, data.ExitSlide, entry.SessionID, "", c.ClientIP())
	c.JSON(http.StatusOK, models.TrackResponse{Success: true})
}

// liveEntry resolves the visitor's live cache entry, writing the 400-class
// "session not found" rejection when it is absent or expired.
func (h *TrackHandlers) liveEntry(ctx context.Context, c *gin.Context, visitorID string) (*cache.Entry, bool) {
	entry, err := h.Sessions.Get(ctx, visitorID)
	if errors.Is(err, cache.ErrSessionNotFound) {
		c.JSON(http.StatusBadRequest, models.TrackResponse{Error: "Session not found"})
		return nil, false
	}
	if err != nil {
		log.Error().Err(err).Str("visitor_id", visitorID).Msg("Session cache read failed")
		c.JSON(http.StatusInternalServerError, models.TrackResponse{Error: "Failed to resolve session"})
		return nil, false
	}
	return entry, true
}

// archive mirrors the accepted event into ClickHouse when configured.
// Failures are logged and never affect the response.
func (h *TrackHandlers) archive(event *models.TrackEvent, slideID, sessionID, userAgent, clientIP string) {
	if h.Archive == nil {
		return
	}

	row := models.ArchiveEvent{
		EventID:   uuid.NewString(),
		EventType: event.Type,
		VisitorID: event.VisitorID,
		SessionID: sessionID,
		SlideID:   slideID,
		Timestamp: time.UnixMilli(event.Timestamp).UTC(),
		IPAddress: clientIP,
		UserAgent: userAgent,
		Payload:   string(event.Data),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Archive.InsertEvents(ctx, []models.ArchiveEvent{row}); err != nil {
		log.Warn().Err(err).Str("event_type", event.Type).Msg("Failed to archive raw event")
	}
}

func deviceTypeFromUA(uaString string) string {
	if uaString == "" {
		return "desktop"
	}
	ua := useragent.New(uaString)
	if ua.Mobile() {
		return "mobile"
	}
	if ua.Bot() {
		return "bot"
	}
	return "desktop"
}
