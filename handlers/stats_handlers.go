// api/handlers/stats_handlers.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"slidetrack/api/aggregate"
	"slidetrack/api/cache"
	"slidetrack/api/models"
	"slidetrack/api/store"
	"slidetrack/api/utils"
)

// StatsHandlers is the read path: it scans the durable store over the
// requested window and hands the rows to the aggregate package. Any store
// read failure aborts the whole call; no partial aggregate is returned.
type StatsHandlers struct {
	Store    store.EventStore
	Presence cache.Presence
	Archive  *store.ArchiveStore
}

func NewStatsHandlers(s store.EventStore, presence cache.Presence, archive *store.ArchiveStore) *StatsHandlers {
	return &StatsHandlers{Store: s, Presence: presence, Archive: archive}
}

func (h *StatsHandlers) GetStats(c *gin.Context) {
	from, to, err := utils.ParseDateWindow(c.Query("from"), c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	sessions, err := h.Store.SessionsBetween(ctx, from, to)
	if err != nil {
		h.failRead(c, err, "sessions")
		return
	}
	pageViews, err := h.Store.PageViewsBetween(ctx, from, to)
	if err != nil {
		h.failRead(c, err, "page views")
		return
	}
	clicks, err := h.Store.ClickEventsBetween(ctx, from, to)
	if err != nil {
		h.failRead(c, err, "click events")
		return
	}
	ctaClicks, err := h.Store.CTAClicksBetween(ctx, from, to)
	if err != nil {
		h.failRead(c, err, "cta clicks")
		return
	}

	stats := aggregate.Dashboard(sessions, pageViews, clicks, ctaClicks)

	// Presence is always "now", independent of the queried window. A presence
	// read failure degrades to a zero count rather than failing the call.
	realtime := &models.RealtimeStats{LastUpdated: time.Now().UnixMilli()}
	if current, err := h.Presence.CurrentVisitors(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to read realtime visitor count")
	} else {
		realtime.CurrentVisitors = current
	}
	if realtime.CurrentVisitors > 0 && len(stats.AllSlides) > 0 {
		slideIDs := make([]string, 0, len(stats.AllSlides))
		for _, row := range stats.AllSlides {
			slideIDs = append(slideIDs, row.SlideID)
		}
		if breakdown, err := h.Presence.SlideBreakdown(ctx, slideIDs); err != nil {
			log.Warn().Err(err).Msg("Failed to read per-slide presence")
		} else {
			realtime.SlideBreakdown = breakdown
		}
	}
	stats.Realtime = realtime

	c.JSON(http.StatusOK, stats)
}

func (h *StatsHandlers) GetFunnel(c *gin.Context) {
	from, to, err := utils.ParseDateWindow(c.Query("from"), c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	sessions, err := h.Store.SessionsBetween(ctx, from, to)
	if err != nil {
		h.failRead(c, err, "sessions")
		return
	}
	pageViews, err := h.Store.PageViewsBetween(ctx, from, to)
	if err != nil {
		h.failRead(c, err, "page views")
		return
	}
	ctaClicks, err := h.Store.CTAClicksBetween(ctx, from, to)
	if err != nil {
		h.failRead(c, err, "cta clicks")
		return
	}

	c.JSON(http.StatusOK, aggregate.Funnel(sessions, pageViews, ctaClicks))
}

func (h *StatsHandlers) GetHeatmap(c *gin.Context) {
	slideID := c.Param("slideId")
	if slideID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "slideId is required"})
		return
	}

	from, to, err := utils.ParseDateWindow(c.Query("from"), c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	clicks, err := h.Store.ClickEventsForSlide(ctx, slideID, from, to)
	if err != nil {
		h.failRead(c, err, "click events")
		return
	}

	c.JSON(http.StatusOK, aggregate.Heatmap(slideID, clicks))
}

// Reset deletes every session; the cascade takes page views, clicks, and CTA
// clicks with it. Idempotent: resetting an empty store succeeds.
func (h *StatsHandlers) Reset(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	if err := h.Store.DeleteAllSessions(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to reset analytics data")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to reset analytics data"})
		return
	}

	if h.Archive != nil {
		if err := h.Archive.Truncate(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to truncate raw-event archive")
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "All analytics data has been reset"})
}

func (h *StatsHandlers) failRead(c *gin.Context, err error, what string) {
	log.Error().Err(err).Str("records", what).Msg("Aggregation read failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve analytics data"})
}
