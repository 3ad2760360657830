package server

import (
	"io"
	"net/http"
	"time"

	"github.com/MarcoPoloResearchLab/lotostats/internal/draws"
	"github.com/gin-gonic/gin"
)

type realtimeEventPayload struct {
	Category  string `json:"category"`
	Source    string `json:"source"`
	Inserted  int    `json:"inserted"`
	Records   int    `json:"records"`
	Timestamp int64  `json:"timestamp_s"`
}

// handleEvents streams draws-changed events as server-sent events, filtered
// by the optional category query parameter.
func (h *httpHandler) handleEvents(c *gin.Context) {
	categoryName := ""
	if raw := c.Query("category"); raw != "" {
		category, ok := draws.ResolveCategory(raw)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown_category"})
			return
		}
		categoryName = category.APIName
	}

	ctx := c.Request.Context()
	stream, cleanup := h.realtime.Subscribe(ctx, categoryName)
	defer cleanup()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.SSEvent(realtimeEventHeartbeat, gin.H{"source": realtimeSourceBackend})
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.Stream(func(_ io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case message, open := <-stream:
			if !open {
				return false
			}
			c.SSEvent(message.EventType, realtimeEventPayload{
				Category:  message.Category,
				Source:    message.Source,
				Inserted:  message.Inserted,
				Records:   message.Records,
				Timestamp: message.Timestamp.Unix(),
			})
			return true
		case <-ticker.C:
			c.SSEvent(realtimeEventHeartbeat, gin.H{"source": realtimeSourceBackend})
			return true
		}
	})
}
