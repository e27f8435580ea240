package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"clipstream/server/internal/middleware"
	"clipstream/server/internal/models"
	"clipstream/server/internal/notify"
)

const heartbeatInterval = 25 * time.Second

// UserEvents streams every processing update for the caller's media over
// SSE, regardless of which record it concerns.
func (h HandlerSet) UserEvents(c *gin.Context) {
	claims, ok := middleware.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sub := h.hub.SubscribeUser(claims.UserID)
	defer sub.Close()

	h.streamEvents(c, sub, "progress")
}

// MediaEvents streams updates for one record to explicit observers.
func (h HandlerSet) MediaEvents(c *gin.Context) {
	claims, ok := middleware.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	m, err := h.media.GetForTenant(c.Request.Context(), c.Param("id"), claims.TenantID)
	if err != nil {
		if errors.Is(err, models.ErrMediaNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	sub := h.hub.SubscribeMedia(m.ID)
	defer sub.Close()

	h.streamEvents(c, sub, "status-update")
}

func (h HandlerSet) streamEvents(c *gin.Context, sub *notify.Subscription, eventName string) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-heartbeat.C:
			_, _ = c.Writer.WriteString(": ping\n\n")
			c.Writer.Flush()
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			_, _ = c.Writer.WriteString("event: " + eventName + "\n")
			_, _ = c.Writer.WriteString("data: " + string(payload) + "\n\n")
			c.Writer.Flush()
		}
	}
}
