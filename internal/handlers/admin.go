package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// QueueStatus exposes queue depth and the in-flight job for observability.
func (h HandlerSet) QueueStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"queue": h.queue.Status()})
}
