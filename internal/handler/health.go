package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health godoc
// @Summary      Health check
// @Description  Returns the health status of the service and the age of the feed
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	resp := gin.H{"status": "healthy"}
	if h.feed != nil {
		snap := h.feed.Snapshot()
		resp["feed_items"] = len(snap.Items)
		if !snap.UpdatedAt.IsZero() {
			resp["feed_updated_at"] = snap.UpdatedAt
		}
		if snap.Err != "" {
			resp["status"] = "degraded"
		}
	}
	c.JSON(http.StatusOK, resp)
}
