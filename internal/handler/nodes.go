package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetNodeStats godoc
// @Summary      Get latest node statistics
// @Description  Returns total, Tor, and active node counts plus the Tor share from the latest snapshot
// @Tags         nodes
// @Produce      json
// @Success      200  {object}  service.NodeStats
// @Failure      503  {object}  map[string]string
// @Router       /api/nodes [get]
func (h *Handler) GetNodeStats(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-node-stats")
	defer span.End()

	stats, ok := h.pulse.GetNodeStats(ctx)
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no node snapshot yet"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetHistory godoc
// @Summary      Get the snapshot history window
// @Description  Returns the bounded snapshot history, oldest first, for charting
// @Tags         nodes
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/history [get]
func (h *Handler) GetHistory(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-history")
	defer span.End()

	history := h.pulse.GetHistory(ctx)
	c.JSON(http.StatusOK, gin.H{
		"count":     len(history),
		"snapshots": history,
	})
}
