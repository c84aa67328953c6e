package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health godoc
// @Summary      Health check
// @Description  Returns service health, engine state, and last refresh time
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	resp := gin.H{
		"status": "healthy",
		"state":  string(h.pulse.State()),
	}
	if last := h.pulse.LastRefresh(); !last.IsZero() {
		resp["last_refresh"] = last.UTC().Format("2006-01-02T15:04:05Z")
	}
	c.JSON(http.StatusOK, resp)
}
