package handler

import (
	"net/http"
	"strings"

	"nodepulse/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type Handler struct {
	tracer trace.Tracer
	pulse  *service.PulseService
	apiKey string
}

func New(tracer trace.Tracer, pulse *service.PulseService, apiKey string) *Handler {
	return &Handler{
		tracer: tracer,
		pulse:  pulse,
		apiKey: apiKey,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/api/signals", h.GetSignals)
	r.GET("/api/signals/:symbol", h.GetSignal)
	r.GET("/api/nodes", h.GetNodeStats)
	r.GET("/api/history", h.GetHistory)
	r.GET("/api/prices/:symbol", h.GetPrice)
	r.POST("/api/refresh", apiKeyAuth(h.apiKey), h.TriggerRefresh)
}

// apiKeyAuth enforces X-API-Key header validation on mutating routes.
// An empty key disables the check.
func apiKeyAuth(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		provided := strings.TrimSpace(c.GetHeader("X-API-Key"))
		if provided == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing X-API-Key header"})
			return
		}
		if provided != key {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid API key"})
			return
		}
		c.Next()
	}
}
