package handler

import (
	"net/http"
	"strings"

	"nodepulse/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetSignals godoc
// @Summary      Get the current signal for all tracked assets
// @Description  Returns the master classification mirrored across every tracked asset, with latest prices
// @Tags         signals
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/signals [get]
func (h *Handler) GetSignals(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-signals")
	defer span.End()

	records := h.pulse.GetSignals(ctx)
	c.JSON(http.StatusOK, gin.H{"signals": records})
}

// GetSignal godoc
// @Summary      Get the current signal for one asset
// @Description  Returns the signal record for a single tracked symbol
// @Tags         signals
// @Produce      json
// @Param        symbol  path  string  true  "Asset symbol (e.g., BTC, ETH)"
// @Success      200  {object}  domain.SignalRecord
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/signals/{symbol} [get]
func (h *Handler) GetSignal(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-signal")
	defer span.End()

	symbol := strings.ToUpper(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	if !domain.IsTracked(symbol) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "unsupported symbol: " + symbol,
			"supported_symbols": domain.TrackedSymbols,
		})
		return
	}

	rec, err := h.pulse.GetSignal(ctx, symbol)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// TriggerRefresh godoc
// @Summary      Trigger a refresh cycle
// @Description  Runs one fetch/compute/persist cycle and returns the resulting records
// @Tags         signals
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /api/refresh [post]
func (h *Handler) TriggerRefresh(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.trigger-refresh")
	defer span.End()

	records := h.pulse.TriggerRefresh(ctx)
	c.JSON(http.StatusOK, gin.H{"signals": records})
}
