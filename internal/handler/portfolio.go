package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetPortfolio returns the SOL balance and every open position priced now.
func (h *Handler) GetPortfolio(c *gin.Context) {
	if h.deps.Portfolio == nil {
		unavailable(c, "portfolio service")
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-portfolio")
	defer span.End()

	c.JSON(http.StatusOK, h.deps.Portfolio.Snapshot(ctx))
}

// GetPrice returns the current SOL price of one asset.
func (h *Handler) GetPrice(c *gin.Context) {
	if h.deps.Prices == nil {
		unavailable(c, "price service")
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-price")
	defer span.End()

	asset := strings.TrimSpace(c.Param("asset"))
	span.SetAttributes(attribute.String("asset", asset))
	if asset == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "asset is required"})
		return
	}

	price := h.deps.Prices.GetPrice(ctx, asset)
	if price <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "price unavailable for " + asset})
		return
	}
	c.JSON(http.StatusOK, gin.H{"asset": asset, "price": price})
}

func (h *Handler) GetSOLPrice(c *gin.Context) {
	if h.deps.Prices == nil {
		unavailable(c, "price service")
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-sol-price")
	defer span.End()

	usd := h.deps.Prices.GetSOLPriceUSD(ctx)
	if usd <= 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "SOL price unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"price_usd": usd})
}
