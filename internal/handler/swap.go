package handler

import (
	"io"
	"net/http"
	"strings"

	"degen-autotrader/internal/domain"
	"degen-autotrader/internal/swap"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// PostSwap executes a swap intent in the current mode.
func (h *Handler) PostSwap(c *gin.Context) {
	if h.deps.Trader == nil {
		unavailable(c, "swap engine")
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.post-swap")
	defer span.End()

	var intent domain.SwapIntent
	if err := c.ShouldBindJSON(&intent); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid swap intent: " + err.Error()})
		return
	}
	span.SetAttributes(attribute.String("asset", intent.Asset()), attribute.String("side", string(intent.Side())))

	res, err := h.deps.Trader.Swap(ctx, intent)
	if err != nil {
		writeSwapError(c, res, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// PostClipboardSwap accepts the "<asset> <amount>" text form of a buy.
func (h *Handler) PostClipboardSwap(c *gin.Context) {
	if h.deps.Trader == nil {
		unavailable(c, "swap engine")
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.post-clipboard-swap")
	defer span.End()

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, 4096))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read body"})
		return
	}
	intent, err := swap.ParseIntent(string(raw))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.deps.Trader.Swap(ctx, intent)
	if err != nil {
		writeSwapError(c, res, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type sellRequest struct {
	Percentage float64 `json:"percentage"`
}

// SellPosition sells part or all of a held position regardless of profit.
func (h *Handler) SellPosition(c *gin.Context) {
	if h.deps.Trader == nil {
		unavailable(c, "swap engine")
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.sell-position")
	defer span.End()

	asset := strings.TrimSpace(c.Param("asset"))
	span.SetAttributes(attribute.String("asset", asset))

	req := sellRequest{Percentage: 100}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
			return
		}
	}
	if req.Percentage <= 0 || req.Percentage > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "percentage must be in (0, 100]"})
		return
	}

	res, err := h.deps.Trader.Sell(ctx, swap.SellRequest{
		Asset:          asset,
		SellPercentage: req.Percentage,
		Reason:         domain.SellManual,
	})
	if err != nil {
		writeSwapError(c, res, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
