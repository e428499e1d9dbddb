package handler

import (
	"net/http"
	"strconv"
	"strings"

	"degen-autotrader/internal/domain"
	"degen-autotrader/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetTrades lists journaled swaps, newest first.
func (h *Handler) GetTrades(c *gin.Context) {
	if h.deps.Trades == nil {
		unavailable(c, "trade journal")
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-trades")
	defer span.End()

	filter := repository.TradeFilter{
		Asset:  strings.TrimSpace(c.Query("asset")),
		Status: domain.SwapStatus(strings.ToUpper(strings.TrimSpace(c.Query("status")))),
	}
	switch filter.Status {
	case "", domain.SwapSuccess, domain.SwapWaiting, domain.SwapError:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be SUCCESS, WAITING or ERROR"})
		return
	}

	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
			return
		}
		filter.Limit = n
	}

	trades, err := h.deps.Trades.ListTrades(ctx, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades, "count": len(trades)})
}
