package handler

import (
	"net/http"

	"degen-autotrader/internal/domain"

	"github.com/gin-gonic/gin"
)

// settingsPatch carries only the fields a client wants changed.
type settingsPatch struct {
	ProfitTarget    *float64 `json:"profit_target"`
	StopLossPercent *float64 `json:"stop_loss_percent"`
	SellPercentage  *float64 `json:"sell_percentage"`
	Mode            *string  `json:"mode"`
	AutoSell        *bool    `json:"auto_sell"`
	ConfidentAmount *float64 `json:"confident_amount"`
	RiskyAmount     *float64 `json:"risky_amount"`
	DeferredAmount  *float64 `json:"deferred_amount"`
}

func (p settingsPatch) apply(s *domain.Settings, mode domain.Mode) {
	if p.ProfitTarget != nil {
		s.ProfitTarget = *p.ProfitTarget
	}
	if p.StopLossPercent != nil {
		s.StopLossPercent = *p.StopLossPercent
	}
	if p.SellPercentage != nil {
		s.SellPercentage = *p.SellPercentage
	}
	if mode != "" {
		s.Mode = mode
	}
	if p.AutoSell != nil {
		s.AutoSell = *p.AutoSell
	}
	if p.ConfidentAmount != nil {
		s.ConfidentAmount = *p.ConfidentAmount
	}
	if p.RiskyAmount != nil {
		s.RiskyAmount = *p.RiskyAmount
	}
	if p.DeferredAmount != nil {
		s.DeferredAmount = *p.DeferredAmount
	}
}

func (h *Handler) GetSettings(c *gin.Context) {
	if h.deps.Settings == nil {
		unavailable(c, "settings")
		return
	}
	c.JSON(http.StatusOK, h.deps.Settings.Snapshot())
}

// UpdateSettings applies a partial update. Invalid combinations leave the
// current settings untouched.
func (h *Handler) UpdateSettings(c *gin.Context) {
	if h.deps.Settings == nil {
		unavailable(c, "settings")
		return
	}

	_, span := h.tracer.Start(c.Request.Context(), "handler.update-settings")
	defer span.End()

	var patch settingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}

	var mode domain.Mode
	if patch.Mode != nil {
		m, ok := domain.ParseMode(*patch.Mode)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be DEMO or LIVE"})
			return
		}
		if m == domain.ModeLive && !h.deps.LiveAvailable {
			c.JSON(http.StatusConflict, gin.H{"error": "LIVE mode requires a configured wallet"})
			return
		}
		mode = m
	}

	next, err := h.deps.Settings.Update(func(s *domain.Settings) { patch.apply(s, mode) })
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, next)
}
