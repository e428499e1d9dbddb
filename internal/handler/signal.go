package handler

import (
	"net/http"
	"strings"
	"time"

	"degen-autotrader/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type signalRequest struct {
	Text string `json:"text"`
	ID   string `json:"id"`
}

// ClassifySignal parses a message without acting on it.
func (h *Handler) ClassifySignal(c *gin.Context) {
	if h.deps.Signals == nil {
		unavailable(c, "signal service")
		return
	}

	_, span := h.tracer.Start(c.Request.Context(), "handler.classify-signal")
	defer span.End()

	var req signalRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	c.JSON(http.StatusOK, h.deps.Signals.Classify(req.Text))
}

// SubmitSignal queues a message on the signal listener, exactly like a channel post.
// Messages carrying an id already seen are dropped by the listener.
func (h *Handler) SubmitSignal(c *gin.Context) {
	if h.deps.Inbox == nil {
		unavailable(c, "signal listener")
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.submit-signal")
	defer span.End()

	var req signalRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}

	msg := domain.InboundMessage{Source: "http", ID: id, Text: req.Text, ReceivedAt: time.Now().UTC()}
	if err := h.deps.Inbox.Submit(ctx, msg); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	body := gin.H{"id": id, "queued": true}
	if h.deps.Signals != nil {
		body["signal"] = h.deps.Signals.Classify(req.Text)
	}
	c.JSON(http.StatusAccepted, body)
}
