package handler

import (
	"context"
	"errors"
	"net/http"

	"degen-autotrader/internal/domain"
	"degen-autotrader/internal/metrics"
	"degen-autotrader/internal/repository"
	"degen-autotrader/internal/swap"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type PriceReader interface {
	GetPrice(ctx context.Context, asset string) float64
	GetSOLPriceUSD(ctx context.Context) float64
}

type PortfolioReader interface {
	Snapshot(ctx context.Context) domain.Portfolio
}

type SignalClassifier interface {
	Classify(text string) domain.TradeSignal
}

type Inbox interface {
	Submit(ctx context.Context, msg domain.InboundMessage) error
}

type Trader interface {
	Swap(ctx context.Context, intent domain.SwapIntent) (domain.SwapResult, error)
	Sell(ctx context.Context, req swap.SellRequest) (domain.SwapResult, error)
}

type SettingsStore interface {
	Snapshot() domain.Settings
	Update(fn func(*domain.Settings)) (domain.Settings, error)
}

type TradeLister interface {
	ListTrades(ctx context.Context, filter repository.TradeFilter) ([]domain.SwapResult, error)
}

// Deps groups the services behind the HTTP API. Any of them may be nil, in
// which case the routes that need it answer 503.
type Deps struct {
	Prices    PriceReader
	Portfolio PortfolioReader
	Signals   SignalClassifier
	Inbox     Inbox
	Trader    Trader
	Settings  SettingsStore
	Trades    TradeLister
	WS        http.HandlerFunc
	// LiveAvailable is false when no wallet is configured; switching to LIVE is refused then.
	LiveAvailable bool
}

type Handler struct {
	tracer trace.Tracer
	deps   Deps
}

func New(tracer trace.Tracer, deps Deps) *Handler {
	return &Handler{tracer: tracer, deps: deps}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.Use(metrics.GinMiddleware())
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	api.GET("/portfolio", h.GetPortfolio)
	api.GET("/prices/:asset", h.GetPrice)
	api.GET("/sol-price", h.GetSOLPrice)
	api.POST("/signals", h.SubmitSignal)
	api.POST("/signals/classify", h.ClassifySignal)
	api.POST("/swap", h.PostSwap)
	api.POST("/swap/clipboard", h.PostClipboardSwap)
	api.POST("/positions/:asset/sell", h.SellPosition)
	api.GET("/settings", h.GetSettings)
	api.PUT("/settings", h.UpdateSettings)
	api.GET("/trades", h.GetTrades)
	if h.deps.WS != nil {
		api.GET("/ws", gin.WrapF(h.deps.WS))
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func unavailable(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": what + " unavailable"})
}

// statusFor maps trading errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidIntent):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoPosition), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSellInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrPriceUnavailable),
		errors.Is(err, domain.ErrUnknownAcquisitionPrice):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrTimeout),
		errors.Is(err, domain.ErrExpired),
		errors.Is(err, domain.ErrTransientNetwork),
		errors.Is(err, domain.ErrProviderLogic):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeSwapError answers with the swap result when the engine produced one.
func writeSwapError(c *gin.Context, res domain.SwapResult, err error) {
	body := gin.H{"error": err.Error()}
	if res.ID != "" {
		body["result"] = res
	}
	c.JSON(statusFor(err), body)
}
