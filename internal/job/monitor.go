package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"degen-autotrader/internal/domain"
	"degen-autotrader/internal/events"
	"degen-autotrader/internal/metrics"
	"degen-autotrader/internal/service"
	"degen-autotrader/internal/swap"
)

const (
	DefaultMonitorInterval = 60 * time.Second
	DefaultErrorBackoff    = 30 * time.Second
)

type PositionSource interface {
	Positions() []domain.Position
}

type MarketPricer interface {
	GetPrice(ctx context.Context, asset string) float64
	GetMarketCap(ctx context.Context, asset string) float64
}

type Trader interface {
	Buy(ctx context.Context, asset string, amountSOL float64) (domain.SwapResult, error)
	Sell(ctx context.Context, req swap.SellRequest) (domain.SwapResult, error)
}

type SettingsReader interface {
	Snapshot() domain.Settings
}

// Monitor walks open positions on an interval, sells on take-profit or
// stop-loss and fills deferred entries whose market cap reached a band.
type Monitor struct {
	tracer    trace.Tracer
	positions PositionSource
	prices    MarketPricer
	trader    Trader
	settings  SettingsReader
	deferred  *service.DeferredBook
	bus       *events.Bus

	interval time.Duration
	backoff  time.Duration
}

func NewMonitor(
	tracer trace.Tracer,
	positions PositionSource,
	prices MarketPricer,
	trader Trader,
	settings SettingsReader,
	deferred *service.DeferredBook,
	bus *events.Bus,
	interval time.Duration,
) *Monitor {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	return &Monitor{
		tracer:    tracer,
		positions: positions,
		prices:    prices,
		trader:    trader,
		settings:  settings,
		deferred:  deferred,
		bus:       bus,
		interval:  interval,
		backoff:   DefaultErrorBackoff,
	}
}

// Start runs cycles until ctx is cancelled. A failed or panicking cycle is
// reported and followed by a longer pause; it never stops the loop.
func (m *Monitor) Start(ctx context.Context) {
	log.Info().Dur("interval", m.interval).Msg("position monitor starting")
	for {
		wait := m.interval
		if err := m.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			m.bus.Error("monitor", "", err)
			wait = m.backoff
		}
		if !sleep(ctx, wait) {
			break
		}
	}
	log.Info().Msg("position monitor stopped")
}

// RunCycle performs one pass over positions and deferred entries.
func (m *Monitor) RunCycle(ctx context.Context) (err error) {
	ctx, span := m.tracer.Start(ctx, "monitor.run-cycle")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("monitor cycle panic: %v", r)
		}
		result := "ok"
		if err != nil {
			result = "error"
		}
		metrics.MonitorCycles.WithLabelValues(result).Inc()
	}()

	s := m.settings.Snapshot()
	held := m.positions.Positions()
	span.SetAttributes(attribute.Int("positions", len(held)), attribute.Bool("auto_sell", s.AutoSell))

	for _, pos := range held {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.checkPosition(ctx, s, pos)
	}
	if m.deferred != nil {
		m.checkDeferred(ctx, s)
	}
	return ctx.Err()
}

func (m *Monitor) checkPosition(ctx context.Context, s domain.Settings, pos domain.Position) {
	price := m.prices.GetPrice(ctx, pos.Asset)
	view := service.PriceView(pos, price)
	m.bus.Position(view)

	if !s.AutoSell || price <= 0 || pos.AcquisitionPrice <= 0 {
		return
	}
	stop := s.StopLossRatio()
	takeProfit := view.ProfitRatio >= s.ProfitTarget
	stopLoss := stop > 0 && view.ProfitRatio <= stop
	if !takeProfit && !stopLoss {
		return
	}

	reason := domain.SellTakeProfit
	if !takeProfit {
		reason = domain.SellStopLoss
	}
	m.bus.Logf("%s for %s at %s, selling", reason, domain.ShortMint(pos.Asset), service.FormatProfit(view.ProfitRatio))

	res, err := m.trader.Sell(ctx, swap.SellRequest{
		Asset:          pos.Asset,
		ProfitTarget:   s.ProfitTarget,
		SellPercentage: s.SellPercentage,
		StopLossRatio:  stop,
		Reason:         reason,
	})
	switch {
	case errors.Is(err, domain.ErrSellInProgress):
		log.Debug().Str("asset", domain.ShortMint(pos.Asset)).Msg("sell already in progress, skipping")
	case err != nil:
		m.bus.Error("auto-sell", pos.Asset, err)
	case res.Status == domain.SwapSuccess:
		m.bus.Logf("%s", res.Message)
	}
}

func (m *Monitor) checkDeferred(ctx context.Context, s domain.Settings) {
	for _, entry := range m.deferred.Active() {
		if ctx.Err() != nil {
			return
		}
		mcap := m.prices.GetMarketCap(ctx, entry.Asset)
		if !entry.Matches(mcap) {
			continue
		}
		if s.DeferredAmount <= 0 {
			log.Warn().Str("asset", domain.ShortMint(entry.Asset)).Msg("deferred entry matched but no deferred size configured")
			continue
		}
		m.bus.Logf("Market cap %.0f entered band for %s, buying %.4f SOL", mcap, domain.ShortMint(entry.Asset), s.DeferredAmount)
		if _, err := m.trader.Buy(ctx, entry.Asset, s.DeferredAmount); err != nil {
			// engine already reported the failure; the entry stays until it expires
			continue
		}
		m.deferred.Remove(entry.Asset)
	}
}

// sleep waits for d or until ctx is done, reporting whether the wait completed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
