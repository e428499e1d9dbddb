package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"degen-autotrader/internal/domain"
	"degen-autotrader/internal/metrics"
)

type PositionLister interface {
	Positions() []domain.Position
}

type Pricer interface {
	GetPrice(ctx context.Context, asset string) float64
	GetSOLPriceUSD(ctx context.Context) float64
}

type BalanceSource interface {
	SOLBalance(ctx context.Context) (float64, error)
}

// PortfolioService prices the ledger's positions for display.
type PortfolioService struct {
	tracer    trace.Tracer
	positions PositionLister
	prices    Pricer
	balance   BalanceSource
	mode      func() domain.Mode
	now       func() time.Time
}

func NewPortfolioService(tracer trace.Tracer, positions PositionLister, prices Pricer, balance BalanceSource, mode func() domain.Mode) *PortfolioService {
	if mode == nil {
		mode = func() domain.Mode { return domain.ModeDemo }
	}
	return &PortfolioService{
		tracer:    tracer,
		positions: positions,
		prices:    prices,
		balance:   balance,
		mode:      mode,
		now:       time.Now,
	}
}

// Snapshot builds the portfolio view. A failed balance read is logged and
// reported as zero so the positions are still shown.
func (s *PortfolioService) Snapshot(ctx context.Context) domain.Portfolio {
	ctx, span := s.tracer.Start(ctx, "portfolio-service.snapshot")
	defer span.End()

	p := domain.Portfolio{Mode: s.mode(), AsOf: s.now()}
	if bal, err := s.balance.SOLBalance(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to read SOL balance")
	} else {
		p.SOLBalance = bal
	}
	p.SOLPrice = s.prices.GetSOLPriceUSD(ctx)
	p.BalanceUSD = p.SOLBalance * p.SOLPrice

	held := s.positions.Positions()
	p.Positions = make([]domain.PositionView, 0, len(held))
	p.TotalSOL = p.SOLBalance
	for _, pos := range held {
		v := s.View(ctx, pos)
		p.Positions = append(p.Positions, v)
		p.TotalSOL += v.ValueSOL
	}
	metrics.OpenPositions.Set(float64(len(held)))
	span.SetAttributes(attribute.Int("positions", len(held)))
	return p
}

// View prices a single position.
func (s *PortfolioService) View(ctx context.Context, pos domain.Position) domain.PositionView {
	return PriceView(pos, s.prices.GetPrice(ctx, pos.Asset))
}

// PriceView derives value and profit ratio from a current price. Unknown
// prices leave both at zero.
func PriceView(pos domain.Position, price float64) domain.PositionView {
	v := domain.PositionView{Position: pos, CurrentPrice: price}
	if price <= 0 {
		return v
	}
	v.ValueSOL = pos.Amount * price
	if pos.AcquisitionPrice > 0 {
		v.ProfitRatio = price / pos.AcquisitionPrice
	}
	return v
}

// FormatPrice renders a SOL price: "N/A" when unknown, "m.mme-x" below 0.001.
func FormatPrice(price float64) string {
	switch {
	case price == 0:
		return "N/A"
	case price < 0.001:
		exp := int(math.Abs(math.Log10(price)))
		return fmt.Sprintf("%.2fe-%d", price*math.Pow10(exp), exp)
	default:
		return fmt.Sprintf("$%.4f", price)
	}
}

func FormatProfit(ratio float64) string {
	switch {
	case ratio >= 1000:
		return fmt.Sprintf("%.1fKx", ratio/1000)
	case ratio >= 100:
		return fmt.Sprintf("%.0fx", ratio)
	case ratio >= 10:
		return fmt.Sprintf("%.1fx", ratio)
	default:
		return fmt.Sprintf("%.2fx", ratio)
	}
}
