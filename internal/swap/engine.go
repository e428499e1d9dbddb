package swap

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"degen-autotrader/internal/domain"
	"degen-autotrader/internal/events"
	"degen-autotrader/internal/ledger"
	"degen-autotrader/internal/metrics"
)

type PriceOracle interface {
	GetPrice(ctx context.Context, asset string) float64
}

// PositionBook is the ledger surface the engine moves positions through.
type PositionBook interface {
	SimulateBuy(asset string, amountSOL, price float64) (float64, error)
	SimulateSell(asset string, qty, price float64) (received, remaining float64, err error)
	RecordBuy(asset string, qty, price float64) error
	RecordSell(asset string, qty float64) (float64, error)
	Get(asset string) (domain.Position, bool)
	Balance() float64
}

type SettingsSource interface {
	Snapshot() domain.Settings
}

type TradeJournal interface {
	InsertTrade(ctx context.Context, r domain.SwapResult) error
}

type BalanceReader interface {
	Balance(ctx context.Context) (float64, error)
}

// EngineDeps wires the engine. Ledger is the simulated account used in DEMO
// mode; Holdings tracks what the live wallet bought and is only touched in
// LIVE mode.
type EngineDeps struct {
	Oracle   PriceOracle
	Ledger   PositionBook
	Holdings PositionBook
	Settings SettingsSource
	Router   *Router
	Wallet   BalanceReader
	Journal  TradeJournal
	Bus      *events.Bus
	Now      func() time.Time
}

// SellRequest describes one guarded sell. ProfitTarget 0 sells unconditionally.
type SellRequest struct {
	Asset          string
	ProfitTarget   float64
	SellPercentage float64
	StopLossRatio  float64
	Reason         domain.SellReason
}

// Engine executes buys and sells in the mode the settings name at call time.
type Engine struct {
	tracer trace.Tracer
	deps   EngineDeps

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewEngine(tracer trace.Tracer, deps EngineDeps) *Engine {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Holdings == nil {
		deps.Holdings = ledger.New(0)
	}
	return &Engine{tracer: tracer, deps: deps, inflight: make(map[string]struct{})}
}

func (e *Engine) mode() domain.Mode {
	if e.deps.Settings == nil {
		return domain.ModeDemo
	}
	return e.deps.Settings.Snapshot().Mode
}

func (e *Engine) book(mode domain.Mode) PositionBook {
	if mode == domain.ModeLive {
		return e.deps.Holdings
	}
	return e.deps.Ledger
}

// Swap executes an intent. SOL input buys; anything else sells the given
// quantity without a profit check.
func (e *Engine) Swap(ctx context.Context, intent domain.SwapIntent) (domain.SwapResult, error) {
	if !domain.PositiveAmount(intent.Amount) || intent.InputAsset == "" || intent.OutputAsset == "" {
		return domain.SwapResult{}, fmt.Errorf("swap %s -> %s amount %v: %w",
			intent.InputAsset, intent.OutputAsset, intent.Amount, domain.ErrInvalidIntent)
	}
	if intent.Side() == domain.SideBuy {
		return e.Buy(ctx, intent.Asset(), intent.Amount)
	}
	return e.sellQuantity(ctx, intent.Asset(), intent.Amount)
}

func (e *Engine) Buy(ctx context.Context, asset string, amountSOL float64) (domain.SwapResult, error) {
	ctx, span := e.tracer.Start(ctx, "swap-engine.buy")
	defer span.End()
	mode := e.mode()
	span.SetAttributes(attribute.String("asset", asset), attribute.Float64("amount_sol", amountSOL), attribute.String("mode", string(mode)))

	if asset == "" || !domain.PositiveAmount(amountSOL) {
		return domain.SwapResult{}, fmt.Errorf("buy %q amount %v: %w", asset, amountSOL, domain.ErrInvalidIntent)
	}

	start := e.deps.Now()
	res := domain.SwapResult{Mode: mode, Side: domain.SideBuy, Asset: asset, InputAmount: amountSOL}

	if mode == domain.ModeLive {
		fill, backend, err := e.execute(ctx, domain.SideBuy, asset, amountSOL)
		res.Backend = backend
		if err != nil {
			return e.fail(ctx, res, start, fmt.Errorf("buy %s: %w", domain.ShortMint(asset), err))
		}
		qty := fill.OutputAmount
		if !domain.PositiveAmount(qty) {
			price := e.deps.Oracle.GetPrice(ctx, asset)
			if !domain.PositiveAmount(price) {
				return e.fail(ctx, res, start, fmt.Errorf("buy %s filled without output amount: %w", domain.ShortMint(asset), domain.ErrPriceUnavailable))
			}
			qty = amountSOL / price
		}
		if fill.InputAmount > 0 {
			res.InputAmount = fill.InputAmount
		}
		price := res.InputAmount / qty
		if err := e.deps.Holdings.RecordBuy(asset, qty, price); err != nil {
			return e.fail(ctx, res, start, err)
		}
		res.OutputAmount, res.Price, res.TxID = qty, price, fill.TxID
		res.Message = fmt.Sprintf("Bought %.4f %s for %.4f SOL", qty, domain.ShortMint(asset), res.InputAmount)
		return e.succeed(ctx, res, start), nil
	}

	res.Backend = "demo"
	price := e.deps.Oracle.GetPrice(ctx, asset)
	if !domain.PositiveAmount(price) {
		return e.fail(ctx, res, start, fmt.Errorf("buy %s: %w", domain.ShortMint(asset), domain.ErrPriceUnavailable))
	}
	qty, err := e.deps.Ledger.SimulateBuy(asset, amountSOL, price)
	if err != nil {
		return e.fail(ctx, res, start, err)
	}
	res.OutputAmount, res.Price = qty, amountSOL/qty
	res.Message = fmt.Sprintf("Bought %.4f %s for %.4f SOL (demo)", qty, domain.ShortMint(asset), amountSOL)
	return e.succeed(ctx, res, start), nil
}

// Sell checks the profit ratio against the request and sells a fraction of the
// holding when the target or the stop-loss floor is reached.
func (e *Engine) Sell(ctx context.Context, req SellRequest) (domain.SwapResult, error) {
	ctx, span := e.tracer.Start(ctx, "swap-engine.sell")
	defer span.End()
	mode := e.mode()
	span.SetAttributes(attribute.String("asset", req.Asset), attribute.String("reason", string(req.Reason)), attribute.String("mode", string(mode)))

	release, err := e.acquire(req.Asset)
	if err != nil {
		return domain.SwapResult{}, err
	}
	defer release()

	pos, ok := e.book(mode).Get(req.Asset)
	if !ok || pos.Amount <= 0 {
		return domain.SwapResult{}, fmt.Errorf("sell %s: %w", domain.ShortMint(req.Asset), domain.ErrNoPosition)
	}
	if pos.AcquisitionPrice <= 0 {
		return domain.SwapResult{}, fmt.Errorf("sell %s: %w", domain.ShortMint(req.Asset), domain.ErrUnknownAcquisitionPrice)
	}
	price := e.deps.Oracle.GetPrice(ctx, req.Asset)
	if !domain.PositiveAmount(price) {
		return domain.SwapResult{}, fmt.Errorf("sell %s: %w", domain.ShortMint(req.Asset), domain.ErrPriceUnavailable)
	}

	ratio := price / pos.AcquisitionPrice
	stopped := req.StopLossRatio > 0 && ratio <= req.StopLossRatio
	if ratio < req.ProfitTarget && !stopped {
		return domain.SwapResult{
			Status:      domain.SwapWaiting,
			Mode:        mode,
			Side:        domain.SideSell,
			Asset:       req.Asset,
			Price:       price,
			ProfitRatio: ratio,
			Message:     fmt.Sprintf("Waiting for %.2fx, currently %.2fx", req.ProfitTarget, ratio),
			ExecutedAt:  e.deps.Now(),
		}, nil
	}

	reason := req.Reason
	if reason == "" {
		reason = domain.SellTakeProfit
		if stopped {
			reason = domain.SellStopLoss
		}
	}

	fraction := 1.0
	if req.SellPercentage > 0 && req.SellPercentage < 100 {
		fraction = req.SellPercentage / 100
	}
	res, err := e.sell(ctx, mode, req.Asset, pos.Amount*fraction, price)
	res.ProfitRatio = ratio
	if err == nil {
		res.Message = fmt.Sprintf("Sold %s with profit %.2fx (%s)", domain.ShortMint(req.Asset), ratio, reason)
	}
	return res, err
}

func (e *Engine) sellQuantity(ctx context.Context, asset string, qty float64) (domain.SwapResult, error) {
	ctx, span := e.tracer.Start(ctx, "swap-engine.sell-quantity")
	defer span.End()
	mode := e.mode()

	release, err := e.acquire(asset)
	if err != nil {
		return domain.SwapResult{}, err
	}
	defer release()

	pos, ok := e.book(mode).Get(asset)
	if !ok || pos.Amount <= 0 {
		return domain.SwapResult{}, fmt.Errorf("sell %s: %w", domain.ShortMint(asset), domain.ErrNoPosition)
	}
	if qty > pos.Amount {
		qty = pos.Amount
	}
	price := e.deps.Oracle.GetPrice(ctx, asset)
	if !domain.PositiveAmount(price) && mode == domain.ModeDemo {
		return domain.SwapResult{}, fmt.Errorf("sell %s: %w", domain.ShortMint(asset), domain.ErrPriceUnavailable)
	}
	res, err := e.sell(ctx, mode, asset, qty, price)
	if pos.AcquisitionPrice > 0 && domain.PositiveAmount(price) {
		res.ProfitRatio = price / pos.AcquisitionPrice
	}
	return res, err
}

func (e *Engine) sell(ctx context.Context, mode domain.Mode, asset string, qty, price float64) (domain.SwapResult, error) {
	start := e.deps.Now()
	res := domain.SwapResult{Mode: mode, Side: domain.SideSell, Asset: asset, InputAmount: qty, Price: price}

	if mode == domain.ModeLive {
		fill, backend, err := e.execute(ctx, domain.SideSell, asset, qty)
		res.Backend = backend
		if err != nil {
			return e.fail(ctx, res, start, fmt.Errorf("sell %s: %w", domain.ShortMint(asset), err))
		}
		if _, err := e.deps.Holdings.RecordSell(asset, qty); err != nil {
			log.Warn().Err(err).Str("asset", domain.ShortMint(asset)).Msg("sell confirmed but position update failed")
		}
		res.OutputAmount, res.TxID = fill.OutputAmount, fill.TxID
		if res.OutputAmount <= 0 {
			res.OutputAmount = qty * price
		}
		res.Message = fmt.Sprintf("Sold %.4f %s for %.4f SOL", qty, domain.ShortMint(asset), res.OutputAmount)
		return e.succeed(ctx, res, start), nil
	}

	res.Backend = "demo"
	received, _, err := e.deps.Ledger.SimulateSell(asset, qty, price)
	if err != nil {
		return e.fail(ctx, res, start, err)
	}
	res.OutputAmount = received
	res.Message = fmt.Sprintf("Sold %.4f %s for %.4f SOL (demo)", qty, domain.ShortMint(asset), received)
	return e.succeed(ctx, res, start), nil
}

func (e *Engine) execute(ctx context.Context, side domain.Side, asset string, amount float64) (Fill, string, error) {
	if e.deps.Router == nil {
		return Fill{}, "", errors.New("live trading requires a configured wallet")
	}
	return e.deps.Router.Execute(ctx, Order{
		Side:   side,
		Asset:  asset,
		Amount: amount,
		OnState: func(s domain.SwapState) {
			e.deps.Bus.Logf("%s %s: %s", side, domain.ShortMint(asset), s)
		},
	})
}

// SOLBalance returns the simulated balance in DEMO mode and the wallet balance in LIVE mode.
func (e *Engine) SOLBalance(ctx context.Context) (float64, error) {
	if e.mode() == domain.ModeLive && e.deps.Wallet != nil {
		return e.deps.Wallet.Balance(ctx)
	}
	return e.deps.Ledger.Balance(), nil
}

func (e *Engine) acquire(asset string) (func(), error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inflight[asset]; busy {
		return nil, fmt.Errorf("sell %s: %w", domain.ShortMint(asset), domain.ErrSellInProgress)
	}
	e.inflight[asset] = struct{}{}
	return func() {
		e.mu.Lock()
		delete(e.inflight, asset)
		e.mu.Unlock()
	}, nil
}

func (e *Engine) succeed(ctx context.Context, res domain.SwapResult, start time.Time) domain.SwapResult {
	res.Status, res.State = domain.SwapSuccess, domain.StateSuccess
	e.finish(ctx, &res, start)
	return res
}

func (e *Engine) fail(ctx context.Context, res domain.SwapResult, start time.Time, err error) (domain.SwapResult, error) {
	res.Status = domain.SwapError
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		res.State = domain.StateInsufficient
	case errors.Is(err, domain.ErrExpired):
		res.State = domain.StateExpired
	default:
		res.State = domain.StateError
	}
	res.Message = err.Error()
	e.finish(ctx, &res, start)
	e.deps.Bus.Error(string(res.Side), res.Asset, err)
	return res, err
}

func (e *Engine) finish(ctx context.Context, res *domain.SwapResult, start time.Time) {
	res.ID = uuid.NewString()
	res.ExecutedAt = e.deps.Now()

	metrics.SwapsTotal.WithLabelValues(string(res.Mode), string(res.Side), string(res.State)).Inc()
	metrics.SwapLatency.WithLabelValues(string(res.Mode), res.Backend).Observe(res.ExecutedAt.Sub(start).Seconds())

	e.deps.Bus.Swap(*res)
	if e.deps.Journal != nil {
		if err := e.deps.Journal.InsertTrade(ctx, *res); err != nil {
			log.Warn().Err(err).Str("asset", domain.ShortMint(res.Asset)).Msg("failed to journal trade")
		}
	}
}
