package ledger

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"degen-autotrader/internal/domain"
)

// PricePolicy decides the acquisition price after a buy on top of an existing holding.
type PricePolicy func(prevAmount, prevPrice, addAmount, addPrice float64) float64

// OverwritePrice keeps the price of the latest buy.
func OverwritePrice(_, _, _, addPrice float64) float64 {
	return addPrice
}

// WeightedAveragePrice blends the holding's price with the new buy by quantity.
func WeightedAveragePrice(prevAmount, prevPrice, addAmount, addPrice float64) float64 {
	total := prevAmount + addAmount
	if total <= 0 || prevPrice <= 0 {
		return addPrice
	}
	return (prevAmount*prevPrice + addAmount*addPrice) / total
}

type Option func(*Ledger)

func WithPricePolicy(p PricePolicy) Option {
	return func(l *Ledger) {
		if p != nil {
			l.policy = p
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// Ledger tracks positions and the simulated settlement balance under one lock.
type Ledger struct {
	mu        sync.Mutex
	positions map[string]domain.Position
	balance   float64
	policy    PricePolicy
	now       func() time.Time
}

func New(initialBalance float64, opts ...Option) *Ledger {
	l := &Ledger{
		positions: make(map[string]domain.Position),
		balance:   initialBalance,
		policy:    OverwritePrice,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) RecordBuy(asset string, qty, price float64) error {
	if asset == "" || !domain.PositiveAmount(qty) || price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return fmt.Errorf("record buy %q qty %v price %v: %w", asset, qty, price, domain.ErrInvalidIntent)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.creditLocked(asset, qty, price)
	return nil
}

// RecordSell decrements a holding and returns what remains. Selling the whole
// holding or more removes the position.
func (l *Ledger) RecordSell(asset string, qty float64) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debitLocked(asset, qty)
}

func (l *Ledger) Get(asset string) (domain.Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.positions[asset]
	return p, ok
}

// Positions returns a snapshot sorted by asset id.
func (l *Ledger) Positions() []domain.Position {
	l.mu.Lock()
	out := make([]domain.Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, p)
	}
	l.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out
}

func (l *Ledger) Balance() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// SimulateBuy debits amountSOL and credits amountSOL/price of asset in one step.
func (l *Ledger) SimulateBuy(asset string, amountSOL, price float64) (float64, error) {
	if asset == "" || !domain.PositiveAmount(amountSOL) {
		return 0, fmt.Errorf("simulate buy %q amount %v: %w", asset, amountSOL, domain.ErrInvalidIntent)
	}
	if !domain.PositiveAmount(price) {
		return 0, fmt.Errorf("simulate buy %s: %w", domain.ShortMint(asset), domain.ErrPriceUnavailable)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balance < amountSOL {
		return 0, fmt.Errorf("simulate buy %s: balance %.4f < %.4f: %w", domain.ShortMint(asset), l.balance, amountSOL, domain.ErrInsufficientFunds)
	}
	qty := amountSOL / price
	l.balance -= amountSOL
	l.creditLocked(asset, qty, amountSOL/qty)
	return qty, nil
}

// SimulateSell removes qty of asset and credits qty*price to the balance.
func (l *Ledger) SimulateSell(asset string, qty, price float64) (received, remaining float64, err error) {
	if !domain.PositiveAmount(price) {
		return 0, 0, fmt.Errorf("simulate sell %s: %w", domain.ShortMint(asset), domain.ErrPriceUnavailable)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	held, ok := l.positions[asset]
	if !ok {
		return 0, 0, fmt.Errorf("simulate sell %s: %w", domain.ShortMint(asset), domain.ErrNoPosition)
	}
	if qty > held.Amount {
		qty = held.Amount
	}
	remaining, err = l.debitLocked(asset, qty)
	if err != nil {
		return 0, 0, err
	}
	received = qty * price
	l.balance += received
	return received, remaining, nil
}

func (l *Ledger) creditLocked(asset string, qty, price float64) {
	p, ok := l.positions[asset]
	if !ok {
		l.positions[asset] = domain.Position{Asset: asset, Amount: qty, AcquisitionPrice: price, UpdatedAt: l.now()}
		return
	}
	p.AcquisitionPrice = l.policy(p.Amount, p.AcquisitionPrice, qty, price)
	p.Amount += qty
	p.UpdatedAt = l.now()
	l.positions[asset] = p
}

func (l *Ledger) debitLocked(asset string, qty float64) (float64, error) {
	if !domain.PositiveAmount(qty) {
		return 0, fmt.Errorf("record sell %q qty %v: %w", asset, qty, domain.ErrInvalidIntent)
	}
	p, ok := l.positions[asset]
	if !ok {
		return 0, fmt.Errorf("record sell %s: %w", domain.ShortMint(asset), domain.ErrNoPosition)
	}
	remaining := p.Amount - qty
	if remaining <= 0 {
		delete(l.positions, asset)
		return 0, nil
	}
	p.Amount = remaining
	p.UpdatedAt = l.now()
	l.positions[asset] = p
	return remaining, nil
}
