package swap

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"

	"degen-autotrader/internal/domain"
	"degen-autotrader/internal/events"
	"degen-autotrader/internal/ledger"
)

const testAsset = "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr"

type stubOracle struct {
	mu     sync.Mutex
	prices map[string]float64
	block  chan struct{}
}

func (s *stubOracle) GetPrice(_ context.Context, asset string) float64 {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prices[asset]
}

func (s *stubOracle) set(asset string, price float64) {
	s.mu.Lock()
	s.prices[asset] = price
	s.mu.Unlock()
}

type stubSettings struct{ s domain.Settings }

func (s stubSettings) Snapshot() domain.Settings { return s.s }

type stubJournal struct {
	mu     sync.Mutex
	trades []domain.SwapResult
}

func (j *stubJournal) InsertTrade(_ context.Context, r domain.SwapResult) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.trades = append(j.trades, r)
	return nil
}

type stubBackend struct {
	name  string
	fill  Fill
	err   error
	calls int
	last  Order
}

func (b *stubBackend) Name() string { return b.name }

func (b *stubBackend) Execute(_ context.Context, o Order) (Fill, error) {
	b.calls++
	b.last = o
	o.state(domain.StateQuoting)
	return b.fill, b.err
}

func noopTracer() trace.Tracer {
	return trace.NewNoopTracerProvider().Tracer("test")
}

func newDemoEngine(balance float64, oracle *stubOracle) (*Engine, *ledger.Ledger, *stubJournal) {
	l := ledger.New(balance)
	j := &stubJournal{}
	e := NewEngine(noopTracer(), EngineDeps{
		Oracle:   oracle,
		Ledger:   l,
		Settings: stubSettings{domain.Settings{Mode: domain.ModeDemo}},
		Journal:  j,
		Bus:      events.NewBus(),
	})
	return e, l, j
}

func TestDemoBuyDebitsBalanceAndCreditsPosition(t *testing.T) {
	oracle := &stubOracle{prices: map[string]float64{testAsset: 0.5}}
	e, l, j := newDemoEngine(10, oracle)

	res, err := e.Buy(context.Background(), testAsset, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != domain.SwapSuccess || res.State != domain.StateSuccess || res.ID == "" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.OutputAmount != 2 || res.Price != 0.5 {
		t.Fatalf("expected 2 tokens at 0.5, got %v at %v", res.OutputAmount, res.Price)
	}
	if l.Balance() != 9 {
		t.Fatalf("expected balance 9, got %v", l.Balance())
	}
	pos, ok := l.Get(testAsset)
	if !ok || pos.Amount != 2 || pos.AcquisitionPrice != 0.5 {
		t.Fatalf("unexpected position: %+v", pos)
	}
	if len(j.trades) != 1 {
		t.Fatalf("expected one journaled trade, got %d", len(j.trades))
	}
}

func TestDemoBuyInsufficientFunds(t *testing.T) {
	oracle := &stubOracle{prices: map[string]float64{testAsset: 0.5}}
	e, l, _ := newDemoEngine(0.1, oracle)

	res, err := e.Buy(context.Background(), testAsset, 1)
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if res.State != domain.StateInsufficient || res.Status != domain.SwapError {
		t.Fatalf("unexpected result: %+v", res)
	}
	if l.Balance() != 0.1 || len(l.Positions()) != 0 {
		t.Fatal("expected ledger untouched")
	}
}

func TestDemoBuyWithoutPrice(t *testing.T) {
	oracle := &stubOracle{prices: map[string]float64{}}
	e, l, _ := newDemoEngine(10, oracle)

	if _, err := e.Buy(context.Background(), testAsset, 1); !errors.Is(err, domain.ErrPriceUnavailable) {
		t.Fatalf("expected price unavailable, got %v", err)
	}
	if l.Balance() != 10 {
		t.Fatalf("expected balance untouched, got %v", l.Balance())
	}
}

func TestSellWaitsBelowTarget(t *testing.T) {
	oracle := &stubOracle{prices: map[string]float64{testAsset: 1}}
	e, l, j := newDemoEngine(10, oracle)
	if err := l.RecordBuy(testAsset, 100, 1); err != nil {
		t.Fatalf("record buy: %v", err)
	}
	oracle.set(testAsset, 1.5)

	res, err := e.Sell(context.Background(), SellRequest{Asset: testAsset, ProfitTarget: 2, StopLossRatio: 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != domain.SwapWaiting || res.ProfitRatio != 1.5 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if pos, _ := l.Get(testAsset); pos.Amount != 100 {
		t.Fatalf("expected position untouched, got %+v", pos)
	}
	if len(j.trades) != 0 {
		t.Fatal("waiting sells must not be journaled")
	}
}

func TestSellTakesProfitOnFraction(t *testing.T) {
	oracle := &stubOracle{prices: map[string]float64{testAsset: 3}}
	e, l, _ := newDemoEngine(0, oracle)
	if err := l.RecordBuy(testAsset, 100, 1); err != nil {
		t.Fatalf("record buy: %v", err)
	}

	res, err := e.Sell(context.Background(), SellRequest{Asset: testAsset, ProfitTarget: 2, SellPercentage: 50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != domain.SwapSuccess || res.InputAmount != 50 || res.OutputAmount != 150 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Message != "Sold "+domain.ShortMint(testAsset)+" with profit 3.00x (take_profit)" {
		t.Fatalf("unexpected message: %q", res.Message)
	}
	if pos, _ := l.Get(testAsset); pos.Amount != 50 {
		t.Fatalf("expected 50 remaining, got %+v", pos)
	}
	if l.Balance() != 150 {
		t.Fatalf("expected balance 150, got %v", l.Balance())
	}
}

func TestSellStopLossRemovesPosition(t *testing.T) {
	oracle := &stubOracle{prices: map[string]float64{testAsset: 0.4}}
	e, l, _ := newDemoEngine(0, oracle)
	if err := l.RecordBuy(testAsset, 10, 1); err != nil {
		t.Fatalf("record buy: %v", err)
	}

	res, err := e.Sell(context.Background(), SellRequest{Asset: testAsset, ProfitTarget: 2, StopLossRatio: 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != domain.SwapSuccess {
		t.Fatalf("expected stop-loss sell, got %+v", res)
	}
	if _, ok := l.Get(testAsset); ok {
		t.Fatal("expected position removed")
	}
}

func TestSellErrors(t *testing.T) {
	oracle := &stubOracle{prices: map[string]float64{}}
	e, l, _ := newDemoEngine(0, oracle)

	if _, err := e.Sell(context.Background(), SellRequest{Asset: testAsset}); !errors.Is(err, domain.ErrNoPosition) {
		t.Fatalf("expected no position, got %v", err)
	}
	if err := l.RecordBuy(testAsset, 10, 0); err != nil {
		t.Fatalf("record buy: %v", err)
	}
	if _, err := e.Sell(context.Background(), SellRequest{Asset: testAsset}); !errors.Is(err, domain.ErrUnknownAcquisitionPrice) {
		t.Fatalf("expected unknown acquisition price, got %v", err)
	}
	if err := l.RecordBuy(testAsset, 10, 1); err != nil {
		t.Fatalf("record buy: %v", err)
	}
	if _, err := e.Sell(context.Background(), SellRequest{Asset: testAsset}); !errors.Is(err, domain.ErrPriceUnavailable) {
		t.Fatalf("expected price unavailable, got %v", err)
	}
}

func TestConcurrentSellIsRejected(t *testing.T) {
	oracle := &stubOracle{prices: map[string]float64{testAsset: 3}, block: make(chan struct{})}
	e, l, _ := newDemoEngine(0, oracle)
	if err := l.RecordBuy(testAsset, 10, 1); err != nil {
		t.Fatalf("record buy: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := e.Sell(context.Background(), SellRequest{Asset: testAsset, ProfitTarget: 2})
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		e.mu.Lock()
		_, busy := e.inflight[testAsset]
		e.mu.Unlock()
		if busy {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first sell never started")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := e.Sell(context.Background(), SellRequest{Asset: testAsset}); !errors.Is(err, domain.ErrSellInProgress) {
		t.Fatalf("expected sell in progress, got %v", err)
	}
	close(oracle.block)
	if err := <-done; err != nil {
		t.Fatalf("first sell failed: %v", err)
	}
	if _, ok := l.Get(testAsset); ok {
		t.Fatal("expected position sold")
	}
}

func TestSwapIntentRoutesBuyAndSell(t *testing.T) {
	oracle := &stubOracle{prices: map[string]float64{testAsset: 0.5}}
	e, l, _ := newDemoEngine(10, oracle)

	if _, err := e.Swap(context.Background(), domain.SwapIntent{InputAsset: domain.SOLMint, OutputAsset: testAsset, Amount: 1}); err != nil {
		t.Fatalf("buy intent: %v", err)
	}
	res, err := e.Swap(context.Background(), domain.SwapIntent{InputAsset: testAsset, OutputAsset: domain.SOLMint, Amount: 5})
	if err != nil {
		t.Fatalf("sell intent: %v", err)
	}
	if res.InputAmount != 2 || res.OutputAmount != 1 {
		t.Fatalf("expected full 2-token sell for 1 SOL, got %+v", res)
	}
	if _, ok := l.Get(testAsset); ok {
		t.Fatal("expected position removed")
	}
	if _, err := e.Swap(context.Background(), domain.SwapIntent{InputAsset: domain.SOLMint, OutputAsset: testAsset}); !errors.Is(err, domain.ErrInvalidIntent) {
		t.Fatalf("expected invalid intent, got %v", err)
	}
}

func TestLiveBuyRecordsFill(t *testing.T) {
	oracle := &stubOracle{prices: map[string]float64{}}
	l := ledger.New(0)
	backend := &stubBackend{name: "gmgn", fill: Fill{TxID: "sig", InputAmount: 1, OutputAmount: 4}}
	bus := events.NewBus()
	ch, cancel := bus.Subscribe(16)
	defer cancel()

	e := NewEngine(noopTracer(), EngineDeps{
		Oracle:   oracle,
		Holdings: l,
		Settings: stubSettings{domain.Settings{Mode: domain.ModeLive}},
		Router:   NewRouter(backend),
		Bus:      bus,
	})

	res, err := e.Buy(context.Background(), testAsset, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Backend != "gmgn" || res.TxID != "sig" || res.Price != 0.25 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if pos, _ := l.Get(testAsset); pos.Amount != 4 || pos.AcquisitionPrice != 0.25 {
		t.Fatalf("unexpected position: %+v", pos)
	}

	var sawState, sawSwap bool
	for len(ch) > 0 {
		ev := <-ch
		if ev.Kind == events.KindLog {
			sawState = true
		}
		if ev.Kind == events.KindSwap {
			sawSwap = true
		}
	}
	if !sawState || !sawSwap {
		t.Fatalf("expected state and swap events, got state=%v swap=%v", sawState, sawSwap)
	}
}

func TestLiveBuyExpiredState(t *testing.T) {
	backend := &stubBackend{name: "gmgn", err: domain.ErrExpired}
	e := NewEngine(noopTracer(), EngineDeps{
		Oracle:   &stubOracle{prices: map[string]float64{}},
		Ledger:   ledger.New(0),
		Settings: stubSettings{domain.Settings{Mode: domain.ModeLive}},
		Router:   NewRouter(backend),
	})

	res, err := e.Buy(context.Background(), testAsset, 1)
	if !errors.Is(err, domain.ErrExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
	if res.State != domain.StateExpired {
		t.Fatalf("expected EXPIRED state, got %s", res.State)
	}
}

func TestDemoBalanceFromLedger(t *testing.T) {
	e, _, _ := newDemoEngine(7, &stubOracle{prices: map[string]float64{}})
	bal, err := e.SOLBalance(context.Background())
	if err != nil || bal != 7 {
		t.Fatalf("expected 7, got %v (%v)", bal, err)
	}
}

type switchSettings struct {
	mu   sync.Mutex
	mode domain.Mode
}

func (s *switchSettings) Snapshot() domain.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Settings{Mode: s.mode}
}

func (s *switchSettings) set(m domain.Mode) {
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
}

func TestDemoPositionNeverReachesLiveBackend(t *testing.T) {
	oracle := &stubOracle{prices: map[string]float64{testAsset: 0.5}}
	demo, live := ledger.New(10), ledger.New(0)
	backend := &stubBackend{name: "gmgn", fill: Fill{TxID: "sig", OutputAmount: 3}}
	mode := &switchSettings{mode: domain.ModeDemo}
	e := NewEngine(noopTracer(), EngineDeps{
		Oracle:   oracle,
		Ledger:   demo,
		Holdings: live,
		Settings: mode,
		Router:   NewRouter(backend),
		Bus:      events.NewBus(),
	})

	if _, err := e.Buy(context.Background(), testAsset, 1); err != nil {
		t.Fatalf("demo buy: %v", err)
	}
	mode.set(domain.ModeLive)
	oracle.set(testAsset, 1.5)

	if _, err := e.Sell(context.Background(), SellRequest{Asset: testAsset, ProfitTarget: 2}); !errors.Is(err, domain.ErrNoPosition) {
		t.Fatalf("expected no live position, got %v", err)
	}
	if backend.calls != 0 {
		t.Fatalf("expected no live backend calls, got %d", backend.calls)
	}
	if pos, ok := demo.Get(testAsset); !ok || pos.Amount != 2 {
		t.Fatalf("expected demo position untouched, got %+v", pos)
	}
}

func TestLivePositionNeverSoldIntoDemoBalance(t *testing.T) {
	oracle := &stubOracle{prices: map[string]float64{testAsset: 3}}
	demo, live := ledger.New(10), ledger.New(0)
	mode := &switchSettings{mode: domain.ModeLive}
	e := NewEngine(noopTracer(), EngineDeps{
		Oracle:   oracle,
		Ledger:   demo,
		Holdings: live,
		Settings: mode,
		Router:   NewRouter(&stubBackend{name: "gmgn", fill: Fill{TxID: "sig", InputAmount: 1, OutputAmount: 4}}),
		Bus:      events.NewBus(),
	})

	if _, err := e.Buy(context.Background(), testAsset, 1); err != nil {
		t.Fatalf("live buy: %v", err)
	}
	mode.set(domain.ModeDemo)

	if _, err := e.Swap(context.Background(), domain.SwapIntent{InputAsset: testAsset, OutputAsset: domain.SOLMint, Amount: 4}); !errors.Is(err, domain.ErrNoPosition) {
		t.Fatalf("expected no demo position, got %v", err)
	}
	if demo.Balance() != 10 {
		t.Fatalf("expected demo balance untouched, got %v", demo.Balance())
	}
	if pos, ok := live.Get(testAsset); !ok || pos.Amount != 4 {
		t.Fatalf("expected live holding untouched, got %+v", pos)
	}
}

func TestSwapRejectsNonFiniteAmounts(t *testing.T) {
	oracle := &stubOracle{prices: map[string]float64{testAsset: 0.5}}
	e, l, j := newDemoEngine(10, oracle)

	for _, amount := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		intent := domain.SwapIntent{InputAsset: domain.SOLMint, OutputAsset: testAsset, Amount: amount}
		if _, err := e.Swap(context.Background(), intent); !errors.Is(err, domain.ErrInvalidIntent) {
			t.Fatalf("swap %v: expected invalid intent, got %v", amount, err)
		}
		if _, err := e.Buy(context.Background(), testAsset, amount); !errors.Is(err, domain.ErrInvalidIntent) {
			t.Fatalf("buy %v: expected invalid intent, got %v", amount, err)
		}
	}
	if l.Balance() != 10 || len(l.Positions()) != 0 || len(j.trades) != 0 {
		t.Fatalf("expected untouched ledger, balance %v positions %d", l.Balance(), len(l.Positions()))
	}
}

func TestDemoBuyAtSmallPrice(t *testing.T) {
	oracle := &stubOracle{prices: map[string]float64{testAsset: 0.0005}}
	e, l, _ := newDemoEngine(10, oracle)

	res, err := e.Buy(context.Background(), testAsset, 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(res.OutputAmount-2000) > 1e-6 {
		t.Fatalf("expected about 2000 units, got %v", res.OutputAmount)
	}
	if math.Abs(l.Balance()-9) > 1e-9 {
		t.Fatalf("expected balance 9, got %v", l.Balance())
	}
	pos, _ := l.Get(testAsset)
	if math.Abs(pos.AcquisitionPrice-0.0005) > 1e-12 {
		t.Fatalf("expected acquisition price 0.0005, got %v", pos.AcquisitionPrice)
	}
}

func TestSellAtThreeTimesAgainstTargets(t *testing.T) {
	oracle := &stubOracle{prices: map[string]float64{testAsset: 0.0005}}
	e, l, _ := newDemoEngine(10, oracle)
	if _, err := e.Buy(context.Background(), testAsset, 1.0); err != nil {
		t.Fatalf("buy: %v", err)
	}
	oracle.set(testAsset, 0.0015)

	res, err := e.Sell(context.Background(), SellRequest{Asset: testAsset, ProfitTarget: 5.0})
	if err != nil {
		t.Fatalf("target 5: unexpected error: %v", err)
	}
	if res.Status != domain.SwapWaiting || math.Abs(res.ProfitRatio-3) > 1e-9 {
		t.Fatalf("target 5: expected WAITING at 3x, got %+v", res)
	}
	if pos, _ := l.Get(testAsset); math.Abs(pos.Amount-2000) > 1e-6 || math.Abs(l.Balance()-9) > 1e-9 {
		t.Fatalf("target 5: expected balances unchanged, got %+v balance %v", pos, l.Balance())
	}

	res, err = e.Sell(context.Background(), SellRequest{Asset: testAsset, ProfitTarget: 2.0})
	if err != nil {
		t.Fatalf("target 2: unexpected error: %v", err)
	}
	if res.Status != domain.SwapSuccess {
		t.Fatalf("target 2: expected a sell, got %+v", res)
	}
	if _, ok := l.Get(testAsset); ok {
		t.Fatal("target 2: expected position sold")
	}
	if math.Abs(l.Balance()-12) > 1e-6 {
		t.Fatalf("target 2: expected balance 12, got %v", l.Balance())
	}
}
