package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"degen-autotrader/internal/domain"
	"degen-autotrader/internal/events"
	"degen-autotrader/internal/signal"
)

const (
	signalAsset = "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr"
	launchAsset = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFpump"
)

type stubBuyer struct {
	calls  int
	asset  string
	amount float64
	err    error
}

func (b *stubBuyer) Buy(_ context.Context, asset string, amount float64) (domain.SwapResult, error) {
	b.calls++
	b.asset, b.amount = asset, amount
	if b.err != nil {
		return domain.SwapResult{Status: domain.SwapError, Asset: asset}, b.err
	}
	return domain.SwapResult{Status: domain.SwapSuccess, Asset: asset, InputAmount: amount}, nil
}

type stubSnapshot struct{ s domain.Settings }

func (s stubSnapshot) Snapshot() domain.Settings { return s.s }

func newSignalTestService(buyer Buyer) (*SignalService, *DeferredBook, <-chan events.Event) {
	bus := events.NewBus()
	ch, _ := bus.Subscribe(32)
	book := NewDeferredBook(time.Hour, nil)
	svc := NewSignalService(
		noopTracer(),
		signal.NewClassifier(),
		buyer,
		book,
		stubSnapshot{domain.Settings{ConfidentAmount: 0.2, RiskyAmount: 0.1, DeferredAmount: 0.15}},
		bus,
	)
	return svc, book, ch
}

func TestSignalServiceBuysConfidentSignal(t *testing.T) {
	buyer := &stubBuyer{}
	svc, _, ch := newSignalTestService(buyer)

	out, err := svc.Handle(context.Background(), "I aped this one https://dexscreener.com/solana/"+signalAsset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Action != ActionBought || out.Swap == nil {
		t.Fatalf("expected bought outcome, got %+v", out)
	}
	if buyer.calls != 1 || buyer.asset != signalAsset || buyer.amount != 0.2 {
		t.Fatalf("unexpected buy: %+v", buyer)
	}
	if ev := <-ch; ev.Kind != events.KindSignal {
		t.Fatalf("expected signal event first, got %s", ev.Kind)
	}
}

func TestSignalServiceRiskyUsesRiskySize(t *testing.T) {
	buyer := &stubBuyer{}
	svc, _, _ := newSignalTestService(buyer)

	out, err := svc.Handle(context.Background(), "Moon or dust CA: "+signalAsset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Signal.Classification != domain.ClassRiskyBuy || buyer.amount != 0.1 {
		t.Fatalf("expected risky buy of 0.1, got %s / %v", out.Signal.Classification, buyer.amount)
	}
}

func TestSignalServiceIgnoresNeutralAndAddresslessSignals(t *testing.T) {
	buyer := &stubBuyer{}
	svc, _, _ := newSignalTestService(buyer)

	for _, text := range []string{"gm everyone", "I aped $WIF no address here"} {
		out, err := svc.Handle(context.Background(), text)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Action != ActionIgnored {
			t.Fatalf("expected ignored for %q, got %s", text, out.Action)
		}
	}
	if buyer.calls != 0 {
		t.Fatalf("expected no buys, got %d", buyer.calls)
	}
}

func TestSignalServiceParksDeferredSignal(t *testing.T) {
	buyer := &stubBuyer{}
	svc, book, _ := newSignalTestService(buyer)

	out, err := svc.Handle(context.Background(), "CZ is looking at this, good entry is around 5k-10k CA: "+launchAsset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Action != ActionDeferred {
		t.Fatalf("expected deferred, got %+v", out)
	}
	if buyer.calls != 0 || book.Len() != 1 {
		t.Fatalf("expected parked entry without buy, calls=%d len=%d", buyer.calls, book.Len())
	}
	entries := book.Active()
	if entries[0].Asset != launchAsset || !entries[0].Matches(7500) || entries[0].Matches(20000) {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
}

func TestSignalServiceReportsBuyFailure(t *testing.T) {
	buyer := &stubBuyer{err: domain.ErrInsufficientFunds}
	svc, _, _ := newSignalTestService(buyer)

	out, err := svc.Handle(context.Background(), "aped CA: "+signalAsset)
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if out.Action != ActionFailed || out.Error == "" {
		t.Fatalf("expected failed outcome, got %+v", out)
	}
}
