package service

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"degen-autotrader/internal/domain"
	"degen-autotrader/internal/events"
	"degen-autotrader/internal/metrics"
)

type SignalClassifier interface {
	Classify(text string) domain.TradeSignal
}

type Buyer interface {
	Buy(ctx context.Context, asset string, amountSOL float64) (domain.SwapResult, error)
}

type SettingsSnapshotter interface {
	Snapshot() domain.Settings
}

type SignalAction string

const (
	ActionBought   SignalAction = "bought"
	ActionDeferred SignalAction = "deferred"
	ActionIgnored  SignalAction = "ignored"
	ActionFailed   SignalAction = "failed"
)

type SignalOutcome struct {
	Signal domain.TradeSignal `json:"signal"`
	Action SignalAction       `json:"action"`
	Swap   *domain.SwapResult `json:"swap,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// SignalService turns inbound text into classified signals and acts on them.
type SignalService struct {
	tracer     trace.Tracer
	classifier SignalClassifier
	buyer      Buyer
	deferred   *DeferredBook
	settings   SettingsSnapshotter
	bus        *events.Bus
}

func NewSignalService(
	tracer trace.Tracer,
	classifier SignalClassifier,
	buyer Buyer,
	deferred *DeferredBook,
	settings SettingsSnapshotter,
	bus *events.Bus,
) *SignalService {
	return &SignalService{
		tracer:     tracer,
		classifier: classifier,
		buyer:      buyer,
		deferred:   deferred,
		settings:   settings,
		bus:        bus,
	}
}

// Classify runs the classifier only.
func (s *SignalService) Classify(text string) domain.TradeSignal {
	return s.classifier.Classify(text)
}

// Handle classifies text and buys actionable signals with the configured size.
// Deferred signals are parked until their entry band is reached. The returned
// error is the buy failure, if any; the outcome is always populated.
func (s *SignalService) Handle(ctx context.Context, text string) (SignalOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.handle")
	defer span.End()

	sig := s.classifier.Classify(strings.TrimSpace(text))
	span.SetAttributes(
		attribute.String("classification", string(sig.Classification)),
		attribute.String("asset", sig.Address),
	)
	s.bus.Signal(sig)

	out := SignalOutcome{Signal: sig, Action: ActionIgnored}
	defer func() {
		metrics.SignalsTotal.WithLabelValues(string(sig.Classification), string(out.Action)).Inc()
	}()

	if sig.IsDeferred() && s.deferred != nil {
		s.deferred.Add(sig)
		out.Action = ActionDeferred
		s.bus.Publish(events.Event{Kind: events.KindDeferred, Asset: sig.Address, Signal: &sig,
			Message: fmt.Sprintf("Deferred %s until market cap enters %s", domain.ShortMint(sig.Address), describeBands(sig.Bands))})
		return out, nil
	}
	if !sig.IsActionable() {
		return out, nil
	}

	amount := s.settings.Snapshot().AmountFor(sig.Classification)
	if amount <= 0 {
		s.bus.Logf("Skipping %s: no size configured for %s", domain.ShortMint(sig.Address), sig.Classification)
		return out, nil
	}
	s.bus.Logf("%s signal for %s, buying %.4f SOL", sig.Classification, domain.ShortMint(sig.Address), amount)

	res, err := s.buyer.Buy(ctx, sig.Address, amount)
	if res.Status != "" {
		out.Swap = &res
	}
	if err != nil {
		out.Action = ActionFailed
		out.Error = err.Error()
		return out, fmt.Errorf("buy signal %s: %w", domain.ShortMint(sig.Address), err)
	}
	out.Action = ActionBought
	return out, nil
}

func describeBands(bands []domain.PriceBand) string {
	parts := make([]string, 0, len(bands))
	for _, b := range bands {
		parts = append(parts, fmt.Sprintf("%.0f-%.0f", b.Low, b.High))
	}
	return strings.Join(parts, ", ")
}
