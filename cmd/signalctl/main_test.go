package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"degen-autotrader/internal/config"
	"degen-autotrader/internal/domain"
)

const testAsset = "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestClassifyCommandJSON(t *testing.T) {
	out, err := run(t, "--json", "classify", "gm", "frens")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var s domain.TradeSignal
	if err := json.Unmarshal([]byte(out), &s); err != nil {
		t.Fatalf("failed to parse output %q: %v", out, err)
	}
	if s.Text != "gm frens" || s.Classification != domain.ClassNeutral {
		t.Fatalf("unexpected signal: %+v", s)
	}
}

func TestClassifyCommandText(t *testing.T) {
	out, err := run(t, "classify", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "classification: NEUTRAL") || !strings.Contains(out, "actionable:     false") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestParseIntentCommand(t *testing.T) {
	out, err := run(t, "parse-intent", testAsset, "0.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "buy "+testAsset+" for 0.5 SOL") {
		t.Fatalf("unexpected output: %s", out)
	}

	if _, err := run(t, "parse-intent", "bad"); !errors.Is(err, domain.ErrInvalidIntent) {
		t.Fatalf("expected invalid intent error, got %v", err)
	}
}

type stubPrices struct {
	price float64
}

func (s stubPrices) GetPrice(context.Context, string) float64 { return s.price }

func (s stubPrices) GetMarketCap(context.Context, string) float64 { return 7500 }

func (s stubPrices) GetSOLPriceUSD(context.Context) float64 { return 142.5 }

func TestPriceCommand(t *testing.T) {
	orig := newPriceReaderFunc
	defer func() { newPriceReaderFunc = orig }()
	newPriceReaderFunc = func(*config.Config) priceReader { return stubPrices{price: 0.0025} }

	out, err := run(t, "price")
	if err != nil || !strings.Contains(out, "SOL: $142.50") {
		t.Fatalf("unexpected SOL output %q, err %v", out, err)
	}

	out, err = run(t, "--json", "price", testAsset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal([]byte(out), &body); err != nil {
		t.Fatalf("failed to parse output %q: %v", out, err)
	}
	if body["price"] != 0.0025 || body["market_cap_usd"] != 7500.0 {
		t.Fatalf("unexpected body: %v", body)
	}

	newPriceReaderFunc = func(*config.Config) priceReader { return stubPrices{} }
	if _, err := run(t, "price", testAsset); !errors.Is(err, domain.ErrPriceUnavailable) {
		t.Fatalf("expected price unavailable, got %v", err)
	}
}
