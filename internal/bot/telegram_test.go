package bot

import (
	"context"
	"strings"
	"testing"

	tele "gopkg.in/telebot.v3"

	"degen-autotrader/internal/domain"
)

func TestStartTelegramBotSkipsWithoutToken(t *testing.T) {
	n, err := StartTelegramBot(context.Background(), BotConfig{}, BotDeps{})
	if err != nil || n != nil {
		t.Fatalf("expected skip without token, got %v / %v", n, err)
	}
}

func TestParseSellArgs(t *testing.T) {
	asset, pct, err := parseSellArgs([]string{"ABC"})
	if err != nil || asset != "ABC" || pct != 100 {
		t.Fatalf("expected full sell of ABC, got %s %v %v", asset, pct, err)
	}
	asset, pct, err = parseSellArgs([]string{"ABC", "25%"})
	if err != nil || asset != "ABC" || pct != 25 {
		t.Fatalf("expected 25%% sell, got %s %v %v", asset, pct, err)
	}
	for _, args := range [][]string{nil, {"ABC", "0"}, {"ABC", "150"}, {"ABC", "x"}, {"A", "1", "2"}, {"ABC", "NaN"}, {"ABC", "nan%"}, {"ABC", "Inf"}} {
		if _, _, err := parseSellArgs(args); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}

func TestIsSignalChannel(t *testing.T) {
	chat := &tele.Chat{ID: -100123, Username: "AlphaCalls"}
	if !isSignalChannel(chat, "alphacalls") {
		t.Fatal("expected username match to be case-insensitive")
	}
	if !isSignalChannel(chat, "-100123") {
		t.Fatal("expected numeric id match")
	}
	if isSignalChannel(chat, "othercalls") {
		t.Fatal("unexpected match for other channel")
	}
	if !isSignalChannel(chat, "") {
		t.Fatal("no configured channel accepts any channel")
	}
	if isSignalChannel(nil, "") {
		t.Fatal("nil chat must not match")
	}
}

func TestFormatPortfolio(t *testing.T) {
	p := domain.Portfolio{
		Mode:       domain.ModeDemo,
		SOLBalance: 1.5,
		BalanceUSD: 225,
		TotalSOL:   2.5,
		Positions: []domain.PositionView{{
			Position:     domain.Position{Asset: "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr", Amount: 1000},
			CurrentPrice: 0.001,
			ValueSOL:     1,
			ProfitRatio:  12.34,
		}},
	}
	text := formatPortfolio(p)
	for _, want := range []string{"Portfolio [DEMO]", "SOL: 1.5000 ($225.00)", "7GCihg...YmW2hr", "$0.0010", "12.3x", "Total: 2.5000 SOL"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in:\n%s", want, text)
		}
	}
	if !strings.Contains(formatPortfolio(domain.Portfolio{}), "No open positions.") {
		t.Fatal("expected empty portfolio line")
	}
}

func TestFormatClassificationAndStatus(t *testing.T) {
	text := formatClassification(domain.TradeSignal{
		Classification: domain.ClassDeferredBuy,
		Token:          "$WIF",
		Address:        "ABC",
		Bands:          []domain.PriceBand{{Low: 5000, High: 10000}},
	})
	if !strings.Contains(text, "DEFERRED_BUY") || !strings.Contains(text, "Entry band: 5000-10000") {
		t.Fatalf("unexpected classification text: %s", text)
	}

	status := formatStatus(domain.Settings{Mode: domain.ModeLive, AutoSell: true, ProfitTarget: 2, StopLossPercent: 50, SellPercentage: 100}, 3)
	if !strings.Contains(status, "Mode: LIVE") || !strings.Contains(status, "Auto-sell: ON") || !strings.Contains(status, "Open positions: 3") {
		t.Fatalf("unexpected status: %s", status)
	}
}
