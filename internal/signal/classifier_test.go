package signal

import (
	"strings"
	"testing"

	"degen-autotrader/internal/domain"
)

const (
	mintA = "6NUHnmB1vvM6byB2sCYAty6f9GGtvn1Yin6QoQimpump"
	mintB = "BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"
	mintC = "CCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC"
)

func TestClassifyExtractsFields(t *testing.T) {
	text := "$PAW aped here https://x.com/paw https://dexscreener.com/solana/" + mintB + " token/" + mintA
	s := Classify(text)

	if s.Token != "$PAW" {
		t.Fatalf("expected token $PAW, got %q", s.Token)
	}
	if s.Address != mintA {
		t.Fatalf("expected token/ address to win, got %q", s.Address)
	}
	if len(s.Links) != 2 || s.Links[0] != "https://x.com/paw" {
		t.Fatalf("unexpected links: %v", s.Links)
	}
	if s.Classification != domain.ClassConfidentBuy {
		t.Fatalf("expected confident buy, got %s", s.Classification)
	}
	if !s.IsActionable() {
		t.Fatal("expected signal to be actionable")
	}
}

func TestAddressPriority(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "ca before solana", text: "https://dexscreener.com/solana/" + mintB + " CA: " + mintC, want: mintC},
		{name: "ca without space", text: "CA:" + mintC, want: mintC},
		{name: "solana only", text: "chart solana/" + mintB, want: mintB},
		{name: "token beats ca", text: "CA: " + mintC + " token/" + mintA, want: mintA},
		{name: "too short", text: "CA: " + strings.Repeat("x", 31), want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.text).Address; got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestPriceBandsAndDeferred(t *testing.T) {
	s := Classify("looks good, wait for 5k-10k or dip around 20-30K CA: " + mintC)

	if s.Classification != domain.ClassDeferredBuy {
		t.Fatalf("expected deferred buy to take precedence, got %s", s.Classification)
	}
	want := []domain.PriceBand{{Low: 5000, High: 10000}, {Low: 20, High: 30000}}
	if len(s.Bands) != len(want) {
		t.Fatalf("expected %d bands, got %v", len(want), s.Bands)
	}
	for i := range want {
		if s.Bands[i] != want[i] {
			t.Fatalf("band %d: expected %+v, got %+v", i, want[i], s.Bands[i])
		}
	}
	if s.IsActionable() {
		t.Fatal("deferred signal must not be immediately actionable")
	}
	if !s.IsDeferred() {
		t.Fatal("expected deferred signal")
	}
}

func TestClassificationRules(t *testing.T) {
	tests := []struct {
		text string
		want domain.Classification
	}{
		{"gambled on it and it hit", domain.ClassConfidentBuy},
		{"gambled a little", domain.ClassNeutral},
		{"hype is real, dip floor holding", domain.ClassConfidentBuy},
		{"GOOD vibes", domain.ClassConfidentBuy},
		{"APED", domain.ClassNeutral},
		{"BOUGHT THIS one", domain.ClassConfidentBuy},
		{"rug me or give me 10-20x", domain.ClassConfidentBuy},
		{"Moon or dust. DYOR and mind your own risk", domain.ClassRiskyBuy},
		{"chart is near ATH", domain.ClassRiskyBuy},
		{"Binance listing rumours", domain.ClassConfidentBuy},
		{"binance listing rumours", domain.ClassNeutral},
		{"MEME season", domain.ClassConfidentBuy},
		{"a New Concept", domain.ClassConfidentBuy},
		{"got reposted by a whale", domain.ClassConfidentBuy},
		{"gm frens", domain.ClassNeutral},
	}

	for _, tt := range tests {
		if got := Classify(tt.text).Classification; got != tt.want {
			t.Fatalf("%q: expected %s, got %s", tt.text, tt.want, got)
		}
	}
}

func TestClassifyNeutralHasEmptyFields(t *testing.T) {
	s := NewClassifier().Classify("gm frens")
	if s.Token != "" || s.Address != "" || len(s.Links) != 0 || len(s.Bands) != 0 {
		t.Fatalf("expected empty extraction, got %+v", s)
	}
	if s.Links == nil || s.Bands == nil {
		t.Fatal("expected empty, non-nil slices")
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	text := "$X near ATH https://t.me/x CA: " + mintC
	first := Classify(text)
	for i := 0; i < 10; i++ {
		next := Classify(text)
		if next.Address != first.Address || next.Classification != first.Classification || len(next.Links) != len(first.Links) {
			t.Fatalf("classification changed between calls: %+v vs %+v", first, next)
		}
	}
}

func TestDeferredEntryEndToEnd(t *testing.T) {
	const address = "Ab3xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx33"
	s := Classify("good entry is around 5k-10k for $FOO, token/" + address)

	if s.Classification != domain.ClassDeferredBuy {
		t.Fatalf("expected deferred buy, got %s", s.Classification)
	}
	if s.Address != address || s.Token != "$FOO" {
		t.Fatalf("unexpected address %q token %q", s.Address, s.Token)
	}
	if len(s.Bands) != 1 || s.Bands[0] != (domain.PriceBand{Low: 5000, High: 10000}) {
		t.Fatalf("expected one 5000-10000 band, got %v", s.Bands)
	}
	if s.IsActionable() || !s.IsDeferred() {
		t.Fatal("expected a deferred entry, not an immediate buy")
	}
}
