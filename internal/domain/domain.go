package domain

import (
	"math"
	"strings"
	"time"
)

// SOLMint is the wrapped SOL mint used as the settlement asset on both swap backends.
const SOLMint = "So11111111111111111111111111111111111111112"

const (
	SOLDecimals   = 9
	TokenDecimals = 6
)

type Classification string

const (
	ClassConfidentBuy Classification = "CONFIDENT_BUY"
	ClassRiskyBuy     Classification = "RISKY_BUY"
	ClassDeferredBuy  Classification = "DEFERRED_BUY"
	ClassNeutral      Classification = "NEUTRAL"
)

func (c Classification) IsBuy() bool {
	return c == ClassConfidentBuy || c == ClassRiskyBuy || c == ClassDeferredBuy
}

// PriceBand is an entry zone such as "5k-10k" after k-expansion.
type PriceBand struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

func (b PriceBand) Contains(v float64) bool {
	return v >= b.Low && v <= b.High
}

type TradeSignal struct {
	Text           string         `json:"text"`
	Token          string         `json:"token,omitempty"`
	Address        string         `json:"address,omitempty"`
	Links          []string       `json:"links"`
	Bands          []PriceBand    `json:"bands"`
	Classification Classification `json:"classification"`
}

// IsActionable reports whether the signal should trigger an immediate buy.
// Deferred signals wait for their entry band and are never immediate.
func (s TradeSignal) IsActionable() bool {
	if s.Address == "" {
		return false
	}
	return s.Classification == ClassConfidentBuy || s.Classification == ClassRiskyBuy
}

func (s TradeSignal) IsDeferred() bool {
	return s.Classification == ClassDeferredBuy && s.Address != "" && len(s.Bands) > 0
}

type Position struct {
	Asset            string    `json:"asset"`
	Amount           float64   `json:"amount"`
	AcquisitionPrice float64   `json:"acquisition_price"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type PriceQuote struct {
	Asset     string    `json:"asset"`
	Price     float64   `json:"price"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

type Mode string

const (
	ModeDemo Mode = "DEMO"
	ModeLive Mode = "LIVE"
)

func ParseMode(raw string) (Mode, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "DEMO", "SIM", "SIMULATED":
		return ModeDemo, true
	case "LIVE", "REAL":
		return ModeLive, true
	}
	return "", false
}

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

type SwapStatus string

const (
	SwapSuccess SwapStatus = "SUCCESS"
	SwapWaiting SwapStatus = "WAITING"
	SwapError   SwapStatus = "ERROR"
)

// SwapState is the terminal or intermediate stage of one swap attempt.
type SwapState string

const (
	StateQuoting      SwapState = "QUOTING"
	StateSigning      SwapState = "SIGNING"
	StateSubmitting   SwapState = "SUBMITTING"
	StateConfirming   SwapState = "CONFIRMING"
	StateSuccess      SwapState = "SUCCESS"
	StateExpired      SwapState = "EXPIRED"
	StateError        SwapState = "ERROR"
	StateInsufficient SwapState = "INSUFFICIENT_BALANCE"
)

// SwapIntent is one requested trade. Amount is in units of InputAsset.
type SwapIntent struct {
	InputAsset  string  `json:"input_asset"`
	OutputAsset string  `json:"output_asset"`
	Amount      float64 `json:"amount"`
}

func (i SwapIntent) Side() Side {
	if i.InputAsset == SOLMint {
		return SideBuy
	}
	return SideSell
}

// Asset returns the non-settlement side of the intent.
func (i SwapIntent) Asset() string {
	if i.Side() == SideBuy {
		return i.OutputAsset
	}
	return i.InputAsset
}

type SwapResult struct {
	ID           string     `json:"id"`
	Status       SwapStatus `json:"status"`
	State        SwapState  `json:"state"`
	Mode         Mode       `json:"mode"`
	Side         Side       `json:"side"`
	Asset        string     `json:"asset"`
	Backend      string     `json:"backend,omitempty"`
	InputAmount  float64    `json:"input_amount"`
	OutputAmount float64    `json:"output_amount"`
	Price        float64    `json:"price"`
	ProfitRatio  float64    `json:"profit_ratio,omitempty"`
	TxID         string     `json:"tx_id,omitempty"`
	Message      string     `json:"message"`
	ExecutedAt   time.Time  `json:"executed_at"`
}

type SellReason string

const (
	SellTakeProfit SellReason = "take_profit"
	SellStopLoss   SellReason = "stop_loss"
	SellManual     SellReason = "manual"
)

type Settings struct {
	ProfitTarget    float64 `json:"profit_target"`
	StopLossPercent float64 `json:"stop_loss_percent"`
	SellPercentage  float64 `json:"sell_percentage"`
	Mode            Mode    `json:"mode"`
	AutoSell        bool    `json:"auto_sell"`
	ConfidentAmount float64 `json:"confident_amount"`
	RiskyAmount     float64 `json:"risky_amount"`
	DeferredAmount  float64 `json:"deferred_amount"`
}

// AmountFor returns the configured SOL size for a classification, 0 for neutral.
func (s Settings) AmountFor(c Classification) float64 {
	switch c {
	case ClassConfidentBuy:
		return s.ConfidentAmount
	case ClassRiskyBuy:
		return s.RiskyAmount
	case ClassDeferredBuy:
		return s.DeferredAmount
	}
	return 0
}

// StopLossRatio converts the loss percentage into a price ratio floor. Zero disables it.
func (s Settings) StopLossRatio() float64 {
	if s.StopLossPercent <= 0 || s.StopLossPercent >= 100 {
		return 0
	}
	return 1 - s.StopLossPercent/100
}

// SellFraction converts the sell percentage into (0, 1].
func (s Settings) SellFraction() float64 {
	if s.SellPercentage <= 0 || s.SellPercentage > 100 {
		return 1
	}
	return s.SellPercentage / 100
}

// InboundMessage is one text delivered by a signal source.
type InboundMessage struct {
	Source     string    `json:"source"`
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"received_at"`
}

// PositiveAmount reports whether v is finite and above zero. NaN fails every
// ordered comparison, so a bare v <= 0 check lets it through.
func PositiveAmount(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// ShortMint truncates an asset id for display: first and last six characters.
func ShortMint(asset string) string {
	if len(asset) <= 15 {
		return asset
	}
	return asset[:6] + "..." + asset[len(asset)-6:]
}

// PositionView is a position priced at a point in time.
type PositionView struct {
	Position
	CurrentPrice float64 `json:"current_price"`
	ValueSOL     float64 `json:"value_sol"`
	ProfitRatio  float64 `json:"profit_ratio"`
}

type Portfolio struct {
	Mode       Mode           `json:"mode"`
	SOLBalance float64        `json:"sol_balance"`
	SOLPrice   float64        `json:"sol_price_usd"`
	BalanceUSD float64        `json:"balance_usd"`
	Positions  []PositionView `json:"positions"`
	TotalSOL   float64        `json:"total_value_sol"`
	AsOf       time.Time      `json:"as_of"`
}
