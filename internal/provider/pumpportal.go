package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"degen-autotrader/internal/domain"
)

type TradeRequest struct {
	Action           string  `json:"action"`
	Mint             string  `json:"mint"`
	Amount           float64 `json:"amount"`
	DenominatedInSol string  `json:"denominatedInSol"`
	Slippage         float64 `json:"slippage"`
	PriorityFee      float64 `json:"priorityFee"`
	Pool             string  `json:"pool"`
}

type tradeResponse struct {
	Signature    string          `json:"signature"`
	TxHash       string          `json:"txHash"`
	AmountIn     json.Number     `json:"amountIn"`
	InputAmount  json.Number     `json:"inputAmount"`
	AmountOut    json.Number     `json:"amountOut"`
	OutputAmount json.Number     `json:"outputAmount"`
	Error        string          `json:"error"`
	Errors       json.RawMessage `json:"errors"`
}

// TradeResult holds raw base-unit amounts as reported by the launch platform.
type TradeResult struct {
	TxID      string
	AmountIn  decimal.Decimal
	AmountOut decimal.Decimal
}

// PumpPortal executes single-call trades on the launch platform.
type PumpPortal struct {
	tracer  trace.Tracer
	client  *jsonClient
	baseURL string
	apiKey  string
}

func NewPumpPortal(tracer trace.Tracer, baseURL, apiKey string) *PumpPortal {
	return &PumpPortal{
		tracer:  tracer,
		client:  newJSONClient("pumpportal", 15*time.Second, NoRetry),
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

func (p *PumpPortal) Name() string { return "pumpportal" }

func (p *PumpPortal) Trade(ctx context.Context, req TradeRequest) (*TradeResult, error) {
	ctx, span := p.tracer.Start(ctx, "pumpportal.trade")
	defer span.End()
	span.SetAttributes(attribute.String("action", req.Action), attribute.String("mint", req.Mint))

	if req.Pool == "" {
		req.Pool = "pump"
	}

	var resp tradeResponse
	endpoint := p.baseURL + "/api/trade?api-key=" + url.QueryEscape(p.apiKey)
	if err := p.client.postJSON(ctx, endpoint, req, &resp); err != nil {
		return nil, err
	}
	if msg := resp.errorMessage(); msg != "" {
		return nil, fmt.Errorf("pumpportal: %s: %w", msg, domain.ErrProviderLogic)
	}

	txID := resp.Signature
	if txID == "" {
		txID = resp.TxHash
	}
	return &TradeResult{
		TxID:      txID,
		AmountIn:  firstNumber(resp.AmountIn, resp.InputAmount),
		AmountOut: firstNumber(resp.AmountOut, resp.OutputAmount),
	}, nil
}

func (r tradeResponse) errorMessage() string {
	if r.Error != "" {
		return r.Error
	}
	raw := strings.TrimSpace(string(r.Errors))
	switch raw {
	case "", "null", "[]", `""`, "{}":
		return ""
	}
	return raw
}

func firstNumber(nums ...json.Number) decimal.Decimal {
	for _, n := range nums {
		if n == "" {
			continue
		}
		if d, err := decimal.NewFromString(string(n)); err == nil {
			return d
		}
	}
	return decimal.Zero
}
