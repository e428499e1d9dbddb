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

type pumpCoin struct {
	Mint                 string      `json:"mint"`
	Complete             bool        `json:"complete"`
	VirtualSOLReserves   json.Number `json:"virtual_sol_reserves"`
	VirtualTokenReserves json.Number `json:"virtual_token_reserves"`
}

// PumpFun prices bonding-curve assets from the launch platform's virtual reserves.
type PumpFun struct {
	tracer  trace.Tracer
	client  *jsonClient
	baseURL string
}

func NewPumpFun(tracer trace.Tracer, baseURL string, retry RetryPolicy) *PumpFun {
	return &PumpFun{
		tracer:  tracer,
		client:  newJSONClient("pumpfun", 5*time.Second, retry),
		baseURL: baseURL,
	}
}

func (p *PumpFun) Name() string { return "pumpfun" }

// IsLaunchAsset reports whether the asset id carries the launch platform suffix.
func IsLaunchAsset(asset string) bool {
	return strings.HasSuffix(strings.ToLower(asset), "pump")
}

func (p *PumpFun) Price(ctx context.Context, asset string) (float64, error) {
	ctx, span := p.tracer.Start(ctx, "pumpfun.price")
	defer span.End()
	span.SetAttributes(attribute.String("asset", asset))

	var coin pumpCoin
	if err := p.client.getJSON(ctx, p.baseURL+"/coins/"+url.PathEscape(asset), &coin); err != nil {
		return 0, err
	}
	if coin.Complete {
		return 0, fmt.Errorf("pumpfun: %s bonding curve complete: %w", domain.ShortMint(asset), domain.ErrNotFound)
	}
	return reservePrice(coin.VirtualSOLReserves, coin.VirtualTokenReserves)
}

// reservePrice converts lamport and token base-unit reserves into SOL per token.
func reservePrice(solReserves, tokenReserves json.Number) (float64, error) {
	sol, err := decimal.NewFromString(string(orZero(solReserves)))
	if err != nil {
		return 0, fmt.Errorf("pumpfun: parse sol reserves: %w", domain.ErrProviderLogic)
	}
	tok, err := decimal.NewFromString(string(orZero(tokenReserves)))
	if err != nil {
		return 0, fmt.Errorf("pumpfun: parse token reserves: %w", domain.ErrProviderLogic)
	}
	if tok.IsZero() {
		return 0, fmt.Errorf("pumpfun: zero token reserves: %w", domain.ErrProviderLogic)
	}
	price := sol.Shift(-domain.SOLDecimals).Div(tok.Shift(-domain.TokenDecimals))
	f, _ := price.Float64()
	return f, nil
}

func orZero(n json.Number) json.Number {
	if n == "" {
		return "0"
	}
	return n
}
