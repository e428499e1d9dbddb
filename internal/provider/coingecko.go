package provider

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"degen-autotrader/internal/domain"
)

type CoinGecko struct {
	tracer  trace.Tracer
	client  *jsonClient
	baseURL string
}

func NewCoinGecko(tracer trace.Tracer, baseURL string, retry RetryPolicy) *CoinGecko {
	return &CoinGecko{
		tracer:  tracer,
		client:  newJSONClient("coingecko", 5*time.Second, retry),
		baseURL: baseURL,
	}
}

// SOLPriceUSD returns the current SOL/USD spot price.
func (c *CoinGecko) SOLPriceUSD(ctx context.Context) (float64, error) {
	ctx, span := c.tracer.Start(ctx, "coingecko.sol-price")
	defer span.End()

	var resp map[string]map[string]float64
	if err := c.client.getJSON(ctx, c.baseURL+"/api/v3/simple/price?ids=solana&vs_currencies=usd", &resp); err != nil {
		return 0, err
	}
	price := resp["solana"]["usd"]
	if price <= 0 {
		return 0, fmt.Errorf("coingecko: missing solana usd price: %w", domain.ErrProviderLogic)
	}
	return price, nil
}
