package provider

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"degen-autotrader/internal/domain"
)

type dexPair struct {
	DexID       string `json:"dexId"`
	PairAddress string `json:"pairAddress"`
	PriceNative string `json:"priceNative"`
	PriceUSD    string `json:"priceUsd"`
	QuoteToken  struct {
		Address string `json:"address"`
		Symbol  string `json:"symbol"`
	} `json:"quoteToken"`
	Liquidity *struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	MarketCap float64 `json:"marketCap"`
	FDV       float64 `json:"fdv"`
}

func (p dexPair) liquidityUSD() float64 {
	if p.Liquidity == nil {
		return 0
	}
	return p.Liquidity.USD
}

type dexTokensResponse struct {
	Pairs []dexPair `json:"pairs"`
}

// DexScreener reads pair data from the DexScreener aggregator.
type DexScreener struct {
	tracer  trace.Tracer
	client  *jsonClient
	baseURL string
}

func NewDexScreener(tracer trace.Tracer, baseURL string, retry RetryPolicy) *DexScreener {
	return &DexScreener{
		tracer:  tracer,
		client:  newJSONClient("dexscreener", 10*time.Second, retry),
		baseURL: baseURL,
	}
}

func (d *DexScreener) Name() string { return "dexscreener" }

// Price returns the SOL price of asset from its most liquid SOL-quoted pair.
func (d *DexScreener) Price(ctx context.Context, asset string) (float64, error) {
	ctx, span := d.tracer.Start(ctx, "dexscreener.price")
	defer span.End()
	span.SetAttributes(attribute.String("asset", asset))

	pairs, err := d.pairs(ctx, asset)
	if err != nil {
		return 0, err
	}

	var best *dexPair
	maxLiquidity := 0.0
	for i := range pairs {
		p := pairs[i]
		if p.QuoteToken.Address != domain.SOLMint {
			continue
		}
		if liq := p.liquidityUSD(); liq > maxLiquidity {
			maxLiquidity = liq
			best = &pairs[i]
		}
	}
	if best == nil {
		return 0, fmt.Errorf("dexscreener: no SOL pair for %s: %w", domain.ShortMint(asset), domain.ErrNotFound)
	}

	price, err := strconv.ParseFloat(best.PriceNative, 64)
	if err != nil {
		return 0, fmt.Errorf("dexscreener: parse priceNative %q: %w", best.PriceNative, domain.ErrProviderLogic)
	}
	span.SetAttributes(attribute.String("dex", best.DexID), attribute.Float64("price", price))
	return price, nil
}

// MarketCap returns the USD market cap of the most liquid pair, falling back to FDV.
func (d *DexScreener) MarketCap(ctx context.Context, asset string) (float64, error) {
	ctx, span := d.tracer.Start(ctx, "dexscreener.market-cap")
	defer span.End()
	span.SetAttributes(attribute.String("asset", asset))

	pairs, err := d.pairs(ctx, asset)
	if err != nil {
		return 0, err
	}
	var best *dexPair
	for i := range pairs {
		if best == nil || pairs[i].liquidityUSD() > best.liquidityUSD() {
			best = &pairs[i]
		}
	}
	if best == nil {
		return 0, fmt.Errorf("dexscreener: no pairs for %s: %w", domain.ShortMint(asset), domain.ErrNotFound)
	}
	if best.MarketCap > 0 {
		return best.MarketCap, nil
	}
	return best.FDV, nil
}

func (d *DexScreener) pairs(ctx context.Context, asset string) ([]dexPair, error) {
	var resp dexTokensResponse
	if err := d.client.getJSON(ctx, d.baseURL+"/latest/dex/tokens/"+url.PathEscape(asset), &resp); err != nil {
		return nil, err
	}
	if len(resp.Pairs) == 0 {
		return nil, fmt.Errorf("dexscreener: no pairs for %s: %w", domain.ShortMint(asset), domain.ErrNotFound)
	}
	return resp.Pairs, nil
}
