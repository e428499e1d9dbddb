package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"degen-autotrader/internal/cache"
	"degen-autotrader/internal/domain"
	"degen-autotrader/internal/metrics"
)

// DefaultPriceTTL is how long a successful lookup is served from cache.
const DefaultPriceTTL = 300 * time.Second

const (
	solUSDKey       = "SOL/USD"
	marketCapPrefix = "mcap:"
)

// PriceProvider returns a SOL-denominated price for an asset.
type PriceProvider interface {
	Name() string
	Price(ctx context.Context, asset string) (float64, error)
}

type MarketCapProvider interface {
	MarketCap(ctx context.Context, asset string) (float64, error)
}

type RouterQuoter interface {
	QuotePrice(ctx context.Context, asset, fromAddress string, slippagePct float64) (float64, error)
}

type SOLPriceProvider interface {
	SOLPriceUSD(ctx context.Context) (float64, error)
}

type PriceServiceDeps struct {
	Aggregator  PriceProvider
	Launch      PriceProvider
	LaunchMatch func(asset string) bool
	Router      RouterQuoter
	MarketCaps  MarketCapProvider
	SOLUSD      SOLPriceProvider
	Cache       cache.PriceCache

	// Mode is read on every lookup; the router is only consulted in LIVE mode.
	Mode          func() domain.Mode
	WalletAddress string
	SlippagePct   float64
	SOLFallback   float64
}

// PriceService is the price oracle. Lookups never fail: 0 means unavailable.
type PriceService struct {
	tracer trace.Tracer
	deps   PriceServiceDeps

	mu       sync.RWMutex
	lastGood map[string]float64
}

func NewPriceService(tracer trace.Tracer, deps PriceServiceDeps) *PriceService {
	if deps.Cache == nil {
		deps.Cache = cache.NewMemoryPriceCache(DefaultPriceTTL, nil)
	}
	if deps.Mode == nil {
		deps.Mode = func() domain.Mode { return domain.ModeDemo }
	}
	if deps.SOLFallback <= 0 {
		deps.SOLFallback = 150.0
	}
	return &PriceService{
		tracer:   tracer,
		deps:     deps,
		lastGood: make(map[string]float64),
	}
}

// GetPrice returns the SOL price of asset, trying the aggregator, the launch
// platform for matching ids, then the router quote in LIVE mode.
func (s *PriceService) GetPrice(ctx context.Context, asset string) float64 {
	ctx, span := s.tracer.Start(ctx, "price-service.get-price")
	defer span.End()
	span.SetAttributes(attribute.String("asset", asset))

	if asset == "" {
		return 0
	}
	if p, ok := s.deps.Cache.Get(ctx, asset); ok {
		metrics.PriceLookups.WithLabelValues("cache", "hit").Inc()
		return p
	}

	for _, lookup := range s.chain(asset) {
		price, err := lookup.fn(ctx)
		if err != nil {
			metrics.PriceLookups.WithLabelValues(lookup.name, "error").Inc()
			log.Debug().Err(err).Str("provider", lookup.name).Str("asset", domain.ShortMint(asset)).Msg("price lookup failed")
			continue
		}
		if !domain.PositiveAmount(price) {
			metrics.PriceLookups.WithLabelValues(lookup.name, "miss").Inc()
			continue
		}
		metrics.PriceLookups.WithLabelValues(lookup.name, "hit").Inc()
		s.remember(ctx, asset, price)
		span.SetAttributes(attribute.String("provider", lookup.name), attribute.Float64("price", price))
		return price
	}

	price := s.fallback(asset)
	metrics.PriceLookups.WithLabelValues("last-known-good", outcome(price)).Inc()
	log.Warn().Str("asset", domain.ShortMint(asset)).Float64("fallback", price).Msg("no provider returned a price")
	return price
}

type priceLookup struct {
	name string
	fn   func(context.Context) (float64, error)
}

func (s *PriceService) chain(asset string) []priceLookup {
	var out []priceLookup
	if s.deps.Aggregator != nil {
		p := s.deps.Aggregator
		out = append(out, priceLookup{name: p.Name(), fn: func(ctx context.Context) (float64, error) { return p.Price(ctx, asset) }})
	}
	if s.deps.Launch != nil && s.deps.LaunchMatch != nil && s.deps.LaunchMatch(asset) {
		p := s.deps.Launch
		out = append(out, priceLookup{name: p.Name(), fn: func(ctx context.Context) (float64, error) { return p.Price(ctx, asset) }})
	}
	if s.deps.Router != nil && s.deps.WalletAddress != "" && s.deps.Mode() == domain.ModeLive {
		r := s.deps.Router
		out = append(out, priceLookup{name: "router", fn: func(ctx context.Context) (float64, error) {
			return r.QuotePrice(ctx, asset, s.deps.WalletAddress, s.deps.SlippagePct)
		}})
	}
	return out
}

// GetMarketCap returns the USD market cap of asset with the same cache and fallback rules.
func (s *PriceService) GetMarketCap(ctx context.Context, asset string) float64 {
	ctx, span := s.tracer.Start(ctx, "price-service.get-market-cap")
	defer span.End()
	span.SetAttributes(attribute.String("asset", asset))

	key := marketCapPrefix + asset
	if v, ok := s.deps.Cache.Get(ctx, key); ok {
		return v
	}
	if s.deps.MarketCaps == nil {
		return s.fallback(key)
	}
	v, err := s.deps.MarketCaps.MarketCap(ctx, asset)
	if err != nil || !domain.PositiveAmount(v) {
		if err != nil {
			log.Debug().Err(err).Str("asset", domain.ShortMint(asset)).Msg("market cap lookup failed")
		}
		return s.fallback(key)
	}
	s.remember(ctx, key, v)
	return v
}

// GetSOLPriceUSD returns SOL/USD, or the configured constant when never fetched.
func (s *PriceService) GetSOLPriceUSD(ctx context.Context) float64 {
	ctx, span := s.tracer.Start(ctx, "price-service.get-sol-price-usd")
	defer span.End()

	if v, ok := s.deps.Cache.Get(ctx, solUSDKey); ok {
		return v
	}
	if s.deps.SOLUSD != nil {
		v, err := s.deps.SOLUSD.SOLPriceUSD(ctx)
		if err == nil && domain.PositiveAmount(v) {
			metrics.PriceLookups.WithLabelValues("coingecko", "hit").Inc()
			s.remember(ctx, solUSDKey, v)
			return v
		}
		metrics.PriceLookups.WithLabelValues("coingecko", "error").Inc()
		log.Warn().Err(err).Msg("sol price lookup failed")
	}
	if v := s.fallback(solUSDKey); v > 0 {
		return v
	}
	return s.deps.SOLFallback
}

// LastKnown returns the last successful price for asset without any network call.
func (s *PriceService) LastKnown(asset string) float64 {
	return s.fallback(asset)
}

func (s *PriceService) remember(ctx context.Context, key string, v float64) {
	s.deps.Cache.Set(ctx, key, v)
	s.mu.Lock()
	s.lastGood[key] = v
	s.mu.Unlock()
}

func (s *PriceService) fallback(key string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastGood[key]
}

func outcome(v float64) string {
	if v > 0 {
		return "hit"
	}
	return "miss"
}
