package swap

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"degen-autotrader/internal/domain"
)

// Order is one live trade. Amount is in whole units of the input side:
// SOL for buys, tokens for sells.
type Order struct {
	Side    domain.Side
	Asset   string
	Amount  float64
	OnState func(domain.SwapState)
}

func (o Order) state(s domain.SwapState) {
	if o.OnState != nil {
		o.OnState(s)
	}
}

// Fill is what a backend reports for a confirmed trade, in whole units.
type Fill struct {
	TxID         string
	InputAmount  float64
	OutputAmount float64
}

type Backend interface {
	Name() string
	Execute(ctx context.Context, o Order) (Fill, error)
}

// Route sends matching orders to a dedicated backend first.
type Route struct {
	Name    string
	Match   func(o Order) bool
	Backend Backend
}

// Router picks the first matching route and falls back to the default backend
// when the route fails.
type Router struct {
	routes   []Route
	fallback Backend
}

func NewRouter(fallback Backend, routes ...Route) *Router {
	return &Router{routes: routes, fallback: fallback}
}

// Execute returns the fill and the name of the backend that produced it.
func (r *Router) Execute(ctx context.Context, o Order) (Fill, string, error) {
	for _, route := range r.routes {
		if route.Backend == nil || route.Match == nil || !route.Match(o) {
			continue
		}
		fill, err := route.Backend.Execute(ctx, o)
		if err == nil {
			return fill, route.Backend.Name(), nil
		}
		if ctx.Err() != nil {
			return Fill{}, route.Backend.Name(), ctx.Err()
		}
		if r.fallback == nil {
			return Fill{}, route.Backend.Name(), err
		}
		log.Warn().Err(err).Str("route", route.Name).Str("asset", domain.ShortMint(o.Asset)).
			Str("fallback", r.fallback.Name()).Msg("route failed, falling back")
		break
	}

	if r.fallback == nil {
		return Fill{}, "", errors.New("no swap backend configured")
	}
	fill, err := r.fallback.Execute(ctx, o)
	if err != nil {
		return Fill{}, r.fallback.Name(), fmt.Errorf("%s %s: %w", r.fallback.Name(), o.Side, err)
	}
	return fill, r.fallback.Name(), nil
}
