package swap

import (
	"context"
	"fmt"

	"degen-autotrader/internal/domain"
	"degen-autotrader/internal/provider"
)

type tradeClient interface {
	Trade(ctx context.Context, req provider.TradeRequest) (*provider.TradeResult, error)
}

// PumpPortalBackend trades bonding-curve assets through the launch platform in one call.
type PumpPortalBackend struct {
	client      tradeClient
	slippagePct float64
	priorityFee float64
}

func NewPumpPortalBackend(client tradeClient, slippagePct, priorityFee float64) *PumpPortalBackend {
	return &PumpPortalBackend{client: client, slippagePct: slippagePct, priorityFee: priorityFee}
}

func (b *PumpPortalBackend) Name() string { return "pumpportal" }

func (b *PumpPortalBackend) Execute(ctx context.Context, o Order) (Fill, error) {
	req := provider.TradeRequest{
		Mint:        o.Asset,
		Amount:      o.Amount,
		Slippage:    b.slippagePct * 100,
		PriorityFee: b.priorityFee,
		Pool:        "pump",
	}
	switch o.Side {
	case domain.SideBuy:
		req.Action, req.DenominatedInSol = "buy", "true"
	case domain.SideSell:
		req.Action, req.DenominatedInSol = "sell", "false"
	default:
		return Fill{}, fmt.Errorf("unknown side %q: %w", o.Side, domain.ErrInvalidIntent)
	}

	o.state(domain.StateSubmitting)
	res, err := b.client.Trade(ctx, req)
	if err != nil {
		return Fill{}, err
	}

	fill := Fill{TxID: res.TxID, InputAmount: o.Amount}
	inMint, outMint := domain.SOLMint, o.Asset
	if o.Side == domain.SideSell {
		inMint, outMint = o.Asset, domain.SOLMint
	}
	if res.AmountIn.IsPositive() {
		fill.InputAmount, _ = res.AmountIn.Shift(-int32(provider.DefaultDecimals(inMint))).Float64()
	}
	if res.AmountOut.IsPositive() {
		fill.OutputAmount, _ = res.AmountOut.Shift(-int32(provider.DefaultDecimals(outMint))).Float64()
	}
	return fill, nil
}
