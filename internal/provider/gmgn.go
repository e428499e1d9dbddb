package provider

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"degen-autotrader/internal/domain"
)

const gmgnRouterPath = "/defi/router/v1/sol/tx"

type gmgnEnvelope[T any] struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data T      `json:"data"`
}

type GMGNQuote struct {
	InputMint   string `json:"inputMint"`
	OutputMint  string `json:"outputMint"`
	InAmount    string `json:"inAmount"`
	OutAmount   string `json:"outAmount"`
	InDecimals  int    `json:"inDecimals"`
	OutDecimals int    `json:"outDecimals"`
}

type GMGNRawTx struct {
	SwapTransaction      string `json:"swapTransaction"`
	LastValidBlockHeight int64  `json:"lastValidBlockHeight"`
}

type GMGNRoute struct {
	Quote GMGNQuote `json:"quote"`
	RawTx GMGNRawTx `json:"raw_tx"`
}

type GMGNStatus struct {
	Success bool `json:"success"`
	Expired bool `json:"expired"`
	Failed  bool `json:"failed"`
}

type RouteRequest struct {
	InputMint   string
	OutputMint  string
	InAmount    uint64
	FromAddress string
	SlippagePct float64
}

// GMGN talks to the GMGN Solana swap router.
type GMGN struct {
	tracer  trace.Tracer
	client  *jsonClient
	baseURL string
}

func NewGMGN(tracer trace.Tracer, baseURL string, retry RetryPolicy) *GMGN {
	return &GMGN{
		tracer:  tracer,
		client:  newJSONClient("gmgn", 10*time.Second, retry),
		baseURL: baseURL,
	}
}

func (g *GMGN) Name() string { return "gmgn" }

// Route requests a swap route and an unsigned transaction for it.
func (g *GMGN) Route(ctx context.Context, req RouteRequest) (*GMGNRoute, error) {
	ctx, span := g.tracer.Start(ctx, "gmgn.get-swap-route")
	defer span.End()
	span.SetAttributes(
		attribute.String("input_mint", req.InputMint),
		attribute.String("output_mint", req.OutputMint),
		attribute.Int64("in_amount", int64(req.InAmount)),
	)

	q := url.Values{}
	q.Set("token_in_address", req.InputMint)
	q.Set("token_out_address", req.OutputMint)
	q.Set("in_amount", strconv.FormatUint(req.InAmount, 10))
	q.Set("from_address", req.FromAddress)
	q.Set("slippage", strconv.FormatFloat(req.SlippagePct, 'f', -1, 64))

	var resp gmgnEnvelope[GMGNRoute]
	if err := g.client.getJSON(ctx, g.baseURL+gmgnRouterPath+"/get_swap_route?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, routeError(resp.Msg)
	}
	if resp.Data.Quote.InputMint == "" {
		resp.Data.Quote.InputMint = req.InputMint
	}
	if resp.Data.Quote.OutputMint == "" {
		resp.Data.Quote.OutputMint = req.OutputMint
	}
	return &resp.Data, nil
}

// routeError maps a non-zero route response; a mid-route balance shortfall is retryable.
func routeError(msg string) error {
	if strings.Contains(strings.ToLower(msg), "insufficient account balance") {
		return fmt.Errorf("gmgn route: %s: %w: %w", msg, domain.ErrInsufficientFunds, domain.ErrTransientNetwork)
	}
	return fmt.Errorf("gmgn route: %s: %w", msg, domain.ErrProviderLogic)
}

// Submit posts a base64 signed transaction and returns its hash.
func (g *GMGN) Submit(ctx context.Context, signedTx string) (string, error) {
	ctx, span := g.tracer.Start(ctx, "gmgn.submit-signed-transaction")
	defer span.End()

	var resp gmgnEnvelope[struct {
		Hash string `json:"hash"`
	}]
	body := map[string]string{"signed_tx": signedTx}
	if err := g.client.postJSON(ctx, g.baseURL+gmgnRouterPath+"/submit_signed_transaction", body, &resp); err != nil {
		return "", err
	}
	if resp.Code != 0 {
		return "", fmt.Errorf("gmgn submit: %s: %w", resp.Msg, domain.ErrProviderLogic)
	}
	span.SetAttributes(attribute.String("tx_hash", resp.Data.Hash))
	return resp.Data.Hash, nil
}

func (g *GMGN) Status(ctx context.Context, hash string, lastValidHeight int64) (GMGNStatus, error) {
	ctx, span := g.tracer.Start(ctx, "gmgn.get-transaction-status")
	defer span.End()

	q := url.Values{}
	q.Set("hash", hash)
	q.Set("last_valid_height", strconv.FormatInt(lastValidHeight, 10))

	var resp gmgnEnvelope[GMGNStatus]
	if err := g.client.getJSON(ctx, g.baseURL+gmgnRouterPath+"/get_transaction_status?"+q.Encode(), &resp); err != nil {
		return GMGNStatus{}, err
	}
	if resp.Code != 0 {
		return GMGNStatus{}, fmt.Errorf("gmgn status: %s: %w", resp.Msg, domain.ErrProviderLogic)
	}
	return resp.Data, nil
}

// priceQuoteUnits is the token base-unit amount quoted when pricing through the router.
const priceQuoteUnits = 1_000_000_000

// QuotePrice prices asset in SOL per whole token by quoting a sell into SOL.
func (g *GMGN) QuotePrice(ctx context.Context, asset, fromAddress string, slippagePct float64) (float64, error) {
	route, err := g.Route(ctx, RouteRequest{
		InputMint:   asset,
		OutputMint:  domain.SOLMint,
		InAmount:    priceQuoteUnits,
		FromAddress: fromAddress,
		SlippagePct: slippagePct,
	})
	if err != nil {
		return 0, err
	}
	in, err := route.Quote.InAmountUnits()
	if err != nil {
		return 0, err
	}
	out, err := route.Quote.OutAmountUnits()
	if err != nil {
		return 0, err
	}
	if in.IsZero() {
		return 0, fmt.Errorf("gmgn quote: zero input: %w", domain.ErrProviderLogic)
	}
	price, _ := out.Div(in).Float64()
	return price, nil
}

// InAmountUnits returns the quoted input in whole units.
func (q GMGNQuote) InAmountUnits() (decimal.Decimal, error) {
	return scaleAmount(q.InAmount, q.InDecimals, q.InputMint)
}

// OutAmountUnits returns the quoted output in whole units.
func (q GMGNQuote) OutAmountUnits() (decimal.Decimal, error) {
	return scaleAmount(q.OutAmount, q.OutDecimals, q.OutputMint)
}

func scaleAmount(raw string, decimals int, mint string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("gmgn quote: parse amount %q: %w", raw, domain.ErrProviderLogic)
	}
	if decimals <= 0 {
		decimals = DefaultDecimals(mint)
	}
	return v.Shift(-int32(decimals)), nil
}

// DefaultDecimals is 9 for SOL and 6 for launch tokens.
func DefaultDecimals(mint string) int {
	if mint == domain.SOLMint {
		return domain.SOLDecimals
	}
	return domain.TokenDecimals
}

// ToBaseUnits converts a whole-unit amount into integer base units.
func ToBaseUnits(amount float64, decimals int) uint64 {
	return uint64(decimal.NewFromFloat(amount).Shift(int32(decimals)).Floor().IntPart())
}
