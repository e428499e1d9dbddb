package swap

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"

	"degen-autotrader/internal/domain"
	"degen-autotrader/internal/provider"
)

type routeClient interface {
	Route(ctx context.Context, req provider.RouteRequest) (*provider.GMGNRoute, error)
	Submit(ctx context.Context, signedTx string) (string, error)
	Status(ctx context.Context, hash string, lastValidHeight int64) (provider.GMGNStatus, error)
}

type Signer interface {
	PublicKey() string
	SignTransaction(raw []byte) ([]byte, error)
}

// GMGNOptions tunes retry and confirmation polling. StatusTimeout bounds a
// single status request; PollTimeout bounds the whole confirmation.
type GMGNOptions struct {
	SlippagePct   float64
	MaxTries      uint
	RetryDelay    time.Duration
	PollInterval  time.Duration
	PollTimeout   time.Duration
	StatusTimeout time.Duration
}

func DefaultGMGNOptions() GMGNOptions {
	return GMGNOptions{
		SlippagePct:   0.5,
		MaxTries:      3,
		RetryDelay:    5 * time.Second,
		PollInterval:  time.Second,
		PollTimeout:   60 * time.Second,
		StatusTimeout: 5 * time.Second,
	}
}

// GMGNBackend runs quote, sign, submit and confirm against the GMGN router.
type GMGNBackend struct {
	client routeClient
	signer Signer
	opts   GMGNOptions
}

func NewGMGNBackend(client routeClient, signer Signer, opts GMGNOptions) *GMGNBackend {
	def := DefaultGMGNOptions()
	if opts.MaxTries == 0 {
		opts.MaxTries = def.MaxTries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = def.RetryDelay
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = def.PollTimeout
	}
	if opts.StatusTimeout <= 0 {
		opts.StatusTimeout = def.StatusTimeout
	}
	if opts.SlippagePct <= 0 {
		opts.SlippagePct = def.SlippagePct
	}
	return &GMGNBackend{client: client, signer: signer, opts: opts}
}

func (b *GMGNBackend) Name() string { return "gmgn" }

// Execute retries transient failures with a constant delay; expiry, timeout and
// route rejections are final.
func (b *GMGNBackend) Execute(ctx context.Context, o Order) (Fill, error) {
	attempt := 0
	op := func() (Fill, error) {
		attempt++
		fill, err := b.attempt(ctx, o)
		if err == nil {
			return fill, nil
		}
		if domain.IsTransient(err) {
			log.Warn().Err(err).Str("asset", domain.ShortMint(o.Asset)).Int("attempt", attempt).Msg("gmgn swap attempt failed")
			return Fill{}, err
		}
		return Fill{}, backoff.Permanent(err)
	}
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(b.opts.RetryDelay)),
		backoff.WithMaxTries(b.opts.MaxTries),
	)
}

func (b *GMGNBackend) attempt(ctx context.Context, o Order) (Fill, error) {
	req := provider.RouteRequest{
		FromAddress: b.signer.PublicKey(),
		SlippagePct: b.opts.SlippagePct,
	}
	switch o.Side {
	case domain.SideBuy:
		req.InputMint, req.OutputMint = domain.SOLMint, o.Asset
	case domain.SideSell:
		req.InputMint, req.OutputMint = o.Asset, domain.SOLMint
	default:
		return Fill{}, fmt.Errorf("unknown side %q: %w", o.Side, domain.ErrInvalidIntent)
	}
	req.InAmount = provider.ToBaseUnits(o.Amount, provider.DefaultDecimals(req.InputMint))
	if req.InAmount == 0 {
		return Fill{}, fmt.Errorf("amount %v rounds to zero: %w", o.Amount, domain.ErrInvalidIntent)
	}

	o.state(domain.StateQuoting)
	route, err := b.client.Route(ctx, req)
	if err != nil {
		return Fill{}, err
	}

	o.state(domain.StateSigning)
	raw, err := base64.StdEncoding.DecodeString(route.RawTx.SwapTransaction)
	if err != nil {
		return Fill{}, fmt.Errorf("decode swap transaction: %v: %w", err, domain.ErrProviderLogic)
	}
	signed, err := b.signer.SignTransaction(raw)
	if err != nil {
		return Fill{}, fmt.Errorf("sign swap transaction: %w", err)
	}

	o.state(domain.StateSubmitting)
	hash, err := b.client.Submit(ctx, base64.StdEncoding.EncodeToString(signed))
	if err != nil {
		return Fill{}, err
	}

	o.state(domain.StateConfirming)
	if err := b.confirm(ctx, hash, route.RawTx.LastValidBlockHeight); err != nil {
		return Fill{}, err
	}

	in, _ := route.Quote.InAmountUnits()
	out, _ := route.Quote.OutAmountUnits()
	inF, _ := in.Float64()
	outF, _ := out.Float64()
	return Fill{TxID: hash, InputAmount: inF, OutputAmount: outF}, nil
}

// confirm polls the status endpoint until success, expiry or the poll timeout.
// Status errors are logged and polling continues. Every status request is cut
// off at the poll deadline, so a slow or retrying client cannot stretch it.
func (b *GMGNBackend) confirm(ctx context.Context, hash string, lastValidHeight int64) error {
	pollCtx, cancel := context.WithTimeout(ctx, b.opts.PollTimeout)
	defer cancel()
	ticker := time.NewTicker(b.opts.PollInterval)
	defer ticker.Stop()

	timedOut := func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("transaction %s after %s: %w", hash, b.opts.PollTimeout, domain.ErrTimeout)
	}

	for {
		reqCtx, cancelReq := context.WithTimeout(pollCtx, b.opts.StatusTimeout)
		status, err := b.client.Status(reqCtx, hash, lastValidHeight)
		cancelReq()
		switch {
		case err != nil:
			if pollCtx.Err() != nil {
				return timedOut()
			}
			log.Warn().Err(err).Str("tx", hash).Msg("transaction status check failed")
		case status.Success:
			return nil
		case status.Expired:
			return fmt.Errorf("transaction %s: %w", hash, domain.ErrExpired)
		}

		select {
		case <-pollCtx.Done():
			return timedOut()
		case <-ticker.C:
		}
	}
}
