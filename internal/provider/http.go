package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"

	"degen-autotrader/internal/domain"
)

// RetryPolicy bounds retries of transient transport failures.
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetry is 3 attempts with exponential backoff from 2s capped at 10s.
var DefaultRetry = RetryPolicy{MaxTries: 3, InitialInterval: 2 * time.Second, MaxInterval: 10 * time.Second}

// NoRetry performs a single attempt.
var NoRetry = RetryPolicy{MaxTries: 1}

func (p RetryPolicy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0
	return b
}

// jsonClient issues JSON requests and classifies failures into the domain taxonomy:
// transport errors, 429 and 5xx are transient, everything else is permanent.
type jsonClient struct {
	name  string
	http  *http.Client
	retry RetryPolicy
}

func newJSONClient(name string, timeout time.Duration, retry RetryPolicy) *jsonClient {
	if retry.MaxTries == 0 {
		retry = DefaultRetry
	}
	return &jsonClient{
		name:  name,
		http:  &http.Client{Timeout: timeout},
		retry: retry,
	}
}

func (c *jsonClient) getJSON(ctx context.Context, url string, out any) error {
	return c.do(ctx, http.MethodGet, url, nil, out)
}

func (c *jsonClient) postJSON(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", c.name, err)
	}
	return c.do(ctx, http.MethodPost, url, payload, out)
}

func (c *jsonClient) do(ctx context.Context, method, url string, payload []byte, out any) error {
	attempt := 0
	op := func() (struct{}, error) {
		attempt++
		err := c.once(ctx, method, url, payload, out)
		if err == nil {
			return struct{}{}, nil
		}
		if domain.IsTransient(err) {
			log.Debug().Err(err).Str("provider", c.name).Int("attempt", attempt).Msg("transient provider error")
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(c.retry.backOff()),
		backoff.WithMaxTries(c.retry.MaxTries),
	)
	return err
}

func (c *jsonClient) once(ctx context.Context, method, url string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", c.name, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %v: %w", c.name, err, domain.ErrTransientNetwork)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return fmt.Errorf("%s: status %d: %w", c.name, resp.StatusCode, domain.ErrTransientNetwork)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: status %d: %w", c.name, resp.StatusCode, domain.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: status %d: %s: %w", c.name, resp.StatusCode, bytes.TrimSpace(snippet), domain.ErrProviderLogic)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %v: %w", c.name, err, domain.ErrProviderLogic)
	}
	return nil
}
