package tui

import (
	"context"

	"degen-autotrader/internal/domain"
)

// PortfolioQuerier provides the priced portfolio to the TUI.
type PortfolioQuerier interface {
	Snapshot(ctx context.Context) domain.Portfolio
}

// SwapExecutor runs swaps typed into the trade screen.
type SwapExecutor interface {
	Swap(ctx context.Context, intent domain.SwapIntent) (domain.SwapResult, error)
}

// SettingsToggler exposes the runtime settings the dashboard can flip.
type SettingsToggler interface {
	Snapshot() domain.Settings
	SetAutoSell(enabled bool) domain.Settings
}

// Services bundles all service dependencies injected into the TUI.
type Services struct {
	Portfolio PortfolioQuerier
	Trader    SwapExecutor
	Settings  SettingsToggler
}
