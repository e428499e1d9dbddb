package config

import (
	"testing"

	"degen-autotrader/internal/domain"
)

var configKeys = []string{
	"TELEGRAM_BOT_TOKEN", "NOTIFICATION_CHAT_ID", "SIGNAL_CHANNEL", "DATABASE_URL", "REDIS_URL",
	"SOLANA_RPC_URL", "PRIVATE_KEY", "PUMP_PORTAL_API_KEY", "TRADING_MODE", "DEMO_BALANCE_SOL",
	"PROFIT_TARGET", "STOP_LOSS_PCT", "SELL_PCT", "AUTO_SELL", "CONFIDENT_AMOUNT_SOL",
	"RISKY_AMOUNT_SOL", "DEFERRED_AMOUNT_SOL", "ACQUISITION_PRICE_POLICY", "MONITOR_INTERVAL_SECS",
	"PRICE_CACHE_TTL_SECS", "DEFERRED_TTL_HOURS", "SOL_FALLBACK_USD", "SLIPPAGE_PCT",
	"PRIORITY_FEE_SOL", "PORT", "TUI_ENABLED", "LOG_LEVEL", "DEXSCREENER_URL", "PUMPFUN_URL",
	"GMGN_URL", "PUMPPORTAL_URL", "COINGECKO_URL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	if cfg.TradingMode != domain.ModeDemo {
		t.Fatalf("expected DEMO mode, got %s", cfg.TradingMode)
	}
	if cfg.DemoBalanceSOL != 10 || cfg.ProfitTarget != 2.0 || cfg.StopLossPct != 50 || cfg.SellPct != 100 {
		t.Fatalf("unexpected trading defaults: %+v", cfg)
	}
	if cfg.ConfidentAmount != 0.2 || cfg.RiskyAmount != 0.1 || cfg.DeferredAmount != 0.15 {
		t.Fatalf("unexpected amount defaults: %+v", cfg)
	}
	if cfg.MonitorIntervalSecs != 60 || cfg.PriceCacheTTLSecs != 300 || cfg.DeferredTTLHours != 24 {
		t.Fatalf("unexpected interval defaults: %+v", cfg)
	}
	if cfg.SOLFallbackUSD != 150 || cfg.SlippagePct != 0.5 || cfg.PriorityFeeSOL != 0.00005 {
		t.Fatalf("unexpected fee defaults: %+v", cfg)
	}
	if !cfg.AutoSell || cfg.TUIEnabled || cfg.WeightedAverage {
		t.Fatalf("unexpected toggles: %+v", cfg)
	}
	if cfg.Port != 8080 || cfg.RedisURL != "" {
		t.Fatalf("unexpected server defaults: %+v", cfg)
	}
	if cfg.DexScreenerURL != "https://api.dexscreener.com" || cfg.GMGNURL != "https://gmgn.ai" {
		t.Fatalf("unexpected provider urls: %+v", cfg)
	}
}

func TestLoadWithEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("NOTIFICATION_CHAT_ID", "1516301800")
	t.Setenv("SIGNAL_CHANNEL", "@MarkDegen")
	t.Setenv("PRIVATE_KEY", "[1,2,3]")
	t.Setenv("TRADING_MODE", "live")
	t.Setenv("PROFIT_TARGET", "3.5")
	t.Setenv("STOP_LOSS_PCT", "25")
	t.Setenv("SELL_PCT", "50")
	t.Setenv("AUTO_SELL", "false")
	t.Setenv("ACQUISITION_PRICE_POLICY", "weighted")
	t.Setenv("MONITOR_INTERVAL_SECS", "5")
	t.Setenv("PORT", "9090")
	t.Setenv("GMGN_URL", "http://localhost:1234/")

	cfg := Load()
	if cfg.NotificationChatID != 1516301800 || cfg.SignalChannel != "MarkDegen" {
		t.Fatalf("unexpected telegram config: %+v", cfg)
	}
	if cfg.TradingMode != domain.ModeLive {
		t.Fatalf("expected LIVE mode, got %s", cfg.TradingMode)
	}
	if cfg.ProfitTarget != 3.5 || cfg.StopLossPct != 25 || cfg.SellPct != 50 || cfg.AutoSell {
		t.Fatalf("unexpected trading config: %+v", cfg)
	}
	if !cfg.WeightedAverage || cfg.MonitorIntervalSecs != 5 || cfg.Port != 9090 {
		t.Fatalf("unexpected runtime config: %+v", cfg)
	}
	if cfg.GMGNURL != "http://localhost:1234" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.GMGNURL)
	}

	s := cfg.Settings()
	if s.Mode != domain.ModeLive || s.ProfitTarget != 3.5 || s.StopLossRatio() != 0.75 {
		t.Fatalf("unexpected settings: %+v", s)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("TRADING_MODE", "live")
	t.Setenv("PROFIT_TARGET", "-1")
	t.Setenv("SELL_PCT", "250")
	t.Setenv("NOTIFICATION_CHAT_ID", "not-a-number")

	cfg := Load()
	if cfg.TradingMode != domain.ModeDemo {
		t.Fatalf("expected live without key to fall back to DEMO, got %s", cfg.TradingMode)
	}
	if cfg.ProfitTarget != 2.0 || cfg.SellPct != 100 || cfg.NotificationChatID != 0 {
		t.Fatalf("expected invalid values to fall back: %+v", cfg)
	}
}
