package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"degen-autotrader/internal/domain"
)

type Config struct {
	TelegramBotToken   string
	NotificationChatID int64
	SignalChannel      string
	DatabaseURL        string
	RedisURL           string

	SolanaRPCURL     string
	PrivateKey       string
	PumpPortalAPIKey string

	TradingMode     domain.Mode
	DemoBalanceSOL  float64
	ProfitTarget    float64
	StopLossPct     float64
	SellPct         float64
	AutoSell        bool
	ConfidentAmount float64
	RiskyAmount     float64
	DeferredAmount  float64
	WeightedAverage bool

	MonitorIntervalSecs int
	PriceCacheTTLSecs   int
	DeferredTTLHours    int
	SOLFallbackUSD      float64
	SlippagePct         float64
	PriorityFeeSOL      float64

	Port       int
	TUIEnabled bool
	LogLevel   string

	DexScreenerURL string
	PumpFunURL     string
	GMGNURL        string
	PumpPortalURL  string
	CoinGeckoURL   string
}

func Load() *Config {
	cfg := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         strings.TrimSpace(os.Getenv("REDIS_URL")),
		PrivateKey:       strings.TrimSpace(os.Getenv("PRIVATE_KEY")),
		PumpPortalAPIKey: strings.TrimSpace(os.Getenv("PUMP_PORTAL_API_KEY")),
	}

	if cfg.TelegramBotToken == "" {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN not set, bot and notifications disabled")
	}
	if cfg.DatabaseURL == "" {
		log.Warn().Msg("DATABASE_URL not set, trade journal disabled")
	}
	if cfg.RedisURL == "" {
		log.Warn().Msg("REDIS_URL not set, using in-memory price cache")
	}

	if v := strings.TrimSpace(os.Getenv("NOTIFICATION_CHAT_ID")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.NotificationChatID = n
		} else {
			log.Warn().Str("value", v).Msg("invalid NOTIFICATION_CHAT_ID, ignoring")
		}
	}

	cfg.SignalChannel = strings.TrimPrefix(strings.TrimSpace(os.Getenv("SIGNAL_CHANNEL")), "@")

	cfg.SolanaRPCURL = stringEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com")

	cfg.TradingMode = domain.ModeDemo
	if v := os.Getenv("TRADING_MODE"); v != "" {
		if m, ok := domain.ParseMode(v); ok {
			cfg.TradingMode = m
		} else {
			log.Warn().Str("value", v).Msg("unsupported TRADING_MODE, defaulting to DEMO")
		}
	}
	if cfg.TradingMode == domain.ModeLive && cfg.PrivateKey == "" {
		log.Warn().Msg("TRADING_MODE=LIVE without PRIVATE_KEY, falling back to DEMO")
		cfg.TradingMode = domain.ModeDemo
	}

	cfg.DemoBalanceSOL = floatEnv("DEMO_BALANCE_SOL", 10, func(f float64) bool { return f >= 0 })
	cfg.ProfitTarget = floatEnv("PROFIT_TARGET", 2.0, func(f float64) bool { return f > 0 })
	cfg.StopLossPct = floatEnv("STOP_LOSS_PCT", 50, func(f float64) bool { return f >= 0 && f < 100 })
	cfg.SellPct = floatEnv("SELL_PCT", 100, func(f float64) bool { return f > 0 && f <= 100 })
	cfg.ConfidentAmount = floatEnv("CONFIDENT_AMOUNT_SOL", 0.2, positive)
	cfg.RiskyAmount = floatEnv("RISKY_AMOUNT_SOL", 0.1, positive)
	cfg.DeferredAmount = floatEnv("DEFERRED_AMOUNT_SOL", 0.15, positive)
	cfg.SOLFallbackUSD = floatEnv("SOL_FALLBACK_USD", 150.0, positive)
	cfg.SlippagePct = floatEnv("SLIPPAGE_PCT", 0.5, func(f float64) bool { return f > 0 && f <= 100 })
	cfg.PriorityFeeSOL = floatEnv("PRIORITY_FEE_SOL", 0.00005, func(f float64) bool { return f >= 0 })

	cfg.AutoSell = boolEnv("AUTO_SELL", true)
	cfg.WeightedAverage = strings.EqualFold(strings.TrimSpace(os.Getenv("ACQUISITION_PRICE_POLICY")), "weighted")
	cfg.TUIEnabled = boolEnv("TUI_ENABLED", false)

	cfg.MonitorIntervalSecs = 60
	if v := strings.TrimSpace(os.Getenv("MONITOR_INTERVAL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MonitorIntervalSecs = n
		}
	}

	cfg.PriceCacheTTLSecs = 300
	if v := strings.TrimSpace(os.Getenv("PRICE_CACHE_TTL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PriceCacheTTLSecs = n
		}
	}

	cfg.DeferredTTLHours = 24
	if v := strings.TrimSpace(os.Getenv("DEFERRED_TTL_HOURS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DeferredTTLHours = n
		}
	}

	cfg.Port = 8080
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n < 65536 {
			cfg.Port = n
		}
	}

	cfg.LogLevel = strings.ToLower(stringEnv("LOG_LEVEL", "info"))

	cfg.DexScreenerURL = stringEnv("DEXSCREENER_URL", "https://api.dexscreener.com")
	cfg.PumpFunURL = stringEnv("PUMPFUN_URL", "https://api.pump.fun")
	cfg.GMGNURL = stringEnv("GMGN_URL", "https://gmgn.ai")
	cfg.PumpPortalURL = stringEnv("PUMPPORTAL_URL", "https://pumpportal.fun")
	cfg.CoinGeckoURL = stringEnv("COINGECKO_URL", "https://api.coingecko.com")

	return cfg
}

// Settings returns the initial runtime trading settings.
func (c *Config) Settings() domain.Settings {
	return domain.Settings{
		ProfitTarget:    c.ProfitTarget,
		StopLossPercent: c.StopLossPct,
		SellPercentage:  c.SellPct,
		Mode:            c.TradingMode,
		AutoSell:        c.AutoSell,
		ConfidentAmount: c.ConfidentAmount,
		RiskyAmount:     c.RiskyAmount,
		DeferredAmount:  c.DeferredAmount,
	}
}

func stringEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return strings.TrimRight(v, "/")
	}
	return fallback
}

func floatEnv(key string, fallback float64, valid func(float64) bool) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || !valid(n) {
		log.Warn().Str("key", key).Str("value", v).Float64("default", fallback).Msg("invalid value, using default")
		return fallback
	}
	return n
}

func boolEnv(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func positive(f float64) bool {
	return f > 0
}
