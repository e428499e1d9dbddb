package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"degen-autotrader/internal/bot"
	"degen-autotrader/internal/cache"
	"degen-autotrader/internal/config"
	"degen-autotrader/internal/db"
	"degen-autotrader/internal/domain"
	"degen-autotrader/internal/events"
	"degen-autotrader/internal/handler"
	"degen-autotrader/internal/job"
	"degen-autotrader/internal/ledger"
	"degen-autotrader/internal/provider"
	"degen-autotrader/internal/repository"
	"degen-autotrader/internal/service"
	"degen-autotrader/internal/settings"
	signalclassifier "degen-autotrader/internal/signal"
	"degen-autotrader/internal/swap"
	"degen-autotrader/internal/tui"
	"degen-autotrader/pkg/tracing"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
)

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	initPostgresFunc       = db.InitPostgres
	initRedisFunc          = cache.InitRedis
	initTracerFunc         = tracing.InitTracer
	loadWalletFunc         = swap.LoadWallet
	startListenerFunc      = func(l *job.Listener, ctx context.Context) { go l.Start(ctx) }
	startMonitorFunc       = func(m *job.Monitor, ctx context.Context) { go m.Start(ctx) }
	startTelegramBotFunc   = bot.StartTelegramBot
	runTUIFunc             = tui.Run
	newRouterFunc          = gin.New
	setupSignalNotify      = ossignal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

func main() {
	_ = loadEnvFunc()

	cfg := loadConfigFunc()
	closeLog := configureLogging(cfg.LogLevel, cfg.TUIEnabled)
	defer closeLog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer")
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("error shutting down tracer provider")
		}
	}()

	bus := events.NewBus()
	store := settings.NewStore(cfg.Settings())
	priceCache := newPriceCache(ctx, cfg)

	// Providers
	dex := provider.NewDexScreener(tracer, cfg.DexScreenerURL, provider.DefaultRetry)
	pump := provider.NewPumpFun(tracer, cfg.PumpFunURL, provider.DefaultRetry)
	gmgn := provider.NewGMGN(tracer, cfg.GMGNURL, provider.DefaultRetry)
	gecko := provider.NewCoinGecko(tracer, cfg.CoinGeckoURL, provider.DefaultRetry)

	var wallet *swap.Wallet
	if cfg.PrivateKey != "" {
		wallet, err = loadWalletFunc(cfg.PrivateKey, cfg.SolanaRPCURL)
		if err != nil {
			log.Error().Err(err).Msg("failed to load wallet, LIVE trading disabled")
			wallet = nil
			if _, err := store.Update(func(s *domain.Settings) { s.Mode = domain.ModeDemo }); err != nil {
				log.Error().Err(err).Msg("failed to force DEMO mode")
			}
		}
	}
	walletAddress := ""
	if wallet != nil {
		walletAddress = wallet.PublicKey()
		log.Info().Str("wallet", domain.ShortMint(walletAddress)).Msg("live wallet loaded")
	}

	prices := service.NewPriceService(tracer, service.PriceServiceDeps{
		Aggregator:    dex,
		Launch:        pump,
		LaunchMatch:   provider.IsLaunchAsset,
		Router:        gmgn,
		MarketCaps:    dex,
		SOLUSD:        gecko,
		Cache:         priceCache,
		Mode:          store.Mode,
		WalletAddress: walletAddress,
		SlippagePct:   cfg.SlippagePct,
		SOLFallback:   cfg.SOLFallbackUSD,
	})

	var ledgerOpts []ledger.Option
	if cfg.WeightedAverage {
		ledgerOpts = append(ledgerOpts, ledger.WithPricePolicy(ledger.WeightedAveragePrice))
	}
	books := ledger.NewBooks(
		ledger.New(cfg.DemoBalanceSOL, ledgerOpts...),
		ledger.New(0, ledgerOpts...),
		store.Mode,
	)

	engineDeps := swap.EngineDeps{
		Oracle:   prices,
		Ledger:   books.For(domain.ModeDemo),
		Holdings: books.For(domain.ModeLive),
		Settings: store,
		Bus:      bus,
	}
	if wallet != nil {
		engineDeps.Router = newSwapRouter(cfg, tracer, wallet)
		engineDeps.Wallet = wallet
	}

	// Trade journal
	pool, err := initPostgresFunc(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error().Err(err).Msg("postgres unavailable, trade journal disabled")
	}
	var trades *repository.TradeRepository
	if pool != nil {
		defer pool.Close()
		trades = repository.NewTradeRepository(pool, tracer)
		if err := trades.RunMigrations(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
		engineDeps.Journal = trades
	}

	engine := swap.NewEngine(tracer, engineDeps)
	deferred := service.NewDeferredBook(time.Duration(cfg.DeferredTTLHours)*time.Hour, nil)
	signals := service.NewSignalService(tracer, signalclassifier.NewClassifier(), engine, deferred, store, bus)
	portfolio := service.NewPortfolioService(tracer, books, prices, engine, store.Mode)

	// Background workers (stopped by ctx cancel)
	listener := job.NewListener(signals, 0)
	startListenerFunc(listener, ctx)
	monitor := job.NewMonitor(tracer, books, prices, engine, store, deferred, bus,
		time.Duration(cfg.MonitorIntervalSecs)*time.Second)
	startMonitorFunc(monitor, ctx)

	hub := events.NewWSHub()
	go hub.Run(ctx)
	go hub.Forward(ctx, bus)

	notifier, err := startTelegramBotFunc(ctx, bot.BotConfig{
		Token:         cfg.TelegramBotToken,
		SignalChannel: cfg.SignalChannel,
		NotifyChatID:  cfg.NotificationChatID,
	}, bot.BotDeps{
		Signals:   signals,
		Inbox:     listener,
		Trader:    engine,
		Portfolio: portfolio,
		Settings:  store,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to start telegram bot")
	}
	if notifier != nil {
		go notifier.Run(ctx, bus)
	}

	// HTTP API
	handlerDeps := handler.Deps{
		Prices:        prices,
		Portfolio:     portfolio,
		Signals:       signals,
		Inbox:         listener,
		Trader:        engine,
		Settings:      store,
		WS:            hub.HandleWS,
		LiveAvailable: wallet != nil,
	}
	if trades != nil {
		handlerDeps.Trades = trades
	}
	h := handler.New(tracer, handlerDeps)

	r := newRouterFunc()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowHeaders:    []string{"Origin", "Content-Type"},
		MaxAge:          12 * time.Hour,
	}))
	r.Use(otelgin.Middleware(tracing.ServiceName))
	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    httpAddr(cfg.Port),
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()
	log.Info().Str("addr", srv.Addr).Str("mode", string(store.Mode())).Msg("autotrader started")

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)

	if cfg.TUIEnabled {
		go func() {
			err := runTUIFunc(ctx, tui.Services{Portfolio: portfolio, Trader: engine, Settings: store}, bus)
			if err != nil {
				log.Error().Err(err).Msg("tui exited")
			}
			select {
			case quit <- syscall.SIGTERM:
			default:
			}
		}()
	}

	waitForSignalFunc(quit)
	log.Info().Msg("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}

// newPriceCache prefers a shared Redis cache and falls back to process memory.
func newPriceCache(ctx context.Context, cfg *config.Config) cache.PriceCache {
	ttl := time.Duration(cfg.PriceCacheTTLSecs) * time.Second
	if cfg.RedisURL != "" {
		rdb, err := initRedisFunc(ctx, cfg.RedisURL)
		if err == nil {
			return cache.NewRedisPriceCache(rdb, ttl)
		}
		log.Error().Err(err).Msg("redis unavailable, using in-memory price cache")
	}
	mem := cache.NewMemoryPriceCache(ttl, nil)
	go purgeLoop(ctx, mem, ttl)
	return mem
}

func purgeLoop(ctx context.Context, mem *cache.MemoryPriceCache, every time.Duration) {
	if every <= 0 {
		every = service.DefaultPriceTTL
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := mem.Purge(); n > 0 {
				log.Debug().Int("entries", n).Msg("purged expired prices")
			}
		}
	}
}

// newSwapRouter sends launch-platform assets to PumpPortal when an API key is
// configured and everything else, including PumpPortal failures, to GMGN.
// The GMGN backend retries whole attempts itself, so its client makes a
// single request per call.
func newSwapRouter(cfg *config.Config, tracer trace.Tracer, wallet *swap.Wallet) *swap.Router {
	opts := swap.DefaultGMGNOptions()
	opts.SlippagePct = cfg.SlippagePct
	gmgn := provider.NewGMGN(tracer, cfg.GMGNURL, provider.NoRetry)
	fallback := swap.NewGMGNBackend(gmgn, wallet, opts)

	if cfg.PumpPortalAPIKey == "" {
		return swap.NewRouter(fallback)
	}
	portal := provider.NewPumpPortal(tracer, cfg.PumpPortalURL, cfg.PumpPortalAPIKey)
	return swap.NewRouter(fallback, swap.Route{
		Name:    "launch",
		Match:   func(o swap.Order) bool { return provider.IsLaunchAsset(o.Asset) },
		Backend: swap.NewPumpPortalBackend(portal, cfg.SlippagePct, cfg.PriorityFeeSOL),
	})
}

func httpAddr(port int) string {
	if port <= 0 {
		port = 8080
	}
	return fmt.Sprintf(":%d", port)
}
