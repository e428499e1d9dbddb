package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"

	"degen-autotrader/internal/bot"
	"degen-autotrader/internal/cache"
	"degen-autotrader/internal/config"
	"degen-autotrader/internal/events"
	"degen-autotrader/internal/job"
	"degen-autotrader/internal/swap"
	"degen-autotrader/internal/tui"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestMainBootstrap(t *testing.T) {
	gin.SetMode(gin.TestMode)
	restore := stubServerDeps(&config.Config{MonitorIntervalSecs: 1, PriceCacheTTLSecs: 1})
	defer restore()

	done := make(chan struct{})
	go func() {
		main()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("main did not exit")
	}
}

func TestMainStopsWhenTUIExits(t *testing.T) {
	gin.SetMode(gin.TestMode)
	restore := stubServerDeps(&config.Config{MonitorIntervalSecs: 1, TUIEnabled: true, LogLevel: "disabled"})
	defer restore()

	tuiRan := make(chan struct{})
	runTUIFunc = func(context.Context, tui.Services, *events.Bus) error {
		close(tuiRan)
		return nil
	}
	waitForSignalFunc = func(quit <-chan os.Signal) { <-quit }

	done := make(chan struct{})
	go func() {
		main()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("main did not exit after the tui quit")
	}
	select {
	case <-tuiRan:
	default:
		t.Fatal("expected tui to run")
	}
	_ = os.Remove(tuiLogFile)
}

func TestHTTPAddr(t *testing.T) {
	if got := httpAddr(0); got != ":8080" {
		t.Fatalf("expected default :8080, got %s", got)
	}
	if got := httpAddr(9090); got != ":9090" {
		t.Fatalf("expected :9090, got %s", got)
	}
}

func TestNewPriceCacheFallsBackToMemory(t *testing.T) {
	orig := initRedisFunc
	defer func() { initRedisFunc = orig }()
	initRedisFunc = func(context.Context, string) (*redis.Client, error) {
		return nil, errors.New("connection refused")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := newPriceCache(ctx, &config.Config{RedisURL: "localhost:6379", PriceCacheTTLSecs: 60})
	if _, ok := c.(*cache.MemoryPriceCache); !ok {
		t.Fatalf("expected memory cache fallback, got %T", c)
	}
}

func TestNewSwapRouterRoutesLaunchAssets(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("test")

	withoutKey := newSwapRouter(&config.Config{SlippagePct: 1, GMGNURL: "http://127.0.0.1:0"}, tracer, nil)
	if withoutKey == nil {
		t.Fatal("expected a router without a PumpPortal key")
	}
	withKey := newSwapRouter(&config.Config{SlippagePct: 1, PumpPortalAPIKey: "k", PumpPortalURL: "http://127.0.0.1:0"}, tracer, nil)
	if withKey == nil {
		t.Fatal("expected a router with a PumpPortal route")
	}
}

func stubServerDeps(cfg *config.Config) func() {
	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origInitPostgres := initPostgresFunc
	origInitRedis := initRedisFunc
	origInitTracer := initTracerFunc
	origLoadWallet := loadWalletFunc
	origStartListener := startListenerFunc
	origStartMonitor := startMonitorFunc
	origStartTelegram := startTelegramBotFunc
	origRunTUI := runTUIFunc
	origNewRouter := newRouterFunc
	origSetupSignal := setupSignalNotify
	origWait := waitForSignalFunc
	origStartHTTP := startHTTPServerFunc
	origShutdownHTTP := shutdownHTTPServerFunc

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() *config.Config { return cfg }
	initPostgresFunc = func(context.Context, string) (*pgxpool.Pool, error) { return nil, nil }
	initRedisFunc = func(context.Context, string) (*redis.Client, error) {
		return nil, errors.New("redis disabled in tests")
	}
	initTracerFunc = func(ctx context.Context) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	loadWalletFunc = func(string, string) (*swap.Wallet, error) { return nil, errors.New("no wallet in tests") }
	startListenerFunc = func(*job.Listener, context.Context) {}
	startMonitorFunc = func(*job.Monitor, context.Context) {}
	startTelegramBotFunc = func(context.Context, bot.BotConfig, bot.BotDeps) (*bot.Notifier, error) { return nil, nil }
	runTUIFunc = func(context.Context, tui.Services, *events.Bus) error { return nil }
	newRouterFunc = func(...gin.OptionFunc) *gin.Engine { return gin.New() }
	setupSignalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}
	waitForSignalFunc = func(<-chan os.Signal) {}
	startHTTPServerFunc = func(*http.Server) error { return http.ErrServerClosed }
	shutdownHTTPServerFunc = func(*http.Server, context.Context) error { return nil }

	return func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		initPostgresFunc = origInitPostgres
		initRedisFunc = origInitRedis
		initTracerFunc = origInitTracer
		loadWalletFunc = origLoadWallet
		startListenerFunc = origStartListener
		startMonitorFunc = origStartMonitor
		startTelegramBotFunc = origStartTelegram
		runTUIFunc = origRunTUI
		newRouterFunc = origNewRouter
		setupSignalNotify = origSetupSignal
		waitForSignalFunc = origWait
		startHTTPServerFunc = origStartHTTP
		shutdownHTTPServerFunc = origShutdownHTTP
	}
}
