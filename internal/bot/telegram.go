package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"degen-autotrader/internal/domain"
	"degen-autotrader/internal/service"
	"degen-autotrader/internal/swap"
)

const commandTimeout = 2 * time.Minute

type SignalHandler interface {
	Handle(ctx context.Context, text string) (service.SignalOutcome, error)
	Classify(text string) domain.TradeSignal
}

type Inbox interface {
	Submit(ctx context.Context, msg domain.InboundMessage) error
}

type Trader interface {
	Swap(ctx context.Context, intent domain.SwapIntent) (domain.SwapResult, error)
	Sell(ctx context.Context, req swap.SellRequest) (domain.SwapResult, error)
}

type PortfolioViewer interface {
	Snapshot(ctx context.Context) domain.Portfolio
}

type SettingsController interface {
	Snapshot() domain.Settings
	SetAutoSell(enabled bool) domain.Settings
}

type BotConfig struct {
	Token         string
	SignalChannel string
	NotifyChatID  int64
}

type BotDeps struct {
	Signals   SignalHandler
	Inbox     Inbox
	Trader    Trader
	Portfolio PortfolioViewer
	Settings  SettingsController
}

// StartTelegramBot registers handlers and starts long polling. It returns a nil
// notifier when no token is configured.
func StartTelegramBot(ctx context.Context, cfg BotConfig, deps BotDeps) (*Notifier, error) {
	if cfg.Token == "" {
		log.Info().Msg("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil, nil
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second, AllowedUpdates: []string{"message", "channel_post"}},
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	notifier := NewNotifier(b, cfg.NotifyChatID)
	channel := strings.TrimPrefix(cfg.SignalChannel, "@")

	b.Handle(tele.OnChannelPost, func(c tele.Context) error {
		msg := c.Message()
		if msg == nil || !isSignalChannel(c.Chat(), channel) {
			return nil
		}
		text := msg.Text
		if text == "" {
			text = msg.Caption
		}
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return deps.Inbox.Submit(ctx, domain.InboundMessage{
			Source:     "channel:" + strconv.FormatInt(c.Chat().ID, 10),
			ID:         strconv.Itoa(msg.ID),
			Text:       text,
			ReceivedAt: msg.Time(),
		})
	})

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/status", func(c tele.Context) error {
		cctx, cancel := context.WithTimeout(ctx, commandTimeout)
		defer cancel()
		p := deps.Portfolio.Snapshot(cctx)
		return c.Send(formatStatus(deps.Settings.Snapshot(), len(p.Positions)))
	})

	b.Handle("/portfolio", func(c tele.Context) error {
		cctx, cancel := context.WithTimeout(ctx, commandTimeout)
		defer cancel()
		return c.Send(formatPortfolio(deps.Portfolio.Snapshot(cctx)))
	})

	b.Handle("/buy", func(c tele.Context) error {
		intent, err := swap.ParseIntent(c.Message().Payload)
		if err != nil {
			return c.Send("Usage: /buy <asset> <amount SOL>")
		}
		_ = c.Send(fmt.Sprintf("Buying %s for %.4f SOL...", domain.ShortMint(intent.OutputAsset), intent.Amount))

		cctx, cancel := context.WithTimeout(ctx, commandTimeout)
		defer cancel()
		res, err := deps.Trader.Swap(cctx, intent)
		if err != nil {
			return c.Send(fmt.Sprintf("Buy failed: %v", err))
		}
		return c.Send(res.Message)
	})

	b.Handle("/sell", func(c tele.Context) error {
		asset, pct, err := parseSellArgs(c.Args())
		if err != nil {
			return c.Send("Usage: /sell <asset> [percent]")
		}
		cctx, cancel := context.WithTimeout(ctx, commandTimeout)
		defer cancel()
		res, err := deps.Trader.Sell(cctx, swap.SellRequest{Asset: asset, SellPercentage: pct, Reason: domain.SellManual})
		switch {
		case errors.Is(err, domain.ErrSellInProgress):
			return c.Send("A sell for this asset is already running.")
		case err != nil:
			return c.Send(fmt.Sprintf("Sell failed: %v", err))
		}
		return c.Send(res.Message)
	})

	b.Handle("/signal", func(c tele.Context) error {
		text := strings.TrimSpace(c.Message().Payload)
		if text == "" {
			return c.Send("Usage: /signal <message text>")
		}
		if err := deps.Inbox.Submit(ctx, domain.InboundMessage{
			Source: "command:" + strconv.FormatInt(c.Chat().ID, 10),
			ID:     strconv.Itoa(c.Message().ID),
			Text:   text,
		}); err != nil {
			return c.Send(fmt.Sprintf("Could not queue signal: %v", err))
		}
		return c.Send("Signal queued.")
	})

	b.Handle("/classify", func(c tele.Context) error {
		text := strings.TrimSpace(c.Message().Payload)
		if text == "" {
			return c.Send("Usage: /classify <message text>")
		}
		return c.Send(formatClassification(deps.Signals.Classify(text)))
	})

	b.Handle("/monitor", func(c tele.Context) error {
		mode, err := parseToggle(c.Args())
		if err != nil {
			return c.Send("Usage: /monitor on | /monitor off | /monitor status")
		}
		switch mode {
		case "on":
			deps.Settings.SetAutoSell(true)
			return c.Send("Auto-sell enabled.")
		case "off":
			deps.Settings.SetAutoSell(false)
			return c.Send("Auto-sell disabled. Positions are still monitored.")
		default:
			if deps.Settings.Snapshot().AutoSell {
				return c.Send("Auto-sell status: ON")
			}
			return c.Send("Auto-sell status: OFF")
		}
	})

	b.Handle("/alerts", func(c tele.Context) error {
		chat := c.Chat()
		if chat == nil {
			return c.Send("Unable to detect chat")
		}

		mode, err := parseToggle(c.Args())
		if err != nil {
			return c.Send("Usage: /alerts on | /alerts off | /alerts status")
		}

		switch mode {
		case "on":
			if notifier.Subscribe(chat.ID) {
				return c.Send("Trade alerts enabled for this chat.")
			}
			return c.Send("Trade alerts are already enabled for this chat.")
		case "off":
			if notifier.Unsubscribe(chat.ID) {
				return c.Send("Trade alerts disabled for this chat.")
			}
			return c.Send("Trade alerts are already disabled for this chat.")
		default:
			if notifier.IsSubscribed(chat.ID) {
				return c.Send("Alerts status: ON")
			}
			return c.Send("Alerts status: OFF")
		}
	})

	go func() {
		<-ctx.Done()
		b.Stop()
	}()
	log.Info().Str("channel", channel).Msg("Telegram bot started")
	go b.Start()
	return notifier, nil
}

func isSignalChannel(chat *tele.Chat, channel string) bool {
	if chat == nil {
		return false
	}
	if channel == "" {
		return true
	}
	if strings.EqualFold(chat.Username, channel) {
		return true
	}
	return strconv.FormatInt(chat.ID, 10) == channel
}

func parseSellArgs(args []string) (string, float64, error) {
	if len(args) == 0 || len(args) > 2 {
		return "", 0, errors.New("expected asset and optional percent")
	}
	asset := strings.TrimSpace(args[0])
	if asset == "" {
		return "", 0, errors.New("missing asset")
	}
	pct := 100.0
	if len(args) == 2 {
		v, err := strconv.ParseFloat(strings.TrimSuffix(args[1], "%"), 64)
		if err != nil || !domain.PositiveAmount(v) || v > 100 {
			return "", 0, errors.New("percent must be in (0, 100]")
		}
		pct = v
	}
	return asset, pct, nil
}

func formatStatus(s domain.Settings, positions int) string {
	autoSell := "OFF"
	if s.AutoSell {
		autoSell = "ON"
	}
	return fmt.Sprintf(
		"Mode: %s\nAuto-sell: %s\nProfit target: %.2fx\nStop loss: %.0f%%\nSell: %.0f%%\nOpen positions: %d",
		s.Mode, autoSell, s.ProfitTarget, s.StopLossPercent, s.SellPercentage, positions,
	)
}

func formatPortfolio(p domain.Portfolio) string {
	lines := []string{
		fmt.Sprintf("Portfolio [%s]", p.Mode),
		fmt.Sprintf("SOL: %.4f ($%.2f)", p.SOLBalance, p.BalanceUSD),
	}
	if len(p.Positions) == 0 {
		lines = append(lines, "No open positions.")
	}
	for _, v := range p.Positions {
		lines = append(lines, fmt.Sprintf("%s  %.2f @ %s  value %.4f SOL  %s",
			domain.ShortMint(v.Asset), v.Amount, service.FormatPrice(v.CurrentPrice), v.ValueSOL, service.FormatProfit(v.ProfitRatio)))
	}
	lines = append(lines, fmt.Sprintf("Total: %.4f SOL", p.TotalSOL))
	return strings.Join(lines, "\n")
}

func formatClassification(s domain.TradeSignal) string {
	lines := []string{"Classification: " + string(s.Classification)}
	if s.Token != "" {
		lines = append(lines, "Token: "+s.Token)
	}
	if s.Address != "" {
		lines = append(lines, "Address: "+s.Address)
	}
	for _, b := range s.Bands {
		lines = append(lines, fmt.Sprintf("Entry band: %.0f-%.0f", b.Low, b.High))
	}
	for _, l := range s.Links {
		lines = append(lines, "Link: "+l)
	}
	return strings.Join(lines, "\n")
}
