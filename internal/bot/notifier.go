package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"degen-autotrader/internal/domain"
	"degen-autotrader/internal/events"
	"degen-autotrader/internal/service"
)

type messageSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Notifier pushes trade notifications to the configured chat and to chats
// that opted in with /alerts on.
type Notifier struct {
	sender      messageSender
	defaultChat int64

	mu          sync.RWMutex
	subscribers map[int64]struct{}
}

func NewNotifier(sender messageSender, defaultChat int64) *Notifier {
	return &Notifier{
		sender:      sender,
		defaultChat: defaultChat,
		subscribers: make(map[int64]struct{}),
	}
}

func (n *Notifier) Subscribe(chatID int64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, exists := n.subscribers[chatID]; exists {
		return false
	}
	n.subscribers[chatID] = struct{}{}
	return true
}

func (n *Notifier) Unsubscribe(chatID int64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, exists := n.subscribers[chatID]; !exists {
		return false
	}
	delete(n.subscribers, chatID)
	return true
}

func (n *Notifier) IsSubscribed(chatID int64) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()

	_, exists := n.subscribers[chatID]
	return exists
}

func (n *Notifier) SubscriberCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subscribers)
}

// Notify sends text to every recipient. Failures are logged and never returned.
func (n *Notifier) Notify(text string) {
	if n == nil || n.sender == nil || strings.TrimSpace(text) == "" {
		return
	}
	for _, chatID := range n.recipients() {
		if _, err := n.sender.Send(&tele.Chat{ID: chatID}, text); err != nil {
			log.Warn().Err(err).Int64("chat", chatID).Msg("failed to send notification")
		}
	}
}

// Run forwards notifiable bus events until ctx is done.
func (n *Notifier) Run(ctx context.Context, bus *events.Bus) {
	ch, cancel := bus.Subscribe(128)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if text := formatNotification(ev); text != "" {
				n.Notify(text)
			}
		}
	}
}

func (n *Notifier) recipients() []int64 {
	n.mu.RLock()
	defer n.mu.RUnlock()

	chatIDs := make([]int64, 0, len(n.subscribers)+1)
	if n.defaultChat != 0 {
		chatIDs = append(chatIDs, n.defaultChat)
	}
	for chatID := range n.subscribers {
		if chatID != n.defaultChat {
			chatIDs = append(chatIDs, chatID)
		}
	}
	sort.Slice(chatIDs, func(i, j int) bool { return chatIDs[i] < chatIDs[j] })
	return chatIDs
}

// formatNotification returns the text for events worth a push, "" otherwise.
func formatNotification(ev events.Event) string {
	switch ev.Kind {
	case events.KindSwap:
		if ev.Swap == nil {
			return ""
		}
		r := ev.Swap
		asset := domain.ShortMint(r.Asset)
		switch {
		case r.Status == domain.SwapSuccess && r.Side == domain.SideBuy:
			return fmt.Sprintf("Bought %s for %.4f SOL [%s]", asset, r.InputAmount, r.Mode)
		case r.Status == domain.SwapSuccess && r.Side == domain.SideSell:
			return fmt.Sprintf("Sold %s with profit %s [%s]", asset, service.FormatProfit(r.ProfitRatio), r.Mode)
		case r.Status == domain.SwapError:
			return fmt.Sprintf("Failed to %s %s: %s", r.Side, asset, r.State)
		}
	case events.KindDeferred:
		return ev.Message
	}
	return ""
}

func parseToggle(args []string) (string, error) {
	if len(args) == 0 {
		return "status", nil
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "on":
		return "on", nil
	case "off":
		return "off", nil
	case "status":
		return "status", nil
	default:
		return "", fmt.Errorf("invalid mode")
	}
}
