package job

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"degen-autotrader/internal/domain"
	"degen-autotrader/internal/service"
)

const (
	defaultInboxSize = 256
	seenCapacity     = 4096
)

type MessageHandler interface {
	Handle(ctx context.Context, text string) (service.SignalOutcome, error)
}

// Listener serializes inbound messages through a single consumer so signals
// are handled one at a time in arrival order. Redelivered messages with the
// same source and id are dropped.
type Listener struct {
	handler MessageHandler
	inbox   chan domain.InboundMessage

	seen  map[string]struct{}
	order []string
}

func NewListener(handler MessageHandler, buffer int) *Listener {
	if buffer <= 0 {
		buffer = defaultInboxSize
	}
	return &Listener{
		handler: handler,
		inbox:   make(chan domain.InboundMessage, buffer),
		seen:    make(map[string]struct{}),
	}
}

// Submit enqueues msg, blocking while the inbox is full.
func (l *Listener) Submit(ctx context.Context, msg domain.InboundMessage) error {
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now()
	}
	select {
	case l.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Listener) Start(ctx context.Context) {
	log.Info().Int("buffer", cap(l.inbox)).Msg("signal listener starting")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("signal listener stopped")
			return
		case msg := <-l.inbox:
			l.process(ctx, msg)
		}
	}
}

func (l *Listener) process(ctx context.Context, msg domain.InboundMessage) {
	if l.duplicate(msg) {
		log.Debug().Str("source", msg.Source).Str("id", msg.ID).Msg("duplicate message ignored")
		return
	}
	out, err := l.handler.Handle(ctx, msg.Text)
	ev := log.Info()
	if err != nil {
		ev = log.Warn().Err(err)
	}
	ev.Str("source", msg.Source).
		Str("classification", string(out.Signal.Classification)).
		Str("action", string(out.Action)).
		Str("asset", domain.ShortMint(out.Signal.Address)).
		Msg("signal processed")
}

// duplicate records msg and reports whether it was already seen. Messages
// without an id are never considered duplicates.
func (l *Listener) duplicate(msg domain.InboundMessage) bool {
	if msg.ID == "" {
		return false
	}
	key := msg.Source + ":" + msg.ID
	if _, ok := l.seen[key]; ok {
		return true
	}
	l.seen[key] = struct{}{}
	l.order = append(l.order, key)
	if len(l.order) > seenCapacity {
		delete(l.seen, l.order[0])
		l.order = l.order[1:]
	}
	return false
}
