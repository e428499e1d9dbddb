package events

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"degen-autotrader/internal/domain"
)

type Kind string

const (
	KindLog              Kind = "log"
	KindSignal           Kind = "signal"
	KindSwap             Kind = "swap"
	KindPosition         Kind = "position"
	KindPortfolioChanged Kind = "portfolio_changed"
	KindDeferred         Kind = "deferred"
	KindError            Kind = "error"
)

type Event struct {
	ID       string               `json:"id"`
	Kind     Kind                 `json:"kind"`
	Time     time.Time            `json:"time"`
	Message  string               `json:"message,omitempty"`
	Asset    string               `json:"asset,omitempty"`
	Signal   *domain.TradeSignal  `json:"signal,omitempty"`
	Swap     *domain.SwapResult   `json:"swap,omitempty"`
	Position *domain.PositionView `json:"position,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// Bus fans events out to subscribers. Publishing never blocks: a subscriber
// whose buffer is full misses the event.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
	now  func() time.Time
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event), now: time.Now}
}

// Subscribe returns a channel of events and a func that cancels the subscription.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Time.IsZero() {
		e.Time = b.now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- e:
		default:
			log.Debug().Int("subscriber", id).Str("kind", string(e.Kind)).Msg("event dropped, subscriber buffer full")
		}
	}
}

func (b *Bus) Logf(format string, args ...any) {
	b.Publish(Event{Kind: KindLog, Message: fmt.Sprintf(format, args...)})
}

// Error logs a handled failure and publishes it.
func (b *Bus) Error(op, asset string, err error) {
	ev := log.Error().Err(err).Str("op", op)
	if asset != "" {
		ev = ev.Str("asset", domain.ShortMint(asset))
	}
	ev.Msg("operation failed")
	b.Publish(Event{Kind: KindError, Asset: asset, Message: op, Error: err.Error()})
}

func (b *Bus) Swap(r domain.SwapResult) {
	b.Publish(Event{Kind: KindSwap, Asset: r.Asset, Message: r.Message, Swap: &r})
	if r.Status == domain.SwapSuccess {
		b.Publish(Event{Kind: KindPortfolioChanged, Asset: r.Asset})
	}
}

func (b *Bus) Position(v domain.PositionView) {
	b.Publish(Event{Kind: KindPosition, Asset: v.Asset, Position: &v})
}

func (b *Bus) Signal(s domain.TradeSignal) {
	b.Publish(Event{Kind: KindSignal, Asset: s.Address, Message: string(s.Classification), Signal: &s})
}
