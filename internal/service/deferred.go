package service

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"degen-autotrader/internal/domain"
	"degen-autotrader/internal/metrics"
)

const DefaultDeferredTTL = 24 * time.Hour

// DeferredEntry is a parked DEFERRED_BUY waiting for its market cap to enter a band.
type DeferredEntry struct {
	Asset     string             `json:"asset"`
	Signal    domain.TradeSignal `json:"signal"`
	AddedAt   time.Time          `json:"added_at"`
	ExpiresAt time.Time          `json:"expires_at"`
}

// Matches reports whether marketCap falls inside any of the entry's bands.
func (e DeferredEntry) Matches(marketCap float64) bool {
	if marketCap <= 0 {
		return false
	}
	for _, b := range e.Signal.Bands {
		if b.Contains(marketCap) {
			return true
		}
	}
	return false
}

// DeferredBook holds at most one entry per asset. A newer signal for the same
// asset replaces the older entry.
type DeferredBook struct {
	mu      sync.Mutex
	entries map[string]DeferredEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewDeferredBook(ttl time.Duration, now func() time.Time) *DeferredBook {
	if ttl <= 0 {
		ttl = DefaultDeferredTTL
	}
	if now == nil {
		now = time.Now
	}
	return &DeferredBook{entries: make(map[string]DeferredEntry), ttl: ttl, now: now}
}

// Add parks a deferred signal. Signals without an address or bands are ignored.
func (b *DeferredBook) Add(sig domain.TradeSignal) bool {
	if !sig.IsDeferred() {
		return false
	}
	now := b.now()
	b.mu.Lock()
	b.entries[sig.Address] = DeferredEntry{
		Asset:     sig.Address,
		Signal:    sig,
		AddedAt:   now,
		ExpiresAt: now.Add(b.ttl),
	}
	n := len(b.entries)
	b.mu.Unlock()

	metrics.DeferredEntries.Set(float64(n))
	return true
}

func (b *DeferredBook) Remove(asset string) {
	b.mu.Lock()
	delete(b.entries, asset)
	n := len(b.entries)
	b.mu.Unlock()
	metrics.DeferredEntries.Set(float64(n))
}

// Active drops expired entries and returns the rest, oldest first.
func (b *DeferredBook) Active() []DeferredEntry {
	now := b.now()
	b.mu.Lock()
	out := make([]DeferredEntry, 0, len(b.entries))
	for asset, e := range b.entries {
		if !now.Before(e.ExpiresAt) {
			delete(b.entries, asset)
			log.Info().Str("asset", domain.ShortMint(asset)).Msg("deferred entry expired")
			continue
		}
		out = append(out, e)
	}
	n := len(b.entries)
	b.mu.Unlock()

	metrics.DeferredEntries.Set(float64(n))
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.Before(out[j].AddedAt) })
	return out
}

func (b *DeferredBook) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
