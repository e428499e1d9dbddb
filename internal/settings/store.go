package settings

import (
	"fmt"
	"sync"

	"degen-autotrader/internal/domain"
)

// Store holds the runtime trading settings. Readers always get a copy.
type Store struct {
	mu       sync.RWMutex
	current  domain.Settings
	watchers []func(domain.Settings)
}

func NewStore(initial domain.Settings) *Store {
	return &Store{current: initial}
}

func Defaults() domain.Settings {
	return domain.Settings{
		ProfitTarget:    2.0,
		StopLossPercent: 50,
		SellPercentage:  100,
		Mode:            domain.ModeDemo,
		AutoSell:        true,
		ConfidentAmount: 0.2,
		RiskyAmount:     0.1,
		DeferredAmount:  0.15,
	}
}

func (s *Store) Snapshot() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Store) Mode() domain.Mode {
	return s.Snapshot().Mode
}

// Update applies fn to a copy, validates it and swaps it in.
func (s *Store) Update(fn func(*domain.Settings)) (domain.Settings, error) {
	s.mu.Lock()
	next := s.current
	fn(&next)
	if err := Validate(next); err != nil {
		s.mu.Unlock()
		return s.Snapshot(), err
	}
	s.current = next
	watchers := append([]func(domain.Settings){}, s.watchers...)
	s.mu.Unlock()

	for _, w := range watchers {
		w(next)
	}
	return next, nil
}

// OnChange registers fn to be called after every successful update.
func (s *Store) OnChange(fn func(domain.Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, fn)
}

func (s *Store) SetAutoSell(enabled bool) domain.Settings {
	next, _ := s.Update(func(cur *domain.Settings) { cur.AutoSell = enabled })
	return next
}

func Validate(v domain.Settings) error {
	switch {
	case v.ProfitTarget <= 0:
		return fmt.Errorf("profit target must be positive, got %v", v.ProfitTarget)
	case v.StopLossPercent < 0 || v.StopLossPercent >= 100:
		return fmt.Errorf("stop loss must be in [0, 100), got %v", v.StopLossPercent)
	case v.SellPercentage <= 0 || v.SellPercentage > 100:
		return fmt.Errorf("sell percentage must be in (0, 100], got %v", v.SellPercentage)
	case v.Mode != domain.ModeDemo && v.Mode != domain.ModeLive:
		return fmt.Errorf("unknown mode %q", v.Mode)
	case v.ConfidentAmount < 0 || v.RiskyAmount < 0 || v.DeferredAmount < 0:
		return fmt.Errorf("buy amounts must not be negative")
	}
	return nil
}
