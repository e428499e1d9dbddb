package ledger

import "degen-autotrader/internal/domain"

// Books keeps the simulated account apart from the live wallet's holdings.
// Readers get the book for the mode in force when they ask.
type Books struct {
	demo *Ledger
	live *Ledger
	mode func() domain.Mode
}

func NewBooks(demo, live *Ledger, mode func() domain.Mode) *Books {
	if mode == nil {
		mode = func() domain.Mode { return domain.ModeDemo }
	}
	return &Books{demo: demo, live: live, mode: mode}
}

func (b *Books) For(m domain.Mode) *Ledger {
	if m == domain.ModeLive {
		return b.live
	}
	return b.demo
}

func (b *Books) Current() *Ledger {
	return b.For(b.mode())
}

// Positions lists the holdings of the current mode only.
func (b *Books) Positions() []domain.Position {
	return b.Current().Positions()
}
