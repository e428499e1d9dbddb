package tui

import (
	"context"
	"fmt"

	"degen-autotrader/internal/events"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the dashboard on the current terminal and feeds it bus events
// until the user quits or ctx is done.
func Run(ctx context.Context, svc Services, bus *events.Bus) error {
	p := tea.NewProgram(NewAppModel(svc), tea.WithAltScreen(), tea.WithContext(ctx))

	ch, cancel := bus.Subscribe(256)
	defer cancel()
	go forwardEvents(ctx, p, ch)

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

type sender interface {
	Send(msg tea.Msg)
}

func forwardEvents(ctx context.Context, p sender, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			p.Send(EventMsg(ev))
		}
	}
}
