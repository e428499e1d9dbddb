package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"degen-autotrader/internal/domain"
	"degen-autotrader/internal/events"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// EventMsg carries one bus event into the program.
type EventMsg events.Event

// Dashboard message types.
type portfolioMsg domain.Portfolio
type portfolioErrMsg struct{ err error }
type dashTickMsg time.Time

const recentSwapLimit = 8

// DashboardModel is the Bubble Tea model for the portfolio screen.
type DashboardModel struct {
	services  Services
	portfolio domain.Portfolio
	swaps     []domain.SwapResult
	loading   bool
	err       error
	width     int
	height    int
}

// NewDashboardModel creates a new dashboard model.
func NewDashboardModel(svc Services) DashboardModel {
	return DashboardModel{
		services: svc,
		loading:  true,
	}
}

// Init fires the initial portfolio fetch.
func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(
		m.fetchPortfolioCmd(),
		m.tickCmd(),
	)
}

// Update handles incoming messages.
func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case portfolioMsg:
		m.portfolio = domain.Portfolio(msg)
		m.loading = false
		m.err = nil
		return m, nil

	case portfolioErrMsg:
		m.err = msg.err
		m.loading = false
		return m, nil

	case dashTickMsg:
		return m, tea.Batch(
			m.fetchPortfolioCmd(),
			m.tickCmd(),
		)

	case EventMsg:
		return m.applyEvent(events.Event(msg))

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, DefaultKeyMap.Refresh):
			return m, m.fetchPortfolioCmd()
		case key.Matches(msg, DefaultKeyMap.ToggleAutoSell):
			if m.services.Settings != nil {
				m.services.Settings.SetAutoSell(!m.services.Settings.Snapshot().AutoSell)
			}
			return m, nil
		}
	}

	return m, nil
}

func (m DashboardModel) applyEvent(ev events.Event) (DashboardModel, tea.Cmd) {
	switch ev.Kind {
	case events.KindPosition:
		if ev.Position == nil {
			return m, nil
		}
		positions := make([]domain.PositionView, len(m.portfolio.Positions))
		copy(positions, m.portfolio.Positions)
		for i := range positions {
			if positions[i].Asset == ev.Position.Asset {
				positions[i] = *ev.Position
			}
		}
		m.portfolio.Positions = positions
		return m, nil

	case events.KindSwap:
		if ev.Swap == nil {
			return m, nil
		}
		m.swaps = append([]domain.SwapResult{*ev.Swap}, m.swaps...)
		if len(m.swaps) > recentSwapLimit {
			m.swaps = m.swaps[:recentSwapLimit]
		}
		return m, nil

	case events.KindPortfolioChanged:
		return m, m.fetchPortfolioCmd()
	}
	return m, nil
}

// View renders the dashboard.
func (m DashboardModel) View() string {
	if m.loading {
		return SubtextStyle.Render("Loading portfolio...")
	}
	if m.err != nil {
		return ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}

	tableWidth := m.width*2/3 - 2
	if tableWidth < 40 {
		tableWidth = 40
	}
	heatWidth := m.width - tableWidth - 4
	if heatWidth < 15 {
		heatWidth = 15
	}

	tableBox := BorderStyle.Width(tableWidth).Render(m.renderPositions())
	heatBox := BorderStyle.Width(heatWidth).Render(HeaderStyle.Render("  Heat Map") + "\n" + RenderHeatMap(m.portfolio.Positions, heatWidth))
	topRow := lipgloss.JoinHorizontal(lipgloss.Top, tableBox, heatBox)

	swapBox := BorderStyle.Width(m.width - 2).Render(m.renderSwaps())

	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), topRow, swapBox)
}

// SetSize updates the model dimensions.
func (m *DashboardModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Portfolio returns the current portfolio (for testing).
func (m DashboardModel) Portfolio() domain.Portfolio { return m.portfolio }

// Swaps returns the recent swaps, newest first (for testing).
func (m DashboardModel) Swaps() []domain.SwapResult { return m.swaps }

func (m DashboardModel) renderHeader() string {
	p := m.portfolio
	line := fmt.Sprintf("  [%s]  SOL %.4f ($%.2f)  Total %.4f SOL", p.Mode, p.SOLBalance, p.BalanceUSD, p.TotalSOL)
	if m.services.Settings != nil {
		s := m.services.Settings.Snapshot()
		autoSell := "off"
		if s.AutoSell {
			autoSell = "on"
		}
		line += fmt.Sprintf("  target %.2fx  stop %.0f%%  auto-sell %s", s.ProfitTarget, s.StopLossPercent, autoSell)
	}
	return HeaderStyle.Render(line)
}

func (m DashboardModel) renderPositions() string {
	lines := []string{
		HeaderStyle.Render("  Positions"),
		SubtextStyle.Render("  Asset                   Amount         Price         Value      Profit"),
		SubtextStyle.Render(strings.Repeat("─", 72)),
	}
	for _, v := range m.portfolio.Positions {
		lines = append(lines, "  "+FormatPosition(v))
	}
	if len(m.portfolio.Positions) == 0 {
		lines = append(lines, SubtextStyle.Render("  No open positions"))
	}
	return strings.Join(lines, "\n")
}

func (m DashboardModel) renderSwaps() string {
	lines := []string{HeaderStyle.Render("  Recent Swaps")}
	for _, r := range m.swaps {
		lines = append(lines, "  "+FormatSwap(r))
	}
	if len(m.swaps) == 0 {
		lines = append(lines, SubtextStyle.Render("  No swaps yet"))
	}
	lines = append(lines, "", SubtextStyle.Render("  [a] auto-sell  [R] refresh"))
	return strings.Join(lines, "\n")
}

func (m DashboardModel) fetchPortfolioCmd() tea.Cmd {
	return func() tea.Msg {
		if m.services.Portfolio == nil {
			return portfolioErrMsg{err: fmt.Errorf("portfolio service not available")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return portfolioMsg(m.services.Portfolio.Snapshot(ctx))
	}
}

func (m DashboardModel) tickCmd() tea.Cmd {
	return tea.Tick(30*time.Second, func(t time.Time) tea.Msg {
		return dashTickMsg(t)
	})
}
