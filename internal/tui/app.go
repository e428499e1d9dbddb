package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Tab represents a screen tab in the TUI.
type Tab int

const (
	TabDashboard Tab = iota
	TabTrade
	TabSignals
)

var tabNames = []string{"1:Portfolio", "2:Trade", "3:Signals"}

// AppModel is the root Bubble Tea model that manages tab navigation and child screens.
type AppModel struct {
	services  Services
	activeTab Tab
	dashboard DashboardModel
	trade     TradeModel
	signals   SignalFeedModel
	width     int
	height    int
	quitting  bool
}

// NewAppModel creates the root application model with all child screens.
func NewAppModel(svc Services) AppModel {
	return AppModel{
		services:  svc,
		activeTab: TabDashboard,
		dashboard: NewDashboardModel(svc),
		trade:     NewTradeModel(svc),
		signals:   NewSignalFeedModel(),
	}
}

func (m AppModel) Init() tea.Cmd {
	return tea.Batch(
		m.dashboard.Init(),
		m.trade.Init(),
		m.signals.Init(),
	)
}

// Update handles incoming messages, routing to the active tab.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.propagateSize()
		return m, nil

	case tea.KeyMsg:
		// The trade tab owns plain keystrokes while its input is focused.
		if m.activeTab != TabTrade || msg.Type == tea.KeyTab || msg.Type == tea.KeyShiftTab ||
			msg.String() == "ctrl+c" {

			switch {
			case key.Matches(msg, DefaultKeyMap.Quit):
				m.quitting = true
				return m, tea.Quit

			case key.Matches(msg, DefaultKeyMap.Tab):
				m.switchTab(Tab((int(m.activeTab) + 1) % len(tabNames)))
				return m, nil

			case key.Matches(msg, DefaultKeyMap.ShiftTab):
				next := int(m.activeTab) - 1
				if next < 0 {
					next = len(tabNames) - 1
				}
				m.switchTab(Tab(next))
				return m, nil

			case msg.String() == "1":
				m.switchTab(TabDashboard)
				return m, nil
			case msg.String() == "2":
				m.switchTab(TabTrade)
				return m, nil
			case msg.String() == "3":
				m.switchTab(TabSignals)
				return m, nil
			}
		}
	}

	var cmds []tea.Cmd

	switch msg.(type) {
	case EventMsg:
		var cmd tea.Cmd
		m.dashboard, cmd = m.dashboard.Update(msg)
		cmds = append(cmds, cmd)
		m.trade, cmd = m.trade.Update(msg)
		cmds = append(cmds, cmd)
		m.signals, cmd = m.signals.Update(msg)
		cmds = append(cmds, cmd)

	case portfolioMsg, portfolioErrMsg, dashTickMsg:
		var cmd tea.Cmd
		m.dashboard, cmd = m.dashboard.Update(msg)
		cmds = append(cmds, cmd)

	case swapDoneMsg, swapErrMsg:
		var cmd tea.Cmd
		m.trade, cmd = m.trade.Update(msg)
		cmds = append(cmds, cmd)

	default:
		switch m.activeTab {
		case TabDashboard:
			var cmd tea.Cmd
			m.dashboard, cmd = m.dashboard.Update(msg)
			cmds = append(cmds, cmd)
		case TabTrade:
			var cmd tea.Cmd
			m.trade, cmd = m.trade.Update(msg)
			cmds = append(cmds, cmd)
		case TabSignals:
			var cmd tea.Cmd
			m.signals, cmd = m.signals.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

// View renders the tab bar and active screen.
func (m AppModel) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	var content string
	switch m.activeTab {
	case TabDashboard:
		content = m.dashboard.View()
	case TabTrade:
		content = m.trade.View()
	case TabSignals:
		content = m.signals.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, m.renderTabBar(), content)
}

// SetSize updates dimensions on the root model and propagates to children.
func (m *AppModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.propagateSize()
}

// ActiveTab returns the currently active tab (for testing).
func (m AppModel) ActiveTab() Tab { return m.activeTab }

func (m *AppModel) switchTab(tab Tab) {
	if tab == TabTrade && m.activeTab != TabTrade {
		m.trade.Focus()
	} else if m.activeTab == TabTrade && tab != TabTrade {
		m.trade.Blur()
	}
	m.activeTab = tab
}

func (m *AppModel) propagateSize() {
	contentHeight := m.height - 2
	m.dashboard.SetSize(m.width, contentHeight)
	m.trade.SetSize(m.width, contentHeight)
	m.signals.SetSize(m.width, contentHeight)
}

func (m AppModel) renderTabBar() string {
	var tabs []string
	for i, name := range tabNames {
		if Tab(i) == m.activeTab {
			tabs = append(tabs, ActiveTabStyle.Render(name))
		} else {
			tabs = append(tabs, InactiveTabStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}
