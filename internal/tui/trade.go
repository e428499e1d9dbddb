package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"degen-autotrader/internal/domain"
	"degen-autotrader/internal/events"
	"degen-autotrader/internal/swap"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const activityLimit = 500

// Trade screen message types.
type swapDoneMsg domain.SwapResult
type swapErrMsg struct{ err error }

type activityLine struct {
	Manual bool
	Text   string
	Time   time.Time
}

// TradeModel shows the live activity log and accepts "<asset> <amount>" buys.
type TradeModel struct {
	services Services
	lines    []activityLine
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	waiting  bool
	err      error
	width    int
	height   int
	ready    bool
}

// NewTradeModel creates a new trade model.
func NewTradeModel(svc Services) TradeModel {
	ti := textinput.New()
	ti.Placeholder = "<asset> <amount SOL>"
	ti.CharLimit = 200
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(SpinnerColor)

	return TradeModel{
		services: svc,
		input:    ti,
		spinner:  sp,
	}
}

func (m TradeModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles incoming messages.
func (m TradeModel) Update(msg tea.Msg) (TradeModel, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case EventMsg:
		if text := FormatEvent(events.Event(msg)); text != "" {
			m.appendLine(activityLine{Text: text, Time: msg.Time})
		}
		return m, nil

	case swapDoneMsg:
		m.waiting = false
		m.err = nil
		return m, nil

	case swapErrMsg:
		m.waiting = false
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyEnter && !m.waiting {
			text := strings.TrimSpace(m.input.Value())
			if text != "" {
				intent, err := swap.ParseIntent(text)
				if err != nil {
					m.err = err
					return m, nil
				}
				m.appendLine(activityLine{Manual: true, Text: text, Time: time.Now()})
				m.input.SetValue("")
				m.waiting = true
				m.err = nil
				return m, tea.Batch(
					m.swapCmd(intent),
					m.spinner.Tick,
				)
			}
		}

	case spinner.TickMsg:
		if m.waiting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	if !m.waiting {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View renders the trade screen.
func (m TradeModel) View() string {
	var sections []string

	sections = append(sections, HeaderStyle.Render("  Activity"))
	sections = append(sections, SubtextStyle.Render(strings.Repeat("─", max(m.width-2, 0))))

	if !m.ready {
		m.initViewport()
	}
	sections = append(sections, m.viewport.View())

	sections = append(sections, SubtextStyle.Render(strings.Repeat("─", max(m.width-2, 0))))

	switch {
	case m.services.Trader == nil:
		sections = append(sections, SubtextStyle.Render("  Swap engine not available."))
	case m.waiting:
		sections = append(sections, fmt.Sprintf("  %s Swapping...", m.spinner.View()))
	default:
		if m.err != nil {
			sections = append(sections, ErrorStyle.Render(fmt.Sprintf("  Error: %v", m.err)))
		}
		sections = append(sections, "  "+m.input.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetSize updates the model dimensions.
func (m *TradeModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.input.Width = w - 6
	m.ready = false
}

// Focus gives focus to the text input.
func (m *TradeModel) Focus() {
	m.input.Focus()
}

// Blur removes focus from the text input.
func (m *TradeModel) Blur() {
	m.input.Blur()
}

// IsWaiting returns whether a swap is running (for testing).
func (m TradeModel) IsWaiting() bool { return m.waiting }

// LineCount returns the number of activity lines (for testing).
func (m TradeModel) LineCount() int { return len(m.lines) }

func (m *TradeModel) appendLine(l activityLine) {
	m.lines = append(m.lines, l)
	if len(m.lines) > activityLimit {
		m.lines = m.lines[len(m.lines)-activityLimit:]
	}
	if m.ready {
		m.viewport.SetContent(m.renderLines())
		m.viewport.GotoBottom()
	}
}

func (m *TradeModel) initViewport() {
	vpHeight := m.height - 6
	if vpHeight < 3 {
		vpHeight = 3
	}
	vpWidth := m.width - 2
	if vpWidth < 10 {
		vpWidth = 10
	}
	m.viewport = viewport.New(vpWidth, vpHeight)
	m.viewport.SetContent(m.renderLines())
	m.viewport.GotoBottom()
	m.ready = true
}

func (m TradeModel) renderLines() string {
	if len(m.lines) == 0 {
		return SubtextStyle.Render("  Waiting for activity. Type an asset and amount below to buy.")
	}

	out := make([]string, 0, len(m.lines))
	for _, l := range m.lines {
		ts := SubtextStyle.Render(l.Time.Format("15:04:05"))
		if l.Manual {
			out = append(out, fmt.Sprintf("  %s  %s %s", ts, UserMsgStyle.Render("You:"), l.Text))
			continue
		}
		out = append(out, fmt.Sprintf("  %s  %s", ts, EventMsgStyle.Render(l.Text)))
	}
	return strings.Join(out, "\n")
}

func (m TradeModel) swapCmd(intent domain.SwapIntent) tea.Cmd {
	return func() tea.Msg {
		if m.services.Trader == nil {
			return swapErrMsg{err: fmt.Errorf("swap engine not available")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		res, err := m.services.Trader.Swap(ctx, intent)
		if err != nil {
			return swapErrMsg{err: err}
		}
		return swapDoneMsg(res)
	}
}
