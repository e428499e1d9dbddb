package tui

import (
	"fmt"
	"strings"

	"degen-autotrader/internal/domain"
	"degen-autotrader/internal/events"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const signalHistoryLimit = 200

var classOptions = []domain.Classification{
	"",
	domain.ClassConfidentBuy,
	domain.ClassRiskyBuy,
	domain.ClassDeferredBuy,
	domain.ClassNeutral,
}

// SignalFeedModel lists classified signals as they arrive on the bus.
type SignalFeedModel struct {
	signals      []domain.TradeSignal
	classIdx     int
	scrollOffset int
	width        int
	height       int
}

func NewSignalFeedModel() SignalFeedModel {
	return SignalFeedModel{}
}

func (m SignalFeedModel) Init() tea.Cmd {
	return nil
}

// Update handles incoming messages.
func (m SignalFeedModel) Update(msg tea.Msg) (SignalFeedModel, tea.Cmd) {
	switch msg := msg.(type) {
	case EventMsg:
		if msg.Kind != events.KindSignal || msg.Signal == nil {
			return m, nil
		}
		m.signals = append([]domain.TradeSignal{*msg.Signal}, m.signals...)
		if len(m.signals) > signalHistoryLimit {
			m.signals = m.signals[:signalHistoryLimit]
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, DefaultKeyMap.FilterClass):
			m.classIdx = (m.classIdx + 1) % len(classOptions)
			m.scrollOffset = 0
			return m, nil

		case msg.String() == "j" || msg.String() == "down":
			if m.scrollOffset < len(m.filtered())-m.visibleRows() {
				m.scrollOffset++
			}
			return m, nil

		case msg.String() == "k" || msg.String() == "up":
			if m.scrollOffset > 0 {
				m.scrollOffset--
			}
			return m, nil
		}
	}

	return m, nil
}

// View renders the signal feed.
func (m SignalFeedModel) View() string {
	var sections []string

	sections = append(sections, HeaderStyle.Render("  Signal Feed"))
	sections = append(sections, "")
	sections = append(sections, "  "+m.renderChips())
	sections = append(sections, SubtextStyle.Render(strings.Repeat("─", max(m.width-2, 0))))

	visible := m.filtered()
	if len(visible) == 0 {
		sections = append(sections, SubtextStyle.Render("  No signals yet"))
		return strings.Join(sections, "\n")
	}

	sections = append(sections, SubtextStyle.Render(
		fmt.Sprintf("  %-14s %-10s %-15s %s", "Class", "Token", "Address", "Bands"),
	))

	maxVisible := m.visibleRows()
	end := m.scrollOffset + maxVisible
	if end > len(visible) {
		end = len(visible)
	}
	for i := m.scrollOffset; i < end; i++ {
		sections = append(sections, "  "+FormatSignal(visible[i]))
	}

	if len(visible) > maxVisible {
		sections = append(sections, SubtextStyle.Render(
			fmt.Sprintf("  Showing %d-%d of %d (j/k to scroll)", m.scrollOffset+1, end, len(visible)),
		))
	}

	sections = append(sections, "")
	sections = append(sections, SubtextStyle.Render("  [c] classification  [j/k] scroll"))

	return strings.Join(sections, "\n")
}

// SetSize updates the model dimensions.
func (m *SignalFeedModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// ClassFilter returns the active classification filter, "" for all (for testing).
func (m SignalFeedModel) ClassFilter() domain.Classification { return classOptions[m.classIdx] }

// SignalCount returns the number of signals passing the filter (for testing).
func (m SignalFeedModel) SignalCount() int { return len(m.filtered()) }

func (m SignalFeedModel) filtered() []domain.TradeSignal {
	want := classOptions[m.classIdx]
	if want == "" {
		return m.signals
	}
	out := make([]domain.TradeSignal, 0, len(m.signals))
	for _, s := range m.signals {
		if s.Classification == want {
			out = append(out, s)
		}
	}
	return out
}

func (m SignalFeedModel) renderChips() string {
	parts := []string{SubtextStyle.Render("Class: ")}
	for i, c := range classOptions {
		label := string(c)
		if label == "" {
			label = "ALL"
		}
		if i == m.classIdx {
			parts = append(parts, ActiveTabStyle.Render(label))
		} else {
			parts = append(parts, SubtextStyle.Render(label))
		}
		parts = append(parts, " ")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m SignalFeedModel) visibleRows() int {
	available := m.height - 10
	if available < 5 {
		return 5
	}
	return available
}
