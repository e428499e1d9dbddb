package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Tab bar styles
	TabStyle       = lipgloss.NewStyle().Padding(0, 2)
	ActiveTabStyle = TabStyle.Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))
	InactiveTabStyle = TabStyle.
				Foreground(lipgloss.Color("#888888"))

	// Profit colors
	ProfitUpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	ProfitDownStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	ProfitFlatStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))

	// Classification colors
	ConfidentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")).Bold(true)
	RiskyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00")).Bold(true)
	DeferredStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00BFFF"))
	NeutralStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))

	// General styles
	HeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA"))
	SubtextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	BorderStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#555555"))
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	SpinnerColor = lipgloss.Color("#7D56F4")

	// Activity log styles
	UserMsgStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)
	EventMsgStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA"))

	// Heat map colors
	HeatGreen   = lipgloss.Color("#00FF00")
	HeatRed     = lipgloss.Color("#FF0000")
	HeatNeutral = lipgloss.Color("#555555")
)
