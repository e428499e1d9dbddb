package tui

import (
	"fmt"
	"strings"

	"degen-autotrader/internal/domain"
	"degen-autotrader/internal/events"
	"degen-autotrader/internal/service"

	"github.com/charmbracelet/lipgloss"
)

func profitStyle(ratio float64) lipgloss.Style {
	switch {
	case ratio > 1:
		return ProfitUpStyle
	case ratio > 0 && ratio < 1:
		return ProfitDownStyle
	}
	return ProfitFlatStyle
}

// FormatPosition renders a priced position as a single line.
func FormatPosition(v domain.PositionView) string {
	return fmt.Sprintf("%-15s %14.2f  %12s  %10.4f SOL  %s",
		domain.ShortMint(v.Asset),
		v.Amount,
		service.FormatPrice(v.CurrentPrice),
		v.ValueSOL,
		profitStyle(v.ProfitRatio).Render(service.FormatProfit(v.ProfitRatio)),
	)
}

// FormatSignal renders a classified signal as a single line.
func FormatSignal(s domain.TradeSignal) string {
	style := NeutralStyle
	switch s.Classification {
	case domain.ClassConfidentBuy:
		style = ConfidentStyle
	case domain.ClassRiskyBuy:
		style = RiskyStyle
	case domain.ClassDeferredBuy:
		style = DeferredStyle
	}

	token := s.Token
	if token == "" {
		token = "-"
	}
	asset := domain.ShortMint(s.Address)
	if asset == "" {
		asset = "-"
	}
	var bands []string
	for _, b := range s.Bands {
		bands = append(bands, fmt.Sprintf("%.0f-%.0f", b.Low, b.High))
	}
	return fmt.Sprintf("%-14s %-10s %-15s %s",
		style.Render(string(s.Classification)),
		token,
		asset,
		strings.Join(bands, ","),
	)
}

// FormatEvent renders a bus event as one activity-log line, "" for events not worth showing.
func FormatEvent(ev events.Event) string {
	switch ev.Kind {
	case events.KindLog, events.KindDeferred:
		return ev.Message
	case events.KindError:
		return ErrorStyle.Render(fmt.Sprintf("%s %s: %s", ev.Message, domain.ShortMint(ev.Asset), ev.Error))
	case events.KindSignal:
		if ev.Signal != nil {
			return "signal " + string(ev.Signal.Classification) + " " + domain.ShortMint(ev.Signal.Address)
		}
	case events.KindSwap:
		if ev.Swap != nil {
			return FormatSwap(*ev.Swap)
		}
	}
	return ""
}

// FormatSwap renders a swap result as a single line.
func FormatSwap(r domain.SwapResult) string {
	status := ProfitFlatStyle
	switch r.Status {
	case domain.SwapSuccess:
		status = ProfitUpStyle
	case domain.SwapError:
		status = ProfitDownStyle
	}
	line := fmt.Sprintf("%s %-4s %-15s %s",
		status.Render(fmt.Sprintf("%-7s", r.Status)),
		r.Side,
		domain.ShortMint(r.Asset),
		r.State,
	)
	if r.Message != "" {
		line += "  " + r.Message
	}
	return line
}

// RenderHeatMap renders a colored grid of positions shaded by profit ratio.
func RenderHeatMap(positions []domain.PositionView, width int) string {
	if len(positions) == 0 {
		return SubtextStyle.Render("No open positions")
	}

	cellWidth := 10
	cols := width / cellWidth
	if cols < 1 {
		cols = 1
	}

	var rows []string
	var row []string
	for i, p := range positions {
		bg := HeatNeutral
		switch {
		case p.ProfitRatio >= 1.1:
			bg = HeatGreen
		case p.ProfitRatio > 0 && p.ProfitRatio <= 0.9:
			bg = HeatRed
		}

		label := p.Asset
		if len(label) > cellWidth-2 {
			label = label[:cellWidth-2]
		}
		cell := lipgloss.NewStyle().
			Background(bg).
			Foreground(lipgloss.Color("#000000")).
			Bold(true).
			Width(cellWidth - 1).
			Align(lipgloss.Center).
			Render(label)

		row = append(row, cell)
		if (i+1)%cols == 0 || i == len(positions)-1 {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
		}
	}

	return strings.Join(rows, "\n")
}
