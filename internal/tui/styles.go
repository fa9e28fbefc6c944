package tui

import (
	"coinpulse/internal/domain"

	"github.com/charmbracelet/lipgloss"
)

var (
	primaryColor  = lipgloss.Color("#7C3AED")
	positiveColor = lipgloss.Color("#10B981")
	negativeColor = lipgloss.Color("#EF4444")
	neutralColor  = lipgloss.Color("#6B7280")
	accentColor   = lipgloss.Color("#F59E0B")
	textColor     = lipgloss.Color("#F9FAFB")
	mutedColor    = lipgloss.Color("#9CA3AF")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(mutedColor)

	rowStyle = lipgloss.NewStyle().
			Foreground(textColor)

	selectedRowStyle = lipgloss.NewStyle().
				Foreground(textColor).
				Background(lipgloss.Color("#374151"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor).
			Background(negativeColor).
			Padding(0, 1)

	staleStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	marketBarStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#374151")).
			Padding(0, 1)
)

func sentimentStyle(s domain.Sentiment) lipgloss.Style {
	switch s {
	case domain.SentimentPositive:
		return lipgloss.NewStyle().Bold(true).Foreground(positiveColor)
	case domain.SentimentNegative:
		return lipgloss.NewStyle().Bold(true).Foreground(negativeColor)
	default:
		return lipgloss.NewStyle().Foreground(neutralColor)
	}
}

func impactStyle(i domain.Impact) lipgloss.Style {
	switch i {
	case domain.ImpactHigh:
		return lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	case domain.ImpactMedium:
		return lipgloss.NewStyle().Foreground(textColor)
	default:
		return lipgloss.NewStyle().Foreground(mutedColor)
	}
}

func changeStyle(pct float64) lipgloss.Style {
	if pct >= 0 {
		return lipgloss.NewStyle().Foreground(positiveColor)
	}
	return lipgloss.NewStyle().Foreground(negativeColor)
}
