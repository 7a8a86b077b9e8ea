package tui

import (
	"charm.land/lipgloss/v2"

	"tasnim.dev/costlens/internal/analyze"
	"tasnim.dev/costlens/internal/tui/theme"
)

var (
	// Dashboard styles that compose from the shared theme
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Primary)

	headerStyle = theme.HeaderStyle

	metricLabelStyle = theme.MutedStyle

	metricValueStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(theme.Success)

	forecastValueStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(theme.Warning)

	profileStyle = lipgloss.NewStyle().
			Foreground(theme.Secondary)

	helpStyle = theme.HelpStyle

	errorStyle = theme.ErrorStyle

	anomalyHeaderStyle = lipgloss.NewStyle().
				Foreground(theme.Error).
				Bold(true)

	anomalyStyle = lipgloss.NewStyle().
			Foreground(theme.Warning)

	dashboardStyle = theme.DashboardStyle
)

// directionStyle colors a trend direction: rising spend draws the eye,
// falling spend reads as good news.
func directionStyle(d analyze.Direction) lipgloss.Style {
	switch d {
	case analyze.DirectionIncreasing:
		return lipgloss.NewStyle().Bold(true).Foreground(theme.Error)
	case analyze.DirectionDecreasing:
		return lipgloss.NewStyle().Bold(true).Foreground(theme.Success)
	default:
		return lipgloss.NewStyle().Bold(true).Foreground(theme.Muted)
	}
}
