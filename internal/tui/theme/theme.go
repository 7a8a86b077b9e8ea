package theme

import (
	"image/color"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/table"
	"charm.land/lipgloss/v2"
)

// Colors
var (
	Primary   = lipgloss.Color("#33A8FF")
	Secondary = lipgloss.Color("#163047")
	Muted     = lipgloss.Color("#6B7280")
	Success   = lipgloss.Color("#10B981")
	Warning   = lipgloss.Color("#F59E0B")
	Error     = lipgloss.Color("#EF4444")
)

// Shared styles
var (
	HeaderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(Muted).
			Padding(0, 1)

	DashboardStyle = lipgloss.NewStyle().
			Padding(1, 2)

	HelpStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Padding(1, 0, 0, 0)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)
)

// SeverityColor maps anomaly severities to theme colors.
func SeverityColor(severity string) color.Color {
	switch severity {
	case "critical":
		return Error
	case "high":
		return Warning
	case "medium":
		return Primary
	case "low":
		return Muted
	default:
		return Muted
	}
}

// RenderSeverity renders a severity label with a colored bullet.
func RenderSeverity(severity string) string {
	c := SeverityColor(severity)
	bullet := lipgloss.NewStyle().Foreground(c).Render("●")
	return bullet + " " + severity
}

// StepColor maps pipeline step statuses to theme colors.
func StepColor(status string) color.Color {
	switch status {
	case "ok":
		return Success
	case "partial":
		return Warning
	case "failed":
		return Error
	case "skipped":
		return Muted
	default:
		return Muted
	}
}

// RenderStepStatus renders a step status with a colored bullet.
func RenderStepStatus(status string) string {
	c := StepColor(status)
	bullet := lipgloss.NewStyle().Foreground(c).Render("●")
	return bullet + " " + status
}

// DefaultTableStyles returns styled table styles using theme colors.
func DefaultTableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Muted).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	return s
}

// SpinnerStyle returns a spinner configured with the primary color.
func SpinnerStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(Primary)
}

// NewSpinner returns a new spinner with the theme style.
func NewSpinner() spinner.Model {
	return spinner.New(
		spinner.WithSpinner(spinner.MiniDot),
		spinner.WithStyle(SpinnerStyle()),
	)
}
