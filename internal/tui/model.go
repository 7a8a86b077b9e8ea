package tui

import (
	"context"
	"fmt"
	"time"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/table"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/guptarohit/asciigraph"

	"tasnim.dev/costlens/internal/config"
	"tasnim.dev/costlens/internal/engine"
	"tasnim.dev/costlens/internal/tui/theme"
	"tasnim.dev/costlens/internal/utils"
)

// Runner is the analysis pipeline the dashboard drives.
type Runner interface {
	Run(ctx context.Context, start, end time.Time) (*engine.Report, error)
}

// Messages
type reportMsg struct{ report *engine.Report }
type errMsg struct{ err error }

// Model holds the dashboard state.
type Model struct {
	runner    Runner
	cfg       *config.Config
	profile   string
	accountID string

	report  *engine.Report
	err     error
	loading bool
	spinner spinner.Model
	table   table.Model
	width   int
	height  int

	// windowOffset shifts the analysis window back by whole windows;
	// 0 is the most recent.
	windowOffset int

	// drillRec is the selected recommendation index shown in detail,
	// -1 when the list view is active.
	drillRec int
}

// NewModel creates a new dashboard model.
func NewModel(runner Runner, cfg *config.Config, profile, accountID string) Model {
	columns := []table.Column{
		{Title: "Pri", Width: 4},
		{Title: "Type", Width: 22},
		{Title: "Resource", Width: 30},
		{Title: "Save/mo", Width: 12},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows([]table.Row{}),
		table.WithFocused(true),
		table.WithHeight(8),
		table.WithWidth(80),
	)
	t.SetStyles(theme.DefaultTableStyles())

	return Model{
		runner:    runner,
		cfg:       cfg,
		profile:   profile,
		accountID: accountID,
		loading:   true,
		spinner:   theme.NewSpinner(),
		table:     t,
		width:     80,
		height:    24,
		drillRec:  -1,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runAnalysis())
}

func (m Model) window() (time.Time, time.Time) {
	start, end := m.cfg.Window(time.Now())
	if m.windowOffset > 0 {
		shift := -m.cfg.AnalysisDays * m.windowOffset
		start = start.AddDate(0, 0, shift)
		end = end.AddDate(0, 0, shift)
	}
	return start, end
}

func (m Model) runAnalysis() tea.Cmd {
	start, end := m.window()
	return func() tea.Msg {
		report, err := m.runner.Run(context.Background(), start, end)
		if err != nil {
			return errMsg{err: err}
		}
		return reportMsg{report: report}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			m.loading = true
			m.err = nil
			return m, tea.Batch(m.spinner.Tick, m.runAnalysis())
		case "esc":
			if m.drillRec >= 0 {
				m.drillRec = -1
				return m, nil
			}
		case "enter":
			if m.report != nil && m.drillRec < 0 && len(m.report.Recommendations) > 0 {
				m.drillRec = m.table.Cursor()
				return m, nil
			}
		case "[":
			// Previous window (cap at 12 windows back)
			if m.windowOffset < 12 {
				m.windowOffset++
				m.drillRec = -1
				m.loading = true
				m.err = nil
				return m, tea.Batch(m.spinner.Tick, m.runAnalysis())
			}
		case "]":
			if m.windowOffset > 0 {
				m.windowOffset--
				m.drillRec = -1
				m.loading = true
				m.err = nil
				return m, tea.Batch(m.spinner.Tick, m.runAnalysis())
			}
		}

	case reportMsg:
		m.report = msg.report
		m.loading = false
		m.table.SetRows(m.buildRows())
		return m, nil

	case errMsg:
		m.err = msg.err
		m.loading = false
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m = m.resizeTable()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) renderHeader() string {
	profileText := "default"
	if m.profile != "" {
		profileText = m.profile
	}
	headerParts := []string{
		titleStyle.Render("Cost Analytics"),
		"   ",
	}
	if m.accountID != "" {
		headerParts = append(headerParts,
			metricLabelStyle.Render("account: ")+profileStyle.Render(m.accountID),
			"   ",
		)
	}
	headerParts = append(headerParts,
		metricLabelStyle.Render("profile: ")+profileStyle.Render(profileText),
	)
	return lipgloss.JoinHorizontal(lipgloss.Top, headerParts...)
}

func (m Model) renderWindowHeader() string {
	start, end := m.window()
	label := start.Format("Jan 2") + " — " + end.Format("Jan 2, 2006")
	if m.windowOffset == 0 {
		label += " (current)"
	}
	return metricLabelStyle.Render("◀ "+label+" ▶") + "\n"
}

func (m Model) renderMetrics() string {
	s := m.report.Summary
	if s == nil {
		return metricLabelStyle.Render("No summary available.")
	}

	metrics := lipgloss.JoinHorizontal(
		lipgloss.Top,
		metricLabelStyle.Render("Total: ")+metricValueStyle.Render(utils.Currency(s.TotalCost, s.Currency)),
		"      ",
		metricLabelStyle.Render("Daily avg: ")+metricValueStyle.Render(utils.Currency(s.AverageDaily, s.Currency)),
		"      ",
		metricLabelStyle.Render("Trend: ")+directionStyle(s.Direction).Render(string(s.Direction)),
	)

	peaks := metricLabelStyle.Render("Peak: ") +
		metricValueStyle.Render(utils.Currency(s.PeakCost, s.Currency)) +
		metricLabelStyle.Render(" ("+s.PeakDate.Format("Jan 2")+")") +
		metricLabelStyle.Render("   Trough: ") +
		metricValueStyle.Render(utils.Currency(s.TroughCost, s.Currency)) +
		metricLabelStyle.Render(" ("+s.TroughDate.Format("Jan 2")+")")

	forecast := ""
	if m.report.Forecast != nil {
		forecast = metricLabelStyle.Render("Forecast: ") +
			forecastValueStyle.Render(utils.Currency(m.report.Forecast.TotalCost, m.report.Forecast.Currency)) +
			metricLabelStyle.Render(fmt.Sprintf("    (next %d days)", len(m.report.Forecast.Points)))
	}

	out := metrics + "\n" + peaks
	if forecast != "" {
		out += "\n" + forecast
	}
	if s.SyntheticData {
		out += "\n" + errorStyle.Render("⚠ synthetic fallback data — billing API was unreachable")
	}
	return out
}

func (m Model) View() tea.View {
	header := m.renderHeader()

	var content string
	if m.loading {
		content = dashboardStyle.Render(
			header + "\n\n" + m.spinner.View() + " Running analysis...\n",
		)
	} else if m.err != nil {
		content = dashboardStyle.Render(
			header + "\n\n" + errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) +
				"\n\n" + helpStyle.Render("Press r to retry • q to quit"),
		)
	} else if m.report == nil {
		content = dashboardStyle.Render(header + "\n\nNo data available.\n")
	} else if m.drillRec >= 0 {
		content = dashboardStyle.Render(
			headerStyle.Render(header) + "\n\n" +
				m.renderWindowHeader() +
				m.buildRecDetail() +
				helpStyle.Render("Esc back • [ ] window • q quit"),
		)
	} else {
		content = dashboardStyle.Render(
			headerStyle.Render(header) + "\n\n" +
				m.renderWindowHeader() +
				m.renderMetrics() + "\n" +
				m.buildAnomalyView() +
				m.buildChart() +
				"\n" + metricLabelStyle.Render("Recommendations") + "\n" + m.table.View() + "\n" +
				m.buildStepStatus() +
				helpStyle.Render("Enter detail • [ ] window • r refresh • q quit"),
		)
	}

	v := tea.NewView(content)
	v.AltScreen = true
	return v
}

func (m Model) buildAnomalyView() string {
	if m.report == nil || len(m.report.Anomalies) == 0 {
		return ""
	}

	view := "\n" + anomalyHeaderStyle.Render("▲ Anomalies") + "\n"
	for _, a := range m.report.Anomalies {
		view += "  " + theme.RenderSeverity(string(a.Severity)) +
			anomalyStyle.Render(fmt.Sprintf("  %s  %s", a.DetectedDate.Format("2006-01-02"), a.Description)) + "\n"
	}
	return view
}

func (m Model) buildStepStatus() string {
	if m.report == nil || len(m.report.Steps) == 0 {
		return ""
	}
	line := ""
	for _, name := range []string{engine.StepAggregate, engine.StepTrend, engine.StepAnomaly, engine.StepForecast, engine.StepRecommend} {
		if res, ok := m.report.Steps[name]; ok {
			line += metricLabelStyle.Render(name+" ") + theme.RenderStepStatus(string(res.Status)) + "   "
		}
	}
	return line + "\n"
}

func (m Model) resizeTable() Model {
	contentWidth := m.width - 4 // dashboardStyle Padding(1,2)
	fixed := 4 + 22 + 12 + 4    // pri+type+save columns and borders
	resourceColWidth := contentWidth - fixed
	if resourceColWidth < 20 {
		resourceColWidth = 20
	}

	m.table.SetColumns([]table.Column{
		{Title: "Pri", Width: 4},
		{Title: "Type", Width: 22},
		{Title: "Resource", Width: resourceColWidth},
		{Title: "Save/mo", Width: 12},
	})
	m.table.SetWidth(contentWidth)

	tableHeight := m.height - 21 // header+metrics+chart+help
	if tableHeight < 3 {
		tableHeight = 3
	}
	if tableHeight > 12 {
		tableHeight = 12
	}
	m.table.SetHeight(tableHeight)
	return m
}

func (m Model) buildChart() string {
	if m.report == nil || m.report.Series == nil || m.report.Series.Len() < 2 {
		return ""
	}

	values := m.report.Series.Costs()
	// Append the forecast tail so the projection reads as a
	// continuation of the observed series.
	if m.report.Forecast != nil {
		for _, p := range m.report.Forecast.Points {
			values = append(values, p.PredictedCost)
		}
	}

	chartWidth := m.width - 14 // y-axis labels and padding
	if chartWidth < 10 {
		chartWidth = 10
	}

	chart := asciigraph.Plot(values,
		asciigraph.Height(5),
		asciigraph.Width(chartWidth),
		asciigraph.Caption("Daily Cost (observed + forecast)"),
		asciigraph.Precision(2),
	)

	return "\n" + metricLabelStyle.Render(chart) + "\n"
}

func (m Model) buildRecDetail() string {
	if m.report == nil || m.drillRec >= len(m.report.Recommendations) {
		return metricLabelStyle.Render("No recommendation selected") + "\n"
	}
	rec := m.report.Recommendations[m.drillRec]

	result := titleStyle.Render(string(rec.Type)) + "  " + profileStyle.Render(rec.ResourceID) + "\n\n"
	result += metricLabelStyle.Render("Savings: ") +
		metricValueStyle.Render(utils.Currency(rec.PotentialMonthlySavings, "")+"/month") +
		metricLabelStyle.Render(fmt.Sprintf("  (%s/year, %.0f%%)  effort %s",
			utils.Currency(rec.PotentialAnnualSavings, ""), rec.SavingsPercent, rec.Effort)) + "\n\n"
	result += rec.Rationale + "\n\n"

	if len(rec.ImplementationSteps) > 0 {
		result += metricLabelStyle.Render("Steps") + "\n"
		for i, step := range rec.ImplementationSteps {
			result += fmt.Sprintf("  %d. %s\n", i+1, step)
		}
		result += "\n"
	}
	if len(rec.Risks) > 0 {
		result += anomalyHeaderStyle.Render("Risks") + "\n"
		for _, risk := range rec.Risks {
			result += "  • " + risk + "\n"
		}
		result += "\n"
	}
	return result
}

func (m Model) buildRows() []table.Row {
	if m.report == nil {
		return nil
	}
	rows := make([]table.Row, len(m.report.Recommendations))
	for i, rec := range m.report.Recommendations {
		rows[i] = table.Row{
			fmt.Sprintf("P%d", rec.Priority),
			string(rec.Type),
			rec.ResourceID,
			utils.Currency(rec.PotentialMonthlySavings, ""),
		}
	}
	return rows
}
