package analyze

import (
	"tasnim.dev/costlens/internal/cost"
)

// Period is the horizon a trend was computed over.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// Direction classifies which way a cost series is moving.
type Direction string

const (
	DirectionIncreasing Direction = "increasing"
	DirectionDecreasing Direction = "decreasing"
	DirectionStable     Direction = "stable"
)

// MovingAverages holds the trailing simple means. A nil field means the
// series was too short for that window; it is omitted, not zero.
type MovingAverages struct {
	SevenDay  *float64 `json:"sevenDay,omitempty"`
	ThirtyDay *float64 `json:"thirtyDay,omitempty"`
}

// Trend is the directional read of one cost series. Built fresh per
// analysis run and never mutated afterwards.
type Trend struct {
	Period              Period         `json:"period"`
	Direction           Direction      `json:"direction"`
	ChangePercent       float64        `json:"changePercent"`
	ChangeAmount        float64        `json:"changeAmount"`
	MovingAverages      MovingAverages `json:"movingAverages"`
	WeekOverWeekChange  *float64       `json:"weekOverWeekChange,omitempty"`
	ProjectedNextPeriod *float64       `json:"projectedNextPeriod,omitempty"`
}

// TrendAnalyzer computes trends from cost series. It holds only
// configuration after construction.
type TrendAnalyzer struct {
	// StabilityDeadbandPct is the |changePercent| below which the
	// direction reads stable. A design heuristic, not a statistical
	// derivation; override via config if 5 doesn't suit the account.
	StabilityDeadbandPct float64
}

// NewTrendAnalyzer returns an analyzer with the default 5% deadband.
func NewTrendAnalyzer() *TrendAnalyzer {
	return &TrendAnalyzer{StabilityDeadbandPct: 5}
}

// Analyze computes the trend for a series. Returns nil when the series
// has fewer than two points; that is an expected steady state, not an
// error.
func (a *TrendAnalyzer) Analyze(series *cost.CostSeries, period Period) *Trend {
	if series == nil || series.Len() < 2 {
		return nil
	}

	costs := series.Costs()
	first, last := costs[0], costs[len(costs)-1]

	changeAmount := last - first
	changePercent := 0.0
	if first != 0 {
		changePercent = changeAmount / first * 100
	}

	t := &Trend{
		Period:        period,
		Direction:     a.direction(changePercent),
		ChangePercent: changePercent,
		ChangeAmount:  changeAmount,
	}

	if avg, ok := movingAverage(costs, 7); ok {
		t.MovingAverages.SevenDay = &avg
	}
	if avg, ok := movingAverage(costs, 30); ok {
		t.MovingAverages.ThirtyDay = &avg
	}

	if wow, ok := weekOverWeek(costs); ok {
		t.WeekOverWeekChange = &wow
	}

	if proj, ok := projectNext(costs); ok {
		t.ProjectedNextPeriod = &proj
	}

	return t
}

func (a *TrendAnalyzer) direction(changePercent float64) Direction {
	switch {
	case changePercent >= a.StabilityDeadbandPct:
		return DirectionIncreasing
	case changePercent <= -a.StabilityDeadbandPct:
		return DirectionDecreasing
	default:
		return DirectionStable
	}
}

// movingAverage is the simple mean of the last n values. Reports false
// when fewer than n values exist.
func movingAverage(costs []float64, n int) (float64, bool) {
	if len(costs) < n {
		return 0, false
	}
	var sum float64
	for _, c := range costs[len(costs)-n:] {
		sum += c
	}
	return sum / float64(n), true
}

// weekOverWeek compares the sum of the last 7 values against the 7
// before them, as a percentage change. Needs at least 14 values.
func weekOverWeek(costs []float64) (float64, bool) {
	if len(costs) < 14 {
		return 0, false
	}
	var recent, prior float64
	for _, c := range costs[len(costs)-7:] {
		recent += c
	}
	for _, c := range costs[len(costs)-14 : len(costs)-7] {
		prior += c
	}
	if prior == 0 {
		return 0, true
	}
	return (recent - prior) / prior * 100, true
}

// projectNext fits ordinary least squares over at most the last 30
// values and extrapolates one step. Needs at least 5 values; the
// projection is clamped at zero.
func projectNext(costs []float64) (float64, bool) {
	if len(costs) < 5 {
		return 0, false
	}
	if len(costs) > 30 {
		costs = costs[len(costs)-30:]
	}

	n := float64(len(costs))
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range costs {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, false
	}
	slope := (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n

	proj := intercept + slope*n
	if proj < 0 {
		proj = 0
	}
	return proj, true
}
