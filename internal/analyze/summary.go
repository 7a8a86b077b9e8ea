package analyze

import (
	"time"

	"tasnim.dev/costlens/internal/cost"
)

// Summary is the top-level rollup of one analysis window.
type Summary struct {
	WindowStart     time.Time `json:"windowStart"`
	WindowEnd       time.Time `json:"windowEnd"`
	TotalCost       float64   `json:"totalCost"`
	AverageDaily    float64   `json:"averageDaily"`
	PeakDate        time.Time `json:"peakDate"`
	PeakCost        float64   `json:"peakCost"`
	TroughDate      time.Time `json:"troughDate"`
	TroughCost      float64   `json:"troughCost"`
	Currency        string    `json:"currency"`
	Direction       Direction `json:"direction"`
	AnomalyCount    int       `json:"anomalyCount"`
	ForecastedTotal float64   `json:"forecastedTotal"`
	SyntheticData   bool      `json:"syntheticData"`
}

// ComposeSummary folds the pipeline outputs into one consistent
// top-level object. Missing inputs (failed or skipped steps) simply
// leave their fields zeroed.
func ComposeSummary(series *cost.CostSeries, trend *Trend, anomalies []Anomaly, forecast *Forecast) *Summary {
	s := &Summary{AnomalyCount: len(anomalies)}

	if series != nil && series.Len() > 0 {
		s.WindowStart = series.Start
		s.WindowEnd = series.End
		s.TotalCost = series.Total
		s.AverageDaily = series.Total / float64(series.Len())
		s.Currency = series.Currency
		s.SyntheticData = series.Synthetic()

		peak, trough := series.Points[0], series.Points[0]
		for _, p := range series.Points[1:] {
			if p.Cost > peak.Cost {
				peak = p
			}
			if p.Cost < trough.Cost {
				trough = p
			}
		}
		s.PeakDate, s.PeakCost = peak.Date, peak.Cost
		s.TroughDate, s.TroughCost = trough.Date, trough.Cost
	}

	if trend != nil {
		s.Direction = trend.Direction
	}
	if forecast != nil {
		s.ForecastedTotal = forecast.TotalCost
	}

	return s
}
