package analyze

import (
	"fmt"
	"math"
	"time"

	"tasnim.dev/costlens/internal/cost"
)

// Severity buckets an anomaly by how far it sits from the mean.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Anomaly is one statistically or structurally unusual observation.
// Immutable once created; IDs are sequence-plus-date so detection is
// deterministic across runs over the same series.
type Anomaly struct {
	ID               string    `json:"id"`
	DetectedDate     time.Time `json:"detectedDate"`
	ExpectedCost     float64   `json:"expectedCost"`
	ActualCost       float64   `json:"actualCost"`
	DeviationPercent float64   `json:"deviationPercent"`
	// ZScore is the distance from the mean in population standard
	// deviations. Zero on structural anomalies, which have no
	// distribution to measure against.
	ZScore       float64  `json:"zScore,omitempty"`
	Severity     Severity `json:"severity"`
	Description  string   `json:"description"`
	Service      string   `json:"service,omitempty"`
	ResourceType string   `json:"resourceType,omitempty"`
}

// minAnomalyPoints is the smallest series a deviation check makes
// sense on; shorter series return no anomalies rather than erroring.
const minAnomalyPoints = 7

// AnomalyDetector flags unusual daily costs and structural cost
// concentration. Holds only configuration after construction.
type AnomalyDetector struct {
	// ThresholdPct is the |deviation from mean| beyond which a day is
	// anomalous. Strictly greater-than: a day sitting exactly on the
	// threshold is not flagged.
	ThresholdPct float64
	// ConcentrationPct is the share of total spend above which a
	// single service is flagged as a concentration risk.
	ConcentrationPct float64
}

// NewAnomalyDetector returns a detector with the default 20% deviation
// threshold and 50% concentration threshold.
func NewAnomalyDetector() *AnomalyDetector {
	return &AnomalyDetector{ThresholdPct: 20, ConcentrationPct: 50}
}

// Detect flags every point whose deviation from the series mean
// exceeds the threshold. Series under 7 points yield an empty result.
func (d *AnomalyDetector) Detect(series *cost.CostSeries) []Anomaly {
	if series == nil || series.Len() < minAnomalyPoints {
		return nil
	}

	costs := series.Costs()
	mean := meanOf(costs)
	if mean == 0 {
		return nil
	}
	stddev := stddevOf(costs, mean)

	var anomalies []Anomaly
	seq := 0
	for _, p := range series.Points {
		deviation := (p.Cost - mean) / mean * 100
		if math.Abs(deviation) <= d.ThresholdPct {
			continue
		}
		zscore := 0.0
		if stddev > 0 {
			zscore = (p.Cost - mean) / stddev
		}
		seq++
		anomalies = append(anomalies, Anomaly{
			ID:               anomalyID("dev", seq, p.Date),
			DetectedDate:     p.Date,
			ExpectedCost:     mean,
			ActualCost:       p.Cost,
			DeviationPercent: deviation,
			ZScore:           zscore,
			Severity:         classifySeverity(deviation),
			Description: fmt.Sprintf("daily cost %.2f deviates %.1f%% from the %.2f mean (%.1f stddev)",
				p.Cost, deviation, mean, zscore),
		})
	}
	return anomalies
}

// DetectConcentration flags any single service holding more than the
// concentration share of total spend. Severity is fixed at medium:
// concentration is a structural risk, not a spike.
func (d *AnomalyDetector) DetectConcentration(breakdowns []cost.DimensionBreakdown, asOf time.Time) []Anomaly {
	var anomalies []Anomaly
	seq := 0
	for _, b := range breakdowns {
		if b.PercentOfTotal <= d.ConcentrationPct {
			continue
		}
		seq++
		anomalies = append(anomalies, Anomaly{
			ID:               anomalyID("conc", seq, asOf),
			DetectedDate:     asOf,
			ActualCost:       b.Cost,
			DeviationPercent: b.PercentOfTotal,
			Severity:         SeverityMedium,
			Description: fmt.Sprintf("service %s holds %.1f%% of total spend",
				b.Key, b.PercentOfTotal),
			Service:      b.Key,
			ResourceType: "service_concentration",
		})
	}
	return anomalies
}

// DetectRecentSpike compares the mean of the last n days with the mean
// of the n days before that. Needs 2n points; nil when the change sits
// at or under the threshold.
func (d *AnomalyDetector) DetectRecentSpike(series *cost.CostSeries, n int) *Anomaly {
	if series == nil || n < 1 || series.Len() < 2*n {
		return nil
	}

	costs := series.Costs()
	recent := meanOf(costs[len(costs)-n:])
	prior := meanOf(costs[len(costs)-2*n : len(costs)-n])
	if prior == 0 {
		return nil
	}

	change := (recent - prior) / prior * 100
	if math.Abs(change) <= d.ThresholdPct {
		return nil
	}

	last := series.Points[series.Len()-1].Date
	return &Anomaly{
		ID:               anomalyID("spike", 1, last),
		DetectedDate:     last,
		ExpectedCost:     prior,
		ActualCost:       recent,
		DeviationPercent: change,
		Severity:         classifySeverity(change),
		Description: fmt.Sprintf("mean cost over last %d days changed %.1f%% vs the prior %d days",
			n, change, n),
	}
}

// classifySeverity partitions |deviationPercent| into non-overlapping
// bands. Boundaries belong to the upper band: exactly 50.0 is high,
// not medium.
func classifySeverity(deviationPercent float64) Severity {
	abs := math.Abs(deviationPercent)
	switch {
	case abs >= 100:
		return SeverityCritical
	case abs >= 50:
		return SeverityHigh
	case abs >= 30:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func anomalyID(kind string, seq int, date time.Time) string {
	return fmt.Sprintf("%s-%03d-%s", kind, seq, date.Format("20060102"))
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddevOf is the population standard deviation around a known mean.
func stddevOf(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}
