package cost

import "time"

// Dimension selects how a billing query is grouped.
type Dimension string

const (
	DimensionNone          Dimension = "none"
	DimensionService       Dimension = "service"
	DimensionResource      Dimension = "resource"
	DimensionResourceGroup Dimension = "resourceGroup"
)

// Provenance marks whether a series came from the billing API or was
// substituted after an upstream failure.
type Provenance string

const (
	ProvenanceReal      Provenance = "real"
	ProvenanceSynthetic Provenance = "synthetic"
)

// CostPoint is one day's observed cost.
type CostPoint struct {
	Date     time.Time `json:"date"`
	Cost     float64   `json:"cost"`
	Currency string    `json:"currency"`
}

// CostSeries is an ordered, gap-free run of daily cost points over a
// window. Not mutated after the Aggregator builds it.
type CostSeries struct {
	Points     []CostPoint `json:"points"`
	Start      time.Time   `json:"start"`
	End        time.Time   `json:"end"`
	Total      float64     `json:"total"`
	Currency   string      `json:"currency"`
	Provenance Provenance  `json:"provenance"`
}

// Len returns the number of daily points.
func (s *CostSeries) Len() int { return len(s.Points) }

// Costs returns the cost values in date order.
func (s *CostSeries) Costs() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Cost
	}
	return out
}

// Synthetic reports whether the series was substituted for real data.
func (s *CostSeries) Synthetic() bool { return s.Provenance == ProvenanceSynthetic }

// DimensionBreakdown is the cost share of one group key within a
// window. Category is set for service breakdowns only.
type DimensionBreakdown struct {
	Key            string   `json:"key"`
	Cost           float64  `json:"cost"`
	PercentOfTotal float64  `json:"percentOfTotal"`
	Category       Category `json:"category,omitempty"`
}
