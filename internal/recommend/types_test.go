package recommend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasnim.dev/costlens/internal/cost"
)

func dailySeries(start time.Time, costs ...float64) *cost.CostSeries {
	points := make([]cost.CostPoint, len(costs))
	var total float64
	for i, c := range costs {
		points[i] = cost.CostPoint{Date: start.AddDate(0, 0, i), Cost: c, Currency: "USD"}
		total += c
	}
	return &cost.CostSeries{
		Points:     points,
		Start:      start,
		End:        start.AddDate(0, 0, len(costs)-1),
		Total:      total,
		Currency:   "USD",
		Provenance: cost.ProvenanceReal,
	}
}

func TestFillFromSeries(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	// Five active days out of ten.
	s := dailySeries(start, 10, 0, 10, 0, 10, 0, 10, 0, 10, 0)

	var f VMFacts
	f.FillFromSeries(s)

	assert.Equal(t, 10, f.WindowDays)
	assert.Equal(t, 5, f.ActiveDays)
	assert.InDelta(t, 50.0, f.UtilizationPct, 1e-9)
	assert.InDelta(t, 150.0, f.MonthlyCost, 1e-9, "50 over 10 days scales to 150 per 30 days")

	require.Len(t, f.Months, 1)
	assert.Equal(t, "2026-08", f.Months[0].Month)
	assert.InDelta(t, 50.0, f.Months[0].Cost, 1e-9)
	assert.Equal(t, 10, f.Months[0].ObservedDays)
}

func TestFillFromSeries_SpansMonths(t *testing.T) {
	start := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	s := dailySeries(start, 5, 5, 5, 5) // Jul 30-31, Aug 1-2

	var f VMFacts
	f.FillFromSeries(s)

	require.Len(t, f.Months, 2)
	assert.Equal(t, "2026-07", f.Months[0].Month)
	assert.Equal(t, 2, f.Months[0].ObservedDays)
	assert.Equal(t, "2026-08", f.Months[1].Month)
	assert.Equal(t, 2, f.Months[1].ObservedDays)
}

func TestFillFromSeries_EmptySeries(t *testing.T) {
	var f VMFacts
	f.FillFromSeries(nil)
	assert.Zero(t, f.WindowDays)
	assert.Zero(t, f.UtilizationPct)
}

func TestSummarize(t *testing.T) {
	recs := []Recommendation{
		{Type: TypeDeleteUnused, Priority: PriorityHigh, Status: StatusOpen, PotentialMonthlySavings: 60, PotentialAnnualSavings: 720},
		{Type: TypeDeleteUnused, Priority: PriorityLow, Status: StatusOpen, PotentialMonthlySavings: 10, PotentialAnnualSavings: 120},
		{Type: TypeReservedCapacity, Priority: PriorityHigh, Status: StatusOpen, PotentialMonthlySavings: 80, PotentialAnnualSavings: 960},
	}

	s := Summarize(recs)
	assert.Equal(t, 3, s.Total)
	assert.InDelta(t, 150.0, s.TotalMonthlySavings, 1e-9)
	assert.InDelta(t, 1800.0, s.TotalAnnualSavings, 1e-9)
	assert.Equal(t, 2, s.ByType[TypeDeleteUnused])
	assert.Equal(t, 1, s.ByType[TypeReservedCapacity])
	assert.Equal(t, 2, s.ByPriority[PriorityHigh])
	assert.Equal(t, 1, s.ByPriority[PriorityLow])
	assert.Equal(t, 3, s.ByStatus[StatusOpen])
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.Total)
	assert.Zero(t, s.TotalMonthlySavings)
	assert.NotNil(t, s.ByType)
}
