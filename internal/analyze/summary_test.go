package analyze

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasnim.dev/costlens/internal/cost"
)

func TestComposeSummary(t *testing.T) {
	s := seriesOf(100, 150, 80, 120)
	trend := &Trend{Direction: DirectionIncreasing}
	anomalies := []Anomaly{{ID: "dev-001-20260802"}}
	forecast := &Forecast{TotalCost: 700}

	sum := ComposeSummary(s, trend, anomalies, forecast)
	require.NotNil(t, sum)

	assert.InDelta(t, 450.0, sum.TotalCost, 1e-9)
	assert.InDelta(t, 112.5, sum.AverageDaily, 1e-9)
	assert.InDelta(t, 150.0, sum.PeakCost, 1e-9)
	assert.True(t, sum.PeakDate.Equal(time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)))
	assert.InDelta(t, 80.0, sum.TroughCost, 1e-9)
	assert.True(t, sum.TroughDate.Equal(time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, DirectionIncreasing, sum.Direction)
	assert.Equal(t, 1, sum.AnomalyCount)
	assert.InDelta(t, 700.0, sum.ForecastedTotal, 1e-9)
	assert.False(t, sum.SyntheticData)
}

func TestComposeSummary_MissingInputs(t *testing.T) {
	sum := ComposeSummary(nil, nil, nil, nil)
	require.NotNil(t, sum)
	assert.Zero(t, sum.TotalCost)
	assert.Zero(t, sum.AnomalyCount)
	assert.Empty(t, sum.Direction)
}

func TestComposeSummary_SyntheticFlagPropagates(t *testing.T) {
	s := cost.SyntheticSeries(
		time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 7, 0, 0, 0, 0, time.UTC),
		"USD",
	)
	sum := ComposeSummary(s, nil, nil, nil)
	assert.True(t, sum.SyntheticData)
}
