package cost

import "time"

// syntheticBase is the weekday cost of a substituted series. Weekends
// dip to 60% so the shape still looks like a workload, but the values
// are a fixed deterministic pattern, never random.
const syntheticBase = 100.0

// SyntheticSeries builds a clearly-flagged substitute series for the
// window. It is only used when the billing API is unreachable and
// fallback is enabled; Provenance distinguishes it from real data for
// every downstream consumer.
func SyntheticSeries(start, end time.Time, currency string) *CostSeries {
	start, end = Day(start), Day(end)
	if currency == "" {
		currency = "USD"
	}

	var points []CostPoint
	var total float64
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		c := syntheticBase
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			c = syntheticBase * 0.6
		}
		points = append(points, CostPoint{Date: d, Cost: c, Currency: currency})
		total += c
	}

	return &CostSeries{
		Points:     points,
		Start:      start,
		End:        end,
		Total:      total,
		Currency:   currency,
		Provenance: ProvenanceSynthetic,
	}
}
