package recommend

// Summary is the rollup over all emitted recommendations. Every
// recommendation lands in exactly one type, one priority and one
// status bucket.
type Summary struct {
	Total               int              `json:"total"`
	TotalMonthlySavings float64          `json:"totalMonthlySavings"`
	TotalAnnualSavings  float64          `json:"totalAnnualSavings"`
	ByType              map[Type]int     `json:"byType"`
	ByPriority          map[Priority]int `json:"byPriority"`
	ByStatus            map[Status]int   `json:"byStatus"`
}

// Summarize aggregates savings and bucket counts over recommendations.
func Summarize(recs []Recommendation) Summary {
	s := Summary{
		Total:      len(recs),
		ByType:     make(map[Type]int),
		ByPriority: make(map[Priority]int),
		ByStatus:   make(map[Status]int),
	}
	for _, r := range recs {
		s.TotalMonthlySavings += r.PotentialMonthlySavings
		s.TotalAnnualSavings += r.PotentialAnnualSavings
		s.ByType[r.Type]++
		s.ByPriority[r.Priority]++
		s.ByStatus[r.Status]++
	}
	return s
}
