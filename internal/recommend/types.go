package recommend

import (
	"tasnim.dev/costlens/internal/cost"
)

// Type enumerates the recommendation kinds the scorer can emit.
type Type string

const (
	TypeDeleteUnused       Type = "delete-unused"
	TypeReviewStopped      Type = "review-stopped"
	TypeReservedCapacity   Type = "reserved-capacity"
	TypeFlexibleCommitment Type = "flexible-commitment"
	TypeScheduledShutdown  Type = "scheduled-shutdown"
	TypeSpotInstances      Type = "spot-instances"
	TypeDeletionCandidate  Type = "deletion-candidate"
	TypeRightsizing        Type = "rightsizing"
)

// Priority ranks urgency; 1 is most urgent.
type Priority int

const (
	PriorityHigh   Priority = 1
	PriorityMedium Priority = 2
	PriorityLow    Priority = 3
)

// Effort estimates how much work acting on a recommendation takes.
type Effort string

const (
	EffortLow    Effort = "low"
	EffortMedium Effort = "medium"
	EffortHigh   Effort = "high"
)

// Status tracks a recommendation's lifecycle. The scorer always emits
// open; downstream tooling may move them along.
type Status string

const (
	StatusOpen      Status = "open"
	StatusAccepted  Status = "accepted"
	StatusDismissed Status = "dismissed"
)

// PowerState is the coarse power state of a VM.
type PowerState string

const (
	PowerRunning     PowerState = "running"
	PowerStopped     PowerState = "stopped"
	PowerDeallocated PowerState = "deallocated"
	PowerUnknown     PowerState = "unknown"
)

// Recommendation is one quantified savings opportunity for one
// resource. The same resource can produce several, one per matching
// rule, each priced and prioritized independently.
type Recommendation struct {
	ID                      string   `json:"id"`
	Type                    Type     `json:"type"`
	Priority                Priority `json:"priority"`
	ResourceID              string   `json:"resourceId"`
	ResourceName            string   `json:"resourceName"`
	ResourceType            string   `json:"resourceType"`
	CurrentCost             float64  `json:"currentCost"`
	ProjectedCost           float64  `json:"projectedCost"`
	PotentialMonthlySavings float64  `json:"potentialMonthlySavings"`
	PotentialAnnualSavings  float64  `json:"potentialAnnualSavings"`
	SavingsPercent          float64  `json:"savingsPercent"`
	Effort                  Effort   `json:"effort"`
	Rationale               string   `json:"rationale"`
	ImplementationSteps     []string `json:"implementationSteps"`
	Risks                   []string `json:"risks"`
	Status                  Status   `json:"status"`
}

// MonthObservation is one calendar month's observed cost for a
// resource, with how many days of the month the window covered.
type MonthObservation struct {
	Month        string  `json:"month"` // 2006-01
	Cost         float64 `json:"cost"`
	ObservedDays int     `json:"observedDays"`
}

// VMFacts are the per-VM inputs the scorer evaluates.
type VMFacts struct {
	ID           string
	Name         string
	InstanceType string // e.g. t3.medium
	PowerState   PowerState

	// UtilizationPct is active-days over window-days, as a percentage.
	UtilizationPct float64
	ActiveDays     int
	WindowDays     int
	// UsageUnknown marks facts built without per-resource cost data.
	// Zero utilization then means unmeasured, not idle, and the
	// utilization rules do not apply.
	UsageUnknown bool
	// MonthlyCost is the estimated monthly running cost.
	MonthlyCost float64
	Months      []MonthObservation
}

// DiskFacts are the per-disk inputs the scorer evaluates.
type DiskFacts struct {
	ID       string
	Name     string
	SizeGB   int32
	Attached bool
	// MonthlyCost overrides the per-GB estimate when non-zero.
	MonthlyCost float64
}

// FillFromSeries derives utilization, monthly cost and per-month
// observations from a VM's daily cost series. A day counts as active
// when it incurred any cost.
func (f *VMFacts) FillFromSeries(series *cost.CostSeries) {
	if series == nil || series.Len() == 0 {
		return
	}

	f.WindowDays = series.Len()
	byMonth := make(map[string]*MonthObservation)
	var order []string
	for _, p := range series.Points {
		if p.Cost > 0 {
			f.ActiveDays++
		}
		key := p.Date.Format("2006-01")
		mo, ok := byMonth[key]
		if !ok {
			mo = &MonthObservation{Month: key}
			byMonth[key] = mo
			order = append(order, key)
		}
		mo.Cost += p.Cost
		mo.ObservedDays++
	}

	f.UtilizationPct = float64(f.ActiveDays) / float64(f.WindowDays) * 100
	f.MonthlyCost = series.Total / float64(series.Len()) * 30

	f.Months = make([]MonthObservation, 0, len(order))
	for _, key := range order {
		f.Months = append(f.Months, *byMonth[key])
	}
}
