package recommend

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"tasnim.dev/costlens/internal/analyze"
)

// ScorerConfig holds the heuristic cutoffs. All values are business
// defaults carried over as-is; none were derived statistically.
type ScorerConfig struct {
	// Utilization tiers, in percent.
	HighUtilizationPct      float64 // reserved capacity at or above
	MidUtilizationPct       float64 // flexible commitment band floor
	LowUtilizationPct       float64 // scheduled shutdown band floor
	SpotUtilizationPct      float64 // spot candidates below
	DeleteUtilizationPct    float64 // deletion candidates below
	RightsizeUtilizationPct float64 // rightsizing below, on oversized types

	// Savings fractions per rule.
	ReservedSavingsFrac   float64
	FlexibleSavingsFrac   float64
	ShutdownSavingsFrac   float64
	SpotSavingsFrac       float64
	RightsizeSavingsFrac  float64
	StoppedVMResidualFrac float64

	// Cost cutoffs, monthly.
	FlexibleMinMonthlyCost float64
	DiskHighCost           float64
	DiskMediumCost         float64
	// DeleteMaxActiveDays caps active days for deletion candidates.
	DeleteMaxActiveDays int

	// Monthly trend classification.
	TrendCutoffPct    float64
	CompleteMonthDays int

	// DiskGBMonthRate prices unattached disks when no observed cost
	// exists.
	DiskGBMonthRate float64
}

// DefaultScorerConfig returns the stock heuristics.
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		HighUtilizationPct:      70,
		MidUtilizationPct:       50,
		LowUtilizationPct:       20,
		SpotUtilizationPct:      40,
		DeleteUtilizationPct:    10,
		RightsizeUtilizationPct: 60,
		ReservedSavingsFrac:     0.40,
		FlexibleSavingsFrac:     0.25,
		ShutdownSavingsFrac:     0.50,
		SpotSavingsFrac:         0.60,
		RightsizeSavingsFrac:    0.30,
		StoppedVMResidualFrac:   0.10,
		FlexibleMinMonthlyCost:  50,
		DiskHighCost:            50,
		DiskMediumCost:          20,
		DeleteMaxActiveDays:     5,
		TrendCutoffPct:          10,
		CompleteMonthDays:       25,
		DiskGBMonthRate:         0.10,
	}
}

// Scorer turns per-resource facts into prioritized savings
// recommendations. Rules evaluate independently; one resource can
// match several.
type Scorer struct {
	cfg ScorerConfig
	log *logrus.Logger
}

// NewScorer creates a scorer with the given config.
func NewScorer(cfg ScorerConfig, log *logrus.Logger) *Scorer {
	return &Scorer{cfg: cfg, log: log}
}

// ScoreVM evaluates every VM rule against one VM's facts. The result
// is sorted by priority ascending (1 first).
func (s *Scorer) ScoreVM(vm VMFacts) []Recommendation {
	var recs []Recommendation
	trend, trendPct := s.MonthlyTrend(vm.Months)

	if vm.PowerState == PowerStopped || vm.PowerState == PowerDeallocated {
		residual := vm.MonthlyCost * s.cfg.StoppedVMResidualFrac
		recs = append(recs, s.vmRec(vm, TypeReviewStopped, PriorityMedium, EffortLow, residual,
			fmt.Sprintf("VM has been %s; residual disk cost still accrues — review whether it can be deleted", vm.PowerState),
			[]string{"Confirm the VM is no longer needed", "Snapshot disks if data must be kept", "Delete the VM and its disks"},
			[]string{"Data on attached disks is lost once deleted"}))
	}

	// The utilization tiers only read observed usage. A VM scored
	// without cost data sits at zero utilization because nothing was
	// measured, not because it is idle.
	if !vm.UsageUnknown {
		util := vm.UtilizationPct
		switch {
		case util >= s.cfg.HighUtilizationPct:
			if trend != analyze.DirectionDecreasing {
				recs = append(recs, s.vmRec(vm, TypeReservedCapacity, PriorityHigh, EffortMedium,
					vm.MonthlyCost*s.cfg.ReservedSavingsFrac,
					fmt.Sprintf("steady %.0f%% utilization with a %s cost trend (%+.1f%%) suits a reserved commitment", util, trend, trendPct),
					[]string{"Review the last 12 months of usage", "Purchase a 1-year reserved commitment for this instance size"},
					[]string{"Commitment is paid regardless of future usage"}))
			}
		case util >= s.cfg.MidUtilizationPct:
			if vm.MonthlyCost > s.cfg.FlexibleMinMonthlyCost {
				recs = append(recs, s.vmRec(vm, TypeFlexibleCommitment, PriorityMedium, EffortMedium,
					vm.MonthlyCost*s.cfg.FlexibleSavingsFrac,
					fmt.Sprintf("moderate %.0f%% utilization at %.2f/month fits a flexible savings plan", util, vm.MonthlyCost),
					[]string{"Compare compute savings plan rates for this family", "Commit at the observed baseline usage"},
					[]string{"Savings shrink if usage drops below the commitment"}))
			}
		case util >= s.cfg.LowUtilizationPct:
			idleCost := vm.MonthlyCost * (1 - util/100)
			recs = append(recs, s.vmRec(vm, TypeScheduledShutdown, PriorityMedium, EffortLow,
				idleCost*s.cfg.ShutdownSavingsFrac,
				fmt.Sprintf("VM is idle %.0f%% of the window; a stop/start schedule recovers part of the idle cost", 100-util),
				[]string{"Identify working hours from the usage pattern", "Add an automated stop/start schedule"},
				[]string{"Workloads outside the schedule are unavailable"}))
		}

		if util < s.cfg.SpotUtilizationPct && isGeneralPurpose(vm.InstanceType) {
			recs = append(recs, s.vmRec(vm, TypeSpotInstances, PriorityLow, EffortHigh,
				vm.MonthlyCost*s.cfg.SpotSavingsFrac,
				fmt.Sprintf("low %.0f%% utilization on a general-purpose size tolerates interruption", util),
				[]string{"Verify the workload checkpoints or is stateless", "Move to spot/interruptible capacity"},
				[]string{"Instances can be reclaimed with short notice"}))
		}

		if util < s.cfg.DeleteUtilizationPct && vm.ActiveDays < s.cfg.DeleteMaxActiveDays {
			recs = append(recs, s.vmRec(vm, TypeDeletionCandidate, PriorityHigh, EffortLow,
				vm.MonthlyCost,
				fmt.Sprintf("only %d active days in the window at %.0f%% utilization — likely abandoned", vm.ActiveDays, util),
				[]string{"Confirm with the owning team", "Snapshot anything worth keeping", "Delete the VM"},
				[]string{"Deletion is irreversible"}))
		}

		if isOversized(vm.InstanceType) && util < s.cfg.RightsizeUtilizationPct {
			recs = append(recs, s.vmRec(vm, TypeRightsizing, PriorityLow, EffortMedium,
				vm.MonthlyCost*s.cfg.RightsizeSavingsFrac,
				fmt.Sprintf("oversized %s runs at %.0f%% utilization; a smaller size covers the load", vm.InstanceType, util),
				[]string{"Check CPU and memory headroom", "Resize one step down and observe"},
				[]string{"Undersizing causes throttling under peak load"}))
		}
	}

	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Priority < recs[j].Priority })
	s.log.WithFields(logrus.Fields{
		"vm":          vm.ID,
		"utilization": vm.UtilizationPct,
		"matched":     len(recs),
	}).Debug("scored VM")
	return recs
}

// ScoreDisk evaluates the disk rules. An unattached disk produces a
// delete-unused recommendation worth its full monthly cost.
func (s *Scorer) ScoreDisk(d DiskFacts) []Recommendation {
	if d.Attached {
		return nil
	}

	monthly := d.MonthlyCost
	if monthly == 0 {
		monthly = float64(d.SizeGB) * s.cfg.DiskGBMonthRate
	}

	priority := PriorityLow
	switch {
	case monthly > s.cfg.DiskHighCost:
		priority = PriorityHigh
	case monthly > s.cfg.DiskMediumCost:
		priority = PriorityMedium
	}

	rec := Recommendation{
		ID:                      recID(d.ID, TypeDeleteUnused),
		Type:                    TypeDeleteUnused,
		Priority:                priority,
		ResourceID:              d.ID,
		ResourceName:            d.Name,
		ResourceType:            "disk",
		CurrentCost:             monthly,
		ProjectedCost:           0,
		PotentialMonthlySavings: monthly,
		PotentialAnnualSavings:  monthly * 12,
		SavingsPercent:          100,
		Effort:                  EffortLow,
		Rationale:               fmt.Sprintf("disk of %d GB is not attached to any VM and costs %.2f/month", d.SizeGB, monthly),
		ImplementationSteps:     []string{"Confirm no VM depends on the disk", "Snapshot it if the data matters", "Delete the disk"},
		Risks:                   []string{"Data is unrecoverable after deletion without a snapshot"},
		Status:                  StatusOpen,
	}
	return []Recommendation{rec}
}

// MonthlyTrend classifies a VM's month-over-month direction from its
// two most recent complete months. A month is complete at 25+ observed
// days. Fewer than two complete months reads stable at 0% by rule, not
// for lack of an answer.
func (s *Scorer) MonthlyTrend(months []MonthObservation) (analyze.Direction, float64) {
	var complete []MonthObservation
	for _, m := range months {
		if m.ObservedDays >= s.cfg.CompleteMonthDays {
			complete = append(complete, m)
		}
	}
	if len(complete) < 2 {
		return analyze.DirectionStable, 0
	}

	sort.Slice(complete, func(i, j int) bool { return complete[i].Month < complete[j].Month })
	prev := complete[len(complete)-2]
	latest := complete[len(complete)-1]
	if prev.Cost == 0 {
		return analyze.DirectionStable, 0
	}

	change := (latest.Cost - prev.Cost) / prev.Cost * 100
	switch {
	case change > s.cfg.TrendCutoffPct:
		return analyze.DirectionIncreasing, change
	case change < -s.cfg.TrendCutoffPct:
		return analyze.DirectionDecreasing, change
	default:
		return analyze.DirectionStable, change
	}
}

func (s *Scorer) vmRec(vm VMFacts, t Type, p Priority, effort Effort, monthlySavings float64, rationale string, steps, risks []string) Recommendation {
	if monthlySavings < 0 {
		monthlySavings = 0
	}
	savingsPct := 0.0
	if vm.MonthlyCost > 0 {
		savingsPct = monthlySavings / vm.MonthlyCost * 100
	}
	return Recommendation{
		ID:                      recID(vm.ID, t),
		Type:                    t,
		Priority:                p,
		ResourceID:              vm.ID,
		ResourceName:            vm.Name,
		ResourceType:            "vm",
		CurrentCost:             vm.MonthlyCost,
		ProjectedCost:           vm.MonthlyCost - monthlySavings,
		PotentialMonthlySavings: monthlySavings,
		PotentialAnnualSavings:  monthlySavings * 12,
		SavingsPercent:          savingsPct,
		Effort:                  effort,
		Rationale:               rationale,
		ImplementationSteps:     steps,
		Risks:                   risks,
		Status:                  StatusOpen,
	}
}

// recID is deterministic: one resource can match a rule at most once
// per run, so resource + type is collision-free.
func recID(resourceID string, t Type) string {
	return fmt.Sprintf("%s/%s", resourceID, t)
}

// generalPurposeFamilies are the burstable and general-purpose size
// families considered interruption-tolerant candidates.
var generalPurposeFamilies = map[string]bool{
	"t2": true, "t3": true, "t3a": true, "t4g": true,
	"m4": true, "m5": true, "m5a": true, "m6i": true, "m7i": true,
}

func instanceFamily(instanceType string) string {
	if i := strings.Index(instanceType, "."); i > 0 {
		return instanceType[:i]
	}
	return instanceType
}

func isGeneralPurpose(instanceType string) bool {
	return generalPurposeFamilies[instanceFamily(instanceType)]
}

// oversizedSuffixes mark sizes large enough that sub-60% utilization
// justifies stepping down.
var oversizedSuffixes = []string{"2xlarge", "4xlarge", "8xlarge", "12xlarge", "16xlarge", "24xlarge", "metal"}

func isOversized(instanceType string) bool {
	i := strings.Index(instanceType, ".")
	if i < 0 {
		return false
	}
	size := instanceType[i+1:]
	for _, s := range oversizedSuffixes {
		if size == s {
			return true
		}
	}
	return false
}
