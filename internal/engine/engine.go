// Package engine wires the aggregator, analyzers and scorer into one
// pipeline run. Steps are independent: a failure in one is recorded on
// the report and never discards work another step already finished.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"tasnim.dev/costlens/internal/analyze"
	"tasnim.dev/costlens/internal/aws/inventory"
	"tasnim.dev/costlens/internal/cost"
	"tasnim.dev/costlens/internal/recommend"
	"tasnim.dev/costlens/internal/store"
)

// Fetcher is the aggregator surface the engine drives.
type Fetcher interface {
	FetchSeries(ctx context.Context, start, end time.Time, dim cost.Dimension) (*cost.CostSeries, []cost.DimensionBreakdown, error)
	FetchResourceSeries(ctx context.Context, start, end time.Time) (map[string]*cost.CostSeries, error)
}

// Inventory is the resource inventory surface the engine drives.
// Listing carries each resource's state, so no per-resource lookups
// are needed here.
type Inventory interface {
	ListResources(ctx context.Context) ([]inventory.Resource, error)
}

// StepStatus records how one pipeline step ended.
type StepStatus string

const (
	StepOK      StepStatus = "ok"
	StepPartial StepStatus = "partial"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

// StepResult is the status of one step, with the failure reason when
// it did not complete cleanly.
type StepResult struct {
	Status StepStatus `json:"status"`
	Error  string     `json:"error,omitempty"`
}

// Pipeline step names as recorded on the report.
const (
	StepAggregate = "aggregate"
	StepTrend     = "trend"
	StepAnomaly   = "anomaly"
	StepForecast  = "forecast"
	StepRecommend = "recommend"
	StepSummary   = "summary"
)

// Report is the composed result of one analysis run. It is a plain
// value object and round-trips losslessly through JSON.
type Report struct {
	RunID       string    `json:"runId"`
	GeneratedAt time.Time `json:"generatedAt"`
	WindowStart time.Time `json:"windowStart"`
	WindowEnd   time.Time `json:"windowEnd"`

	Series     *cost.CostSeries          `json:"series,omitempty"`
	Breakdowns []cost.DimensionBreakdown `json:"breakdowns,omitempty"`

	Trends          []analyze.Trend            `json:"trends,omitempty"`
	Anomalies       []analyze.Anomaly          `json:"anomalies,omitempty"`
	Forecast        *analyze.Forecast          `json:"forecast,omitempty"`
	Recommendations []recommend.Recommendation `json:"recommendations,omitempty"`
	Rollup          recommend.Summary          `json:"rollup"`
	Summary         *analyze.Summary           `json:"summary,omitempty"`
	Steps           map[string]StepResult      `json:"steps"`
}

// Config tunes the engine.
type Config struct {
	ForecastDays   int
	SpikeWindow    int
	ForecastSeed   int64
	GroupDimension cost.Dimension
}

// DefaultConfig returns the stock engine settings.
func DefaultConfig() Config {
	return Config{
		ForecastDays:   7,
		SpikeWindow:    7,
		ForecastSeed:   1,
		GroupDimension: cost.DimensionService,
	}
}

// Engine runs the full analysis pipeline.
type Engine struct {
	fetcher  Fetcher
	inv      Inventory
	trends   *analyze.TrendAnalyzer
	detector *analyze.AnomalyDetector
	forecast *analyze.ForecastGenerator
	scorer   *recommend.Scorer
	archive  *store.Store // optional
	cfg      Config
	log      *logrus.Logger
}

// New creates an engine. archive may be nil to disable the history
// store.
func New(fetcher Fetcher, inv Inventory, archive *store.Store, cfg Config, log *logrus.Logger) *Engine {
	return &Engine{
		fetcher:  fetcher,
		inv:      inv,
		trends:   analyze.NewTrendAnalyzer(),
		detector: analyze.NewAnomalyDetector(),
		forecast: analyze.NewForecastGenerator(cfg.ForecastSeed),
		scorer:   recommend.NewScorer(recommend.DefaultScorerConfig(), log),
		archive:  archive,
		cfg:      cfg,
		log:      log,
	}
}

// SetAnalyzers swaps in preconfigured analysis components, for callers
// that override the default thresholds.
func (e *Engine) SetAnalyzers(t *analyze.TrendAnalyzer, d *analyze.AnomalyDetector, f *analyze.ForecastGenerator, s *recommend.Scorer) {
	if t != nil {
		e.trends = t
	}
	if d != nil {
		e.detector = d
	}
	if f != nil {
		e.forecast = f
	}
	if s != nil {
		e.scorer = s
	}
}

// Run executes the pipeline over the window. The returned error is
// non-nil only for an invalid window or a canceled context; step
// failures land in Report.Steps instead.
func (e *Engine) Run(ctx context.Context, start, end time.Time) (*Report, error) {
	start, end = cost.Day(start), cost.Day(end)
	if end.Before(start) {
		return nil, fmt.Errorf("invalid window: end %s before start %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	report := &Report{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		WindowStart: start,
		WindowEnd:   end,
		Steps:       make(map[string]StepResult),
	}

	series, breakdowns := e.runAggregate(ctx, report, start, end)
	e.runTrend(report, series)
	e.runAnomaly(report, series, breakdowns)
	e.runForecast(report, series)
	e.runRecommend(ctx, report, start, end)

	report.Summary = analyze.ComposeSummary(series, firstTrend(report.Trends), report.Anomalies, report.Forecast)
	report.Steps[StepSummary] = StepResult{Status: StepOK}

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func (e *Engine) runAggregate(ctx context.Context, report *Report, start, end time.Time) (*cost.CostSeries, []cost.DimensionBreakdown) {
	series, breakdowns, err := e.fetcher.FetchSeries(ctx, start, end, e.cfg.GroupDimension)
	if err != nil {
		e.log.WithError(err).Error("cost aggregation failed")
		report.Steps[StepAggregate] = StepResult{Status: StepFailed, Error: err.Error()}
		return nil, nil
	}

	status := StepOK
	if series.Synthetic() {
		// Substituted data: the run continues but is flagged so no
		// consumer mistakes it for real observations.
		status = StepPartial
	}
	report.Steps[StepAggregate] = StepResult{Status: status}
	report.Series = series
	report.Breakdowns = breakdowns

	if e.archive != nil && !series.Synthetic() {
		if err := e.archive.SaveSeries(series); err != nil {
			e.log.WithError(err).Warn("archiving series failed")
		}
	}
	return series, breakdowns
}

func (e *Engine) runTrend(report *Report, series *cost.CostSeries) {
	if series == nil {
		report.Steps[StepTrend] = StepResult{Status: StepSkipped, Error: "no series"}
		return
	}

	if t := e.trends.Analyze(series, analyze.PeriodDaily); t != nil {
		report.Trends = append(report.Trends, *t)
	}
	if weekly := bucketSeries(series, 7); weekly != nil {
		if t := e.trends.Analyze(weekly, analyze.PeriodWeekly); t != nil {
			report.Trends = append(report.Trends, *t)
		}
	}
	if monthly := bucketSeries(series, 30); monthly != nil {
		if t := e.trends.Analyze(monthly, analyze.PeriodMonthly); t != nil {
			report.Trends = append(report.Trends, *t)
		}
	}

	if len(report.Trends) == 0 {
		// Under two points: an expected steady state, not an error.
		e.log.Debug("series too short for trend analysis")
	}
	report.Steps[StepTrend] = StepResult{Status: StepOK}
}

func (e *Engine) runAnomaly(report *Report, series *cost.CostSeries, breakdowns []cost.DimensionBreakdown) {
	if series == nil {
		report.Steps[StepAnomaly] = StepResult{Status: StepSkipped, Error: "no series"}
		return
	}

	anomalies := e.detector.Detect(series)
	anomalies = append(anomalies, e.detector.DetectConcentration(breakdowns, series.End)...)
	if spike := e.detector.DetectRecentSpike(series, e.cfg.SpikeWindow); spike != nil {
		anomalies = append(anomalies, *spike)
	}

	report.Anomalies = anomalies
	report.Steps[StepAnomaly] = StepResult{Status: StepOK}
}

func (e *Engine) runForecast(report *Report, series *cost.CostSeries) {
	if series == nil {
		report.Steps[StepForecast] = StepResult{Status: StepSkipped, Error: "no series"}
		return
	}

	forecast, err := e.forecast.Generate(series, e.cfg.ForecastDays)
	if err != nil {
		e.log.WithError(err).Error("forecast failed")
		report.Steps[StepForecast] = StepResult{Status: StepFailed, Error: err.Error()}
		return
	}
	report.Forecast = forecast
	report.Steps[StepForecast] = StepResult{Status: StepOK}
}

func (e *Engine) runRecommend(ctx context.Context, report *Report, start, end time.Time) {
	resources, err := e.inv.ListResources(ctx)
	if err != nil {
		e.log.WithError(err).Error("inventory listing failed")
		report.Steps[StepRecommend] = StepResult{Status: StepFailed, Error: err.Error()}
		return
	}

	status := StepOK
	resourceSeries, err := e.fetcher.FetchResourceSeries(ctx, start, end)
	if err != nil {
		// Attachment and power-state rules still apply without cost
		// observations, so the step degrades instead of failing. VMs
		// are marked usage-unknown so the utilization rules stay quiet.
		e.log.WithError(err).Warn("per-resource costs unavailable, scoring on inventory facts only")
		resourceSeries = nil
		status = StepPartial
	}

	windowDays := int(end.Sub(start).Hours()/24) + 1
	var recs []recommend.Recommendation
	for _, r := range resources {
		switch r.Kind {
		case inventory.KindVM:
			facts := recommend.VMFacts{
				ID:           r.ID,
				Name:         r.Name,
				InstanceType: r.InstanceType,
				PowerState:   powerStateOf(r),
				WindowDays:   windowDays,
				UsageUnknown: resourceSeries == nil,
			}
			if s, ok := resourceSeries[r.ID]; ok {
				facts.FillFromSeries(s)
			}
			recs = append(recs, e.scorer.ScoreVM(facts)...)
		case inventory.KindDisk:
			facts := recommend.DiskFacts{
				ID:       r.ID,
				Name:     r.Name,
				SizeGB:   r.SizeGB,
				Attached: r.Attached(),
			}
			if s, ok := resourceSeries[r.ID]; ok && s.Len() > 0 {
				facts.MonthlyCost = s.Total / float64(s.Len()) * 30
			}
			recs = append(recs, e.scorer.ScoreDisk(facts)...)
		}
	}

	report.Recommendations = recs
	report.Rollup = recommend.Summarize(recs)
	report.Steps[StepRecommend] = StepResult{Status: status}
}

func powerStateOf(r inventory.Resource) recommend.PowerState {
	switch r.State {
	case "running", "pending":
		return recommend.PowerRunning
	case "stopped", "stopping":
		return recommend.PowerStopped
	case "terminated", "shutting-down", "deallocated":
		return recommend.PowerDeallocated
	default:
		return recommend.PowerUnknown
	}
}

func firstTrend(trends []analyze.Trend) *analyze.Trend {
	if len(trends) == 0 {
		return nil
	}
	return &trends[0]
}

// bucketSeries sums the daily series into fixed-size buckets, aligned
// to the end of the window so the newest bucket is always full. Nil
// when fewer than two full buckets exist.
func bucketSeries(series *cost.CostSeries, size int) *cost.CostSeries {
	if series.Len() < 2*size {
		return nil
	}

	points := series.Points
	// Drop the oldest partial bucket.
	offset := len(points) % size
	points = points[offset:]

	var bucketed []cost.CostPoint
	var total float64
	for i := 0; i < len(points); i += size {
		var sum float64
		for _, p := range points[i : i+size] {
			sum += p.Cost
		}
		bucketed = append(bucketed, cost.CostPoint{
			Date:     points[i].Date,
			Cost:     sum,
			Currency: series.Currency,
		})
		total += sum
	}

	return &cost.CostSeries{
		Points:     bucketed,
		Start:      bucketed[0].Date,
		End:        bucketed[len(bucketed)-1].Date,
		Total:      total,
		Currency:   series.Currency,
		Provenance: series.Provenance,
	}
}
