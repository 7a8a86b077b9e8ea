package cmd

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"tasnim.dev/costlens/internal/analyze"
	awsclient "tasnim.dev/costlens/internal/aws"
	"tasnim.dev/costlens/internal/aws/billing"
	"tasnim.dev/costlens/internal/aws/inventory"
	"tasnim.dev/costlens/internal/config"
	"tasnim.dev/costlens/internal/cost"
	"tasnim.dev/costlens/internal/engine"
	"tasnim.dev/costlens/internal/recommend"
	"tasnim.dev/costlens/internal/store"
)

// newLogger builds the shared structured logger.
func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)
	return log
}

// buildEngine wires the full pipeline from config and AWS credentials.
// The returned account ID is informational and empty on lookup failure.
func buildEngine(ctx context.Context, cfg *config.Config, profile, region string, log *logrus.Logger) (*engine.Engine, string, error) {
	awsCfg, err := awsclient.LoadConfig(ctx, profile, region)
	if err != nil {
		return nil, "", fmt.Errorf("loading AWS config: %w", err)
	}
	accountID := awsclient.GetAccountID(ctx, awsCfg)

	agg := cost.NewAggregator(billing.NewClient(awsCfg), cfg.AggregatorConfig(), log)
	inv := inventory.NewClient(awsCfg)

	var archive *store.Store
	if cfg.HistoryPath != "" {
		archive, err = store.Open(cfg.HistoryPath)
		if err != nil {
			return nil, "", fmt.Errorf("opening history store: %w", err)
		}
	}

	engCfg := engine.DefaultConfig()
	engCfg.ForecastDays = cfg.ForecastDays

	eng := engine.New(agg, inv, archive, engCfg, log)

	forecaster := analyze.NewForecastGenerator(engCfg.ForecastSeed)
	forecaster.ConfidenceBandPct = cfg.Thresholds.ConfidenceBandPct
	forecaster.VariancePct = cfg.Thresholds.ForecastVariancePct
	eng.SetAnalyzers(
		&analyze.TrendAnalyzer{StabilityDeadbandPct: cfg.Thresholds.StabilityDeadbandPct},
		&analyze.AnomalyDetector{
			ThresholdPct:     cfg.Thresholds.AnomalyDeviationPct,
			ConcentrationPct: cfg.Thresholds.ConcentrationPct,
		},
		forecaster,
		recommend.NewScorer(recommend.DefaultScorerConfig(), log),
	)

	return eng, accountID, nil
}
