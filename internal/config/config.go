package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"tasnim.dev/costlens/internal/cost"
)

// Thresholds are the engine's heuristic cutoffs. The defaults are
// carried business heuristics, not statistical derivations; override
// them here rather than editing code.
type Thresholds struct {
	StabilityDeadbandPct float64 `yaml:"stability_deadband_pct"`
	AnomalyDeviationPct  float64 `yaml:"anomaly_deviation_pct"`
	ConcentrationPct     float64 `yaml:"concentration_pct"`
	ConfidenceBandPct    float64 `yaml:"confidence_band_pct"`
	ForecastVariancePct  float64 `yaml:"forecast_variance_pct"`
}

// RateLimit shapes how the aggregator spaces and retries billing
// queries.
type RateLimit struct {
	InterCallDelaySeconds int  `yaml:"inter_call_delay_seconds"`
	RetryAttempts         int  `yaml:"retry_attempts"`
	RetryBaseDelaySeconds int  `yaml:"retry_base_delay_seconds"`
	RetryExponential      bool `yaml:"retry_exponential"`
}

// Config holds defaults loaded from ~/.config/costlens/config.yaml.
type Config struct {
	DefaultProfile string `yaml:"default_profile"`
	DefaultRegion  string `yaml:"default_region"`
	LogLevel       string `yaml:"log_level"`

	AnalysisDays    int    `yaml:"analysis_days"`
	ForecastDays    int    `yaml:"forecast_days"`
	CacheTTLMinutes int    `yaml:"cache_ttl_minutes"`
	HistoryPath     string `yaml:"history_path"`
	EnableFallback  bool   `yaml:"enable_fallback"`

	Thresholds Thresholds `yaml:"thresholds"`
	RateLimit  RateLimit  `yaml:"rate_limit"`
}

// Load reads the config file. Returns defaults if the file doesn't exist.
func Load() (*Config, error) {
	cfg := Default()

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, nil
	}

	path := filepath.Join(home, ".config", "costlens", "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Default returns the stock configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.AnalysisDays <= 0 {
		c.AnalysisDays = 30
	}
	if c.ForecastDays <= 0 {
		c.ForecastDays = 7
	}
	if c.CacheTTLMinutes <= 0 {
		c.CacheTTLMinutes = 15
	}
	if c.Thresholds.StabilityDeadbandPct <= 0 {
		c.Thresholds.StabilityDeadbandPct = 5
	}
	if c.Thresholds.AnomalyDeviationPct <= 0 {
		c.Thresholds.AnomalyDeviationPct = 20
	}
	if c.Thresholds.ConcentrationPct <= 0 {
		c.Thresholds.ConcentrationPct = 50
	}
	if c.Thresholds.ConfidenceBandPct <= 0 {
		c.Thresholds.ConfidenceBandPct = 10
	}
	if c.Thresholds.ForecastVariancePct <= 0 {
		c.Thresholds.ForecastVariancePct = 5
	}
	if c.RateLimit.InterCallDelaySeconds <= 0 {
		c.RateLimit.InterCallDelaySeconds = 2
	}
	if c.RateLimit.RetryAttempts <= 0 {
		c.RateLimit.RetryAttempts = 5
	}
	if c.RateLimit.RetryBaseDelaySeconds <= 0 {
		c.RateLimit.RetryBaseDelaySeconds = 2
	}
}

// Merge applies CLI flag overrides. Flags take precedence over config defaults.
func (c *Config) Merge(profile, region string) (string, string) {
	p := c.DefaultProfile
	if profile != "" {
		p = profile
	}
	r := c.DefaultRegion
	if region != "" {
		r = region
	}
	return p, r
}

// AggregatorConfig translates the rate-limit section into the
// aggregator's shape.
func (c *Config) AggregatorConfig() cost.AggregatorConfig {
	agg := cost.DefaultAggregatorConfig()
	agg.CacheTTL = time.Duration(c.CacheTTLMinutes) * time.Minute
	agg.InterCallDelay = time.Duration(c.RateLimit.InterCallDelaySeconds) * time.Second
	agg.RetryAttempts = c.RateLimit.RetryAttempts
	agg.RetryBaseDelay = time.Duration(c.RateLimit.RetryBaseDelaySeconds) * time.Second
	if c.RateLimit.RetryExponential {
		agg.RetryMultiplier = 2
	}
	agg.EnableFallback = c.EnableFallback
	return agg
}

// Window returns the analysis window ending yesterday, the last day
// with complete billing data.
func (c *Config) Window(now time.Time) (start, end time.Time) {
	end = cost.Day(now).AddDate(0, 0, -1)
	start = end.AddDate(0, 0, -(c.AnalysisDays - 1))
	return start, end
}
