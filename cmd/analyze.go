package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tasnim.dev/costlens/internal/config"
	"tasnim.dev/costlens/internal/engine"
	"tasnim.dev/costlens/internal/utils"
)

func NewAnalyzeCmd() *cobra.Command {
	var profile, region, output string
	var days int

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the cost analysis pipeline and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			profile, region = cfg.Merge(profile, region)
			if days > 0 {
				cfg.AnalysisDays = days
			}

			log := newLogger(cfg.LogLevel)
			ctx := context.Background()

			eng, _, err := buildEngine(ctx, cfg, profile, region, log)
			if err != nil {
				return err
			}

			start, end := cfg.Window(time.Now())
			report, err := eng.Run(ctx, start, end)
			if err != nil {
				return fmt.Errorf("running analysis: %w", err)
			}

			if output == "json" {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&profile, "profile", "p", "", "AWS profile to use")
	cmd.Flags().StringVarP(&region, "region", "r", "", "AWS region to use")
	cmd.Flags().IntVarP(&days, "days", "d", 0, "analysis window in days (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")

	return cmd
}

func printReport(r *engine.Report) {
	fmt.Printf("Run %s  %s — %s  (generated %s)\n\n", r.RunID,
		r.WindowStart.Format(utils.DateOnly), r.WindowEnd.Format(utils.DateOnly),
		utils.TimeOrDash(r.GeneratedAt, utils.DateTime))

	if s := r.Summary; s != nil {
		fmt.Printf("Total: %s   Daily avg: %s   Direction: %s\n",
			utils.Currency(s.TotalCost, s.Currency),
			utils.Currency(s.AverageDaily, s.Currency),
			s.Direction)
		fmt.Printf("Peak: %s on %s   Trough: %s on %s\n",
			utils.Currency(s.PeakCost, s.Currency), s.PeakDate.Format("2006-01-02"),
			utils.Currency(s.TroughCost, s.Currency), s.TroughDate.Format("2006-01-02"))
		if s.SyntheticData {
			fmt.Println("NOTE: series is synthetic fallback data, not real observations")
		}
		fmt.Println()
	}

	if len(r.Breakdowns) > 0 {
		fmt.Println("By service:")
		for _, b := range r.Breakdowns {
			fmt.Printf("  %-40s %10s  %5.1f%%  %s\n",
				b.Key, utils.Currency(b.Cost, ""), b.PercentOfTotal, b.Category)
		}
		fmt.Println()
	}

	if len(r.Anomalies) > 0 {
		fmt.Printf("Anomalies (%d):\n", len(r.Anomalies))
		for _, a := range r.Anomalies {
			fmt.Printf("  [%s] %s  %s\n", a.Severity, a.DetectedDate.Format("2006-01-02"), a.Description)
		}
		fmt.Println()
	}

	if f := r.Forecast; f != nil {
		fmt.Printf("Forecast (%s, %d days): %s total\n\n",
			f.Method, len(f.Points), utils.Currency(f.TotalCost, f.Currency))
	}

	if len(r.Recommendations) > 0 {
		fmt.Printf("Recommendations (%d, %s/month potential):\n",
			r.Rollup.Total, utils.Currency(r.Rollup.TotalMonthlySavings, ""))
		for _, rec := range r.Recommendations {
			fmt.Printf("  P%d %-20s %-22s save %s/month\n",
				rec.Priority, rec.Type, rec.ResourceID,
				utils.Currency(rec.PotentialMonthlySavings, ""))
		}
		fmt.Println()
	}

	fmt.Println("Steps:")
	for _, name := range []string{engine.StepAggregate, engine.StepTrend, engine.StepAnomaly, engine.StepForecast, engine.StepRecommend, engine.StepSummary} {
		if res, ok := r.Steps[name]; ok {
			line := fmt.Sprintf("  %-10s %s", name, res.Status)
			if res.Error != "" {
				line += "  (" + res.Error + ")"
			}
			fmt.Println(line)
		}
	}
}
