package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tasnim.dev/costlens/internal/config"
	"tasnim.dev/costlens/internal/utils"
)

func NewRecommendCmd() *cobra.Command {
	var profile, region, output string

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Show savings recommendations for VMs and disks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			profile, region = cfg.Merge(profile, region)

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
				return enc.Encode(struct {
					Recommendations interface{} `json:"recommendations"`
					Rollup          interface{} `json:"rollup"`
				}{report.Recommendations, report.Rollup})
			}

			if len(report.Recommendations) == 0 {
				fmt.Println("No savings opportunities found.")
				return nil
			}

			for _, rec := range report.Recommendations {
				fmt.Printf("P%d  %s  %s (%s)\n", rec.Priority, rec.Type, rec.ResourceID, rec.ResourceName)
				fmt.Printf("    %s\n", rec.Rationale)
				fmt.Printf("    save %s/month (%s/year, %.0f%%), effort %s\n",
					utils.Currency(rec.PotentialMonthlySavings, ""),
					utils.Currency(rec.PotentialAnnualSavings, ""),
					rec.SavingsPercent, rec.Effort)
			}
			fmt.Printf("\nTotal potential: %s/month across %d recommendations\n",
				utils.Currency(report.Rollup.TotalMonthlySavings, ""), report.Rollup.Total)
			return nil
		},
	}

	cmd.Flags().StringVarP(&profile, "profile", "p", "", "AWS profile to use")
	cmd.Flags().StringVarP(&region, "region", "r", "", "AWS region to use")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")

	return cmd
}
