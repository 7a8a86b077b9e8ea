package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"tasnim.dev/costlens/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "costlens",
		Short: "Cloud cost analytics: trends, anomalies, forecasts and savings",
	}

	rootCmd.AddCommand(cmd.NewAnalyzeCmd())
	rootCmd.AddCommand(cmd.NewRecommendCmd())
	rootCmd.AddCommand(cmd.NewDashboardCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
