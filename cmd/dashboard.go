package cmd

import (
	"context"
	"fmt"
	"os"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"

	"tasnim.dev/costlens/internal/config"
	"tasnim.dev/costlens/internal/tui"
)

func NewDashboardCmd() *cobra.Command {
	var profile, region string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Interactive cost analytics dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			profile, region = cfg.Merge(profile, region)

			log := newLogger(cfg.LogLevel)
			ctx := context.Background()

			eng, accountID, err := buildEngine(ctx, cfg, profile, region, log)
			if err != nil {
				return err
			}

			model := tui.NewModel(eng, cfg, profile, accountID)
			p := tea.NewProgram(model)
			if _, err := p.Run(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&profile, "profile", "p", "", "AWS profile to use")
	cmd.Flags().StringVarP(&region, "region", "r", "", "AWS region to use")

	return cmd
}
