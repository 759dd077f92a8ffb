package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/CZERTAINLY/Gatekeeper/internal/dashboard"
	"github.com/CZERTAINLY/Gatekeeper/internal/engine"
	"github.com/CZERTAINLY/Gatekeeper/internal/log"

	"github.com/spf13/cobra"
)

// simulateEnv enables the demonstration values of the dashboard. The gate
// never reads it.
const simulateEnv = "SIMULATE_COMPLEX_APP"

func newDashboardCmd() *cobra.Command {
	var (
		flags  artifactFlags
		output string
		cards  int
	)
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "render the HTML security dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := log.ContextAttrs(cmd.Context(), slog.Group("gatekeeper",
				slog.String("cmd", "dashboard"),
			))

			path := or(output, config.DashboardOutput())
			if cards <= 0 {
				cards = config.DashboardCards()
			}
			simulate := config.DashboardSimulate() || os.Getenv(simulateEnv) == "true"
			if simulate {
				slog.InfoContext(ctx, "simulation mode enabled, counts are demonstration values")
			}

			a := engine.Run(ctx, flags.artifacts(config))
			page := dashboard.Build(a, dashboard.Options{
				Cards:    cards,
				Simulate: simulate,
			})
			if err := dashboard.Write(path, page); err != nil {
				return err
			}
			if err := dashboard.PrintSummary(cmd.OutOrStdout(), path, page); err != nil {
				return fmt.Errorf("printing dashboard summary: %w", err)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output HTML file (default from config, security-dashboard.html)")
	cmd.Flags().IntVar(&cards, "cards", 0, "finding cards per source (default from config, 5)")
	return cmd
}
