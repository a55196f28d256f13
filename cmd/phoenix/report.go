package main

import (
	"github.com/spf13/cobra"

	"github.com/ChamsBouzaiene/phoenix/internal/observability"
)

func newReportCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show recent interactions and agent usage across all runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(false); err != nil {
				return err
			}
			if err := ensureDir(a.settings.DataDir); err != nil {
				return err
			}

			ctx := cmd.Context()
			history, err := observability.NewSQLiteSink(ctx, a.settings.HistoryDBPath())
			if err != nil {
				return err
			}
			defer history.Close()

			total, err := history.Count(ctx)
			if err != nil {
				return err
			}
			recent, err := history.Recent(ctx, limit)
			if err != nil {
				return err
			}
			usage, err := history.UsageStats(ctx)
			if err != nil {
				return err
			}

			renderReport(cmd.OutOrStdout(), total, recent, usage)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", observability.RecentLimit, "Number of recent interactions to show")
	return cmd
}
