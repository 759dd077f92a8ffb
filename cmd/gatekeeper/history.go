package main

import (
	"fmt"

	"github.com/CZERTAINLY/Gatekeeper/internal/history"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "list recorded gate runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			path := config.HistoryPath()
			db, err := history.InitDB(ctx, path)
			if err != nil {
				return fmt.Errorf("opening history %s: %w", path, err)
			}
			defer func() {
				_ = db.Close()
			}()

			runs, err := history.List(ctx, db, limit)
			if err != nil {
				return err
			}
			for _, r := range runs {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), r.String()); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to list, 0 lists all")
	return cmd
}
