package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newCleanupCommand(ctx *appContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete listened episodes older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			retention := ctx.cfg.Feeds.Retention()
			if days > 0 {
				retention = time.Duration(days) * 24 * time.Hour
			}
			removed, err := ctx.db.DeleteOldListenedEntries(time.Now().Add(-retention))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d episodes\n", removed)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Override the retention window in days")
	return cmd
}
