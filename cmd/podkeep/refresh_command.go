package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"podkeep/internal/reconcile"
)

func newRefreshCommand(ctx *appContext) *cobra.Command {
	var watch bool
	var interval string

	cmd := &cobra.Command{
		Use:   "refresh [show-id|feed-url...]",
		Short: "Refresh subscribed feeds",
		Long: `Refresh fetches each feed and merges new episodes into the library.
With no arguments every subscription is refreshed; individual shows can
be named by id or feed URL. --watch keeps refreshing on an interval
until interrupted, running the retention cleanup after each pass.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := ctx.reconciler()
			if err != nil {
				return err
			}

			if len(args) > 0 {
				return refreshNamed(cmd, ctx, rec, args)
			}
			if !watch {
				return refreshOnce(cmd, ctx, rec)
			}

			every, err := resolveInterval(ctx, interval)
			if err != nil {
				return err
			}
			return refreshLoop(cmd, ctx, rec, every)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Keep refreshing periodically")
	cmd.Flags().StringVar(&interval, "interval", "", "Watch interval (default from config)")
	return cmd
}

func refreshNamed(cmd *cobra.Command, ctx *appContext, rec *reconcile.Reconciler, args []string) error {
	for _, arg := range args {
		show, err := ctx.resolveShow(arg)
		if err != nil {
			return err
		}
		if err := rec.RefreshShow(cmd.Context(), show.FeedURL); err != nil {
			return fmt.Errorf("refreshing %s: %w", show.Title, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Refreshed %s\n", show.Title)
	}
	return nil
}

func refreshOnce(cmd *cobra.Command, ctx *appContext, rec *reconcile.Reconciler) error {
	summary, err := rec.RefreshAll(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Refreshed %d shows", summary.Refreshed)
	if summary.Failed > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), ", %d failed", summary.Failed)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}

// refreshLoop is the best-effort periodic sync: a pass immediately,
// then one per tick until the process is interrupted.
func refreshLoop(cmd *cobra.Command, ctx *appContext, rec *reconcile.Reconciler, every time.Duration) error {
	runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx.logger.Info("watching feeds", "interval", every)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		summary, err := rec.RefreshAll(runCtx)
		if err != nil {
			if runCtx.Err() != nil {
				return nil
			}
			ctx.logger.Error("refresh pass failed", "error", err)
		} else {
			ctx.logger.Info("refresh pass complete", "refreshed", summary.Refreshed, "failed", summary.Failed)
		}

		cutoff := time.Now().Add(-ctx.cfg.Feeds.Retention())
		if removed, err := ctx.db.DeleteOldListenedEntries(cutoff); err != nil {
			ctx.logger.Error("cleanup failed", "error", err)
		} else if removed > 0 {
			ctx.logger.Info("cleaned up old episodes", "removed", removed)
		}

		select {
		case <-runCtx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func resolveInterval(ctx *appContext, flag string) (time.Duration, error) {
	if flag != "" {
		every, err := time.ParseDuration(flag)
		if err != nil {
			return 0, fmt.Errorf("invalid interval %q: %w", flag, err)
		}
		return every, nil
	}
	return ctx.cfg.Feeds.GetRefreshInterval()
}
