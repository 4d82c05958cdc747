package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"podkeep/internal/config"
	"podkeep/internal/database"
	"podkeep/internal/snapshot"
)

func newExportCommand(ctx *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Export subscriptions and listening progress",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			installID, err := ensureInstallID(ctx)
			if err != nil {
				return err
			}
			snap, err := snapshot.Export(ctx.db, installID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Create(args[0])
				if err != nil {
					return fmt.Errorf("creating snapshot file: %w", err)
				}
				defer f.Close()
				out = f
			}
			return snap.Encode(out)
		},
	}
}

func newImportCommand(ctx *appContext) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Restore subscriptions and progress from a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("opening snapshot file: %w", err)
				}
				defer f.Close()
				in = f
			}

			snap, err := snapshot.Decode(in)
			if err != nil {
				return err
			}

			stats, err := snapshot.Import(ctx.db, snap)
			if err != nil {
				return err
			}

			// Entries only exist after a fetch; refreshing and
			// importing again lands the progress that was pending.
			if refresh && stats.EntriesPending > 0 {
				rec, err := ctx.reconciler()
				if err != nil {
					return err
				}
				if _, err := rec.RefreshAll(cmd.Context()); err != nil {
					return err
				}
				stats, err = snapshot.Import(ctx.db, snap)
				if err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Shows: %d created, %d matched. Progress: %d restored, %d pending.\n",
				stats.ShowsCreated, stats.ShowsMatched, stats.EntriesRestored, stats.EntriesPending)
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Refresh feeds so pending progress can land")
	return cmd
}

func newOPMLCommand(ctx *appContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "opml",
		Short: "Exchange the subscription list as OPML",
	}
	cmd.AddCommand(newOPMLExportCommand(ctx))
	cmd.AddCommand(newOPMLImportCommand(ctx))
	return cmd
}

func newOPMLExportCommand(ctx *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write subscriptions as OPML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shows, err := ctx.db.GetShows()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Create(args[0])
				if err != nil {
					return fmt.Errorf("creating opml file: %w", err)
				}
				defer f.Close()
				out = f
			}
			return snapshot.ExportOPML(shows, out)
		},
	}
}

func newOPMLImportCommand(ctx *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Subscribe to every feed in an OPML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening opml file: %w", err)
			}
			defer f.Close()

			shows, err := snapshot.ParseOPML(f)
			if err != nil {
				return err
			}

			rec, err := ctx.reconciler()
			if err != nil {
				return err
			}

			added, skipped, failed := 0, 0, 0
			for _, show := range shows {
				_, err := rec.Subscribe(cmd.Context(), show.FeedURL, "")
				switch {
				case errors.Is(err, database.ErrShowExists):
					skipped++
				case err != nil:
					ctx.logger.Warn("opml import failed for feed", "url", show.FeedURL, "error", err)
					failed++
				default:
					added++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d feeds (%d already subscribed, %d failed)\n", added, skipped, failed)
			return nil
		},
	}
}

// ensureInstallID mints the per-install identifier on first export and
// persists it in the config file.
func ensureInstallID(ctx *appContext) (string, error) {
	if ctx.cfg.InstallID != "" {
		return ctx.cfg.InstallID, nil
	}
	ctx.cfg.InstallID = snapshot.NewInstallID()
	if err := config.Save(ctx.cfg, ctx.configPath()); err != nil {
		return "", err
	}
	return ctx.cfg.InstallID, nil
}
