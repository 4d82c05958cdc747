package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"podkeep/internal/database"
)

func newAddCommand(ctx *appContext) *cobra.Command {
	var genre string

	cmd := &cobra.Command{
		Use:   "add <feed-url>",
		Short: "Subscribe to a podcast feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := ctx.reconciler()
			if err != nil {
				return err
			}
			show, err := rec.Subscribe(cmd.Context(), args[0], genre)
			if errors.Is(err, database.ErrShowExists) {
				return fmt.Errorf("already subscribed to %s", args[0])
			}
			if err != nil {
				return fmt.Errorf("subscribing to %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Subscribed to %s (id %d)\n", titleStyle.Render(show.Title), show.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&genre, "genre", "", "Override the category assigned by the feed")
	return cmd
}

func newRemoveCommand(ctx *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <show-id|feed-url>",
		Short: "Unsubscribe from a show and delete its episodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			show, err := ctx.resolveShow(args[0])
			if err != nil {
				return err
			}
			if err := ctx.db.DeleteShow(show.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", show.Title)
			return nil
		},
	}
}

func newListCommand(ctx *appContext) *cobra.Command {
	var favoritesOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List subscribed shows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			shows, err := ctx.db.GetShows()
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(shows))
			for _, show := range shows {
				if favoritesOnly && !show.Favorite {
					continue
				}
				rows = append(rows, []string{
					strconv.FormatInt(show.ID, 10),
					formatFavorite(show.Favorite),
					show.Title,
					show.Genre,
					show.UpdatedAt.Format("Jan 2, 2006"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "", "Title", "Genre", "Updated"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&favoritesOnly, "favorites", false, "Only favorite shows")
	return cmd
}

func newFavoriteCommand(ctx *appContext) *cobra.Command {
	var off bool

	cmd := &cobra.Command{
		Use:   "favorite <show-id|feed-url>",
		Short: "Mark a show as a favorite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			show, err := ctx.resolveShow(args[0])
			if err != nil {
				return err
			}
			if err := ctx.db.SetFavorite(show.ID, !off); err != nil {
				return err
			}
			if off {
				fmt.Fprintf(cmd.OutOrStdout(), "Unfavorited %s\n", show.Title)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Favorited %s\n", show.Title)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&off, "off", false, "Clear the favorite flag instead")
	return cmd
}
