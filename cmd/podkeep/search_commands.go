package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"podkeep/pkg/models"
)

func newSearchCommand(ctx *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query...>",
		Short: "Search the podcast directory by keyword",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := ctx.directory().Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				// A directory outage is not worth a hard failure;
				// report an empty result set instead.
				ctx.logger.Warn("directory search failed", "error", err)
				results = nil
			}
			printResults(cmd, results)
			return nil
		},
	}
}

func newTopCommand(ctx *appContext) *cobra.Command {
	var genreID int64
	var limit int

	cmd := &cobra.Command{
		Use:   "top",
		Short: "List the directory's top podcasts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := ctx.directory().TopShows(cmd.Context(), genreID, limit)
			if err != nil {
				ctx.logger.Warn("directory charts failed", "error", err)
				results = nil
			}
			printResults(cmd, results)
			return nil
		},
	}

	cmd.Flags().Int64Var(&genreID, "genre", 0, "Directory genre id to filter by")
	cmd.Flags().IntVar(&limit, "limit", 25, "Number of results")
	return cmd
}

func newLookupCommand(ctx *appContext) *cobra.Command {
	var subscribe bool

	cmd := &cobra.Command{
		Use:   "lookup <directory-id>",
		Short: "Resolve a directory id to a feed URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			result, err := ctx.directory().Lookup(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("looking up %d: %w", id, err)
			}
			if result == nil {
				return fmt.Errorf("directory id %d not found", id)
			}
			printResults(cmd, []models.SearchResult{*result})

			if !subscribe {
				return nil
			}
			if result.FeedURL == "" {
				return fmt.Errorf("directory has no feed URL for %s", result.Title)
			}
			rec, err := ctx.reconciler()
			if err != nil {
				return err
			}
			show, err := rec.Subscribe(cmd.Context(), result.FeedURL, "")
			if err != nil {
				return fmt.Errorf("subscribing to %s: %w", result.Title, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Subscribed to %s (id %d)\n", titleStyle.Render(show.Title), show.ID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&subscribe, "subscribe", false, "Subscribe to the resolved feed")
	return cmd
}

func printResults(cmd *cobra.Command, results []models.SearchResult) {
	rows := make([][]string, 0, len(results))
	for _, result := range results {
		id := ""
		if result.DirectoryID != 0 {
			id = strconv.FormatInt(result.DirectoryID, 10)
		}
		rows = append(rows, []string{
			id,
			result.Title,
			result.Artist,
			result.GenreName,
			result.FeedURL,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Directory ID", "Title", "Artist", "Genre", "Feed"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
	))
}
