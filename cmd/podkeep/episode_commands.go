package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"podkeep/internal/feed"
)

func newEpisodesCommand(ctx *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "episodes <show-id|feed-url>",
		Short: "List a show's episodes, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			show, err := ctx.resolveShow(args[0])
			if err != nil {
				return err
			}
			entries, err := ctx.db.GetEntriesByShow(show.ID)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				number := ""
				if entry.EpisodeNumber != nil {
					number = strconv.Itoa(*entry.EpisodeNumber)
				}
				rows = append(rows, []string{
					strconv.FormatInt(entry.ID, 10),
					number,
					entry.Title,
					formatDate(entry.PubDate),
					formatDuration(entry.DurationMS),
					formatState(entry),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), titleStyle.Render(show.Title))
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "#", "Title", "Published", "Length", "State"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func newUpNextCommand(ctx *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "upnext",
		Short: "Show each subscription's earliest unlistened episode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := ctx.reconciler()
			if err != nil {
				return err
			}
			items, err := rec.UpNext()
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(items))
			for _, item := range items {
				rows = append(rows, []string{
					strconv.FormatInt(item.Entry.ID, 10),
					item.Show.Title,
					item.Entry.Title,
					formatDate(item.Entry.PubDate),
					formatDuration(item.Entry.DurationMS),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Show", "Episode", "Published", "Length"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
}

func newPlayedCommand(ctx *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "played <entry-id>",
		Short: "Mark an episode as listened",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.tracker().SetListened(id, true)
		},
	}
}

func newUnplayedCommand(ctx *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unplayed <entry-id>",
		Short: "Mark an episode as unlistened, clearing its progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.tracker().SetListened(id, false)
		},
	}
}

func newPositionCommand(ctx *appContext) *cobra.Command {
	var duration string

	cmd := &cobra.Command{
		Use:   "position <entry-id> <position>",
		Short: "Record a playback position (e.g. 754s, 12:34, 1:02:03)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			positionMS, err := parsePosition(args[1])
			if err != nil {
				return err
			}
			var hint *int64
			if duration != "" {
				hint = feed.ParseDurationMS(duration)
				if hint == nil {
					return fmt.Errorf("invalid duration %q", duration)
				}
			}
			return ctx.tracker().ReportProgress(id, positionMS, hint)
		},
	}

	cmd.Flags().StringVar(&duration, "duration", "", "Episode duration discovered by the player")
	return cmd
}

func newShowNotesCommand(ctx *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show-notes <entry-id>",
		Short: "Render an episode's notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			entry, err := ctx.db.GetEntryByID(id)
			if err != nil {
				return err
			}
			if entry == nil {
				return fmt.Errorf("no episode with id %d", id)
			}

			fmt.Fprintln(cmd.OutOrStdout(), titleStyle.Render(entry.Title))
			rendered, err := glamour.Render(entry.Description, "auto")
			if err != nil {
				// Fall back to the stored text when the terminal
				// renderer is unavailable.
				rendered = entry.Description
			}
			fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return nil
		},
	}
}
