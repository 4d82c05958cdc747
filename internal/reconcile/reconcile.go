// Package reconcile merges freshly fetched feed data into persisted
// show and entry state without losing user progress.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"podkeep/internal/database"
	"podkeep/internal/feed"
	"podkeep/pkg/models"
)

type Reconciler struct {
	db        *database.DB
	fetcher   *feed.Fetcher
	parser    *feed.Parser
	sanitizer *feed.Sanitizer
	logger    *slog.Logger
}

func New(db *database.DB, fetcher *feed.Fetcher, parser *feed.Parser, sanitizer *feed.Sanitizer, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		db:        db,
		fetcher:   fetcher,
		parser:    parser,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// Subscribe fetches, parses and reconciles a feed for the first time.
// Unlike batch refresh, failures surface to the caller so a manual add
// can be reported instead of silently doing nothing.
func (r *Reconciler) Subscribe(ctx context.Context, feedURL, genreOverride string) (*models.Show, error) {
	if existing, err := r.db.GetShowByURL(feedURL); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, database.ErrShowExists
	}

	showID, err := r.refresh(ctx, feedURL, genreOverride)
	if err != nil {
		return nil, err
	}
	return r.db.GetShowByID(showID)
}

// RefreshShow re-fetches one subscribed show.
func (r *Reconciler) RefreshShow(ctx context.Context, feedURL string) error {
	_, err := r.refresh(ctx, feedURL, "")
	return err
}

// RefreshSummary reports the outcome of a batch refresh.
type RefreshSummary struct {
	Refreshed int
	Failed    int
}

// RefreshAll refreshes every subscribed show. A single show's failure
// is logged and skipped; it never aborts the batch.
func (r *Reconciler) RefreshAll(ctx context.Context) (RefreshSummary, error) {
	shows, err := r.db.GetShows()
	if err != nil {
		return RefreshSummary{}, fmt.Errorf("loading shows: %w", err)
	}

	var summary RefreshSummary
	for _, show := range shows {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := r.RefreshShow(ctx, show.FeedURL); err != nil {
			r.logger.Warn("refresh failed", "show", show.Title, "url", show.FeedURL, "error", err)
			summary.Failed++
			continue
		}
		r.logger.Debug("refreshed", "show", show.Title)
		summary.Refreshed++
	}
	return summary, nil
}

func (r *Reconciler) refresh(ctx context.Context, feedURL, genreOverride string) (int64, error) {
	raw, err := r.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return 0, err
	}
	parsed, entries, err := r.parser.Parse(raw)
	if err != nil {
		return 0, err
	}
	return r.Reconcile(feedURL, parsed, entries, genreOverride)
}

// Reconcile resolves the show row by feed URL, inserting or updating
// its metadata, then upserts every parsed entry keyed on (showID,
// guid). The whole merge commits in one transaction; a crash mid-way
// leaves the previous state intact rather than a half-written show.
func (r *Reconciler) Reconcile(feedURL string, parsed *models.ParsedShow, entries []models.ParsedEntry, genreOverride string) (int64, error) {
	existing, err := r.db.GetShowByURL(feedURL)
	if err != nil {
		return 0, err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning reconcile: %w", err)
	}
	defer tx.Rollback()

	show := existing
	if show == nil {
		show = &models.Show{
			Title:       parsed.Title,
			FeedURL:     feedURL,
			ImageURL:    parsed.ImageURL,
			Description: parsed.Description,
			Genre:       resolveGenre(genreOverride, parsed.Genre, ""),
		}
		if err := r.db.InsertShowTx(tx, show); err != nil {
			return 0, err
		}
	} else {
		merged := mergeShowMetadata(show, parsed, genreOverride)
		if merged != *show {
			if err := r.db.UpdateShowMetadataTx(tx, show.ID, merged.Title, merged.ImageURL, merged.Description, merged.Genre); err != nil {
				return 0, err
			}
			*show = merged
		}
	}

	for _, pe := range entries {
		imageURL := pe.ImageURL
		if imageURL == "" {
			// Entries without their own artwork inherit the show's.
			imageURL = show.ImageURL
		}
		entry := &models.Entry{
			ShowID:        show.ID,
			Title:         pe.Title,
			GUID:          pe.GUID,
			PubDate:       pe.PubDate,
			AudioURL:      pe.AudioURL,
			ImageURL:      imageURL,
			EpisodeNumber: pe.EpisodeNumber,
			DurationMS:    pe.DurationMS,
			Description:   r.sanitizer.Clean(pe.Description),
		}
		if err := r.db.UpsertEntryTx(tx, entry); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing reconcile: %w", err)
	}
	return show.ID, nil
}

// mergeShowMetadata folds parsed values into the stored show, taking a
// new value only when it is non-empty and differs. Nulls from a
// temporarily malformed fetch never overwrite good data.
func mergeShowMetadata(stored *models.Show, parsed *models.ParsedShow, genreOverride string) models.Show {
	merged := *stored
	if parsed.Title != "" {
		merged.Title = parsed.Title
	}
	if parsed.ImageURL != "" {
		merged.ImageURL = parsed.ImageURL
	}
	if parsed.Description != "" {
		merged.Description = parsed.Description
	}
	merged.Genre = resolveGenre(genreOverride, parsed.Genre, stored.Genre)
	return merged
}

// resolveGenre applies the precedence: explicit override, then parsed
// genre, then the stored value, then "Uncategorized".
func resolveGenre(override, parsed, stored string) string {
	switch {
	case override != "":
		return override
	case parsed != "":
		return parsed
	case stored != "":
		return stored
	default:
		return "Uncategorized"
	}
}

// UpNextItem pairs a show with its earliest unlistened entry.
type UpNextItem struct {
	Show  models.Show
	Entry models.Entry
}

// UpNext collects, for each subscribed show, the first unlistened entry
// in ascending publish order. Linear in entries per show, which is fine
// at podcast scale.
func (r *Reconciler) UpNext() ([]UpNextItem, error) {
	shows, err := r.db.GetShows()
	if err != nil {
		return nil, fmt.Errorf("loading shows: %w", err)
	}

	var items []UpNextItem
	for _, show := range shows {
		entry, err := r.db.NextUnlistened(show.ID)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			continue
		}
		items = append(items, UpNextItem{Show: show, Entry: *entry})
	}
	return items, nil
}
