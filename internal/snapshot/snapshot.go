// Package snapshot exports and restores user progress in a compact
// form: per show the feed URL, title and favorite flag, and per
// listened or in-progress entry the guid-keyed playback state. Bulk
// descriptive content is deliberately left out; a fresh re-fetch of
// each feed brings it back.
package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"podkeep/internal/database"
	"podkeep/pkg/models"
)

const Version = 1

type Snapshot struct {
	Version   int           `json:"version"`
	InstallID string        `json:"install_id,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	Shows     []ShowRecord  `json:"shows"`
	Entries   []EntryRecord `json:"entries"`
}

type ShowRecord struct {
	FeedURL  string `json:"feed_url"`
	Title    string `json:"title"`
	Favorite bool   `json:"favorite,omitempty"`
}

type EntryRecord struct {
	FeedURL    string     `json:"feed_url"`
	GUID       string     `json:"guid"`
	Listened   bool       `json:"listened"`
	ListenedAt *time.Time `json:"listened_at,omitempty"`
	PositionMS int64      `json:"position_ms,omitempty"`
	LastPlayed *time.Time `json:"last_played,omitempty"`
}

// NewInstallID mints the per-install identifier stamped into exports.
func NewInstallID() string {
	return uuid.NewString()
}

// Export captures the current subscriptions and every entry carrying
// progress.
func Export(db *database.DB, installID string) (*Snapshot, error) {
	shows, err := db.GetShows()
	if err != nil {
		return nil, fmt.Errorf("loading shows: %w", err)
	}
	progress, err := db.GetProgressEntries()
	if err != nil {
		return nil, fmt.Errorf("loading progress: %w", err)
	}

	snap := &Snapshot{
		Version:   Version,
		InstallID: installID,
		CreatedAt: time.Now().UTC(),
		Shows:     make([]ShowRecord, 0, len(shows)),
		Entries:   make([]EntryRecord, 0, len(progress)),
	}
	for _, show := range shows {
		snap.Shows = append(snap.Shows, ShowRecord{
			FeedURL:  show.FeedURL,
			Title:    show.Title,
			Favorite: show.Favorite,
		})
	}
	for _, p := range progress {
		snap.Entries = append(snap.Entries, EntryRecord{
			FeedURL:    p.FeedURL,
			GUID:       p.Entry.GUID,
			Listened:   p.Entry.Listened,
			ListenedAt: p.Entry.ListenedAt,
			PositionMS: p.Entry.PositionMS,
			LastPlayed: p.Entry.LastPlayed,
		})
	}
	return snap, nil
}

// Encode writes the snapshot as indented JSON.
func (s *Snapshot) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return nil
}

// Decode reads a snapshot written by Encode.
func Decode(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if snap.Version != Version {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	return &snap, nil
}

// ImportStats reports what an import touched. EntriesPending counts
// progress records whose entry has not been fetched yet; re-running the
// import after a refresh picks them up.
type ImportStats struct {
	ShowsCreated    int
	ShowsMatched    int
	EntriesRestored int
	EntriesPending  int
}

// Import re-creates subscriptions from the snapshot and re-applies
// progress onto entries matched by (feed URL, guid).
func Import(db *database.DB, snap *Snapshot) (ImportStats, error) {
	var stats ImportStats
	showIDs := make(map[string]int64, len(snap.Shows))

	for _, record := range snap.Shows {
		show, err := db.GetShowByURL(record.FeedURL)
		if err != nil {
			return stats, err
		}
		if show == nil {
			show = &models.Show{
				Title:    record.Title,
				FeedURL:  record.FeedURL,
				Favorite: record.Favorite,
			}
			if err := db.AddShow(show); err != nil {
				return stats, fmt.Errorf("recreating show %s: %w", record.FeedURL, err)
			}
			stats.ShowsCreated++
		} else {
			if show.Favorite != record.Favorite {
				if err := db.SetFavorite(show.ID, record.Favorite); err != nil {
					return stats, err
				}
			}
			stats.ShowsMatched++
		}
		showIDs[record.FeedURL] = show.ID
	}

	for _, record := range snap.Entries {
		showID, ok := showIDs[record.FeedURL]
		if !ok {
			show, err := db.GetShowByURL(record.FeedURL)
			if err != nil {
				return stats, err
			}
			if show == nil {
				stats.EntriesPending++
				continue
			}
			showID = show.ID
			showIDs[record.FeedURL] = showID
		}

		entry, err := db.GetEntryByGUID(showID, record.GUID)
		if err != nil {
			return stats, err
		}
		if entry == nil {
			stats.EntriesPending++
			continue
		}
		if err := db.RestoreProgress(entry.ID, record.Listened, record.ListenedAt, record.PositionMS, record.LastPlayed); err != nil {
			return stats, err
		}
		stats.EntriesRestored++
	}

	return stats, nil
}
