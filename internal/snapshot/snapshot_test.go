package snapshot

import (
	"bytes"
	"testing"
	"time"

	"podkeep/internal/database"
	"podkeep/pkg/models"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewInMemory()
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func addShowWithEntries(t *testing.T, db *database.DB, feedURL string, guids ...string) *models.Show {
	t.Helper()
	show := &models.Show{Title: "Show " + feedURL, FeedURL: feedURL}
	if err := db.AddShow(show); err != nil {
		t.Fatalf("adding show: %v", err)
	}
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	for i, guid := range guids {
		entry := &models.Entry{
			ShowID:  show.ID,
			Title:   "Episode " + guid,
			GUID:    guid,
			PubDate: time.Date(2024, 6, 1+i, 0, 0, 0, 0, time.UTC),
		}
		if err := db.UpsertEntryTx(tx, entry); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return show
}

func TestExportOnlyCarriesProgress(t *testing.T) {
	db := newTestDB(t)
	show := addShowWithEntries(t, db, "https://example.com/a", "g1", "g2", "g3")

	played, _ := db.GetEntryByGUID(show.ID, "g1")
	if err := db.MarkListened(played.ID, time.Now()); err != nil {
		t.Fatalf("mark listened: %v", err)
	}
	inProgress, _ := db.GetEntryByGUID(show.ID, "g2")
	if err := db.UpdatePosition(inProgress.ID, 42000, nil, time.Now()); err != nil {
		t.Fatalf("update position: %v", err)
	}

	snap, err := Export(db, "install-1")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(snap.Shows) != 1 {
		t.Fatalf("shows = %d", len(snap.Shows))
	}
	if len(snap.Entries) != 2 {
		t.Fatalf("only progress entries should export, got %d", len(snap.Entries))
	}
	for _, record := range snap.Entries {
		if record.GUID == "g3" {
			t.Fatal("untouched entry leaked into snapshot")
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	listenedAt := time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC)
	snap := &Snapshot{
		Version:   Version,
		InstallID: "install-1",
		CreatedAt: time.Now().UTC(),
		Shows:     []ShowRecord{{FeedURL: "https://example.com/a", Title: "A", Favorite: true}},
		Entries: []EntryRecord{{
			FeedURL:    "https://example.com/a",
			GUID:       "g1",
			Listened:   true,
			ListenedAt: &listenedAt,
			PositionMS: 0,
		}},
	}

	var buf bytes.Buffer
	if err := snap.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.InstallID != "install-1" || len(decoded.Shows) != 1 || len(decoded.Entries) != 1 {
		t.Fatalf("decoded = %+v", decoded)
	}
	if decoded.Entries[0].ListenedAt == nil || !decoded.Entries[0].ListenedAt.Equal(listenedAt) {
		t.Fatalf("listened at = %v", decoded.Entries[0].ListenedAt)
	}
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	if _, err := Decode(bytes.NewBufferString(`{"version": 99}`)); err == nil {
		t.Fatal("expected version error")
	}
}

func TestImportRestoresProgress(t *testing.T) {
	source := newTestDB(t)
	show := addShowWithEntries(t, source, "https://example.com/a", "g1", "g2")
	played, _ := source.GetEntryByGUID(show.ID, "g1")
	if err := source.MarkListened(played.ID, time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("mark listened: %v", err)
	}
	snap, err := Export(source, "install-1")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	// The target install has already re-fetched the feed, so the
	// entries exist but carry no progress.
	target := newTestDB(t)
	addShowWithEntries(t, target, "https://example.com/a", "g1", "g2")

	stats, err := Import(target, snap)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if stats.ShowsMatched != 1 || stats.EntriesRestored != 1 || stats.EntriesPending != 0 {
		t.Fatalf("stats = %+v", stats)
	}

	restoredShow, err := target.GetShowByURL("https://example.com/a")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	entry, err := target.GetEntryByGUID(restoredShow.ID, "g1")
	if err != nil {
		t.Fatalf("entry: %v", err)
	}
	if !entry.Listened || entry.ListenedAt == nil {
		t.Fatalf("progress not restored: %+v", entry)
	}
}

func TestImportCreatesMissingShows(t *testing.T) {
	snap := &Snapshot{
		Version: Version,
		Shows:   []ShowRecord{{FeedURL: "https://example.com/new", Title: "New Show", Favorite: true}},
		Entries: []EntryRecord{{FeedURL: "https://example.com/new", GUID: "g1", Listened: true}},
	}

	db := newTestDB(t)
	stats, err := Import(db, snap)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if stats.ShowsCreated != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	// The entry has not been fetched yet; it stays pending until a
	// refresh brings it in.
	if stats.EntriesPending != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	show, err := db.GetShowByURL("https://example.com/new")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if show == nil || !show.Favorite {
		t.Fatalf("show = %+v", show)
	}
}
