package progress

import (
	"testing"
	"time"

	"podkeep/internal/database"
	"podkeep/pkg/models"
)

func setupEntry(t *testing.T) (*database.DB, int64) {
	t.Helper()
	db, err := database.NewInMemory()
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	show := &models.Show{Title: "Show", FeedURL: "https://example.com/feed"}
	if err := db.AddShow(show); err != nil {
		t.Fatalf("adding show: %v", err)
	}
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	entry := &models.Entry{ShowID: show.ID, Title: "Ep", GUID: "g1", PubDate: time.Now()}
	if err := db.UpsertEntryTx(tx, entry); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	stored, err := db.GetEntryByGUID(show.ID, "g1")
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	return db, stored.ID
}

func TestListenedToggleInvariant(t *testing.T) {
	db, entryID := setupEntry(t)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewTrackerWithClock(db, func() time.Time { return now })

	if err := tracker.ReportProgress(entryID, 90000, nil); err != nil {
		t.Fatalf("report: %v", err)
	}
	if err := tracker.SetListened(entryID, true); err != nil {
		t.Fatalf("set listened: %v", err)
	}

	entry, err := db.GetEntryByID(entryID)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if !entry.Listened || entry.ListenedAt == nil || !entry.ListenedAt.Equal(now) {
		t.Fatalf("after listen: %+v", entry)
	}
	if entry.PositionMS != 0 {
		t.Fatalf("listening should reset position, got %d", entry.PositionMS)
	}
	if entry.LastPlayed == nil || !entry.LastPlayed.Equal(now) {
		t.Fatalf("last played = %v", entry.LastPlayed)
	}

	if err := tracker.SetListened(entryID, false); err != nil {
		t.Fatalf("set unlistened: %v", err)
	}
	entry, err = db.GetEntryByID(entryID)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if entry.Listened || entry.ListenedAt != nil || entry.PositionMS != 0 {
		t.Fatalf("after unlisten: %+v", entry)
	}
}

func TestReportProgressNeverFlipsListened(t *testing.T) {
	db, entryID := setupEntry(t)
	tracker := NewTracker(db)

	if err := tracker.ReportProgress(entryID, 123000, nil); err != nil {
		t.Fatalf("report: %v", err)
	}
	entry, err := db.GetEntryByID(entryID)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if entry.Listened || entry.ListenedAt != nil {
		t.Fatalf("progress report must not mark listened: %+v", entry)
	}
	if entry.PositionMS != 123000 {
		t.Fatalf("position = %d", entry.PositionMS)
	}
	if entry.LastPlayed == nil {
		t.Fatal("last played should be stamped")
	}
}

func TestReportProgressDurationHint(t *testing.T) {
	db, entryID := setupEntry(t)
	tracker := NewTracker(db)

	hint := int64(3600000)
	if err := tracker.ReportProgress(entryID, 1000, &hint); err != nil {
		t.Fatalf("report: %v", err)
	}
	entry, err := db.GetEntryByID(entryID)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if entry.DurationMS == nil || *entry.DurationMS != hint {
		t.Fatalf("duration hint not applied: %v", entry.DurationMS)
	}
}

func TestReportProgressRejectsNegative(t *testing.T) {
	db, entryID := setupEntry(t)
	if err := NewTracker(db).ReportProgress(entryID, -1, nil); err == nil {
		t.Fatal("expected error for negative position")
	}
}

func TestSetListenedUnknownEntry(t *testing.T) {
	db, _ := setupEntry(t)
	err := NewTracker(db).SetListened(9999, true)
	if err != database.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
