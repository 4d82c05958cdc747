// Package progress records playback position and listened state,
// independent of feed refresh.
package progress

import (
	"fmt"
	"time"

	"podkeep/internal/database"
)

// Tracker mutates per-entry listening state. Marking listened and
// reporting position are separate verbs: position reports never flip
// the listened flag, and no threshold policy lives down here.
type Tracker struct {
	db  *database.DB
	now func() time.Time
}

func NewTracker(db *database.DB) *Tracker {
	return &Tracker{db: db, now: time.Now}
}

// NewTrackerWithClock is used by tests to pin timestamps.
func NewTrackerWithClock(db *database.DB, now func() time.Time) *Tracker {
	return &Tracker{db: db, now: now}
}

// SetListened marks an entry listened or unlistened. Listening stamps
// listened_at and last_played and resets the position; un-listening
// clears listened_at and resets the position.
func (t *Tracker) SetListened(entryID int64, listened bool) error {
	if listened {
		return t.db.MarkListened(entryID, t.now())
	}
	return t.db.MarkUnlistened(entryID)
}

// ReportProgress records the current playback position, typically once
// a second while playing. An optional duration hint carries a length
// the player discovered that the feed did not.
func (t *Tracker) ReportProgress(entryID int64, positionMS int64, durationHintMS *int64) error {
	if positionMS < 0 {
		return fmt.Errorf("negative position %d", positionMS)
	}
	if durationHintMS != nil && *durationHintMS <= 0 {
		durationHintMS = nil
	}
	return t.db.UpdatePosition(entryID, positionMS, durationHintMS, t.now())
}
