package database

import (
	"database/sql"
	"fmt"
	"time"

	"podkeep/pkg/models"
)

const entryColumns = "id, show_id, title, guid, pub_date, audio_url, image_url, episode_number, duration_ms, description, listened, listened_at, position_ms, last_played"

func scanEntry(row interface{ Scan(...any) error }) (*models.Entry, error) {
	var entry models.Entry
	var episodeNumber sql.NullInt64
	var durationMS sql.NullInt64
	var listenedAt, lastPlayed sql.NullTime
	err := row.Scan(
		&entry.ID, &entry.ShowID, &entry.Title, &entry.GUID, &entry.PubDate,
		&entry.AudioURL, &entry.ImageURL, &episodeNumber, &durationMS,
		&entry.Description, &entry.Listened, &listenedAt, &entry.PositionMS, &lastPlayed,
	)
	if err != nil {
		return nil, err
	}
	if episodeNumber.Valid {
		n := int(episodeNumber.Int64)
		entry.EpisodeNumber = &n
	}
	if durationMS.Valid {
		d := durationMS.Int64
		entry.DurationMS = &d
	}
	if listenedAt.Valid {
		t := listenedAt.Time
		entry.ListenedAt = &t
	}
	if lastPlayed.Valid {
		t := lastPlayed.Time
		entry.LastPlayed = &t
	}
	return &entry, nil
}

// UpsertEntryTx inserts an entry or, when (show_id, guid) already
// exists, refreshes only its descriptive fields. Listened state,
// listened_at, playback position and last_played are never written by
// the upsert; a feed refresh cannot regress user progress.
func (db *DB) UpsertEntryTx(tx *sql.Tx, entry *models.Entry) error {
	_, err := tx.Exec(`
		INSERT INTO entries (show_id, title, guid, pub_date, audio_url, image_url, episode_number, duration_ms, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (show_id, guid) DO UPDATE SET
			title = excluded.title,
			pub_date = excluded.pub_date,
			audio_url = excluded.audio_url,
			image_url = excluded.image_url,
			episode_number = excluded.episode_number,
			duration_ms = excluded.duration_ms,
			description = excluded.description`,
		entry.ShowID, entry.Title, entry.GUID, entry.PubDate, entry.AudioURL,
		entry.ImageURL, nullableInt(entry.EpisodeNumber), nullableInt64(entry.DurationMS),
		entry.Description,
	)
	if err != nil {
		return fmt.Errorf("upserting entry: %w", err)
	}
	return nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

// GetEntriesByShow retrieves a show's entries in ascending publish order.
func (db *DB) GetEntriesByShow(showID int64) ([]models.Entry, error) {
	rows, err := db.Query("SELECT "+entryColumns+" FROM entries WHERE show_id = ? ORDER BY pub_date ASC, id ASC", showID)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var entries []models.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, *entry)
	}

	return entries, rows.Err()
}

// GetEntryByID retrieves a single entry, nil when absent.
func (db *DB) GetEntryByID(id int64) (*models.Entry, error) {
	row := db.QueryRow("SELECT "+entryColumns+" FROM entries WHERE id = ?", id)
	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying entry: %w", err)
	}
	return entry, nil
}

// GetEntryByGUID retrieves one of a show's entries by guid, nil when absent.
func (db *DB) GetEntryByGUID(showID int64, guid string) (*models.Entry, error) {
	row := db.QueryRow("SELECT "+entryColumns+" FROM entries WHERE show_id = ? AND guid = ?", showID, guid)
	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying entry: %w", err)
	}
	return entry, nil
}

// NextUnlistened returns a show's earliest unlistened entry by publish
// date, nil when every entry has been listened to.
func (db *DB) NextUnlistened(showID int64) (*models.Entry, error) {
	row := db.QueryRow("SELECT "+entryColumns+" FROM entries WHERE show_id = ? AND listened = 0 ORDER BY pub_date ASC, id ASC LIMIT 1", showID)
	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying next unlistened: %w", err)
	}
	return entry, nil
}

// MarkListened sets the listened flag, stamping listened_at and
// last_played and resetting the playback position.
func (db *DB) MarkListened(id int64, now time.Time) error {
	result, err := db.Exec(
		"UPDATE entries SET listened = 1, listened_at = ?, last_played = ?, position_ms = 0 WHERE id = ?",
		now, now, id,
	)
	if err != nil {
		return fmt.Errorf("marking entry listened: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkUnlistened clears the listened flag, listened_at and the playback
// position.
func (db *DB) MarkUnlistened(id int64) error {
	result, err := db.Exec(
		"UPDATE entries SET listened = 0, listened_at = NULL, position_ms = 0 WHERE id = ?",
		id,
	)
	if err != nil {
		return fmt.Errorf("marking entry unlistened: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePosition records playback progress. The listened flag and
// listened_at are deliberately untouched. A non-nil duration hint fills
// in the entry duration discovered by the player.
func (db *DB) UpdatePosition(id int64, positionMS int64, durationHintMS *int64, now time.Time) error {
	var result sql.Result
	var err error
	if durationHintMS != nil {
		result, err = db.Exec(
			"UPDATE entries SET position_ms = ?, last_played = ?, duration_ms = ? WHERE id = ?",
			positionMS, now, *durationHintMS, id,
		)
	} else {
		result, err = db.Exec(
			"UPDATE entries SET position_ms = ?, last_played = ? WHERE id = ?",
			positionMS, now, id,
		)
	}
	if err != nil {
		return fmt.Errorf("updating position: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RestoreProgress re-applies snapshot progress onto an existing entry.
func (db *DB) RestoreProgress(id int64, listened bool, listenedAt *time.Time, positionMS int64, lastPlayed *time.Time) error {
	result, err := db.Exec(
		"UPDATE entries SET listened = ?, listened_at = ?, position_ms = ?, last_played = ? WHERE id = ?",
		listened, nullableTime(listenedAt), positionMS, nullableTime(lastPlayed), id,
	)
	if err != nil {
		return fmt.Errorf("restoring progress: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return *v
}

// DeleteOldListenedEntries removes listened entries published before the
// cutoff and reports how many rows went away. Unlistened entries are
// kept regardless of age.
func (db *DB) DeleteOldListenedEntries(cutoff time.Time) (int64, error) {
	result, err := db.Exec("DELETE FROM entries WHERE listened = 1 AND pub_date < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting old entries: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted entries: %w", err)
	}
	return n, nil
}

// ProgressEntry pairs an entry carrying user progress with its owning
// show's feed URL, the shape the snapshot format wants.
type ProgressEntry struct {
	FeedURL string
	Entry   models.Entry
}

// GetProgressEntries retrieves every entry that is listened or has a
// non-zero playback position, with the owning show's feed URL.
func (db *DB) GetProgressEntries() ([]ProgressEntry, error) {
	rows, err := db.Query(`
		SELECT s.feed_url, e.id, e.show_id, e.title, e.guid, e.pub_date, e.audio_url, e.image_url,
		       e.episode_number, e.duration_ms, e.description, e.listened, e.listened_at, e.position_ms, e.last_played
		FROM entries e
		JOIN shows s ON s.id = e.show_id
		WHERE e.listened = 1 OR e.position_ms > 0
		ORDER BY s.feed_url, e.pub_date ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying progress entries: %w", err)
	}
	defer rows.Close()

	var out []ProgressEntry
	for rows.Next() {
		var feedURL string
		var entry models.Entry
		var episodeNumber, durationMS sql.NullInt64
		var listenedAt, lastPlayed sql.NullTime
		err := rows.Scan(
			&feedURL, &entry.ID, &entry.ShowID, &entry.Title, &entry.GUID, &entry.PubDate,
			&entry.AudioURL, &entry.ImageURL, &episodeNumber, &durationMS,
			&entry.Description, &entry.Listened, &listenedAt, &entry.PositionMS, &lastPlayed,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning progress entry: %w", err)
		}
		if episodeNumber.Valid {
			n := int(episodeNumber.Int64)
			entry.EpisodeNumber = &n
		}
		if durationMS.Valid {
			d := durationMS.Int64
			entry.DurationMS = &d
		}
		if listenedAt.Valid {
			t := listenedAt.Time
			entry.ListenedAt = &t
		}
		if lastPlayed.Valid {
			t := lastPlayed.Time
			entry.LastPlayed = &t
		}
		out = append(out, ProgressEntry{FeedURL: feedURL, Entry: entry})
	}

	return out, rows.Err()
}
