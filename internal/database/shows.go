package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"podkeep/pkg/models"
)

// AddShow inserts a new show and fills in its assigned ID.
func (db *DB) AddShow(show *models.Show) error {
	if show.Genre == "" {
		show.Genre = "Uncategorized"
	}
	result, err := db.Exec(
		"INSERT INTO shows (title, feed_url, image_url, description, genre, favorite, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		show.Title, show.FeedURL, show.ImageURL, show.Description, show.Genre, show.Favorite, time.Now(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrShowExists
		}
		return fmt.Errorf("inserting show: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}

	show.ID = id
	return nil
}

// InsertShowTx inserts a new show inside the caller's transaction so a
// first subscribe commits the show row together with its entries.
func (db *DB) InsertShowTx(tx *sql.Tx, show *models.Show) error {
	if show.Genre == "" {
		show.Genre = "Uncategorized"
	}
	result, err := tx.Exec(
		"INSERT INTO shows (title, feed_url, image_url, description, genre, favorite, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		show.Title, show.FeedURL, show.ImageURL, show.Description, show.Genre, show.Favorite, time.Now(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrShowExists
		}
		return fmt.Errorf("inserting show: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}

	show.ID = id
	return nil
}

const showColumns = "id, title, feed_url, image_url, description, genre, favorite, updated_at"

func scanShow(row interface{ Scan(...any) error }) (*models.Show, error) {
	var show models.Show
	err := row.Scan(&show.ID, &show.Title, &show.FeedURL, &show.ImageURL, &show.Description, &show.Genre, &show.Favorite, &show.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &show, nil
}

// GetShowByURL retrieves a show by its feed URL, nil when absent.
func (db *DB) GetShowByURL(feedURL string) (*models.Show, error) {
	row := db.QueryRow("SELECT "+showColumns+" FROM shows WHERE feed_url = ?", feedURL)
	show, err := scanShow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying show: %w", err)
	}
	return show, nil
}

// GetShowByID retrieves a single show, nil when absent.
func (db *DB) GetShowByID(id int64) (*models.Show, error) {
	row := db.QueryRow("SELECT "+showColumns+" FROM shows WHERE id = ?", id)
	show, err := scanShow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying show: %w", err)
	}
	return show, nil
}

// GetShows retrieves all subscribed shows
func (db *DB) GetShows() ([]models.Show, error) {
	rows, err := db.Query("SELECT " + showColumns + " FROM shows ORDER BY title COLLATE NOCASE")
	if err != nil {
		return nil, fmt.Errorf("querying shows: %w", err)
	}
	defer rows.Close()

	var shows []models.Show
	for rows.Next() {
		show, err := scanShow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning show: %w", err)
		}
		shows = append(shows, *show)
	}

	return shows, rows.Err()
}

// UpdateShowMetadataTx refreshes a show's mutable fields inside the
// caller's transaction and bumps updated_at.
func (db *DB) UpdateShowMetadataTx(tx *sql.Tx, id int64, title, imageURL, description, genre string) error {
	_, err := tx.Exec(
		"UPDATE shows SET title = ?, image_url = ?, description = ?, genre = ?, updated_at = ? WHERE id = ?",
		title, imageURL, description, genre, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("updating show: %w", err)
	}
	return nil
}

// SetFavorite toggles a show's favorite flag.
func (db *DB) SetFavorite(id int64, favorite bool) error {
	result, err := db.Exec("UPDATE shows SET favorite = ? WHERE id = ?", favorite, id)
	if err != nil {
		return fmt.Errorf("updating favorite: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteShow removes a show; its entries cascade.
func (db *DB) DeleteShow(id int64) error {
	result, err := db.Exec("DELETE FROM shows WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting show: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
