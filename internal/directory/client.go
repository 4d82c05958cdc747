// Package directory queries a remote podcast directory for
// subscribable feeds. All calls are read-only against the directory.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"podkeep/pkg/models"
)

type Client struct {
	searchURL string
	lookupURL string
	topURL    string
	client    *http.Client
}

func NewClient(searchURL, lookupURL, topURL string) *Client {
	return &Client{
		searchURL: searchURL,
		lookupURL: lookupURL,
		topURL:    topURL,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// NewClientWithHTTP is used by tests to inject a fake transport.
func NewClientWithHTTP(searchURL, lookupURL, topURL string, client *http.Client) *Client {
	return &Client{searchURL: searchURL, lookupURL: lookupURL, topURL: topURL, client: client}
}

type searchResponse struct {
	ResultCount int          `json:"resultCount"`
	Results     []searchItem `json:"results"`
}

type searchItem struct {
	CollectionID     int64    `json:"collectionId"`
	CollectionName   string   `json:"collectionName"`
	ArtistName       string   `json:"artistName"`
	FeedURL          string   `json:"feedUrl"`
	ArtworkURL600    string   `json:"artworkUrl600"`
	ArtworkURL100    string   `json:"artworkUrl100"`
	PrimaryGenreName string   `json:"primaryGenreName"`
	GenreIDs         []string `json:"genreIds"`
}

func (i searchItem) toResult() models.SearchResult {
	result := models.SearchResult{
		DirectoryID: i.CollectionID,
		Title:       i.CollectionName,
		Artist:      i.ArtistName,
		FeedURL:     i.FeedURL,
		ImageURL:    i.ArtworkURL600,
		GenreName:   i.PrimaryGenreName,
	}
	if result.ImageURL == "" {
		result.ImageURL = i.ArtworkURL100
	}
	if len(i.GenreIDs) > 0 {
		if id, err := strconv.ParseInt(i.GenreIDs[0], 10, 64); err == nil {
			result.GenreID = id
		}
	}
	return result
}

// Search queries the directory by keyword.
func (c *Client) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	params := url.Values{}
	params.Set("media", "podcast")
	params.Set("term", query)

	var resp searchResponse
	if err := c.getJSON(ctx, c.searchURL+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(resp.Results))
	for _, item := range resp.Results {
		results = append(results, item.toResult())
	}
	return results, nil
}

// Lookup resolves a directory id to a full result, typically to obtain
// the feed URL a search result omitted. Returns nil when the id is
// unknown to the directory.
func (c *Client) Lookup(ctx context.Context, directoryID int64) (*models.SearchResult, error) {
	params := url.Values{}
	params.Set("id", strconv.FormatInt(directoryID, 10))

	var resp searchResponse
	if err := c.getJSON(ctx, c.lookupURL+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}

	result := resp.Results[0].toResult()
	return &result, nil
}

// Top chart entries come back in the directory's Atom-flavored JSON,
// which never includes feed URLs; subscribing from one requires a
// Lookup by the embedded directory id.
type topResponse struct {
	Feed struct {
		Entry []topEntry `json:"entry"`
	} `json:"feed"`
}

type topEntry struct {
	Name struct {
		Label string `json:"label"`
	} `json:"im:name"`
	Artist struct {
		Label string `json:"label"`
	} `json:"im:artist"`
	Images []struct {
		Label string `json:"label"`
	} `json:"im:image"`
	ID struct {
		Attributes struct {
			ID string `json:"im:id"`
		} `json:"attributes"`
	} `json:"id"`
	Category struct {
		Attributes struct {
			ID    string `json:"im:id"`
			Label string `json:"label"`
		} `json:"attributes"`
	} `json:"category"`
}

// TopShows lists the directory's current top podcasts, optionally
// restricted to a genre (0 means all genres).
func (c *Client) TopShows(ctx context.Context, genreID int64, limit int) ([]models.SearchResult, error) {
	if limit <= 0 {
		limit = 25
	}
	endpoint := fmt.Sprintf("%s/limit=%d", c.topURL, limit)
	if genreID > 0 {
		endpoint += fmt.Sprintf("/genre=%d", genreID)
	}
	endpoint += "/json"

	var resp topResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(resp.Feed.Entry))
	for _, entry := range resp.Feed.Entry {
		result := models.SearchResult{
			Title:     entry.Name.Label,
			Artist:    entry.Artist.Label,
			GenreName: entry.Category.Attributes.Label,
		}
		if len(entry.Images) > 0 {
			result.ImageURL = entry.Images[len(entry.Images)-1].Label
		}
		if id, err := strconv.ParseInt(entry.ID.Attributes.ID, 10, 64); err == nil {
			result.DirectoryID = id
		}
		if id, err := strconv.ParseInt(entry.Category.Attributes.ID, 10, 64); err == nil {
			result.GenreID = id
		}
		results = append(results, result)
	}
	return results, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("querying directory: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("directory error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding directory response: %w", err)
	}
	return nil
}
