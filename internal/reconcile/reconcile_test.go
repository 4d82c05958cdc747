package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"podkeep/internal/database"
	"podkeep/internal/feed"
	"podkeep/internal/testsupport"
)

func feedDocument(showTitle string, items ...string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd">
  <channel>
    <title>%s</title>
    <description>About %s</description>
    <itunes:image href="https://example.com/show.jpg"/>
    <itunes:category text="Technology"/>
    %s
  </channel>
</rss>`, showTitle, showTitle, strings.Join(items, "\n"))
}

func feedItem(guid, title string, pubDate time.Time) string {
	return fmt.Sprintf(`<item>
      <guid>%s</guid>
      <title>%s</title>
      <enclosure url="https://example.com/%s.mp3" type="audio/mpeg" length="1"/>
      <pubDate>%s</pubDate>
      <description>Notes for %s</description>
    </item>`, guid, title, guid, pubDate.Format(time.RFC1123Z), title)
}

// feedServer routes each feed URL to a body, or to an error when the
// body is empty.
func feedServer(bodies map[string]string) *http.Client {
	return &http.Client{Transport: testsupport.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		body, ok := bodies[r.URL.String()]
		if !ok || body == "" {
			return nil, errors.New("connection refused")
		}
		return testsupport.Response(http.StatusOK, body, r), nil
	})}
}

func newTestReconciler(t *testing.T, bodies map[string]string) (*Reconciler, *database.DB) {
	t.Helper()
	db, err := database.NewInMemory()
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	rec := New(
		db,
		feed.NewFetcherWithClient(feedServer(bodies)),
		feed.NewParser(),
		feed.NewSanitizer(1000),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return rec, db
}

const feedURL = "https://example.com/feed"

func TestSubscribeCreatesShowAndEntries(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	bodies := map[string]string{
		feedURL: feedDocument("Go Time",
			feedItem("g1", "Episode One", now),
			feedItem("g2", "Episode Two", now.Add(24*time.Hour)),
		),
	}
	rec, db := newTestReconciler(t, bodies)

	show, err := rec.Subscribe(context.Background(), feedURL, "")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if show.Title != "Go Time" || show.Genre != "Technology" {
		t.Fatalf("show = %+v", show)
	}

	entries, err := db.GetEntriesByShow(show.ID)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}

func TestSubscribeTwiceFails(t *testing.T) {
	bodies := map[string]string{feedURL: feedDocument("Go Time")}
	rec, _ := newTestReconciler(t, bodies)

	if _, err := rec.Subscribe(context.Background(), feedURL, ""); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	_, err := rec.Subscribe(context.Background(), feedURL, "")
	if !errors.Is(err, database.ErrShowExists) {
		t.Fatalf("expected ErrShowExists, got %v", err)
	}
}

func TestSubscribeUnreachableFeedAddsNothing(t *testing.T) {
	rec, db := newTestReconciler(t, map[string]string{})

	if _, err := rec.Subscribe(context.Background(), feedURL, ""); err == nil {
		t.Fatal("expected failure for unreachable feed")
	}
	shows, err := db.GetShows()
	if err != nil {
		t.Fatalf("shows: %v", err)
	}
	if len(shows) != 0 {
		t.Fatalf("a failed subscribe must add nothing, got %d shows", len(shows))
	}
}

func TestRefreshIsIdempotent(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	bodies := map[string]string{
		feedURL: feedDocument("Go Time",
			feedItem("g1", "Episode One", now),
			feedItem("g2", "Episode Two", now.Add(24*time.Hour)),
		),
	}
	rec, db := newTestReconciler(t, bodies)

	show, err := rec.Subscribe(context.Background(), feedURL, "")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := rec.RefreshShow(context.Background(), feedURL); err != nil {
			t.Fatalf("refresh %d: %v", i, err)
		}
	}

	entries, err := db.GetEntriesByShow(show.ID)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("repeated refresh duplicated rows: %d", len(entries))
	}
}

func TestRefreshPreservesProgress(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	bodies := map[string]string{
		feedURL: feedDocument("Go Time", feedItem("g1", "Episode One", now)),
	}
	rec, db := newTestReconciler(t, bodies)

	show, err := rec.Subscribe(context.Background(), feedURL, "")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	entry, err := db.GetEntryByGUID(show.ID, "g1")
	if err != nil {
		t.Fatalf("entry: %v", err)
	}
	listenedAt := time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC)
	if err := db.MarkListened(entry.ID, listenedAt); err != nil {
		t.Fatalf("mark listened: %v", err)
	}

	// Upstream renames the episode; the refresh must update the title
	// and leave progress alone.
	bodies[feedURL] = feedDocument("Go Time", feedItem("g1", "Episode One (remastered)", now))
	if err := rec.RefreshShow(context.Background(), feedURL); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	after, err := db.GetEntryByGUID(show.ID, "g1")
	if err != nil {
		t.Fatalf("entry: %v", err)
	}
	if after.Title != "Episode One (remastered)" {
		t.Errorf("title = %q", after.Title)
	}
	if !after.Listened || after.ListenedAt == nil || !after.ListenedAt.Equal(listenedAt) {
		t.Errorf("progress regressed: %+v", after)
	}
}

func TestGuidFallbackCollapsesOnRefetch(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	noGuidItem := fmt.Sprintf(`<item>
      <title>Episode 1</title>
      <link>https://example.com/e1</link>
      <pubDate>%s</pubDate>
    </item>`, now.Format(time.RFC1123Z))
	bodies := map[string]string{feedURL: feedDocument("Go Time", noGuidItem)}
	rec, db := newTestReconciler(t, bodies)

	show, err := rec.Subscribe(context.Background(), feedURL, "")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := rec.RefreshShow(context.Background(), feedURL); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	entries, err := db.GetEntriesByShow(show.ID)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("guid-less entry should collapse by title, got %d rows", len(entries))
	}
	if entries[0].GUID != "Episode 1" {
		t.Fatalf("guid = %q, want the title", entries[0].GUID)
	}
}

func TestEntryInheritsShowImage(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	bodies := map[string]string{
		feedURL: feedDocument("Go Time", feedItem("g1", "Episode One", now)),
	}
	rec, db := newTestReconciler(t, bodies)

	show, err := rec.Subscribe(context.Background(), feedURL, "")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	entries, err := db.GetEntriesByShow(show.ID)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if entries[0].ImageURL != "https://example.com/show.jpg" {
		t.Fatalf("entry image should inherit from show, got %q", entries[0].ImageURL)
	}
}

func TestGenrePrecedence(t *testing.T) {
	bodies := map[string]string{feedURL: feedDocument("Go Time")}
	rec, _ := newTestReconciler(t, bodies)

	show, err := rec.Subscribe(context.Background(), feedURL, "Engineering")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if show.Genre != "Engineering" {
		t.Fatalf("override should beat parsed genre, got %q", show.Genre)
	}
}

func TestGenreDefaultsToUncategorized(t *testing.T) {
	plain := `<?xml version="1.0"?><rss version="2.0"><channel><title>Plain</title></channel></rss>`
	bodies := map[string]string{feedURL: plain}
	rec, _ := newTestReconciler(t, bodies)

	show, err := rec.Subscribe(context.Background(), feedURL, "")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if show.Genre != "Uncategorized" {
		t.Fatalf("genre = %q", show.Genre)
	}
}

func TestRefreshKeepsMetadataOnEmptyParse(t *testing.T) {
	bodies := map[string]string{
		feedURL: feedDocument("Go Time"),
	}
	rec, db := newTestReconciler(t, bodies)
	if _, err := rec.Subscribe(context.Background(), feedURL, ""); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	// A degraded fetch with no title must not blank stored metadata.
	bodies[feedURL] = `<?xml version="1.0"?><rss version="2.0"><channel></channel></rss>`
	if err := rec.RefreshShow(context.Background(), feedURL); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	show, err := db.GetShowByURL(feedURL)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if show.Title != "Go Time" || show.ImageURL == "" {
		t.Fatalf("metadata was clobbered: %+v", show)
	}
}

func TestBatchRefreshSurvivesOneFailure(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	urls := []string{
		"https://example.com/one",
		"https://example.com/two",
		"https://example.com/three",
	}
	bodies := map[string]string{
		urls[0]: feedDocument("One", feedItem("a1", "A", now)),
		urls[1]: feedDocument("Two", feedItem("b1", "B", now)),
		urls[2]: feedDocument("Three", feedItem("c1", "C", now)),
	}
	rec, db := newTestReconciler(t, bodies)
	for _, u := range urls {
		if _, err := rec.Subscribe(context.Background(), u, ""); err != nil {
			t.Fatalf("Subscribe %s: %v", u, err)
		}
	}

	// Second show's feed goes dark and the others grow an episode.
	bodies[urls[0]] = feedDocument("One", feedItem("a1", "A", now), feedItem("a2", "A2", now.Add(time.Hour)))
	delete(bodies, urls[1])
	bodies[urls[2]] = feedDocument("Three", feedItem("c1", "C", now), feedItem("c2", "C2", now.Add(time.Hour)))

	summary, err := rec.RefreshAll(context.Background())
	if err != nil {
		t.Fatalf("RefreshAll: %v", err)
	}
	if summary.Refreshed != 2 || summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	for _, u := range []string{urls[0], urls[2]} {
		show, err := db.GetShowByURL(u)
		if err != nil {
			t.Fatalf("show: %v", err)
		}
		entries, err := db.GetEntriesByShow(show.ID)
		if err != nil {
			t.Fatalf("entries: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("%s should have 2 entries, got %d", u, len(entries))
		}
	}
}

func TestUpNextPicksEarliestUnlistenedPerShow(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	bodies := map[string]string{
		feedURL: feedDocument("Go Time",
			feedItem("g1", "Oldest", now),
			feedItem("g2", "Middle", now.Add(24*time.Hour)),
			feedItem("g3", "Newest", now.Add(48*time.Hour)),
		),
	}
	rec, db := newTestReconciler(t, bodies)

	show, err := rec.Subscribe(context.Background(), feedURL, "")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	oldest, err := db.GetEntryByGUID(show.ID, "g1")
	if err != nil {
		t.Fatalf("entry: %v", err)
	}
	if err := db.MarkListened(oldest.ID, time.Now()); err != nil {
		t.Fatalf("mark listened: %v", err)
	}

	items, err := rec.UpNext()
	if err != nil {
		t.Fatalf("UpNext: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one item, got %d", len(items))
	}
	if items[0].Entry.Title != "Middle" {
		t.Fatalf("up next = %q, want Middle", items[0].Entry.Title)
	}
}
