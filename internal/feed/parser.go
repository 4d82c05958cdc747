package feed

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"podkeep/pkg/models"
)

// Parser normalizes RSS/Atom podcast feeds into ParsedShow/ParsedEntry
// values. The underlying XML walk is gofeed's; this layer owns the
// field-resolution rules the rest of the pipeline depends on.
type Parser struct {
	parser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{parser: gofeed.NewParser()}
}

// pubDate layouts tried in order when the feed's own date string did
// not match gofeed's parser. RFC-822 variants first, then ISO-8601.
var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Parse decodes a raw feed document. A document-level decode failure is
// returned as an error; per-field oddities degrade to zero values
// instead (missing guid falls back to the entry title, a malformed date
// becomes the epoch, a non-numeric episode number becomes nil).
func (p *Parser) Parse(raw string) (*models.ParsedShow, []models.ParsedEntry, error) {
	f, err := p.parser.ParseString(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing feed: %w", err)
	}

	show := &models.ParsedShow{
		Title:       strings.TrimSpace(f.Title),
		Description: strings.TrimSpace(f.Description),
	}
	if f.Image != nil && f.Image.URL != "" {
		show.ImageURL = f.Image.URL
	} else if f.ITunesExt != nil && f.ITunesExt.Image != "" {
		show.ImageURL = f.ITunesExt.Image
	}
	if f.ITunesExt != nil && len(f.ITunesExt.Categories) > 0 && f.ITunesExt.Categories[0] != nil {
		show.Genre = f.ITunesExt.Categories[0].Text
	} else if len(f.Categories) > 0 {
		show.Genre = f.Categories[0]
	}

	entries := make([]models.ParsedEntry, 0, len(f.Items))
	for _, item := range f.Items {
		if item == nil {
			continue
		}
		entries = append(entries, parseItem(item))
	}

	return show, entries, nil
}

func parseItem(item *gofeed.Item) models.ParsedEntry {
	entry := models.ParsedEntry{
		Title:       strings.TrimSpace(item.Title),
		Description: item.Description,
	}

	// A feed without stable guids degrades to title identity. Two
	// guid-less entries sharing a title collapse into one; that
	// collision is accepted, not detected.
	entry.GUID = strings.TrimSpace(item.GUID)
	if entry.GUID == "" {
		entry.GUID = entry.Title
	}

	// Enclosure always wins once set; the item link is only a fallback.
	for _, enc := range item.Enclosures {
		if enc != nil && enc.URL != "" {
			entry.AudioURL = enc.URL
			break
		}
	}
	if entry.AudioURL == "" {
		entry.AudioURL = item.Link
	}

	if item.ITunesExt != nil {
		entry.ImageURL = item.ITunesExt.Image
		entry.EpisodeNumber = parseEpisodeNumber(item.ITunesExt.Episode)
		entry.DurationMS = ParseDurationMS(item.ITunesExt.Duration)
		if entry.Description == "" {
			entry.Description = item.ITunesExt.Summary
		}
	}

	entry.PubDate = resolvePubDate(item)
	return entry
}

func resolvePubDate(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	raw := strings.TrimSpace(item.Published)
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	// Unknown dates sort as oldest rather than failing the entry.
	return time.Unix(0, 0).UTC()
}

func parseEpisodeNumber(s string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

// ParseDurationMS converts the three textual duration forms podcast
// feeds use — plain seconds, "MM:SS" and "HH:MM:SS" — to milliseconds.
// Anything else yields nil.
func ParseDurationMS(s string) *int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if seconds, err := strconv.Atoi(s); err == nil {
		if seconds < 0 {
			return nil
		}
		ms := int64(seconds) * 1000
		return &ms
	}

	parts := strings.Split(s, ":")
	var hours, minutes, seconds int
	var err error
	switch len(parts) {
	case 2:
		if minutes, err = strconv.Atoi(parts[0]); err != nil {
			return nil
		}
		if seconds, err = strconv.Atoi(parts[1]); err != nil {
			return nil
		}
	case 3:
		if hours, err = strconv.Atoi(parts[0]); err != nil {
			return nil
		}
		if minutes, err = strconv.Atoi(parts[1]); err != nil {
			return nil
		}
		if seconds, err = strconv.Atoi(parts[2]); err != nil {
			return nil
		}
	default:
		return nil
	}
	if hours < 0 || minutes < 0 || seconds < 0 {
		return nil
	}

	ms := (int64(hours)*3600 + int64(minutes)*60 + int64(seconds)) * 1000
	return &ms
}
