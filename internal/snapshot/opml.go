package snapshot

import (
	"encoding/xml"
	"fmt"
	"io"

	"podkeep/pkg/models"
)

// OPML is the interchange format podcast apps trade subscription lists
// in. Only the feed URL and title travel; progress does not.

type opmlDocument struct {
	XMLName xml.Name   `xml:"opml"`
	Version string     `xml:"version,attr"`
	Head    opmlHead   `xml:"head"`
	Body    opmlBody   `xml:"body"`
}

type opmlHead struct {
	Title string `xml:"title"`
}

type opmlBody struct {
	Outlines []opmlOutline `xml:"outline"`
}

type opmlOutline struct {
	Text     string        `xml:"text,attr"`
	Title    string        `xml:"title,attr,omitempty"`
	Type     string        `xml:"type,attr,omitempty"`
	XMLURL   string        `xml:"xmlUrl,attr,omitempty"`
	Children []opmlOutline `xml:"outline"`
}

// ExportOPML writes the subscription list as OPML.
func ExportOPML(shows []models.Show, w io.Writer) error {
	doc := opmlDocument{
		Version: "2.0",
		Head:    opmlHead{Title: "podkeep subscriptions"},
	}
	for _, show := range shows {
		doc.Body.Outlines = append(doc.Body.Outlines, opmlOutline{
			Text:   show.Title,
			Title:  show.Title,
			Type:   "rss",
			XMLURL: show.FeedURL,
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("writing opml: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding opml: %w", err)
	}
	return nil
}

// ParseOPML extracts every feed outline, walking nested groups.
func ParseOPML(r io.Reader) ([]models.Show, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading opml: %w", err)
	}
	var doc opmlDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing opml: %w", err)
	}

	var shows []models.Show
	collectOutlines(&shows, doc.Body.Outlines)
	return shows, nil
}

func collectOutlines(shows *[]models.Show, outlines []opmlOutline) {
	for _, outline := range outlines {
		if outline.XMLURL != "" {
			title := outline.Title
			if title == "" {
				title = outline.Text
			}
			*shows = append(*shows, models.Show{Title: title, FeedURL: outline.XMLURL})
		}
		collectOutlines(shows, outline.Children)
	}
}
