package feed

import (
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// Sanitizer converts feed HTML descriptions to markdown and bounds
// their length before storage. The bound is a storage-economy knob, not
// a correctness requirement.
type Sanitizer struct {
	converter *md.Converter
	maxLen    int
}

func NewSanitizer(maxLen int) *Sanitizer {
	return &Sanitizer{
		converter: md.NewConverter("", true, nil),
		maxLen:    maxLen,
	}
}

// Clean converts HTML to markdown and truncates to the configured
// length. Conversion failure falls back to the raw input text.
func (s *Sanitizer) Clean(html string) string {
	text := html
	if converted, err := s.converter.ConvertString(html); err == nil {
		text = converted
	}
	text = strings.TrimSpace(text)
	return Truncate(text, s.maxLen)
}

// Truncate bounds a string to max runes, appending an ellipsis when it
// had to cut.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}
