package content

import (
	"html"
	"regexp"
	"strings"
)

const (
	// ExcerptLength is the maximum number of runes taken from the plain text.
	ExcerptLength = 160

	// Ellipsis is appended when the excerpt was truncated.
	Ellipsis = "..."

	// WordsPerMinute is the reading speed used by ReadingTime.
	WordsPerMinute = 200
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// StripTags returns the plain text of markup.
//
// Every tag is replaced by a space so adjacent block elements do not fuse
// words together, HTML entities are decoded, and whitespace runs collapse to
// a single space. The result is trimmed.
func StripTags(markup string) string {
	text := tagPattern.ReplaceAllString(markup, " ")
	text = html.UnescapeString(text)
	return strings.Join(strings.Fields(text), " ")
}

// Excerpt returns a plain-text summary of markup, or nil if the markup has
// no text content.
//
// The summary is the first ExcerptLength runes of StripTags(markup),
// trimmed, with Ellipsis appended when truncation occurred. The result is
// never longer than ExcerptLength+len(Ellipsis) runes.
func Excerpt(markup string) *string {
	text := StripTags(markup)
	if text == "" {
		return nil
	}

	r := []rune(text)
	if len(r) <= ExcerptLength {
		return &text
	}

	excerpt := strings.TrimSpace(string(r[:ExcerptLength])) + Ellipsis
	return &excerpt
}

// ReadingTime estimates minutes needed to read markup: the whitespace
// delimited word count divided by WordsPerMinute, rounded up, never below 1.
func ReadingTime(markup string) int {
	words := len(strings.Fields(StripTags(markup)))
	minutes := (words + WordsPerMinute - 1) / WordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}
