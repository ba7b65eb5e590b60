package catalog

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/starford/bomberos/internal/textnorm"
)

// MinQueryLength is the shortest normalized query that produces results.
// Shorter queries mean "hide results", not "no matches".
const MinQueryLength = 2

// Highlight markers wrapped around matched spans.
const (
	MarkOpen  = "<strong>"
	MarkClose = "</strong>"
)

// Searchable reports whether query is long enough to run a search.
func Searchable(query string) bool {
	return utf8.RuneCountInString(textnorm.Normalize(query)) >= MinQueryLength
}

// Search returns every record whose normalized title or description contains
// the normalized query, in catalogue order. It returns an empty slice when the
// normalized query is shorter than MinQueryLength.
func Search(query string, records []Record) []Record {
	q := textnorm.Normalize(query)
	if utf8.RuneCountInString(q) < MinQueryLength {
		return []Record{}
	}

	out := []Record{}
	for _, r := range records {
		if strings.Contains(textnorm.Normalize(r.Title), q) ||
			strings.Contains(textnorm.Normalize(r.Description), q) {
			out = append(out, r)
		}
	}
	return out
}

// Highlight wraps every case-insensitive occurrence of query in text with
// MarkOpen/MarkClose. The query is matched literally.
func Highlight(text, query string) string {
	return HighlightWith(text, query, MarkOpen, MarkClose)
}

// HighlightWith is Highlight with caller-supplied markers.
func HighlightWith(text, query, openMark, closeMark string) string {
	if query == "" || text == "" {
		return text
	}
	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(query))
	if err != nil {
		return text
	}
	return re.ReplaceAllStringFunc(text, func(m string) string {
		return openMark + m + closeMark
	})
}
