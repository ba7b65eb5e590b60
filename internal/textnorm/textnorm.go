// Package textnorm folds text into the canonical form used for catalogue matching.
package textnorm

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// A transform.Chain keeps internal buffers, so each caller borrows its own.
var foldPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		)
	},
}

// Normalize lowercases s, strips combining diacritics and trims surrounding
// whitespace. "Atención" and "ATENCION" both become "atencion".
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	if isFolded(s) {
		return strings.TrimSpace(s)
	}

	s = strings.ToLower(s)

	t := foldPool.Get().(transform.Transformer)
	defer func() {
		t.Reset()
		foldPool.Put(t)
	}()

	out, _, err := transform.String(t, s)
	if err != nil {
		// Only reachable on invalid transformer state; lowercase is still comparable.
		out = s
	}
	return strings.TrimSpace(out)
}

// Contains reports whether the normalized form of s contains the normalized form of sub.
func Contains(s, sub string) bool {
	return strings.Contains(Normalize(s), Normalize(sub))
}

// isFolded reports whether s is ASCII with no uppercase letters.
func isFolded(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x80 || ('A' <= c && c <= 'Z') {
			return false
		}
	}
	return true
}
