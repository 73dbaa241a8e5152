package wordmatch

import (
	"strings"
	"unicode"
)

// DefaultHitLimit bounds how many banned words a single scan reports.
const DefaultHitLimit = 10

// Matcher pairs a banned word as the admin entered it with its
// normalized form used for substring scanning.
type Matcher struct {
	Original   string
	Normalized string
}

// Normalize strips every rune outside ASCII letters, ASCII digits and
// Hangul syllables, then lower-cases the result. Whitespace and
// punctuation disappear entirely, so "바 보" and "바보" normalize to the
// same string. Idempotent.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(unicode.ToLower(r))
		case r >= 0xAC00 && r <= 0xD7A3:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Compile builds one literal matcher per word. Words that normalize to
// the empty string are dropped since they would match any message.
func Compile(words []string) []Matcher {
	out := make([]Matcher, 0, len(words))
	for _, w := range words {
		n := Normalize(w)
		if n == "" {
			continue
		}
		out = append(out, Matcher{Original: w, Normalized: n})
	}
	return out
}

// FindHits returns the original spellings of the first limit matchers
// whose normalized form appears in the already-normalized content.
// Scanning stops once limit hits are collected. Empty content never
// matches.
func FindHits(normalized string, matchers []Matcher, limit int) []string {
	if normalized == "" || limit <= 0 {
		return nil
	}
	var hits []string
	for _, m := range matchers {
		if strings.Contains(normalized, m.Normalized) {
			hits = append(hits, m.Original)
			if len(hits) >= limit {
				break
			}
		}
	}
	return hits
}
