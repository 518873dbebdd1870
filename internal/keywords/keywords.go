// Package keywords compiles user-configured word lists into case-insensitive,
// word-boundary matchers used for ignore filtering and category tagging.
package keywords

import (
	"regexp"
	"strings"
)

// Matcher reports whether text contains any of a set of words. The zero value
// and a nil *Matcher match nothing.
type Matcher struct {
	re *regexp.Regexp
}

// NewMatcher compiles words into a single alternation. Blank words are skipped.
func NewMatcher(words []string) *Matcher {
	alts := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		alts = append(alts, bounded(w))
	}
	if len(alts) == 0 {
		return &Matcher{}
	}
	return &Matcher{re: regexp.MustCompile(`(?i)(?:` + strings.Join(alts, "|") + `)`)}
}

// Match reports whether any word occurs in text on word boundaries.
func (m *Matcher) Match(text string) bool {
	if m == nil || m.re == nil || text == "" {
		return false
	}
	return m.re.MatchString(text)
}

// bounded quotes w and anchors it on word boundaries at whichever ends are
// word characters, so keywords like "c++" still match.
func bounded(w string) string {
	expr := regexp.QuoteMeta(w)
	if isWordByte(w[0]) {
		expr = `\b` + expr
	}
	if isWordByte(w[len(w)-1]) {
		expr += `\b`
	}
	return expr
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= '0' && b <= '9') ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z')
}
