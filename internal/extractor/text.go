package extractor

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

const ellipsis = "…"

var (
	inlineTagPattern = regexp.MustCompile(`(?i)</?(?:a|strong|b|i|br)(?:\s[^<>]*)?/?>`)
	escapedLT        = regexp.MustCompile(`(?i)&(?:lt|#0*60|#x0*3c);`)
	escapedGT        = regexp.MustCompile(`(?i)&(?:gt|#0*62|#x0*3e);`)
)

// Private-use runes stand in for escaped brackets while entities are decoded.
const (
	placeholderLT = "\uE000"
	placeholderGT = "\uE001"
)

// cleanExcerpt decodes entities and strips allow-listed inline tags. Brackets
// that were escaped in the input stay literal text instead of becoming markup.
func cleanExcerpt(raw string) string {
	s := escapedLT.ReplaceAllString(raw, placeholderLT)
	s = escapedGT.ReplaceAllString(s, placeholderGT)
	s = html.UnescapeString(s)
	s = inlineTagPattern.ReplaceAllString(s, " ")
	s = strings.NewReplacer(placeholderLT, "<", placeholderGT, ">").Replace(s)
	return collapseSpace(s)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateRunes cuts s to at most limit runes.
func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:limit]))
}

// truncateWords cuts s at a word boundary so the result, ellipsis included,
// is at most limit runes.
func truncateWords(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	cut := string([]rune(s)[:limit-utf8.RuneCountInString(ellipsis)])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:-") + ellipsis
}
