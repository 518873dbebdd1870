package extractor

import (
	"encoding/json"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
)

const (
	maxCandidateLength = 200
	maxContainerDepth  = 4
	minPlausibleYear   = 1990
)

// Probed in order; the first that parses wins.
var publishedMetaKeys = []string{
	"article:published_time",
	"datePublished",
	"DC.date.issued",
	"dcterms.issued",
	"og:published_time",
	"parsely-pub-date",
	"sailthru.date",
	"publishdate",
	"publish-date",
	"pubdate",
	"date",
}

var modifiedMetaKeys = []string{
	"article:modified_time",
	"dateModified",
	"og:updated_time",
	"last-modified",
	"DC.date.modified",
}

// Fallback selectors, grouped from most to least specific.
var dateCandidateSelectors = []string{
	"time",
	"[datetime]",
	"[class*='date'], [id*='date']",
	"[class*='published'], [id*='published']",
	"[class*='meta'], [id*='meta']",
	"h1, h2, h3, h4, h5, h6",
}

var strictLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 Z0700",
	"2006-01-02 15:04:05 -07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006/01/02",
}

var (
	monthNames    = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`
	dateTokens    = regexp.MustCompile(`(?i)\b(?:` + monthNames + `)\b\.?|\d+(?:st|nd|rd|th)\b,?|[+-]\d{2}:?\d{2}\b|\d[\dTZ:+\-/.,]*`)
	ordinalSuffix = regexp.MustCompile(`(?i)^(\d+)(?:st|nd|rd|th)`)
	plausibleDate = regexp.MustCompile(`(?i)\d{4}|\d{1,2}[-/.]\d{1,2}|(?:` + monthNames + `)\.? \d`)
)

func (e *Extractor) extractPublished(doc *goquery.Document) time.Time {
	for _, key := range publishedMetaKeys {
		if t := parseDate(metaContent(doc, key)); !t.IsZero() {
			return t
		}
	}
	if t := parseDate(itempropValue(doc, "datePublished")); !t.IsZero() {
		return t
	}
	if t := parseDate(jsonLDDate(doc, "datePublished")); !t.IsZero() {
		return t
	}

	if candidates := e.dateCandidates(doc); len(candidates) > 0 {
		if t := parseDate(candidates[0]); !t.IsZero() {
			return t
		}
	}

	for _, key := range modifiedMetaKeys {
		if t := parseDate(metaContent(doc, key)); !t.IsZero() {
			return t
		}
	}
	if t := parseDate(itempropValue(doc, "dateModified")); !t.IsZero() {
		return t
	}
	return parseDate(jsonLDDate(doc, "dateModified"))
}

func itempropValue(doc *goquery.Document, prop string) string {
	sel := doc.Find("[itemprop='" + prop + "']").First()
	if sel.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(sel.AttrOr("content", sel.AttrOr("datetime", sel.Text())))
}

// jsonLDDate finds key in any JSON-LD object, including @graph members.
func jsonLDDate(doc *goquery.Document, key string) string {
	var found string
	doc.Find("script[type='application/ld+json']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		found = findJSONLDKey(data, key, 0)
		return found == ""
	})
	return found
}

func findJSONLDKey(data any, key string, depth int) string {
	if depth > maxContainerDepth {
		return ""
	}
	switch v := data.(type) {
	case map[string]any:
		if s, ok := v[key].(string); ok && s != "" {
			return s
		}
		if graph, ok := v["@graph"]; ok {
			return findJSONLDKey(graph, key, depth+1)
		}
	case []any:
		for _, item := range v {
			if s := findJSONLDKey(item, key, depth+1); s != "" {
				return s
			}
		}
	}
	return ""
}

// dateCandidates collects date-looking texts from elements matching the
// fallback selectors. Texts mentioning the current or previous year move to
// the front; relative order is otherwise kept.
func (e *Extractor) dateCandidates(doc *goquery.Document) []string {
	var candidates []string
	seen := make(map[string]struct{})
	add := func(text string) {
		text = collapseSpace(text)
		if text == "" || len(text) > maxCandidateLength {
			return
		}
		if !plausibleDate.MatchString(cleanDate(text)) {
			return
		}
		if _, dup := seen[text]; dup {
			return
		}
		seen[text] = struct{}{}
		candidates = append(candidates, text)
	}

	for _, selector := range dateCandidateSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			if s.Is("meta, script, style") {
				return
			}
			if dt, ok := s.Attr("datetime"); ok && strings.TrimSpace(dt) != "" {
				add(dt)
				return
			}
			for _, text := range leafTexts(s, 0) {
				add(text)
			}
		})
	}

	year := e.now().Year()
	current, previous := strconv.Itoa(year), strconv.Itoa(year-1)
	recent := func(s string) bool {
		return strings.Contains(s, current) || strings.Contains(s, previous)
	}
	slices.SortStableFunc(candidates, func(a, b string) int {
		switch ra, rb := recent(a), recent(b); {
		case ra && !rb:
			return -1
		case rb && !ra:
			return 1
		default:
			return 0
		}
	})
	return candidates
}

// leafTexts returns s's own text, or, for containers with several element
// children, the texts of its leaves.
func leafTexts(s *goquery.Selection, depth int) []string {
	children := s.Children()
	if children.Length() < 2 || depth >= maxContainerDepth {
		return []string{s.Text()}
	}
	var texts []string
	children.Each(func(_ int, child *goquery.Selection) {
		texts = append(texts, leafTexts(child, depth+1)...)
	})
	return texts
}

// cleanDate keeps only tokens that can be part of a date: numbers with date
// punctuation, zone offsets, month names and ordinals (suffix removed).
func cleanDate(raw string) string {
	tokens := dateTokens.FindAllString(raw, -1)
	for i, tok := range tokens {
		tokens[i] = ordinalSuffix.ReplaceAllString(tok, "$1")
	}
	return strings.TrimRight(strings.Join(tokens, " "), ".,")
}

// parseDate tries strict layouts, then a lenient parser. The zero time means
// unknown.
func parseDate(raw string) time.Time {
	cleaned := cleanDate(strings.TrimSpace(raw))
	if cleaned == "" {
		return time.Time{}
	}

	for _, layout := range strictLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return plausible(t)
		}
	}
	if t, err := dateparse.ParseIn(cleaned, time.UTC); err == nil {
		return plausible(t)
	}
	return time.Time{}
}

func plausible(t time.Time) time.Time {
	if t.Year() < minPlausibleYear {
		return time.Time{}
	}
	return t.UTC()
}
