package extractor

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const minParagraphWords = 10

func extractExcerpt(doc *goquery.Document) string {
	raw := metaContent(doc, "og:description")
	if raw == "" {
		raw = metaContent(doc, "twitter:description")
	}
	if raw == "" {
		raw = metaContent(doc, "description")
	}
	if raw == "" {
		raw = firstParagraph(doc)
	}
	if raw == "" {
		return ""
	}
	return truncateWords(cleanExcerpt(raw), MaxExcerptLength)
}

// firstParagraph returns the first paragraph outside an aside with more than
// minParagraphWords words, re-escaped so cleanExcerpt sees it as encoded text.
func firstParagraph(doc *goquery.Document) string {
	var found string
	doc.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if p.Closest("aside").Length() > 0 {
			return true
		}
		text := strings.TrimSpace(p.Text())
		if len(strings.Fields(text)) <= minParagraphWords {
			return true
		}
		found = html.EscapeString(text)
		return false
	})
	return found
}
