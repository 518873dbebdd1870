package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

func extractTitle(doc *goquery.Document) string {
	title := metaContent(doc, "og:title")
	if title == "" {
		title = metaContent(doc, "twitter:title")
	}
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	return truncateRunes(collapseSpace(title), MaxTitleLength)
}
