package extractor

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var handleJunk = regexp.MustCompile(`[^A-Za-z0-9:_]`)

var (
	commentMarkers     = []string{"comment"}
	attributionMarkers = []string{"author", "byline", "attribution", "footer", "bio", "contributor"}
)

// First path segments that are site features rather than profiles.
var reservedSegments = map[string]struct{}{
	"home": {}, "search": {}, "hashtag": {}, "i": {}, "login": {}, "signup": {},
	"settings": {}, "explore": {}, "notifications": {}, "messages": {},
	"tos": {}, "privacy": {}, "about": {}, "account": {},
}

func (e *Extractor) extractAuthor(doc *goquery.Document) string {
	if h := sanitizeHandle(metaContent(doc, "twitter:creator")); h != "" {
		return h
	}
	if h := e.authorFromAnchors(doc); h != "" {
		return h
	}
	return sanitizeHandle(metaContent(doc, "twitter:site"))
}

// authorFromAnchors scans links to the social site, skipping comment regions
// and preferring links inside attribution regions.
func (e *Extractor) authorFromAnchors(doc *goquery.Document) string {
	var first string
	preferred := ""
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if withinRegion(a, commentMarkers) {
			return true
		}
		handle := e.handleFromLink(a.AttrOr("href", ""))
		if handle == "" {
			return true
		}
		if withinRegion(a, attributionMarkers) || a.Closest("footer, address").Length() > 0 {
			preferred = handle
			return false
		}
		if first == "" {
			first = handle
		}
		return true
	})
	if preferred != "" {
		return preferred
	}
	return first
}

// withinRegion reports whether s or an ancestor has a class or id containing
// one of markers.
func withinRegion(s *goquery.Selection, markers []string) bool {
	for node := s; node.Length() > 0; node = node.Parent() {
		attrs := strings.ToLower(node.AttrOr("class", "") + " " + node.AttrOr("id", ""))
		for _, m := range markers {
			if strings.Contains(attrs, m) {
				return true
			}
		}
	}
	return false
}

// handleFromLink classifies a link: status permalinks yield nothing, share and
// intent links yield their via/screen_name parameter, profile links yield the
// first path segment.
func (e *Extractor) handleFromLink(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	href = strings.Replace(href, "#!/", "", 1)

	u, err := url.Parse(href)
	if err != nil || !e.isSocialHost(u.Hostname()) {
		return ""
	}

	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	for _, seg := range segments {
		if seg == "status" || seg == "statuses" {
			return ""
		}
	}
	if len(segments) == 0 {
		return ""
	}

	first := strings.ToLower(segments[0])
	if first == "intent" || first == "share" {
		q := u.Query()
		if via := sanitizeHandle(q.Get("via")); via != "" {
			return via
		}
		return sanitizeHandle(q.Get("screen_name"))
	}
	if _, reserved := reservedSegments[first]; reserved {
		return ""
	}
	return sanitizeHandle(segments[0])
}

func (e *Extractor) isSocialHost(host string) bool {
	host = strings.ToLower(host)
	for _, h := range e.socialHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func sanitizeHandle(raw string) string {
	return handleJunk.ReplaceAllString(raw, "")
}
