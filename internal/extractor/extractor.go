// Package extractor pulls article metadata (title, excerpt, published time and
// the author's social handle) out of a parsed HTML page. Each field is produced
// by an ordered chain of strategies; the first non-empty result wins.
package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Field length limits, in runes.
const (
	MaxTitleLength   = 150
	MaxExcerptLength = 200
)

// DefaultSocialHosts are the hosts whose profile links identify an author.
var DefaultSocialHosts = []string{"twitter.com", "x.com"}

// Metadata is the best-effort result of extraction. Zero values mean unknown.
type Metadata struct {
	Title       string
	Excerpt     string
	PublishedAt time.Time
	Author      string
}

// ParseError reports a pipeline that failed on a malformed document. The
// other fields of the returned Metadata are still usable.
type ParseError struct {
	Field string
	Cause any
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Field, e.Cause)
}

// Extractor is stateless apart from its options and safe for concurrent use.
type Extractor struct {
	now         func() time.Time
	socialHosts []string
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithClock sets the clock used to prefer dates from the current and previous year.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

// WithSocialHosts replaces DefaultSocialHosts.
func WithSocialHosts(hosts ...string) Option {
	return func(e *Extractor) { e.socialHosts = hosts }
}

// New returns an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		now:         time.Now,
		socialHosts: DefaultSocialHosts,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractHTML parses body and extracts metadata from it.
func (e *Extractor) ExtractHTML(body []byte) (Metadata, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Metadata{}, fmt.Errorf("parse html: %w", err)
	}
	return e.Extract(doc)
}

// Extract runs every pipeline independently. A panicking pipeline is
// recovered and reported as a *ParseError without discarding the others.
func (e *Extractor) Extract(doc *goquery.Document) (Metadata, error) {
	var (
		md   Metadata
		errs []error
	)

	run := func(field string, fn func()) {
		defer func() {
			if r := recover(); r != nil {
				errs = append(errs, &ParseError{Field: field, Cause: r})
			}
		}()
		fn()
	}

	run("title", func() { md.Title = extractTitle(doc) })
	run("excerpt", func() { md.Excerpt = extractExcerpt(doc) })
	run("published time", func() { md.PublishedAt = e.extractPublished(doc) })
	run("author", func() { md.Author = e.extractAuthor(doc) })

	return md, errors.Join(errs...)
}

// metaContent returns the first non-empty content of a meta tag identified by
// name or property.
func metaContent(doc *goquery.Document, keys ...string) string {
	for _, key := range keys {
		for _, attr := range []string{"property", "name", "itemprop"} {
			sel := doc.Find(fmt.Sprintf("meta[%s='%s']", attr, key))
			for i := range sel.Length() {
				if v := strings.TrimSpace(sel.Eq(i).AttrOr("content", "")); v != "" {
					return v
				}
			}
		}
	}
	return ""
}
