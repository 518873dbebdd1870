package extractor_test

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/jonesrussell/north-cloud/link-aggregator/internal/extractor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
}

func extract(t *testing.T, html string) extractor.Metadata {
	t.Helper()
	md, err := extractor.New(extractor.WithClock(fixedClock)).ExtractHTML([]byte(html))
	require.NoError(t, err)
	return md
}

func TestTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "open graph wins",
			html: `<html><head><title>Doc</title><meta name="twitter:title" content="Card"><meta property="og:title" content=" OG Title "></head></html>`,
			want: "OG Title",
		},
		{
			name: "twitter card before title tag",
			html: `<html><head><title>Doc</title><meta name="twitter:title" content="Card"></head></html>`,
			want: "Card",
		},
		{
			name: "title tag last",
			html: `<html><head><title>
				Doc   Title
			</title></head></html>`,
			want: "Doc Title",
		},
		{
			name: "nothing available",
			html: `<html><body><p>hi</p></body></html>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, extract(t, tt.html).Title)
		})
	}
}

func TestTitle_Truncated(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("é", 400)
	md := extract(t, `<title>`+long+`</title>`)
	assert.Equal(t, extractor.MaxTitleLength, utf8.RuneCountInString(md.Title))
}

func TestExcerpt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "open graph description with inline markup",
			html: `<meta property="og:description" content="Read &lt;b&gt;this&lt;/b&gt; &lt;a href='/x'&gt;now&lt;/a&gt;">`,
			want: "Read this now",
		},
		{
			name: "twitter description before generic description",
			html: `<meta name="description" content="generic"><meta name="twitter:description" content="card">`,
			want: "card",
		},
		{
			name: "escaped markup stays literal",
			html: `<meta name="description" content="Use &amp;lt;div&amp;gt; wisely">`,
			want: "Use <div> wisely",
		},
		{
			name: "entities decoded",
			html: `<meta name="description" content="Tom &amp;amp; Jerry &amp;mdash; again">`,
			want: "Tom & Jerry — again",
		},
		{
			name: "first long paragraph outside aside",
			html: `<body>
				<aside><p>one two three four five six seven eight nine ten eleven twelve</p></aside>
				<p>too short to count</p>
				<p>This paragraph has plenty of words to qualify as the excerpt of the page &lt;tag&gt; here</p>
			</body>`,
			want: "This paragraph has plenty of words to qualify as the excerpt of the page <tag> here",
		},
		{
			name: "no candidates",
			html: `<body><p>just a few words</p></body>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, extract(t, tt.html).Excerpt)
		})
	}
}

func TestExcerpt_WordTruncated(t *testing.T) {
	t.Parallel()

	md := extract(t, `<meta property="og:description" content="`+strings.Repeat("word ", 100)+`">`)

	assert.LessOrEqual(t, utf8.RuneCountInString(md.Excerpt), extractor.MaxExcerptLength)
	assert.True(t, strings.HasSuffix(md.Excerpt, "word…"), md.Excerpt)
}

func TestPublishedAt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		want time.Time
	}{
		{
			name: "itemprop datePublished with offset",
			html: `<meta itemprop="datePublished" content="2017-07-31 17:15:41 +0000">`,
			want: time.Date(2017, 7, 31, 17, 15, 41, 0, time.UTC),
		},
		{
			name: "open graph published time",
			html: `<meta property="article:published_time" content="2021-03-04T05:06:07+02:00">`,
			want: time.Date(2021, 3, 4, 3, 6, 7, 0, time.UTC),
		},
		{
			name: "dublin core",
			html: `<meta name="DC.date.issued" content="2019-11-20">`,
			want: time.Date(2019, 11, 20, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "json-ld graph",
			html: `<script type="application/ld+json">{"@graph":[{"@type":"WebPage"},{"@type":"Article","datePublished":"2022-02-02T10:00:00Z"}]}</script>`,
			want: time.Date(2022, 2, 2, 10, 0, 0, 0, time.UTC),
		},
		{
			name: "time element datetime",
			html: `<article><time datetime="2023-08-09T10:11:12Z">Aug 9</time></article>`,
			want: time.Date(2023, 8, 9, 10, 11, 12, 0, time.UTC),
		},
		{
			name: "recent year preferred among candidates",
			html: `<body>
				<span class="date">March 3rd, 2019</span>
				<div class="meta"><span>Updated</span><span>June 2, 2024</span></div>
			</body>`,
			want: time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "modified time only when nothing published",
			html: `<meta property="article:modified_time" content="2020-01-02T03:04:05Z">`,
			want: time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC),
		},
		{
			name: "unparseable is unknown",
			html: `<meta property="article:published_time" content="sometime last week">`,
			want: time.Time{},
		},
		{
			name: "no date anywhere",
			html: `<body><h1>Hello</h1></body>`,
			want: time.Time{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := extract(t, tt.html).PublishedAt
			assert.True(t, tt.want.Equal(got), "want %v, got %v", tt.want, got)
		})
	}
}

func TestAuthor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "twitter creator meta",
			html: `<meta name="twitter:creator" content="@user">`,
			want: "user",
		},
		{
			name: "status links ignored",
			html: `<a href="https://twitter.com/user/status/123">tweet</a>`,
			want: "",
		},
		{
			name: "intent link uses via",
			html: `<a href="https://twitter.com/intent/tweet?text=hello&via=writer">share</a>`,
			want: "writer",
		},
		{
			name: "share link uses screen_name",
			html: `<a href="https://twitter.com/share?screen_name=poster">share</a>`,
			want: "poster",
		},
		{
			name: "comment links skipped and footer preferred",
			html: `<body>
				<div class="comments-list"><a href="https://twitter.com/commenter">c</a></div>
				<a href="https://twitter.com/sidebar">s</a>
				<footer><a href="//twitter.com/#!/realauthor">me</a></footer>
			</body>`,
			want: "realauthor",
		},
		{
			name: "first profile link when no attribution region",
			html: `<a href="https://example.com/about">x</a><a href="https://x.com/first">f</a><a href="https://twitter.com/second">s</a>`,
			want: "first",
		},
		{
			name: "reserved paths are not profiles",
			html: `<a href="https://twitter.com/search?q=go">search</a>`,
			want: "",
		},
		{
			name: "site meta as last resort",
			html: `<meta name="twitter:site" content="@site-name">`,
			want: "sitename",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, extract(t, tt.html).Author)
		})
	}
}

func TestExtractHTML_Empty(t *testing.T) {
	t.Parallel()

	md, err := extractor.New().ExtractHTML(nil)
	require.NoError(t, err)
	assert.Equal(t, extractor.Metadata{}, md)
}

func TestParseError(t *testing.T) {
	t.Parallel()

	err := &extractor.ParseError{Field: "title", Cause: "boom"}
	assert.Equal(t, "extract title: boom", err.Error())
}
