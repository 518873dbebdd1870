package domain_test

import (
	"testing"
	"time"

	"github.com/jonesrussell/north-cloud/link-aggregator/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMentionUnion(t *testing.T) {
	t.Parallel()

	social := domain.SocialMention{SourceOwner: "alice", SourceListName: "go", MentionID: "1", URLs: []string{"https://a.io"}}
	bookmark := domain.BookmarkMention{CollectorUsername: "bob", BookmarkID: "b1", URL: "https://b.io"}

	assert.Equal(t, domain.SourceSocial, social.Kind())
	assert.Equal(t, "alice/go", social.SourceDetail())
	assert.Equal(t, domain.SourceBookmark, bookmark.Kind())
	assert.Equal(t, "bob", bookmark.SourceDetail())
	assert.Equal(t, []string{"https://b.io"}, bookmark.CandidateURLs())
	assert.Nil(t, domain.BookmarkMention{}.CandidateURLs())
}

func TestEntryConstructors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		entry    domain.Entry
		kind     domain.EntryKind
		terminal bool
	}{
		{"resolved", domain.ResolvedEntry(domain.ArticleRecord{URL: "https://a.io"}), domain.EntryResolved, false},
		{"redirect", domain.RedirectEntry("https://a.io"), domain.EntryRedirect, false},
		{"scrape error", domain.ScrapeErrorEntry("http 404"), domain.EntryScrapeError, true},
		{"removed", domain.RemovedEntry(), domain.EntryRemoved, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.kind, tt.entry.Kind)
			assert.Equal(t, tt.terminal, tt.entry.Terminal())
		})
	}
}

func TestNewRecord_UnknownPublishedTime(t *testing.T) {
	t.Parallel()

	rec := domain.NewRecord("https://a.io", "t", "e", "", time.Time{})
	assert.Nil(t, rec.PublishedAt)

	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	rec = domain.NewRecord("https://a.io", "t", "e", "", at)
	require.NotNil(t, rec.PublishedAt)
	assert.True(t, at.Equal(*rec.PublishedAt))
}

func TestClone_DoesNotAlias(t *testing.T) {
	t.Parallel()

	orig := domain.ArticleRecord{Sources: []domain.Source{domain.SourceSocial}, Texts: []string{"a"}}
	cp := orig.Clone()
	cp.Sources[0] = domain.SourceBookmark
	cp.Texts = append(cp.Texts, "b")

	assert.Equal(t, domain.SourceSocial, orig.Sources[0])
	assert.Len(t, orig.Texts, 1)
}

func TestFreshest(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := domain.ArticleRecord{
		Timestamp:       base,
		LastMentionedAt: base.Add(time.Hour),
		Bookmarks:       []domain.BookmarkSave{{SavedAt: base.Add(48 * time.Hour)}},
	}
	assert.Equal(t, base.Add(48*time.Hour), rec.Freshest())
}

func TestDedupe(t *testing.T) {
	t.Parallel()

	records := []domain.ArticleRecord{
		{URL: "https://a.io", MentionIDs: []string{"1"}},
		{URL: "https://b.io"},
		{URL: "https://a.io", MentionIDs: []string{"1", "2"}, Title: "newer"},
		{URL: "https://a.io", MentionIDs: []string{"1"}, Title: "stale"},
	}

	out := domain.Dedupe(records)
	require.Len(t, out, 2)
	assert.Equal(t, "https://a.io", out[0].URL)
	assert.Equal(t, "newer", out[0].Title)
	assert.Equal(t, "https://b.io", out[1].URL)
}
