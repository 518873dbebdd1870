package domain

import (
	"slices"
	"time"
)

// BookmarkSave records one bookmark event applied to a record.
type BookmarkSave struct {
	Tag        string    `json:"tag"`
	SavedAt    time.Time `json:"savedAt"`
	BookmarkID string    `json:"bookmarkId"`
}

// ArticleRecord is the accumulated multi-source view of one canonical URL.
type ArticleRecord struct {
	URL           string         `json:"url"`
	Title         string         `json:"title"`
	Excerpt       string         `json:"excerpt"`
	PublishedAt   *time.Time     `json:"publishedAt,omitempty"`
	AuthorHandle  string         `json:"authorHandle,omitempty"`
	Sources       []Source       `json:"sources"`
	SourceDetails []string       `json:"sourceDetails"`
	Texts         []string       `json:"texts,omitempty"`
	MentionIDs    []string       `json:"mentionIds,omitempty"`
	BookmarkIDs   []string       `json:"bookmarkIds,omitempty"`
	MentionCount  int            `json:"mentionCount"`
	RetweetCount  int            `json:"retweetCount"`
	FavoriteCount int            `json:"favoriteCount"`
	Bookmarks     []BookmarkSave `json:"bookmarks,omitempty"`
	Categories    []string       `json:"categories,omitempty"`
	// Timestamp is the best-known time: publishedAt when known, else the
	// time of the first applied mention.
	Timestamp time.Time `json:"timestamp"`
	// LastMentionedAt is the newest mention time applied.
	LastMentionedAt time.Time `json:"lastMentionedAt"`
	RankRaw         float64   `json:"rankRaw"`
	Rank            int       `json:"rank"`
}

// NewRecord returns an empty record for url carrying scraped metadata.
func NewRecord(url, title, excerpt, author string, publishedAt time.Time) ArticleRecord {
	rec := ArticleRecord{
		URL:          url,
		Title:        title,
		Excerpt:      excerpt,
		AuthorHandle: author,
	}
	if !publishedAt.IsZero() {
		p := publishedAt.UTC()
		rec.PublishedAt = &p
	}
	return rec
}

// Clone returns a deep copy so merges never alias a caller's slices.
func (r ArticleRecord) Clone() ArticleRecord {
	out := r
	if r.PublishedAt != nil {
		p := *r.PublishedAt
		out.PublishedAt = &p
	}
	out.Sources = slices.Clone(r.Sources)
	out.SourceDetails = slices.Clone(r.SourceDetails)
	out.Texts = slices.Clone(r.Texts)
	out.MentionIDs = slices.Clone(r.MentionIDs)
	out.BookmarkIDs = slices.Clone(r.BookmarkIDs)
	out.Bookmarks = slices.Clone(r.Bookmarks)
	out.Categories = slices.Clone(r.Categories)
	return out
}

// HasSource reports whether src has been merged into the record.
func (r ArticleRecord) HasSource(src Source) bool {
	return slices.Contains(r.Sources, src)
}

// BookmarkCount is the number of bookmark events applied.
func (r ArticleRecord) BookmarkCount() int {
	return len(r.Bookmarks)
}

// Applied is the number of distinct mentions merged into the record.
func (r ArticleRecord) Applied() int {
	return len(r.MentionIDs) + len(r.BookmarkIDs)
}

// Freshest returns the newest of the record's known timestamps.
func (r ArticleRecord) Freshest() time.Time {
	latest := r.Timestamp
	if r.PublishedAt != nil && r.PublishedAt.After(latest) {
		latest = *r.PublishedAt
	}
	if r.LastMentionedAt.After(latest) {
		latest = r.LastMentionedAt
	}
	for _, b := range r.Bookmarks {
		if b.SavedAt.After(latest) {
			latest = b.SavedAt
		}
	}
	return latest
}

// Dedupe keeps one record per URL, in first-seen order. When a URL repeats,
// the record with the most applied mentions wins; ties go to the later one.
func Dedupe(records []ArticleRecord) []ArticleRecord {
	index := make(map[string]int, len(records))
	out := make([]ArticleRecord, 0, len(records))
	for _, rec := range records {
		i, seen := index[rec.URL]
		if !seen {
			index[rec.URL] = len(out)
			out = append(out, rec)
			continue
		}
		if rec.Applied() >= out[i].Applied() {
			out[i] = rec
		}
	}
	return out
}
