// Package record merges source mentions into article records.
package record

import (
	"slices"

	"github.com/jonesrussell/north-cloud/link-aggregator/internal/domain"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/keywords"
)

// Merger applies mentions to records. It holds only read-only state and is
// safe for concurrent use.
type Merger struct {
	categories keywords.Rules
}

// NewMerger returns a Merger tagging records with categories.
func NewMerger(categories keywords.Rules) *Merger {
	return &Merger{categories: categories}
}

// Merge applies mention to rec and reports whether anything changed. A mention
// whose ID was already applied leaves the record untouched. rec is never
// mutated; the returned record is an independent copy.
func (m *Merger) Merge(rec domain.ArticleRecord, mention domain.Mention) (domain.ArticleRecord, bool) {
	if m.applied(rec, mention) {
		return rec, false
	}

	out := rec.Clone()
	out.Sources = appendUnique(out.Sources, mention.Kind())
	if detail := mention.SourceDetail(); detail != "" {
		out.SourceDetails = appendUnique(out.SourceDetails, detail)
	}
	if text := mention.MentionText(); text != "" {
		out.Texts = appendUnique(out.Texts, text)
	}

	switch mt := mention.(type) {
	case domain.SocialMention:
		if mt.MentionID != "" {
			out.MentionIDs = append(out.MentionIDs, mt.MentionID)
		}
		out.MentionCount++
		out.RetweetCount += mt.RetweetCount
		out.FavoriteCount += mt.FavoriteCount
	case domain.BookmarkMention:
		if mt.BookmarkID != "" {
			out.BookmarkIDs = append(out.BookmarkIDs, mt.BookmarkID)
		}
		out.Bookmarks = append(out.Bookmarks, domain.BookmarkSave{
			Tag:        mt.Tag,
			SavedAt:    mt.SavedAt,
			BookmarkID: mt.BookmarkID,
		})
	}

	// Best-known time: publishedAt when known, else the earliest mention,
	// whatever order mentions arrive in.
	at := mention.MentionedAt()
	switch {
	case out.PublishedAt != nil:
		out.Timestamp = *out.PublishedAt
	case !at.IsZero() && (out.Timestamp.IsZero() || at.Before(out.Timestamp)):
		out.Timestamp = at
	}
	if at.After(out.LastMentionedAt) {
		out.LastMentionedAt = at
	}

	for _, name := range m.Categorize(out) {
		out.Categories = appendUnique(out.Categories, name)
	}

	return out, true
}

// Categorize matches URL and title first and falls back to the excerpt only
// when neither matched any category.
func (m *Merger) Categorize(rec domain.ArticleRecord) []string {
	if names := m.categories.Match(rec.URL + " " + rec.Title); len(names) > 0 {
		return names
	}
	return m.categories.Match(rec.Excerpt)
}

func (m *Merger) applied(rec domain.ArticleRecord, mention domain.Mention) bool {
	id := mention.ID()
	if id == "" {
		return false
	}
	switch mention.Kind() {
	case domain.SourceSocial:
		return slices.Contains(rec.MentionIDs, id)
	case domain.SourceBookmark:
		return slices.Contains(rec.BookmarkIDs, id)
	default:
		return false
	}
}

func appendUnique[T comparable](set []T, v T) []T {
	if slices.Contains(set, v) {
		return set
	}
	return append(set, v)
}
