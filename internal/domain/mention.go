// Package domain holds the types shared by the ingest, cache, merge and rank stages.
package domain

import (
	"time"
)

// Source identifies where a mention came from.
type Source string

const (
	// SourceSocial marks mentions from followed social lists.
	SourceSocial Source = "social"
	// SourceBookmark marks links saved on a bookmarking service.
	SourceBookmark Source = "bookmark"
)

// Mention is one observation of one or more URLs by a source. It is
// implemented only by SocialMention and BookmarkMention.
type Mention interface {
	Kind() Source
	// ID is the mention or bookmark identifier used for idempotent merges.
	ID() string
	// SourceDetail is the human-readable origin, e.g. "owner/list".
	SourceDetail() string
	// MentionText is the post text or bookmark note, kept on the record.
	MentionText() string
	// MentionedAt is when the source saw the URL. Zero means unknown.
	MentionedAt() time.Time
	// CandidateURLs are the raw URLs the mention points at.
	CandidateURLs() []string

	isMention()
}

// SocialMention is a post in a followed social list.
type SocialMention struct {
	SourceOwner    string
	SourceListName string
	MentionID      string
	AuthorHandle   string
	Text           string
	CreatedAt      time.Time
	FavoriteCount  int
	RetweetCount   int
	URLs           []string
}

// Kind returns SourceSocial.
func (m SocialMention) Kind() Source { return SourceSocial }

// ID returns the post identifier.
func (m SocialMention) ID() string { return m.MentionID }

// MentionText returns the post text.
func (m SocialMention) MentionText() string { return m.Text }

// MentionedAt returns when the post was created.
func (m SocialMention) MentionedAt() time.Time { return m.CreatedAt }

// CandidateURLs returns every URL expanded from the post, in post order.
func (m SocialMention) CandidateURLs() []string { return m.URLs }

func (SocialMention) isMention() {}

// SourceDetail returns "owner/list".
func (m SocialMention) SourceDetail() string {
	return m.SourceOwner + "/" + m.SourceListName
}

// BookmarkMention is a link saved by a collector on a bookmarking service.
type BookmarkMention struct {
	CollectorUsername string
	Tag               string
	SavedAt           time.Time
	BookmarkID        string
	URL               string
	Note              string
}

// Kind returns SourceBookmark.
func (m BookmarkMention) Kind() Source { return SourceBookmark }

// ID returns the bookmark identifier.
func (m BookmarkMention) ID() string { return m.BookmarkID }

// SourceDetail returns the collector's username.
func (m BookmarkMention) SourceDetail() string { return m.CollectorUsername }

// MentionText returns the collector's note.
func (m BookmarkMention) MentionText() string { return m.Note }

// MentionedAt returns when the link was saved.
func (m BookmarkMention) MentionedAt() time.Time { return m.SavedAt }

func (BookmarkMention) isMention() {}

// CandidateURLs returns the saved URL, or nil when the bookmark has none.
func (m BookmarkMention) CandidateURLs() []string {
	if m.URL == "" {
		return nil
	}
	return []string{m.URL}
}
