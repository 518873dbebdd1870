package domain

// EntryKind discriminates cache entries.
type EntryKind string

const (
	// EntryResolved holds a fetched and extracted article.
	EntryResolved EntryKind = "resolved"
	// EntryRedirect points a URL at the canonical URL it redirected to.
	EntryRedirect EntryKind = "redirect"
	// EntryScrapeError records a permanent fetch or extraction failure.
	EntryScrapeError EntryKind = "scrape_error"
	// EntryRemoved tombstones a URL an operator took down.
	EntryRemoved EntryKind = "removed"
)

// Entry is the value stored per canonical URL in the article cache.
// ScrapeError and Removed are terminal.
type Entry struct {
	Kind   EntryKind      `json:"kind"`
	Record *ArticleRecord `json:"record,omitempty"`
	Target string         `json:"target,omitempty"`
	Reason string         `json:"reason,omitempty"`
}

// ResolvedEntry stores a copy of rec under its canonical URL.
func ResolvedEntry(rec ArticleRecord) Entry {
	return Entry{Kind: EntryResolved, Record: &rec}
}

// RedirectEntry sends lookups on to target, the canonical URL the fetch
// landed on.
func RedirectEntry(target string) Entry {
	return Entry{Kind: EntryRedirect, Target: target}
}

// ScrapeErrorEntry marks a URL as failed for good with the given reason.
func ScrapeErrorEntry(reason string) Entry {
	return Entry{Kind: EntryScrapeError, Reason: reason}
}

// RemovedEntry tombstones a URL so later mentions and snapshots skip it.
func RemovedEntry() Entry {
	return Entry{Kind: EntryRemoved}
}

// Terminal reports whether no further fetch may be attempted for the key.
func (e Entry) Terminal() bool {
	return e.Kind == EntryScrapeError || e.Kind == EntryRemoved
}
