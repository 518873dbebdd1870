// Package cache implements the article cache: a durable map from canonical
// URL to a resolved record, a redirect pointer, a terminal scrape error or a
// removal tombstone. It decides when a page is fetched and applies mentions
// to cached records.
package cache

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonesrussell/north-cloud/link-aggregator/internal/canonical"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/domain"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/extractor"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/fetcher"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/logger"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/metrics"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/record"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/store"
)

const (
	entryKeyPrefix = "article:"
	// KnownURLsKey is the list of resolved URLs, most recent first.
	KnownURLsKey    = "articles:known"
	maxRedirectHops = 5
)

// ErrTransient marks a fetch failure that was not cached and may succeed on a
// later run.
var ErrTransient = errors.New("transient fetch failure")

//go:generate mockgen -source=cache.go -destination=mocks/mock_cache.go -package=mocks

// PageFetcher retrieves a page, following redirects.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Page, error)
}

// Store is the persistence the cache needs.
type Store interface {
	GetJSON(ctx context.Context, key string, dst any) error
	SetJSON(ctx context.Context, key string, value any) error
	PushUnique(ctx context.Context, list, value string) error
	List(ctx context.Context, list string, limit int64) ([]string, error)
}

// Params are the collaborators of a Cache.
type Params struct {
	Store         Store
	Fetcher       PageFetcher
	Extractor     *extractor.Extractor
	Merger        *record.Merger
	Canonicalizer *canonical.Canonicalizer
	Logger        logger.Logger
	Metrics       *metrics.Metrics
}

// Cache is safe for concurrent use. Work on one canonical URL is serialized;
// different URLs proceed in parallel.
type Cache struct {
	store   Store
	fetcher PageFetcher
	extract *extractor.Extractor
	merger  *record.Merger
	canon   *canonical.Canonicalizer
	log     logger.Logger
	metrics *metrics.Metrics
	locks   *keyLocks
}

// New returns a Cache. Nil Extractor, Merger, Canonicalizer and Logger get defaults.
func New(p Params) *Cache {
	c := &Cache{
		store:   p.Store,
		fetcher: p.Fetcher,
		extract: p.Extractor,
		merger:  p.Merger,
		canon:   p.Canonicalizer,
		log:     p.Logger,
		metrics: p.Metrics,
		locks:   newKeyLocks(),
	}
	if c.extract == nil {
		c.extract = extractor.New()
	}
	if c.merger == nil {
		c.merger = record.NewMerger(nil)
	}
	if c.canon == nil {
		c.canon = canonical.NewDefault()
	}
	if c.log == nil {
		c.log = logger.NewNop()
	}
	c.log = c.log.With(logger.Component("cache"))
	return c
}

// EntryKey is the store key holding the entry for canonicalURL.
func EntryKey(canonicalURL string) string {
	return entryKeyPrefix + canonicalURL
}

// Resolve returns the record for rawURL with mention applied. A nil record
// with a nil error means the mention was dropped: the URL is a known scrape
// error, was removed, or redirects in a circle. Errors wrapping ErrTransient
// were not cached.
func (c *Cache) Resolve(ctx context.Context, rawURL string, mention domain.Mention) (*domain.ArticleRecord, error) {
	key := c.canon.Canonicalize(rawURL)
	visited := make(map[string]struct{}, 1)
	var carried *fetcher.Page

	for hop := 0; ; hop++ {
		if _, seen := visited[key]; seen || hop > maxRedirectHops {
			c.log.Warn("Dropping mention on circular or overlong redirect chain",
				logger.URL(key),
				logger.Int("hops", hop),
			)
			return nil, nil
		}
		visited[key] = struct{}{}

		step, err := c.resolveKey(ctx, key, mention, carried)
		if err != nil || step.next == "" {
			return step.record, err
		}
		key, carried = step.next, step.page
	}
}

type step struct {
	record *domain.ArticleRecord
	next   string
	page   *fetcher.Page
}

// resolveKey handles one key under its lock. When a fetch lands on another
// URL, the page is handed back so the final key is processed under its own lock.
func (c *Cache) resolveKey(
	ctx context.Context,
	key string,
	mention domain.Mention,
	carried *fetcher.Page,
) (step, error) {
	unlock := c.locks.lock(key)
	defer unlock()

	var entry domain.Entry
	err := c.store.GetJSON(ctx, EntryKey(key), &entry)
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.metrics.CacheLookup(metrics.LookupMiss)
		if carried != nil {
			rec, buildErr := c.build(ctx, key, carried, mention)
			return step{record: rec}, buildErr
		}
		return c.fetch(ctx, key, mention)
	case err != nil:
		return step{}, fmt.Errorf("load entry: %w", err)
	}

	switch entry.Kind {
	case domain.EntryResolved:
		c.metrics.CacheLookup(metrics.LookupHit)
		if entry.Record == nil {
			return step{}, fmt.Errorf("resolved entry for %s has no record", key)
		}
		merged, changed := c.merger.Merge(*entry.Record, mention)
		if changed {
			if err = c.store.SetJSON(ctx, EntryKey(key), domain.ResolvedEntry(merged)); err != nil {
				return step{}, fmt.Errorf("save merged record: %w", err)
			}
		}
		return step{record: &merged}, nil
	case domain.EntryRedirect:
		c.metrics.CacheLookup(metrics.LookupRedirect)
		if entry.Target == key {
			c.log.Warn("Circular redirect in cache", logger.URL(key))
			return step{}, nil
		}
		return step{next: entry.Target}, nil
	default:
		c.metrics.CacheLookup(metrics.LookupTerminal)
		c.log.Debug("Skipping terminal entry", logger.URL(key), logger.String("kind", string(entry.Kind)))
		return step{}, nil
	}
}

func (c *Cache) fetch(ctx context.Context, key string, mention domain.Mention) (step, error) {
	page, err := c.fetcher.Fetch(ctx, key)
	if err != nil {
		if errors.Is(err, fetcher.ErrTooManyRedirects) {
			return step{}, c.markError(ctx, key, "too many redirects")
		}
		c.metrics.PageFetch(metrics.FetchTransient)
		c.log.Warn("Page fetch failed", logger.URL(key), logger.Error(err))
		return step{}, fmt.Errorf("%w: %w", ErrTransient, err)
	}

	if reason, transient := classify(page); reason != "" {
		if transient {
			c.metrics.PageFetch(metrics.FetchTransient)
			c.log.Warn("Page temporarily unavailable", logger.URL(key), logger.String("reason", reason))
			return step{}, fmt.Errorf("%w: %s", ErrTransient, reason)
		}
		return step{}, c.markError(ctx, key, reason)
	}
	c.metrics.PageFetch(metrics.FetchOK)

	final := c.canon.Canonicalize(page.FinalURL)
	if final == "" || final == key {
		rec, buildErr := c.build(ctx, key, page, mention)
		return step{record: rec}, buildErr
	}

	c.log.Debug("Following redirect", logger.URL(key), logger.String("target", final))
	if err = c.store.SetJSON(ctx, EntryKey(key), domain.RedirectEntry(final)); err != nil {
		return step{}, fmt.Errorf("save redirect: %w", err)
	}
	return step{next: final, page: page}, nil
}

// build extracts metadata from page and stores a fresh record under key.
func (c *Cache) build(
	ctx context.Context,
	key string,
	page *fetcher.Page,
	mention domain.Mention,
) (*domain.ArticleRecord, error) {
	md, err := c.extract.ExtractHTML(page.Body)
	if err != nil {
		c.log.Warn("Partial metadata extraction", logger.URL(key), logger.Error(err))
	}

	base := domain.NewRecord(key, md.Title, md.Excerpt, md.Author, md.PublishedAt)
	rec, _ := c.merger.Merge(base, mention)

	if err = c.store.SetJSON(ctx, EntryKey(key), domain.ResolvedEntry(rec)); err != nil {
		return nil, fmt.Errorf("save record: %w", err)
	}
	if err = c.store.PushUnique(ctx, KnownURLsKey, key); err != nil {
		return nil, fmt.Errorf("record known url: %w", err)
	}
	return &rec, nil
}

func (c *Cache) markError(ctx context.Context, key, reason string) error {
	c.metrics.PageFetch(metrics.FetchTerminal)
	c.log.Info("Caching scrape error", logger.URL(key), logger.String("reason", reason))
	if err := c.store.SetJSON(ctx, EntryKey(key), domain.ScrapeErrorEntry(reason)); err != nil {
		return fmt.Errorf("save scrape error: %w", err)
	}
	return nil
}

// classify returns a non-empty reason when page is not a usable article.
func classify(page *fetcher.Page) (reason string, transient bool) {
	switch {
	case page.StatusCode == http.StatusRequestTimeout,
		page.StatusCode == http.StatusTooManyRequests,
		page.StatusCode >= http.StatusInternalServerError:
		return fmt.Sprintf("http status %d", page.StatusCode), true
	case !page.OK():
		return fmt.Sprintf("http status %d", page.StatusCode), false
	case len(page.Body) == 0:
		return "empty response", false
	case !page.IsHTML():
		return "non-html content type: " + page.MediaType(), false
	default:
		return "", false
	}
}

// Remove tombstones rawURL so future mentions of it are dropped.
func (c *Cache) Remove(ctx context.Context, rawURL string) error {
	key := c.canon.Canonicalize(rawURL)
	unlock := c.locks.lock(key)
	defer unlock()

	if err := c.store.SetJSON(ctx, EntryKey(key), domain.RemovedEntry()); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	c.log.Info("Article removed", logger.URL(key))
	return nil
}

// Lookup returns the entry stored for rawURL without fetching.
func (c *Cache) Lookup(ctx context.Context, rawURL string) (domain.Entry, error) {
	var entry domain.Entry
	if err := c.store.GetJSON(ctx, EntryKey(c.canon.Canonicalize(rawURL)), &entry); err != nil {
		return domain.Entry{}, err
	}
	return entry, nil
}

// Known returns up to limit resolved URLs, most recent first.
func (c *Cache) Known(ctx context.Context, limit int64) ([]string, error) {
	return c.store.List(ctx, KnownURLsKey, limit)
}
