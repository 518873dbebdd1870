// Package bookmarks fetches link mentions from collectors' bookmark feeds.
package bookmarks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/jonesrussell/north-cloud/link-aggregator/internal/domain"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/logger"
)

const (
	// Name identifies the source in logs, metrics and snapshots.
	Name = "bookmarks"

	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 5 * 1024 * 1024
	httpPrefix     = "http"
)

var (
	// ErrEmptyPage is returned when a feed answers with no body at all.
	ErrEmptyPage = errors.New("empty feed body")
	// ErrUnexpectedStatus is returned for any non-200 response.
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// Feed is one collector's bookmark feed. Tag, when set, labels every save
// from the feed.
type Feed struct {
	Username string `mapstructure:"username"`
	Tag      string `mapstructure:"tag"`
	URL      string `mapstructure:"url"`
}

// Config lists the feeds to read.
type Config struct {
	Feeds []Feed `mapstructure:"feeds"`
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(cl *Client) { cl.log = l }
}

// Client reads every configured feed.
type Client struct {
	feeds []Feed
	http  *http.Client
	log   logger.Logger
}

// New returns a Client.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		feeds: cfg.Feeds,
		http:  &http.Client{Timeout: defaultTimeout},
		log:   logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(logger.Component("bookmark_source"))
	return c
}

// Name implements the source contract.
func (c *Client) Name() string { return Name }

// Fetch returns the saves of every feed. Any feed failure fails the batch.
func (c *Client) Fetch(ctx context.Context) ([]domain.Mention, error) {
	mentions := make([]domain.Mention, 0)
	for _, f := range c.feeds {
		got, err := c.fetchFeed(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("feed %s: %w", f.Username, err)
		}
		mentions = append(mentions, got...)
	}
	return mentions, nil
}

func (c *Client) fetchFeed(ctx context.Context, f Feed) ([]domain.Mention, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	if len(body) == 0 {
		return nil, ErrEmptyPage
	}

	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	mentions := make([]domain.Mention, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if m, ok := toMention(f, item); ok {
			mentions = append(mentions, m)
		}
	}

	c.log.Debug("Fetched feed", logger.String("collector", f.Username), logger.Int("mentions", len(mentions)))
	return mentions, nil
}

// toMention converts a feed item. Items without a usable link are skipped.
func toMention(f Feed, item *gofeed.Item) (domain.BookmarkMention, bool) {
	link := itemLink(item)
	if link == "" {
		return domain.BookmarkMention{}, false
	}

	tag := f.Tag
	if tag == "" && len(item.Categories) > 0 {
		tag = item.Categories[0]
	}

	id := item.GUID
	if id == "" {
		id = link
	}

	var saved time.Time
	switch {
	case item.PublishedParsed != nil:
		saved = item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		saved = item.UpdatedParsed.UTC()
	}

	return domain.BookmarkMention{
		CollectorUsername: f.Username,
		Tag:               tag,
		SavedAt:           saved,
		BookmarkID:        id,
		URL:               link,
		Note:              strings.TrimSpace(item.Description),
	}, true
}

// itemLink prefers the explicit link, falling back to a GUID that looks
// like an HTTP URL.
func itemLink(item *gofeed.Item) string {
	if item.Link != "" {
		return item.Link
	}
	if strings.HasPrefix(item.GUID, httpPrefix) {
		return item.GUID
	}
	return ""
}
