// Package social fetches link mentions from curated lists on a social
// platform's JSON API.
package social

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonesrussell/north-cloud/link-aggregator/internal/domain"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/logger"
)

const (
	// Name identifies the source in logs, metrics and snapshots.
	Name = "social"

	defaultBaseURL  = "https://api.twitter.com/1.1"
	defaultPageSize = 200
	defaultMaxPages = 5
	defaultTimeout  = 10 * time.Second
	maxBodyBytes    = 5 * 1024 * 1024

	// createdAtLayout is the platform's timestamp format.
	createdAtLayout = time.RubyDate
)

var (
	// ErrEmptyPage is returned when the API answers with no body at all.
	ErrEmptyPage = errors.New("empty response body")
	// ErrUnexpectedStatus is returned for any non-200 response.
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// List identifies one curated list.
type List struct {
	Owner string `mapstructure:"owner"`
	Slug  string `mapstructure:"slug"`
}

func (l List) String() string {
	return l.Owner + "/" + l.Slug
}

// Config holds API settings.
type Config struct {
	BaseURL     string `mapstructure:"base_url"`
	BearerToken string `mapstructure:"bearer_token"`
	Lists       []List `mapstructure:"lists"`
	PageSize    int    `mapstructure:"page_size"`
	MaxPages    int    `mapstructure:"max_pages"`
}

type status struct {
	ID              int64   `json:"id"`
	IDStr           string  `json:"id_str"`
	CreatedAt       string  `json:"created_at"`
	FullText        string  `json:"full_text"`
	Text            string  `json:"text"`
	FavoriteCount   int     `json:"favorite_count"`
	RetweetCount    int     `json:"retweet_count"`
	User            user    `json:"user"`
	Entities        entity  `json:"entities"`
	RetweetedStatus *status `json:"retweeted_status"`
}

type user struct {
	ScreenName string `json:"screen_name"`
}

type entity struct {
	URLs []struct {
		ExpandedURL string `json:"expanded_url"`
	} `json:"urls"`
}

func (s status) id() string {
	if s.IDStr != "" {
		return s.IDStr
	}
	return strconv.FormatInt(s.ID, 10)
}

func (s status) text() string {
	if s.FullText != "" {
		return s.FullText
	}
	return s.Text
}

func (s status) urls() []string {
	out := make([]string, 0, len(s.Entities.URLs))
	for _, u := range s.Entities.URLs {
		if u.ExpandedURL != "" {
			out = append(out, u.ExpandedURL)
		}
	}
	return out
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

// Client reads every configured list.
type Client struct {
	cfg  Config
	http *http.Client
	log  logger.Logger
}

// New returns a Client with defaults for unset settings.
func New(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaultMaxPages
	}

	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: defaultTimeout},
		log:  logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(logger.Component("social_source"))
	return c
}

// Name implements the source contract.
func (c *Client) Name() string { return Name }

// Fetch returns the mentions of every list. Any list failure fails the batch.
func (c *Client) Fetch(ctx context.Context) ([]domain.Mention, error) {
	mentions := make([]domain.Mention, 0)
	for _, list := range c.cfg.Lists {
		got, err := c.fetchList(ctx, list)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", list, err)
		}
		mentions = append(mentions, got...)
	}
	return mentions, nil
}

// fetchList pages backwards through a list until MaxPages or an empty page.
// The max_id cursor is inclusive, so a repeat of the cursor status is skipped.
func (c *Client) fetchList(ctx context.Context, list List) ([]domain.Mention, error) {
	var (
		mentions []domain.Mention
		cursor   string
	)

	for page := 0; page < c.cfg.MaxPages; page++ {
		statuses, err := c.fetchPage(ctx, list, cursor)
		if err != nil {
			return nil, err
		}

		fresh := 0
		for _, st := range statuses {
			if st.id() == cursor {
				continue
			}
			fresh++
			cursor = st.id()
			if m, ok := toMention(list, st); ok {
				mentions = append(mentions, m)
			}
		}
		if fresh == 0 {
			break
		}
	}

	c.log.Debug("Fetched list", logger.String("list", list.String()), logger.Int("mentions", len(mentions)))
	return mentions, nil
}

func (c *Client) fetchPage(ctx context.Context, list List, cursor string) ([]status, error) {
	q := url.Values{}
	q.Set("owner_screen_name", list.Owner)
	q.Set("slug", list.Slug)
	q.Set("count", strconv.Itoa(c.cfg.PageSize))
	q.Set("tweet_mode", "extended")
	if cursor != "" {
		q.Set("max_id", cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/lists/statuses.json?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.BearerToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request list: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	if len(body) == 0 {
		return nil, ErrEmptyPage
	}

	var statuses []status
	if err = json.Unmarshal(body, &statuses); err != nil {
		return nil, fmt.Errorf("decode statuses: %w", err)
	}
	return statuses, nil
}

// toMention converts a status with at least one link. Retweets contribute
// the original status's links and author.
func toMention(list List, st status) (domain.SocialMention, bool) {
	origin := st
	if st.RetweetedStatus != nil {
		origin = *st.RetweetedStatus
	}
	urls := origin.urls()
	if len(urls) == 0 {
		return domain.SocialMention{}, false
	}

	// zero when malformed
	created, _ := time.Parse(createdAtLayout, st.CreatedAt)

	return domain.SocialMention{
		SourceOwner:    list.Owner,
		SourceListName: list.Slug,
		MentionID:      st.id(),
		AuthorHandle:   origin.User.ScreenName,
		Text:           origin.text(),
		CreatedAt:      created.UTC(),
		FavoriteCount:  st.FavoriteCount,
		RetweetCount:   st.RetweetCount,
		URLs:           urls,
	}, true
}
