// Package orchestrator resolves batches of source mentions into article
// records through the article cache with bounded concurrency.
package orchestrator

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonesrussell/north-cloud/link-aggregator/internal/canonical"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/domain"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/freshness"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/keywords"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/logger"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/metrics"
)

const (
	DefaultConcurrency = 5
	DefaultListTimeout = 8 * time.Second
)

// DefaultPlatformHosts are social platform hosts whose links are posts, not articles.
var DefaultPlatformHosts = []string{"twitter.com", "x.com"}

// Resolver turns a URL and a mention into a record; a nil record drops the mention.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string, mention domain.Mention) (*domain.ArticleRecord, error)
}

// Source supplies mention batches. Implementations paginate internally.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]domain.Mention, error)
}

// Config holds orchestrator settings.
type Config struct {
	Concurrency   int           `mapstructure:"concurrency"`
	ListTimeout   time.Duration `mapstructure:"list_timeout"`
	IgnoreWords   []string      `mapstructure:"ignore_words"`
	PlatformHosts []string      `mapstructure:"platform_hosts"`
}

// Params are the collaborators of an Orchestrator.
type Params struct {
	Config        Config
	Resolver      Resolver
	Canonicalizer *canonical.Canonicalizer
	Freshness     *freshness.Filter
	Logger        logger.Logger
	Metrics       *metrics.Metrics
}

// Orchestrator is safe for concurrent use.
type Orchestrator struct {
	resolver      Resolver
	canon         *canonical.Canonicalizer
	ignore        *keywords.Matcher
	platformHosts []string
	concurrency   int
	listTimeout   time.Duration
	fresh         *freshness.Filter
	log           logger.Logger
	metrics       *metrics.Metrics
}

// New returns an Orchestrator with defaults for unset settings.
func New(p Params) *Orchestrator {
	o := &Orchestrator{
		resolver:      p.Resolver,
		canon:         p.Canonicalizer,
		ignore:        keywords.NewMatcher(p.Config.IgnoreWords),
		platformHosts: p.Config.PlatformHosts,
		concurrency:   p.Config.Concurrency,
		listTimeout:   p.Config.ListTimeout,
		fresh:         p.Freshness,
		log:           p.Logger,
		metrics:       p.Metrics,
	}
	if o.canon == nil {
		o.canon = canonical.NewDefault()
	}
	if len(o.platformHosts) == 0 {
		o.platformHosts = DefaultPlatformHosts
	}
	if o.concurrency <= 0 {
		o.concurrency = DefaultConcurrency
	}
	if o.listTimeout <= 0 {
		o.listTimeout = DefaultListTimeout
	}
	if o.fresh == nil {
		o.fresh = freshness.New(freshness.Config{}, nil)
	}
	if o.log == nil {
		o.log = logger.NewNop()
	}
	o.log = o.log.With(logger.Component("orchestrator"))
	return o
}

// FetchSource pulls one batch from src, bounded by the list timeout, and
// resolves it. Source failures are returned; per-URL failures are logged.
func (o *Orchestrator) FetchSource(ctx context.Context, src Source) ([]domain.ArticleRecord, error) {
	listCtx, cancel := context.WithTimeout(ctx, o.listTimeout)
	mentions, err := src.Fetch(listCtx)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", src.Name(), err)
	}

	o.metrics.Mentions(src.Name(), len(mentions))
	o.log.Info("Fetched mentions", logger.String("source", src.Name()), logger.Int("count", len(mentions)))

	return o.FetchAll(ctx, mentions)
}

// FetchAll resolves every candidate URL of mentions, at most the configured
// number at a time. Output order is unspecified. Records are deduplicated by
// URL and filtered for staleness.
func (o *Orchestrator) FetchAll(ctx context.Context, mentions []domain.Mention) ([]domain.ArticleRecord, error) {
	var (
		mu      sync.Mutex
		records []domain.ArticleRecord
		g       errgroup.Group
	)
	g.SetLimit(o.concurrency)

	for _, m := range mentions {
		for _, u := range o.candidates(m) {
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				rec := o.resolve(ctx, u, m)
				if rec == nil {
					return nil
				}
				mu.Lock()
				records = append(records, *rec)
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return o.fresh.Fresh(domain.Dedupe(records)), nil
}

func (o *Orchestrator) resolve(ctx context.Context, u string, m domain.Mention) *domain.ArticleRecord {
	rec, err := o.resolver.Resolve(ctx, u, m)
	if err != nil {
		o.log.Warn("Could not resolve url", logger.URL(u), logger.Error(err))
		return nil
	}
	if rec == nil {
		return nil
	}
	if o.ignore.Match(rec.Title) || o.ignore.Match(rec.Excerpt) {
		o.log.Debug("Ignoring article by content", logger.URL(rec.URL))
		return nil
	}
	return rec
}

// candidates canonicalizes a mention's URLs and drops ignored and
// platform-internal ones.
func (o *Orchestrator) candidates(m domain.Mention) []string {
	var out []string
	for _, raw := range m.CandidateURLs() {
		u := o.canon.Canonicalize(raw)
		switch {
		case u == "":
			continue
		case o.isPlatform(canonical.Host(u)):
			continue
		case o.ignore.Match(u):
			o.log.Debug("Ignoring url", logger.URL(u))
			continue
		}
		if !slices.Contains(out, u) {
			out = append(out, u)
		}
	}
	return out
}

func (o *Orchestrator) isPlatform(host string) bool {
	for _, h := range o.platformHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}
