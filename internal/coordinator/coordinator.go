// Package coordinator drives one fetch cycle: it guards against overlapping
// runs, fetches every source, merges with the previous snapshot, filters for
// staleness, ranks and persists the result.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonesrussell/north-cloud/link-aggregator/internal/domain"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/freshness"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/keywords"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/logger"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/metrics"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/orchestrator"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/rank"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/store"
)

const (
	// RunLockKey holds the run-in-progress flag.
	RunLockKey = "run:in-progress"
	// SnapshotKey holds the latest snapshot.
	SnapshotKey = "snapshot:latest"

	DefaultSourceConcurrency = 2
)

var (
	// ErrRunInProgress is returned when another run holds the flag.
	ErrRunInProgress = errors.New("a run is already in progress")
	// ErrNoSources is returned when no source could be fetched and there is
	// no previous snapshot to fall back on.
	ErrNoSources = errors.New("no source could be fetched")
	// ErrNoSnapshot is returned by Latest before the first successful run.
	ErrNoSnapshot = errors.New("no snapshot available")
)

// Source supplies mention batches.
type Source = orchestrator.Source

// SourceFetcher resolves one source into records.
type SourceFetcher interface {
	FetchSource(ctx context.Context, src Source) ([]domain.ArticleRecord, error)
}

// Store persists snapshots and the run flag.
type Store interface {
	GetJSON(ctx context.Context, key string, dst any) error
	SetJSON(ctx context.Context, key string, value any) error
	NewLock(key string, ttl time.Duration) *store.Lock
}

// EntryLookup reads the article cache entry for a URL. It returns
// store.ErrNotFound when the URL was never resolved.
type EntryLookup interface {
	Lookup(ctx context.Context, rawURL string) (domain.Entry, error)
}

// Config holds run settings.
type Config struct {
	SourceConcurrency int           `mapstructure:"source_concurrency"`
	LockTTL           time.Duration `mapstructure:"lock_ttl"`
}

// Params are the collaborators of a Coordinator.
type Params struct {
	Config    Config
	Store     Store
	Fetcher   SourceFetcher
	Sources   []Source
	Freshness *freshness.Filter
	// Entries, when set, drops carried-forward articles whose cache entry
	// has since become terminal.
	Entries     EntryLookup
	IgnoreWords []string
	Logger      logger.Logger
	Metrics     *metrics.Metrics
	Now         func() time.Time
}

// Coordinator runs fetch cycles. Concurrent calls to Run across processes
// sharing a store are excluded by the persisted run flag.
type Coordinator struct {
	store       Store
	fetcher     SourceFetcher
	sources     []Source
	fresh       *freshness.Filter
	entries     EntryLookup
	ignore      *keywords.Matcher
	concurrency int
	lockTTL     time.Duration
	log         logger.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

// New returns a Coordinator.
func New(p Params) *Coordinator {
	c := &Coordinator{
		store:       p.Store,
		fetcher:     p.Fetcher,
		sources:     p.Sources,
		fresh:       p.Freshness,
		entries:     p.Entries,
		ignore:      keywords.NewMatcher(p.IgnoreWords),
		concurrency: p.Config.SourceConcurrency,
		lockTTL:     p.Config.LockTTL,
		log:         p.Logger,
		metrics:     p.Metrics,
		now:         p.Now,
	}
	if c.concurrency <= 0 {
		c.concurrency = DefaultSourceConcurrency
	}
	if c.fresh == nil {
		c.fresh = freshness.New(freshness.Config{}, p.Now)
	}
	if c.log == nil {
		c.log = logger.NewNop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.log = c.log.With(logger.Component("coordinator"))
	return c
}

// Run executes one cycle and returns its snapshot. It fails fast with
// ErrRunInProgress when another run holds the flag.
func (c *Coordinator) Run(ctx context.Context) (*domain.Snapshot, error) {
	start := c.now()

	lock := c.store.NewLock(RunLockKey, c.lockTTL)
	if err := lock.TryLock(ctx); err != nil {
		if errors.Is(err, store.ErrLockNotAcquired) {
			c.metrics.Run(metrics.RunSkipped, 0)
			return nil, ErrRunInProgress
		}
		return nil, fmt.Errorf("acquire run flag: %w", err)
	}
	defer func() {
		if err := lock.Unlock(context.WithoutCancel(ctx)); err != nil {
			c.log.Warn("Failed to release run flag", logger.Error(err))
		}
	}()

	snap, err := c.run(ctx, start)
	took := c.now().Sub(start)
	if err != nil {
		c.metrics.Run(metrics.RunFailed, took)
		c.log.Error("Run failed", logger.Error(err), logger.Duration("took", took))
		return nil, err
	}

	c.metrics.Run(metrics.RunSucceeded, took)
	c.log.Info("Run completed",
		logger.String("run_id", snap.ID),
		logger.Int("articles", len(snap.Articles)),
		logger.Strings("failed_sources", snap.FailedSources),
		logger.Duration("took", took),
	)
	return snap, nil
}

func (c *Coordinator) run(ctx context.Context, start time.Time) (*domain.Snapshot, error) {
	records, failed, errs := c.fetchSources(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prev, err := c.Latest(ctx)
	switch {
	case errors.Is(err, ErrNoSnapshot):
		prev = nil
	case err != nil:
		c.log.Warn("Could not load previous snapshot", logger.Error(err))
		prev = nil
	}

	if len(failed) == len(c.sources) && prev == nil {
		return nil, errors.Join(append([]error{ErrNoSources}, errs...)...)
	}

	if prev != nil {
		records = append(c.carryForward(ctx, prev.Articles), records...)
	}

	ranked := rank.Rank(c.fresh.Fresh(domain.Dedupe(records)))
	snap := &domain.Snapshot{
		ID:            uuid.NewString(),
		CreatedAt:     start,
		Articles:      c.fresh.Ranked(ranked),
		FailedSources: failed,
	}

	if err = c.store.SetJSON(ctx, SnapshotKey, snap); err != nil {
		return nil, fmt.Errorf("persist snapshot: %w", err)
	}
	return snap, nil
}

// carryForward returns the previous snapshot's articles that may still be
// served: removed or failed cache entries and ignored words drop a record.
// A lookup failure keeps the record.
func (c *Coordinator) carryForward(ctx context.Context, prev []domain.ArticleRecord) []domain.ArticleRecord {
	kept := make([]domain.ArticleRecord, 0, len(prev))
	for _, r := range prev {
		if c.ignore.Match(r.URL) || c.ignore.Match(r.Title) || c.ignore.Match(r.Excerpt) {
			continue
		}
		if c.entries != nil {
			entry, err := c.entries.Lookup(ctx, r.URL)
			switch {
			case err == nil && entry.Terminal():
				c.log.Debug("Dropping carried article",
					logger.URL(r.URL), logger.String("kind", string(entry.Kind)))
				continue
			case err != nil && !errors.Is(err, store.ErrNotFound):
				c.log.Warn("Could not look up carried article", logger.URL(r.URL), logger.Error(err))
			}
		}
		kept = append(kept, r)
	}
	return kept
}

// fetchSources resolves every source, at most the configured number at a
// time. A failing source is logged and reported by name.
func (c *Coordinator) fetchSources(ctx context.Context) ([]domain.ArticleRecord, []string, []error) {
	var (
		mu      sync.Mutex
		records []domain.ArticleRecord
		failed  []string
		errs    []error
		g       errgroup.Group
	)
	g.SetLimit(c.concurrency)

	for _, src := range c.sources {
		g.Go(func() error {
			recs, err := c.fetcher.FetchSource(ctx, src)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				c.log.Error("Source failed", logger.String("source", src.Name()), logger.Error(err))
				failed = append(failed, src.Name())
				errs = append(errs, err)
				return nil
			}
			records = append(records, recs...)
			return nil
		})
	}
	_ = g.Wait()

	return records, failed, errs
}

// Latest returns the most recent persisted snapshot.
func (c *Coordinator) Latest(ctx context.Context) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	if err := c.store.GetJSON(ctx, SnapshotKey, &snap); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return &snap, nil
}

// Running reports whether some run currently holds the flag.
func (c *Coordinator) Running(ctx context.Context) (bool, error) {
	return c.store.NewLock(RunLockKey, c.lockTTL).Held(ctx)
}
