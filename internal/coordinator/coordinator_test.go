package coordinator_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/cache"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/coordinator"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/domain"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/fetcher"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/orchestrator"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return store.New(client, "test:")
}

type namedSource struct {
	name     string
	mentions []domain.Mention
	err      error
}

func (s namedSource) Name() string { return s.name }

func (s namedSource) Fetch(context.Context) ([]domain.Mention, error) {
	return s.mentions, s.err
}

// stubFetcher returns canned records or errors per source name.
type stubFetcher struct {
	records map[string][]domain.ArticleRecord
	errs    map[string]error
	block   chan struct{}
	calls   atomic.Int32
}

func (f *stubFetcher) FetchSource(ctx context.Context, src coordinator.Source) ([]domain.ArticleRecord, error) {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.errs[src.Name()]; err != nil {
		return nil, err
	}
	return f.records[src.Name()], nil
}

func rec(url string, retweets int, ts time.Time) domain.ArticleRecord {
	return domain.ArticleRecord{
		URL:          url,
		Sources:      []domain.Source{domain.SourceSocial},
		MentionIDs:   []string{url},
		RetweetCount: retweets,
		Timestamp:    ts,
	}
}

func TestRun_RanksAndPersists(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	s := newStore(t)
	f := &stubFetcher{records: map[string][]domain.ArticleRecord{
		"social":    {rec("https://a.example/1", 1, now), rec("https://a.example/2", 50, now)},
		"bookmarks": {rec("https://b.example/1", 0, now)},
	}}
	c := coordinator.New(coordinator.Params{
		Store:   s,
		Fetcher: f,
		Sources: []coordinator.Source{namedSource{name: "social"}, namedSource{name: "bookmarks"}},
	})

	snap, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Articles, 3)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, "https://a.example/2", snap.Articles[0].URL)
	for _, a := range snap.Articles {
		assert.GreaterOrEqual(t, a.Rank, 1)
		assert.LessOrEqual(t, a.Rank, 10)
	}

	latest, err := c.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, snap.ID, latest.ID)

	running, err := c.Running(context.Background())
	require.NoError(t, err)
	assert.False(t, running, "run flag must be released")
}

func TestRun_FailsFastWhenRunInProgress(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	f := &stubFetcher{}
	c := coordinator.New(coordinator.Params{
		Store:   s,
		Fetcher: f,
		Sources: []coordinator.Source{namedSource{name: "social"}},
	})

	other := s.NewLock(coordinator.RunLockKey, time.Minute)
	require.NoError(t, other.TryLock(context.Background()))

	_, err := c.Run(context.Background())
	require.ErrorIs(t, err, coordinator.ErrRunInProgress)
	assert.Zero(t, f.calls.Load())
}

func TestRun_OverlappingRuns(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	f := &stubFetcher{block: make(chan struct{})}
	c := coordinator.New(coordinator.Params{
		Store:   s,
		Fetcher: f,
		Sources: []coordinator.Source{namedSource{name: "social"}},
	})

	done := make(chan error, 1)
	go func() {
		_, err := c.Run(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	_, err := c.Run(context.Background())
	require.ErrorIs(t, err, coordinator.ErrRunInProgress)

	close(f.block)
	require.NoError(t, <-done)
}

func TestRun_AllSourcesFailWithoutSnapshot(t *testing.T) {
	t.Parallel()

	boom := errors.New("bad credentials")
	c := coordinator.New(coordinator.Params{
		Store:   newStore(t),
		Fetcher: &stubFetcher{errs: map[string]error{"social": boom, "bookmarks": boom}},
		Sources: []coordinator.Source{namedSource{name: "social"}, namedSource{name: "bookmarks"}},
	})

	_, err := c.Run(context.Background())
	require.ErrorIs(t, err, coordinator.ErrNoSources)
	require.ErrorIs(t, err, boom)
}

func TestRun_FallsBackToPreviousSnapshot(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	s := newStore(t)
	require.NoError(t, s.SetJSON(context.Background(), coordinator.SnapshotKey, domain.Snapshot{
		ID:       "previous",
		Articles: []domain.ArticleRecord{rec("https://a.example/old", 3, now)},
	}))

	c := coordinator.New(coordinator.Params{
		Store:   s,
		Fetcher: &stubFetcher{errs: map[string]error{"social": errors.New("timeout")}},
		Sources: []coordinator.Source{namedSource{name: "social"}},
	})

	snap, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Articles, 1)
	assert.Equal(t, "https://a.example/old", snap.Articles[0].URL)
	assert.Equal(t, []string{"social"}, snap.FailedSources)
}

func TestRun_PartialFailureKeepsOtherSources(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	c := coordinator.New(coordinator.Params{
		Store: newStore(t),
		Fetcher: &stubFetcher{
			records: map[string][]domain.ArticleRecord{"bookmarks": {rec("https://b.example/1", 0, now)}},
			errs:    map[string]error{"social": errors.New("malformed response")},
		},
		Sources: []coordinator.Source{namedSource{name: "social"}, namedSource{name: "bookmarks"}},
	})

	snap, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Articles, 1)
	assert.Equal(t, []string{"social"}, snap.FailedSources)
}

func TestRun_MergesWithPreviousSnapshot(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	s := newStore(t)
	older := rec("https://a.example/1", 1, now)
	require.NoError(t, s.SetJSON(context.Background(), coordinator.SnapshotKey, domain.Snapshot{
		Articles: []domain.ArticleRecord{older, rec("https://a.example/kept", 0, now)},
	}))

	newer := older.Clone()
	newer.MentionIDs = append(newer.MentionIDs, "second")
	newer.RetweetCount = 7

	c := coordinator.New(coordinator.Params{
		Store:   s,
		Fetcher: &stubFetcher{records: map[string][]domain.ArticleRecord{"social": {newer}}},
		Sources: []coordinator.Source{namedSource{name: "social"}},
	})

	snap, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Articles, 2)
	assert.Equal(t, "https://a.example/1", snap.Articles[0].URL)
	assert.Equal(t, 7, snap.Articles[0].RetweetCount)
}

func TestLatest_NoSnapshot(t *testing.T) {
	t.Parallel()

	c := coordinator.New(coordinator.Params{Store: newStore(t), Fetcher: &stubFetcher{}})
	_, err := c.Latest(context.Background())
	require.ErrorIs(t, err, coordinator.ErrNoSnapshot)
}

func TestRun_SocialAndBookmarkMentionsConverge(t *testing.T) {
	t.Parallel()

	var fetches atomic.Int32
	pages := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fetches.Add(1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Shared article</title></head>
			<body><p>one two three four five six seven eight nine ten eleven</p></body></html>`))
	}))
	t.Cleanup(pages.Close)

	s := newStore(t)
	now := time.Now().UTC()
	articleURL := pages.URL + "/post?utm_source=feed"

	resolver := cache.New(cache.Params{Store: s, Fetcher: fetcher.New(fetcher.Config{Timeout: 5 * time.Second})})
	orch := orchestrator.New(orchestrator.Params{Resolver: resolver})

	c := coordinator.New(coordinator.Params{
		Store:   s,
		Fetcher: orch,
		Sources: []coordinator.Source{
			namedSource{name: "social", mentions: []domain.Mention{domain.SocialMention{
				SourceOwner: "alice", SourceListName: "tech", MentionID: "t1",
				CreatedAt: now, RetweetCount: 2, URLs: []string{articleURL},
			}}},
			namedSource{name: "bookmarks", mentions: []domain.Mention{domain.BookmarkMention{
				CollectorUsername: "bob", Tag: "go", SavedAt: now, BookmarkID: "b1", URL: articleURL,
			}}},
		},
	})

	snap, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Articles, 1)

	got := snap.Articles[0]
	assert.Equal(t, pages.URL+"/post", got.URL)
	assert.Equal(t, "Shared article", got.Title)
	assert.ElementsMatch(t, []domain.Source{domain.SourceSocial, domain.SourceBookmark}, got.Sources)
	assert.Equal(t, int32(1), fetches.Load())
}

func TestRun_RemovedArticleLeavesLaterSnapshots(t *testing.T) {
	t.Parallel()

	pages := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Soon gone</title></head>
			<body><p>one two three four five six seven eight nine ten eleven</p></body></html>`))
	}))
	t.Cleanup(pages.Close)

	ctx := context.Background()
	s := newStore(t)
	articleURL := pages.URL + "/post"
	resolver := cache.New(cache.Params{Store: s, Fetcher: fetcher.New(fetcher.Config{Timeout: 5 * time.Second})})
	orch := orchestrator.New(orchestrator.Params{Resolver: resolver})

	newCoordinator := func(mentions []domain.Mention) *coordinator.Coordinator {
		return coordinator.New(coordinator.Params{
			Store:   s,
			Fetcher: orch,
			Sources: []coordinator.Source{namedSource{name: "social", mentions: mentions}},
			Entries: resolver,
		})
	}

	first, err := newCoordinator([]domain.Mention{domain.SocialMention{
		SourceOwner: "alice", SourceListName: "tech", MentionID: "t1",
		CreatedAt: time.Now().UTC(), URLs: []string{articleURL},
	}}).Run(ctx)
	require.NoError(t, err)
	require.Len(t, first.Articles, 1)

	require.NoError(t, resolver.Remove(ctx, articleURL))

	second, err := newCoordinator(nil).Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, second.Articles)
}

// stubEntries serves cache entries by URL; other URLs are not found.
type stubEntries struct {
	entries map[string]domain.Entry
	errs    map[string]error
}

func (e stubEntries) Lookup(_ context.Context, rawURL string) (domain.Entry, error) {
	if err := e.errs[rawURL]; err != nil {
		return domain.Entry{}, err
	}
	entry, ok := e.entries[rawURL]
	if !ok {
		return domain.Entry{}, store.ErrNotFound
	}
	return entry, nil
}

func TestRun_CarryForwardPruning(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	ignored := rec("https://a.example/ignored", 0, now)
	ignored.Title = "Crypto weekly"

	s := newStore(t)
	require.NoError(t, s.SetJSON(context.Background(), coordinator.SnapshotKey, domain.Snapshot{
		Articles: []domain.ArticleRecord{
			rec("https://a.example/kept", 0, now),
			rec("https://a.example/failed", 0, now),
			rec("https://a.example/removed", 0, now),
			rec("https://a.example/unreachable", 0, now),
			ignored,
		},
	}))

	c := coordinator.New(coordinator.Params{
		Store:   s,
		Fetcher: &stubFetcher{},
		Sources: []coordinator.Source{namedSource{name: "social"}},
		Entries: stubEntries{
			entries: map[string]domain.Entry{
				"https://a.example/kept":    domain.ResolvedEntry(rec("https://a.example/kept", 0, now)),
				"https://a.example/failed":  domain.ScrapeErrorEntry("http 404"),
				"https://a.example/removed": domain.RemovedEntry(),
			},
			errs: map[string]error{"https://a.example/unreachable": errors.New("connection refused")},
		},
		IgnoreWords: []string{"crypto"},
	})

	snap, err := c.Run(context.Background())
	require.NoError(t, err)

	urls := make([]string, 0, len(snap.Articles))
	for _, a := range snap.Articles {
		urls = append(urls, a.URL)
	}
	assert.ElementsMatch(t, []string{"https://a.example/kept", "https://a.example/unreachable"}, urls)
}
