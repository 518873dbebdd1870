package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/api"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/coordinator"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/domain"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/metrics"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeRunner struct {
	snap   *domain.Snapshot
	runErr error
	latErr error
}

func (f *fakeRunner) Run(context.Context) (*domain.Snapshot, error) {
	return f.snap, f.runErr
}

func (f *fakeRunner) Latest(context.Context) (*domain.Snapshot, error) {
	return f.snap, f.latErr
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]domain.Entry
	removed []string
}

func (f *fakeCache) Lookup(_ context.Context, raw string) (domain.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[raw]
	if !ok {
		return domain.Entry{}, store.ErrNotFound
	}
	return e, nil
}

func (f *fakeCache) Remove(_ context.Context, raw string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, raw)
	return nil
}

func snapshot() *domain.Snapshot {
	return &domain.Snapshot{
		ID: "run-1",
		Articles: []domain.ArticleRecord{
			{URL: "https://example.com/a", Rank: 10},
			{URL: "https://example.com/b", Rank: 5},
		},
	}
}

func do(t *testing.T, router http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	t.Parallel()

	ok := api.NewRouter(api.NewHandler(&fakeRunner{}, &fakeCache{}, nil, nil), nil, nil)
	w := do(t, ok, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	down := api.NewRouter(api.NewHandler(&fakeRunner{}, &fakeCache{},
		func(context.Context) error { return errors.New("redis down") }, nil), nil, nil)
	w = do(t, down, http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestArticles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		runner    *fakeRunner
		target    string
		wantCode  int
		wantCount int
	}{
		{"latest snapshot", &fakeRunner{snap: snapshot()}, "/api/v1/articles", http.StatusOK, 2},
		{"limited", &fakeRunner{snap: snapshot()}, "/api/v1/articles?limit=1", http.StatusOK, 1},
		{"no snapshot yet", &fakeRunner{latErr: coordinator.ErrNoSnapshot}, "/api/v1/articles", http.StatusNotFound, 0},
		{"store failure", &fakeRunner{latErr: errors.New("io")}, "/api/v1/articles", http.StatusInternalServerError, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := api.NewRouter(api.NewHandler(tt.runner, &fakeCache{}, nil, nil), nil, nil)
			w := do(t, router, http.MethodGet, tt.target)
			require.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode != http.StatusOK {
				return
			}

			var got domain.Snapshot
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Len(t, got.Articles, tt.wantCount)
		})
	}
}

func TestTriggerRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		runner   *fakeRunner
		wantCode int
	}{
		{"completed", &fakeRunner{snap: snapshot()}, http.StatusOK},
		{"already running", &fakeRunner{runErr: coordinator.ErrRunInProgress}, http.StatusConflict},
		{"no sources", &fakeRunner{runErr: coordinator.ErrNoSources}, http.StatusBadGateway},
		{"failed", &fakeRunner{runErr: errors.New("boom")}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := api.NewRouter(api.NewHandler(tt.runner, &fakeCache{}, nil, nil), nil, nil)
			w := do(t, router, http.MethodPost, "/api/v1/runs")
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestRemoveArticle(t *testing.T) {
	t.Parallel()

	cache := &fakeCache{}
	router := api.NewRouter(api.NewHandler(&fakeRunner{}, cache, nil, nil), nil, nil)

	w := do(t, router, http.MethodDelete, "/api/v1/articles")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodDelete, "/api/v1/articles?url=https%3A%2F%2Fexample.com%2Fa")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"https://example.com/a"}, cache.removed)
}

func TestLookup(t *testing.T) {
	t.Parallel()

	cache := &fakeCache{entries: map[string]domain.Entry{
		"https://example.com/gone": domain.RemovedEntry(),
	}}
	router := api.NewRouter(api.NewHandler(&fakeRunner{}, cache, nil, nil), nil, nil)

	w := do(t, router, http.MethodGet, "/api/v1/cache?url=https://example.com/gone")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"kind":"removed"}`, w.Body.String())

	w = do(t, router, http.MethodGet, "/api/v1/cache?url=https://example.com/unknown")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.CacheLookup(metrics.LookupHit)

	router := api.NewRouter(api.NewHandler(&fakeRunner{}, &fakeCache{}, nil, nil), reg, nil)
	w := do(t, router, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "link_aggregator_cache_lookups_total"))
}
