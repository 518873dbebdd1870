package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/link-aggregator/internal/coordinator"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/domain"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/logger"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/store"
)

// Runner runs fetch cycles and serves their snapshots.
type Runner interface {
	Run(ctx context.Context) (*domain.Snapshot, error)
	Latest(ctx context.Context) (*domain.Snapshot, error)
}

// ArticleCache looks up and removes cached articles.
type ArticleCache interface {
	Lookup(ctx context.Context, rawURL string) (domain.Entry, error)
	Remove(ctx context.Context, rawURL string) error
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Handler implements the API endpoints.
type Handler struct {
	runner Runner
	cache  ArticleCache
	health HealthCheck
	log    logger.Logger
}

// NewHandler returns a Handler. A nil health check always passes.
func NewHandler(runner Runner, cache ArticleCache, health HealthCheck, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{runner: runner, cache: cache, health: health, log: log}
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	if h.health != nil {
		if err := h.health(c.Request.Context()); err != nil {
			h.log.Warn("Health check failed", logger.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Articles handles GET /api/v1/articles
func (h *Handler) Articles(c *gin.Context) {
	snap, err := h.runner.Latest(c.Request.Context())
	if errors.Is(err, coordinator.ErrNoSnapshot) {
		respondNotFound(c, "snapshot")
		return
	}
	if err != nil {
		h.log.Error("Failed to load snapshot", logger.Error(err))
		respondInternalError(c, "Failed to load snapshot")
		return
	}

	c.JSON(http.StatusOK, limitSnapshot(snap, parseLimit(c)))
}

// TriggerRun handles POST /api/v1/runs
func (h *Handler) TriggerRun(c *gin.Context) {
	snap, err := h.runner.Run(c.Request.Context())
	switch {
	case errors.Is(err, coordinator.ErrRunInProgress):
		respondError(c, http.StatusConflict, err.Error())
		return
	case errors.Is(err, coordinator.ErrNoSources):
		respondError(c, http.StatusBadGateway, err.Error())
		return
	case err != nil:
		respondInternalError(c, "Run failed")
		return
	}

	c.JSON(http.StatusOK, snap)
}

// Lookup handles GET /api/v1/cache?url=
func (h *Handler) Lookup(c *gin.Context) {
	raw := c.Query("url")
	if raw == "" {
		respondBadRequest(c, "url is required")
		return
	}

	entry, err := h.cache.Lookup(c.Request.Context(), raw)
	if errors.Is(err, store.ErrNotFound) {
		respondNotFound(c, "cache entry")
		return
	}
	if err != nil {
		h.log.Error("Cache lookup failed", logger.URL(raw), logger.Error(err))
		respondInternalError(c, "Failed to look up url")
		return
	}
	c.JSON(http.StatusOK, entry)
}

// RemoveArticle handles DELETE /api/v1/articles?url=
func (h *Handler) RemoveArticle(c *gin.Context) {
	raw := c.Query("url")
	if raw == "" {
		respondBadRequest(c, "url is required")
		return
	}

	if err := h.cache.Remove(c.Request.Context(), raw); err != nil {
		h.log.Error("Failed to remove article", logger.URL(raw), logger.Error(err))
		respondInternalError(c, "Failed to remove article")
		return
	}

	h.log.Info("Article removed", logger.URL(raw))
	c.JSON(http.StatusOK, gin.H{"message": "article removed"})
}

func limitSnapshot(snap *domain.Snapshot, limit int) *domain.Snapshot {
	if limit <= 0 || limit >= len(snap.Articles) {
		return snap
	}
	out := *snap
	out.Articles = snap.Articles[:limit]
	return &out
}
