// Package common builds the dependency graph shared by every command.
package common

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/link-aggregator/internal/cache"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/canonical"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/config"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/coordinator"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/extractor"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/fetcher"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/freshness"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/keywords"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/logger"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/metrics"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/orchestrator"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/record"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/sources/bookmarks"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/sources/social"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/store"
)

// Options are the persistent flags of the root command.
type Options struct {
	ConfigFile string
	Debug      bool
}

// Deps holds everything a command needs. Close releases it.
type Deps struct {
	Config      *config.Config
	Logger      logger.Logger
	Registry    *prometheus.Registry
	Metrics     *metrics.Metrics
	Redis       *redis.Client
	Store       *store.Store
	Cache       *cache.Cache
	Coordinator *coordinator.Coordinator
}

// NewDeps loads configuration and wires the pipeline.
func NewDeps(ctx context.Context, opts Options) (*Deps, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.Debug {
		cfg.Logger.Level = "debug"
		cfg.Logger.Format = logger.FormatConsole
		cfg.Logger.Development = true
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	kv, err := store.Open(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	canon := canonical.New(cfg.JunkRules())
	fresh := freshness.New(cfg.Freshness, nil)

	articles := cache.New(cache.Params{
		Store:         kv,
		Fetcher:       fetcher.New(cfg.Fetcher),
		Extractor:     extractor.New(),
		Merger:        record.NewMerger(keywords.CompileCategories(cfg.Categories)),
		Canonicalizer: canon,
		Logger:        log,
		Metrics:       m,
	})

	orch := orchestrator.New(orchestrator.Params{
		Config:        cfg.Orchestrator,
		Resolver:      articles,
		Canonicalizer: canon,
		Freshness:     fresh,
		Logger:        log,
		Metrics:       m,
	})

	coord := coordinator.New(coordinator.Params{
		Config:      cfg.Run,
		Store:       kv,
		Fetcher:     orch,
		Sources:     buildSources(cfg, log),
		Freshness:   fresh,
		Entries:     articles,
		IgnoreWords: cfg.Orchestrator.IgnoreWords,
		Logger:      log,
		Metrics:     m,
	})

	return &Deps{
		Config:      cfg,
		Logger:      log,
		Registry:    registry,
		Metrics:     m,
		Redis:       kv.Client(),
		Store:       kv,
		Cache:       articles,
		Coordinator: coord,
	}, nil
}

func buildSources(cfg *config.Config, log logger.Logger) []coordinator.Source {
	var sources []coordinator.Source
	if len(cfg.Social.Lists) > 0 {
		sources = append(sources, social.New(cfg.Social, social.WithLogger(log)))
	}
	if len(cfg.Bookmarks.Feeds) > 0 {
		sources = append(sources, bookmarks.New(cfg.Bookmarks, bookmarks.WithLogger(log)))
	}
	if len(sources) == 0 {
		log.Warn("No sources configured")
	}
	return sources
}

// Close flushes the logger and closes the Redis client.
func (d *Deps) Close() {
	_ = d.Logger.Sync()
	_ = d.Store.Close()
}
