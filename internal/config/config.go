// Package config loads application settings from a YAML file, the
// environment and an optional .env file.
package config

import (
	"time"

	"github.com/jonesrussell/north-cloud/link-aggregator/internal/canonical"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/coordinator"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/fetcher"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/freshness"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/keywords"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/logger"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/orchestrator"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/sources/bookmarks"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/sources/social"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/store"
)

// Config is the full application configuration.
type Config struct {
	Logger       logger.Config        `mapstructure:"logger"`
	Redis        store.Config         `mapstructure:"redis"`
	Server       ServerConfig         `mapstructure:"server"`
	Fetcher      fetcher.Config       `mapstructure:"fetcher"`
	Orchestrator orchestrator.Config  `mapstructure:"orchestrator"`
	Run          coordinator.Config   `mapstructure:"run"`
	Freshness    freshness.Config     `mapstructure:"freshness"`
	Categories   []keywords.Category  `mapstructure:"categories"`
	JunkParams   []canonical.JunkRule `mapstructure:"junk_params"`
	Social       social.Config        `mapstructure:"social"`
	Bookmarks    bookmarks.Config     `mapstructure:"bookmarks"`
	// Schedule is a cron spec for runs under serve; empty disables scheduling.
	Schedule string `mapstructure:"schedule"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// JunkRules returns the default global parameters followed by the
// configured rules.
func (c *Config) JunkRules() []canonical.JunkRule {
	rules := make([]canonical.JunkRule, 0, len(c.JunkParams)+1)
	rules = append(rules, canonical.JunkRule{Params: canonical.DefaultGlobalParams})
	return append(rules, c.JunkParams...)
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	switch {
	case c.Redis.Address == "":
		return &ValidationError{Field: "redis.address", Value: c.Redis.Address, Reason: "must not be empty"}
	case c.Server.Address == "":
		return &ValidationError{Field: "server.address", Value: c.Server.Address, Reason: "must not be empty"}
	case c.Freshness.Window <= 0:
		return &ValidationError{Field: "freshness.window", Value: c.Freshness.Window, Reason: "must be positive"}
	case c.Freshness.RankBonus < 0:
		return &ValidationError{Field: "freshness.rank_bonus", Value: c.Freshness.RankBonus, Reason: "must not be negative"}
	case c.Orchestrator.Concurrency <= 0:
		return &ValidationError{Field: "orchestrator.concurrency", Value: c.Orchestrator.Concurrency, Reason: "must be positive"}
	case c.Run.SourceConcurrency <= 0:
		return &ValidationError{Field: "run.source_concurrency", Value: c.Run.SourceConcurrency, Reason: "must be positive"}
	}

	for _, cat := range c.Categories {
		if cat.Name == "" || len(cat.Keywords) == 0 {
			return &ValidationError{Field: "categories", Value: cat.Name, Reason: "category needs a name and keywords"}
		}
	}
	for _, l := range c.Social.Lists {
		if l.Owner == "" || l.Slug == "" {
			return &ValidationError{Field: "social.lists", Value: l.String(), Reason: "list needs an owner and a slug"}
		}
	}
	for _, f := range c.Bookmarks.Feeds {
		if f.Username == "" || f.URL == "" {
			return &ValidationError{Field: "bookmarks.feeds", Value: f.Username, Reason: "feed needs a username and a url"}
		}
	}
	return nil
}
