// Package freshness drops records whose timestamps fall outside the configured window.
package freshness

import (
	"time"

	"github.com/jonesrussell/north-cloud/link-aggregator/internal/domain"
)

const (
	DefaultWindow    = 30 * 24 * time.Hour
	DefaultRankBonus = 24 * time.Hour
)

// Config sets the window and the extra age each rank point buys in the
// post-rank pass.
type Config struct {
	Window    time.Duration `mapstructure:"window"`
	RankBonus time.Duration `mapstructure:"rank_bonus"`
}

// Filter applies the staleness window. Records whose relevant timestamp is
// unknown are kept.
type Filter struct {
	window time.Duration
	bonus  time.Duration
	now    func() time.Time
}

// New returns a Filter. A nil now uses time.Now.
func New(cfg Config, now func() time.Time) *Filter {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.RankBonus < 0 {
		cfg.RankBonus = 0
	}
	if now == nil {
		now = time.Now
	}
	return &Filter{window: cfg.Window, bonus: cfg.RankBonus, now: now}
}

// Fresh keeps records whose freshest timestamp is inside the window.
func (f *Filter) Fresh(records []domain.ArticleRecord) []domain.ArticleRecord {
	cutoff := f.now().Add(-f.window)
	return keep(records, func(r domain.ArticleRecord) bool {
		t := r.Freshest()
		return t.IsZero() || !t.Before(cutoff)
	})
}

// Ranked keeps ranked records whose best-known timestamp is inside the window
// extended by rank times the rank bonus.
func (f *Filter) Ranked(records []domain.ArticleRecord) []domain.ArticleRecord {
	now := f.now()
	return keep(records, func(r domain.ArticleRecord) bool {
		if r.Timestamp.IsZero() {
			return true
		}
		allowed := f.window + time.Duration(r.Rank)*f.bonus
		return !r.Timestamp.Before(now.Add(-allowed))
	})
}

func keep(records []domain.ArticleRecord, ok func(domain.ArticleRecord) bool) []domain.ArticleRecord {
	out := make([]domain.ArticleRecord, 0, len(records))
	for _, r := range records {
		if ok(r) {
			out = append(out, r)
		}
	}
	return out
}
