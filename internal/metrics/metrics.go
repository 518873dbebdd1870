// Package metrics exposes Prometheus instrumentation for the pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "link_aggregator"

// Cache lookup results.
const (
	LookupHit      = "hit"
	LookupMiss     = "miss"
	LookupRedirect = "redirect"
	LookupTerminal = "terminal"
)

// Page fetch outcomes.
const (
	FetchOK        = "ok"
	FetchTerminal  = "terminal"
	FetchTransient = "transient"
)

// Run statuses.
const (
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
	RunSkipped   = "skipped"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	CacheLookups   *prometheus.CounterVec
	PageFetches    *prometheus.CounterVec
	SourceMentions *prometheus.CounterVec
	Runs           *prometheus.CounterVec
	RunDuration    prometheus.Histogram
}

// New registers the collectors with reg, or the default registerer when nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Article cache lookups by result",
		}, []string{"result"}),
		PageFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "fetch",
			Name:      "pages_total",
			Help:      "Page fetches by outcome",
		}, []string{"outcome"}),
		SourceMentions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "sources",
			Name:      "mentions_total",
			Help:      "Mentions received per source",
		}, []string{"source"}),
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "runs",
			Name:      "total",
			Help:      "Fetch cycles by status",
		}, []string{"status"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "runs",
			Name:      "duration_seconds",
			Help:      "Duration of completed fetch cycles",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
	}
}

func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) PageFetch(outcome string) {
	if m == nil {
		return
	}
	m.PageFetches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Mentions(source string, n int) {
	if m == nil {
		return
	}
	m.SourceMentions.WithLabelValues(source).Add(float64(n))
}

// Run records a finished cycle. Skipped runs are counted but not timed.
func (m *Metrics) Run(status string, took time.Duration) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(status).Inc()
	if status != RunSkipped {
		m.RunDuration.Observe(took.Seconds())
	}
}
