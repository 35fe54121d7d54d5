package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "elision_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "elision_analysis_seconds",
		Help:    "Time spent on analysis tasks.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})

	ModulesAnalyzedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "elision_modules_analyzed_total",
		Help: "Total number of modules run through the elision analyzer.",
	})

	VerdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "elision_verdicts_total",
		Help: "Import declaration verdicts by kind.",
	}, []string{"verdict"})

	DiagnosticsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "elision_diagnostics_total",
		Help: "Diagnostics emitted by kind and severity.",
	}, []string{"kind", "severity"})

	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "elision_cache_hits_total",
		Help: "Module verdict cache hits.",
	})

	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "elision_cache_misses_total",
		Help: "Module verdict cache misses.",
	})

	CacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "elision_cache_entries",
		Help: "Current number of cached module results.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "elision_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	WatcherThrottledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "elision_watcher_throttled_total",
		Help: "Change batches delayed by the re-analysis rate limiter.",
	})
)
