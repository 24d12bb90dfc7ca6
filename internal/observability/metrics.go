package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// namespace defines the global prefix for all metrics (almoner_...).
const namespace = "almoner"

// screeningBuckets covers the expected latency range of a screening request.
// The p95 target is well under a second even on a cold cache, so standard
// buckets starting at 5ms lose too much resolution at the low end.
var screeningBuckets = []float64{.001, .002, .005, .010, .025, .050, .100, .250, .500, 1}

var (
	// -------------------------------------------------------------------------
	// API (HTTP)
	// -------------------------------------------------------------------------

	// APIReqDuration measures the latency of HTTP requests.
	// Metric: almoner_api_http_handling_seconds
	APIReqDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "http_handling_seconds",
		Help:      "Time taken to handle HTTP requests",
		Buckets:   screeningBuckets,
	}, []string{"method", "path"})

	// APIReqTotal counts HTTP requests by outcome.
	// Metric: almoner_api_http_requests_total
	APIReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests",
	}, []string{"method", "path", "code"})

	// -------------------------------------------------------------------------
	// SCREENING (rule evaluation)
	// -------------------------------------------------------------------------

	// ScreeningsTotal counts screenings by resulting status
	// (likely, possibly, unlikely).
	ScreeningsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "screening",
		Name:      "evaluations_total",
		Help:      "Total screenings evaluated, by resulting status",
	}, []string{"status"})

	// RuleCompileFailures counts rules skipped because their stored
	// expression failed to compile. Any non-zero value means authored
	// content is broken and a program may silently never match.
	RuleCompileFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "screening",
		Name:      "rule_compile_failures_total",
		Help:      "Total rules skipped due to malformed expressions",
	})

	// -------------------------------------------------------------------------
	// CACHE
	// -------------------------------------------------------------------------

	// CacheHits counts rule set lookups served by each cache tier
	// (local, shared).
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total rule set lookups served from cache, by tier",
	}, []string{"tier"})

	// CacheMisses counts lookups that fell through each tier.
	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total rule set lookups that missed, by tier",
	}, []string{"tier"})

	// -------------------------------------------------------------------------
	// SYNCER (cache warmer)
	// -------------------------------------------------------------------------

	// SyncerCycleDuration measures one full warm cycle across all
	// jurisdictions.
	SyncerCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "syncer",
		Name:      "cycle_duration_seconds",
		Help:      "Time taken to warm all jurisdictions in one cycle",
		Buckets:   prometheus.DefBuckets,
	})

	// SyncerCyclesTotal counts warm cycles by outcome (success, fail).
	SyncerCyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "syncer",
		Name:      "cycles_total",
		Help:      "Total warm cycles run",
	}, []string{"status"})

	// SyncerRuleSetsWarmed counts individual rule set payloads written to
	// the shared cache.
	SyncerRuleSetsWarmed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "syncer",
		Name:      "rule_sets_warmed_total",
		Help:      "Total rule set payloads written to the shared cache",
	})
)
