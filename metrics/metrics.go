// Package metrics exposes prometheus instrumentation for the diagnostic
// service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "llmrank",
		Name:      "analyses_total",
		Help:      "Page analyses by outcome.",
	}, []string{"outcome"})

	analysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "llmrank",
		Name:      "analysis_duration_seconds",
		Help:      "End-to-end duration of a page analysis.",
		Buckets:   prometheus.DefBuckets,
	})

	fallbackScorings = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "llmrank",
		Name:      "fallback_scorings_total",
		Help:      "Holistic grades produced by the local fallback scorer.",
	})

	cacheEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "llmrank",
		Name:      "analysis_cache_events_total",
		Help:      "Analysis cache hits and misses.",
	}, []string{"event"})

	crawledPages = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "llmrank",
		Name:      "crawled_pages_total",
		Help:      "Pages fetched by the crawler.",
	})
)

// RecordAnalysis counts one finished analysis with its outcome ("ok" or
// "degraded") and duration.
func RecordAnalysis(outcome string, seconds float64) {
	analysesTotal.WithLabelValues(outcome).Inc()
	analysisDuration.Observe(seconds)
}

// RecordFallback counts one fallback scoring.
func RecordFallback() {
	fallbackScorings.Inc()
}

// RecordCacheHit counts one analysis cache hit.
func RecordCacheHit() {
	cacheEvents.WithLabelValues("hit").Inc()
}

// RecordCacheMiss counts one analysis cache miss.
func RecordCacheMiss() {
	cacheEvents.WithLabelValues("miss").Inc()
}

// RecordCrawledPage counts one crawled page.
func RecordCrawledPage() {
	crawledPages.Inc()
}
