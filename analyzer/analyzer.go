// Package analyzer runs the six bounded visibility dimensions plus the
// holistic rubric grade for a page and assembles them into a Report.
package analyzer

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ot-clark/llm-rank-diagnostic/fetch"
	"github.com/ot-clark/llm-rank-diagnostic/llm"
	"github.com/ot-clark/llm-rank-diagnostic/metrics"
	"github.com/ot-clark/llm-rank-diagnostic/scorer"
	"github.com/ot-clark/llm-rank-diagnostic/stats"
)

// Cache entry with expiration
type cacheEntry struct {
	report    *Report
	timestamp time.Time
}

// CacheStats provides statistics about the analyzer's cache
type CacheStats struct {
	Entries          int           `json:"entries"`
	CacheHits        int           `json:"cacheHits"`
	CacheMisses      int           `json:"cacheMisses"`
	DegradedResults  int           `json:"degradedResults"`
	FallbackScorings int           `json:"fallbackScorings"`
	CacheTTL         time.Duration `json:"cacheTTL"`
}

// Analyzer coordinates fetching, the six dimension analyzers, and the
// holistic scorer. Reports are cached per URL.
type Analyzer struct {
	fetcher   *fetch.Fetcher
	semantic  *SemanticStructureAnalyzer
	schema    *SchemaValidator
	clarity   *EmbeddingClarityAnalyzer
	botTester *GPTBotAccessibilityTester
	freshness *FreshnessAnalyzer
	echo      *LLMEchoEstimator
	scorer    *scorer.HolisticScorer

	cache           map[string]cacheEntry
	cacheMutex      sync.RWMutex
	cacheTTL        time.Duration
	maxCacheSize    int
	lastCleanup     time.Time
	cleanupInterval time.Duration

	stats  *stats.Storage
	logger *slog.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// Option customizes an Analyzer.
type Option func(*Analyzer)

// WithLLMClient sets the grading client. Without one every rubric grade uses
// the local fallback scorer.
func WithLLMClient(client llm.Client) Option {
	return func(a *Analyzer) {
		a.scorer = scorer.New(client, 60*time.Second, a.logger, scorer.WithFallbackHook(a.recordFallback))
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = logger }
}

// WithFetchTimeout sets the page fetch timeout.
func WithFetchTimeout(timeout time.Duration) Option {
	return func(a *Analyzer) { a.fetcher = fetch.NewFetcher(timeout, fetch.DefaultUserAgent) }
}

// New creates a new Analyzer instance
func New(dataDir string, opts ...Option) (*Analyzer, error) {
	// Initialize statistics storage
	statsStorage, err := stats.NewStorage(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize stats storage: %w", err)
	}

	analyzer := &Analyzer{
		fetcher:         fetch.NewFetcher(15*time.Second, fetch.DefaultUserAgent),
		semantic:        NewSemanticStructureAnalyzer(),
		schema:          NewSchemaValidator(),
		clarity:         NewEmbeddingClarityAnalyzer(),
		freshness:       NewFreshnessAnalyzer(),
		echo:            NewLLMEchoEstimator(),
		cache:           make(map[string]cacheEntry),
		cacheTTL:        30 * time.Minute, // Cache results for 30 minutes
		maxCacheSize:    1000,             // Maximum number of cached reports
		cleanupInterval: 5 * time.Minute,  // Run cleanup every 5 minutes
		lastCleanup:     time.Now(),
		stats:           statsStorage,
		logger:          slog.Default(),
		done:            make(chan struct{}),
	}

	for _, opt := range opts {
		opt(analyzer)
	}

	// The bot tester shares the fetcher's pooled transport but sends its own
	// headers, so it is built after options may have replaced the fetcher.
	analyzer.botTester = NewGPTBotAccessibilityTester(analyzer.fetcher.Transport(), 10*time.Second)
	if analyzer.scorer == nil {
		analyzer.scorer = scorer.New(nil, 60*time.Second, analyzer.logger,
			scorer.WithFallbackHook(analyzer.recordFallback))
	}

	// Start cleanup goroutine
	go analyzer.periodicCleanup()

	return analyzer, nil
}

func (a *Analyzer) recordFallback() {
	metrics.RecordFallback()
	a.stats.RecordFallback()
}

// periodicCleanup removes expired entries from the cache periodically
func (a *Analyzer) periodicCleanup() {
	ticker := time.NewTicker(a.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.cleanup()
		case <-a.done:
			return
		}
	}
}

// cleanup removes expired entries and ensures cache size limits
func (a *Analyzer) cleanup() {
	now := time.Now()

	a.cacheMutex.Lock()
	for key, entry := range a.cache {
		if now.Sub(entry.timestamp) > a.cacheTTL {
			delete(a.cache, key)
		}
	}

	// If still over size limit, remove oldest entries
	if len(a.cache) > a.maxCacheSize {
		entries := make([]struct {
			key       string
			timestamp time.Time
		}, 0, len(a.cache))

		for key, entry := range a.cache {
			entries = append(entries, struct {
				key       string
				timestamp time.Time
			}{key, entry.timestamp})
		}

		sort.Slice(entries, func(i, j int) bool {
			return entries[i].timestamp.Before(entries[j].timestamp)
		})

		for i := 0; i < len(entries)-a.maxCacheSize; i++ {
			delete(a.cache, entries[i].key)
		}
	}
	a.lastCleanup = now
	a.cacheMutex.Unlock()
}

// SetMaxCacheSize sets the maximum number of entries in the report cache
func (a *Analyzer) SetMaxCacheSize(size int) {
	a.cacheMutex.Lock()
	a.maxCacheSize = size
	a.cacheMutex.Unlock()
	a.cleanup() // Run cleanup immediately if new size is smaller
}

// SetCacheTTL sets the cache TTL
func (a *Analyzer) SetCacheTTL(ttl time.Duration) {
	a.cacheMutex.Lock()
	defer a.cacheMutex.Unlock()
	a.cacheTTL = ttl
}

// ClearCache clears the report cache
func (a *Analyzer) ClearCache() {
	a.cacheMutex.Lock()
	defer a.cacheMutex.Unlock()
	a.cache = make(map[string]cacheEntry)
}

// generateCacheKey creates a unique key for the URL
func generateCacheKey(url string) string {
	hash := md5.Sum([]byte(url))
	return hex.EncodeToString(hash[:])
}

// GetCacheStats returns statistics about the cache
func (a *Analyzer) GetCacheStats() CacheStats {
	currentStats := a.stats.GetCurrentStats()

	a.cacheMutex.RLock()
	entries := len(a.cache)
	ttl := a.cacheTTL
	a.cacheMutex.RUnlock()

	return CacheStats{
		Entries:          entries,
		CacheHits:        currentStats.AnalysisCacheHits,
		CacheMisses:      currentStats.AnalysisCacheMisses,
		DegradedResults:  currentStats.DegradedResults,
		FallbackScorings: currentStats.FallbackScorings,
		CacheTTL:         ttl,
	}
}

// IsCached checks if a URL is in the cache and not expired
func (a *Analyzer) IsCached(url string) bool {
	cacheKey := generateCacheKey(url)
	a.cacheMutex.RLock()
	defer a.cacheMutex.RUnlock()

	entry, found := a.cache[cacheKey]
	return found && time.Since(entry.timestamp) < a.cacheTTL
}

// Analyze runs a complete visibility analysis of the given URL. It never
// fails: a page that cannot be fetched produces a degraded Report where every
// dimension carries the fetch error and a zero score.
func (a *Analyzer) Analyze(url string) *Report {
	// Check if cleanup is needed
	a.cacheMutex.RLock()
	stale := time.Since(a.lastCleanup) > a.cleanupInterval
	a.cacheMutex.RUnlock()
	if stale {
		go a.cleanup() // Run cleanup in background
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return a.AnalyzeWithContext(ctx, url)
}

// AnalyzeWithContext runs a complete visibility analysis with the caller's
// context.
func (a *Analyzer) AnalyzeWithContext(ctx context.Context, url string) *Report {
	// Check cache first
	cacheKey := generateCacheKey(url)
	a.cacheMutex.RLock()
	if entry, found := a.cache[cacheKey]; found {
		if time.Since(entry.timestamp) < a.cacheTTL {
			a.cacheMutex.RUnlock()
			a.stats.RecordCacheHit()
			metrics.RecordCacheHit()
			return entry.report
		}
	}
	a.cacheMutex.RUnlock()

	// Not in cache or expired
	a.stats.RecordCacheMiss()
	metrics.RecordCacheMiss()

	report := a.analyze(ctx, url)

	// Store in cache
	a.cacheMutex.Lock()
	a.cache[cacheKey] = cacheEntry{
		report:    report,
		timestamp: time.Now(),
	}
	a.cacheMutex.Unlock()

	return report
}

func (a *Analyzer) analyze(ctx context.Context, url string) *Report {
	startTime := time.Now()

	page, err := a.fetcher.Fetch(ctx, url)
	if err != nil {
		a.logger.Warn("page fetch failed", "url", url, "error", err)
		report := a.degradedReport(url, err)
		a.stats.RecordDegraded()
		metrics.RecordAnalysis("degraded", time.Since(startTime).Seconds())
		return report
	}

	report := &Report{
		ID:        uuid.NewString(),
		URL:       url,
		FetchedAt: time.Now().UTC(),
	}

	report.Title = page.Title()
	report.Description = page.Description()
	content := page.Content()

	// Every dimension writes a distinct field, so they run concurrently
	// without coordination beyond the WaitGroup.
	var wg sync.WaitGroup
	wg.Add(7)
	go func() {
		defer wg.Done()
		report.Semantic = a.semantic.Analyze(page)
	}()
	go func() {
		defer wg.Done()
		report.Schema = a.schema.Analyze(page)
	}()
	go func() {
		defer wg.Done()
		report.Clarity = a.clarity.Analyze(page)
	}()
	go func() {
		defer wg.Done()
		report.Accessibility = a.botTester.Analyze(ctx, url)
	}()
	go func() {
		defer wg.Done()
		report.Freshness = a.freshness.Analyze(page)
	}()
	go func() {
		defer wg.Done()
		report.Echo = a.echo.Analyze(page)
	}()
	go func() {
		defer wg.Done()
		report.Rubric = a.scorer.Score(ctx, content, report.Title, report.Description)
	}()
	wg.Wait()

	report.VisibilityScore = report.SumScores()
	metrics.RecordAnalysis("ok", time.Since(startTime).Seconds())

	return report
}

// degradedReport builds the uniform failure shape: every dimension reports
// the fetch error with a zero score, and the rubric is the fallback grade of
// empty content.
func (a *Analyzer) degradedReport(url string, err error) *Report {
	msg := err.Error()
	report := &Report{
		ID:            uuid.NewString(),
		URL:           url,
		FetchedAt:     time.Now().UTC(),
		Semantic:      SemanticAnalysis{URL: url, Error: msg},
		Schema:        SchemaAnalysis{URL: url, Error: msg},
		Clarity:       ClarityAnalysis{URL: url, Error: msg},
		Accessibility: AccessibilityAnalysis{URL: url, Error: msg},
		Freshness:     FreshnessAnalysis{URL: url, Error: msg},
		Echo:          EchoAnalysis{URL: url, Error: msg},
	}
	report.Rubric = scorer.FallbackScore("", "", "")
	a.recordFallback()
	report.VisibilityScore = report.SumScores()
	return report
}

// GetStats returns the statistics storage instance
func (a *Analyzer) GetStats() *stats.Storage {
	return a.stats
}

// Fetcher returns the shared page fetcher.
func (a *Analyzer) Fetcher() *fetch.Fetcher {
	return a.fetcher
}

// Shutdown stops the cleanup goroutine and flushes statistics
func (a *Analyzer) Shutdown() error {
	if a == nil {
		return nil
	}

	a.closeOnce.Do(func() { close(a.done) })

	if a.stats != nil {
		if err := a.stats.Shutdown(); err != nil {
			return fmt.Errorf("failed to shutdown stats storage: %w", err)
		}
	}

	a.cacheMutex.Lock()
	a.cache = nil
	a.cacheMutex.Unlock()

	return nil
}
