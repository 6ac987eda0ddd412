// Package logging tracks service usage: unique visitors, analysis request
// volume, error rate and latency, persisted as JSON.
package logging

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Environment variable name for controlling statistics visibility
const ENV_DEV_MODE = "DEV_MODE"

// Statistics represents the collected usage statistics
type Statistics struct {
	UniqueVisitors   map[string]time.Time `json:"uniqueVisitors"`   // IP -> Last Visit Time
	AnalysisRequests int                  `json:"analysisRequests"` // Total number of analysis requests
	CrawlRequests    int                  `json:"crawlRequests"`    // Total number of crawl requests
	ErrorCount       int                  `json:"errorCount"`       // Number of errors
	PopularURLs      map[string]int       `json:"popularUrls"`      // Analyzed URL -> Count
	AverageLoadTime  float64              `json:"averageLoadTime"`  // Average analysis latency in milliseconds
	TotalLoadTime    float64              `json:"-"`                // Used to calculate average
	RequestCount     int                  `json:"-"`                // Used to calculate average
	LastPersisted    time.Time            `json:"lastPersisted"`    // Last time stats were saved

	filePath string
	mutex    sync.RWMutex
}

// Initialize creates the statistics tracker, loading any previous state from
// statistics.json under dataDir.
func Initialize(dataDir string) *Statistics {
	s := &Statistics{
		UniqueVisitors: make(map[string]time.Time),
		PopularURLs:    make(map[string]int),
		LastPersisted:  time.Now(),
		filePath:       filepath.Join(dataDir, "statistics.json"),
	}

	// Try to load existing statistics
	if err := s.Load(); err != nil {
		fmt.Printf("Could not load existing statistics: %v\n", err)
	}
	return s
}

// TrackVisitor records a unique visitor
func (s *Statistics) TrackVisitor(ip string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.UniqueVisitors[ip] = time.Now()
}

// cleanURL strips query and fragment and drops local or API URLs
func cleanURL(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return urlStr
	}

	// Don't track our own API URLs
	if strings.Contains(u.Host, "localhost") ||
		strings.Contains(u.Host, "127.0.0.1") ||
		strings.Contains(strings.ToLower(u.Path), "/api/") {
		return ""
	}

	cleaned := u.Scheme + "://" + u.Host
	if u.Path != "" && u.Path != "/" {
		cleaned += u.Path
	}

	return strings.TrimSuffix(cleaned, "/")
}

// TrackAnalysis records an analysis request for the given target URL
func (s *Statistics) TrackAnalysis(targetURL string, loadTime float64, hasError bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.AnalysisRequests++

	// Clean the URL before storing
	if cleaned := cleanURL(targetURL); cleaned != "" {
		s.PopularURLs[cleaned]++
	}

	if hasError {
		s.ErrorCount++
	}

	// Update average load time
	s.TotalLoadTime += loadTime
	s.RequestCount++
	s.AverageLoadTime = s.TotalLoadTime / float64(s.RequestCount)
}

// TrackTargetURL records the page a request asked to score, for the popular
// URL listing
func (s *Statistics) TrackTargetURL(targetURL string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if cleaned := cleanURL(targetURL); cleaned != "" {
		s.PopularURLs[cleaned]++
	}
}

// TrackCrawl records a crawl request
func (s *Statistics) TrackCrawl(hasError bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.CrawlRequests++
	if hasError {
		s.ErrorCount++
	}
}

// uniqueVisitorsLocked counts visitors seen in the last 24 hours. Callers
// must hold at least the read lock.
func (s *Statistics) uniqueVisitorsLocked() int {
	count := 0
	cutoff := time.Now().Add(-24 * time.Hour)

	for _, lastVisit := range s.UniqueVisitors {
		if lastVisit.After(cutoff) {
			count++
		}
	}
	return count
}

// GetUniqueVisitorsCount returns the number of unique visitors in the last 24 hours
func (s *Statistics) GetUniqueVisitorsCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.uniqueVisitorsLocked()
}

// errorRateLocked computes the error percentage. Callers must hold at least
// the read lock.
func (s *Statistics) errorRateLocked() float64 {
	total := s.AnalysisRequests + s.CrawlRequests
	if total == 0 {
		return 0
	}
	return (float64(s.ErrorCount) / float64(total)) * 100
}

// GetErrorRate returns the error rate as a percentage
func (s *Statistics) GetErrorRate() float64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.errorRateLocked()
}

// GetPopularURLs returns up to n analyzed URLs with their counts
func (s *Statistics) GetPopularURLs(n int) map[string]int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := make(map[string]int)
	count := 0
	for u, freq := range s.PopularURLs {
		if count >= n {
			break
		}
		result[u] = freq
		count++
	}
	return result
}

// Save persists the statistics to the JSON file
func (s *Statistics) Save() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.LastPersisted = time.Now()

	file, err := os.Create(s.filePath)
	if err != nil {
		return fmt.Errorf("could not create statistics file: %v", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	if err := encoder.Encode(s); err != nil {
		return fmt.Errorf("could not encode statistics: %v", err)
	}

	return nil
}

// Load reads the statistics from the JSON file
func (s *Statistics) Load() error {
	file, err := os.Open(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // Not an error if file doesn't exist yet
		}
		return fmt.Errorf("could not open statistics file: %v", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(s); err != nil {
		return fmt.Errorf("could not decode statistics: %v", err)
	}

	return nil
}

// TotalRequests returns the combined analysis and crawl request count
func (s *Statistics) TotalRequests() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.AnalysisRequests + s.CrawlRequests
}

// GetStatistics returns a snapshot of the current statistics. Full detail,
// including popular URLs, only appears in development mode.
func (s *Statistics) GetStatistics() map[string]interface{} {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := map[string]interface{}{
		"uniqueVisitors24h": s.uniqueVisitorsLocked(),
		"totalRequests":     s.AnalysisRequests + s.CrawlRequests,
		"analysisRequests":  s.AnalysisRequests,
		"crawlRequests":     s.CrawlRequests,
		"errorRate":         s.errorRateLocked(),
		"averageLoadTime":   s.AverageLoadTime,
	}

	if os.Getenv(ENV_DEV_MODE) == "true" {
		popular := make(map[string]int)
		count := 0
		for u, freq := range s.PopularURLs {
			if count >= 5 {
				break
			}
			popular[u] = freq
			count++
		}
		out["popularUrls"] = popular // Top URLs only shown in dev mode
	}

	return out
}
