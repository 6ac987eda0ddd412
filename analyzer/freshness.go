package analyzer

import (
	"encoding/json"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ot-clark/llm-rank-diagnostic/fetch"
)

// fallbackAgeDays is assumed when no date signal is found or parsing fails.
const fallbackAgeDays = 365

// cacheHeaderFields are the response headers considered cache hygiene.
var cacheHeaderFields = []string{
	"cache-control", "etag", "last-modified", "expires", "age", "pragma", "vary",
}

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),     // YYYY-MM-DD
	regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`), // MM/DD/YYYY
	regexp.MustCompile(`\b\d{1,2}-\d{1,2}-\d{4}\b`), // MM-DD-YYYY
}

var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// FreshnessAnalyzer scores content recency and cache hygiene (0-10).
type FreshnessAnalyzer struct {
	now func() time.Time
}

// NewFreshnessAnalyzer creates the analyzer.
func NewFreshnessAnalyzer() *FreshnessAnalyzer {
	return &FreshnessAnalyzer{now: time.Now}
}

// Analyze inspects a fetched document and its response headers.
func (a *FreshnessAnalyzer) Analyze(page *fetch.Document) FreshnessAnalysis {
	doc, err := page.HTML()
	if err != nil {
		return FreshnessAnalysis{URL: page.URL, Error: err.Error()}
	}

	analysis := FreshnessAnalysis{
		URL:          page.URL,
		LastModified: extractLastModified(page, doc),
		CacheHeaders: extractCacheHeaders(page),
	}
	analysis.Age = a.contentAge(analysis.LastModified)
	analysis.Score = a.calculateScore(&analysis)
	return analysis
}

// extractLastModified probes date sources in priority order: response
// header, lastmod meta tag, JSON-LD dateModified, then a date-shaped string
// anywhere in the visible text.
func extractLastModified(page *fetch.Document, doc *goquery.Document) string {
	if v := page.Header.Get("Last-Modified"); v != "" {
		return v
	}

	if v, ok := doc.Find(`meta[name="lastmod"]`).Attr("content"); ok && v != "" {
		return v
	}

	found := ""
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data interface{}
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		switch d := data.(type) {
		case map[string]interface{}:
			if v, ok := d["dateModified"].(string); ok {
				found = v
				return false
			}
		case []interface{}:
			for _, item := range d {
				if m, ok := item.(map[string]interface{}); ok {
					if v, ok := m["dateModified"].(string); ok {
						found = v
						return false
					}
				}
			}
		}
		return true
	})
	if found != "" {
		return found
	}

	text := doc.Text()
	for _, pattern := range datePatterns {
		if m := pattern.FindString(text); m != "" {
			return m
		}
	}

	return ""
}

func extractCacheHeaders(page *fetch.Document) map[string]string {
	headers := map[string]string{}
	for _, field := range cacheHeaderFields {
		if v := page.Header.Get(field); v != "" {
			headers[field] = v
		}
	}
	return headers
}

// contentAge converts the discovered date string to whole days before now,
// floored at zero. Missing or unparsable dates count as a year old.
func (a *FreshnessAnalyzer) contentAge(lastModified string) int {
	if lastModified == "" {
		return fallbackAgeDays
	}

	var parsed time.Time
	if strings.Contains(lastModified, ",") {
		t, err := mail.ParseDate(lastModified)
		if err != nil {
			return fallbackAgeDays
		}
		parsed = t
	} else {
		ok := false
		for _, layout := range isoLayouts {
			if t, err := time.Parse(layout, lastModified); err == nil {
				parsed = t
				ok = true
				break
			}
		}
		if !ok {
			return fallbackAgeDays
		}
	}

	age := int(a.now().Sub(parsed).Hours() / 24)
	if age < 0 {
		return 0
	}
	return age
}

func (a *FreshnessAnalyzer) calculateScore(analysis *FreshnessAnalysis) int {
	score := 0

	switch age := analysis.Age; {
	case age == 0:
		score += 5
	case age <= 7:
		score += 4
	case age <= 30:
		score += 3
	case age <= 90:
		score += 2
	case age < fallbackAgeDays:
		score += 1
	}

	if analysis.LastModified != "" {
		score += 2
	}
	if len(analysis.CacheHeaders) > 0 {
		score += 2
	}
	if cc, ok := analysis.CacheHeaders["cache-control"]; ok {
		if strings.Contains(cc, "max-age") && strings.Contains(cc, "3600") {
			score += 1
		}
	}

	return clampInt(score, 0, 10)
}
