package analyzer

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ot-clark/llm-rank-diagnostic/fetch"
)

// referenceSchemas are the schema.org types every content page is checked
// against.
var referenceSchemas = []string{
	"Organization", "WebPage", "Article", "FAQPage",
	"BreadcrumbList", "Product", "Service", "Person",
}

// SchemaValidator detects structured data and scores schema coverage (0-20).
type SchemaValidator struct{}

// NewSchemaValidator creates the validator.
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{}
}

// Analyze inspects a fetched document for JSON-LD and microdata markup.
func (v *SchemaValidator) Analyze(page *fetch.Document) SchemaAnalysis {
	doc, err := page.HTML()
	if err != nil {
		return SchemaAnalysis{URL: page.URL, Error: err.Error()}
	}

	analysis := SchemaAnalysis{
		URL:         page.URL,
		SchemaTypes: []string{},
	}

	jsonLD := doc.Find(`script[type="application/ld+json"]`)
	if jsonLD.Length() > 0 {
		analysis.HasStructuredData = true
		analysis.SchemaTypes = extractSchemaTypes(jsonLD)
	}

	doc.Find("[itemtype]").Each(func(_ int, s *goquery.Selection) {
		itemtype, _ := s.Attr("itemtype")
		if itemtype == "" {
			return
		}
		analysis.HasStructuredData = true
		parts := strings.Split(itemtype, "/")
		analysis.SchemaTypes = append(analysis.SchemaTypes, parts[len(parts)-1])
	})
	analysis.SchemaTypes = dedupe(analysis.SchemaTypes)

	if canonical, ok := doc.Find(`link[rel="canonical"]`).Attr("href"); ok {
		analysis.CanonicalURL = canonical
	}
	if lastmod, ok := doc.Find(`meta[name="lastmod"]`).Attr("content"); ok {
		analysis.Lastmod = lastmod
	}

	analysis.SitemapEntry = isLikelySitemapEntry(page.URL)
	analysis.MissingSchemas = missingSchemas(analysis.SchemaTypes)
	analysis.Score = v.calculateScore(&analysis)

	return analysis
}

// extractSchemaTypes collects @type values from JSON-LD blocks, recursing
// into @graph and top-level arrays. Malformed blocks are skipped.
func extractSchemaTypes(scripts *goquery.Selection) []string {
	types := []string{}

	appendType := func(v interface{}) {
		switch t := v.(type) {
		case string:
			types = append(types, t)
		case []interface{}:
			for _, item := range t {
				if s, ok := item.(string); ok {
					types = append(types, s)
				}
			}
		}
	}

	collectObject := func(obj map[string]interface{}) {
		if t, ok := obj["@type"]; ok {
			appendType(t)
		}
		if graph, ok := obj["@graph"].([]interface{}); ok {
			for _, item := range graph {
				if m, ok := item.(map[string]interface{}); ok {
					if t, ok := m["@type"]; ok {
						appendType(t)
					}
				}
			}
		}
	}

	scripts.Each(func(_ int, s *goquery.Selection) {
		var data interface{}
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return
		}
		switch d := data.(type) {
		case map[string]interface{}:
			collectObject(d)
		case []interface{}:
			for _, item := range d {
				if m, ok := item.(map[string]interface{}); ok {
					if t, ok := m["@type"]; ok {
						appendType(t)
					}
				}
			}
		}
	})

	return dedupe(types)
}

func missingSchemas(found []string) []string {
	have := make(map[string]struct{}, len(found))
	for _, t := range found {
		have[t] = struct{}{}
	}
	missing := []string{}
	for _, ref := range referenceSchemas {
		if _, ok := have[ref]; !ok {
			missing = append(missing, ref)
		}
	}
	return missing
}

// isLikelySitemapEntry is a placeholder heuristic: only root pages are
// assumed to be listed. A real check would fetch and parse the sitemap.
func isLikelySitemapEntry(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	switch u.Path {
	case "", "/", "/index.html":
		return true
	}
	return false
}

func (v *SchemaValidator) calculateScore(analysis *SchemaAnalysis) int {
	score := 0
	if analysis.HasStructuredData {
		score += 10
	}
	score += len(analysis.SchemaTypes) * 2
	if analysis.CanonicalURL != "" {
		score += 3
	}
	if analysis.Lastmod != "" {
		score += 2
	}
	if analysis.SitemapEntry {
		score += 3
	}
	return clampInt(score, 0, 20)
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
