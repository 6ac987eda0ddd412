package analyzer

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/publicsuffix"

	"github.com/ot-clark/llm-rank-diagnostic/fetch"
)

// semanticTagNames is the fixed set of recognized semantic elements, in
// reporting order.
var semanticTagNames = []string{
	"table", "dl", "ul", "ol", "blockquote", "code", "pre",
	"article", "section", "nav", "aside", "main", "header", "footer",
}

// SemanticStructureAnalyzer scores heading hierarchy, semantic markup and
// internal linking (0-25).
type SemanticStructureAnalyzer struct{}

// NewSemanticStructureAnalyzer creates the analyzer.
func NewSemanticStructureAnalyzer() *SemanticStructureAnalyzer {
	return &SemanticStructureAnalyzer{}
}

// Analyze inspects a fetched document. Failures yield the uniform degraded
// result instead of an error.
func (a *SemanticStructureAnalyzer) Analyze(page *fetch.Document) SemanticAnalysis {
	doc, err := page.HTML()
	if err != nil {
		return SemanticAnalysis{URL: page.URL, Error: err.Error()}
	}

	analysis := SemanticAnalysis{
		URL:             page.URL,
		HierarchyIssues: []string{},
		SemanticTags:    []string{},
		MissingElements: []string{},
		InternalLinks:   []InternalLink{},
	}

	a.analyzeHeadingHierarchy(doc, &analysis)
	a.analyzeSemanticTags(doc, &analysis)
	analysis.InternalLinks = a.collectInternalLinks(doc, page.URL)
	analysis.MissingElements = a.checkMissingElements(doc, len(analysis.InternalLinks))
	analysis.Score = a.calculateScore(&analysis)

	return analysis
}

func (a *SemanticStructureAnalyzer) analyzeHeadingHierarchy(doc *goquery.Document, analysis *SemanticAnalysis) {
	counts := make(map[string]int, 6)
	for _, tag := range []string{"h1", "h2", "h3", "h4", "h5", "h6"} {
		counts[tag] = doc.Find(tag).Length()
	}
	analysis.H1Count = counts["h1"]
	analysis.H2Count = counts["h2"]
	analysis.H3Count = counts["h3"]
	analysis.Details.HeadingCounts = counts

	deductions := 0
	if counts["h1"] > 1 {
		analysis.HierarchyIssues = append(analysis.HierarchyIssues,
			fmt.Sprintf("Multiple H1 tags found (%d)", counts["h1"]))
		deductions += 3
	}
	if counts["h1"] == 0 {
		analysis.HierarchyIssues = append(analysis.HierarchyIssues, "No H1 tag found")
		deductions += 5
	}

	// Walk the siblings after each H1 up to the next H1: an H3 that shows up
	// before any sibling H2 is a hierarchy gap.
	doc.Find("h1").Each(func(_ int, h1 *goquery.Selection) {
		h2Seen := false
		for sib := h1.Next(); sib.Length() > 0; sib = sib.Next() {
			switch goquery.NodeName(sib) {
			case "h1":
				return
			case "h2":
				h2Seen = true
			case "h3":
				if !h2Seen {
					analysis.HierarchyIssues = append(analysis.HierarchyIssues,
						"H3 found without preceding H2")
					deductions += 2
				}
			}
		}
	})

	analysis.Details.ScoreDeductions = deductions
}

func (a *SemanticStructureAnalyzer) analyzeSemanticTags(doc *goquery.Document, analysis *SemanticAnalysis) {
	tagCounts := make(map[string]int, len(semanticTagNames))
	total := 0
	for _, tag := range semanticTagNames {
		n := doc.Find(tag).Length()
		tagCounts[tag] = n
		total += n
		if n > 0 {
			analysis.SemanticTags = append(analysis.SemanticTags, tag)
		}
	}
	analysis.Details.TagCounts = tagCounts
	analysis.Details.TotalSemanticElements = total
}

func (a *SemanticStructureAnalyzer) checkMissingElements(doc *goquery.Document, internalLinkCount int) []string {
	missing := []string{}

	if doc.Find("dl").Length() == 0 {
		missing = append(missing, "definition lists")
	}

	hasGlossary := false
	doc.Find("dl").EachWithBreak(func(_ int, dl *goquery.Selection) bool {
		if dl.Find("dt").Length() > 0 && dl.Find("dd").Length() > 0 {
			hasGlossary = true
			return false
		}
		return true
	})
	if !hasGlossary {
		missing = append(missing, "glossary")
	}

	if internalLinkCount < 3 {
		missing = append(missing, "internal links")
	}

	if doc.Find(`script[type="application/ld+json"]`).Length() == 0 {
		missing = append(missing, "structured data")
	}

	return missing
}

func (a *SemanticStructureAnalyzer) collectInternalLinks(doc *goquery.Document, baseURL string) []InternalLink {
	links := []InternalLink{}

	base, err := url.Parse(baseURL)
	if err != nil {
		return links
	}
	baseDomain := registrableDomain(base.Hostname())

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref)
		if registrableDomain(resolved.Hostname()) != baseDomain {
			return
		}

		text := truncateRunes(strings.TrimSpace(s.Text()), 50)
		title, _ := s.Attr("title")
		links = append(links, InternalLink{
			Text:         text,
			Href:         href,
			Title:        title,
			IsNavigation: s.ParentsFiltered("nav").Length() > 0,
		})
	})

	return links
}

func (a *SemanticStructureAnalyzer) calculateScore(analysis *SemanticAnalysis) int {
	score := 25

	score -= analysis.Details.ScoreDeductions
	score -= len(analysis.MissingElements) * 2

	switch n := len(analysis.SemanticTags); {
	case n >= 8:
		score += 3
	case n >= 5:
		score += 2
	case n >= 3:
		score += 1
	}

	switch n := len(analysis.InternalLinks); {
	case n >= 10:
		score += 2
	case n >= 5:
		score += 1
	}

	return clampInt(score, 0, 25)
}

// registrableDomain reduces a host to its eTLD+1 so subdomains of the same
// site count as internal.
func registrableDomain(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	return host
}
