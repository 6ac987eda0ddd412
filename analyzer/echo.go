package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ot-clark/llm-rank-diagnostic/fetch"
)

// PromptCategory groups candidate prompts with the indicator terms that
// suggest content would satisfy them.
type PromptCategory struct {
	Name       string
	Prompts    []string
	Indicators []string
	Weight     float64
}

// promptCategories is the fixed prompt taxonomy used to simulate retrieval
// relevance. Weights reflect how often each intent reaches an LLM.
var promptCategories = []PromptCategory{
	{
		Name:       "how_to",
		Prompts:    []string{"How to write AI-visible articles?", "How to improve website visibility?"},
		Indicators: []string{"how to", "steps", "guide", "tutorial", "instructions"},
		Weight:     0.8,
	},
	{
		Name:       "optimization",
		Prompts:    []string{"Website optimization for search engines", "Content structure best practices"},
		Indicators: []string{"optimize", "improve", "best practices", "structure", "seo"},
		Weight:     0.7,
	},
	{
		Name:       "marketing",
		Prompts:    []string{"Content marketing strategies", "Digital marketing best practices"},
		Indicators: []string{"marketing", "strategy", "content", "digital", "campaign"},
		Weight:     0.6,
	},
	{
		Name:       "performance",
		Prompts:    []string{"Website performance optimization", "User experience design tips"},
		Indicators: []string{"performance", "speed", "user experience", "ux", "design"},
		Weight:     0.5,
	},
	{
		Name:       "business",
		Prompts:    []string{"Online business growth strategies"},
		Indicators: []string{"business", "growth", "revenue", "customers", "sales"},
		Weight:     0.4,
	},
}

// testPrompts is the full candidate prompt list reported with each analysis.
var testPrompts = []string{
	"How to write AI-visible articles?",
	"Website optimization for search engines",
	"Content structure best practices",
	"SEO tips for better rankings",
	"How to improve website visibility?",
	"Content marketing strategies",
	"Digital marketing best practices",
	"Website performance optimization",
	"User experience design tips",
	"Online business growth strategies",
}

type promptMatch struct {
	Prompt            string
	Category          string
	RelevanceScore    float64
	MatchedIndicators []string
}

// LLMEchoEstimator estimates how likely page content is to be echoed in LLM
// answers by matching it against the prompt taxonomy (0-10).
type LLMEchoEstimator struct{}

// NewLLMEchoEstimator creates the estimator.
func NewLLMEchoEstimator() *LLMEchoEstimator {
	return &LLMEchoEstimator{}
}

// Analyze inspects a fetched document.
func (e *LLMEchoEstimator) Analyze(page *fetch.Document) EchoAnalysis {
	doc, err := page.HTML()
	if err != nil {
		return EchoAnalysis{URL: page.URL, Error: err.Error()}
	}

	content := extractMainContent(doc)
	matches := matchPrompts(content)

	analysis := EchoAnalysis{
		URL:               page.URL,
		OverlapPercentage: overlapPercentage(matches),
		ExampleMatches:    exampleMatches(content, matches),
		TestPrompts:       testPrompts,
	}
	analysis.Score = e.calculateScore(&analysis)
	return analysis
}

// extractMainContent prefers recognizable main-content containers over the
// whole body.
func extractMainContent(doc *goquery.Document) string {
	clone := goquery.CloneDocument(doc)
	clone.Find("nav, footer, aside, script, style, header").Remove()

	selectors := []string{
		"main", `[role="main"]`, ".main-content", ".content",
		".post-content", ".article-content", "#content", "#main",
	}

	var parts []string
	for _, sel := range selectors {
		clone.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if text := strings.TrimSpace(s.Text()); text != "" {
				parts = append(parts, text)
			}
		})
	}
	if len(parts) == 0 {
		if body := strings.TrimSpace(clone.Find("body").Text()); body != "" {
			parts = append(parts, body)
		}
	}

	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// matchPrompts computes a weighted relevance for every (category, prompt)
// pair from the share of the category's indicator terms present.
func matchPrompts(content string) []promptMatch {
	lower := strings.ToLower(content)
	matches := []promptMatch{}

	for _, cat := range promptCategories {
		matched := []string{}
		for _, ind := range cat.Indicators {
			if strings.Contains(lower, ind) {
				matched = append(matched, ind)
			}
		}
		relevance := clampFloat(float64(len(matched))/float64(len(cat.Indicators)), 0, 1)
		for _, prompt := range cat.Prompts {
			matches = append(matches, promptMatch{
				Prompt:            prompt,
				Category:          cat.Name,
				RelevanceScore:    relevance * cat.Weight,
				MatchedIndicators: matched,
			})
		}
	}

	return matches
}

func overlapPercentage(matches []promptMatch) float64 {
	if len(matches) == 0 {
		return 0
	}
	sum := 0.0
	for _, m := range matches {
		sum += m.RelevanceScore
	}
	pct := sum / float64(len(matches)) * 100
	return clampFloat(pct, 0, 100)
}

// exampleMatches lists the strongest prompt matches plus generic
// observations, capped at five entries.
func exampleMatches(content string, matches []promptMatch) []string {
	sorted := make([]promptMatch, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RelevanceScore > sorted[j].RelevanceScore
	})

	examples := []string{}
	for i := 0; i < len(sorted) && i < 3; i++ {
		if sorted[i].RelevanceScore > 0.3 {
			examples = append(examples,
				fmt.Sprintf("Content matches query '%s' (relevance: %.2f)", sorted[i].Prompt, sorted[i].RelevanceScore))
		}
	}

	if len(content) > 2000 {
		examples = append(examples, "Content is substantial and comprehensive")
	}
	// The taxonomy always carries the how_to and optimization categories, so
	// these observations hold for every page regardless of indicator hits.
	examples = append(examples,
		"Contains instructional or how-to content",
		"Includes optimization and best practices")

	if len(examples) > 5 {
		examples = examples[:5]
	}
	return examples
}

func (e *LLMEchoEstimator) calculateScore(analysis *EchoAnalysis) int {
	score := int(analysis.OverlapPercentage / 10)

	if n := len(analysis.ExampleMatches); n > 0 {
		if n > 3 {
			n = 3
		}
		score += n
	}

	if analysis.OverlapPercentage > 70 {
		score += 2
	} else if analysis.OverlapPercentage > 50 {
		score += 1
	}

	return clampInt(score, 0, 10)
}
