package analyzer

import (
	"time"

	"github.com/ot-clark/llm-rank-diagnostic/scorer"
)

// SemanticAnalysis is the result of the semantic structure dimension (0-25).
type SemanticAnalysis struct {
	URL             string          `json:"url"`
	Score           int             `json:"score"`
	Error           string          `json:"error,omitempty"`
	H1Count         int             `json:"h1Count"`
	H2Count         int             `json:"h2Count"`
	H3Count         int             `json:"h3Count"`
	HierarchyIssues []string        `json:"hierarchyIssues,omitempty"`
	SemanticTags    []string        `json:"semanticTags,omitempty"`
	MissingElements []string        `json:"missingElements,omitempty"`
	InternalLinks   []InternalLink  `json:"internalLinks,omitempty"`
	Details         SemanticDetails `json:"details"`
}

// InternalLink describes one same-site link found on the page.
type InternalLink struct {
	Text         string `json:"text"`
	Href         string `json:"href"`
	Title        string `json:"title"`
	IsNavigation bool   `json:"is_navigation"`
}

type SemanticDetails struct {
	HeadingCounts         map[string]int `json:"headingCounts,omitempty"`
	TagCounts             map[string]int `json:"tagCounts,omitempty"`
	TotalSemanticElements int            `json:"totalSemanticElements"`
	ScoreDeductions       int            `json:"scoreDeductions"`
}

// SchemaAnalysis is the result of the structured-data dimension (0-20).
type SchemaAnalysis struct {
	URL               string   `json:"url"`
	Score             int      `json:"score"`
	Error             string   `json:"error,omitempty"`
	HasStructuredData bool     `json:"hasStructuredData"`
	SchemaTypes       []string `json:"schemaTypes,omitempty"`
	MissingSchemas    []string `json:"missingSchemas,omitempty"`
	CanonicalURL      string   `json:"canonicalUrl"`
	Lastmod           string   `json:"lastmod"`
	SitemapEntry      bool     `json:"sitemapEntry"`
}

// Section is a heading-delimited slice of the page body.
type Section struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Clarity float64 `json:"clarityScore"`
}

// ClarityAnalysis is the result of the lexical clarity dimension (0-20).
type ClarityAnalysis struct {
	URL             string    `json:"url"`
	Score           int       `json:"score"`
	Error           string    `json:"error,omitempty"`
	TermConsistency float64   `json:"termConsistency"`
	SelfContainment float64   `json:"selfContainment"`
	RedundancyScore float64   `json:"redundancyScore"`
	Sections        []Section `json:"sections,omitempty"`
}

// AccessibilityAnalysis is the result of the bot accessibility dimension (0-15).
type AccessibilityAnalysis struct {
	URL          string   `json:"url"`
	Score        int      `json:"score"`
	Error        string   `json:"error,omitempty"`
	Accessible   bool     `json:"accessible"`
	StatusCode   int      `json:"statusCode"`
	Redirects    []string `json:"redirects,omitempty"`
	Blocks       []string `json:"blocks,omitempty"`
	ResponseTime float64  `json:"responseTime"`
}

// FreshnessAnalysis is the result of the content freshness dimension (0-10).
type FreshnessAnalysis struct {
	URL          string            `json:"url"`
	Score        int               `json:"score"`
	Error        string            `json:"error,omitempty"`
	LastModified string            `json:"lastModified"`
	CacheHeaders map[string]string `json:"cacheHeaders,omitempty"`
	Age          int               `json:"age"`
}

// EchoAnalysis is the result of the LLM echo probability dimension (0-10).
type EchoAnalysis struct {
	URL               string   `json:"url"`
	Score             int      `json:"score"`
	Error             string   `json:"error,omitempty"`
	OverlapPercentage float64  `json:"overlapPercentage"`
	ExampleMatches    []string `json:"exampleMatches,omitempty"`
	TestPrompts       []string `json:"testPrompts,omitempty"`
}

// Report bundles every dimension for one page into a single record.
// VisibilityScore is the sum of the six analyzer scores (0-100); the rubric
// is the holistic 0-100 grade produced by the remote or fallback scorer.
type Report struct {
	ID              string                `json:"id"`
	URL             string                `json:"url"`
	FetchedAt       time.Time             `json:"fetchedAt"`
	Title           string                `json:"title"`
	Description     string                `json:"description"`
	Semantic        SemanticAnalysis      `json:"semantic"`
	Schema          SchemaAnalysis        `json:"schema"`
	Clarity         ClarityAnalysis       `json:"clarity"`
	Accessibility   AccessibilityAnalysis `json:"accessibility"`
	Freshness       FreshnessAnalysis     `json:"freshness"`
	Echo            EchoAnalysis          `json:"echo"`
	VisibilityScore int                   `json:"visibilityScore"`
	Rubric          scorer.RubricScore    `json:"rubric"`
}

// SumScores re-derives the composite visibility score from the six bounded
// dimension scores.
func (r *Report) SumScores() int {
	return r.Semantic.Score + r.Schema.Score + r.Clarity.Score +
		r.Accessibility.Score + r.Freshness.Score + r.Echo.Score
}
