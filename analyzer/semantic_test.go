package analyzer

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ot-clark/llm-rank-diagnostic/fetch"
)

// testDoc builds a fetched document from literal HTML.
func testDoc(url, html string) *fetch.Document {
	return &fetch.Document{URL: url, RawHTML: html}
}

func TestSemanticAnalyzeWellStructured(t *testing.T) {
	html := `<html><head>
		<script type="application/ld+json">{"@type":"Article"}</script>
	</head><body>
		<h1>Title</h1>
		<h2>Sub</h2>
		<article><section>
			<ul>
				<li><a href="/a">One</a></li>
				<li><a href="/b">Two</a></li>
				<li><a href="/c">Three</a></li>
			</ul>
		</section></article>
		<dl><dt>Term</dt><dd>Definition</dd></dl>
	</body></html>`

	analysis := NewSemanticStructureAnalyzer().Analyze(testDoc("https://example.com/page", html))

	if analysis.Error != "" {
		t.Fatalf("unexpected error: %s", analysis.Error)
	}
	if analysis.H1Count != 1 || analysis.H2Count != 1 {
		t.Errorf("heading counts = %d/%d, want 1/1", analysis.H1Count, analysis.H2Count)
	}
	if len(analysis.HierarchyIssues) != 0 {
		t.Errorf("unexpected hierarchy issues: %v", analysis.HierarchyIssues)
	}
	if len(analysis.MissingElements) != 0 {
		t.Errorf("unexpected missing elements: %v", analysis.MissingElements)
	}
	if len(analysis.InternalLinks) != 3 {
		t.Errorf("internal links = %d, want 3", len(analysis.InternalLinks))
	}
	if analysis.Score != 25 {
		t.Errorf("score = %d, want 25", analysis.Score)
	}
}

func TestSemanticAnalyzeMissingH1(t *testing.T) {
	analysis := NewSemanticStructureAnalyzer().Analyze(
		testDoc("https://example.com/page", `<html><body><h3>Only heading</h3></body></html>`))

	if analysis.H1Count != 0 {
		t.Errorf("H1Count = %d, want 0", analysis.H1Count)
	}
	found := false
	for _, issue := range analysis.HierarchyIssues {
		if issue == "No H1 tag found" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected missing H1 issue, got %v", analysis.HierarchyIssues)
	}
	// 25 base, -5 for missing H1, -2 for each of the four missing elements.
	if analysis.Score != 12 {
		t.Errorf("score = %d, want 12", analysis.Score)
	}
}

func TestSemanticAnalyzeHierarchyGaps(t *testing.T) {
	html := `<html><body>
		<h1>First</h1>
		<h3>Skipped a level</h3>
		<h2>Late</h2>
		<h1>Second</h1>
	</body></html>`

	analysis := NewSemanticStructureAnalyzer().Analyze(testDoc("https://example.com/page", html))

	wantMultiple := false
	wantGap := false
	for _, issue := range analysis.HierarchyIssues {
		if issue == "Multiple H1 tags found (2)" {
			wantMultiple = true
		}
		if issue == "H3 found without preceding H2" {
			wantGap = true
		}
	}
	if !wantMultiple {
		t.Errorf("expected multiple H1 issue, got %v", analysis.HierarchyIssues)
	}
	if !wantGap {
		t.Errorf("expected H3-before-H2 issue, got %v", analysis.HierarchyIssues)
	}
	if analysis.Details.ScoreDeductions != 5 {
		t.Errorf("deductions = %d, want 5", analysis.Details.ScoreDeductions)
	}
}

func TestSemanticInternalLinkCollection(t *testing.T) {
	longText := strings.Repeat("x", 80)
	html := `<html><body>
		<nav><a href="/home" title="Home page">Home</a></nav>
		<a href="https://sub.example.com/deep">Same site subdomain</a>
		<a href="https://other.org/away">External</a>
		<a href="/long">` + longText + `</a>
	</body></html>`

	analysis := NewSemanticStructureAnalyzer().Analyze(testDoc("https://example.com/page", html))

	if len(analysis.InternalLinks) != 3 {
		t.Fatalf("internal links = %d, want 3", len(analysis.InternalLinks))
	}

	nav := analysis.InternalLinks[0]
	if !nav.IsNavigation || nav.Title != "Home page" {
		t.Errorf("nav link = %+v, want navigation with title", nav)
	}
	if analysis.InternalLinks[1].IsNavigation {
		t.Errorf("subdomain link flagged as navigation")
	}
	if got := analysis.InternalLinks[2].Text; len(got) != 50 {
		t.Errorf("long link text length = %d, want 50", len(got))
	}
}

func TestSemanticLinkTextMultibyteTruncation(t *testing.T) {
	html := `<html><body><a href="/accents">` + strings.Repeat("é", 60) + `</a></body></html>`

	analysis := NewSemanticStructureAnalyzer().Analyze(testDoc("https://example.com/page", html))

	if len(analysis.InternalLinks) != 1 {
		t.Fatalf("internal links = %d, want 1", len(analysis.InternalLinks))
	}
	text := analysis.InternalLinks[0].Text
	if !utf8.ValidString(text) {
		t.Fatalf("truncated link text is not valid UTF-8: %q", text)
	}
	if got := utf8.RuneCountInString(text); got != 50 {
		t.Errorf("truncated link text runes = %d, want 50", got)
	}
}
