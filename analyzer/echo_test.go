package analyzer

import (
	"math"
	"reflect"
	"strings"
	"testing"
)

func TestEchoAnalyzeInstructionalContent(t *testing.T) {
	html := `<html><body><main>
		How to steps guide tutorial instructions.
		Optimize improve best practices structure seo.
	</main></body></html>`

	analysis := NewLLMEchoEstimator().Analyze(testDoc("https://example.com/guide", html))

	if analysis.Error != "" {
		t.Fatalf("unexpected error: %s", analysis.Error)
	}
	// Two categories fully matched: (2*0.8 + 2*0.7) over 9 prompts.
	if math.Abs(analysis.OverlapPercentage-100.0/3) > 0.01 {
		t.Errorf("OverlapPercentage = %f, want ~33.33", analysis.OverlapPercentage)
	}
	if len(analysis.ExampleMatches) != 5 {
		t.Fatalf("ExampleMatches = %d entries, want 5: %v", len(analysis.ExampleMatches), analysis.ExampleMatches)
	}
	if !strings.Contains(analysis.ExampleMatches[0], "How to write AI-visible articles?") {
		t.Errorf("first example = %q, want the strongest prompt match", analysis.ExampleMatches[0])
	}
	if len(analysis.TestPrompts) != 10 {
		t.Errorf("TestPrompts = %d, want 10", len(analysis.TestPrompts))
	}
	// 3 overlap points, +3 for the examples, no high-overlap bonus.
	if analysis.Score != 6 {
		t.Errorf("score = %d, want 6", analysis.Score)
	}
}

func TestEchoAnalyzeNoIndicators(t *testing.T) {
	analysis := NewLLMEchoEstimator().Analyze(
		testDoc("https://example.com/empty", `<html><body><main>plain prose about nothing in particular</main></body></html>`))

	if analysis.OverlapPercentage != 0 {
		t.Errorf("OverlapPercentage = %f, want 0", analysis.OverlapPercentage)
	}
	want := []string{
		"Contains instructional or how-to content",
		"Includes optimization and best practices",
	}
	if !reflect.DeepEqual(analysis.ExampleMatches, want) {
		t.Errorf("ExampleMatches = %v, want the two standing observations", analysis.ExampleMatches)
	}
	// No overlap points, but the two observations still earn 2.
	if analysis.Score != 2 {
		t.Errorf("score = %d, want 2", analysis.Score)
	}
}

func TestExtractMainContentIgnoresChrome(t *testing.T) {
	html := `<html><body>
		<nav>menu items here</nav>
		<main>the real story</main>
		<footer>copyright line</footer>
	</body></html>`

	page := testDoc("https://example.com/page", html)
	doc, err := page.HTML()
	if err != nil {
		t.Fatal(err)
	}

	got := extractMainContent(doc)
	if got != "the real story" {
		t.Errorf("extractMainContent = %q, want only the main text", got)
	}
}

func TestMatchPromptsCoversEveryCategory(t *testing.T) {
	for _, content := range []string{"", "a tutorial with steps"} {
		matches := matchPrompts(content)
		if len(matches) != 9 {
			t.Fatalf("matchPrompts(%q) = %d pairs, want all 9", content, len(matches))
		}
		seen := map[string]bool{}
		for _, m := range matches {
			seen[m.Category] = true
		}
		if len(seen) != len(promptCategories) {
			t.Errorf("categories covered = %d, want %d", len(seen), len(promptCategories))
		}
	}
}
