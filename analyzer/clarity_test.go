package analyzer

import (
	"math"
	"testing"
)

func TestClarityAnalyzeSections(t *testing.T) {
	html := `<html><body>
		<p>Intro text here.</p>
		<h2>Details</h2>
		<p>Short section text.</p>
	</body></html>`

	analysis := NewEmbeddingClarityAnalyzer().Analyze(testDoc("https://example.com/page", html))

	if analysis.Error != "" {
		t.Fatalf("unexpected error: %s", analysis.Error)
	}
	if len(analysis.Sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(analysis.Sections))
	}
	if analysis.Sections[0].Title != "Introduction" {
		t.Errorf("first section title = %q, want Introduction", analysis.Sections[0].Title)
	}
	if analysis.Sections[1].Title != "Details" {
		t.Errorf("second section title = %q, want Details", analysis.Sections[1].Title)
	}
	// Both sections are under ten words and get the thin-section clarity.
	for _, sec := range analysis.Sections {
		if math.Abs(sec.Clarity-0.3) > 1e-9 {
			t.Errorf("section %q clarity = %f, want 0.3", sec.Title, sec.Clarity)
		}
	}
	if analysis.Score < 0 || analysis.Score > 20 {
		t.Errorf("score = %d, out of range", analysis.Score)
	}
}

func TestClarityAnalyzeEmptyPage(t *testing.T) {
	analysis := NewEmbeddingClarityAnalyzer().Analyze(
		testDoc("https://example.com/empty", `<html><body></body></html>`))

	if analysis.TermConsistency != 0 {
		t.Errorf("TermConsistency = %f, want 0", analysis.TermConsistency)
	}
	if analysis.SelfContainment != 0 {
		t.Errorf("SelfContainment = %f, want 0", analysis.SelfContainment)
	}
	if analysis.RedundancyScore != 0.5 {
		t.Errorf("RedundancyScore = %f, want neutral 0.5", analysis.RedundancyScore)
	}
	if len(analysis.Sections) != 0 {
		t.Errorf("sections = %d, want 0", len(analysis.Sections))
	}
}

func TestClarityRedundancy(t *testing.T) {
	a := NewEmbeddingClarityAnalyzer()

	if got := a.redundancy("One sentence only"); got != 0.5 {
		t.Errorf("redundancy of single sentence = %f, want 0.5", got)
	}

	repeated := a.redundancy("The quick brown fox jumps. The quick brown fox jumps.")
	if math.Abs(repeated) > 1e-9 {
		t.Errorf("redundancy of identical sentences = %f, want 0", repeated)
	}

	varied := a.redundancy("Apples grow on trees. Submarines travel underwater.")
	if varied <= repeated {
		t.Errorf("varied text should score above repeated text: %f <= %f", varied, repeated)
	}
}

func TestSectionClarity(t *testing.T) {
	if got := sectionClarity(""); got != 0 {
		t.Errorf("empty section clarity = %f, want 0", got)
	}
	if got := sectionClarity("too short to judge"); math.Abs(got-0.3) > 1e-9 {
		t.Errorf("thin section clarity = %f, want 0.3", got)
	}

	rich := "First we measure the baseline with 12 samples, specifically the slow paths. " +
		"For example the parser and the planner are both included in the measurement set. " +
		"The term throughput refers to completed requests per second across all workers here. " +
		"Then we compare the results against the production baseline and report every regression found."
	if got := sectionClarity(rich); got < 0.5 {
		t.Errorf("rich section clarity = %f, want >= 0.5", got)
	}
}
