package analyzer

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ot-clark/llm-rank-diagnostic/fetch"
)

var digitRe = regexp.MustCompile(`\d`)

// Indicator phrase lists shared by self-containment and section clarity.
// Matching is case-insensitive substring matching over the section text.
var (
	contextPhrases    = []string{"this", "here", "above", "below", "following"}
	definitionPhrases = []string{"means", "refers to", "is defined as"}
	examplePhrases    = []string{"for example", "such as", "including", "like"}
	conclusionPhrases = []string{"therefore", "thus", "in conclusion", "summary"}
	structurePhrases  = []string{"first", "second", "third", "finally", "next", "then"}
	specificsPhrases  = []string{"specifically", "particularly", "especially", "namely"}
)

// EmbeddingClarityAnalyzer scores lexical clarity as a proxy for embedding
// quality: term evenness, section self-containment and redundancy (0-20).
// It is entirely lexical; no embedding model is involved.
type EmbeddingClarityAnalyzer struct{}

// NewEmbeddingClarityAnalyzer creates the analyzer.
func NewEmbeddingClarityAnalyzer() *EmbeddingClarityAnalyzer {
	return &EmbeddingClarityAnalyzer{}
}

// Analyze inspects a fetched document.
func (a *EmbeddingClarityAnalyzer) Analyze(page *fetch.Document) ClarityAnalysis {
	doc, err := page.HTML()
	if err != nil {
		return ClarityAnalysis{URL: page.URL, Error: err.Error()}
	}

	text := extractVisibleText(doc)
	sections := chunkBySections(doc)

	analysis := ClarityAnalysis{
		URL:             page.URL,
		TermConsistency: a.termConsistency(text),
		SelfContainment: a.selfContainment(sections),
		RedundancyScore: a.redundancy(text),
		Sections:        sections,
	}
	analysis.Score = a.calculateScore(&analysis)
	return analysis
}

// extractVisibleText strips boilerplate tags and collapses whitespace.
func extractVisibleText(doc *goquery.Document) string {
	clone := goquery.CloneDocument(doc)
	clone.Find("script, style, nav, footer, header").Remove()
	return strings.Join(strings.Fields(clone.Text()), " ")
}

// chunkBySections splits body content at heading boundaries. Content before
// the first heading lands in a leading "Introduction" section.
func chunkBySections(doc *goquery.Document) []Section {
	sections := []Section{}
	current := Section{Title: "Introduction"}

	flush := func() {
		if strings.TrimSpace(current.Content) != "" {
			current.Clarity = sectionClarity(current.Content)
			sections = append(sections, current)
		}
	}

	doc.Find("h1, h2, h3, h4, h5, h6, p, div").Each(func(_ int, s *goquery.Selection) {
		name := goquery.NodeName(s)
		if len(name) == 2 && name[0] == 'h' {
			flush()
			current = Section{Title: strings.TrimSpace(s.Text())}
			return
		}
		if content := strings.TrimSpace(s.Text()); content != "" {
			current.Content += " " + content
		}
	})
	flush()

	return sections
}

// termConsistency is the normalized entropy of the stop-word-filtered term
// distribution: evenly used vocabulary scores near 1.
func (a *EmbeddingClarityAnalyzer) termConsistency(text string) float64 {
	words := TokenizeContentWords(text)
	if len(words) == 0 {
		return 0
	}
	return NormalizedEntropy(wordCounts(words))
}

// selfContainment averages per-section indicator scores: substantial length,
// contextual wording, definitions, examples and a concluding phrase.
func (a *EmbeddingClarityAnalyzer) selfContainment(sections []Section) float64 {
	scores := []float64{}
	for _, sec := range sections {
		content := sec.Content
		if strings.TrimSpace(content) == "" {
			continue
		}
		lower := strings.ToLower(content)
		hits := 0
		if len(strings.Fields(content)) > 50 {
			hits++
		}
		if containsAny(lower, contextPhrases) {
			hits++
		}
		if containsAny(lower, definitionPhrases) {
			hits++
		}
		if containsAny(lower, examplePhrases) {
			hits++
		}
		if containsAny(lower, conclusionPhrases) {
			hits++
		}
		scores = append(scores, float64(hits)/5.0)
	}
	if len(scores) == 0 {
		return 0
	}
	return mean(scores)
}

// redundancy is one minus the mean pairwise sentence overlap. Fewer than
// two sentences, or no comparable pair, is neutral (0.5).
func (a *EmbeddingClarityAnalyzer) redundancy(text string) float64 {
	sentences := SplitSentences(text)
	if len(sentences) < 2 {
		return 0.5
	}

	tokenSets := make([]map[string]struct{}, len(sentences))
	for i, s := range sentences {
		tokenSets[i] = tokenSet(s)
	}

	similarities := []float64{}
	for i := 0; i < len(sentences); i++ {
		for j := i + 1; j < len(sentences); j++ {
			if len(tokenSets[i]) == 0 || len(tokenSets[j]) == 0 {
				continue
			}
			intersection := 0
			for w := range tokenSets[i] {
				if _, ok := tokenSets[j][w]; ok {
					intersection++
				}
			}
			union := len(tokenSets[i]) + len(tokenSets[j]) - intersection
			if union > 0 {
				similarities = append(similarities, float64(intersection)/float64(union))
			}
		}
	}
	if len(similarities) == 0 {
		return 0.5
	}
	return clampFloat(1.0-mean(similarities), 0, 1)
}

// sectionClarity scores a single section in [0,1]. Sections under ten words
// are too thin to judge and get a flat 0.3.
func sectionClarity(content string) float64 {
	if strings.TrimSpace(content) == "" {
		return 0
	}
	words := strings.Fields(content)
	if len(words) < 10 {
		return 0.3
	}

	lower := strings.ToLower(content)
	hits := 0
	if containsAny(lower, structurePhrases) {
		hits++
	}
	if containsAny(lower, specificsPhrases) {
		hits++
	}
	if containsAny(lower, examplePhrases) {
		hits++
	}
	if containsAny(lower, definitionPhrases) {
		hits++
	}
	if digitRe.MatchString(content) {
		hits++
	}
	if len(words) >= 50 && len(words) <= 500 {
		hits++
	}
	return float64(hits) / 6.0
}

func (a *EmbeddingClarityAnalyzer) calculateScore(analysis *ClarityAnalysis) int {
	score := int(analysis.TermConsistency * 6)
	score += int(analysis.SelfContainment * 6)
	score += int(analysis.RedundancyScore * 4)
	if len(analysis.Sections) > 0 {
		clarities := make([]float64, len(analysis.Sections))
		for i, s := range analysis.Sections {
			clarities[i] = s.Clarity
		}
		score += int(mean(clarities) * 4)
	}
	return clampInt(score, 0, 20)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
