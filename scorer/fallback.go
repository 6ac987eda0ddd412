package scorer

import (
	"strings"
	"unicode"
)

// FallbackScore grades content with local heuristics when the remote grader
// is unavailable. It is a deterministic function of its inputs and always
// satisfies the rubric's range invariants.
func FallbackScore(content, title, description string) RubricScore {
	lower := strings.ToLower(content)
	words := strings.Fields(content)

	structure := 0
	if len(title) > 10 {
		structure += 5
	}
	if len(content) > 500 {
		structure += 5
	}
	if strings.Contains(content, "\n\n") {
		structure += 5
	}
	if anyIn(lower, "because", "therefore", "however") {
		structure += 5
	}
	if anyIn(lower, "guide", "tutorial", "how to") {
		structure += 5
	}

	relevance := 0
	if len(title) > 5 {
		relevance += 5
	}
	if len(description) > 20 {
		relevance += 5
	}
	if len(words) > 100 {
		relevance += 5
	}
	if anyIn(lower, "research", "study", "data") {
		relevance += 5
	}
	if strings.Contains(content, "?") && strings.Contains(lower, "answer") {
		relevance += 5
	}

	efficiency := 0
	if len(content) > 500 && len(content) < 5000 {
		efficiency += 5
	}
	if n := len(firstSentence(content)); n > 20 && n < 100 {
		efficiency += 5
	}
	if lexicalDensity(words) > 0.3 {
		efficiency += 5
	}
	if hasAcronym(words) {
		efficiency += 5
	}

	link := 0
	if strings.Contains(content, "http") {
		link += 5
	}
	if strings.Contains(lower, "link") {
		link += 5
	}
	if strings.Contains(lower, "reference") {
		link += 5
	}

	likelihood := 0
	if len(content) > 1000 {
		likelihood += 5
	}
	if anyIn(lower, "research", "study", "according to") {
		likelihood += 5
	}
	if anyIn(lower, "source", "reference", "citation") {
		likelihood += 5
	}

	score := RubricScore{
		StructureSemantics:  structure,
		RelevanceIntent:     relevance,
		TokenEfficiency:     efficiency,
		LinkGraph:           link,
		LLMOutputLikelihood: likelihood,
	}
	score = validate(score)
	score.Summary = tierSummary(score.TotalScore)
	score.Highlights = tierHighlights(content, score.TotalScore)
	score.DetailedAnalysis = DetailedAnalysis{
		Strengths:       tierStrengths(score.TotalScore),
		Weaknesses:      tierWeaknesses(score.TotalScore),
		Recommendations: tierRecommendations(score.TotalScore),
	}
	return score
}

func anyIn(lower string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

func firstSentence(content string) string {
	if idx := strings.Index(content, "."); idx >= 0 {
		return content[:idx]
	}
	return content
}

// lexicalDensity is the ratio of distinct lowercased words to total words.
func lexicalDensity(words []string) float64 {
	if len(words) == 0 {
		return 0
	}
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[strings.ToLower(w)] = struct{}{}
	}
	return float64(len(unique)) / float64(len(words))
}

// hasAcronym reports whether any word longer than two characters is fully
// uppercase.
func hasAcronym(words []string) bool {
	for _, w := range words {
		if len(w) <= 2 {
			continue
		}
		cased := false
		upper := true
		for _, r := range w {
			if unicode.IsLetter(r) {
				cased = true
				if !unicode.IsUpper(r) {
					upper = false
					break
				}
			}
		}
		if cased && upper {
			return true
		}
	}
	return false
}

func tierSummary(total int) string {
	switch {
	case total >= 80:
		return "Excellent LLM visibility. Content is well-structured, relevant, and likely to appear in AI responses."
	case total >= 60:
		return "Good LLM visibility with room for improvement. Focus on enhancing content structure and relevance."
	case total >= 40:
		return "Moderate LLM visibility. Significant improvements needed in content structure, relevance, and token efficiency."
	default:
		return "Low LLM visibility. Major improvements required across all scoring dimensions."
	}
}

func tierHighlights(content string, total int) []Highlight {
	highlights := []Highlight{}
	if total >= 50 {
		return highlights
	}

	end := len(content)
	if end > 100 {
		end = 100
	}
	highlights = append(highlights, Highlight{
		Start:      0,
		End:        end,
		Severity:   "high",
		Suggestion: "Improve content structure and add more specific information",
		Reason:     "Content lacks clear structure and specific details that LLMs can easily parse",
	})

	if len(content) > 200 {
		end = len(content)
		if end > 400 {
			end = 400
		}
		highlights = append(highlights, Highlight{
			Start:      200,
			End:        end,
			Severity:   "medium",
			Suggestion: "Add more context and examples",
			Reason:     "This section could benefit from additional context and concrete examples",
		})
	}

	return highlights
}

func tierStrengths(total int) []string {
	switch {
	case total >= 80:
		return []string{"Excellent content structure", "High relevance to topic", "Good information density"}
	case total >= 60:
		return []string{"Good content organization", "Relevant information", "Adequate coverage"}
	default:
		return []string{"Content is present", "Basic information available"}
	}
}

func tierWeaknesses(total int) []string {
	switch {
	case total < 40:
		return []string{"Poor content structure", "Low relevance", "Insufficient information density", "Weak internal linking"}
	case total < 60:
		return []string{"Content structure needs improvement", "Relevance could be enhanced", "Information density is low"}
	default:
		return []string{"Minor improvements possible"}
	}
}

func tierRecommendations(total int) []string {
	switch {
	case total < 40:
		return []string{
			"Restructure content with clear headings",
			"Add more specific and relevant information",
			"Improve internal linking structure",
			"Include more factual content and citations",
		}
	case total < 60:
		return []string{
			"Enhance content organization",
			"Add more context and examples",
			"Improve information density",
			"Strengthen internal linking",
		}
	default:
		return []string{
			"Consider adding more specific details",
			"Enhance content structure further",
			"Add more authoritative links",
		}
	}
}
