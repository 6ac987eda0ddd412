package analyzer

import (
	"math"
	"regexp"
	"strings"
)

var (
	wordRe        = regexp.MustCompile(`\b[a-zA-Z]{3,}\b`)
	sentenceEndRe = regexp.MustCompile(`[.!?]+`)
)

// stopWords is the fixed filter list applied before term-frequency analysis.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {}, "at": {},
	"to": {}, "for": {}, "of": {}, "with": {}, "by": {}, "is": {}, "are": {},
	"was": {}, "were": {}, "be": {}, "been": {}, "have": {}, "has": {},
	"had": {}, "do": {}, "does": {}, "did": {}, "will": {}, "would": {},
	"could": {}, "should": {}, "may": {}, "might": {}, "this": {},
	"that": {}, "these": {}, "those": {}, "a": {}, "an": {}, "as": {},
	"from": {}, "into": {}, "through": {}, "during": {}, "before": {},
	"after": {}, "above": {}, "below": {}, "between": {}, "among": {},
}

// TokenizeWords lowercases the text and returns its alphabetic tokens of
// length three or more.
func TokenizeWords(text string) []string {
	return wordRe.FindAllString(strings.ToLower(text), -1)
}

// TokenizeContentWords tokenizes and drops stop words.
func TokenizeContentWords(text string) []string {
	words := TokenizeWords(text)
	filtered := words[:0]
	for _, w := range words {
		if _, stop := stopWords[w]; !stop {
			filtered = append(filtered, w)
		}
	}
	return filtered
}

// Entropy computes the Shannon entropy in bits of a frequency mapping.
// An empty mapping has zero entropy.
func Entropy(counts map[string]int) float64 {
	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return 0
	}
	entropy := 0.0
	for _, c := range counts {
		if c <= 0 {
			continue
		}
		p := float64(c) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// NormalizedEntropy scales entropy by its maximum for the observed
// vocabulary size, yielding a [0,1] evenness measure. A vocabulary of one
// or fewer keys is defined as 0.
func NormalizedEntropy(counts map[string]int) float64 {
	unique := len(counts)
	if unique <= 1 {
		return 0
	}
	normalized := Entropy(counts) / math.Log2(float64(unique))
	return math.Min(1.0, normalized)
}

// SplitSentences splits text on runs of sentence-ending punctuation and
// returns the non-empty trimmed pieces in order.
func SplitSentences(text string) []string {
	parts := sentenceEndRe.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// JaccardWordOverlap measures the word-set overlap of two strings as
// intersection over union of their length-3+ alphabetic token sets.
// Either set being empty yields 0.
func JaccardWordOverlap(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range TokenizeWords(text) {
		set[w] = struct{}{}
	}
	return set
}

func wordCounts(words []string) map[string]int {
	counts := make(map[string]int, len(words))
	for _, w := range words {
		counts[w]++
	}
	return counts
}

// truncateRunes caps s at n runes so a multibyte character is never split.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func containsAny(lower string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}
