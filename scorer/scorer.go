// Package scorer produces the holistic 5-dimension rubric grade for page
// content, remotely via an LLM when possible and deterministically when not.
package scorer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ot-clark/llm-rank-diagnostic/llm"
)

// Sub-score maxima of the fixed rubric.
const (
	MaxStructureSemantics  = 25
	MaxRelevanceIntent     = 25
	MaxTokenEfficiency     = 20
	MaxLinkGraph           = 15
	MaxLLMOutputLikelihood = 15
)

const maxPromptContentLength = 4000

const systemPrompt = "You are an expert content analyst specializing in LLM visibility and ranking optimization."

// Highlight marks a span of the content that needs attention.
type Highlight struct {
	Start      int    `json:"start"`
	End        int    `json:"end"`
	Severity   string `json:"severity"`
	Suggestion string `json:"suggestion"`
	Reason     string `json:"reason"`
}

// DetailedAnalysis carries the qualitative lists of the grade.
type DetailedAnalysis struct {
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	Recommendations []string `json:"recommendations"`
}

// RubricScore is the 100-point holistic grade. TotalScore is always the sum
// of the five clamped sub-scores, never taken from an external source.
type RubricScore struct {
	StructureSemantics  int              `json:"structure_semantics"`
	RelevanceIntent     int              `json:"relevance_intent"`
	TokenEfficiency     int              `json:"token_efficiency"`
	LinkGraph           int              `json:"link_graph"`
	LLMOutputLikelihood int              `json:"llm_output_likelihood"`
	TotalScore          int              `json:"total_score"`
	Summary             string           `json:"summary"`
	Highlights          []Highlight      `json:"highlights"`
	DetailedAnalysis    DetailedAnalysis `json:"detailed_analysis"`
}

// HolisticScorer grades content against the rubric. The remote LLM path and
// the local fallback implement the same capability; callers always receive a
// valid RubricScore and are not told which path produced it.
type HolisticScorer struct {
	client  llm.Client
	timeout time.Duration
	logger  *slog.Logger

	// onFallback is invoked whenever the local path is taken.
	onFallback func()
}

// Option customizes a HolisticScorer.
type Option func(*HolisticScorer)

// WithFallbackHook registers a callback fired on every fallback scoring.
func WithFallbackHook(fn func()) Option {
	return func(s *HolisticScorer) { s.onFallback = fn }
}

// New creates a scorer. A nil client means every grade uses the fallback.
func New(client llm.Client, timeout time.Duration, logger *slog.Logger, opts ...Option) *HolisticScorer {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &HolisticScorer{client: client, timeout: timeout, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score grades the content. It never returns an error: any failure in the
// remote path degrades to the deterministic fallback.
func (s *HolisticScorer) Score(ctx context.Context, content, title, description string) RubricScore {
	if s.client != nil {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		reply, err := s.client.Complete(ctx, systemPrompt, buildPrompt(content, title, description))
		if err == nil {
			if score, ok := parseRubric(reply); ok {
				return validate(score)
			}
			s.logger.Warn("unparsable grading reply, using fallback scorer")
		} else {
			s.logger.Warn("grading call failed, using fallback scorer", "error", err)
		}
	}

	if s.onFallback != nil {
		s.onFallback()
	}
	return FallbackScore(content, title, description)
}

func buildPrompt(content, title, description string) string {
	if len(content) > maxPromptContentLength {
		if r := []rune(content); len(r) > maxPromptContentLength {
			content = string(r[:maxPromptContentLength])
		}
	}
	return fmt.Sprintf(`Analyze the following web page content for LLM visibility and ranking potential. Score each dimension and provide detailed feedback.

Page Title: %s
Page Description: %s
Content: %s

Please analyze and score the following dimensions:

1. Structure & Semantics (0-25 points):
- Clear headings and content structure
- Semantic markup and organization
- Logical flow and readability

2. Relevance & Intent Clarity (0-25 points):
- Content relevance to title/topic
- Clear user intent matching
- Specific and actionable information

3. Token Efficiency & Density (0-20 points):
- Information density
- Concise yet comprehensive content
- Technical term usage

4. Link Graph & Crawlability (0-15 points):
- Internal linking structure
- External authoritative links
- Descriptive link text

5. LLM Output Likelihood (0-15 points):
- Factual content and citations
- Comprehensive coverage
- Likelihood of appearing in AI responses

Provide your response in the following JSON format:
{
    "structure_semantics": <score>,
    "relevance_intent": <score>,
    "token_efficiency": <score>,
    "link_graph": <score>,
    "llm_output_likelihood": <score>,
    "total_score": <sum of all scores>,
    "summary": "<brief summary>",
    "highlights": [
        {
            "start": <character position>,
            "end": <character position>,
            "severity": "high|medium|low",
            "suggestion": "<improvement suggestion>",
            "reason": "<why this needs improvement>"
        }
    ],
    "detailed_analysis": {
        "strengths": ["<list of strengths>"],
        "weaknesses": ["<list of weaknesses>"],
        "recommendations": ["<specific recommendations>"]
    }
}`, title, description, content)
}

// rubricPayload tolerates models that emit sub-scores as floats.
type rubricPayload struct {
	StructureSemantics  float64          `json:"structure_semantics"`
	RelevanceIntent     float64          `json:"relevance_intent"`
	TokenEfficiency     float64          `json:"token_efficiency"`
	LinkGraph           float64          `json:"link_graph"`
	LLMOutputLikelihood float64          `json:"llm_output_likelihood"`
	Summary             string           `json:"summary"`
	Highlights          []Highlight      `json:"highlights"`
	DetailedAnalysis    DetailedAnalysis `json:"detailed_analysis"`
}

// parseRubric extracts the first {...} span of the reply and decodes it.
func parseRubric(reply string) (RubricScore, bool) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start == -1 || end <= start {
		return RubricScore{}, false
	}

	var payload rubricPayload
	if err := json.Unmarshal([]byte(reply[start:end+1]), &payload); err != nil {
		return RubricScore{}, false
	}

	return RubricScore{
		StructureSemantics:  int(payload.StructureSemantics),
		RelevanceIntent:     int(payload.RelevanceIntent),
		TokenEfficiency:     int(payload.TokenEfficiency),
		LinkGraph:           int(payload.LinkGraph),
		LLMOutputLikelihood: int(payload.LLMOutputLikelihood),
		Summary:             payload.Summary,
		Highlights:          payload.Highlights,
		DetailedAnalysis:    payload.DetailedAnalysis,
	}, true
}

// validate clamps every sub-score to its maximum and re-derives the total.
func validate(score RubricScore) RubricScore {
	score.StructureSemantics = clamp(score.StructureSemantics, MaxStructureSemantics)
	score.RelevanceIntent = clamp(score.RelevanceIntent, MaxRelevanceIntent)
	score.TokenEfficiency = clamp(score.TokenEfficiency, MaxTokenEfficiency)
	score.LinkGraph = clamp(score.LinkGraph, MaxLinkGraph)
	score.LLMOutputLikelihood = clamp(score.LLMOutputLikelihood, MaxLLMOutputLikelihood)
	score.TotalScore = score.StructureSemantics + score.RelevanceIntent +
		score.TokenEfficiency + score.LinkGraph + score.LLMOutputLikelihood
	if score.Highlights == nil {
		score.Highlights = []Highlight{}
	}
	return score
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
