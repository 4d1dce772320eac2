package evaluate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"newsdesk/internal/core"
	"newsdesk/internal/llm"
)

type mockGenerator struct {
	response string
	err      error
	prompts  []string
}

func (m *mockGenerator) GenerateText(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

var testArticle = core.ArticleRecord{
	Headline: "Test Headline",
	Haiku:    "one\ntwo\nthree",
	Story:    "<p>Story body.</p>",
	Summary:  "Summary.",
}

var testCitations = []core.Citation{
	{Index: 1, URL: "https://example.com/a"},
	{Index: 2, URL: "https://example.com/b"},
}

var testDate = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

func TestEvaluateCoercesStringScores(t *testing.T) {
	gen := &mockGenerator{response: `{"quality_score": "72", "trend": "oops", "bias": "Left", "cat": "politics", "topic": "elections", "reasoning": "fine", "hashtags": "#news"}`}
	evaluator := NewEvaluatorWithDefaults(gen)

	record, err := evaluator.Evaluate(context.Background(), testArticle, testCitations, "Politics", testDate, core.EvaluationRecord{}, "")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if record.QualityScore != 7.2 {
		t.Errorf("Expected quality_score=7.2, got %f", record.QualityScore)
	}
	if record.TrendScore != 0.0 {
		t.Errorf("Expected trend=0.0 for unparseable value, got %f", record.TrendScore)
	}
	if record.BiasNumeric != -0.6 {
		t.Errorf("Expected bias_numeric=-0.6 for Left, got %f", record.BiasNumeric)
	}
	if record.Category != "Politics" {
		t.Errorf("Expected normalized category 'Politics', got %q", record.Category)
	}
}

func TestEvaluateUnparseableQualityFails(t *testing.T) {
	gen := &mockGenerator{response: `{"quality_score": "abc", "trend": 5, "bias": "Neutral"}`}
	evaluator := NewEvaluatorWithDefaults(gen)

	_, err := evaluator.Evaluate(context.Background(), testArticle, testCitations, "", testDate, core.EvaluationRecord{}, "")
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("Expected EvaluationError for unparseable quality_score, got %v", err)
	}
}

func TestEvaluateNonJSONResponseFails(t *testing.T) {
	gen := &mockGenerator{response: "The article is pretty good, I'd say 8/10."}
	evaluator := NewEvaluatorWithDefaults(gen)

	_, err := evaluator.Evaluate(context.Background(), testArticle, testCitations, "", testDate, core.EvaluationRecord{}, "")
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("Expected EvaluationError, got %v", err)
	}
	if evalErr.Raw == "" {
		t.Error("Expected raw text preserved for diagnostics")
	}
}

func TestEvaluateStripsCodeFence(t *testing.T) {
	gen := &mockGenerator{response: "```json\n{\"quality_score\": 8.5, \"trend\": 6, \"bias\": \"Center Right\", \"cat\": \"Business\", \"reasoning\": \"r\"}\n```"}
	evaluator := NewEvaluatorWithDefaults(gen)

	record, err := evaluator.Evaluate(context.Background(), testArticle, testCitations, "", testDate, core.EvaluationRecord{}, "")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if record.QualityScore != 8.5 {
		t.Errorf("Expected quality_score=8.5, got %f", record.QualityScore)
	}
	if record.BiasNumeric != 0.3 {
		t.Errorf("Expected bias_numeric=0.3, got %f", record.BiasNumeric)
	}
}

func TestEvaluateUnknownBiasLabelMapsToNeutral(t *testing.T) {
	gen := &mockGenerator{response: `{"quality_score": 7, "trend": 5, "bias": "Extremely Online"}`}
	evaluator := NewEvaluatorWithDefaults(gen)

	record, err := evaluator.Evaluate(context.Background(), testArticle, nil, "", testDate, core.EvaluationRecord{}, "")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if record.BiasLabel != core.BiasNeutral || record.BiasNumeric != 0.0 {
		t.Errorf("Expected Neutral/0.0 for unknown label, got %s/%f", record.BiasLabel, record.BiasNumeric)
	}
}

func TestEvaluateFeedbackGoesIntoPrompt(t *testing.T) {
	gen := &mockGenerator{response: `{"quality_score": 6, "trend": 4, "bias": "Neutral"}`}
	evaluator := NewEvaluatorWithDefaults(gen)

	prior := core.EvaluationRecord{QualityScore: 8.0, BiasLabel: core.BiasLeft, Reasoning: "prior reasoning"}
	_, err := evaluator.Evaluate(context.Background(), testArticle, testCitations, "", testDate, prior, "too generous on quality")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if len(gen.prompts) != 1 {
		t.Fatalf("Expected exactly one round trip, got %d", len(gen.prompts))
	}
	prompt := gen.prompts[0]
	if !strings.Contains(prompt, "too generous on quality") {
		t.Error("Feedback text missing from revision prompt")
	}
	if !strings.Contains(prompt, "prior reasoning") {
		t.Error("Prior evaluation missing from revision prompt")
	}
}

func TestBiasMappingIsTotal(t *testing.T) {
	cases := map[string]float64{
		"Far Left":     -1.0,
		"Left":         -0.6,
		"Center Left":  -0.3,
		"Neutral":      0.0,
		"Center Right": 0.3,
		"Right":        0.6,
		"Far Right":    1.0,
		"gibberish":    0.0,
		"":             0.0,
	}
	for label, want := range cases {
		_, got := BiasToNumeric(label)
		if got != want {
			t.Errorf("BiasToNumeric(%q) = %f, want %f", label, got, want)
		}
		if got < -1.0 || got > 1.0 {
			t.Errorf("BiasToNumeric(%q) out of range: %f", label, got)
		}
	}
}

func TestCoerceScoreIdempotent(t *testing.T) {
	first, err := CoerceScore(7.2)
	if err != nil {
		t.Fatalf("CoerceScore(7.2) failed: %v", err)
	}
	second, err := CoerceScore(first)
	if err != nil {
		t.Fatalf("CoerceScore(CoerceScore(7.2)) failed: %v", err)
	}
	if first != 7.2 || second != 7.2 {
		t.Errorf("Coercion not idempotent: %f, %f", first, second)
	}
}

func TestCoerceScoreDividesOutOfRange(t *testing.T) {
	got, err := CoerceScore("85")
	if err != nil {
		t.Fatalf("CoerceScore(\"85\") failed: %v", err)
	}
	if got != 8.5 {
		t.Errorf("Expected 8.5, got %f", got)
	}
}

func TestCoerceScoreStripsDecoration(t *testing.T) {
	got, err := CoerceScore("Score: 7.5/10")
	if err != nil {
		t.Fatalf("CoerceScore failed: %v", err)
	}
	// "7.510" after stripping; >10, divided once.
	if got < 0 || got > 10 {
		t.Errorf("Result out of range: %f", got)
	}
}

func TestSplitReasoning(t *testing.T) {
	reasoning := "Quality Analysis: solid sourcing. Bias Analysis: leans neutral. Propagation Potential: modest."
	quality, bias, propagation, ok := SplitReasoning(reasoning)
	if !ok {
		t.Fatal("Expected markers to be found")
	}
	if quality != "solid sourcing." || bias != "leans neutral." || propagation != "modest." {
		t.Errorf("Unexpected segments: %q / %q / %q", quality, bias, propagation)
	}

	if _, _, _, ok := SplitReasoning("no markers at all"); ok {
		t.Error("Expected fallback for text without markers")
	}
}
