// Package evaluate scores generated articles for quality, bias, and
// propagation potential via the text-generation backend.
package evaluate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"newsdesk/internal/categories"
	"newsdesk/internal/core"
	"newsdesk/internal/llm"
	"newsdesk/internal/logger"
)

// EvaluationError reports a failed evaluation attempt.
type EvaluationError struct {
	Reason string
	Raw    string // Raw backend text, preserved for diagnostics
	Err    error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation failed: %s", e.Reason)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// Reasoning section markers. Their absence never fails an evaluation; the
// display layer falls back to a single generic paragraph.
const (
	MarkerQuality     = "Quality Analysis:"
	MarkerBias        = "Bias Analysis:"
	MarkerPropagation = "Propagation Potential:"
)

// Options configures the evaluator.
type Options struct {
	Temperature float32
	MaxTokens   int32
}

// DefaultOptions returns defaults tuned for consistent scoring.
func DefaultOptions() Options {
	return Options{Temperature: 0.3, MaxTokens: 4096}
}

// Evaluator builds an evaluation prompt, makes exactly one backend round
// trip per Evaluate call, and normalizes the response into an
// EvaluationRecord. Output is schema-valid but not textually stable; the
// backend is nondeterministic.
type Evaluator struct {
	gen     llm.TextGenerator
	options Options
}

// NewEvaluator creates an evaluator with the given text generator.
func NewEvaluator(gen llm.TextGenerator, options Options) *Evaluator {
	return &Evaluator{gen: gen, options: options}
}

// NewEvaluatorWithDefaults creates an evaluator with default options.
func NewEvaluatorWithDefaults(gen llm.TextGenerator) *Evaluator {
	return NewEvaluator(gen, DefaultOptions())
}

// Evaluate scores an article. When feedback is non-empty, the prompt also
// carries the prior evaluation and instructs the backend to revise;
// prior may be zero-valued otherwise.
func (e *Evaluator) Evaluate(ctx context.Context, article core.ArticleRecord, citations []core.Citation, categoryContext string, now time.Time, prior core.EvaluationRecord, feedback string) (core.EvaluationRecord, error) {
	var prompt string
	if strings.TrimSpace(feedback) != "" {
		prompt = BuildRevisionPrompt(article, citations, categoryContext, now, prior, feedback)
	} else {
		prompt = BuildEvaluationPrompt(article, citations, categoryContext, now)
	}

	response, err := e.gen.GenerateText(ctx, prompt, llm.Options{
		Temperature: e.options.Temperature,
		MaxTokens:   e.options.MaxTokens,
	})
	if err != nil {
		return core.EvaluationRecord{}, &EvaluationError{Reason: err.Error(), Err: err}
	}

	return parseEvaluation(response)
}

// parseEvaluation decodes and coerces the backend's JSON response.
func parseEvaluation(response string) (core.EvaluationRecord, error) {
	cleaned := stripCodeFence(response)

	var fields map[string]any
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return core.EvaluationRecord{}, &EvaluationError{
			Reason: "response is not a JSON object",
			Raw:    response,
			Err:    err,
		}
	}

	quality, err := CoerceScore(pick(fields, "quality_score", "qas", "quality"))
	if err != nil {
		// Quality is not advisory; a bad value is reported, never defaulted.
		return core.EvaluationRecord{}, &EvaluationError{
			Reason: fmt.Sprintf("quality_score: %v", err),
			Raw:    response,
			Err:    err,
		}
	}

	trendRaw := pick(fields, "trend", "trend_score")
	trend := CoerceTrend(trendRaw)
	if _, err := CoerceScore(trendRaw); err != nil {
		logger.Warn("trend score unparseable, defaulting to 0.0", "value", fmt.Sprintf("%v", trendRaw))
	}

	label, numeric := BiasToNumeric(asString(pick(fields, "bias", "bs_p", "bias_label")))

	record := core.EvaluationRecord{
		QualityScore: quality,
		BiasLabel:    label,
		BiasNumeric:  numeric,
		Category:     categories.Normalize(asString(pick(fields, "cat", "category"))),
		Topic:        strings.TrimSpace(asString(pick(fields, "topic"))),
		TrendScore:   trend,
		Reasoning:    strings.TrimSpace(asString(pick(fields, "reasoning"))),
		Hashtags:     strings.TrimSpace(asString(pick(fields, "hashtags"))),
	}
	return record, nil
}

// SplitReasoning segments reasoning text on the three display markers.
// When any marker is absent the whole text is returned as a single
// generic section; evaluation itself never fails on marker absence.
func SplitReasoning(reasoning string) (quality, bias, propagation string, ok bool) {
	qi := strings.Index(reasoning, MarkerQuality)
	bi := strings.Index(reasoning, MarkerBias)
	pi := strings.Index(reasoning, MarkerPropagation)
	if qi < 0 || bi < 0 || pi < 0 || !(qi < bi && bi < pi) {
		return "", "", "", false
	}

	quality = strings.TrimSpace(reasoning[qi+len(MarkerQuality) : bi])
	bias = strings.TrimSpace(reasoning[bi+len(MarkerBias) : pi])
	propagation = strings.TrimSpace(reasoning[pi+len(MarkerPropagation):])
	return quality, bias, propagation, true
}

// stripCodeFence removes a surrounding markdown code fence, if present.
func stripCodeFence(response string) string {
	cleaned := strings.TrimSpace(response)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
		cleaned = strings.TrimSpace(cleaned)
	}
	return cleaned
}

// pick returns the first present key among aliases, case-insensitively.
func pick(fields map[string]any, aliases ...string) any {
	lowered := make(map[string]any, len(fields))
	for k, v := range fields {
		lowered[strings.ToLower(k)] = v
	}
	for _, alias := range aliases {
		if value, ok := lowered[strings.ToLower(alias)]; ok {
			return value
		}
	}
	return nil
}

// asString renders a value as a string; numbers format without decoration.
func asString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%g", v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
