// Package compose drives the multi-field article generation protocol
// against the text-generation backend and normalizes the result into a
// canonical article record.
package compose

import (
	"context"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"newsdesk/internal/core"
	"newsdesk/internal/llm"
)

// GenerationError reports a backend failure during composition.
type GenerationError struct {
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %s", e.Reason)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ParseError reports backend text that no parser strategy could interpret
// as the four required fields. The raw text is preserved for diagnostics.
type ParseError struct {
	Raw string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse article fields from response (%d bytes)", len(e.Raw))
}

// ValidationError reports a structurally invalid article record, e.g. a
// haiku that is not exactly three lines.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Options configures the composer.
type Options struct {
	Temperature float32
	MaxTokens   int32
	Identity    string // Optional agent/profile identity for the backend
}

// DefaultOptions returns sensible defaults for article generation.
func DefaultOptions() Options {
	return Options{
		Temperature: 0.7,
		MaxTokens:   8192,
	}
}

// Composer turns filtered source articles into a canonical ArticleRecord.
// It performs zero automatic retries; retry policy lives with the caller.
type Composer struct {
	gen       llm.TextGenerator
	options   Options
	sanitizer *bluemonday.Policy
}

// NewComposer creates a composer with the given text generator.
func NewComposer(gen llm.TextGenerator, options Options) *Composer {
	return &Composer{
		gen:       gen,
		options:   options,
		sanitizer: bluemonday.UGCPolicy(),
	}
}

// NewComposerWithDefaults creates a composer with default options.
func NewComposerWithDefaults(gen llm.TextGenerator) *Composer {
	return NewComposer(gen, DefaultOptions())
}

// Compose runs the combined single-prompt strategy: one backend call
// returning all four fields as a JSON-like object.
func (c *Composer) Compose(ctx context.Context, articles []core.SourceArticle, category string) (core.ArticleRecord, error) {
	if len(articles) == 0 {
		return core.ArticleRecord{}, &GenerationError{Reason: "no source articles"}
	}

	prompt := BuildCombinedPrompt(articles, category)
	response, err := c.gen.GenerateText(ctx, prompt, c.callOptions())
	if err != nil {
		return core.ArticleRecord{}, &GenerationError{Reason: err.Error(), Err: err}
	}

	record, ok := ParseArticle(response)
	if !ok {
		return core.ArticleRecord{}, &ParseError{Raw: response}
	}

	return c.finalize(record)
}

// ComposeStaged runs the staged strategy: story first, then headline
// and haiku derived from the story, then summary as the story's first
// paragraph. Use when the combined strategy repeatedly fails or when
// per-field determinism is preferred.
func (c *Composer) ComposeStaged(ctx context.Context, articles []core.SourceArticle, category string) (core.ArticleRecord, error) {
	if len(articles) == 0 {
		return core.ArticleRecord{}, &GenerationError{Reason: "no source articles"}
	}

	story, err := c.gen.GenerateText(ctx, BuildStoryPrompt(articles, category), c.callOptions())
	if err != nil {
		return core.ArticleRecord{}, &GenerationError{Reason: "story: " + err.Error(), Err: err}
	}

	headline, err := c.gen.GenerateText(ctx, BuildHeadlinePrompt(story), c.callOptions())
	if err != nil {
		return core.ArticleRecord{}, &GenerationError{Reason: "headline: " + err.Error(), Err: err}
	}

	haiku, err := c.gen.GenerateText(ctx, BuildHaikuPrompt(story), c.callOptions())
	if err != nil {
		return core.ArticleRecord{}, &GenerationError{Reason: "haiku: " + err.Error(), Err: err}
	}

	record := core.ArticleRecord{
		Headline: strings.Trim(strings.TrimSpace(headline), `"'`),
		Haiku:    strings.TrimSpace(haiku),
		Story:    strings.TrimSpace(story),
		Summary:  FirstParagraph(story),
	}
	return c.finalize(record)
}

// finalize validates and sanitizes a parsed record. Failure here is a
// hard stop of the attempt; a partial record is never returned.
func (c *Composer) finalize(record core.ArticleRecord) (core.ArticleRecord, error) {
	if err := Validate(record); err != nil {
		return core.ArticleRecord{}, err
	}
	record.Story = c.sanitizer.Sanitize(record.Story)
	if strings.TrimSpace(record.Story) == "" {
		return core.ArticleRecord{}, &ValidationError{Field: "story", Reason: "empty after sanitization"}
	}
	return record, nil
}

func (c *Composer) callOptions() llm.Options {
	return llm.Options{
		Temperature: c.options.Temperature,
		MaxTokens:   c.options.MaxTokens,
		Identity:    c.options.Identity,
	}
}

// Validate checks that all four fields are present and the haiku has
// exactly three non-empty lines after trimming. Line breaks inside the
// haiku are preserved exactly as produced; syllable counts are trusted
// to the backend.
func Validate(record core.ArticleRecord) error {
	if strings.TrimSpace(record.Headline) == "" {
		return &ValidationError{Field: "headline", Reason: "missing"}
	}
	if strings.TrimSpace(record.Story) == "" {
		return &ValidationError{Field: "story", Reason: "missing"}
	}
	if strings.TrimSpace(record.Summary) == "" {
		return &ValidationError{Field: "summary", Reason: "missing"}
	}

	lines := HaikuLines(record.Haiku)
	if len(lines) != 3 {
		return &ValidationError{
			Field:  "haiku",
			Reason: fmt.Sprintf("expected 3 non-empty lines, got %d", len(lines)),
		}
	}
	return nil
}

// HaikuLines returns the non-empty lines of a haiku after trimming.
func HaikuLines(haiku string) []string {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(haiku), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// FirstParagraph extracts the first HTML paragraph's text, falling back
// to the first line of plain text.
func FirstParagraph(story string) string {
	lower := strings.ToLower(story)
	start := strings.Index(lower, "<p>")
	if start >= 0 {
		rest := story[start+3:]
		if end := strings.Index(strings.ToLower(rest), "</p>"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}
	for _, line := range strings.Split(story, "\n") {
		if strings.TrimSpace(line) != "" {
			return strings.TrimSpace(line)
		}
	}
	return strings.TrimSpace(story)
}
