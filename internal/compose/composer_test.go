package compose

import (
	"context"
	"errors"
	"testing"

	"newsdesk/internal/core"
	"newsdesk/internal/llm"
)

// mockGenerator returns canned responses in order, or a fixed error.
type mockGenerator struct {
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (m *mockGenerator) GenerateText(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	if m.calls >= len(m.responses) {
		return "", errors.New("mock exhausted")
	}
	response := m.responses[m.calls]
	m.calls++
	return response, nil
}

var testSources = []core.SourceArticle{
	{Title: "A", Content: "Body A", SourceName: "Reuters", Link: "https://example.com/a"},
	{Title: "B", Content: "Body B", SourceName: "AP", Link: "https://example.com/b"},
	{Title: "C", Content: "Body C", SourceName: "BBC", Link: "https://example.com/c"},
}

const validJSON = `{"headline":"Test Headline","haiku":"line one\nline two\nline three","story":"<p>First paragraph.</p><p>Second.</p>","summary":"A summary."}`

func TestComposeCombinedStrictJSON(t *testing.T) {
	gen := &mockGenerator{responses: []string{validJSON}}
	composer := NewComposerWithDefaults(gen)

	record, err := composer.Compose(context.Background(), testSources, "Technology")
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if record.Headline != "Test Headline" {
		t.Errorf("Expected headline 'Test Headline', got %q", record.Headline)
	}
	if record.Haiku != "line one\nline two\nline three" {
		t.Errorf("Haiku line breaks not preserved: %q", record.Haiku)
	}
	if gen.calls != 1 {
		t.Errorf("Expected 1 backend call, got %d", gen.calls)
	}
}

func TestComposeExtractsFencedJSON(t *testing.T) {
	fenced := "Here is the article you asked for:\n```json\n" + validJSON + "\n```\nLet me know if you need anything else."
	gen := &mockGenerator{responses: []string{fenced}}
	composer := NewComposerWithDefaults(gen)

	record, err := composer.Compose(context.Background(), testSources, "Technology")
	if err != nil {
		t.Fatalf("Compose failed on fenced response: %v", err)
	}
	if record.Summary != "A summary." {
		t.Errorf("Expected summary 'A summary.', got %q", record.Summary)
	}
}

func TestComposeExtractsBracedJSON(t *testing.T) {
	wrapped := "Sure! " + validJSON + " Hope that helps."
	gen := &mockGenerator{responses: []string{wrapped}}
	composer := NewComposerWithDefaults(gen)

	if _, err := composer.Compose(context.Background(), testSources, "Technology"); err != nil {
		t.Fatalf("Compose failed on prose-wrapped response: %v", err)
	}
}

func TestComposeToleratesSingleQuotedDict(t *testing.T) {
	dict := `{'headline': 'Test Headline', 'haiku': 'one\ntwo\nthree', 'story': '<p>Body.</p>', 'summary': 'Sum.'}`
	gen := &mockGenerator{responses: []string{dict}}
	composer := NewComposerWithDefaults(gen)

	record, err := composer.Compose(context.Background(), testSources, "Technology")
	if err != nil {
		t.Fatalf("Compose failed on single-quoted response: %v", err)
	}
	if record.Headline != "Test Headline" {
		t.Errorf("Expected headline 'Test Headline', got %q", record.Headline)
	}
}

func TestComposeParseFailurePreservesRaw(t *testing.T) {
	gen := &mockGenerator{responses: []string{"I cannot write that article."}}
	composer := NewComposerWithDefaults(gen)

	_, err := composer.Compose(context.Background(), testSources, "Technology")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Expected ParseError, got %v", err)
	}
	if parseErr.Raw != "I cannot write that article." {
		t.Errorf("Raw text not preserved: %q", parseErr.Raw)
	}
}

func TestComposeMissingFieldFails(t *testing.T) {
	missing := `{"headline":"H","haiku":"a\nb\nc","story":"<p>S</p>"}`
	gen := &mockGenerator{responses: []string{missing}}
	composer := NewComposerWithDefaults(gen)

	_, err := composer.Compose(context.Background(), testSources, "Technology")
	if err == nil {
		t.Fatal("Expected failure for missing summary field")
	}
}

func TestComposeTwoLineHaikuFails(t *testing.T) {
	twoLines := `{"headline":"H","haiku":"only one\nonly two","story":"<p>S</p>","summary":"Sum"}`
	gen := &mockGenerator{responses: []string{twoLines}}
	composer := NewComposerWithDefaults(gen)

	_, err := composer.Compose(context.Background(), testSources, "Technology")
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if validationErr.Field != "haiku" {
		t.Errorf("Expected haiku validation failure, got field %q", validationErr.Field)
	}
}

func TestComposeBackendErrorIsGenerationError(t *testing.T) {
	gen := &mockGenerator{err: errors.New("backend down")}
	composer := NewComposerWithDefaults(gen)

	_, err := composer.Compose(context.Background(), testSources, "Technology")
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("Expected GenerationError, got %v", err)
	}
}

func TestComposeStripsScriptTags(t *testing.T) {
	dirty := `{"headline":"H","haiku":"a\nb\nc","story":"<p>Safe.</p><script>alert(1)</script>","summary":"Sum"}`
	gen := &mockGenerator{responses: []string{dirty}}
	composer := NewComposerWithDefaults(gen)

	record, err := composer.Compose(context.Background(), testSources, "Technology")
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if record.Story != "<p>Safe.</p>" {
		t.Errorf("Expected sanitized story '<p>Safe.</p>', got %q", record.Story)
	}
}

func TestComposeStaged(t *testing.T) {
	gen := &mockGenerator{responses: []string{
		"<p>First paragraph of story.</p><p>Second paragraph.</p>",
		`"Staged Headline"`,
		"one\ntwo\nthree",
	}}
	composer := NewComposerWithDefaults(gen)

	record, err := composer.ComposeStaged(context.Background(), testSources, "Technology")
	if err != nil {
		t.Fatalf("ComposeStaged failed: %v", err)
	}
	if record.Headline != "Staged Headline" {
		t.Errorf("Expected unquoted headline, got %q", record.Headline)
	}
	if record.Summary != "First paragraph of story." {
		t.Errorf("Expected summary from first paragraph, got %q", record.Summary)
	}
	if gen.calls != 3 {
		t.Errorf("Expected 3 backend calls for staged strategy, got %d", gen.calls)
	}
}

func TestComposeNoAutomaticRetries(t *testing.T) {
	gen := &mockGenerator{responses: []string{"garbage", validJSON}}
	composer := NewComposerWithDefaults(gen)

	// First attempt fails; the composer must not silently re-invoke.
	if _, err := composer.Compose(context.Background(), testSources, "Technology"); err == nil {
		t.Fatal("Expected parse failure on first attempt")
	}
	if gen.calls != 1 {
		t.Fatalf("Composer retried internally: %d calls", gen.calls)
	}

	// The caller may re-invoke with the same inputs.
	if _, err := composer.Compose(context.Background(), testSources, "Technology"); err != nil {
		t.Fatalf("Second attempt should succeed: %v", err)
	}
}

func TestHaikuLines(t *testing.T) {
	lines := HaikuLines("  \none\n\ntwo\nthree\n ")
	if len(lines) != 3 {
		t.Errorf("Expected 3 lines, got %d (%v)", len(lines), lines)
	}
}
