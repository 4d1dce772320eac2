package publish

import (
	"strings"
	"testing"

	"newsdesk/internal/core"
)

func TestParseHashtags(t *testing.T) {
	tags := ParseHashtags("#ai, machineLearning  #AI\n#policy")
	expected := []string{"#ai", "#machineLearning", "#policy"}
	if len(tags) != len(expected) {
		t.Fatalf("Expected %d tags, got %d: %v", len(expected), len(tags), tags)
	}
	for i, tag := range expected {
		if tags[i] != tag {
			t.Errorf("Expected tag %q at position %d, got %q", tag, i, tags[i])
		}
	}
}

func TestParseHashtagsEmpty(t *testing.T) {
	if tags := ParseHashtags("   "); tags != nil {
		t.Errorf("Expected nil for blank input, got %v", tags)
	}
}

func TestCapHashtags(t *testing.T) {
	tags := []string{"#a", "#b", "#c", "#d", "#e", "#f", "#g"}
	capped := CapHashtags(tags, 5)
	if len(capped) != 5 {
		t.Errorf("Expected 5 tags after cap, got %d", len(capped))
	}
}

func TestTruncateNonPositiveLimit(t *testing.T) {
	if got := Truncate("anything at all", 0); got != "" {
		t.Errorf("Expected empty string for zero limit, got %q", got)
	}
	if got := Truncate("anything at all", -5); got != "" {
		t.Errorf("Expected empty string for negative limit, got %q", got)
	}
}

func TestTruncateShortTextUnchanged(t *testing.T) {
	text := "Short enough"
	if got := Truncate(text, 300); got != text {
		t.Errorf("Expected text unchanged, got %q", got)
	}
}

func TestTruncateWordBoundary(t *testing.T) {
	text := strings.Repeat("word ", 100)
	got := Truncate(text, 50)
	if len([]rune(got)) > 50 {
		t.Errorf("Expected at most 50 runes, got %d", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("Expected ellipsis suffix, got %q", got)
	}
	if strings.HasSuffix(got, "wor…") {
		t.Errorf("Expected cut on word boundary, got %q", got)
	}
}

func TestTruncateRuneSafe(t *testing.T) {
	text := strings.Repeat("日本語テキスト", 20)
	got := Truncate(text, 30)
	if len([]rune(got)) > 30 {
		t.Errorf("Expected at most 30 runes, got %d", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("Expected ellipsis suffix, got %q", got)
	}
}

func TestStoryTextExtractsParagraphs(t *testing.T) {
	html := "<p>First paragraph.</p><script>alert(1)</script><p>Second paragraph.</p>"
	got := StoryText(html)
	if got != "First paragraph. Second paragraph." {
		t.Errorf("Expected joined paragraph text, got %q", got)
	}
}

func TestStoryTextPlainFallback(t *testing.T) {
	if got := StoryText("Just plain text."); got != "Just plain text." {
		t.Errorf("Expected plain text passthrough, got %q", got)
	}
}

func TestComposePostBudget(t *testing.T) {
	record := core.PublishRecord{
		AIHeadline: "Markets Rally on Rate Cut Hopes",
		AIHaiku:    "line one\nline two\nline three",
		AIStory:    "<p>" + strings.Repeat("The rally continued. ", 40) + "</p>",
	}
	evaluation := core.EvaluationRecord{Hashtags: "#markets #rates #economy"}

	post := ComposePost(record, evaluation, "https://example.com/a/1", DefaultLimits())

	tail := strings.Join(post.Hashtags, " ")
	if len([]rune(post.Text))+len([]rune(tail))+1 > DefaultLimits().MaxPostLength {
		t.Errorf("Expected text plus hashtags within %d runes, got %d",
			DefaultLimits().MaxPostLength, len([]rune(post.Text))+len([]rune(tail))+1)
	}
	if !strings.HasPrefix(post.Text, "Markets Rally") {
		t.Errorf("Expected post to open with the headline, got %q", post.Text)
	}
	if len(post.Hashtags) != 3 {
		t.Errorf("Expected 3 hashtags, got %d", len(post.Hashtags))
	}
	if post.AltText != "line one / line two / line three" {
		t.Errorf("Expected flattened haiku alt text, got %q", post.AltText)
	}
}

func TestComposePostHashtagTailExhaustsBudget(t *testing.T) {
	record := core.PublishRecord{
		AIHeadline: "A Very Long Headline That Would Normally Survive",
		AIStory:    "<p>" + strings.Repeat("More body text here. ", 50) + "</p>",
	}
	evaluation := core.EvaluationRecord{
		Hashtags: "#averylonghashtagone #averylonghashtagtwo #averylonghashtagthree #averylonghashtagfour #averylonghashtagfive",
	}

	post := ComposePost(record, evaluation, "", Limits{MaxPostLength: 100, MaxHashtags: 5})

	// The five 20-rune tags consume more than the whole budget, so no
	// room remains for body text.
	if post.Text != "" {
		t.Errorf("Expected empty body when hashtags exhaust the budget, got %d runes: %q",
			len([]rune(post.Text)), post.Text)
	}
	if len(post.Hashtags) != 5 {
		t.Errorf("Expected hashtags preserved, got %d", len(post.Hashtags))
	}
}

func TestComposePostZeroLimitsFallBackToDefaults(t *testing.T) {
	record := core.PublishRecord{AIHeadline: "Headline", AIStory: "<p>Body.</p>"}
	post := ComposePost(record, core.EvaluationRecord{}, "", Limits{})
	if post.Text == "" {
		t.Error("Expected non-empty post text with zero-value limits")
	}
}

func TestRenderText(t *testing.T) {
	post := Post{
		Text:     "Headline — story.",
		Hashtags: []string{"#one", "#two"},
		Link:     "https://example.com/a/7",
	}
	got := post.RenderText()
	expected := "Headline — story.\nhttps://example.com/a/7\n#one #two"
	if got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}
