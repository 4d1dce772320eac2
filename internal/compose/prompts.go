package compose

import (
	"fmt"
	"strings"

	"newsdesk/internal/core"
)

// combinedPromptTemplate asks the backend for all four article fields in
// one JSON object. The haiku must keep its line breaks.
const combinedPromptTemplate = `You are a news desk writer producing a short AI-generated article from clustered source reporting.

CATEGORY: %s

SOURCE ARTICLES:
%s

TASK:
Write an original article based only on the sources above. Respond with a single JSON object containing exactly these keys:
- "headline": a concise, neutral headline (no clickbait, no source names)
- "haiku": a three-line haiku about the story, lines separated by "\n"
- "story": the full story as HTML paragraphs (<p>...</p>), 4-6 paragraphs, citing sources inline as [1], [2], ...
- "summary": a one-paragraph plain-text summary

Respond with the JSON object only. No commentary before or after.`

// Staged prompts generate one field at a time. The story comes first;
// headline and haiku are derived from it.
const (
	storyPromptTemplate = `Write an original news story based only on the following source articles. Output HTML paragraphs (<p>...</p>), 4-6 paragraphs, citing sources inline as [1], [2], ... Do not include a headline.

CATEGORY: %s

SOURCE ARTICLES:
%s`

	headlinePromptTemplate = `Write a concise, neutral headline for the following story. Respond with the headline text only, no quotes.

STORY:
%s`

	haikuPromptTemplate = `Write a haiku (exactly three lines) capturing the essence of the following story. Respond with only the three lines, separated by line breaks.

STORY:
%s`
)

// BuildCombinedPrompt renders the single-shot generation prompt.
func BuildCombinedPrompt(articles []core.SourceArticle, category string) string {
	return fmt.Sprintf(combinedPromptTemplate, category, formatSources(articles))
}

// BuildStoryPrompt renders the staged story prompt.
func BuildStoryPrompt(articles []core.SourceArticle, category string) string {
	return fmt.Sprintf(storyPromptTemplate, category, formatSources(articles))
}

// BuildHeadlinePrompt renders the staged headline prompt.
func BuildHeadlinePrompt(story string) string {
	return fmt.Sprintf(headlinePromptTemplate, story)
}

// BuildHaikuPrompt renders the staged haiku prompt.
func BuildHaikuPrompt(story string) string {
	return fmt.Sprintf(haikuPromptTemplate, story)
}

// formatSources renders numbered source blocks for a prompt. Long bodies
// are truncated so a large cluster stays inside the context window.
func formatSources(articles []core.SourceArticle) string {
	var sb strings.Builder
	for i, article := range articles {
		content := article.Content
		if len(content) > 2000 {
			content = content[:2000] + "..."
		}
		sb.WriteString(fmt.Sprintf("[%d] %s (%s)\n%s\n\n", i+1, article.Title, article.SourceName, content))
	}
	return sb.String()
}
