package evaluate

import (
	"fmt"
	"strings"
	"time"

	"newsdesk/internal/core"
)

// evaluationGuidelines is the rubric embedded in every evaluation prompt.
const evaluationGuidelines = `EVALUATION GUIDELINES:
- quality_score (0-10): accuracy against sources, clarity, completeness, neutrality of tone
- bias: political lean of the finished article, one of: Far Left, Left, Center Left, Neutral, Center Right, Right, Far Right
- trend (0-10): shareability and propagation potential given current events
- cat: a 1-3 word topical category
- topic: a short topic phrase
- hashtags: up to five space-separated hashtags
- reasoning: structure your rationale into three sections introduced with
  "Quality Analysis:", "Bias Analysis:", and "Propagation Potential:"`

// BuildEvaluationPrompt renders the single evaluation prompt: guidelines,
// current-date context, the article, and its citations.
func BuildEvaluationPrompt(article core.ArticleRecord, citations []core.Citation, categoryContext string, now time.Time) string {
	var sb strings.Builder

	sb.WriteString("You are an editorial reviewer scoring an AI-generated news article.\n\n")
	sb.WriteString(fmt.Sprintf("TODAY'S DATE: %s (judge temporal relevance against this)\n", now.Format("2006-01-02")))
	if categoryContext != "" {
		sb.WriteString(fmt.Sprintf("CATEGORY CONTEXT: %s\n", categoryContext))
	}
	sb.WriteString("\n")
	sb.WriteString(evaluationGuidelines)
	sb.WriteString("\n\nARTICLE:\nHeadline: ")
	sb.WriteString(article.Headline)
	sb.WriteString("\n\nStory:\n")
	sb.WriteString(article.Story)
	sb.WriteString("\n\nCITED SOURCES:\n")
	for _, citation := range citations {
		sb.WriteString(fmt.Sprintf("[%d] %s\n", citation.Index, citation.URL))
	}

	sb.WriteString("\nRespond with a single JSON object with keys: quality_score, bias, cat, topic, trend, reasoning, hashtags. JSON only.\n")
	return sb.String()
}

// BuildRevisionPrompt extends the evaluation prompt with the prior
// evaluation and human feedback, instructing the backend to revise its
// judgment.
func BuildRevisionPrompt(article core.ArticleRecord, citations []core.Citation, categoryContext string, now time.Time, prior core.EvaluationRecord, feedback string) string {
	var sb strings.Builder
	sb.WriteString(BuildEvaluationPrompt(article, citations, categoryContext, now))

	sb.WriteString("\nPRIOR EVALUATION:\n")
	sb.WriteString(fmt.Sprintf("quality_score: %.1f, bias: %s, trend: %.1f\n", prior.QualityScore, prior.BiasLabel, prior.TrendScore))
	sb.WriteString("reasoning: ")
	sb.WriteString(prior.Reasoning)
	sb.WriteString("\n\nREVIEWER FEEDBACK:\n")
	sb.WriteString(feedback)
	sb.WriteString("\n\nRevise your judgment in light of the feedback. Respond with the full JSON object again.\n")
	return sb.String()
}
