package imagegen

import (
	"fmt"
	"strings"
	"time"

	"newsdesk/internal/core"
)

// BuildImagePrompt derives an illustration prompt from the article's
// headline and haiku, anchored to the current date so regenerated images
// stay stylistically fresh.
func BuildImagePrompt(article core.ArticleRecord, now time.Time) string {
	haiku := strings.ReplaceAll(strings.TrimSpace(article.Haiku), "\n", " / ")
	return fmt.Sprintf(
		"Editorial illustration for a news article, %s. Headline: %s. Mood: %s. No text, no words, no lettering in the image.",
		now.Format("January 2006"), article.Headline, haiku,
	)
}
