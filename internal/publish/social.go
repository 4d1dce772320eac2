package publish

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"newsdesk/internal/core"
)

// Post is the platform-independent outgoing social post. Limits are
// enforced here, before any adapter is invoked; adapters only transport.
type Post struct {
	Text      string   // Body text, already truncated to the platform budget
	Hashtags  []string // Capped hashtag list, each with leading '#'
	Link      string   // Published article URL
	ImageData []byte   // Background image payload, may be nil
	AltText   string   // Image alt text (the haiku, flattened)
}

// Limits bounds outgoing posts.
type Limits struct {
	MaxPostLength int // Rune budget for the body text, link excluded
	MaxHashtags   int
}

// DefaultLimits matches the tightest platform in use (Bluesky, 300
// chars) and the house hashtag cap.
func DefaultLimits() Limits {
	return Limits{MaxPostLength: 300, MaxHashtags: 5}
}

// SocialPublisher is one destination platform: a thin authenticated
// upload-then-post sequence.
type SocialPublisher interface {
	Name() string
	Publish(ctx context.Context, post Post) (string, error)
}

// ComposePost builds the outgoing post for a publish record: headline
// plus the story's plain text, truncated; hashtags parsed and capped.
func ComposePost(record core.PublishRecord, evaluation core.EvaluationRecord, link string, limits Limits) Post {
	if limits.MaxPostLength <= 0 {
		limits = DefaultLimits()
	}

	hashtags := CapHashtags(ParseHashtags(evaluation.Hashtags), limits.MaxHashtags)

	// Reserve space for the hashtag tail inside the budget. A tail that
	// consumes the whole budget leaves no room for body text.
	tail := strings.Join(hashtags, " ")
	budget := limits.MaxPostLength
	if tail != "" {
		budget -= len([]rune(tail)) + 1
	}
	if budget < 0 {
		budget = 0
	}

	body := record.AIHeadline + " — " + StoryText(record.AIStory)
	body = Truncate(body, budget)

	return Post{
		Text:     strings.TrimSpace(body),
		Hashtags: hashtags,
		Link:     link,
		AltText:  strings.ReplaceAll(record.AIHaiku, "\n", " / "),
	}
}

// StoryText extracts plain text from the story HTML. Falls back to the
// raw string when it is not parseable HTML.
func StoryText(storyHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(storyHTML))
	if err != nil {
		return strings.TrimSpace(storyHTML)
	}
	var paragraphs []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) == 0 {
		return strings.TrimSpace(doc.Text())
	}
	return strings.Join(paragraphs, " ")
}

// Truncate cuts text to at most limit runes, on a word boundary when
// possible, appending an ellipsis when anything was removed. A
// non-positive limit yields an empty string.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	if limit == 1 {
		return "…"
	}
	cut := string(runes[:limit-1])
	if idx := strings.LastIndex(cut, " "); idx > limit/2 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut) + "…"
}

// ParseHashtags splits the evaluator's free-form hashtag string into
// normalized tags, each with exactly one leading '#'.
func ParseHashtags(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\n' || r == '\t'
	})
	var tags []string
	seen := map[string]bool{}
	for _, field := range fields {
		tag := strings.TrimLeft(strings.TrimSpace(field), "#")
		if tag == "" {
			continue
		}
		normalized := "#" + tag
		if seen[strings.ToLower(normalized)] {
			continue
		}
		seen[strings.ToLower(normalized)] = true
		tags = append(tags, normalized)
	}
	return tags
}

// CapHashtags bounds the hashtag list.
func CapHashtags(tags []string, max int) []string {
	if max <= 0 {
		max = DefaultLimits().MaxHashtags
	}
	if len(tags) > max {
		return tags[:max]
	}
	return tags
}

// RenderText flattens a post into the final string an adapter sends:
// body, link, hashtags.
func (p Post) RenderText() string {
	var sb strings.Builder
	sb.WriteString(p.Text)
	if p.Link != "" {
		sb.WriteString("\n")
		sb.WriteString(p.Link)
	}
	if len(p.Hashtags) > 0 {
		sb.WriteString("\n")
		sb.WriteString(strings.Join(p.Hashtags, " "))
	}
	return sb.String()
}
