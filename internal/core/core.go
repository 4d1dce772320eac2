package core

import "time"

// SourceArticle represents one raw article inside a topic cluster.
// It is supplied by the external clustering service and never mutated.
type SourceArticle struct {
	Title      string `json:"title"`       // Headline as reported by the source
	Content    string `json:"content"`     // Article body text
	SourceName string `json:"source_name"` // Publisher name (e.g., "Reuters")
	Link       string `json:"link"`        // Canonical URL of the article
}

// Key returns the uniqueness key for deduplication: (title, source_name).
func (a SourceArticle) Key() string {
	return a.Title + "\x1f" + a.SourceName
}

// Cluster is a group of articles judged to report the same event/topic.
// Created externally; consumed read-only.
type Cluster struct {
	ClusterID string          `json:"cluster_id"` // Identifier assigned by the clustering service
	Category  string          `json:"category"`   // Topical category (e.g., "Technology")
	Subject   string          `json:"subject"`    // Short subject line for the cluster
	Bias      float64         `json:"bias"`       // Aggregate source bias, clamped to [-1, 1]
	Articles  []SourceArticle `json:"articles"`   // Ordered; may contain duplicates
}

// ArticleRecord is the canonical generated article. All four fields are
// required; composition fails rather than producing a partial record.
type ArticleRecord struct {
	Headline string `json:"headline"` // Generated headline
	Haiku    string `json:"haiku"`    // Exactly three non-empty lines
	Story    string `json:"story"`    // Full story, HTML
	Summary  string `json:"summary"`  // One-paragraph summary
}

// Bias labels produced by the evaluator. Unknown labels map to Neutral.
const (
	BiasFarLeft     = "Far Left"
	BiasLeft        = "Left"
	BiasCenterLeft  = "Center Left"
	BiasNeutral     = "Neutral"
	BiasCenterRight = "Center Right"
	BiasRight       = "Right"
	BiasFarRight    = "Far Right"
)

// EvaluationRecord holds the numeric and categorical judgment of a
// generated article.
type EvaluationRecord struct {
	QualityScore float64 `json:"quality_score"` // 0-10
	BiasLabel    string  `json:"bias_label"`    // One of the seven bias labels
	BiasNumeric  float64 `json:"bias_numeric"`  // Derived from BiasLabel, in [-1, 1]
	Category     string  `json:"category"`      // Normalized category
	Topic        string  `json:"topic"`         // Short topic phrase
	TrendScore   float64 `json:"trend_score"`   // 0-10, advisory; defaults to 0 on bad input
	Reasoning    string  `json:"reasoning"`     // Free-text rationale with section markers
	Hashtags     string  `json:"hashtags"`      // Space-separated hashtag suggestions
}

// Citation pairs a display index with a source URL.
type Citation struct {
	Index int    `json:"index"` // 1-based position in the cited-source list
	URL   string `json:"url"`   // Source article URL
}

// PublishRecord is the fully assembled payload sent to the content API
// and social publishers. Field names follow the content API contract.
type PublishRecord struct {
	AIHeadline  string     `json:"AIHeadline"`
	AIHaiku     string     `json:"AIHaiku"`
	AIStory     string     `json:"AIStory"`
	AISummary   string     `json:"AISummary"`
	Category    string     `json:"cat"`
	Topic       string     `json:"topic"`
	Provenance  string     `json:"bs"`   // Free-text provenance string
	BiasScore   float64    `json:"bs_p"` // Numeric bias in [-1, 1]
	Quality     float64    `json:"qas"`  // Quality score 0-10
	Trend       float64    `json:"trend"`
	Cited       []Citation `json:"Cited"`
	ImageData   string     `json:"image_data"`   // Base64 background image, empty if none
	ImageHaiku  string     `json:"image_haiku"`  // Base64 haiku-overlaid image, empty if none
	ImagePrompt string     `json:"image_prompt"` // Prompt used for the current image pair
}

// HasImage reports whether an image payload is attached.
func (p *PublishRecord) HasImage() bool {
	return p != nil && (p.ImageData != "" || p.ImageHaiku != "")
}

// Step identifies a wizard step. Terminal outcomes (published, rejected)
// are tracked separately on the session.
type Step int

const (
	StepDraft       Step = 1 // Article generated, awaiting evaluation
	StepReviewed    Step = 2 // Evaluation stored, awaiting acceptance
	StepIllustrated Step = 3 // Publish record built, image attached or pending
	StepFinalReview Step = 4 // Ready to publish
)

// String returns the display name of a step.
func (s Step) String() string {
	switch s {
	case StepDraft:
		return "Draft"
	case StepReviewed:
		return "Reviewed"
	case StepIllustrated:
		return "Illustrated"
	case StepFinalReview:
		return "Final Review"
	default:
		return "Unknown"
	}
}

// PublishResult is what the content API returns on a successful publish.
type PublishResult struct {
	ArticleID int       `json:"article_id"` // Truthy id required for success
	Link      string    `json:"link"`       // Public URL of the published article
	Published time.Time `json:"published"`  // When the publish call completed
}
