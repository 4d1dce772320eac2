// Package wizard owns the four-step publication lifecycle: Draft,
// Reviewed, Illustrated, Final Review, with terminal Published and
// Rejected outcomes. Every failure leaves the session in the
// previously-valid state; transitions never half-apply.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"newsdesk/internal/core"
	"newsdesk/internal/imagegen"
	"newsdesk/internal/logger"
	"newsdesk/internal/sources"
)

// ErrInvalidTransition is returned when an operation is invoked at the
// wrong step.
var ErrInvalidTransition = errors.New("invalid wizard transition")

// ErrAlreadyPublished reports an attempted double-publish. The operation
// is a no-op; the stored result remains authoritative.
var ErrAlreadyPublished = errors.New("already published")

// ErrNoImage is returned when advancing to final review without any
// image payload attached.
var ErrNoImage = errors.New("no image payload present")

// Composer generates a canonical article from filtered sources.
type Composer interface {
	Compose(ctx context.Context, articles []core.SourceArticle, category string) (core.ArticleRecord, error)
}

// Evaluator scores an article, optionally revising a prior evaluation
// in light of human feedback.
type Evaluator interface {
	Evaluate(ctx context.Context, article core.ArticleRecord, citations []core.Citation, categoryContext string, now time.Time, prior core.EvaluationRecord, feedback string) (core.EvaluationRecord, error)
}

// ImageGenerator produces image bytes for a prompt.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt, size string) ([]byte, error)
}

// Publisher sends a finished publish record to the content API.
type Publisher interface {
	Publish(ctx context.Context, record core.PublishRecord) (*core.PublishResult, error)
}

// Options configures the wizard.
type Options struct {
	RecoveryFile string // Durable side-channel for the publish record
	ImageSize    string
	Now          func() time.Time // Injectable clock; defaults to time.Now
}

// Wizard drives one session through the publication lifecycle.
type Wizard struct {
	filter    *sources.Filter
	composer  Composer
	evaluator Evaluator
	images    ImageGenerator
	publisher Publisher
	options   Options

	session *Session
}

// New creates a wizard over the given collaborators.
func New(filter *sources.Filter, composer Composer, evaluator Evaluator, images ImageGenerator, publisher Publisher, options Options) *Wizard {
	if options.Now == nil {
		options.Now = time.Now
	}
	if options.ImageSize == "" {
		options.ImageSize = "1024x1024"
	}
	return &Wizard{
		filter:    filter,
		composer:  composer,
		evaluator: evaluator,
		images:    images,
		publisher: publisher,
		options:   options,
	}
}

// Session returns the live session, or nil before Start.
func (w *Wizard) Session() *Session {
	return w.session
}

// Start filters a cluster's sources and composes the initial draft.
// With bypass set, the minimum-diversity threshold is overridden (the
// operator chose to proceed after an insufficient-sources report).
func (w *Wizard) Start(ctx context.Context, cluster core.Cluster, bypass bool) error {
	var filtered []core.SourceArticle
	if bypass {
		filtered = w.filter.Bypass(cluster)
	} else {
		var err error
		filtered, err = w.filter.Apply(cluster)
		if err != nil {
			return err
		}
	}

	article, err := w.composer.Compose(ctx, filtered, cluster.Category)
	if err != nil {
		return err
	}

	session := NewSession(cluster)
	session.Filtered = filtered
	session.Article = &article
	w.session = session
	return nil
}

// Regenerate replaces the draft article wholesale with a fresh
// composition from the same inputs. Valid only at Draft.
func (w *Wizard) Regenerate(ctx context.Context) error {
	if err := w.require(core.StepDraft); err != nil {
		return err
	}

	article, err := w.composer.Compose(ctx, w.session.Filtered, w.session.Cluster.Category)
	if err != nil {
		return err
	}
	w.session.Article = &article
	return nil
}

// Evaluate runs the evaluator over the draft and advances Draft ->
// Reviewed. On failure the session remains at Draft and the error is
// surfaced; the operation is retryable. At Reviewed, a non-empty
// feedback string re-evaluates in place (revision, no step change).
func (w *Wizard) Evaluate(ctx context.Context, feedback string) error {
	if w.session == nil || w.session.Article == nil {
		return fmt.Errorf("%w: no draft article", ErrInvalidTransition)
	}
	if w.session.Step != core.StepDraft && w.session.Step != core.StepReviewed {
		return fmt.Errorf("%w: evaluate at step %s", ErrInvalidTransition, w.session.Step)
	}

	var prior core.EvaluationRecord
	if w.session.Evaluation != nil {
		prior = *w.session.Evaluation
	}

	evaluation, err := w.evaluator.Evaluate(ctx, *w.session.Article, w.session.Citations(), w.session.Cluster.Category, w.options.Now(), prior, feedback)
	if err != nil {
		return err
	}

	w.session.Evaluation = &evaluation
	w.session.Step = core.StepReviewed
	return nil
}

// Accept builds the publish record from the article, evaluation, and
// citations, persists it to the recovery file, then requests the initial
// image. Image failure surfaces as a warning but never regresses the
// step: the record still advances to Illustrated.
func (w *Wizard) Accept(ctx context.Context) error {
	if err := w.require(core.StepReviewed); err != nil {
		return err
	}
	if w.session.Evaluation == nil {
		return fmt.Errorf("%w: no evaluation to accept", ErrInvalidTransition)
	}

	article := w.session.Article
	evaluation := w.session.Evaluation
	record := &core.PublishRecord{
		AIHeadline: article.Headline,
		AIHaiku:    article.Haiku,
		AIStory:    article.Story,
		AISummary:  article.Summary,
		Category:   evaluation.Category,
		Topic:      evaluation.Topic,
		Provenance: w.session.Provenance(),
		BiasScore:  evaluation.BiasNumeric,
		Quality:    evaluation.QualityScore,
		Trend:      evaluation.TrendScore,
		Cited:      w.session.Citations(),
	}

	w.session.Publish = record
	w.session.Step = core.StepIllustrated
	w.persist()

	if err := w.RegenerateImage(ctx); err != nil {
		logger.Warn("initial image generation failed, continuing without image", "error", err.Error())
	}
	return nil
}

// RegenerateImage derives a fresh image prompt from the haiku, headline,
// and date, generates a new image, and replaces both image payloads
// atomically. Self-loop at Illustrated (also reachable as the initial
// generation from Accept) and at Final Review, where the operator can
// still swap the pair before publishing. The updated record is persisted
// after every successful regeneration.
func (w *Wizard) RegenerateImage(ctx context.Context) error {
	if w.session == nil {
		return fmt.Errorf("%w: no session", ErrInvalidTransition)
	}
	if w.session.Step != core.StepIllustrated && w.session.Step != core.StepFinalReview {
		return fmt.Errorf("%w: regenerate image at step %s", ErrInvalidTransition, w.session.Step)
	}

	prompt := imagegen.BuildImagePrompt(*w.session.Article, w.options.Now())
	background, err := w.images.Generate(ctx, prompt, w.options.ImageSize)
	if err != nil {
		return err
	}
	overlay, err := w.images.Generate(ctx, prompt+" Include the haiku text rendered elegantly over the scene.", w.options.ImageSize)
	if err != nil {
		return err
	}

	// Both payloads replace together; stale pairs are never mixed.
	w.session.Publish.ImageData = imagegen.EncodeBase64(background)
	w.session.Publish.ImageHaiku = imagegen.EncodeBase64(overlay)
	w.session.Publish.ImagePrompt = prompt
	w.persist()
	return nil
}

// AdvanceToFinal moves Illustrated -> Final Review. The only validation
// is that an image payload is present.
func (w *Wizard) AdvanceToFinal() error {
	if err := w.require(core.StepIllustrated); err != nil {
		return err
	}
	if !w.session.Publish.HasImage() {
		return ErrNoImage
	}
	w.session.Step = core.StepFinalReview
	return nil
}

// Publish sends the record to the content API. Success requires a truthy
// article id; the session then becomes an absorbing success state.
// Re-invoking on a published session is a guarded no-op.
func (w *Wizard) Publish(ctx context.Context) (*core.PublishResult, error) {
	if w.session == nil {
		return nil, fmt.Errorf("%w: no session", ErrInvalidTransition)
	}
	if w.session.IsPublished() {
		return w.session.Published, ErrAlreadyPublished
	}
	if w.session.Step != core.StepFinalReview {
		return nil, fmt.Errorf("%w: publish at step %s", ErrInvalidTransition, w.session.Step)
	}

	result, err := w.publisher.Publish(ctx, *w.session.Publish)
	if err != nil {
		return nil, err
	}
	if result == nil || result.ArticleID == 0 {
		return nil, fmt.Errorf("publish response missing article id")
	}

	w.session.Published = result
	return result, nil
}

// Reject resets the session from any step; the cluster returns to the
// available pool for re-selection. Published is absorbing: rejecting a
// published session is a no-op.
func (w *Wizard) Reject() {
	if w.session == nil || w.session.IsPublished() {
		return
	}
	w.session.Reset()
}

// require checks the session exists and is at the expected step.
func (w *Wizard) require(step core.Step) error {
	if w.session == nil {
		return fmt.Errorf("%w: no session", ErrInvalidTransition)
	}
	if w.session.Step != step {
		return fmt.Errorf("%w: expected step %s, at %s", ErrInvalidTransition, step, w.session.Step)
	}
	return nil
}

// persist writes the recovery file, logging rather than failing the
// transition when the side channel is unavailable.
func (w *Wizard) persist() {
	if w.options.RecoveryFile == "" {
		return
	}
	if err := w.session.SaveRecovery(w.options.RecoveryFile); err != nil {
		logger.Warn("failed to persist recovery file", "error", err.Error())
	}
}
