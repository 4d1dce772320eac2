package wizard

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"newsdesk/internal/core"
)

// Session is the single live record that flows between wizard steps.
// It exclusively owns the article, evaluation, and publish record for
// its lifetime; Reset clears all fields atomically.
type Session struct {
	ID         string                 `json:"id"`
	Step       core.Step              `json:"step"`
	Cluster    core.Cluster           `json:"cluster"`
	Filtered   []core.SourceArticle   `json:"filtered"`
	Article    *core.ArticleRecord    `json:"article,omitempty"`
	Evaluation *core.EvaluationRecord `json:"evaluation,omitempty"`
	Publish    *core.PublishRecord    `json:"publish,omitempty"`
	Rejected   bool                   `json:"rejected"`
	Published  *core.PublishResult    `json:"published,omitempty"`
}

// NewSession creates a fresh session for a cluster at the Draft step.
func NewSession(cluster core.Cluster) *Session {
	return &Session{
		ID:      uuid.NewString(),
		Step:    core.StepDraft,
		Cluster: cluster,
	}
}

// Reset clears every field, leaving only the session id. Called on
// rejection; the cluster returns to the caller's available pool.
func (s *Session) Reset() {
	s.Step = core.StepDraft
	s.Cluster = core.Cluster{}
	s.Filtered = nil
	s.Article = nil
	s.Evaluation = nil
	s.Publish = nil
	s.Rejected = true
	s.Published = nil
}

// IsPublished reports whether the session has already been published.
// Guards the one place double-submission must be prevented.
func (s *Session) IsPublished() bool {
	return s.Published != nil && s.Published.ArticleID != 0
}

// Citations derives the ordered citation list from the filtered articles.
func (s *Session) Citations() []core.Citation {
	citations := make([]core.Citation, 0, len(s.Filtered))
	for i, article := range s.Filtered {
		citations = append(citations, core.Citation{Index: i + 1, URL: article.Link})
	}
	return citations
}

// Provenance renders the free-text provenance string stored in the
// publish record's bs field.
func (s *Session) Provenance() string {
	names := make([]string, 0, len(s.Filtered))
	seen := map[string]bool{}
	for _, article := range s.Filtered {
		if !seen[article.SourceName] {
			seen[article.SourceName] = true
			names = append(names, article.SourceName)
		}
	}
	return fmt.Sprintf("%s via %d sources: %s", s.Cluster.Category, len(s.Filtered), strings.Join(names, ", "))
}

// SaveRecovery persists the session's publish record to the recovery
// file so an interrupted session can resume. The file is overwritten
// wholesale on each update; only the owning session writes it.
func (s *Session) SaveRecovery(path string) error {
	if s.Publish == nil {
		return fmt.Errorf("no publish record to persist")
	}
	data, err := json.MarshalIndent(s.Publish, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal publish record: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write recovery file: %w", err)
	}
	return nil
}

// LoadRecovery reads a previously persisted publish record.
func LoadRecovery(path string) (*core.PublishRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recovery file: %w", err)
	}
	var record core.PublishRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recovery file: %w", err)
	}
	return &record, nil
}
