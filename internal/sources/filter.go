// Package sources filters a cluster's raw articles before generation.
package sources

import (
	"fmt"

	"newsdesk/internal/core"
)

const (
	// DefaultMinSources is the minimum number of unique (title, source)
	// pairs a cluster needs before generation is attempted.
	DefaultMinSources = 3
	// DefaultMaxSources caps how many unique articles feed the composer.
	DefaultMaxSources = 8
)

// InsufficientSourcesError reports a cluster with too few unique sources.
// Callers decide whether to override and proceed or drop the cluster;
// the filter never proceeds silently.
type InsufficientSourcesError struct {
	ClusterID string
	Unique    int
	Required  int
}

func (e *InsufficientSourcesError) Error() string {
	return fmt.Sprintf("cluster %s has %d unique sources, need at least %d", e.ClusterID, e.Unique, e.Required)
}

// Filter deduplicates and caps a cluster's articles.
type Filter struct {
	MinSources int
	MaxSources int
}

// NewFilter creates a filter with the default thresholds.
func NewFilter() *Filter {
	return &Filter{MinSources: DefaultMinSources, MaxSources: DefaultMaxSources}
}

// Apply returns the cluster's articles deduplicated by (title, source_name),
// preserving original order and capped at MaxSources. It returns an
// InsufficientSourcesError when fewer than MinSources unique articles remain.
func (f *Filter) Apply(cluster core.Cluster) ([]core.SourceArticle, error) {
	unique := f.Dedupe(cluster.Articles)

	if len(unique) < f.MinSources {
		return nil, &InsufficientSourcesError{
			ClusterID: cluster.ClusterID,
			Unique:    len(unique),
			Required:  f.MinSources,
		}
	}

	if len(unique) > f.MaxSources {
		unique = unique[:f.MaxSources]
	}
	return unique, nil
}

// Bypass returns the deduplicated, capped article set without enforcing the
// minimum-diversity threshold. Used when an operator overrides an
// InsufficientSourcesError and proceeds anyway.
func (f *Filter) Bypass(cluster core.Cluster) []core.SourceArticle {
	unique := f.Dedupe(cluster.Articles)
	if len(unique) > f.MaxSources {
		unique = unique[:f.MaxSources]
	}
	return unique
}

// Dedupe keeps the first occurrence of each (title, source_name) pair,
// preserving the input order.
func (f *Filter) Dedupe(articles []core.SourceArticle) []core.SourceArticle {
	seen := make(map[string]bool, len(articles))
	unique := make([]core.SourceArticle, 0, len(articles))

	for _, article := range articles {
		key := article.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, article)
	}
	return unique
}
