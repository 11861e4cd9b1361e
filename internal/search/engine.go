// Package search answers k-NN questions over the task and worker collections.
//
// Every search over-fetches max(2k, MinFetch) neighbours, drops the ones that
// fail a filter, re-sorts the survivors by distance and keeps k. There is no
// second fetch, so restrictive filters can return fewer than k results.
package search

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ziadkadry99/crewmatch/internal/apperr"
	"github.com/ziadkadry99/crewmatch/internal/canon"
	"github.com/ziadkadry99/crewmatch/internal/embeddings"
	"github.com/ziadkadry99/crewmatch/internal/metrics"
	"github.com/ziadkadry99/crewmatch/internal/vectordb"
)

// Defaults applied when Options leaves a field at zero.
const (
	DefaultMinFetch      = 20
	DefaultMaxK          = 100
	DefaultSnippetLength = 200
)

// Options tunes the engine.
type Options struct {
	// MinFetch is the floor on the number of raw neighbours requested.
	MinFetch int
	// MaxK is the largest k a caller may ask for.
	MaxK int
	// SnippetLength caps matched_text_snippet and profile_snippet, in runes.
	SnippetLength int
}

// Engine runs searches. It never writes to the store.
type Engine struct {
	embedder embeddings.Embedder
	store    vectordb.Store
	opts     Options
}

// NewEngine creates an engine. The embedder must be the one the collections
// were built with.
func NewEngine(embedder embeddings.Embedder, store vectordb.Store, opts Options) *Engine {
	if opts.MinFetch < 1 {
		opts.MinFetch = DefaultMinFetch
	}
	if opts.MaxK < 1 {
		opts.MaxK = DefaultMaxK
	}
	if opts.SnippetLength < 1 {
		opts.SnippetLength = DefaultSnippetLength
	}
	return &Engine{embedder: embedder, store: store, opts: opts}
}

// Filters are applied in field order. A nil pointer or empty string means
// the filter is off.
type Filters struct {
	MinSimilarity *float64
	MinDistance   *float64
	MaxDistance   *float64

	// Worker-only filters.
	RequiredSkills     []string
	Role               string
	MinExperienceYears *int
	TradeCategory      string
}

func (f Filters) workerOnly() bool {
	return len(f.RequiredSkills) > 0 || f.Role != "" || f.MinExperienceYears != nil || f.TradeCategory != ""
}

func (f Filters) validate(c vectordb.Collection) error {
	for _, v := range []struct {
		field string
		value *float64
	}{
		{"min_similarity", f.MinSimilarity},
		{"min_distance", f.MinDistance},
		{"max_distance", f.MaxDistance},
	} {
		if v.value != nil && (math.IsNaN(*v.value) || math.IsInf(*v.value, 0)) {
			return apperr.Validation("search", v.field, "must be a finite number")
		}
	}
	if f.MinDistance != nil && f.MaxDistance != nil && *f.MinDistance > *f.MaxDistance {
		return apperr.Validation("search", "min_distance", "must not exceed max_distance")
	}
	if f.MinExperienceYears != nil && *f.MinExperienceYears < 0 {
		return apperr.Validation("search", "min_experience_years", "must not be negative")
	}
	if c != vectordb.UserVectors && f.workerOnly() {
		return apperr.Validation("search", "filters", "skill, role, experience and trade filters apply to UserVectors only")
	}
	return nil
}

// Query is a single search. Exactly one of Text and Embedding is used;
// Embedding wins when both are set.
type Query struct {
	Collection vectordb.Collection
	Text       string
	Embedding  []float32
	K          int
	Filters    Filters
}

// Search returns at most q.K results in non-decreasing distance order. Ties
// keep the order the store returned them in.
func (e *Engine) Search(ctx context.Context, q Query) (results []vectordb.SearchResult, err error) {
	if !q.Collection.Valid() {
		return nil, apperr.Validation("search", "collection", fmt.Sprintf("unknown collection %q", q.Collection))
	}
	if q.K < 1 || q.K > e.opts.MaxK {
		return nil, apperr.Validation("search", "k", fmt.Sprintf("must be between 1 and %d", e.opts.MaxK))
	}
	if err := q.Filters.validate(q.Collection); err != nil {
		return nil, err
	}

	ctx, span := metrics.Tracer.Start(ctx, "search.Search")
	span.SetAttributes(
		attribute.String("crewmatch.collection", string(q.Collection)),
		attribute.Int("crewmatch.k", q.K),
	)
	start := time.Now()
	defer func() {
		metrics.QueryDuration.WithLabelValues(string(q.Collection)).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.Int("crewmatch.results", len(results)))
		}
		span.End()
	}()

	vec := q.Embedding
	if len(vec) == 0 {
		vec, err = embeddings.Encode(ctx, e.embedder, canon.NormalizeQuery(q.Text))
		if err != nil {
			return nil, err
		}
	}

	fetchK := max(2*q.K, e.opts.MinFetch)
	raw, err := e.store.Query(ctx, q.Collection, vec, fetchK)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}

	kept := make([]vectordb.SearchResult, 0, len(raw))
	for _, r := range raw {
		if q.Filters.keep(r) {
			kept = append(kept, r)
		}
	}
	slices.SortStableFunc(kept, func(a, b vectordb.SearchResult) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return 0
	})
	if len(kept) > q.K {
		kept = kept[:q.K]
	}
	return kept, nil
}

// keep reports whether r passes every active filter.
func (f Filters) keep(r vectordb.SearchResult) bool {
	if f.MinSimilarity != nil && SimilarityScore(r.Distance) < *f.MinSimilarity {
		return false
	}
	if f.MinDistance != nil && r.Distance < *f.MinDistance {
		return false
	}
	if f.MaxDistance != nil && r.Distance > *f.MaxDistance {
		return false
	}
	if !f.workerOnly() {
		return true
	}

	u, ok := r.Metadata.(vectordb.UserMetadata)
	if !ok {
		return false
	}
	if len(f.RequiredSkills) > 0 && !hasAnySkill(u.PrimarySkills, f.RequiredSkills) {
		return false
	}
	if f.Role != "" && !strings.EqualFold(strings.TrimSpace(u.Role), strings.TrimSpace(f.Role)) {
		return false
	}
	if f.MinExperienceYears != nil && u.ExperienceYears < *f.MinExperienceYears {
		return false
	}
	if f.TradeCategory != "" && !containsFold(u.TradeCategories, f.TradeCategory) {
		return false
	}
	return true
}

// hasAnySkill reports whether some required skill is a case-insensitive
// substring of some worker skill.
// Blank entries are ignored.
func hasAnySkill(skills, required []string) bool {
	active := false
	for _, req := range required {
		if strings.TrimSpace(req) == "" {
			continue
		}
		active = true
		if containsFold(skills, req) {
			return true
		}
	}
	return !active
}

// containsFold reports whether needle is a case-insensitive substring of any
// item.
func containsFold(items []string, needle string) bool {
	n := strings.ToLower(strings.TrimSpace(needle))
	for _, it := range items {
		if strings.Contains(strings.ToLower(it), n) {
			return true
		}
	}
	return false
}

// SimilarityScore converts a cosine distance to the percentage shown to
// users. It is not clamped: distances outside [0, 1] give scores above 100
// or below 0.
func SimilarityScore(distance float64) float64 {
	return (1 - distance) * 100
}
