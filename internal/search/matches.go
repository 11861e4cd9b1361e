package search

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ziadkadry99/crewmatch/internal/apperr"
	"github.com/ziadkadry99/crewmatch/internal/canon"
	"github.com/ziadkadry99/crewmatch/internal/vectordb"
)

// TaskMatch is one result of SearchSimilarTasks.
type TaskMatch struct {
	TaskID             int64   `json:"task_id"`
	Title              string  `json:"title"`
	TradeCategory      string  `json:"trade_category"`
	Priority           string  `json:"priority"`
	Status             string  `json:"status"`
	Distance           float64 `json:"distance"`
	SimilarityScore    float64 `json:"similarity_score"`
	MatchedTextSnippet string  `json:"matched_text_snippet"`
}

// WorkerMatch is one result of SearchSimilarUsers and FindBestWorkersForTask.
type WorkerMatch struct {
	UserID          int64    `json:"user_id"`
	Name            string   `json:"name"`
	Role            string   `json:"role"`
	SimilarityScore float64  `json:"similarity_score"`
	Distance        float64  `json:"distance"`
	ExperienceYears int      `json:"experience_years"`
	PrimarySkills   []string `json:"primary_skills"`
	TradeCategories []string `json:"trade_categories"`
	RelevantSkills  []string `json:"relevant_skills"`
	ProfileSnippet  string   `json:"profile_snippet"`
}

// TaskSearch are the arguments of SearchSimilarTasks.
type TaskSearch struct {
	Query       string   `json:"query"`
	K           int      `json:"k"`
	MinDistance *float64 `json:"min_distance,omitempty"`
	MaxDistance *float64 `json:"max_distance,omitempty"`
}

// UserSearch are the arguments of SearchSimilarUsers.
type UserSearch struct {
	Query               string   `json:"query"`
	K                   int      `json:"k"`
	MinSimilarityScore  *float64 `json:"min_similarity_score,omitempty"`
	RoleFilter          string   `json:"role_filter,omitempty"`
	MinExperienceYears  *int     `json:"min_experience_years,omitempty"`
	TradeCategoryFilter string   `json:"trade_category_filter,omitempty"`
}

// WorkerSearch are the arguments of FindBestWorkersForTask.
type WorkerSearch struct {
	Title                    string   `json:"title"`
	Description              string   `json:"description"`
	SkillRequirements        []string `json:"skill_requirements,omitempty"`
	TradeCategory            string   `json:"trade_category,omitempty"`
	K                        int      `json:"k"`
	MinSimilarityScore       *float64 `json:"min_similarity_score,omitempty"`
	RequiredSkills           []string `json:"required_skills,omitempty"`
	PreferredExperienceYears *int     `json:"preferred_experience_years,omitempty"`
}

// SearchSimilarTasks finds tasks close to free-form text.
func (e *Engine) SearchSimilarTasks(ctx context.Context, s TaskSearch) ([]TaskMatch, error) {
	results, err := e.Search(ctx, Query{
		Collection: vectordb.TaskVectors,
		Text:       s.Query,
		K:          s.K,
		Filters:    Filters{MinDistance: s.MinDistance, MaxDistance: s.MaxDistance},
	})
	if err != nil {
		return nil, err
	}

	out := make([]TaskMatch, 0, len(results))
	for _, r := range results {
		md, ok := r.Metadata.(vectordb.TaskMetadata)
		if !ok {
			continue
		}
		out = append(out, TaskMatch{
			TaskID:             md.TaskID,
			Title:              md.Title,
			TradeCategory:      md.TradeCategory,
			Priority:           md.Priority,
			Status:             md.Status,
			Distance:           r.Distance,
			SimilarityScore:    SimilarityScore(r.Distance),
			MatchedTextSnippet: snippet(r.Text, e.opts.SnippetLength),
		})
	}
	return out, nil
}

// SearchSimilarUsers finds workers close to free-form text. Relevant skills
// are the worker's skills that share a word with the query.
func (e *Engine) SearchSimilarUsers(ctx context.Context, s UserSearch) ([]WorkerMatch, error) {
	results, err := e.Search(ctx, Query{
		Collection: vectordb.UserVectors,
		Text:       s.Query,
		K:          s.K,
		Filters: Filters{
			MinSimilarity:      s.MinSimilarityScore,
			Role:               s.RoleFilter,
			MinExperienceYears: s.MinExperienceYears,
			TradeCategory:      s.TradeCategoryFilter,
		},
	})
	if err != nil {
		return nil, err
	}
	return e.workerMatches(results, sharesWord(s.Query)), nil
}

// FindBestWorkersForTask renders the task-shaped fields with the task
// template and searches UserVectors with the result. Relevant skills are the
// worker's skills matching a required or requested skill.
func (e *Engine) FindBestWorkersForTask(ctx context.Context, s WorkerSearch) ([]WorkerMatch, error) {
	text := TaskQueryText(s.Title, s.Description, s.SkillRequirements, s.TradeCategory)
	if text == "" {
		return nil, apperr.Validation("find best workers", "title", "title, description or skills are required")
	}

	results, err := e.Search(ctx, Query{
		Collection: vectordb.UserVectors,
		Text:       text,
		K:          s.K,
		Filters: Filters{
			MinSimilarity:      s.MinSimilarityScore,
			RequiredSkills:     s.RequiredSkills,
			MinExperienceYears: s.PreferredExperienceYears,
		},
	})
	if err != nil {
		return nil, err
	}

	wanted := append(append([]string(nil), s.RequiredSkills...), s.SkillRequirements...)
	if len(wanted) == 0 {
		return e.workerMatches(results, sharesWord(s.Title+" "+s.Description)), nil
	}
	return e.workerMatches(results, func(skill string) bool {
		for _, w := range wanted {
			if overlaps(skill, w) {
				return true
			}
		}
		return false
	}), nil
}

// TaskQueryText builds the text FindBestWorkersForTask embeds.
func TaskQueryText(title, description string, skills []string, trade string) string {
	return canon.TaskTemplate.Render(canon.Fields{
		"title":              canon.NormalizeQuery(title),
		"description":        canon.NormalizeQuery(description),
		"skill_requirements": skills,
		"trade_category":     strings.TrimSpace(trade),
	})
}

func (e *Engine) workerMatches(results []vectordb.SearchResult, relevant func(string) bool) []WorkerMatch {
	out := make([]WorkerMatch, 0, len(results))
	for _, r := range results {
		md, ok := r.Metadata.(vectordb.UserMetadata)
		if !ok {
			continue
		}
		rel := []string{}
		for _, skill := range md.PrimarySkills {
			if relevant(skill) {
				rel = append(rel, skill)
			}
		}
		out = append(out, WorkerMatch{
			UserID:          md.UserID,
			Name:            md.Name,
			Role:            md.Role,
			SimilarityScore: SimilarityScore(r.Distance),
			Distance:        r.Distance,
			ExperienceYears: md.ExperienceYears,
			PrimarySkills:   nonNil(md.PrimarySkills),
			TradeCategories: nonNil(md.TradeCategories),
			RelevantSkills:  rel,
			ProfileSnippet:  snippet(r.Text, e.opts.SnippetLength),
		})
	}
	return out
}

// overlaps reports whether either string contains the other, ignoring case
// and treating underscores as spaces.
func overlaps(a, b string) bool {
	a, b = normSkill(a), normSkill(b)
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func normSkill(s string) string {
	return strings.TrimSpace(strings.ToLower(strings.ReplaceAll(s, "_", " ")))
}

// tokens splits s into lowercase words of at least three runes.
func tokens(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= 3 {
			out = append(out, f)
		}
	}
	return out
}

// sharesWord matches skills that have a word in common with text.
func sharesWord(text string) func(string) bool {
	set := make(map[string]bool)
	for _, w := range tokens(text) {
		set[w] = true
	}
	return func(skill string) bool {
		for _, w := range tokens(skill) {
			if set[w] {
				return true
			}
		}
		return false
	}
}

// snippet cuts s to at most n runes, ending in "..." when it was cut.
func snippet(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n])) + "..."
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
