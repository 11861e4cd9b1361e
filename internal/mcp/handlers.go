package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/crewmatch/internal/search"
	"github.com/ziadkadry99/crewmatch/internal/vectordb"
)

const defaultK = 10

func (s *Server) handleSearchSimilarTasks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	matches, err := s.engine.SearchSimilarTasks(ctx, search.TaskSearch{
		Query:       query,
		K:           request.GetInt("k", defaultK),
		MinDistance: optFloat(request, "min_distance"),
		MaxDistance: optFloat(request, "max_distance"),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(matches) == 0 {
		return mcp.NewToolResultText("No matching tasks. The task collection may be empty; run `crewmatch rebuild-tasks`."), nil
	}
	return mcp.NewToolResultText(formatTasks(matches)), nil
}

func (s *Server) handleSearchSimilarUsers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	matches, err := s.engine.SearchSimilarUsers(ctx, search.UserSearch{
		Query:               query,
		K:                   request.GetInt("k", defaultK),
		MinSimilarityScore:  optFloat(request, "min_similarity_score"),
		RoleFilter:          request.GetString("role_filter", ""),
		MinExperienceYears:  optInt(request, "min_experience_years"),
		TradeCategoryFilter: request.GetString("trade_category_filter", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(matches) == 0 {
		return mcp.NewToolResultText("No matching workers."), nil
	}
	return mcp.NewToolResultText(formatWorkers(matches)), nil
}

func (s *Server) handleFindBestWorkers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: title"), nil
	}

	matches, err := s.engine.FindBestWorkersForTask(ctx, search.WorkerSearch{
		Title:                    title,
		Description:              request.GetString("description", ""),
		SkillRequirements:        request.GetStringSlice("skill_requirements", nil),
		TradeCategory:            request.GetString("trade_category", ""),
		K:                        request.GetInt("k", defaultK),
		MinSimilarityScore:       optFloat(request, "min_similarity_score"),
		RequiredSkills:           request.GetStringSlice("required_skills", nil),
		PreferredExperienceYears: optInt(request, "preferred_experience_years"),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(matches) == 0 {
		return mcp.NewToolResultText("No worker matches the task and filters."), nil
	}
	return mcp.NewToolResultText(formatWorkers(matches)), nil
}

func (s *Server) handleGetVectorEntry(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}
	entity, _, err := vectordb.ParseEntryID(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := vectordb.CollectionFor(entity)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entry, err := s.store.Get(ctx, c, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("lookup failed: %v", err)), nil
	}
	return mcp.NewToolResultText(vectordb.FormatEntry(c, entry)), nil
}

// optFloat returns nil when the argument was not supplied.
func optFloat(r mcp.CallToolRequest, key string) *float64 {
	if _, ok := r.GetArguments()[key]; !ok {
		return nil
	}
	v := r.GetFloat(key, 0)
	return &v
}

func optInt(r mcp.CallToolRequest, key string) *int {
	if _, ok := r.GetArguments()[key]; !ok {
		return nil
	}
	v := r.GetInt(key, 0)
	return &v
}

// formatTasks renders task matches for agent consumption.
func formatTasks(matches []search.TaskMatch) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d task(s):\n", len(matches))
	for i, m := range matches {
		fmt.Fprintf(&sb, "\n--- Result %d ---\n", i+1)
		fmt.Fprintf(&sb, "Task: %d %s\n", m.TaskID, m.Title)
		if m.TradeCategory != "" {
			fmt.Fprintf(&sb, "Trade: %s\n", m.TradeCategory)
		}
		fmt.Fprintf(&sb, "Priority: %s  Status: %s\n", m.Priority, m.Status)
		fmt.Fprintf(&sb, "Similarity: %.1f%% (distance %.4f)\n", m.SimilarityScore, m.Distance)
		sb.WriteString("\n")
		sb.WriteString(m.MatchedTextSnippet)
		sb.WriteString("\n")
	}
	return sb.String()
}

// formatWorkers renders worker matches for agent consumption.
func formatWorkers(matches []search.WorkerMatch) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d worker(s):\n", len(matches))
	for i, m := range matches {
		fmt.Fprintf(&sb, "\n--- Result %d ---\n", i+1)
		fmt.Fprintf(&sb, "Worker: %d %s", m.UserID, m.Name)
		if m.Role != "" {
			fmt.Fprintf(&sb, " (%s)", m.Role)
		}
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "Similarity: %.1f%%\n", m.SimilarityScore)
		fmt.Fprintf(&sb, "Experience: %d years\n", m.ExperienceYears)
		if len(m.PrimarySkills) > 0 {
			fmt.Fprintf(&sb, "Skills: %s\n", strings.Join(m.PrimarySkills, ", "))
		}
		if len(m.RelevantSkills) > 0 {
			fmt.Fprintf(&sb, "Relevant: %s\n", strings.Join(m.RelevantSkills, ", "))
		}
		if len(m.TradeCategories) > 0 {
			fmt.Fprintf(&sb, "Trades: %s\n", strings.Join(m.TradeCategories, ", "))
		}
	}
	return sb.String()
}
