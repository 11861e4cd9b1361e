package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/crewmatch/internal/canon"
	"github.com/ziadkadry99/crewmatch/internal/embeddings"
	"github.com/ziadkadry99/crewmatch/internal/search"
	"github.com/ziadkadry99/crewmatch/internal/syncer"
	"github.com/ziadkadry99/crewmatch/internal/vectordb"
)

func setupServer(t *testing.T) *Server {
	t.Helper()
	vs, err := vectordb.NewChromemStore("")
	if err != nil {
		t.Fatal(err)
	}
	emb := embeddings.NewHashEmbedder(128)
	sync := syncer.NewInline(emb, vs)
	ctx := context.Background()

	events := []syncer.WriteEvent{
		{Entity: canon.Task, SourceID: 1, Action: syncer.ActionCreate, Row: canon.Fields{"title": "Install security cameras", "trade_category": "electrical", "skill_requirements": []string{"electrical_installation"}, "priority": "high", "status": "open"}},
		{Entity: canon.Task, SourceID: 2, Action: syncer.ActionCreate, Row: canon.Fields{"title": "Fix leaking pipe", "trade_category": "plumbing", "priority": "medium", "status": "open"}},
		{Entity: canon.User, SourceID: 1, Action: syncer.ActionCreate, Row: canon.Fields{"name": "Ana Petrova", "role": "electrician", "primary_skills": []string{"electrical_installation"}, "experience_years": 6}},
		{Entity: canon.User, SourceID: 2, Action: syncer.ActionCreate, Row: canon.Fields{"name": "Bruno Silva", "role": "plumber", "primary_skills": []string{"plumbing_repair"}, "experience_years": 9}},
	}
	for _, ev := range events {
		if err := sync.Apply(ctx, ev); err != nil {
			t.Fatalf("Apply(%s): %v", ev.EntryID(), err)
		}
	}
	return NewServer(search.NewEngine(emb, vs, search.Options{}), vs)
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", result.Content[0])
	}
	return tc.Text
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		tool     mcp.Tool
		wantName string
	}{
		{searchSimilarTasksTool, "search_similar_tasks"},
		{searchSimilarUsersTool, "search_similar_users"},
		{findBestWorkersTool, "find_best_workers_for_task"},
		{getVectorEntryTool, "get_vector_entry"},
	}

	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}
}

func TestHandleSearchSimilarTasks(t *testing.T) {
	srv := setupServer(t)
	ctx := context.Background()

	t.Run("basic search", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"query": "security cameras", "k": 1}

		result, err := srv.handleSearchSimilarTasks(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		text := resultText(t, result)
		if !strings.Contains(text, "Found 1 task(s)") || !strings.Contains(text, "Install security cameras") {
			t.Errorf("text = %q", text)
		}
	})

	t.Run("missing query", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{}

		result, err := srv.handleSearchSimilarTasks(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for missing query")
		}
	})

	t.Run("invalid k", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"query": "pipe", "k": 0}

		result, _ := srv.handleSearchSimilarTasks(ctx, req)
		if !result.IsError {
			t.Error("expected error for k=0")
		}
	})
}

func TestHandleSearchSimilarUsersWithFilters(t *testing.T) {
	srv := setupServer(t)
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{
		"query":                "experienced tradesperson",
		"role_filter":          "PLUMBER",
		"min_experience_years": float64(5),
	}

	result, err := srv.handleSearchSimilarUsers(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	text := resultText(t, result)
	if !strings.Contains(text, "Bruno Silva") || strings.Contains(text, "Ana Petrova") {
		t.Errorf("text = %q", text)
	}
}

func TestHandleFindBestWorkers(t *testing.T) {
	srv := setupServer(t)
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{
		"title":           "Install security cameras",
		"required_skills": []any{"electrical"},
	}

	result, err := srv.handleFindBestWorkers(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Fatalf("tool error: %v", result.Content)
	}
	text := resultText(t, result)
	if !strings.Contains(text, "Ana Petrova") || strings.Contains(text, "Bruno Silva") {
		t.Errorf("text = %q", text)
	}
	if !strings.Contains(text, "Relevant: electrical_installation") {
		t.Errorf("expected relevant skills in %q", text)
	}
}

func TestHandleGetVectorEntry(t *testing.T) {
	srv := setupServer(t)
	ctx := context.Background()

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"id": "user_2"}
	result, _ := srv.handleGetVectorEntry(ctx, req)
	if result.IsError {
		t.Fatalf("tool error: %v", result.Content)
	}
	if text := resultText(t, result); !strings.Contains(text, "plumbing_repair") {
		t.Errorf("text = %q", text)
	}

	req.Params.Arguments = map[string]any{"id": "crane_1"}
	if result, _ := srv.handleGetVectorEntry(ctx, req); !result.IsError {
		t.Error("expected error for unknown entity prefix")
	}
}
