package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/crewmatch/internal/search"
	"github.com/ziadkadry99/crewmatch/internal/vectordb"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes the matching tools to agents.
type Server struct {
	engine *search.Engine
	store  vectordb.Store
	mcp    *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(engine *search.Engine, store vectordb.Store) *Server {
	s := &Server{
		engine: engine,
		store:  store,
	}

	s.mcp = server.NewMCPServer(
		"crewmatch",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(searchSimilarTasksTool, s.handleSearchSimilarTasks)
	s.mcp.AddTool(searchSimilarUsersTool, s.handleSearchSimilarUsers)
	s.mcp.AddTool(findBestWorkersTool, s.handleFindBestWorkers)
	s.mcp.AddTool(getVectorEntryTool, s.handleGetVectorEntry)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
