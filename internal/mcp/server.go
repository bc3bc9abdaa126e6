package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/courserag/internal/rag"
	"github.com/ziadkadry99/courserag/internal/tools"
	"github.com/ziadkadry99/courserag/internal/vectordb"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Backend is the course assistant behind the MCP tools. *rag.System
// implements it.
type Backend interface {
	Courses(ctx context.Context) ([]vectordb.CourseInfo, error)
	Query(ctx context.Context, query, sessionID string) (*rag.Answer, error)
}

// Server wraps an MCP server that exposes course search tools.
type Server struct {
	search  tools.Tool
	backend Backend
	mcp     *server.MCPServer
}

// NewServer creates a new MCP server. search is normally a
// *tools.CourseSearchTool; backend may be nil, in which case only the
// search tool is offered.
func NewServer(search tools.Tool, backend Backend) *Server {
	s := &Server{
		search:  search,
		backend: backend,
	}

	s.mcp = server.NewMCPServer(
		"courserag",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(searchCourseContentTool, s.handleSearchCourseContent)
	if s.backend != nil {
		s.mcp.AddTool(listCoursesTool, s.handleListCourses)
		s.mcp.AddTool(askCourseAssistantTool, s.handleAskCourseAssistant)
	}
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
