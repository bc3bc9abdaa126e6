package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/courserag/internal/course"
	"github.com/ziadkadry99/courserag/internal/tools"
	"github.com/ziadkadry99/courserag/internal/vectordb"
)

// handleSearchCourseContent runs the course search tool with the client's arguments.
func (s *Server) handleSearchCourseContent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.search.Execute(ctx, tools.ArgsJSON(request.GetArguments()))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if strings.HasPrefix(res.Output, "Invalid arguments: ") {
		return mcp.NewToolResultError(res.Output), nil
	}

	return mcp.NewToolResultText(res.Output + formatSources(res.Sources)), nil
}

// handleListCourses returns the course catalog.
func (s *Server) handleListCourses(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	courses, err := s.backend.Courses(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing courses failed: %v", err)), nil
	}

	if len(courses) == 0 {
		return mcp.NewToolResultText("No courses indexed yet. Run `courserag ingest` to index course documents."), nil
	}

	return mcp.NewToolResultText(formatCourses(courses)), nil
}

// handleAskCourseAssistant answers a question through the full assistant.
func (s *Server) handleAskCourseAssistant(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil || strings.TrimSpace(question) == "" {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}

	ans, err := s.backend.Query(ctx, question, request.GetString("session_id", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("question failed: %v", err)), nil
	}

	text := ans.Answer + formatSources(ans.Sources) + "\n\nSession: " + ans.SessionID
	return mcp.NewToolResultText(text), nil
}

func formatSources(sources []course.Source) string {
	if len(sources) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n\nSources:\n")
	for _, src := range sources {
		sb.WriteString("- " + src.Text)
		if src.URL != "" {
			sb.WriteString(" (" + src.URL + ")")
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// formatCourses renders the catalog as text for AI agent consumption.
func formatCourses(courses []vectordb.CourseInfo) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d course(s):\n", len(courses)))

	for _, c := range courses {
		sb.WriteString(fmt.Sprintf("\n## %s\n", c.Title))
		if c.Instructor != "" {
			sb.WriteString(fmt.Sprintf("Instructor: %s\n", c.Instructor))
		}
		if c.Link != "" {
			sb.WriteString(fmt.Sprintf("Link: %s\n", c.Link))
		}
		for _, l := range c.Lessons {
			sb.WriteString(fmt.Sprintf("- Lesson %d: %s", l.Number, l.Title))
			if l.Link != "" {
				sb.WriteString(fmt.Sprintf(" (%s)", l.Link))
			}
			sb.WriteString("\n")
		}
	}

	return sb.String()
}
