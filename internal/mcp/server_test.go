package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/courserag/internal/course"
	"github.com/ziadkadry99/courserag/internal/llm"
	"github.com/ziadkadry99/courserag/internal/rag"
	"github.com/ziadkadry99/courserag/internal/tools"
	"github.com/ziadkadry99/courserag/internal/vectordb"
)

// mockSearch implements tools.Tool for testing.
type mockSearch struct {
	lastArgs string
	result   tools.Result
	err      error
}

func (m *mockSearch) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{Name: tools.SearchToolName}
}

func (m *mockSearch) Execute(_ context.Context, args string) (tools.Result, error) {
	m.lastArgs = args
	return m.result, m.err
}

// mockBackend implements Backend for testing.
type mockBackend struct {
	courses   []vectordb.CourseInfo
	answer    *rag.Answer
	err       error
	lastQuery string
	lastSess  string
}

func (m *mockBackend) Courses(_ context.Context) ([]vectordb.CourseInfo, error) {
	return m.courses, m.err
}

func (m *mockBackend) Query(_ context.Context, query, sessionID string) (*rag.Answer, error) {
	m.lastQuery = query
	m.lastSess = sessionID
	return m.answer, m.err
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("expected content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		tool     mcp.Tool
		wantName string
		required []string
	}{
		{"search", searchCourseContentTool, "search_course_content", []string{"query"}},
		{"list", listCoursesTool, "list_courses", nil},
		{"ask", askCourseAssistantTool, "ask_course_assistant", []string{"question"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description is empty")
			}
			if strings.Join(tt.tool.InputSchema.Required, ",") != strings.Join(tt.required, ",") {
				t.Errorf("required = %v, want %v", tt.tool.InputSchema.Required, tt.required)
			}
		})
	}

	for _, prop := range []string{"query", "course_name", "lesson_number"} {
		if _, ok := searchCourseContentTool.InputSchema.Properties[prop]; !ok {
			t.Errorf("search tool missing property %q", prop)
		}
	}
}

func TestNewServer(t *testing.T) {
	s := NewServer(&mockSearch{}, &mockBackend{})
	if s == nil {
		t.Fatal("NewServer returned nil")
	}
	if s.mcp == nil {
		t.Fatal("MCP server is nil")
	}

	if got := len(s.mcp.ListTools()); got != 3 {
		t.Errorf("registered tools = %d, want 3", got)
	}

	searchOnly := NewServer(&mockSearch{}, nil)
	if got := len(searchOnly.mcp.ListTools()); got != 1 {
		t.Errorf("registered tools without backend = %d, want 1", got)
	}
}

func TestHandleSearchCourseContent(t *testing.T) {
	search := &mockSearch{result: tools.Result{
		Output: "[Introduction to Python - Lesson 1]\nVariables hold values.",
		Sources: []course.Source{
			{Text: "Introduction to Python - Lesson 1", URL: "https://example.com/py/1"},
		},
	}}
	s := NewServer(search, nil)

	result, err := s.handleSearchCourseContent(context.Background(), callRequest(map[string]any{
		"query":         "variables",
		"course_name":   "Python",
		"lesson_number": float64(1),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}

	text := resultText(t, result)
	if !strings.Contains(text, "Variables hold values.") {
		t.Errorf("expected search output in result, got %q", text)
	}
	if !strings.Contains(text, "- Introduction to Python - Lesson 1 (https://example.com/py/1)") {
		t.Errorf("expected source line in result, got %q", text)
	}

	args, err := tools.ParseSearchArgs(search.lastArgs)
	if err != nil {
		t.Fatalf("forwarded args did not parse: %v", err)
	}
	if args.Query != "variables" || args.CourseName != "Python" {
		t.Errorf("unexpected forwarded args: %+v", args)
	}
	if args.LessonNumber == nil || *args.LessonNumber != 1 {
		t.Errorf("lesson_number = %v, want 1", args.LessonNumber)
	}
}

func TestHandleSearchCourseContentInvalidArgs(t *testing.T) {
	search := &mockSearch{result: tools.Result{Output: "Invalid arguments: query is required"}}
	s := NewServer(search, nil)

	result, err := s.handleSearchCourseContent(context.Background(), callRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error for invalid arguments")
	}
}

func TestHandleSearchCourseContentFailure(t *testing.T) {
	search := &mockSearch{err: errors.New("store unavailable")}
	s := NewServer(search, nil)

	result, err := s.handleSearchCourseContent(context.Background(), callRequest(map[string]any{"query": "x"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error")
	}
	if text := resultText(t, result); !strings.Contains(text, "store unavailable") {
		t.Errorf("expected cause in error text, got %q", text)
	}
}

func TestHandleListCourses(t *testing.T) {
	backend := &mockBackend{courses: []vectordb.CourseInfo{{
		Title:      "Introduction to Python",
		Instructor: "Ada",
		Link:       "https://example.com/py",
		Lessons: []course.Lesson{
			{Number: 0, Title: "Setup", Link: "https://example.com/py/0"},
			{Number: 1, Title: "Variables"},
		},
	}}}
	s := NewServer(&mockSearch{}, backend)

	result, err := s.handleListCourses(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}

	text := resultText(t, result)
	for _, want := range []string{
		"1 course(s)",
		"## Introduction to Python",
		"Instructor: Ada",
		"Link: https://example.com/py",
		"- Lesson 0: Setup (https://example.com/py/0)",
		"- Lesson 1: Variables\n",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in result, got %q", want, text)
		}
	}
}

func TestHandleListCoursesEmpty(t *testing.T) {
	s := NewServer(&mockSearch{}, &mockBackend{})

	result, err := s.handleListCourses(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text := resultText(t, result); !strings.Contains(text, "No courses indexed") {
		t.Errorf("unexpected text: %q", text)
	}
}

func TestHandleAskCourseAssistant(t *testing.T) {
	backend := &mockBackend{answer: &rag.Answer{
		Answer:    "Lesson 1 covers variables.",
		Sources:   []course.Source{{Text: "Introduction to Python - Lesson 1"}},
		SessionID: "session_1",
	}}
	s := NewServer(&mockSearch{}, backend)

	result, err := s.handleAskCourseAssistant(context.Background(), callRequest(map[string]any{
		"question":   "What is in lesson 1?",
		"session_id": "session_1",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}

	if backend.lastQuery != "What is in lesson 1?" || backend.lastSess != "session_1" {
		t.Errorf("backend got query=%q session=%q", backend.lastQuery, backend.lastSess)
	}
	text := resultText(t, result)
	if !strings.HasPrefix(text, "Lesson 1 covers variables.") {
		t.Errorf("unexpected answer text: %q", text)
	}
	if !strings.Contains(text, "- Introduction to Python - Lesson 1") || !strings.HasSuffix(text, "Session: session_1") {
		t.Errorf("expected sources and session in result, got %q", text)
	}
}

func TestHandleAskCourseAssistantMissingQuestion(t *testing.T) {
	s := NewServer(&mockSearch{}, &mockBackend{})

	for _, args := range []map[string]any{{}, {"question": "   "}} {
		result, err := s.handleAskCourseAssistant(context.Background(), callRequest(args))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Errorf("expected tool error for args %v", args)
		}
	}
}
