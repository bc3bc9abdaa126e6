package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/courserag/internal/tools"
)

// searchCourseContentTool defines the search_course_content MCP tool. It
// takes the same arguments the assistant's model uses.
var searchCourseContentTool = mcp.NewTool(tools.SearchToolName,
	mcp.WithDescription("Search course materials. Course names may be partial (e.g. 'Python' for 'Introduction to Python'). Returns matching lesson excerpts with their sources."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("What to search for in the course content"),
	),
	mcp.WithString("course_name",
		mcp.Description("Course title or part of it"),
	),
	mcp.WithNumber("lesson_number",
		mcp.Description("Specific lesson number to search within"),
		mcp.Min(0),
	),
)

// listCoursesTool defines the list_courses MCP tool.
var listCoursesTool = mcp.NewTool("list_courses",
	mcp.WithDescription("List every indexed course with its instructor, link and lessons."),
)

// askCourseAssistantTool defines the ask_course_assistant MCP tool.
var askCourseAssistantTool = mcp.NewTool("ask_course_assistant",
	mcp.WithDescription("Ask the course assistant a question. It searches the course materials when needed and answers with sources."),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("The question to answer"),
	),
	mcp.WithString("session_id",
		mcp.Description("Session ID from a previous answer, to continue that conversation"),
	),
)
