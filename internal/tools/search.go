package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"

	"github.com/ziadkadry99/courserag/internal/course"
	"github.com/ziadkadry99/courserag/internal/llm"
	"github.com/ziadkadry99/courserag/internal/logging"
	"github.com/ziadkadry99/courserag/internal/metrics"
	"github.com/ziadkadry99/courserag/internal/vectordb"
)

// SearchToolName is the name the model uses to call CourseSearchTool.
const SearchToolName = "search_course_content"

// ContentSearcher is the part of the vector store the search tool needs.
type ContentSearcher interface {
	Search(ctx context.Context, q vectordb.SearchQuery) (vectordb.SearchResults, error)
	CourseLink(ctx context.Context, title string) string
	LessonLink(ctx context.Context, title string, lesson int) string
}

// ValidationError reports unusable tool arguments.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "Invalid arguments: " + e.Msg
}

func invalidf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// SearchArgs are the validated arguments of a search call.
type SearchArgs struct {
	Query        string
	CourseName   string
	LessonNumber *int
}

// ParseSearchArgs validates the model's raw JSON arguments. Lesson numbers
// may arrive as integral JSON numbers or numeric strings.
func ParseSearchArgs(raw string) (SearchArgs, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil || m == nil {
		return SearchArgs{}, invalidf("arguments must be a JSON object")
	}

	var args SearchArgs
	q, ok := m["query"].(string)
	if !ok || strings.TrimSpace(q) == "" {
		return SearchArgs{}, invalidf("query is required and must be a non-empty string")
	}
	args.Query = strings.TrimSpace(q)

	switch v := m["course_name"].(type) {
	case nil:
	case string:
		args.CourseName = strings.TrimSpace(v)
	default:
		return SearchArgs{}, invalidf("course_name must be a string")
	}

	if v, present := m["lesson_number"]; present && v != nil {
		n, err := parseLessonNumber(v)
		if err != nil {
			return SearchArgs{}, err
		}
		args.LessonNumber = &n
	}
	return args, nil
}

func parseLessonNumber(v any) (int, error) {
	var n int
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
			return 0, invalidf("lesson_number must be an integer, got %s", x)
		}
		n = int(f)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, invalidf("lesson_number must be an integer, got %q", x)
		}
		n = i
	default:
		return 0, invalidf("lesson_number must be an integer")
	}
	if n < 0 {
		return 0, invalidf("lesson_number must not be negative, got %d", n)
	}
	return n, nil
}

// CourseSearchTool searches course content with optional course and lesson
// filters.
type CourseSearchTool struct {
	store  ContentSearcher
	limit  int
	logger *zap.Logger
}

// NewCourseSearchTool creates the search tool. limit <= 0 uses the store's
// default result count.
func NewCourseSearchTool(store ContentSearcher, limit int, logger *zap.Logger) *CourseSearchTool {
	return &CourseSearchTool{
		store:  store,
		limit:  limit,
		logger: logging.OrNop(logger).Named("tools"),
	}
}

func (t *CourseSearchTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        SearchToolName,
		Description: "Search course materials with smart course name matching and lesson filtering",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"query": {
					Type:        jsonschema.String,
					Description: "What to search for in the course content",
				},
				"course_name": {
					Type:        jsonschema.String,
					Description: "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
				},
				"lesson_number": {
					Type:        jsonschema.Integer,
					Description: "Specific lesson number to search within (e.g. 1, 2, 3)",
				},
			},
			Required: []string{"query"},
		},
	}
}

func (t *CourseSearchTool) Execute(ctx context.Context, raw string) (Result, error) {
	args, err := ParseSearchArgs(raw)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			t.logger.Debug("rejected tool arguments", zap.String("args", raw), zap.Error(err))
			metrics.ToolCallsTotal.WithLabelValues(SearchToolName, "invalid").Inc()
			return Result{Output: ve.Error()}, nil
		}
		return Result{}, err
	}
	return t.Search(ctx, args)
}

// Search runs an already validated search.
func (t *CourseSearchTool) Search(ctx context.Context, args SearchArgs) (Result, error) {
	res, err := t.store.Search(ctx, vectordb.SearchQuery{
		Query:        args.Query,
		CourseName:   args.CourseName,
		LessonNumber: args.LessonNumber,
		Limit:        t.limit,
	})
	if err != nil {
		metrics.ToolCallsTotal.WithLabelValues(SearchToolName, "error").Inc()
		return Result{}, fmt.Errorf("search course content: %w", err)
	}

	if res.Error != "" {
		metrics.ToolCallsTotal.WithLabelValues(SearchToolName, "unresolved").Inc()
		return Result{Output: res.Error}, nil
	}
	if res.Empty() {
		metrics.ToolCallsTotal.WithLabelValues(SearchToolName, "empty").Inc()
		return Result{Output: vectordb.EmptyMessage(args.CourseName, args.LessonNumber)}, nil
	}

	sources := make([]course.Source, len(res.Results))
	for i, r := range res.Results {
		sources[i] = course.Source{
			Text: vectordb.Label(r.Chunk),
			URL:  t.sourceURL(ctx, r.Chunk),
		}
	}
	metrics.ToolCallsTotal.WithLabelValues(SearchToolName, "ok").Inc()
	return Result{Output: vectordb.FormatResults(res.Results), Sources: sources}, nil
}

func (t *CourseSearchTool) sourceURL(ctx context.Context, ch course.Chunk) string {
	if ch.LessonNumber != nil {
		if link := t.store.LessonLink(ctx, ch.CourseTitle, *ch.LessonNumber); link != "" {
			return link
		}
	}
	return t.store.CourseLink(ctx, ch.CourseTitle)
}

// ArgsJSON encodes arguments received as a map, as MCP clients send them,
// into the raw form Execute accepts.
func ArgsJSON(m map[string]any) string {
	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(b)
}
