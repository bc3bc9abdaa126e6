package vectordb

import (
	"fmt"
	"strings"

	"github.com/ziadkadry99/courserag/internal/course"
)

// Label renders the "{course} - Lesson {n}" label of a chunk. The lesson part
// is omitted for chunks not scoped to a lesson.
func Label(ch course.Chunk) string {
	if ch.LessonNumber == nil {
		return ch.CourseTitle
	}
	return fmt.Sprintf("%s - Lesson %d", ch.CourseTitle, *ch.LessonNumber)
}

// FormatResults renders search results as the text handed to the model: one
// "[label]" header line per chunk followed by its content, separated by blank
// lines.
func FormatResults(results []SearchResult) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = "[" + Label(r.Chunk) + "]\n" + r.Chunk.Content
	}
	return strings.Join(parts, "\n\n")
}

// EmptyMessage describes an empty result set together with the filters that
// were applied.
func EmptyMessage(courseName string, lesson *int) string {
	var sb strings.Builder
	sb.WriteString("No relevant content found")
	if courseName != "" {
		fmt.Fprintf(&sb, " in course '%s'", courseName)
	}
	if lesson != nil {
		fmt.Fprintf(&sb, " in lesson %d", *lesson)
	}
	sb.WriteString(".")
	return sb.String()
}
