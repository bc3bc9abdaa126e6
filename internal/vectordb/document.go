package vectordb

import (
	"encoding/json"
	"strconv"

	"github.com/ziadkadry99/courserag/internal/course"
)

// Metadata keys used in the two collections.
const (
	metaTitle        = "title"
	metaInstructor   = "instructor"
	metaLink         = "link"
	metaLessonCount  = "lesson_count"
	metaLessons      = "lessons"
	metaContentHash  = "content_hash"
	metaCourseTitle  = "course_title"
	metaLessonNumber = "lesson_number"
	metaChunkIndex   = "chunk_index"
)

// CourseInfo is the catalog record of one course.
type CourseInfo struct {
	Title       string          `json:"title"`
	Instructor  string          `json:"instructor,omitempty"`
	Link        string          `json:"course_link,omitempty"`
	Lessons     []course.Lesson `json:"lessons"`
	ContentHash string          `json:"-"`
}

// SearchQuery describes a content search. CourseName is resolved fuzzily;
// LessonNumber filters on the exact lesson.
type SearchQuery struct {
	Query        string
	CourseName   string
	LessonNumber *int
	Limit        int
}

// SearchResult pairs a chunk with its cosine distance to the query.
type SearchResult struct {
	Chunk    course.Chunk
	Distance float32
}

// SearchResults is the outcome of a search. Error is set instead of Results
// when the search could not be scoped (e.g. an unknown course name). An empty
// result set with no Error means nothing matched.
type SearchResults struct {
	Results []SearchResult
	Error   string
}

// Empty reports whether there are no results.
func (r SearchResults) Empty() bool {
	return len(r.Results) == 0
}

// catalogToMap converts a course to flat chromem metadata.
func catalogToMap(c course.Course, contentHash string) map[string]string {
	lessons := c.Lessons
	if lessons == nil {
		lessons = []course.Lesson{}
	}
	lessonsJSON, _ := json.Marshal(lessons)
	return map[string]string{
		metaTitle:       c.Title,
		metaInstructor:  c.Instructor,
		metaLink:        c.Link,
		metaLessonCount: strconv.Itoa(len(c.Lessons)),
		metaLessons:     string(lessonsJSON),
		metaContentHash: contentHash,
	}
}

// mapToCatalog converts catalog metadata back to a CourseInfo.
func mapToCatalog(id string, m map[string]string) CourseInfo {
	info := CourseInfo{
		Title:       m[metaTitle],
		Instructor:  m[metaInstructor],
		Link:        m[metaLink],
		ContentHash: m[metaContentHash],
	}
	if info.Title == "" {
		info.Title = id
	}
	if raw := m[metaLessons]; raw != "" {
		_ = json.Unmarshal([]byte(raw), &info.Lessons)
	}
	if info.Lessons == nil {
		info.Lessons = []course.Lesson{}
	}
	return info
}

// chunkToMap converts a chunk to flat chromem metadata. Unscoped chunks carry
// no lesson_number key, so lesson filters never match them.
func chunkToMap(c course.Chunk) map[string]string {
	m := map[string]string{
		metaCourseTitle: c.CourseTitle,
		metaChunkIndex:  strconv.Itoa(c.ChunkIndex),
	}
	if c.LessonNumber != nil {
		m[metaLessonNumber] = strconv.Itoa(*c.LessonNumber)
	}
	return m
}

// mapToChunk converts content metadata back to a chunk.
func mapToChunk(content string, m map[string]string) course.Chunk {
	idx, _ := strconv.Atoi(m[metaChunkIndex])
	ch := course.Chunk{
		Content:     content,
		CourseTitle: m[metaCourseTitle],
		ChunkIndex:  idx,
	}
	if raw, ok := m[metaLessonNumber]; ok {
		if n, err := strconv.Atoi(raw); err == nil {
			ch.LessonNumber = course.IntPtr(n)
		}
	}
	return ch
}

// buildWhereClause returns the metadata filter for one of the four search
// shapes: none, course only, lesson only, or both.
func buildWhereClause(courseTitle string, lessonNumber *int) map[string]string {
	where := make(map[string]string)
	if courseTitle != "" {
		where[metaCourseTitle] = courseTitle
	}
	if lessonNumber != nil {
		where[metaLessonNumber] = strconv.Itoa(*lessonNumber)
	}
	if len(where) == 0 {
		return nil
	}
	return where
}
