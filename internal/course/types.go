// Package course holds the course data model and turns raw course documents
// into retrievable chunks.
package course

import "fmt"

// Course is a single course parsed from one document. The title is its identity.
type Course struct {
	Title      string
	Link       string
	Instructor string
	Lessons    []Lesson
}

// Lesson returns the lesson with the given number.
func (c *Course) Lesson(number int) (Lesson, bool) {
	for _, l := range c.Lessons {
		if l.Number == number {
			return l, true
		}
	}
	return Lesson{}, false
}

// Lesson is a numbered unit within a course.
type Lesson struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Link   string `json:"link,omitempty"`
}

// Section is the body text belonging to one lesson. LessonNumber is nil for
// text that is not scoped to any lesson.
type Section struct {
	LessonNumber *int
	Text         string
}

// Document is the parsed form of a course file.
type Document struct {
	Path        string
	Course      Course
	Sections    []Section
	ContentHash string
}

// Chunk is a context-prefixed slice of lesson text, the unit of retrieval.
type Chunk struct {
	Content      string
	CourseTitle  string
	LessonNumber *int
	ChunkIndex   int
}

// ID returns the identifier the chunk is stored under.
func (c Chunk) ID() string {
	return ChunkID(c.CourseTitle, c.ChunkIndex)
}

// ChunkID builds the composite identifier for a chunk of a course.
func ChunkID(courseTitle string, index int) string {
	return fmt.Sprintf("%s_%d", courseTitle, index)
}

// Source is a citation attached to an answer.
type Source struct {
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int {
	return &n
}
