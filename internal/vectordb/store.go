package vectordb

import (
	"context"

	"github.com/ziadkadry99/courserag/internal/course"
)

// Store defines the course index: a catalog of course metadata used for name
// resolution and a content index of chunks used for retrieval.
type Store interface {
	// AddCourseCatalog adds or replaces the catalog entry for a course.
	AddCourseCatalog(ctx context.Context, c course.Course, contentHash string) error

	// AddCourseContent adds or replaces chunks. Empty input is a no-op.
	AddCourseContent(ctx context.Context, chunks []course.Chunk) error

	// DeleteCourse removes a course's catalog entry and all of its chunks.
	DeleteCourse(ctx context.Context, title string) error

	// ResolveCourseName maps a possibly partial name to a stored course title.
	ResolveCourseName(ctx context.Context, name string) (string, bool, error)

	// Search runs a filtered semantic search over the content index.
	Search(ctx context.Context, q SearchQuery) (SearchResults, error)

	// CourseInfo returns the catalog entry for an exact title.
	CourseInfo(ctx context.Context, title string) (CourseInfo, bool, error)

	// CourseTitles lists every stored course title, sorted.
	CourseTitles(ctx context.Context) ([]string, error)

	// CourseCount returns the number of stored courses.
	CourseCount() int

	// Clear removes all data from both indexes.
	Clear(ctx context.Context) error
}
