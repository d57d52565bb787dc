package store

import (
	"context"

	"github.com/coursechat-io/coursechat/internal/model"
)

// CourseChunk is one span of course content prepared for insertion.
type CourseChunk struct {
	// CourseTitle is the owning course title.
	CourseTitle string
	// LessonNumber is the lesson the chunk was cut from.
	LessonNumber int
	// ChunkIndex is the position of the chunk within its course.
	ChunkIndex int
	// Content is the chunk text.
	Content string
	// Embedding is the content embedding, set by the indexer before
	// insertion.
	Embedding []float32
}

// SearchResult is one similarity search hit from the content collection.
type SearchResult struct {
	// CourseTitle is the owning course title.
	CourseTitle string
	// LessonNumber is the lesson the chunk was cut from.
	LessonNumber int
	// ChunkIndex is the position of the chunk within its course.
	ChunkIndex int
	// Content is the chunk text.
	Content string
	// Score is the similarity distance reported by Milvus.
	Score float32
}

// VectorStore defines the storage operations over the two collections:
// a course catalog (one entry per course, vector = title embedding) and
// the course content (one entry per chunk, vector = content embedding).
type VectorStore interface {
	// EnsureCollections creates both collections if they do not exist.
	EnsureCollections(ctx context.Context) error

	// AddCourseMetadata inserts one catalog entry for the course. The
	// title is embedded internally.
	AddCourseMetadata(ctx context.Context, course *model.Course) error

	// AddCourseContent inserts content chunks. Embeddings must be set.
	AddCourseContent(ctx context.Context, chunks []*CourseChunk) error

	// Search runs a similarity search over the content collection. A
	// non-empty courseName is resolved semantically against the catalog
	// first; a non-nil lessonNumber narrows to one lesson. An empty
	// store yields empty results, not an error.
	Search(ctx context.Context, query string, courseName string, lessonNumber *int, limit int) ([]*SearchResult, error)

	// ResolveCourseName matches a partial or fuzzy course name to an
	// existing catalog title by vector similarity.
	ResolveCourseName(ctx context.Context, name string) (string, error)

	// ExistingCourseTitles lists all catalog titles.
	ExistingCourseTitles(ctx context.Context) ([]string, error)

	// CourseCount returns the number of courses in the catalog.
	CourseCount(ctx context.Context) (int, error)

	// CoursesMetadata returns the full catalog for analytics.
	CoursesMetadata(ctx context.Context) ([]*model.Course, error)

	// CourseLink returns the course URL for an exact title.
	CourseLink(ctx context.Context, title string) (string, error)

	// LessonLink returns the lesson URL for an exact title and lesson.
	LessonLink(ctx context.Context, title string, lesson int) (string, error)

	// DeleteCourse removes a course and all of its chunks.
	DeleteCourse(ctx context.Context, title string) error

	// ClearAll drops and recreates both collections.
	ClearAll(ctx context.Context) error

	// Stats returns entity counts for both collections.
	Stats(ctx context.Context) (map[string]any, error)

	// Close releases the underlying connection.
	Close() error
}
