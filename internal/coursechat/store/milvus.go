package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/coursechat-io/coursechat/internal/model"
	"github.com/coursechat-io/coursechat/pkg/component/milvus"
	"github.com/coursechat-io/coursechat/pkg/llm"
	"github.com/coursechat-io/coursechat/pkg/logger"
	"github.com/coursechat-io/coursechat/pkg/utils/json"
)

// Field length limits for the VARCHAR columns.
const (
	maxTitleLen   = 512
	maxLinkLen    = 1024
	maxPersonLen  = 256
	maxLessonsLen = 65535
	maxContentLen = 65535
)

// Config holds the MilvusStore collection settings.
type Config struct {
	// CatalogCollection is the course metadata collection name.
	CatalogCollection string
	// ContentCollection is the course chunk collection name.
	ContentCollection string
	// EmbeddingDim is the embedding vector dimension.
	EmbeddingDim int
}

// MilvusStore implements VectorStore on top of Milvus. It owns the
// embedding provider so title resolution and query search can embed
// internally; content chunks arrive with embeddings already set.
type MilvusStore struct {
	client *milvus.Client
	embed  llm.EmbeddingProvider
	config *Config
}

var _ VectorStore = (*MilvusStore)(nil)

// NewMilvusStore creates a MilvusStore instance.
func NewMilvusStore(client *milvus.Client, embed llm.EmbeddingProvider, config *Config) *MilvusStore {
	return &MilvusStore{
		client: client,
		embed:  embed,
		config: config,
	}
}

// EnsureCollections creates the catalog and content collections if they
// do not exist yet.
func (s *MilvusStore) EnsureCollections(ctx context.Context) error {
	catalog := &milvus.CollectionSchema{
		Name:        s.config.CatalogCollection,
		Description: "Course metadata for semantic title resolution",
		Dimension:   s.config.EmbeddingDim,
		MetaFields: []milvus.MetaField{
			{Name: "title", DataType: entity.FieldTypeVarChar, MaxLen: maxTitleLen},
			{Name: "course_link", DataType: entity.FieldTypeVarChar, MaxLen: maxLinkLen},
			{Name: "instructor", DataType: entity.FieldTypeVarChar, MaxLen: maxPersonLen},
			{Name: "lessons", DataType: entity.FieldTypeVarChar, MaxLen: maxLessonsLen},
		},
	}
	if err := s.client.CreateCollection(ctx, catalog); err != nil {
		return fmt.Errorf("failed to ensure catalog collection: %w", err)
	}

	content := &milvus.CollectionSchema{
		Name:        s.config.ContentCollection,
		Description: "Course content chunks for similarity search",
		Dimension:   s.config.EmbeddingDim,
		MetaFields: []milvus.MetaField{
			{Name: "course_title", DataType: entity.FieldTypeVarChar, MaxLen: maxTitleLen},
			{Name: "lesson_number", DataType: entity.FieldTypeInt64},
			{Name: "chunk_index", DataType: entity.FieldTypeInt64},
			{Name: "content", DataType: entity.FieldTypeVarChar, MaxLen: maxContentLen},
		},
	}
	if err := s.client.CreateCollection(ctx, content); err != nil {
		return fmt.Errorf("failed to ensure content collection: %w", err)
	}

	return nil
}

// AddCourseMetadata embeds the course title and inserts one catalog row.
func (s *MilvusStore) AddCourseMetadata(ctx context.Context, course *model.Course) error {
	embedding, err := s.embed.EmbedSingle(ctx, course.Title)
	if err != nil {
		return fmt.Errorf("failed to embed course title: %w", err)
	}

	lessons, err := json.Marshal(course.Lessons)
	if err != nil {
		return fmt.Errorf("failed to serialize lessons: %w", err)
	}

	data := &milvus.InsertData{
		Embeddings: [][]float32{embedding},
		Metadata: map[string][]any{
			"title":       {course.Title},
			"course_link": {course.Link},
			"instructor":  {course.Instructor},
			"lessons":     {string(lessons)},
		},
	}
	if _, err := s.client.Insert(ctx, s.config.CatalogCollection, data); err != nil {
		return fmt.Errorf("failed to insert course metadata: %w", err)
	}

	logger.Infow("course added to catalog",
		"title", course.Title,
		"lessons", len(course.Lessons),
	)
	return nil
}

// AddCourseContent inserts content chunks with their embeddings.
func (s *MilvusStore) AddCourseContent(ctx context.Context, chunks []*CourseChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	embeddings := make([][]float32, len(chunks))
	titles := make([]any, len(chunks))
	lessons := make([]any, len(chunks))
	indexes := make([]any, len(chunks))
	contents := make([]any, len(chunks))
	for i, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			return fmt.Errorf("chunk %d of course %q has no embedding", chunk.ChunkIndex, chunk.CourseTitle)
		}
		embeddings[i] = chunk.Embedding
		titles[i] = chunk.CourseTitle
		lessons[i] = int64(chunk.LessonNumber)
		indexes[i] = int64(chunk.ChunkIndex)
		contents[i] = chunk.Content
	}

	data := &milvus.InsertData{
		Embeddings: embeddings,
		Metadata: map[string][]any{
			"course_title":  titles,
			"lesson_number": lessons,
			"chunk_index":   indexes,
			"content":       contents,
		},
	}
	if _, err := s.client.Insert(ctx, s.config.ContentCollection, data); err != nil {
		return fmt.Errorf("failed to insert course content: %w", err)
	}
	return nil
}

// Search embeds the query and runs a similarity search over the content
// collection, optionally narrowed to a resolved course and lesson.
func (s *MilvusStore) Search(ctx context.Context, query string, courseName string, lessonNumber *int, limit int) ([]*SearchResult, error) {
	var filters []string

	if courseName != "" {
		resolved, err := s.ResolveCourseName(ctx, courseName)
		if err != nil {
			return nil, err
		}
		filters = append(filters, fmt.Sprintf("course_title == %q", resolved))
	}
	if lessonNumber != nil {
		filters = append(filters, fmt.Sprintf("lesson_number == %d", *lessonNumber))
	}

	embedding, err := s.embed.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := s.client.Search(ctx, s.config.ContentCollection, embedding, limit,
		strings.Join(filters, " and "),
		[]string{"course_title", "lesson_number", "chunk_index", "content"})
	if err != nil {
		return nil, fmt.Errorf("failed to search course content: %w", err)
	}

	results := make([]*SearchResult, 0, len(hits))
	for _, hit := range hits {
		result := &SearchResult{Score: hit.Score}
		if v, ok := hit.Metadata["course_title"].(string); ok {
			result.CourseTitle = v
		}
		if v, ok := hit.Metadata["lesson_number"].(int64); ok {
			result.LessonNumber = int(v)
		}
		if v, ok := hit.Metadata["chunk_index"].(int64); ok {
			result.ChunkIndex = int(v)
		}
		if v, ok := hit.Metadata["content"].(string); ok {
			result.Content = v
		}
		results = append(results, result)
	}
	return results, nil
}

// ResolveCourseName embeds the given name and takes the single closest
// catalog title.
func (s *MilvusStore) ResolveCourseName(ctx context.Context, name string) (string, error) {
	embedding, err := s.embed.EmbedSingle(ctx, name)
	if err != nil {
		return "", fmt.Errorf("failed to embed course name: %w", err)
	}

	hits, err := s.client.Search(ctx, s.config.CatalogCollection, embedding, 1, "", []string{"title"})
	if err != nil {
		return "", fmt.Errorf("failed to resolve course name: %w", err)
	}
	if len(hits) == 0 {
		return "", fmt.Errorf("No course found matching '%s'", name)
	}

	title, ok := hits[0].Metadata["title"].(string)
	if !ok || title == "" {
		return "", fmt.Errorf("No course found matching '%s'", name)
	}
	return title, nil
}

// ExistingCourseTitles lists every title in the catalog.
func (s *MilvusStore) ExistingCourseTitles(ctx context.Context) ([]string, error) {
	rows, err := s.client.Query(ctx, s.config.CatalogCollection, `title != ""`, []string{"title"})
	if err != nil {
		return nil, fmt.Errorf("failed to list course titles: %w", err)
	}

	titles := make([]string, 0, len(rows))
	for _, row := range rows {
		if title, ok := row.Metadata["title"].(string); ok {
			titles = append(titles, title)
		}
	}
	return titles, nil
}

// CourseCount returns the number of catalog entries.
func (s *MilvusStore) CourseCount(ctx context.Context) (int, error) {
	count, err := s.client.GetCollectionStats(ctx, s.config.CatalogCollection)
	if err != nil {
		return 0, fmt.Errorf("failed to count courses: %w", err)
	}
	return int(count), nil
}

// CoursesMetadata returns every course with its lesson list.
func (s *MilvusStore) CoursesMetadata(ctx context.Context) ([]*model.Course, error) {
	rows, err := s.client.Query(ctx, s.config.CatalogCollection, `title != ""`,
		[]string{"title", "course_link", "instructor", "lessons"})
	if err != nil {
		return nil, fmt.Errorf("failed to load course metadata: %w", err)
	}

	courses := make([]*model.Course, 0, len(rows))
	for _, row := range rows {
		course := &model.Course{}
		if v, ok := row.Metadata["title"].(string); ok {
			course.Title = v
		}
		if v, ok := row.Metadata["course_link"].(string); ok {
			course.Link = v
		}
		if v, ok := row.Metadata["instructor"].(string); ok {
			course.Instructor = v
		}
		if v, ok := row.Metadata["lessons"].(string); ok && v != "" {
			if err := json.Unmarshal([]byte(v), &course.Lessons); err != nil {
				logger.Warnw("failed to decode lesson list, skipping",
					"title", course.Title,
					"error", err.Error(),
				)
			}
		}
		courses = append(courses, course)
	}
	return courses, nil
}

// CourseLink returns the course URL for an exact title.
func (s *MilvusStore) CourseLink(ctx context.Context, title string) (string, error) {
	rows, err := s.client.Query(ctx, s.config.CatalogCollection,
		fmt.Sprintf("title == %q", title), []string{"course_link"})
	if err != nil {
		return "", fmt.Errorf("failed to look up course link: %w", err)
	}
	if len(rows) == 0 {
		return "", nil
	}
	link, _ := rows[0].Metadata["course_link"].(string)
	return link, nil
}

// LessonLink returns the lesson URL for an exact title and lesson number.
func (s *MilvusStore) LessonLink(ctx context.Context, title string, lesson int) (string, error) {
	rows, err := s.client.Query(ctx, s.config.CatalogCollection,
		fmt.Sprintf("title == %q", title), []string{"lessons"})
	if err != nil {
		return "", fmt.Errorf("failed to look up lesson link: %w", err)
	}
	if len(rows) == 0 {
		return "", nil
	}

	raw, _ := rows[0].Metadata["lessons"].(string)
	if raw == "" {
		return "", nil
	}
	var lessons []model.Lesson
	if err := json.Unmarshal([]byte(raw), &lessons); err != nil {
		return "", fmt.Errorf("failed to decode lesson list: %w", err)
	}
	for _, l := range lessons {
		if l.Number == lesson {
			return l.Link, nil
		}
	}
	return "", nil
}

// DeleteCourse removes the catalog entry and all chunks of a course.
func (s *MilvusStore) DeleteCourse(ctx context.Context, title string) error {
	if err := s.client.DeleteByFilter(ctx, s.config.CatalogCollection,
		fmt.Sprintf("title == %q", title)); err != nil {
		return fmt.Errorf("failed to delete course metadata: %w", err)
	}
	if err := s.client.DeleteByFilter(ctx, s.config.ContentCollection,
		fmt.Sprintf("course_title == %q", title)); err != nil {
		return fmt.Errorf("failed to delete course content: %w", err)
	}
	logger.Infow("course deleted", "title", title)
	return nil
}

// ClearAll drops both collections and recreates them empty.
func (s *MilvusStore) ClearAll(ctx context.Context) error {
	for _, name := range []string{s.config.CatalogCollection, s.config.ContentCollection} {
		exists, err := s.client.HasCollection(ctx, name)
		if err != nil {
			return err
		}
		if !exists {
			continue
		}
		if err := s.client.DropCollection(ctx, name); err != nil {
			return fmt.Errorf("failed to drop collection %s: %w", name, err)
		}
	}
	return s.EnsureCollections(ctx)
}

// Stats returns entity counts for both collections.
func (s *MilvusStore) Stats(ctx context.Context) (map[string]any, error) {
	courses, err := s.client.GetCollectionStats(ctx, s.config.CatalogCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog stats: %w", err)
	}
	chunks, err := s.client.GetCollectionStats(ctx, s.config.ContentCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to get content stats: %w", err)
	}
	return map[string]any{
		"total_courses": courses,
		"total_chunks":  chunks,
	}, nil
}

// Close closes the Milvus connection.
func (s *MilvusStore) Close() error {
	return s.client.Close()
}
