package biz

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCourseDoc = `Course Title: Test Course
Course Link: https://example.com/test
Course Instructor: Tester

Lesson 0: Introduction
Lesson Link: https://example.com/l0
Welcome to the test course. It exists only for tests. Every sentence here is short.

Lesson 1: Details
More detailed material follows here. Still entirely fictional content.
`

func newTestIndexer(vs *fakeVectorStore) (*Indexer, *fakeEmbedder) {
	embed := &fakeEmbedder{dim: 8}
	return NewIndexer(vs, embed, &IndexerConfig{ChunkSize: 800, ChunkOverlap: 100}), embed
}

func TestIndexer_IngestFile(t *testing.T) {
	vs := newFakeVectorStore()
	indexer, embed := newTestIndexer(vs)

	path := writeDoc(t, "test_course.txt", testCourseDoc)
	course, chunks, err := indexer.IngestFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "Test Course", course.Title)
	assert.Equal(t, chunks, len(vs.chunks))
	assert.Greater(t, chunks, 0)
	assert.Contains(t, vs.courses, "Test Course")

	// One embedding batch for the whole document.
	assert.Equal(t, 1, embed.calls)

	// Lesson context prefix on the first chunk of each lesson.
	assert.Contains(t, vs.chunks[0].Content, "Lesson 0 content:")
	for i, chunk := range vs.chunks {
		assert.Equal(t, i, chunk.ChunkIndex)
		assert.NotEmpty(t, chunk.Embedding)
	}
}

func TestIndexer_IngestFile_SkipsExisting(t *testing.T) {
	vs := newFakeVectorStore()
	indexer, _ := newTestIndexer(vs)

	path := writeDoc(t, "test_course.txt", testCourseDoc)
	_, added, err := indexer.IngestFile(context.Background(), path)
	require.NoError(t, err)
	require.Greater(t, added, 0)
	total := len(vs.chunks)

	_, added, err = indexer.IngestFile(context.Background(), path)
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.Equal(t, total, len(vs.chunks), "re-ingestion must not duplicate chunks")
}

func TestIndexer_ReingestFile_ReplacesModifiedCourse(t *testing.T) {
	vs := newFakeVectorStore()
	indexer, _ := newTestIndexer(vs)

	path := writeDoc(t, "test_course.txt", testCourseDoc)
	_, added, err := indexer.IngestFile(context.Background(), path)
	require.NoError(t, err)
	require.Greater(t, added, 0)

	updated := testCourseDoc + "\nLesson 2: Addendum\nBrand new material appended after the first ingestion.\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	_, added, err = indexer.ReingestFile(context.Background(), path)
	require.NoError(t, err)
	assert.Greater(t, added, 0, "modified document must be re-indexed")

	lessons := map[int]bool{}
	seen := map[string]bool{}
	for _, chunk := range vs.chunks {
		lessons[chunk.LessonNumber] = true
		key := fmt.Sprintf("%d/%d", chunk.LessonNumber, chunk.ChunkIndex)
		assert.False(t, seen[key], "chunk %s stored twice", key)
		seen[key] = true
	}
	assert.True(t, lessons[2], "appended lesson is indexed after re-ingestion")
}

func TestIndexer_ReingestFile_NewCourse(t *testing.T) {
	vs := newFakeVectorStore()
	indexer, _ := newTestIndexer(vs)

	path := writeDoc(t, "test_course.txt", testCourseDoc)
	course, added, err := indexer.ReingestFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Test Course", course.Title)
	assert.Greater(t, added, 0)
}

func TestIndexer_IngestDirectory(t *testing.T) {
	vs := newFakeVectorStore()
	indexer, _ := newTestIndexer(vs)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b_second.txt"),
		[]byte("Course Title: Second Course\n\nLesson 0: Intro\nSecond course content here.\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_first.md"),
		[]byte("Course Title: First Course\n\nLesson 0: Intro\nFirst course content here.\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.pdf"),
		[]byte("not a course doc"), 0o644))

	courses, chunks, err := indexer.IngestDirectory(context.Background(), dir, false)
	require.NoError(t, err)
	assert.Equal(t, 2, courses)
	assert.Greater(t, chunks, 0)
	assert.Contains(t, vs.courses, "First Course")
	assert.Contains(t, vs.courses, "Second Course")
}

func TestIndexer_IngestDirectory_ClearExisting(t *testing.T) {
	vs := newFakeVectorStore()
	indexer, _ := newTestIndexer(vs)

	path := writeDoc(t, "old.txt", testCourseDoc)
	_, _, err := indexer.IngestFile(context.Background(), path)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.txt"),
		[]byte("Course Title: New Course\n\nLesson 0: Intro\nFresh content lives here.\n"), 0o644))

	courses, _, err := indexer.IngestDirectory(context.Background(), dir, true)
	require.NoError(t, err)
	assert.True(t, vs.cleared)
	assert.Equal(t, 1, courses)
	assert.NotContains(t, vs.courses, "Test Course")
	assert.Contains(t, vs.courses, "New Course")
}

func TestIndexer_IngestDirectory_SkipsMalformed(t *testing.T) {
	vs := newFakeVectorStore()
	embed := &fakeEmbedder{dim: 8}
	indexer := NewIndexer(vs, embed, &IndexerConfig{ChunkSize: 800, ChunkOverlap: 100})

	dir := t.TempDir()
	// Empty document yields no chunks and is skipped, not fatal.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.txt"), []byte(""), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.txt"),
		[]byte("Course Title: Good Course\n\nLesson 0: Intro\nUsable content here.\n"), 0o644))

	courses, _, err := indexer.IngestDirectory(context.Background(), dir, false)
	require.NoError(t, err)
	assert.Equal(t, 1, courses)
}

func TestIndexer_BuildChunks(t *testing.T) {
	vs := newFakeVectorStore()
	indexer, _ := newTestIndexer(vs)

	path := writeDoc(t, "test_course.txt", testCourseDoc)
	doc, err := ParseCourseDocument(path)
	require.NoError(t, err)

	chunks := indexer.BuildChunks(doc)
	require.NotEmpty(t, chunks)

	lessonsSeen := map[int]bool{}
	for _, chunk := range chunks {
		assert.Equal(t, "Test Course", chunk.CourseTitle)
		if !lessonsSeen[chunk.LessonNumber] {
			assert.Contains(t, chunk.Content, "content:", "first chunk of a lesson carries the prefix")
			lessonsSeen[chunk.LessonNumber] = true
		}
	}
	assert.True(t, lessonsSeen[0])
	assert.True(t, lessonsSeen[1])
}
