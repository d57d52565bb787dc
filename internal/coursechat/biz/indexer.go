package biz

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/coursechat-io/coursechat/internal/coursechat/metrics"
	"github.com/coursechat-io/coursechat/internal/coursechat/store"
	"github.com/coursechat-io/coursechat/internal/model"
	"github.com/coursechat-io/coursechat/pkg/llm"
	"github.com/coursechat-io/coursechat/pkg/logger"
)

// documentExtensions are the file types picked up during folder ingestion.
var documentExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".docx": true,
}

// IndexerConfig holds the ingestion settings.
type IndexerConfig struct {
	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int
	// ChunkOverlap is the trailing-sentence overlap in characters.
	ChunkOverlap int
}

// Indexer ingests course documents: parse, chunk, embed, store.
type Indexer struct {
	store   store.VectorStore
	embed   llm.EmbeddingProvider
	chunker *Chunker
	config  *IndexerConfig
	metrics *metrics.Metrics
}

// NewIndexer creates an Indexer instance.
func NewIndexer(vectorStore store.VectorStore, embed llm.EmbeddingProvider, config *IndexerConfig) *Indexer {
	return &Indexer{
		store:   vectorStore,
		embed:   embed,
		chunker: NewChunker(config.ChunkSize, config.ChunkOverlap),
		config:  config,
		metrics: metrics.Get(),
	}
}

// BuildChunks cuts a parsed document into content chunks. The first
// chunk of each lesson carries a "Lesson <n> content:" prefix so the
// retrieved text keeps its lesson context.
func (i *Indexer) BuildChunks(doc *parsedDocument) []*store.CourseChunk {
	var chunks []*store.CourseChunk
	index := 0
	for _, lesson := range doc.lessons {
		pieces := i.chunker.Chunk(lesson.content)
		for j, piece := range pieces {
			if j == 0 {
				piece = fmt.Sprintf("Lesson %d content: %s", lesson.Number, piece)
			}
			chunks = append(chunks, &store.CourseChunk{
				CourseTitle:  doc.course.Title,
				LessonNumber: lesson.Number,
				ChunkIndex:   index,
				Content:      piece,
			})
			index++
		}
	}
	return chunks
}

// IngestFile parses, chunks, embeds and stores one course document. A
// course whose title already exists in the catalog is skipped. Returns
// the parsed course and the number of chunks added.
func (i *Indexer) IngestFile(ctx context.Context, path string) (*model.Course, int, error) {
	existing, err := i.store.ExistingCourseTitles(ctx)
	if err != nil {
		return nil, 0, err
	}
	titles := make(map[string]bool, len(existing))
	for _, t := range existing {
		titles[t] = true
	}
	return i.ingestFile(ctx, path, titles)
}

// ingestFile is the shared single-document path. The titles set is
// consulted for skip-existing and updated on success.
func (i *Indexer) ingestFile(ctx context.Context, path string, titles map[string]bool) (*model.Course, int, error) {
	doc, err := ParseCourseDocument(path)
	if err != nil {
		i.metrics.RecordIndexing(0, 0, err)
		return nil, 0, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}

	if titles[doc.course.Title] {
		logger.Infow("course already exists, skipping",
			"title", doc.course.Title,
			"file", filepath.Base(path),
		)
		return doc.course, 0, nil
	}
	return i.ingestParsed(ctx, path, doc, titles)
}

// ReingestFile ingests a changed document, replacing the stored course
// when its title already exists. The docs watcher uses this path so
// edits to an already-ingested document take effect.
func (i *Indexer) ReingestFile(ctx context.Context, path string) (*model.Course, int, error) {
	doc, err := ParseCourseDocument(path)
	if err != nil {
		i.metrics.RecordIndexing(0, 0, err)
		return nil, 0, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}

	existing, err := i.store.ExistingCourseTitles(ctx)
	if err != nil {
		return nil, 0, err
	}
	titles := make(map[string]bool, len(existing))
	for _, t := range existing {
		titles[t] = true
	}

	if titles[doc.course.Title] {
		if err := i.store.DeleteCourse(ctx, doc.course.Title); err != nil {
			return nil, 0, fmt.Errorf("failed to replace course %q: %w", doc.course.Title, err)
		}
		delete(titles, doc.course.Title)
		logger.Infow("replacing existing course",
			"title", doc.course.Title,
			"file", filepath.Base(path),
		)
	}
	return i.ingestParsed(ctx, path, doc, titles)
}

// ingestParsed chunks, embeds and stores an already-parsed document.
func (i *Indexer) ingestParsed(ctx context.Context, path string, doc *parsedDocument, titles map[string]bool) (*model.Course, int, error) {
	chunks := i.BuildChunks(doc)
	if len(chunks) == 0 {
		logger.Warnw("document produced no content chunks, skipping",
			"file", filepath.Base(path),
		)
		return doc.course, 0, nil
	}

	// One embedding batch per document.
	texts := make([]string, len(chunks))
	for j, chunk := range chunks {
		texts[j] = chunk.Content
	}
	embeddings, err := i.embed.Embed(ctx, texts)
	if err != nil {
		i.metrics.RecordIndexing(0, 0, err)
		return nil, 0, fmt.Errorf("failed to embed %s: %w", filepath.Base(path), err)
	}
	if len(embeddings) != len(chunks) {
		err := fmt.Errorf("embedding count mismatch: got %d for %d chunks", len(embeddings), len(chunks))
		i.metrics.RecordIndexing(0, 0, err)
		return nil, 0, err
	}
	for j, chunk := range chunks {
		chunk.Embedding = embeddings[j]
	}

	if err := i.store.AddCourseMetadata(ctx, doc.course); err != nil {
		i.metrics.RecordIndexing(0, 0, err)
		return nil, 0, err
	}
	if err := i.store.AddCourseContent(ctx, chunks); err != nil {
		i.metrics.RecordIndexing(0, 0, err)
		return nil, 0, err
	}

	titles[doc.course.Title] = true
	i.metrics.RecordIndexing(1, len(chunks), nil)
	logger.Infow("course ingested",
		"title", doc.course.Title,
		"lessons", len(doc.course.Lessons),
		"chunks", len(chunks),
	)
	return doc.course, len(chunks), nil
}

// IngestDirectory ingests every course document in a folder in lexical
// order. Courses whose title already exists are skipped; clearExisting
// drops and recreates the collections first. A malformed document is
// logged and skipped. Returns courses added and chunks added.
func (i *Indexer) IngestDirectory(ctx context.Context, dir string, clearExisting bool) (int, int, error) {
	if clearExisting {
		logger.Info("Clearing existing course data...")
		if err := i.store.ClearAll(ctx); err != nil {
			return 0, 0, fmt.Errorf("failed to clear store: %w", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read docs directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if documentExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)

	existing, err := i.store.ExistingCourseTitles(ctx)
	if err != nil {
		return 0, 0, err
	}
	titles := make(map[string]bool, len(existing))
	for _, t := range existing {
		titles[t] = true
	}

	coursesAdded := 0
	chunksAdded := 0
	for _, file := range files {
		_, chunks, err := i.ingestFile(ctx, file, titles)
		if err != nil {
			logger.Warnw("failed to ingest document, skipping",
				"file", filepath.Base(file),
				"error", err.Error(),
			)
			continue
		}
		if chunks > 0 {
			coursesAdded++
			chunksAdded += chunks
		}
	}

	logger.Infow("folder ingestion finished",
		"dir", dir,
		"courses_added", coursesAdded,
		"chunks_added", chunksAdded,
	)
	return coursesAdded, chunksAdded, nil
}
