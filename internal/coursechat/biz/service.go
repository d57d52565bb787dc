package biz

import (
	"context"

	"github.com/coursechat-io/coursechat/internal/coursechat/metrics"
	"github.com/coursechat-io/coursechat/internal/coursechat/store"
	"github.com/coursechat-io/coursechat/internal/model"
	"github.com/coursechat-io/coursechat/pkg/llm"
)

// Service is the course assistant service interface.
type Service interface {
	// Query answers one question within a session.
	Query(ctx context.Context, question, sessionID string) (*model.QueryResult, error)

	// IngestFile ingests one course document.
	IngestFile(ctx context.Context, path string) (*model.Course, int, error)

	// IngestDirectory ingests every course document in a folder.
	IngestDirectory(ctx context.Context, dir string, clearExisting bool) (int, int, error)

	// DeleteCourse removes a course and its chunks.
	DeleteCourse(ctx context.Context, title string) error

	// Analytics returns the course catalog summary.
	Analytics(ctx context.Context) (*model.Analytics, error)

	// Stats returns knowledge base statistics.
	Stats(ctx context.Context) (map[string]any, error)

	// CreateSession allocates a new conversation session.
	CreateSession() string

	// ClearSession empties a session's history.
	ClearSession(id string)

	// DeleteSession removes a session.
	DeleteSession(id string)
}

// ServiceConfig bundles the component configurations.
type ServiceConfig struct {
	IndexerConfig   *IndexerConfig
	GeneratorConfig *GeneratorConfig
	SessionConfig   *SessionManagerConfig
	// MaxResults is the top-k limit for the content search tool.
	MaxResults int
}

// CourseService composes the indexer, tools, generator, sessions and
// cache into the full assistant.
type CourseService struct {
	indexer     *Indexer
	generator   *Generator
	toolManager *ToolManager
	sessions    *SessionManager
	cache       *QueryCache
	store       store.VectorStore

	embedProvider llm.EmbeddingProvider
	chatProvider  llm.ChatProvider
	metrics       *metrics.Metrics
}

var _ Service = (*CourseService)(nil)

// NewCourseService creates the assistant service.
func NewCourseService(
	vectorStore store.VectorStore,
	embedProvider llm.EmbeddingProvider,
	chatProvider llm.ChatProvider,
	cache *QueryCache,
	config *ServiceConfig,
) *CourseService {
	toolManager := NewToolManager()
	toolManager.Register(NewCourseSearchTool(vectorStore, config.MaxResults))
	toolManager.Register(NewCourseOutlineTool(vectorStore))

	return &CourseService{
		indexer:       NewIndexer(vectorStore, embedProvider, config.IndexerConfig),
		generator:     NewGenerator(chatProvider, toolManager, config.GeneratorConfig),
		toolManager:   toolManager,
		sessions:      NewSessionManager(config.SessionConfig),
		cache:         cache,
		store:         vectorStore,
		embedProvider: embedProvider,
		chatProvider:  chatProvider,
		metrics:       metrics.Get(),
	}
}

// Indexer exposes the indexer for startup ingestion and the watcher.
func (s *CourseService) Indexer() *Indexer {
	return s.indexer
}

// Sessions exposes the session manager so the server can start the
// idle sweeper and stop it on shutdown.
func (s *CourseService) Sessions() *SessionManager {
	return s.sessions
}

// Query answers one question. Session-less questions go through the
// Redis cache; questions with conversation context always hit the LLM.
func (s *CourseService) Query(ctx context.Context, question, sessionID string) (*model.QueryResult, error) {
	if sessionID == "" {
		sessionID = s.sessions.Create()
	}
	history := s.sessions.History(sessionID)

	if s.cache != nil && history == "" {
		cached, err := s.cache.Get(ctx, question)
		if err == nil && cached != nil {
			s.metrics.RecordQuery(true, nil)
			s.sessions.AddExchange(sessionID, question, cached.Answer)
			return &model.QueryResult{
				Answer:    cached.Answer,
				Sources:   cached.Sources,
				SessionID: sessionID,
			}, nil
		}
		// Miss or cache error: fall through to generation.
	}

	answer, err := s.generator.GenerateAnswer(ctx, question, history)
	if err != nil {
		s.metrics.RecordQuery(false, err)
		return nil, err
	}

	sources := s.toolManager.LastSources()
	s.toolManager.ResetSources()

	s.sessions.AddExchange(sessionID, question, answer)

	result := &model.QueryResult{
		Answer:    answer,
		Sources:   sources,
		SessionID: sessionID,
	}

	if s.cache != nil && history == "" {
		// Cache without the session id; the entry is shared across
		// sessions. Failures are logged inside Set.
		_ = s.cache.Set(ctx, question, &model.QueryResult{
			Answer:  answer,
			Sources: sources,
		})
	}

	s.metrics.RecordQuery(false, nil)
	return result, nil
}

// IngestFile ingests one course document.
func (s *CourseService) IngestFile(ctx context.Context, path string) (*model.Course, int, error) {
	return s.indexer.IngestFile(ctx, path)
}

// IngestDirectory ingests a folder of course documents.
func (s *CourseService) IngestDirectory(ctx context.Context, dir string, clearExisting bool) (int, int, error) {
	return s.indexer.IngestDirectory(ctx, dir, clearExisting)
}

// DeleteCourse removes a course and invalidates cached answers, which
// may cite the removed content.
func (s *CourseService) DeleteCourse(ctx context.Context, title string) error {
	if err := s.store.DeleteCourse(ctx, title); err != nil {
		return err
	}
	if s.cache != nil {
		_ = s.cache.Clear(ctx)
	}
	return nil
}

// Analytics returns the catalog summary for the UI.
func (s *CourseService) Analytics(ctx context.Context) (*model.Analytics, error) {
	titles, err := s.store.ExistingCourseTitles(ctx)
	if err != nil {
		return nil, err
	}
	if titles == nil {
		titles = []string{}
	}
	return &model.Analytics{
		TotalCourses: len(titles),
		CourseTitles: titles,
	}, nil
}

// Stats returns knowledge base statistics: store counts, provider
// names, cache state, session count and the metrics snapshot.
func (s *CourseService) Stats(ctx context.Context) (map[string]any, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}

	stats["embed_provider"] = s.embedProvider.Name()
	stats["chat_provider"] = s.chatProvider.Name()
	stats["active_sessions"] = s.sessions.Count()

	if s.cache != nil {
		if cacheStats, err := s.cache.GetStats(ctx); err == nil {
			stats["cache"] = cacheStats
		}
	}
	stats["metrics"] = s.metrics.Stats()

	return stats, nil
}

// CreateSession allocates a new conversation session.
func (s *CourseService) CreateSession() string {
	return s.sessions.Create()
}

// ClearSession empties a session's history.
func (s *CourseService) ClearSession(id string) {
	s.sessions.Clear(id)
}

// DeleteSession removes a session.
func (s *CourseService) DeleteSession(id string) {
	s.sessions.Delete(id)
}
