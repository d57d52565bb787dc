package biz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursechat-io/coursechat/internal/coursechat/store"
	"github.com/coursechat-io/coursechat/internal/model"
	"github.com/coursechat-io/coursechat/pkg/llm"
)

func newTestService(vs *fakeVectorStore, chat *fakeChatProvider) *CourseService {
	return NewCourseService(vs, &fakeEmbedder{dim: 8}, chat, nil, &ServiceConfig{
		IndexerConfig:   &IndexerConfig{ChunkSize: 800, ChunkOverlap: 100},
		GeneratorConfig: &GeneratorConfig{MaxTokens: 800},
		SessionConfig: &SessionManagerConfig{
			MaxHistory:  2,
			MaxSessions: 10,
			IdleTimeout: time.Hour,
		},
		MaxResults: 5,
	})
}

func TestCourseService_Query_CreatesSession(t *testing.T) {
	chat := &fakeChatProvider{responses: []*llm.ChatResponse{
		{Content: "answer", StopReason: llm.StopEndTurn},
	}}
	svc := newTestService(newFakeVectorStore(), chat)

	result, err := svc.Query(context.Background(), "question", "")
	require.NoError(t, err)
	assert.Equal(t, "answer", result.Answer)
	assert.NotEmpty(t, result.SessionID)

	// The exchange landed in session history.
	history := svc.sessions.History(result.SessionID)
	assert.Contains(t, history, "User: question")
	assert.Contains(t, history, "Assistant: answer")
}

func TestCourseService_Query_UsesHistory(t *testing.T) {
	chat := &fakeChatProvider{responses: []*llm.ChatResponse{
		{Content: "first", StopReason: llm.StopEndTurn},
		{Content: "second", StopReason: llm.StopEndTurn},
	}}
	svc := newTestService(newFakeVectorStore(), chat)

	first, err := svc.Query(context.Background(), "q1", "")
	require.NoError(t, err)

	_, err = svc.Query(context.Background(), "q2", first.SessionID)
	require.NoError(t, err)

	require.Len(t, chat.requests, 2)
	assert.Contains(t, chat.requests[1].System, "Previous conversation:")
	assert.Contains(t, chat.requests[1].System, "User: q1")
}

func TestCourseService_Query_CollectsAndResetsSources(t *testing.T) {
	vs := newFakeVectorStore()
	vs.courses["Go Basics"] = &model.Course{Title: "Go Basics"}
	vs.searchResults = []*store.SearchResult{
		{CourseTitle: "Go Basics", LessonNumber: 1, Content: "channels"},
	}

	chat := &fakeChatProvider{responses: []*llm.ChatResponse{
		{
			StopReason: llm.StopToolUse,
			ToolCalls: []llm.ToolCall{{
				ID: "call_0", Name: "search_course_content",
				Arguments: map[string]any{"query": "channels"},
			}},
		},
		{Content: "answer", StopReason: llm.StopEndTurn},
		{Content: "plain answer", StopReason: llm.StopEndTurn},
	}}
	svc := newTestService(vs, chat)

	result, err := svc.Query(context.Background(), "how do channels work?", "")
	require.NoError(t, err)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "Go Basics - Lesson 1", result.Sources[0].Text)

	// Sources were reset; the next tool-less query carries none.
	result, err = svc.Query(context.Background(), "unrelated", "")
	require.NoError(t, err)
	assert.Empty(t, result.Sources)
}

func TestCourseService_Query_GenerationError(t *testing.T) {
	chat := &fakeChatProvider{err: errors.New("provider down")}
	svc := newTestService(newFakeVectorStore(), chat)

	_, err := svc.Query(context.Background(), "question", "")
	require.Error(t, err)
}

func TestCourseService_Analytics(t *testing.T) {
	vs := newFakeVectorStore()
	vs.courses["A"] = &model.Course{Title: "A"}
	vs.courses["B"] = &model.Course{Title: "B"}

	svc := newTestService(vs, &fakeChatProvider{})
	analytics, err := svc.Analytics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, analytics.TotalCourses)
	assert.ElementsMatch(t, []string{"A", "B"}, analytics.CourseTitles)
}

func TestCourseService_Analytics_EmptyStore(t *testing.T) {
	svc := newTestService(newFakeVectorStore(), &fakeChatProvider{})
	analytics, err := svc.Analytics(context.Background())
	require.NoError(t, err)
	assert.Zero(t, analytics.TotalCourses)
	assert.NotNil(t, analytics.CourseTitles)
	assert.Empty(t, analytics.CourseTitles)
}

func TestCourseService_Stats(t *testing.T) {
	svc := newTestService(newFakeVectorStore(), &fakeChatProvider{})

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fake-embed", stats["embed_provider"])
	assert.Equal(t, "fake-chat", stats["chat_provider"])
	assert.Contains(t, stats, "total_courses")
	assert.Contains(t, stats, "metrics")
}

func TestCourseService_SessionLifecycle(t *testing.T) {
	svc := newTestService(newFakeVectorStore(), &fakeChatProvider{})

	id := svc.CreateSession()
	require.NotEmpty(t, id)
	svc.sessions.AddExchange(id, "q", "a")

	svc.ClearSession(id)
	assert.Empty(t, svc.sessions.History(id))

	svc.DeleteSession(id)
	assert.Zero(t, svc.sessions.Count())
}

func TestCourseService_DeleteCourse(t *testing.T) {
	vs := newFakeVectorStore()
	vs.courses["Doomed"] = &model.Course{Title: "Doomed"}
	vs.chunks = []*store.CourseChunk{{CourseTitle: "Doomed", Content: "x"}}

	svc := newTestService(vs, &fakeChatProvider{})
	require.NoError(t, svc.DeleteCourse(context.Background(), "Doomed"))
	assert.NotContains(t, vs.courses, "Doomed")
	assert.Empty(t, vs.chunks)
}
