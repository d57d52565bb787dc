package biz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursechat-io/coursechat/internal/coursechat/store"
	"github.com/coursechat-io/coursechat/internal/model"
	"github.com/coursechat-io/coursechat/pkg/llm"
)

func newTestGenerator(chat *fakeChatProvider, vs *fakeVectorStore) (*Generator, *ToolManager) {
	tm := NewToolManager()
	tm.Register(NewCourseSearchTool(vs, 5))
	g := NewGenerator(chat, tm, &GeneratorConfig{MaxTokens: 800})
	return g, tm
}

func TestGenerator_DirectAnswer(t *testing.T) {
	chat := &fakeChatProvider{responses: []*llm.ChatResponse{
		{Content: "Go is a programming language.", StopReason: llm.StopEndTurn},
	}}
	g, _ := newTestGenerator(chat, newFakeVectorStore())

	answer, err := g.GenerateAnswer(context.Background(), "What is Go?", "")
	require.NoError(t, err)
	assert.Equal(t, "Go is a programming language.", answer)

	require.Len(t, chat.requests, 1)
	req := chat.requests[0]
	assert.Equal(t, "Answer this question about course materials: What is Go?", req.Messages[0].Content)
	assert.NotEmpty(t, req.Tools, "first call carries tool definitions")
	assert.Equal(t, 800, req.MaxTokens)
	require.NotNil(t, req.Temperature)
	assert.Zero(t, *req.Temperature)
}

func TestGenerator_ToolRound(t *testing.T) {
	vs := newFakeVectorStore()
	vs.courses["Go Basics"] = &model.Course{Title: "Go Basics"}
	vs.searchResults = []*store.SearchResult{
		{CourseTitle: "Go Basics", LessonNumber: 1, Content: "Channels move values between goroutines."},
	}

	chat := &fakeChatProvider{responses: []*llm.ChatResponse{
		{
			StopReason: llm.StopToolUse,
			ToolCalls: []llm.ToolCall{{
				ID:        "call_0",
				Name:      "search_course_content",
				Arguments: map[string]any{"query": "channels"},
			}},
		},
		{Content: "Channels synchronize goroutines.", StopReason: llm.StopEndTurn},
	}}
	g, tm := newTestGenerator(chat, vs)

	answer, err := g.GenerateAnswer(context.Background(), "How do channels work?", "")
	require.NoError(t, err)
	assert.Equal(t, "Channels synchronize goroutines.", answer)

	require.Len(t, chat.requests, 2)
	followUp := chat.requests[1]
	assert.Empty(t, followUp.Tools, "follow-up call carries no tool definitions")

	// The tool result made it into the follow-up conversation.
	last := followUp.Messages[len(followUp.Messages)-1]
	assert.Equal(t, llm.RoleTool, last.Role)
	assert.Equal(t, "call_0", last.ToolCallID)
	assert.Contains(t, last.Content, "Channels move values between goroutines.")

	// Sources are available until reset.
	assert.NotEmpty(t, tm.LastSources())
}

func TestGenerator_HistoryInSystemPrompt(t *testing.T) {
	chat := &fakeChatProvider{responses: []*llm.ChatResponse{
		{Content: "ok", StopReason: llm.StopEndTurn},
	}}
	g, _ := newTestGenerator(chat, newFakeVectorStore())

	_, err := g.GenerateAnswer(context.Background(), "follow up", "User: hi\nAssistant: hello")
	require.NoError(t, err)

	require.Len(t, chat.requests, 1)
	assert.Contains(t, chat.requests[0].System, "Previous conversation:\nUser: hi\nAssistant: hello")
}

func TestGenerator_ProviderError(t *testing.T) {
	chat := &fakeChatProvider{err: errors.New("rate limit")}
	g, _ := newTestGenerator(chat, newFakeVectorStore())

	_, err := g.GenerateAnswer(context.Background(), "question", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to generate answer")
}

func TestGenerator_CancelledContext(t *testing.T) {
	chat := &fakeChatProvider{}
	g, _ := newTestGenerator(chat, newFakeVectorStore())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.GenerateAnswer(ctx, "question", "")
	require.Error(t, err)
	assert.Empty(t, chat.requests, "no provider call after cancellation")
}
