package biz

import (
	"context"
	"fmt"
	"time"

	"github.com/coursechat-io/coursechat/internal/coursechat/metrics"
	"github.com/coursechat-io/coursechat/pkg/llm"
	"github.com/coursechat-io/coursechat/pkg/logger"
)

// defaultSystemPrompt guides the assistant. One search per question
// keeps latency and token spend bounded.
const defaultSystemPrompt = `You are an AI assistant specialized in course materials and educational content with access to a comprehensive search tool for course information.

Search Tool Usage:
- Use the search tool only for questions about specific course content or detailed educational materials
- Use the outline tool for questions about course structure, lesson lists or what a course covers
- One tool call per query maximum
- Synthesize tool results into accurate, fact-based responses
- If a tool yields no results, state this clearly without offering alternatives

Response Protocol:
- General knowledge questions: answer using existing knowledge without using tools
- Course-specific questions: use the appropriate tool first, then answer
- No meta-commentary (no reasoning process, tool explanations, or question-type analysis)

All responses must be:
1. Brief, concise and focused - get to the point quickly
2. Educational - maintain instructional value
3. Clear - use accessible language
4. Example-supported - include relevant examples when they aid understanding
Provide only the direct answer to what was asked.`

// GeneratorConfig holds the generation settings.
type GeneratorConfig struct {
	// SystemPrompt overrides the default system prompt when non-empty.
	SystemPrompt string
	// MaxTokens caps the completion length.
	MaxTokens int
	// Temperature is the sampling temperature.
	Temperature float64
}

// Generator runs the tool-calling answer loop: one call with tool
// definitions, execution of any requested tools, then one follow-up
// call without tools.
type Generator struct {
	chatProvider llm.ChatProvider
	toolManager  *ToolManager
	config       *GeneratorConfig
	metrics      *metrics.Metrics
}

// NewGenerator creates a Generator instance.
func NewGenerator(chatProvider llm.ChatProvider, toolManager *ToolManager, config *GeneratorConfig) *Generator {
	if config.SystemPrompt == "" {
		config.SystemPrompt = defaultSystemPrompt
	}
	return &Generator{
		chatProvider: chatProvider,
		toolManager:  toolManager,
		config:       config,
		metrics:      metrics.Get(),
	}
}

// GenerateAnswer answers one question, optionally carrying prior
// conversation history in the system prompt.
func (g *Generator) GenerateAnswer(ctx context.Context, question, history string) (string, error) {
	if ctx.Err() != nil {
		return "", fmt.Errorf("context cancelled before generation: %w", ctx.Err())
	}

	system := g.config.SystemPrompt
	if history != "" {
		system = system + "\n\nPrevious conversation:\n" + history
	}

	temperature := g.config.Temperature
	messages := []llm.Message{
		{
			Role:    llm.RoleUser,
			Content: fmt.Sprintf("Answer this question about course materials: %s", question),
		},
	}

	req := &llm.ChatRequest{
		System:      system,
		Messages:    messages,
		Tools:       g.toolManager.Definitions(),
		MaxTokens:   g.config.MaxTokens,
		Temperature: &temperature,
	}

	start := time.Now()
	resp, err := g.chatProvider.Chat(ctx, req)
	g.recordCall(start, resp, err)
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}

	if resp.StopReason != llm.StopToolUse || len(resp.ToolCalls) == 0 {
		return resp.Content, nil
	}

	// The model asked for tools: run them and make one follow-up call
	// without tool definitions. One round maximum.
	messages = append(messages, llm.Message{
		Role:      llm.RoleAssistant,
		Content:   resp.Content,
		ToolCalls: resp.ToolCalls,
	})
	for _, call := range resp.ToolCalls {
		logger.Infow("executing tool",
			"tool", call.Name,
			"call_id", call.ID,
		)
		result := g.toolManager.ExecuteTool(ctx, call.Name, call.Arguments)
		messages = append(messages, llm.Message{
			Role:       llm.RoleTool,
			Content:    result,
			ToolCallID: call.ID,
		})
	}

	followUp := &llm.ChatRequest{
		System:      system,
		Messages:    messages,
		MaxTokens:   g.config.MaxTokens,
		Temperature: &temperature,
	}

	start = time.Now()
	resp, err = g.chatProvider.Chat(ctx, followUp)
	g.recordCall(start, resp, err)
	if err != nil {
		return "", fmt.Errorf("failed to generate answer after tool execution: %w", err)
	}
	return resp.Content, nil
}

func (g *Generator) recordCall(start time.Time, resp *llm.ChatResponse, err error) {
	promptTokens, completionTokens := 0, 0
	if resp != nil && resp.TokenUsage != nil {
		promptTokens = resp.TokenUsage.PromptTokens
		completionTokens = resp.TokenUsage.CompletionTokens
	}
	g.metrics.RecordLLMCall(time.Since(start), promptTokens, completionTokens, err)
}
