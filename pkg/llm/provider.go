// Package llm provides a unified abstraction over LLM providers.
// Embedding and chat can use different providers; chat providers support
// tool calling so the assistant can run retrieval tools mid-conversation.
package llm

import (
	"context"
	"fmt"
	"sync"
)

// EmbeddingProvider generates vector embeddings for text.
type EmbeddingProvider interface {
	// Embed generates embeddings for multiple texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle generates an embedding for a single text.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Name returns the provider name.
	Name() string
}

// ChatProvider runs chat completions.
type ChatProvider interface {
	// Chat executes a chat completion, optionally with tool definitions.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Generate produces text for a single prompt with an optional system
	// prompt. Convenience wrapper over Chat.
	Generate(ctx context.Context, prompt string, systemPrompt string) (*GenerateResponse, error)

	// Name returns the provider name.
	Name() string
}

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleTool carries a tool execution result back to the model.
	RoleTool Role = "tool"
)

// Message is one turn in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// ToolCalls is set on assistant messages that requested tool runs.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links a RoleTool message to the call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ToolDefinition describes a tool the model may call.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// ToolCall is a model request to execute a tool.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Stop reasons reported by ChatResponse.
const (
	StopEndTurn   = "end_turn"
	StopToolUse   = "tool_use"
	StopMaxTokens = "max_tokens"
)

// ChatRequest is a provider-independent chat completion request.
type ChatRequest struct {
	// System is the system prompt, if any.
	System string

	// Messages is the conversation so far.
	Messages []Message

	// Tools the model may call. Empty disables tool calling.
	Tools []ToolDefinition

	// MaxTokens caps the completion length. Zero uses the provider default.
	MaxTokens int

	// Temperature overrides the sampling temperature when non-nil.
	// A pointer distinguishes "unset" from an explicit zero.
	Temperature *float64
}

// ChatResponse is a provider-independent chat completion result.
type ChatResponse struct {
	// Content is the text of the completion.
	Content string

	// StopReason is one of the Stop* constants.
	StopReason string

	// ToolCalls are the tool invocations requested by the model.
	ToolCalls []ToolCall

	// TokenUsage reports token accounting when the provider returns it.
	TokenUsage *TokenUsage
}

// GenerateResponse is the result of a single-prompt generation.
type GenerateResponse struct {
	Content    string
	TokenUsage *TokenUsage
}

// TokenUsage reports token consumption for a completion.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Provider supports both embeddings and chat.
type Provider interface {
	EmbeddingProvider
	ChatProvider
}

// ProviderFactory creates a full provider from a config map.
type ProviderFactory func(config map[string]any) (Provider, error)

// EmbeddingProviderFactory creates an embedding-only provider.
type EmbeddingProviderFactory func(config map[string]any) (EmbeddingProvider, error)

// ChatProviderFactory creates a chat-only provider.
type ChatProviderFactory func(config map[string]any) (ChatProvider, error)

var registry = &providerRegistry{
	providers:          make(map[string]ProviderFactory),
	embeddingProviders: make(map[string]EmbeddingProviderFactory),
	chatProviders:      make(map[string]ChatProviderFactory),
}

type providerRegistry struct {
	mu                 sync.RWMutex
	providers          map[string]ProviderFactory
	embeddingProviders map[string]EmbeddingProviderFactory
	chatProviders      map[string]ChatProviderFactory
}

// RegisterProvider registers a full provider factory. Providers register
// themselves from init so importing the package wires them in.
func RegisterProvider(name string, factory ProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.providers[name] = factory
}

// RegisterEmbeddingProvider registers an embedding-only provider factory.
func RegisterEmbeddingProvider(name string, factory EmbeddingProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.embeddingProviders[name] = factory
}

// RegisterChatProvider registers a chat-only provider factory.
func RegisterChatProvider(name string, factory ChatProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.chatProviders[name] = factory
}

// NewProvider creates a full provider instance by name.
func NewProvider(name string, config map[string]any) (Provider, error) {
	registry.mu.RLock()
	factory, ok := registry.providers[name]
	registry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}

	return factory(config)
}

// NewEmbeddingProvider creates an embedding provider by name. Dedicated
// embedding factories take precedence over full providers.
func NewEmbeddingProvider(name string, config map[string]any) (EmbeddingProvider, error) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	if factory, ok := registry.embeddingProviders[name]; ok {
		return factory(config)
	}

	if factory, ok := registry.providers[name]; ok {
		return factory(config)
	}

	return nil, fmt.Errorf("unknown embedding provider: %s", name)
}

// NewChatProvider creates a chat provider by name. Dedicated chat
// factories take precedence over full providers.
func NewChatProvider(name string, config map[string]any) (ChatProvider, error) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	if factory, ok := registry.chatProviders[name]; ok {
		return factory(config)
	}

	if factory, ok := registry.providers[name]; ok {
		return factory(config)
	}

	return nil, fmt.Errorf("unknown chat provider: %s", name)
}

// ListProviders lists all registered provider names.
func ListProviders() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	seen := make(map[string]bool)
	var names []string

	for name := range registry.providers {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for name := range registry.embeddingProviders {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for name := range registry.chatProviders {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	return names
}
