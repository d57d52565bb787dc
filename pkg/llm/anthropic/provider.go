// Package anthropic provides the Anthropic Messages API chat provider.
// Anthropic has no embedding endpoint, so this provider is chat-only and
// is paired with an embedding provider such as ollama or openai.
package anthropic

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/coursechat-io/coursechat/pkg/llm"
	"github.com/coursechat-io/coursechat/pkg/utils/httpclient"
	"github.com/coursechat-io/coursechat/pkg/utils/json"
)

// ProviderName is the Anthropic provider identifier.
const ProviderName = "anthropic"

const apiVersion = "2023-06-01"

// defaultMaxTokens bounds completions when the caller does not set a cap.
const defaultMaxTokens = 800

func init() {
	llm.RegisterChatProvider(ProviderName, NewProvider)
}

// Config holds Anthropic provider configuration.
type Config struct {
	// BaseURL is the API base address.
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// APIKey is the Anthropic API key.
	APIKey string `json:"api_key" mapstructure:"api_key"`

	// ChatModel is the model used for completions.
	ChatModel string `json:"chat_model" mapstructure:"chat_model"`

	// Timeout is the per-request timeout.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries is the maximum number of request retries.
	MaxRetries int `json:"max_retries" mapstructure:"max_retries"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "https://api.anthropic.com",
		ChatModel:  "claude-sonnet-4-20250514",
		Timeout:    120 * time.Second,
		MaxRetries: 3,
	}
}

// Provider implements llm.ChatProvider against the Messages API.
type Provider struct {
	config *Config
	client *httpclient.Client
}

// NewProvider creates an Anthropic provider from a config map.
func NewProvider(configMap map[string]any) (llm.ChatProvider, error) {
	cfg := DefaultConfig()

	if v, ok := configMap["base_url"].(string); ok && v != "" {
		cfg.BaseURL = v
	}
	if v, ok := configMap["api_key"].(string); ok && v != "" {
		cfg.APIKey = v
	}
	if v, ok := configMap["chat_model"].(string); ok && v != "" {
		cfg.ChatModel = v
	}
	if v, ok := configMap["timeout"].(time.Duration); ok && v > 0 {
		cfg.Timeout = v
	}
	if v, ok := configMap["max_retries"].(int); ok && v > 0 {
		cfg.MaxRetries = v
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: api_key is required")
	}

	return NewProviderWithConfig(cfg), nil
}

// NewProviderWithConfig creates an Anthropic provider from structured config.
func NewProviderWithConfig(cfg *Config) *Provider {
	return &Provider{
		config: cfg,
		client: httpclient.NewClient(cfg.Timeout, cfg.MaxRetries),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return ProviderName
}

// contentBlock is one element of a Messages API message content array.
type contentBlock struct {
	Type string `json:"type"`

	// type == "text"
	Text string `json:"text,omitempty"`

	// type == "tool_use"
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`

	// type == "tool_result"
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

type apiMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type toolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type messagesRequest struct {
	Model       string       `json:"model"`
	MaxTokens   int          `json:"max_tokens"`
	System      string       `json:"system,omitempty"`
	Messages    []apiMessage `json:"messages"`
	Tools       []toolSpec   `json:"tools,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
}

type messagesResponse struct {
	ID         string         `json:"id"`
	Role       string         `json:"role"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Chat executes a chat completion with optional tool definitions.
func (p *Provider) Chat(ctx context.Context, chatReq *llm.ChatRequest) (*llm.ChatResponse, error) {
	maxTokens := chatReq.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	reqBody := messagesRequest{
		Model:       p.config.ChatModel,
		MaxTokens:   maxTokens,
		System:      chatReq.System,
		Messages:    toAPIMessages(chatReq.Messages),
		Temperature: chatReq.Temperature,
	}

	for _, t := range chatReq.Tools {
		reqBody.Tools = append(reqBody.Tools, toolSpec{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.setHeaders(req)

	var apiResp messagesResponse
	if err := p.client.DoJSON(req, &apiResp); err != nil {
		return nil, err
	}

	resp := &llm.ChatResponse{
		StopReason: translateStopReason(apiResp.StopReason),
		TokenUsage: &llm.TokenUsage{
			PromptTokens:     apiResp.Usage.InputTokens,
			CompletionTokens: apiResp.Usage.OutputTokens,
			TotalTokens:      apiResp.Usage.InputTokens + apiResp.Usage.OutputTokens,
		},
	}

	for _, block := range apiResp.Content {
		switch block.Type {
		case "text":
			resp.Content += block.Text
		case "tool_use":
			resp.ToolCalls = append(resp.ToolCalls, llm.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: block.Input,
			})
		}
	}

	return resp, nil
}

// Generate produces text for a single prompt with an optional system prompt.
func (p *Provider) Generate(ctx context.Context, prompt string, systemPrompt string) (*llm.GenerateResponse, error) {
	resp, err := p.Chat(ctx, &llm.ChatRequest{
		System: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, err
	}

	return &llm.GenerateResponse{
		Content:    resp.Content,
		TokenUsage: resp.TokenUsage,
	}, nil
}

// toAPIMessages converts generic messages to Messages API form. Tool
// results become tool_result blocks inside user messages, and assistant
// tool calls become tool_use blocks.
func toAPIMessages(messages []llm.Message) []apiMessage {
	out := make([]apiMessage, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleTool:
			block := contentBlock{
				Type:      "tool_result",
				ToolUseID: msg.ToolCallID,
				Content:   msg.Content,
			}
			// Consecutive tool results share one user message.
			if n := len(out); n > 0 && out[n-1].Role == "user" && len(out[n-1].Content) > 0 && out[n-1].Content[0].Type == "tool_result" {
				out[n-1].Content = append(out[n-1].Content, block)
				continue
			}
			out = append(out, apiMessage{Role: "user", Content: []contentBlock{block}})

		case llm.RoleAssistant:
			blocks := make([]contentBlock, 0, 1+len(msg.ToolCalls))
			if msg.Content != "" {
				blocks = append(blocks, contentBlock{Type: "text", Text: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				blocks = append(blocks, contentBlock{
					Type:  "tool_use",
					ID:    call.ID,
					Name:  call.Name,
					Input: call.Arguments,
				})
			}
			out = append(out, apiMessage{Role: "assistant", Content: blocks})

		default:
			out = append(out, apiMessage{
				Role:    string(msg.Role),
				Content: []contentBlock{{Type: "text", Text: msg.Content}},
			})
		}
	}

	return out
}

func translateStopReason(reason string) string {
	switch reason {
	case "tool_use":
		return llm.StopToolUse
	case "max_tokens":
		return llm.StopMaxTokens
	default:
		return llm.StopEndTurn
	}
}

func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.config.APIKey)
	req.Header.Set("anthropic-version", apiVersion)
}
