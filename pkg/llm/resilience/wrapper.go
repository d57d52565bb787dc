package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/coursechat-io/coursechat/pkg/llm"
	"github.com/coursechat-io/coursechat/pkg/logger"
)

// ResilientEmbeddingProvider wraps an embedding provider with retry and
// circuit breaking.
type ResilientEmbeddingProvider struct {
	provider llm.EmbeddingProvider
	retry    *RetryConfig
	cb       *CircuitBreaker
}

// NewResilientEmbeddingProvider wraps provider. Nil configs use the defaults.
func NewResilientEmbeddingProvider(
	provider llm.EmbeddingProvider,
	retryConfig *RetryConfig,
	cbConfig *CircuitBreakerConfig,
) *ResilientEmbeddingProvider {
	if retryConfig == nil {
		retryConfig = DefaultRetryConfig()
	}
	if cbConfig == nil {
		cbConfig = DefaultCircuitBreakerConfig()
	}

	if retryConfig.RetryableErrors == nil {
		retryConfig.RetryableErrors = IsRetryableError
	}

	return &ResilientEmbeddingProvider{
		provider: provider,
		retry:    retryConfig,
		cb:       NewCircuitBreaker(cbConfig),
	}
}

// Embed generates embeddings with retry and circuit breaking.
func (r *ResilientEmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var result [][]float32

	err := RetryWithCircuitBreaker(ctx, r.retry, r.cb, func() error {
		var callErr error
		result, callErr = r.provider.Embed(ctx, texts)
		return callErr
	})

	return result, err
}

// EmbedSingle generates a single embedding with retry and circuit breaking.
func (r *ResilientEmbeddingProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	var result []float32

	err := RetryWithCircuitBreaker(ctx, r.retry, r.cb, func() error {
		var callErr error
		result, callErr = r.provider.EmbedSingle(ctx, text)
		return callErr
	})

	return result, err
}

// Name returns the wrapped provider name.
func (r *ResilientEmbeddingProvider) Name() string {
	return r.provider.Name() + "-resilient"
}

// CircuitBreaker exposes the breaker for monitoring.
func (r *ResilientEmbeddingProvider) CircuitBreaker() *CircuitBreaker {
	return r.cb
}

// ResilientChatProvider wraps a chat provider with retry and circuit breaking.
type ResilientChatProvider struct {
	provider llm.ChatProvider
	retry    *RetryConfig
	cb       *CircuitBreaker
}

// NewResilientChatProvider wraps provider. Nil configs use the defaults.
func NewResilientChatProvider(
	provider llm.ChatProvider,
	retryConfig *RetryConfig,
	cbConfig *CircuitBreakerConfig,
) *ResilientChatProvider {
	if retryConfig == nil {
		retryConfig = DefaultRetryConfig()
	}
	if cbConfig == nil {
		cbConfig = DefaultCircuitBreakerConfig()
	}

	if retryConfig.RetryableErrors == nil {
		retryConfig.RetryableErrors = IsRetryableError
	}

	return &ResilientChatProvider{
		provider: provider,
		retry:    retryConfig,
		cb:       NewCircuitBreaker(cbConfig),
	}
}

// Chat executes a chat completion with retry and circuit breaking.
func (r *ResilientChatProvider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	var result *llm.ChatResponse

	err := RetryWithCircuitBreaker(ctx, r.retry, r.cb, func() error {
		var callErr error
		result, callErr = r.provider.Chat(ctx, req)
		return callErr
	})

	return result, err
}

// Generate produces text with retry and circuit breaking.
func (r *ResilientChatProvider) Generate(ctx context.Context, prompt string, systemPrompt string) (*llm.GenerateResponse, error) {
	var result *llm.GenerateResponse

	err := RetryWithCircuitBreaker(ctx, r.retry, r.cb, func() error {
		var callErr error
		result, callErr = r.provider.Generate(ctx, prompt, systemPrompt)
		return callErr
	})

	return result, err
}

// Name returns the wrapped provider name.
func (r *ResilientChatProvider) Name() string {
	return r.provider.Name() + "-resilient"
}

// CircuitBreaker exposes the breaker for monitoring.
func (r *ResilientChatProvider) CircuitBreaker() *CircuitBreaker {
	return r.cb
}

// IsRetryableError reports whether err is a transient failure.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrCircuitBreakerOpen) {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		logger.Debugw("network timeout, retryable", "error", err.Error())
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		logger.Debugw("DNS error, retryable", "error", err.Error())
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		logger.Debugw("network operation error, retryable", "error", err.Error())
		return true
	}

	errMsg := err.Error()
	if strings.Contains(errMsg, "status code 5") {
		logger.Debugw("server error, retryable", "error", errMsg)
		return true
	}

	if strings.Contains(errMsg, "status code 429") || strings.Contains(errMsg, "rate limit") {
		logger.Debugw("rate limit error, retryable", "error", errMsg)
		return true
	}

	if strings.Contains(errMsg, "status code 408") {
		logger.Debugw("request timeout, retryable", "error", errMsg)
		return true
	}

	if strings.Contains(errMsg, "service unavailable") {
		logger.Debugw("service unavailable, retryable", "error", errMsg)
		return true
	}

	if errors.Is(err, http.ErrServerClosed) ||
		strings.Contains(errMsg, "EOF") ||
		strings.Contains(errMsg, "connection reset") {
		logger.Debugw("connection error, retryable", "error", errMsg)
		return true
	}

	logger.Debugw("error not retryable", "error", errMsg)
	return false
}

// Stats summarizes resilience state for a wrapped provider.
type Stats struct {
	CircuitBreakerState    string
	CircuitBreakerFailures int
	CircuitBreakerStats    map[string]interface{}
}

// GetEmbeddingProviderStats returns resilience stats when provider is wrapped.
func GetEmbeddingProviderStats(provider llm.EmbeddingProvider) *Stats {
	if rp, ok := provider.(*ResilientEmbeddingProvider); ok {
		cbStats := rp.cb.Stats()
		return &Stats{
			CircuitBreakerState:    cbStats["state"].(string),
			CircuitBreakerFailures: cbStats["failures"].(int),
			CircuitBreakerStats:    cbStats,
		}
	}
	return nil
}

// GetChatProviderStats returns resilience stats when provider is wrapped.
func GetChatProviderStats(provider llm.ChatProvider) *Stats {
	if rp, ok := provider.(*ResilientChatProvider); ok {
		cbStats := rp.cb.Stats()
		return &Stats{
			CircuitBreakerState:    cbStats["state"].(string),
			CircuitBreakerFailures: cbStats["failures"].(int),
			CircuitBreakerStats:    cbStats,
		}
	}
	return nil
}
