package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/coursechat-io/coursechat/pkg/logger"
	"github.com/coursechat-io/coursechat/pkg/utils/json"
)

// EmbeddingCacheConfig configures the Redis embedding cache.
type EmbeddingCacheConfig struct {
	// Enabled toggles the cache.
	Enabled bool
	// TTL is the cache entry lifetime.
	TTL time.Duration
	// KeyPrefix namespaces the cache keys.
	KeyPrefix string
}

// DefaultEmbeddingCacheConfig returns the default cache configuration.
// Embeddings for identical text are stable so a long TTL is safe.
func DefaultEmbeddingCacheConfig() *EmbeddingCacheConfig {
	return &EmbeddingCacheConfig{
		Enabled:   true,
		TTL:       24 * time.Hour,
		KeyPrefix: "emb:",
	}
}

// CachedEmbeddingProvider wraps an EmbeddingProvider with a Redis cache.
type CachedEmbeddingProvider struct {
	provider EmbeddingProvider
	redis    *goredis.Client
	config   *EmbeddingCacheConfig
}

// NewCachedEmbeddingProvider creates a caching wrapper around provider.
func NewCachedEmbeddingProvider(
	provider EmbeddingProvider,
	redis *goredis.Client,
	config *EmbeddingCacheConfig,
) *CachedEmbeddingProvider {
	if config == nil {
		config = DefaultEmbeddingCacheConfig()
	}
	return &CachedEmbeddingProvider{
		provider: provider,
		redis:    redis,
		config:   config,
	}
}

func (c *CachedEmbeddingProvider) generateCacheKey(text string) string {
	hash := sha256.Sum256([]byte(text))
	return c.config.KeyPrefix + hex.EncodeToString(hash[:])
}

// EmbedSingle generates an embedding for text, consulting the cache first.
func (c *CachedEmbeddingProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	if !c.config.Enabled || c.redis == nil {
		return c.provider.EmbedSingle(ctx, text)
	}

	cacheKey := c.generateCacheKey(text)

	data, err := c.redis.Get(ctx, cacheKey).Bytes()
	if err == nil {
		var embedding []float32
		if err := json.Unmarshal(data, &embedding); err == nil {
			logger.Debugw("embedding cache hit", "text_length", len(text), "key", cacheKey)
			return embedding, nil
		}
		// Corrupted entry, drop it and recompute.
		logger.Warnw("failed to unmarshal cached embedding, deleting", "error", err.Error(), "key", cacheKey)
		_ = c.redis.Del(ctx, cacheKey).Err()
	} else if err != goredis.Nil {
		logger.Warnw("redis get error, falling back to provider", "error", err.Error())
	}

	logger.Debugw("embedding cache miss", "text_length", len(text), "key", cacheKey)
	embedding, err := c.provider.EmbedSingle(ctx, text)
	if err != nil {
		return nil, err
	}

	data, err = json.Marshal(embedding)
	if err != nil {
		logger.Warnw("failed to marshal embedding for caching", "error", err.Error())
		return embedding, nil
	}

	if err := c.redis.Set(ctx, cacheKey, data, c.config.TTL).Err(); err != nil {
		logger.Warnw("failed to cache embedding", "error", err.Error(), "key", cacheKey)
	} else {
		logger.Debugw("embedding cached", "text_length", len(text), "key", cacheKey, "ttl", c.config.TTL)
	}

	return embedding, nil
}

// Embed generates embeddings for texts, fetching cached entries and only
// sending the misses to the underlying provider.
func (c *CachedEmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if !c.config.Enabled || c.redis == nil {
		return c.provider.Embed(ctx, texts)
	}

	embeddings := make([][]float32, len(texts))
	uncachedIndices := []int{}
	uncachedTexts := []string{}

	for i, text := range texts {
		cacheKey := c.generateCacheKey(text)
		data, err := c.redis.Get(ctx, cacheKey).Bytes()
		if err == nil {
			var embedding []float32
			if err := json.Unmarshal(data, &embedding); err == nil {
				embeddings[i] = embedding
				continue
			}
			_ = c.redis.Del(ctx, cacheKey).Err()
		}

		uncachedIndices = append(uncachedIndices, i)
		uncachedTexts = append(uncachedTexts, text)
	}

	if len(uncachedTexts) > 0 {
		logger.Infow("embedding cache miss (batch)", "total", len(texts), "uncached", len(uncachedTexts))
		uncachedEmbeddings, err := c.provider.Embed(ctx, uncachedTexts)
		if err != nil {
			return nil, err
		}

		for i, idx := range uncachedIndices {
			embeddings[idx] = uncachedEmbeddings[i]

			cacheKey := c.generateCacheKey(uncachedTexts[i])
			data, err := json.Marshal(uncachedEmbeddings[i])
			if err != nil {
				logger.Warnw("failed to marshal embedding for caching", "error", err.Error())
				continue
			}

			if err := c.redis.Set(ctx, cacheKey, data, c.config.TTL).Err(); err != nil {
				logger.Warnw("failed to cache embedding", "error", err.Error(), "key", cacheKey)
			}
		}
	} else {
		logger.Infow("all embeddings from cache", "total", len(texts))
	}

	return embeddings, nil
}

// Name returns the wrapped provider name.
func (c *CachedEmbeddingProvider) Name() string {
	return c.provider.Name() + "-cached"
}

// ClearCache deletes all cached embeddings.
func (c *CachedEmbeddingProvider) ClearCache(ctx context.Context) error {
	if !c.config.Enabled || c.redis == nil {
		return nil
	}

	pattern := c.config.KeyPrefix + "*"
	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()

	deletedCount := 0
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warnw("failed to delete cache key", "error", err.Error(), "key", iter.Val())
		} else {
			deletedCount++
		}
	}

	if err := iter.Err(); err != nil {
		logger.Warnw("error during cache scan", "error", err.Error())
		return err
	}

	logger.Infow("cleared embedding cache", "deleted_count", deletedCount)
	return nil
}

// GetCacheStats returns cache statistics.
func (c *CachedEmbeddingProvider) GetCacheStats(ctx context.Context) (map[string]interface{}, error) {
	if !c.config.Enabled || c.redis == nil {
		return map[string]interface{}{
			"enabled": false,
		}, nil
	}

	pattern := c.config.KeyPrefix + "*"
	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()

	keyCount := 0
	for iter.Next(ctx) {
		keyCount++
	}

	if err := iter.Err(); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"enabled":    true,
		"key_count":  keyCount,
		"ttl":        c.config.TTL.String(),
		"key_prefix": c.config.KeyPrefix,
		"provider":   c.provider.Name(),
	}, nil
}

var _ EmbeddingProvider = (*CachedEmbeddingProvider)(nil)
