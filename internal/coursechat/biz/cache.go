package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/coursechat-io/coursechat/internal/model"
	"github.com/coursechat-io/coursechat/pkg/logger"
	"github.com/coursechat-io/coursechat/pkg/utils/json"
)

// QueryCacheConfig holds the query cache settings.
type QueryCacheConfig struct {
	// Enabled toggles the cache.
	Enabled bool
	// TTL is how long cached answers stay valid.
	TTL time.Duration
	// KeyPrefix namespaces the cache keys.
	KeyPrefix string
}

// QueryCache caches answered questions in Redis. Only session-less
// answers are cached; conversation context makes answers non-reusable.
type QueryCache struct {
	redis  *goredis.Client
	config *QueryCacheConfig
}

// NewQueryCache creates a QueryCache instance.
func NewQueryCache(redis *goredis.Client, config *QueryCacheConfig) *QueryCache {
	if config == nil {
		config = &QueryCacheConfig{
			Enabled:   false,
			TTL:       1 * time.Hour,
			KeyPrefix: "coursechat:query:",
		}
	}
	return &QueryCache{
		redis:  redis,
		config: config,
	}
}

// cacheKey hashes the question with SHA-256 under the key prefix.
func (c *QueryCache) cacheKey(question string) string {
	hash := sha256.Sum256([]byte(question))
	return c.config.KeyPrefix + hex.EncodeToString(hash[:])
}

// Get returns the cached result for a question, or (nil, nil) on a miss.
func (c *QueryCache) Get(ctx context.Context, question string) (*model.QueryResult, error) {
	if !c.config.Enabled || c.redis == nil {
		return nil, fmt.Errorf("cache not enabled or redis not available")
	}

	key := c.cacheKey(question)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			logger.Debugw("cache miss", "key", key)
			return nil, nil
		}
		logger.Warnw("failed to get from cache", "error", err.Error(), "key", key)
		return nil, err
	}

	var result model.QueryResult
	if err := json.Unmarshal(data, &result); err != nil {
		logger.Warnw("failed to unmarshal cached result, dropping entry",
			"error", err.Error(),
			"key", key,
		)
		_ = c.redis.Del(ctx, key).Err()
		return nil, err
	}

	logger.Infow("cache hit", "key", key, "answer_length", len(result.Answer))
	return &result, nil
}

// Set writes a query result to the cache.
func (c *QueryCache) Set(ctx context.Context, question string, result *model.QueryResult) error {
	if !c.config.Enabled || c.redis == nil {
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		logger.Warnw("failed to marshal result for caching", "error", err.Error())
		return err
	}

	key := c.cacheKey(question)
	if err := c.redis.Set(ctx, key, data, c.config.TTL).Err(); err != nil {
		logger.Warnw("failed to set cache", "error", err.Error(), "key", key)
		return err
	}

	logger.Debugw("cached query result", "key", key, "ttl", c.config.TTL)
	return nil
}

// Clear deletes every cached answer under the key prefix.
func (c *QueryCache) Clear(ctx context.Context) error {
	if !c.config.Enabled || c.redis == nil {
		return nil
	}

	iter := c.redis.Scan(ctx, 0, c.config.KeyPrefix+"*", 0).Iterator()
	deleted := 0
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warnw("failed to delete cache key", "error", err.Error(), "key", iter.Val())
		} else {
			deleted++
		}
	}
	if err := iter.Err(); err != nil {
		logger.Warnw("error during cache scan", "error", err.Error())
		return err
	}

	logger.Infow("cleared query cache", "deleted_count", deleted)
	return nil
}

// GetStats counts cached entries for the stats API.
func (c *QueryCache) GetStats(ctx context.Context) (map[string]interface{}, error) {
	if !c.config.Enabled || c.redis == nil {
		return map[string]interface{}{"enabled": false}, nil
	}

	iter := c.redis.Scan(ctx, 0, c.config.KeyPrefix+"*", 0).Iterator()
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
	}, nil
}
