// Package coursechat provides the course assistant server implementation.
package coursechat

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"

	"github.com/coursechat-io/coursechat/internal/coursechat/biz"
	"github.com/coursechat-io/coursechat/internal/coursechat/handler"
	"github.com/coursechat-io/coursechat/internal/coursechat/router"
	"github.com/coursechat-io/coursechat/internal/coursechat/store"
	"github.com/coursechat-io/coursechat/pkg/component/milvus"
	"github.com/coursechat-io/coursechat/pkg/component/storage"
	"github.com/coursechat-io/coursechat/pkg/infra/app"
	"github.com/coursechat-io/coursechat/pkg/infra/middleware"
	"github.com/coursechat-io/coursechat/pkg/infra/pool"
	"github.com/coursechat-io/coursechat/pkg/infra/server"
	"github.com/coursechat-io/coursechat/pkg/llm"
	"github.com/coursechat-io/coursechat/pkg/llm/resilience"
	"github.com/coursechat-io/coursechat/pkg/logger"

	// Register LLM providers.
	_ "github.com/coursechat-io/coursechat/pkg/llm/anthropic"
	_ "github.com/coursechat-io/coursechat/pkg/llm/ollama"
	_ "github.com/coursechat-io/coursechat/pkg/llm/openai"

	cacheopts "github.com/coursechat-io/coursechat/pkg/options/cache"
	ccopts "github.com/coursechat-io/coursechat/pkg/options/coursechat"
	httpopts "github.com/coursechat-io/coursechat/pkg/options/http"
	llmopts "github.com/coursechat-io/coursechat/pkg/options/llm"
	logopts "github.com/coursechat-io/coursechat/pkg/options/logger"
	milvusopts "github.com/coursechat-io/coursechat/pkg/options/milvus"
)

// Name is the name of the application.
const Name = "coursechat"

// sweepInterval is how often idle sessions are swept.
const sweepInterval = 5 * time.Minute

// Config contains application-related configurations.
type Config struct {
	HTTPOptions       *httpopts.Options
	LogOptions        *logopts.Options
	MilvusOptions     *milvusopts.Options
	EmbeddingOptions  *llmopts.ProviderOptions
	ChatOptions       *llmopts.ProviderOptions
	CourseChatOptions *ccopts.Options
	CacheOptions      *cacheopts.Options
}

// Server is the assembled course assistant server.
type Server struct {
	srv        *server.Server
	service    *biz.CourseService
	watcher    *biz.DocsWatcher
	components *storage.Manager

	redisClose func()
}

// NewServer initializes and returns a new Server instance.
func (cfg *Config) NewServer(_ context.Context) (*Server, error) {
	printBanner(cfg)

	// 1. Initialize the logger
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Infow("Starting course assistant...",
		"service.name", Name,
		"service.version", app.GetVersion(),
	)

	// 2. Initialize the worker pools
	if err := pool.InitGlobal(); err != nil {
		return nil, fmt.Errorf("failed to initialize worker pools: %w", err)
	}
	logger.Info("Worker pools initialized")

	// 3. Initialize the Milvus client and register it for health checks
	milvusClient, err := milvus.New(cfg.MilvusOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize milvus: %w", err)
	}
	components := storage.NewManager()
	components.MustRegister("milvus", milvusClient)
	if status := components.HealthCheck(context.Background(), "milvus"); !status.Healthy {
		logger.Warnw("milvus health check failed", "error", status.Error)
	}
	logger.Info("Milvus client initialized")

	// 4. Initialize the Redis client for the query and embedding caches
	var redisClient *goredis.Client
	var queryCache *biz.QueryCache
	var redisClose func()
	if cfg.CacheOptions.Enabled {
		redisOpts := cfg.CacheOptions.Redis
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:         redisOpts.Addr(),
			Password:     redisOpts.Password,
			DB:           redisOpts.Database,
			MaxRetries:   redisOpts.MaxRetries,
			PoolSize:     redisOpts.PoolSize,
			MinIdleConns: redisOpts.MinIdleConns,
		})

		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warnw("failed to connect to redis, caches will be disabled", "error", err.Error())
			_ = redisClient.Close()
			redisClient = nil
		} else {
			queryCache = biz.NewQueryCache(redisClient, &biz.QueryCacheConfig{
				Enabled:   true,
				TTL:       cfg.CacheOptions.TTL,
				KeyPrefix: cfg.CacheOptions.KeyPrefix,
			})
			redisClose = func() { _ = redisClient.Close() }
			logger.Infow("Redis caches initialized",
				"addr", redisOpts.Addr(),
				"ttl", cfg.CacheOptions.TTL,
			)
		}
	} else {
		logger.Info("Cache is disabled")
	}

	// 5. Initialize the LLM providers, wrapped with retry and circuit
	// breaking, embeddings additionally with the Redis cache
	embedProvider, err := llm.NewEmbeddingProvider(cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	var embed llm.EmbeddingProvider = resilience.NewResilientEmbeddingProvider(embedProvider, nil, nil)
	if redisClient != nil {
		embed = llm.NewCachedEmbeddingProvider(embed, redisClient, nil)
	}
	logger.Infow("Embedding provider initialized",
		"provider", cfg.EmbeddingOptions.Provider,
		"model", cfg.EmbeddingOptions.Model,
		"cached", redisClient != nil,
	)

	chatProvider, err := llm.NewChatProvider(cfg.ChatOptions.Provider, cfg.ChatOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat provider: %w", err)
	}
	chat := resilience.NewResilientChatProvider(chatProvider, nil, nil)
	logger.Infow("Chat provider initialized",
		"provider", cfg.ChatOptions.Provider,
		"model", cfg.ChatOptions.Model,
	)

	// 6. Initialize the store layer
	vectorStore := store.NewMilvusStore(milvusClient, embed, &store.Config{
		CatalogCollection: cfg.CourseChatOptions.CatalogCollection,
		ContentCollection: cfg.CourseChatOptions.ContentCollection,
		EmbeddingDim:      cfg.CourseChatOptions.EmbeddingDim,
	})
	if err := vectorStore.EnsureCollections(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ensure collections: %w", err)
	}
	logger.Info("Vector store initialized")

	// 7. Initialize the biz layer
	serviceConfig := &biz.ServiceConfig{
		IndexerConfig: &biz.IndexerConfig{
			ChunkSize:    cfg.CourseChatOptions.ChunkSize,
			ChunkOverlap: cfg.CourseChatOptions.ChunkOverlap,
		},
		GeneratorConfig: &biz.GeneratorConfig{
			MaxTokens: 800,
		},
		SessionConfig: &biz.SessionManagerConfig{
			MaxHistory:  cfg.CourseChatOptions.MaxHistory,
			MaxSessions: cfg.CourseChatOptions.MaxSessions,
			IdleTimeout: cfg.CourseChatOptions.SessionIdleTimeout,
		},
		MaxResults: cfg.CourseChatOptions.MaxResults,
	}
	service := biz.NewCourseService(vectorStore, embed, chat, queryCache, serviceConfig)
	service.Sessions().StartSweeper(sweepInterval)
	logger.Infow("Course service initialized",
		"cache.enabled", cfg.CacheOptions.Enabled,
		"max_results", cfg.CourseChatOptions.MaxResults,
	)

	// 8. Ingest the docs folder on startup and optionally watch it
	var watcher *biz.DocsWatcher
	if dir := cfg.CourseChatOptions.DocsDir; dir != "" {
		if _, err := os.Stat(dir); err == nil {
			startupTask := func() {
				courses, chunks, err := service.IngestDirectory(context.Background(), dir, false)
				if err != nil {
					logger.Warnw("startup ingestion failed", "dir", dir, "error", err.Error())
					return
				}
				logger.Infow("startup ingestion finished", "courses", courses, "chunks", chunks)
			}
			if err := pool.SubmitToType(pool.IngestPool, startupTask); err != nil {
				logger.Warnw("ingest pool unavailable, ingesting inline", "error", err.Error())
				startupTask()
			}

			if cfg.CourseChatOptions.WatchDocs {
				watcher, err = biz.NewDocsWatcher(service.Indexer(), dir)
				if err != nil {
					logger.Warnw("failed to start docs watcher", "error", err.Error())
				} else {
					watcher.Start()
				}
			}
		} else {
			logger.Warnw("docs directory not found, skipping startup ingestion", "dir", dir)
		}
	}

	// 9. Initialize the handler layer
	var cachePing func(context.Context) error
	if redisClient != nil {
		cachePing = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	h := handler.NewHandler(service, vectorStore, cfg.CourseChatOptions.QueryTimeout, cachePing)
	logger.Info("Handler layer initialized")

	// 10. Initialize the HTTP server and register routes
	middlewares := []gin.HandlerFunc{
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
	}
	if cfg.HTTPOptions.EnableCORS {
		middlewares = append(middlewares, middleware.CORS())
	}
	middlewares = append(middlewares, middleware.Timeout(cfg.HTTPOptions.WriteTimeout))
	srv := server.New(cfg.HTTPOptions, middlewares...)
	router.Register(srv.Engine(), h)

	logger.Info("Course assistant is ready")
	return &Server{
		srv:        srv,
		service:    service,
		watcher:    watcher,
		components: components,
		redisClose: redisClose,
	}, nil
}

// Run starts the server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	defer func() {
		if s.watcher != nil {
			_ = s.watcher.Close()
		}
		s.service.Sessions().Close()
		_ = pool.CloseGlobal()
		if s.redisClose != nil {
			s.redisClose()
		}
		if err := s.components.CloseAll(); err != nil {
			logger.Warnw("failed to close storage clients", "error", err.Error())
		}
		_ = logger.Sync()
	}()
	return s.srv.Run(ctx)
}

func printBanner(cfg *Config) {
	fmt.Printf("Starting %s...\n", Name)
	fmt.Printf("  Embedding: %s (%s)\n", cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.Model)
	fmt.Printf("  Chat: %s (%s)\n", cfg.ChatOptions.Provider, cfg.ChatOptions.Model)
	fmt.Printf("  Listening: %s\n", cfg.HTTPOptions.Addr)
}
