package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/coursechat-io/coursechat/pkg/logger"
)

// fieldsPool reuses fields slices to keep per-request allocations down.
var fieldsPool = sync.Pool{
	New: func() interface{} {
		s := make([]interface{}, 0, 16)
		return &s
	},
}

// LoggerConfig defines the config for the Logger middleware.
type LoggerConfig struct {
	// SkipPaths is a list of paths to skip logging.
	SkipPaths []string
}

// DefaultLoggerConfig skips the health probe paths.
var DefaultLoggerConfig = LoggerConfig{
	SkipPaths: []string{"/healthz", "/metrics"},
}

// Logger returns a middleware that logs HTTP requests with the structured
// global logger.
func Logger() gin.HandlerFunc {
	return LoggerWithConfig(DefaultLoggerConfig)
}

// LoggerWithConfig returns a Logger middleware with custom config.
func LoggerWithConfig(config LoggerConfig) gin.HandlerFunc {
	skipPaths := make(map[string]bool, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skipPaths[path] = true
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if skipPaths[path] {
			c.Next()
			return
		}

		start := time.Now()

		c.Next()

		latency := time.Since(start)

		fields := fieldsPool.Get().(*[]interface{})
		defer func() {
			*fields = (*fields)[:0]
			fieldsPool.Put(fields)
		}()

		*fields = append(*fields,
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"remote_addr", c.ClientIP(),
			"latency", latency.String(),
			"latency_ms", latency.Milliseconds(),
		)
		if requestID := GetRequestID(c); requestID != "" {
			*fields = append(*fields, "request_id", requestID)
		}
		if len(c.Errors) > 0 {
			*fields = append(*fields, "errors", c.Errors.String())
		}

		logger.Infow("HTTP Request", (*fields)...)
	}
}
