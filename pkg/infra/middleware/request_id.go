// Package middleware provides gin middlewares shared by the HTTP servers.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
)

// HeaderXRequestID is the request ID header name.
const HeaderXRequestID = "X-Request-ID"

// ContextKeyRequestID is the gin context key for the request ID.
const ContextKeyRequestID = "request_id"

// RequestID returns a middleware that attaches a unique request ID to each
// request. An incoming X-Request-ID header is honored so IDs propagate
// across services.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderXRequestID)
		if requestID == "" {
			requestID = ulid.Make().String()
		}

		c.Set(ContextKeyRequestID, requestID)
		c.Header(HeaderXRequestID, requestID)

		c.Next()
	}
}

// GetRequestID returns the request ID stored in the gin context, or an empty
// string when absent.
func GetRequestID(c *gin.Context) string {
	if id, ok := c.Get(ContextKeyRequestID); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
