// Package router wires the course assistant routes.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/coursechat-io/coursechat/internal/coursechat/handler"
	"github.com/coursechat-io/coursechat/pkg/logger"
)

// Register registers all routes on the engine.
func Register(engine *gin.Engine, h *handler.Handler) {
	logger.Info("Registering routes...")

	engine.GET("/healthz", h.Healthz)
	engine.GET("/readyz", h.Readyz)
	engine.GET("/metrics", h.Metrics)

	api := engine.Group("/api")
	{
		api.POST("/query", h.Query)
		api.GET("/courses", h.Courses)
		api.DELETE("/courses/:title", h.DeleteCourse)

		sessions := api.Group("/sessions")
		{
			sessions.POST("", h.CreateSession)
			sessions.DELETE("/:id", h.DeleteSession)
		}

		documents := api.Group("/documents")
		{
			documents.POST("", h.IngestDocument)
			documents.POST("/folder", h.IngestFolder)
		}

		api.GET("/stats", h.Stats)
	}

	logger.Info("HTTP routes registered")
}
