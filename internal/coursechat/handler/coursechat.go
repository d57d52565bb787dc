// Package handler provides the HTTP handlers of the course assistant.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/coursechat-io/coursechat/internal/coursechat/biz"
	"github.com/coursechat-io/coursechat/internal/coursechat/metrics"
	"github.com/coursechat-io/coursechat/internal/coursechat/store"
)

// Handler handles the course assistant HTTP requests.
type Handler struct {
	service      biz.Service
	store        store.VectorStore
	queryTimeout time.Duration
	cachePing    func(context.Context) error
}

// NewHandler creates a Handler. queryTimeout bounds the /api/query
// round trip. cachePing checks the query cache backend for readiness;
// pass nil when caching is disabled.
func NewHandler(service biz.Service, vectorStore store.VectorStore, queryTimeout time.Duration, cachePing func(context.Context) error) *Handler {
	return &Handler{
		service:      service,
		store:        vectorStore,
		queryTimeout: queryTimeout,
		cachePing:    cachePing,
	}
}

// SuccessResponse is a standard success response.
type SuccessResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// QueryRequest represents a question from the UI.
type QueryRequest struct {
	Query     string `json:"query" binding:"required"`
	SessionID string `json:"session_id"`
}

// Query answers one question. The payload shape matches the chat UI:
// answer, sources and session id at the top level.
func (h *Handler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.queryTimeout)
	defer cancel()

	result, err := h.service.Query(ctx, req.Query, req.SessionID)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			c.JSON(http.StatusRequestTimeout, ErrorResponse{
				Code:    408,
				Message: "Query timeout: the request took too long to process. Please try again or simplify your question.",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Courses returns the catalog summary. Payload shape matches the UI.
func (h *Handler) Courses(c *gin.Context) {
	analytics, err := h.service.Analytics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, analytics)
}

// CreateSession allocates a new conversation session.
func (h *Handler) CreateSession(c *gin.Context) {
	id := h.service.CreateSession()
	c.JSON(http.StatusOK, SuccessResponse{
		Code:    0,
		Message: "success",
		Data:    gin.H{"session_id": id},
	})
}

// DeleteSession clears and removes a conversation session.
func (h *Handler) DeleteSession(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: "session id is required"})
		return
	}
	h.service.DeleteSession(id)
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "Session deleted"})
}

// IngestDocumentRequest points at one course document on disk.
type IngestDocumentRequest struct {
	Path string `json:"path" binding:"required"`
}

// IngestDocument ingests one course document.
func (h *Handler) IngestDocument(c *gin.Context) {
	var req IngestDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	course, chunks, err := h.service.IngestFile(c.Request.Context(), req.Path)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Code:    0,
		Message: "Document ingested successfully",
		Data: gin.H{
			"course_title": course.Title,
			"chunks_added": chunks,
		},
	})
}

// IngestFolderRequest points at a folder of course documents.
type IngestFolderRequest struct {
	Directory     string `json:"directory" binding:"required"`
	ClearExisting bool   `json:"clear_existing"`
}

// IngestFolder ingests every course document in a folder.
func (h *Handler) IngestFolder(c *gin.Context) {
	var req IngestFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	courses, chunks, err := h.service.IngestDirectory(c.Request.Context(), req.Directory, req.ClearExisting)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Code:    0,
		Message: "Folder ingested successfully",
		Data: gin.H{
			"courses_added": courses,
			"chunks_added":  chunks,
		},
	})
}

// DeleteCourse removes a course and all of its chunks.
func (h *Handler) DeleteCourse(c *gin.Context) {
	title := c.Param("title")
	if title == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: "course title is required"})
		return
	}

	if err := h.service.DeleteCourse(c.Request.Context(), title); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "Course deleted successfully"})
}

// Stats returns knowledge base statistics.
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: stats})
}

// Metrics renders the business counters in Prometheus text format.
func (h *Handler) Metrics(c *gin.Context) {
	c.String(http.StatusOK, metrics.Get().Export("coursechat"))
}

// Healthz reports process liveness.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz reports readiness: the vector store must answer, and so must
// the cache backend when caching is enabled.
func (h *Handler) Readyz(c *gin.Context) {
	if _, err := h.store.CourseCount(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	if h.cachePing != nil {
		if err := h.cachePing(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"error":  "cache: " + err.Error(),
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
