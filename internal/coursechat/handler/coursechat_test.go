package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursechat-io/coursechat/internal/coursechat/handler"
	"github.com/coursechat-io/coursechat/internal/coursechat/router"
	"github.com/coursechat-io/coursechat/internal/coursechat/store"
	"github.com/coursechat-io/coursechat/internal/model"
)

type stubService struct {
	queryResult *model.QueryResult
	queryErr    error
	queryDelay  time.Duration

	analytics *model.Analytics

	deletedCourse  string
	deletedSession string
	ingestedPath   string
	ingestedDir    string
	clearExisting  bool
}

func (s *stubService) Query(ctx context.Context, question, sessionID string) (*model.QueryResult, error) {
	if s.queryDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.queryDelay):
		}
	}
	return s.queryResult, s.queryErr
}

func (s *stubService) IngestFile(_ context.Context, path string) (*model.Course, int, error) {
	s.ingestedPath = path
	return &model.Course{Title: "Go Basics"}, 7, nil
}

func (s *stubService) IngestDirectory(_ context.Context, dir string, clearExisting bool) (int, int, error) {
	s.ingestedDir = dir
	s.clearExisting = clearExisting
	return 2, 14, nil
}

func (s *stubService) DeleteCourse(_ context.Context, title string) error {
	s.deletedCourse = title
	return nil
}

func (s *stubService) Analytics(_ context.Context) (*model.Analytics, error) {
	return s.analytics, nil
}

func (s *stubService) Stats(_ context.Context) (map[string]any, error) {
	return map[string]any{"total_courses": int64(2)}, nil
}

func (s *stubService) CreateSession() string { return "01TESTSESSION" }
func (s *stubService) ClearSession(string)   {}
func (s *stubService) DeleteSession(id string) {
	s.deletedSession = id
}

type stubStore struct {
	store.VectorStore
	countErr error
}

func (s *stubStore) CourseCount(_ context.Context) (int, error) {
	return 2, s.countErr
}

func newTestRouter(svc *stubService, vs store.VectorStore, timeout time.Duration) *gin.Engine {
	return newTestRouterWithCache(svc, vs, timeout, nil)
}

func newTestRouterWithCache(svc *stubService, vs store.VectorStore, timeout time.Duration, cachePing func(context.Context) error) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	router.Register(engine, handler.NewHandler(svc, vs, timeout, cachePing))
	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(data)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestQuery_FlatPayload(t *testing.T) {
	svc := &stubService{
		queryResult: &model.QueryResult{
			Answer:    "Lesson 1 introduces Go.",
			Sources:   []model.QuerySource{{Text: "Go Basics - Lesson 1"}},
			SessionID: "01TESTSESSION",
		},
	}
	engine := newTestRouter(svc, &stubStore{}, time.Second)

	w := doJSON(t, engine, http.MethodPost, "/api/query", gin.H{"query": "what is go"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Answer    string              `json:"answer"`
		Sources   []model.QuerySource `json:"sources"`
		SessionID string              `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Lesson 1 introduces Go.", resp.Answer)
	assert.Equal(t, "01TESTSESSION", resp.SessionID)
	require.Len(t, resp.Sources, 1)
}

func TestQuery_MissingQuery(t *testing.T) {
	engine := newTestRouter(&stubService{}, &stubStore{}, time.Second)

	w := doJSON(t, engine, http.MethodPost, "/api/query", gin.H{"session_id": "s1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuery_Timeout(t *testing.T) {
	svc := &stubService{queryDelay: 200 * time.Millisecond}
	engine := newTestRouter(svc, &stubStore{}, 20*time.Millisecond)

	w := doJSON(t, engine, http.MethodPost, "/api/query", gin.H{"query": "slow"})
	require.Equal(t, http.StatusRequestTimeout, w.Code)
	assert.Contains(t, w.Body.String(), "Query timeout")
}

func TestQuery_ServiceError(t *testing.T) {
	svc := &stubService{queryErr: errors.New("provider unavailable")}
	engine := newTestRouter(svc, &stubStore{}, time.Second)

	w := doJSON(t, engine, http.MethodPost, "/api/query", gin.H{"query": "boom"})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "provider unavailable")
}

func TestCourses_FlatPayload(t *testing.T) {
	svc := &stubService{
		analytics: &model.Analytics{
			TotalCourses: 2,
			CourseTitles: []string{"Go Basics", "Intro to ML"},
		},
	}
	engine := newTestRouter(svc, &stubStore{}, time.Second)

	w := doJSON(t, engine, http.MethodGet, "/api/courses", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		TotalCourses int      `json:"total_courses"`
		CourseTitles []string `json:"course_titles"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.TotalCourses)
	assert.Equal(t, []string{"Go Basics", "Intro to ML"}, resp.CourseTitles)
}

func TestSessionLifecycle(t *testing.T) {
	svc := &stubService{}
	engine := newTestRouter(svc, &stubStore{}, time.Second)

	w := doJSON(t, engine, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "01TESTSESSION")

	w = doJSON(t, engine, http.MethodDelete, "/api/sessions/01TESTSESSION", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "01TESTSESSION", svc.deletedSession)
}

func TestIngestDocument(t *testing.T) {
	svc := &stubService{}
	engine := newTestRouter(svc, &stubStore{}, time.Second)

	w := doJSON(t, engine, http.MethodPost, "/api/documents", gin.H{"path": "/docs/go.txt"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/docs/go.txt", svc.ingestedPath)
	assert.Contains(t, w.Body.String(), "Go Basics")

	w = doJSON(t, engine, http.MethodPost, "/api/documents", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngestFolder(t *testing.T) {
	svc := &stubService{}
	engine := newTestRouter(svc, &stubStore{}, time.Second)

	w := doJSON(t, engine, http.MethodPost, "/api/documents/folder", gin.H{
		"directory":      "/docs",
		"clear_existing": true,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/docs", svc.ingestedDir)
	assert.True(t, svc.clearExisting)
}

func TestDeleteCourse(t *testing.T) {
	svc := &stubService{}
	engine := newTestRouter(svc, &stubStore{}, time.Second)

	w := doJSON(t, engine, http.MethodDelete, "/api/courses/Go%20Basics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Go Basics", svc.deletedCourse)
}

func TestStatsEnvelope(t *testing.T) {
	engine := newTestRouter(&stubService{}, &stubStore{}, time.Second)

	w := doJSON(t, engine, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code    int            `json:"code"`
		Message string         `json:"message"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
	assert.Contains(t, resp.Data, "total_courses")
}

func TestHealthAndReadiness(t *testing.T) {
	engine := newTestRouter(&stubService{}, &stubStore{}, time.Second)

	w := doJSON(t, engine, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, engine, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	down := &stubStore{countErr: errors.New("milvus unreachable")}
	engine = newTestRouter(&stubService{}, down, time.Second)
	w = doJSON(t, engine, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReadiness_CachePing(t *testing.T) {
	healthy := func(context.Context) error { return nil }
	engine := newTestRouterWithCache(&stubService{}, &stubStore{}, time.Second, healthy)
	w := doJSON(t, engine, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	unhealthy := func(context.Context) error { return errors.New("redis unreachable") }
	engine = newTestRouterWithCache(&stubService{}, &stubStore{}, time.Second, unhealthy)
	w = doJSON(t, engine, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "redis unreachable")
}
