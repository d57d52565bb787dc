package biz

import (
	"context"
	"fmt"
	"strings"

	"github.com/coursechat-io/coursechat/internal/coursechat/store"
	"github.com/coursechat-io/coursechat/internal/model"
	"github.com/coursechat-io/coursechat/pkg/llm"
)

// fakeVectorStore is an in-memory VectorStore for biz tests.
type fakeVectorStore struct {
	courses map[string]*model.Course
	chunks  []*store.CourseChunk

	searchResults []*store.SearchResult
	searchErr     error
	lastQuery     string
	lastCourse    string
	lastLesson    *int
	cleared       bool
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{courses: make(map[string]*model.Course)}
}

func (f *fakeVectorStore) EnsureCollections(context.Context) error { return nil }

func (f *fakeVectorStore) AddCourseMetadata(_ context.Context, course *model.Course) error {
	f.courses[course.Title] = course
	return nil
}

func (f *fakeVectorStore) AddCourseContent(_ context.Context, chunks []*store.CourseChunk) error {
	f.chunks = append(f.chunks, chunks...)
	return nil
}

func (f *fakeVectorStore) Search(_ context.Context, query, courseName string, lessonNumber *int, _ int) ([]*store.SearchResult, error) {
	f.lastQuery = query
	f.lastCourse = courseName
	f.lastLesson = lessonNumber
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if courseName != "" {
		if _, err := f.ResolveCourseName(context.Background(), courseName); err != nil {
			return nil, err
		}
	}
	return f.searchResults, nil
}

func (f *fakeVectorStore) ResolveCourseName(_ context.Context, name string) (string, error) {
	for title := range f.courses {
		if strings.Contains(strings.ToLower(title), strings.ToLower(name)) {
			return title, nil
		}
	}
	return "", fmt.Errorf("No course found matching '%s'", name)
}

func (f *fakeVectorStore) ExistingCourseTitles(context.Context) ([]string, error) {
	titles := make([]string, 0, len(f.courses))
	for title := range f.courses {
		titles = append(titles, title)
	}
	return titles, nil
}

func (f *fakeVectorStore) CourseCount(context.Context) (int, error) {
	return len(f.courses), nil
}

func (f *fakeVectorStore) CoursesMetadata(context.Context) ([]*model.Course, error) {
	courses := make([]*model.Course, 0, len(f.courses))
	for _, c := range f.courses {
		courses = append(courses, c)
	}
	return courses, nil
}

func (f *fakeVectorStore) CourseLink(_ context.Context, title string) (string, error) {
	if c, ok := f.courses[title]; ok {
		return c.Link, nil
	}
	return "", nil
}

func (f *fakeVectorStore) LessonLink(_ context.Context, title string, lesson int) (string, error) {
	if c, ok := f.courses[title]; ok {
		return c.LessonLink(lesson), nil
	}
	return "", nil
}

func (f *fakeVectorStore) DeleteCourse(_ context.Context, title string) error {
	delete(f.courses, title)
	kept := f.chunks[:0]
	for _, chunk := range f.chunks {
		if chunk.CourseTitle != title {
			kept = append(kept, chunk)
		}
	}
	f.chunks = kept
	return nil
}

func (f *fakeVectorStore) ClearAll(context.Context) error {
	f.courses = make(map[string]*model.Course)
	f.chunks = nil
	f.cleared = true
	return nil
}

func (f *fakeVectorStore) Stats(context.Context) (map[string]any, error) {
	return map[string]any{
		"total_courses": int64(len(f.courses)),
		"total_chunks":  int64(len(f.chunks)),
	}, nil
}

func (f *fakeVectorStore) Close() error { return nil }

// fakeEmbedder returns fixed-size zero vectors.
type fakeEmbedder struct {
	dim   int
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dim)
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) Name() string { return "fake-embed" }

// fakeChatProvider replays scripted responses in order.
type fakeChatProvider struct {
	responses []*llm.ChatResponse
	requests  []*llm.ChatRequest
	err       error
}

func (f *fakeChatProvider) Chat(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return &llm.ChatResponse{Content: "done", StopReason: llm.StopEndTurn}, nil
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func (f *fakeChatProvider) Generate(ctx context.Context, prompt, system string) (*llm.GenerateResponse, error) {
	resp, err := f.Chat(ctx, &llm.ChatRequest{System: system, Messages: []llm.Message{{Role: llm.RoleUser, Content: prompt}}})
	if err != nil {
		return nil, err
	}
	return &llm.GenerateResponse{Content: resp.Content, TokenUsage: resp.TokenUsage}, nil
}

func (f *fakeChatProvider) Name() string { return "fake-chat" }
