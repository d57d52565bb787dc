package biz

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coursechat-io/coursechat/internal/coursechat/metrics"
	"github.com/coursechat-io/coursechat/internal/coursechat/store"
	"github.com/coursechat-io/coursechat/internal/model"
	"github.com/coursechat-io/coursechat/pkg/llm"
	"github.com/coursechat-io/coursechat/pkg/logger"
)

// Tool is a retrieval capability the LLM can call during generation.
// Execute returns plain text fed back to the model; sources collected
// during the last execution are exposed for citation.
type Tool interface {
	// Definition describes the tool to the LLM.
	Definition() llm.ToolDefinition

	// Execute runs the tool with the model-provided arguments.
	Execute(ctx context.Context, args map[string]any) string

	// LastSources returns citations from the most recent execution.
	LastSources() []model.QuerySource

	// ResetSources clears the tracked citations.
	ResetSources()
}

// ToolManager registers tools and dispatches execution by name.
type ToolManager struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewToolManager creates an empty ToolManager.
func NewToolManager() *ToolManager {
	return &ToolManager{tools: make(map[string]Tool)}
}

// Register adds a tool under its definition name.
func (m *ToolManager) Register(tool Tool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tools[tool.Definition().Name] = tool
}

// Definitions lists all registered tool definitions for the LLM call.
func (m *ToolManager) Definitions() []llm.ToolDefinition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	defs := make([]llm.ToolDefinition, 0, len(m.tools))
	for _, tool := range m.tools {
		defs = append(defs, tool.Definition())
	}
	return defs
}

// ExecuteTool dispatches one tool call by name.
func (m *ToolManager) ExecuteTool(ctx context.Context, name string, args map[string]any) string {
	m.mu.RLock()
	tool, ok := m.tools[name]
	m.mu.RUnlock()
	if !ok {
		return fmt.Sprintf("Tool '%s' not found", name)
	}
	return tool.Execute(ctx, args)
}

// LastSources aggregates citations from every registered tool.
func (m *ToolManager) LastSources() []model.QuerySource {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sources []model.QuerySource
	for _, tool := range m.tools {
		sources = append(sources, tool.LastSources()...)
	}
	return sources
}

// ResetSources clears citations on every registered tool.
func (m *ToolManager) ResetSources() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, tool := range m.tools {
		tool.ResetSources()
	}
}

// CourseSearchTool searches course content with smart course name
// matching and optional lesson filtering.
type CourseSearchTool struct {
	store      store.VectorStore
	maxResults int
	metrics    *metrics.Metrics

	mu      sync.Mutex
	sources []model.QuerySource
}

var _ Tool = (*CourseSearchTool)(nil)

// NewCourseSearchTool creates the content search tool.
func NewCourseSearchTool(vectorStore store.VectorStore, maxResults int) *CourseSearchTool {
	return &CourseSearchTool{
		store:      vectorStore,
		maxResults: maxResults,
		metrics:    metrics.Get(),
	}
}

// Definition describes the search tool to the LLM.
func (t *CourseSearchTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "search_course_content",
		Description: "Search course materials with smart course name matching and lesson filtering",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "What to search for in the course content",
				},
				"course_name": map[string]any{
					"type":        "string",
					"description": "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
				},
				"lesson_number": map[string]any{
					"type":        "integer",
					"description": "Specific lesson number to search within (e.g. 1, 2, 3)",
				},
			},
			"required": []string{"query"},
		},
	}
}

// Execute runs the search. Store failures are returned as the tool
// result so the model can tell the user what went wrong.
func (t *CourseSearchTool) Execute(ctx context.Context, args map[string]any) string {
	query, _ := args["query"].(string)
	if query == "" {
		return "Error: query parameter is required"
	}
	courseName, _ := args["course_name"].(string)

	var lessonNumber *int
	// JSON numbers arrive as float64.
	if v, ok := args["lesson_number"].(float64); ok {
		n := int(v)
		lessonNumber = &n
	}

	start := time.Now()
	results, err := t.store.Search(ctx, query, courseName, lessonNumber, t.maxResults)
	t.metrics.RecordSearch(time.Since(start), err)
	if err != nil {
		return err.Error()
	}

	if len(results) == 0 {
		var filters []string
		if courseName != "" {
			filters = append(filters, fmt.Sprintf("in course '%s'", courseName))
		}
		if lessonNumber != nil {
			filters = append(filters, fmt.Sprintf("in lesson %d", *lessonNumber))
		}
		if len(filters) > 0 {
			return fmt.Sprintf("No relevant content found %s.", strings.Join(filters, " "))
		}
		return "No relevant content found."
	}

	return t.formatResults(ctx, results)
}

// formatResults renders hits with course and lesson context headers and
// tracks citations for the answer.
func (t *CourseSearchTool) formatResults(ctx context.Context, results []*store.SearchResult) string {
	formatted := make([]string, 0, len(results))
	sources := make([]model.QuerySource, 0, len(results))

	for _, result := range results {
		header := fmt.Sprintf("[%s]", result.CourseTitle)
		source := model.QuerySource{Text: result.CourseTitle}
		if result.LessonNumber >= 0 {
			header = fmt.Sprintf("[%s - Lesson %d]", result.CourseTitle, result.LessonNumber)
			source.Text = fmt.Sprintf("%s - Lesson %d", result.CourseTitle, result.LessonNumber)
			link, err := t.store.LessonLink(ctx, result.CourseTitle, result.LessonNumber)
			if err != nil {
				logger.Debugw("lesson link lookup failed",
					"course", result.CourseTitle,
					"lesson", result.LessonNumber,
					"error", err.Error(),
				)
			}
			if link == "" {
				// Lesson has no link of its own, cite the course page.
				link, _ = t.store.CourseLink(ctx, result.CourseTitle)
			}
			source.Link = link
		}
		formatted = append(formatted, header+"\n"+result.Content)
		sources = append(sources, source)
	}

	t.mu.Lock()
	t.sources = sources
	t.mu.Unlock()

	return strings.Join(formatted, "\n\n")
}

// LastSources returns citations from the most recent execution.
func (t *CourseSearchTool) LastSources() []model.QuerySource {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sources
}

// ResetSources clears the tracked citations.
func (t *CourseSearchTool) ResetSources() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sources = nil
}

// CourseOutlineTool returns a course outline: title, link and the full
// numbered lesson list.
type CourseOutlineTool struct {
	store store.VectorStore

	mu      sync.Mutex
	sources []model.QuerySource
}

var _ Tool = (*CourseOutlineTool)(nil)

// NewCourseOutlineTool creates the outline tool.
func NewCourseOutlineTool(vectorStore store.VectorStore) *CourseOutlineTool {
	return &CourseOutlineTool{store: vectorStore}
}

// Definition describes the outline tool to the LLM.
func (t *CourseOutlineTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "get_course_outline",
		Description: "Get the complete outline of a course: title, link and all lesson titles",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"course_title": map[string]any{
					"type":        "string",
					"description": "Course title (partial matches work)",
				},
			},
			"required": []string{"course_title"},
		},
	}
}

// Execute resolves the course and renders its outline.
func (t *CourseOutlineTool) Execute(ctx context.Context, args map[string]any) string {
	title, _ := args["course_title"].(string)
	if title == "" {
		return "Error: course_title parameter is required"
	}

	resolved, err := t.store.ResolveCourseName(ctx, title)
	if err != nil {
		return err.Error()
	}

	courses, err := t.store.CoursesMetadata(ctx)
	if err != nil {
		return err.Error()
	}

	var course *model.Course
	for _, c := range courses {
		if c.Title == resolved {
			course = c
			break
		}
	}
	if course == nil {
		return fmt.Sprintf("No course found matching '%s'", title)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Course: %s\n", course.Title))
	if course.Link != "" {
		sb.WriteString(fmt.Sprintf("Course Link: %s\n", course.Link))
	}
	if course.Instructor != "" {
		sb.WriteString(fmt.Sprintf("Instructor: %s\n", course.Instructor))
	}
	sb.WriteString(fmt.Sprintf("Lessons (%d):\n", len(course.Lessons)))
	for _, lesson := range course.Lessons {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", lesson.Number, lesson.Title))
	}

	t.mu.Lock()
	t.sources = []model.QuerySource{{Text: course.Title, Link: course.Link}}
	t.mu.Unlock()

	return sb.String()
}

// LastSources returns citations from the most recent execution.
func (t *CourseOutlineTool) LastSources() []model.QuerySource {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sources
}

// ResetSources clears the tracked citations.
func (t *CourseOutlineTool) ResetSources() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sources = nil
}
