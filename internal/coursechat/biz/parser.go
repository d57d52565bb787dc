package biz

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/coursechat-io/coursechat/internal/model"
)

// lessonMarker matches a lesson heading at line start, e.g. "Lesson 2: Topic".
var lessonMarker = regexp.MustCompile(`^[Ll]esson\s+(\d+):\s*(.*)$`)

// parsedLesson pairs lesson metadata with its raw content.
type parsedLesson struct {
	model.Lesson
	content string
}

// parsedDocument is the outcome of parsing one course document.
type parsedDocument struct {
	course  *model.Course
	lessons []parsedLesson
}

// ParseCourseDocument reads and parses one course document. The expected
// layout is a header block (Course Title / Course Link / Course
// Instructor, matched case-insensitively) followed by lesson sections
// introduced by "Lesson <n>: <title>" markers, each optionally followed
// by a "Lesson Link:" line. A missing title falls back to the file name.
func ParseCourseDocument(path string) (*parsedDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer func() { _ = f.Close() }()

	course := &model.Course{}
	var lessons []parsedLesson
	var content strings.Builder
	inLesson := false

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	flushLesson := func() {
		if !inLesson {
			return
		}
		lessons[len(lessons)-1].content = strings.TrimSpace(content.String())
		content.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()

		if !inLesson {
			if v, ok := headerValue(line, "Course Title:"); ok {
				course.Title = v
				continue
			}
			if v, ok := headerValue(line, "Course Link:"); ok {
				course.Link = v
				continue
			}
			if v, ok := headerValue(line, "Course Instructor:"); ok {
				course.Instructor = v
				continue
			}
		}

		if m := lessonMarker.FindStringSubmatch(line); m != nil {
			flushLesson()
			number, _ := strconv.Atoi(m[1])
			lessons = append(lessons, parsedLesson{
				Lesson: model.Lesson{Number: number, Title: strings.TrimSpace(m[2])},
			})
			inLesson = true
			continue
		}

		if inLesson && lessons[len(lessons)-1].content == "" && content.Len() == 0 {
			if v, ok := headerValue(line, "Lesson Link:"); ok {
				lessons[len(lessons)-1].Link = v
				continue
			}
		}

		if inLesson {
			if content.Len() == 0 && strings.TrimSpace(line) == "" {
				continue
			}
			content.WriteString(line)
			content.WriteString("\n")
		} else if strings.TrimSpace(line) != "" {
			// Text before the first lesson marker is course-level
			// content attributed to lesson 0.
			if len(lessons) == 0 {
				lessons = append(lessons, parsedLesson{
					Lesson: model.Lesson{Number: 0, Title: "Introduction"},
				})
				inLesson = true
			}
			content.WriteString(line)
			content.WriteString("\n")
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	flushLesson()

	if course.Title == "" {
		base := filepath.Base(path)
		course.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	for _, l := range lessons {
		course.Lessons = append(course.Lessons, l.Lesson)
	}

	return &parsedDocument{course: course, lessons: lessons}, nil
}

// headerValue extracts the value of a "Key: value" header line, matching
// the key case-insensitively.
func headerValue(line, key string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) < len(key) {
		return "", false
	}
	if !strings.EqualFold(trimmed[:len(key)], key) {
		return "", false
	}
	return strings.TrimSpace(trimmed[len(key):]), true
}
