package model

// Lesson is a single lesson within a course.
type Lesson struct {
	// Number is the lesson number, starting at 0.
	Number int `json:"number"`
	// Title is the lesson title.
	Title string `json:"title"`
	// Link is the lesson URL, if present in the source document.
	Link string `json:"link,omitempty"`
}

// Course holds the metadata parsed from one course document. The title is
// the unique identifier across the catalog.
type Course struct {
	// Title is the course title.
	Title string `json:"title"`
	// Link is the course URL.
	Link string `json:"link,omitempty"`
	// Instructor is the course instructor name.
	Instructor string `json:"instructor,omitempty"`
	// Lessons is the ordered lesson list.
	Lessons []Lesson `json:"lessons"`
}

// LessonLink returns the link of the lesson with the given number, or an
// empty string when the lesson is absent or has no link.
func (c *Course) LessonLink(number int) string {
	for _, l := range c.Lessons {
		if l.Number == number {
			return l.Link
		}
	}
	return ""
}

// QuerySource is one citation attached to an answer.
type QuerySource struct {
	// Text is the display label, e.g. "Building AI Apps - Lesson 3".
	Text string `json:"text"`
	// Link is the lesson or course URL when resolvable.
	Link string `json:"link,omitempty"`
}

// QueryResult is the outcome of one question round trip.
type QueryResult struct {
	// Answer is the generated answer text.
	Answer string `json:"answer"`
	// Sources lists the citations collected from tool executions, in
	// retrieval order.
	Sources []QuerySource `json:"sources"`
	// SessionID identifies the conversation the exchange belongs to.
	SessionID string `json:"session_id,omitempty"`
}

// Analytics is the course catalog summary served to the UI.
type Analytics struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}
