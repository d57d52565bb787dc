package json

import (
	"bytes"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type answerPayload struct {
	Answer    string            `json:"answer"`
	Sources   []sourcePayload   `json:"sources"`
	SessionID string            `json:"session_id,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type sourcePayload struct {
	Text string `json:"text"`
	Link string `json:"link,omitempty"`
}

func TestMarshalUnmarshal(t *testing.T) {
	in := answerPayload{
		Answer: "Lesson 3 covers embeddings.",
		Sources: []sourcePayload{
			{Text: "Intro to ML - Lesson 3", Link: "https://example.com/l3"},
			{Text: "Intro to ML - Lesson 4"},
		},
		SessionID: "01J0000000000000000000AAAA",
	}

	data, err := Marshal(in)
	require.NoError(t, err)

	var out answerPayload
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestMarshalOmitsEmptyFields(t *testing.T) {
	data, err := Marshal(answerPayload{Answer: "hi"})
	require.NoError(t, err)

	assert.NotContains(t, string(data), "session_id")
	assert.NotContains(t, string(data), "metadata")
}

func TestEncoderDecoder(t *testing.T) {
	in := map[string]interface{}{
		"total_courses": 4,
		"course_titles": []string{"Intro to ML", "Advanced Go"},
	}

	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf).Encode(in))

	var out map[string]interface{}
	require.NoError(t, NewDecoder(strings.NewReader(buf.String())).Decode(&out))
	assert.Contains(t, out, "total_courses")
	assert.Contains(t, out, "course_titles")
}

func TestUnmarshalInvalidInput(t *testing.T) {
	var out answerPayload
	assert.Error(t, Unmarshal([]byte(`{"answer":`), &out))
}

func TestIsUsingSonic(t *testing.T) {
	expected := runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64"
	assert.Equal(t, expected, IsUsingSonic())
}

func TestConcurrentMarshalUnmarshal(t *testing.T) {
	const goroutines = 50
	const iterations = 100

	in := answerPayload{Answer: "ok", SessionID: "s1"}

	var wg sync.WaitGroup
	errs := make(chan error, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				data, err := Marshal(in)
				if err != nil {
					errs <- err
					return
				}
				var out answerPayload
				if err := Unmarshal(data, &out); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent marshal/unmarshal: %v", err)
	}
}
