package biz

import (
	"regexp"
	"strings"
)

// sentenceBoundary matches the end of a sentence: terminal punctuation
// followed by whitespace or end of text.
var sentenceBoundary = regexp.MustCompile(`[.!?]+(?:\s+|$)`)

// whitespaceRun collapses internal whitespace before chunking.
var whitespaceRun = regexp.MustCompile(`\s+`)

// Chunker splits text into sentence-aligned chunks with overlap.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a Chunker. chunkOverlap must be smaller than
// chunkSize; the options layer validates this.
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// SplitSentences normalizes whitespace and splits text on sentence
// boundaries. Text with no terminal punctuation is a single sentence.
func (c *Chunker) SplitSentences(text string) []string {
	text = whitespaceRun.ReplaceAllString(strings.TrimSpace(text), " ")
	if text == "" {
		return nil
	}

	bounds := sentenceBoundary.FindAllStringIndex(text, -1)
	if len(bounds) == 0 {
		return []string{text}
	}

	sentences := make([]string, 0, len(bounds)+1)
	start := 0
	for _, b := range bounds {
		sentence := strings.TrimSpace(text[start:b[1]])
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = b[1]
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

// Chunk packs sentences greedily into chunks of at most chunkSize
// characters, carrying chunkOverlap characters of trailing sentences
// into the next chunk. Sentences longer than chunkSize are hard-wrapped.
func (c *Chunker) Chunk(text string) []string {
	sentences := c.SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	curLen := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, " "))
		current = c.overlapTail(current)
		curLen = joinedLen(current)
	}

	for _, sentence := range sentences {
		if len(sentence) > c.chunkSize {
			flush()
			current = nil
			curLen = 0
			chunks = append(chunks, hardWrap(sentence, c.chunkSize)...)
			continue
		}

		if curLen > 0 && curLen+1+len(sentence) > c.chunkSize {
			flush()
			// The overlap tail plus the new sentence may still not fit.
			for curLen > 0 && curLen+1+len(sentence) > c.chunkSize {
				current = current[1:]
				curLen = joinedLen(current)
			}
		}

		current = append(current, sentence)
		if curLen == 0 {
			curLen = len(sentence)
		} else {
			curLen += 1 + len(sentence)
		}
	}

	if len(current) > 0 {
		// Avoid emitting a chunk that is only the overlap of the
		// previous one.
		joined := strings.Join(current, " ")
		if len(chunks) == 0 || !strings.HasSuffix(chunks[len(chunks)-1], joined) {
			chunks = append(chunks, joined)
		}
	}

	return chunks
}

// overlapTail returns the trailing sentences whose joined length stays
// within the configured overlap.
func (c *Chunker) overlapTail(sentences []string) []string {
	if c.chunkOverlap <= 0 {
		return nil
	}
	total := 0
	i := len(sentences)
	for i > 0 {
		add := len(sentences[i-1])
		if total > 0 {
			add++
		}
		if total+add > c.chunkOverlap {
			break
		}
		total += add
		i--
	}
	tail := make([]string, len(sentences)-i)
	copy(tail, sentences[i:])
	return tail
}

func joinedLen(sentences []string) int {
	if len(sentences) == 0 {
		return 0
	}
	total := len(sentences) - 1
	for _, s := range sentences {
		total += len(s)
	}
	return total
}

// hardWrap cuts an oversized sentence into size-bounded pieces at rune
// boundaries.
func hardWrap(s string, size int) []string {
	runes := []rune(s)
	var parts []string
	for start := 0; start < len(runes); {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		// Walk back to keep multi-byte runes within the byte budget.
		for end > start+1 && len(string(runes[start:end])) > size {
			end--
		}
		parts = append(parts, string(runes[start:end]))
		start = end
	}
	return parts
}
