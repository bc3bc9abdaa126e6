package course

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is the default maximum number of characters per chunk,
	// excluding the context prefix.
	DefaultChunkSize = 800

	// DefaultChunkOverlap is the default number of characters of trailing
	// sentences repeated at the start of the next chunk.
	DefaultChunkOverlap = 100
)

// sentenceEnd matches terminal punctuation, optional closing quotes or
// brackets, and the whitespace that follows.
var sentenceEnd = regexp.MustCompile(`[.!?]+["'”’)\]]*\s+`)

var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true,
	"sr": true, "jr": true, "st": true, "vs": true, "etc": true,
	"e.g": true, "i.e": true, "fig": true,
}

// Chunker splits lesson text into sentence-aligned chunks.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithChunkSize sets the maximum chunk length in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithChunkOverlap sets how many characters of whole sentences carry over
// into the next chunk.
func WithChunkOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// NewChunker creates a Chunker with the given options.
func NewChunker(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}
	return c
}

// ChunkDocument chunks every section of doc. Chunk indices run sequentially
// across the whole course starting at 0.
func (c *Chunker) ChunkDocument(doc *Document) []Chunk {
	var chunks []Chunk
	for _, sec := range doc.Sections {
		prefix := ContextPrefix(doc.Course.Title, sec.LessonNumber)
		for _, text := range c.Split(sec.Text) {
			chunks = append(chunks, Chunk{
				Content:      prefix + text,
				CourseTitle:  doc.Course.Title,
				LessonNumber: sec.LessonNumber,
				ChunkIndex:   len(chunks),
			})
		}
	}
	return chunks
}

// ContextPrefix returns the prefix that ties a chunk to its course and lesson.
func ContextPrefix(courseTitle string, lesson *int) string {
	if lesson == nil {
		return fmt.Sprintf("Course %s content: ", courseTitle)
	}
	return fmt.Sprintf("Course %s Lesson %d content: ", courseTitle, *lesson)
}

// Split breaks text into chunks of whole sentences. A chunk never exceeds the
// chunk size unless it holds a single longer sentence. Consecutive chunks
// share trailing sentences up to the overlap size, but the overlap never
// covers a whole chunk.
func (c *Chunker) Split(text string) []string {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	i := 0
	for i < len(sentences) {
		size := 0
		end := i
		for end < len(sentences) {
			n := utf8.RuneCountInString(sentences[end])
			if end > i {
				n++ // joining space
			}
			if size+n > c.chunkSize && end > i {
				break
			}
			size += n
			end++
		}
		chunks = append(chunks, strings.Join(sentences[i:end], " "))
		if end == len(sentences) {
			break
		}

		carried, carriedSize := 0, 0
		for k := end - 1; k > i; k-- {
			n := utf8.RuneCountInString(sentences[k])
			if k < end-1 {
				n++
			}
			if carriedSize+n > c.overlap {
				break
			}
			carriedSize += n
			carried++
		}
		i = end - carried
	}
	return chunks
}

// SplitSentences normalizes whitespace and splits text after terminal
// punctuation, keeping abbreviations and initials ("Dr.", "J.") intact.
func SplitSentences(text string) []string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}

	var sentences []string
	start := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text+" ", -1) {
		if loc[1] > len(text) {
			loc[1] = len(text)
		}
		if isAbbreviation(text[start:loc[0]]) {
			continue
		}
		if s := strings.TrimSpace(text[start:loc[1]]); s != "" {
			sentences = append(sentences, s)
		}
		start = loc[1]
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

func isAbbreviation(before string) bool {
	word := before[strings.LastIndexByte(before, ' ')+1:]
	if word == "" {
		return false
	}
	if r, size := utf8.DecodeRuneInString(word); size == len(word) && unicode.IsUpper(r) {
		return true
	}
	return abbreviations[strings.ToLower(word)]
}
