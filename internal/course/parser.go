package course

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// FormatError reports a document that cannot be parsed into a course.
// It is fatal for that document only.
type FormatError struct {
	Path string
	Line int
	Msg  string
}

func (e *FormatError) Error() string {
	loc := e.Path
	if loc == "" {
		loc = "document"
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", loc, e.Line, e.Msg)
	}
	return fmt.Sprintf("%s: %s", loc, e.Msg)
}

var (
	lessonMarker = regexp.MustCompile(`(?i)^lesson\s+(\d+)\s*:\s*(.*)$`)
	lessonLink   = regexp.MustCompile(`(?i)^lesson\s+link\s*:\s*(.*)$`)
	titleLabel   = regexp.MustCompile(`(?i)^course\s+title\s*:\s*`)
	linkLabel    = regexp.MustCompile(`(?i)^course\s+link\s*:\s*`)
	authorLabel  = regexp.MustCompile(`(?i)^course\s+instructor\s*:\s*`)
)

// ParseFile reads and parses the course document at path.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return nil, &FormatError{Path: path, Msg: "not valid UTF-8"}
	}

	doc, err := ParseDocument(string(data))
	if err != nil {
		var fe *FormatError
		if errors.As(err, &fe) {
			fe.Path = path
		}
		return nil, err
	}
	doc.Path = path
	return doc, nil
}

type line struct {
	num  int
	text string
}

// ParseDocument parses course text. The first three non-empty lines are the
// title, link and instructor, in that order, each optionally labelled
// ("Course Title: ..."). Lessons start at "Lesson N: title" lines and may be
// followed by a "Lesson Link: url" line. A document without lesson markers
// yields a single section not scoped to any lesson.
func ParseDocument(text string) (*Document, error) {
	text = strings.TrimPrefix(text, "\ufeff")

	var lines []line
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for n := 1; sc.Scan(); n++ {
		lines = append(lines, line{num: n, text: strings.TrimRight(sc.Text(), " \t\r")})
	}
	if err := sc.Err(); err != nil {
		return nil, &FormatError{Msg: err.Error()}
	}

	pos := nextNonEmpty(lines, 0)
	if pos < 0 {
		return nil, &FormatError{Msg: "empty document: missing course title"}
	}
	first := strings.TrimSpace(lines[pos].text)
	if lessonMarker.MatchString(first) {
		return nil, &FormatError{Line: lines[pos].num, Msg: "missing course title before first lesson"}
	}
	title := strings.TrimSpace(titleLabel.ReplaceAllString(first, ""))
	if title == "" {
		return nil, &FormatError{Line: lines[pos].num, Msg: "missing course title"}
	}

	doc := &Document{
		Course:      Course{Title: title},
		ContentHash: hashContent(text),
	}

	// Link and instructor follow the title in fixed order. A lesson marker
	// ends the header early.
	pos++
	header := []struct {
		label *regexp.Regexp
		dst   *string
	}{
		{linkLabel, &doc.Course.Link},
		{authorLabel, &doc.Course.Instructor},
	}
	for _, h := range header {
		next := nextNonEmpty(lines, pos)
		if next < 0 {
			break
		}
		value := strings.TrimSpace(lines[next].text)
		if lessonMarker.MatchString(value) {
			break
		}
		*h.dst = strings.TrimSpace(h.label.ReplaceAllString(value, ""))
		pos = next + 1
	}

	if err := parseBody(doc, lines[min(pos, len(lines)):]); err != nil {
		return nil, err
	}
	return doc, nil
}

func parseBody(doc *Document, lines []line) error {
	var (
		current *Section
		body    []string
		seen    = make(map[int]int)
	)

	flush := func() {
		text := strings.TrimSpace(strings.Join(body, "\n"))
		body = body[:0]
		if current == nil {
			// Preamble before the first lesson, or the whole document when
			// there are no lessons at all.
			if text != "" {
				doc.Sections = append(doc.Sections, Section{Text: text})
			}
			return
		}
		current.Text = text
		doc.Sections = append(doc.Sections, *current)
	}

	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i].text)
		m := lessonMarker.FindStringSubmatch(trimmed)
		if m == nil {
			body = append(body, lines[i].text)
			continue
		}

		flush()

		number, err := strconv.Atoi(m[1])
		if err != nil {
			return &FormatError{Line: lines[i].num, Msg: fmt.Sprintf("invalid lesson number %q", m[1])}
		}
		if prev, dup := seen[number]; dup {
			return &FormatError{
				Line: lines[i].num,
				Msg:  fmt.Sprintf("duplicate lesson number %d (first defined on line %d)", number, prev),
			}
		}
		seen[number] = lines[i].num

		lesson := Lesson{Number: number, Title: strings.TrimSpace(m[2])}
		if next := nextNonEmpty(lines, i+1); next >= 0 {
			if lm := lessonLink.FindStringSubmatch(strings.TrimSpace(lines[next].text)); lm != nil {
				lesson.Link = strings.TrimSpace(lm[1])
				i = next
			}
		}
		doc.Course.Lessons = append(doc.Course.Lessons, lesson)
		current = &Section{LessonNumber: IntPtr(number)}
	}
	flush()
	return nil
}

func nextNonEmpty(lines []line, from int) int {
	for i := from; i < len(lines); i++ {
		if strings.TrimSpace(lines[i].text) != "" {
			return i
		}
	}
	return -1
}

func hashContent(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
