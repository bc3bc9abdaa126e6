// Package rag wires parsing, indexing, retrieval, generation and sessions
// into the operations served by the CLI, HTTP and MCP front ends.
package rag

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/ziadkadry99/courserag/internal/assistant"
	"github.com/ziadkadry99/courserag/internal/course"
	"github.com/ziadkadry99/courserag/internal/logging"
	"github.com/ziadkadry99/courserag/internal/metrics"
	"github.com/ziadkadry99/courserag/internal/progress"
	"github.com/ziadkadry99/courserag/internal/session"
	"github.com/ziadkadry99/courserag/internal/vectordb"
)

// DefaultDocsPattern matches the course documents picked up by AddCourseFolder.
const DefaultDocsPattern = "**/*.{txt,md}"

// Answerer produces an answer for a query given the conversation so far.
// *assistant.Generator implements it.
type Answerer interface {
	Generate(ctx context.Context, query, history string) (*assistant.Response, error)
}

// Options configures a System.
type Options struct {
	DocsPattern string
	Chunker     *course.Chunker
	Progress    progress.Reporter
	Logger      *zap.Logger
}

// System is the course assistant: an index of course documents plus the
// conversational query path over it.
type System struct {
	store    vectordb.Store
	answerer Answerer
	sessions *session.Manager
	chunker  *course.Chunker
	pattern  string
	progress progress.Reporter
	logger   *zap.Logger
}

func New(store vectordb.Store, answerer Answerer, sessions *session.Manager, opts Options) *System {
	s := &System{
		store:    store,
		answerer: answerer,
		sessions: sessions,
		chunker:  opts.Chunker,
		pattern:  opts.DocsPattern,
		progress: opts.Progress,
		logger:   logging.OrNop(opts.Logger).Named("rag"),
	}
	if s.chunker == nil {
		s.chunker = course.NewChunker()
	}
	if s.pattern == "" {
		s.pattern = DefaultDocsPattern
	}
	if s.progress == nil {
		s.progress = progress.Nop{}
	}
	return s
}

// ErrNoAnswerer is returned by Query on a System built without an LLM.
var ErrNoAnswerer = errors.New("no LLM configured for answering queries")

// IngestResult says what happened to one document.
type IngestResult string

const (
	ResultAdded    IngestResult = "added"
	ResultReplaced IngestResult = "replaced"
	ResultSkipped  IngestResult = "skipped"
	ResultFailed   IngestResult = "failed"
)

// IngestFailure records a document that could not be indexed.
type IngestFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// IngestReport summarizes an AddCourseFolder run.
type IngestReport struct {
	Files    int             `json:"files"`
	Added    int             `json:"added"`
	Replaced int             `json:"replaced"`
	Skipped  int             `json:"skipped"`
	Chunks   int             `json:"chunks"`
	Failures []IngestFailure `json:"failures,omitempty"`
}

// Courses is the number of courses that were indexed by the run.
func (r IngestReport) Courses() int {
	return r.Added + r.Replaced
}

// AddCourseDocument parses and indexes one course document. A course whose
// catalog entry already carries the same content hash is left untouched and
// reported with zero chunks; a changed course replaces the old entry.
func (s *System) AddCourseDocument(ctx context.Context, path string) (*course.Course, int, error) {
	c, n, _, err := s.addDocument(ctx, path)
	return c, n, err
}

func (s *System) addDocument(ctx context.Context, path string) (*course.Course, int, IngestResult, error) {
	doc, err := course.ParseFile(path)
	if err != nil {
		metrics.IngestedCoursesTotal.WithLabelValues(string(ResultFailed)).Inc()
		return nil, 0, ResultFailed, err
	}
	title := doc.Course.Title

	existing, found, err := s.store.CourseInfo(ctx, title)
	if err != nil {
		return nil, 0, ResultFailed, fmt.Errorf("looking up course %q: %w", title, err)
	}
	if found && existing.ContentHash == doc.ContentHash {
		s.logger.Debug("course unchanged", zap.String("course", title), zap.String("path", path))
		metrics.IngestedCoursesTotal.WithLabelValues(string(ResultSkipped)).Inc()
		return &doc.Course, 0, ResultSkipped, nil
	}

	result := ResultAdded
	if found {
		if err := s.store.DeleteCourse(ctx, title); err != nil {
			return nil, 0, ResultFailed, err
		}
		result = ResultReplaced
	}

	// The catalog entry carries the content hash that marks a course as
	// indexed, so it is written only after every chunk is stored.
	chunks := s.chunker.ChunkDocument(doc)
	if err := s.store.AddCourseContent(ctx, chunks); err != nil {
		s.rollback(ctx, title)
		return nil, 0, ResultFailed, err
	}
	if err := s.store.AddCourseCatalog(ctx, doc.Course, doc.ContentHash); err != nil {
		s.rollback(ctx, title)
		return nil, 0, ResultFailed, err
	}

	s.logger.Info("course indexed",
		zap.String("course", title),
		zap.String("path", path),
		zap.String("result", string(result)),
		zap.Int("lessons", len(doc.Course.Lessons)),
		zap.Int("chunks", len(chunks)))
	metrics.IngestedCoursesTotal.WithLabelValues(string(result)).Inc()
	return &doc.Course, len(chunks), result, nil
}

// rollback removes whatever part of a course was stored before a failure.
func (s *System) rollback(ctx context.Context, title string) {
	metrics.IngestedCoursesTotal.WithLabelValues(string(ResultFailed)).Inc()
	if err := s.store.DeleteCourse(ctx, title); err != nil {
		s.logger.Warn("removing partially indexed course", zap.String("course", title), zap.Error(err))
	}
}

// AddCourseFolder indexes every document under dir matching the docs
// pattern, in lexical order. Malformed or unreadable documents are recorded
// in the report and skipped; vector store failures abort the run.
func (s *System) AddCourseFolder(ctx context.Context, dir string, clearExisting bool) (IngestReport, error) {
	var report IngestReport

	info, err := os.Stat(dir)
	if err != nil {
		return report, fmt.Errorf("docs folder %s: %w", dir, err)
	}
	if !info.IsDir() {
		return report, fmt.Errorf("docs folder %s is not a directory", dir)
	}

	if clearExisting {
		if err := s.store.Clear(ctx); err != nil {
			return report, fmt.Errorf("clearing vector store: %w", err)
		}
	}

	matches, err := doublestar.Glob(os.DirFS(dir), s.pattern, doublestar.WithFilesOnly())
	if err != nil {
		return report, fmt.Errorf("matching %q in %s: %w", s.pattern, dir, err)
	}
	sort.Strings(matches)
	report.Files = len(matches)

	s.progress.Start(len(matches))
	defer s.progress.Finish()

	for i, rel := range matches {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		path := filepath.Join(dir, filepath.FromSlash(rel))
		s.progress.Update(i+1, rel)

		_, n, result, err := s.addDocument(ctx, path)
		if err != nil {
			var fe *course.FormatError
			var pe *os.PathError
			if errors.As(err, &fe) || errors.As(err, &pe) {
				s.logger.Warn("skipping document", zap.String("path", path), zap.Error(err))
				report.Failures = append(report.Failures, IngestFailure{Path: path, Error: err.Error()})
				continue
			}
			return report, fmt.Errorf("indexing %s: %w", path, err)
		}

		report.Chunks += n
		switch result {
		case ResultAdded:
			report.Added++
		case ResultReplaced:
			report.Replaced++
		case ResultSkipped:
			report.Skipped++
		}
	}

	s.logger.Info("course folder indexed",
		zap.String("dir", dir),
		zap.Int("files", report.Files),
		zap.Int("added", report.Added),
		zap.Int("replaced", report.Replaced),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", len(report.Failures)),
		zap.Int("chunks", report.Chunks))
	return report, nil
}

// Answer is the result of a query.
type Answer struct {
	Answer    string          `json:"answer"`
	Sources   []course.Source `json:"sources"`
	SessionID string          `json:"session_id"`
}

// Query answers a question within a session. An empty sessionID starts a new
// session. Queries on the same session run one at a time so each sees the
// previous exchange in its history.
func (s *System) Query(ctx context.Context, query, sessionID string) (*Answer, error) {
	if s.answerer == nil {
		return nil, ErrNoAnswerer
	}
	if sessionID == "" {
		id, err := s.sessions.Create(ctx)
		if err != nil {
			return nil, err
		}
		sessionID = id
	}

	unlock := s.sessions.Lock(sessionID)
	defer unlock()

	history, err := s.sessions.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	resp, err := s.answerer.Generate(ctx, query, history)
	if err != nil {
		s.logger.Error("query failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	if err := s.sessions.AddExchange(ctx, sessionID, query, resp.Answer); err != nil {
		return nil, err
	}

	sources := resp.Sources
	if sources == nil {
		sources = []course.Source{}
	}
	return &Answer{Answer: resp.Answer, Sources: sources, SessionID: sessionID}, nil
}

// ResetSession drops a session's history. Unknown sessions are ignored.
func (s *System) ResetSession(ctx context.Context, sessionID string) error {
	return s.sessions.Reset(ctx, sessionID)
}

// Analytics summarizes the indexed catalog.
type Analytics struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

func (s *System) CourseAnalytics(ctx context.Context) (Analytics, error) {
	titles, err := s.store.CourseTitles(ctx)
	if err != nil {
		return Analytics{}, fmt.Errorf("listing courses: %w", err)
	}
	if titles == nil {
		titles = []string{}
	}
	return Analytics{TotalCourses: s.store.CourseCount(), CourseTitles: titles}, nil
}

// Courses returns the catalog entry of every indexed course, sorted by title.
func (s *System) Courses(ctx context.Context) ([]vectordb.CourseInfo, error) {
	titles, err := s.store.CourseTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing courses: %w", err)
	}
	infos := make([]vectordb.CourseInfo, 0, len(titles))
	for _, t := range titles {
		info, ok, err := s.store.CourseInfo(ctx, t)
		if err != nil {
			return nil, err
		}
		if ok {
			infos = append(infos, info)
		}
	}
	return infos, nil
}
