package rag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/courserag/internal/assistant"
	"github.com/ziadkadry99/courserag/internal/course"
	"github.com/ziadkadry99/courserag/internal/embeddings"
	"github.com/ziadkadry99/courserag/internal/llm"
	"github.com/ziadkadry99/courserag/internal/session"
	"github.com/ziadkadry99/courserag/internal/tools"
	"github.com/ziadkadry99/courserag/internal/vectordb"
)

const pythonCourse = `Course Title: Introduction to Python
Course Link: https://example.com/python
Course Instructor: John Doe

Lesson 1: Loops
Lesson Link: https://example.com/python/1
Loops repeat a block of code. A for loop walks over a sequence.

Lesson 2: Functions
Functions group statements under a name.
`

const goCourse = `Course Title: Advanced Go Programming
Course Link: https://example.com/go
Course Instructor: Jane Roe

Lesson 1: Goroutines
Goroutines are lightweight threads.
`

// recordingAnswerer echoes the query and remembers the history it was given.
type recordingAnswerer struct {
	mu        sync.Mutex
	histories []string
	sources   []course.Source
	err       error
}

func (a *recordingAnswerer) Generate(_ context.Context, query, history string) (*assistant.Response, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.histories = append(a.histories, history)
	if a.err != nil {
		return nil, a.err
	}
	return &assistant.Response{Answer: "answer to " + query, Sources: a.sources}, nil
}

func writeDocs(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func newStore(t *testing.T) *vectordb.CourseStore {
	t.Helper()
	store, err := vectordb.NewCourseStore(embeddings.NewHashEmbedder(1024), vectordb.Options{})
	require.NoError(t, err)
	return store
}

func newSystem(t *testing.T, store vectordb.Store, answerer Answerer) *System {
	t.Helper()
	sessions := session.NewManager(session.NewMemoryStore(), 2, nil)
	return New(store, answerer, sessions, Options{})
}

func TestAddCourseFolder(t *testing.T) {
	ctx := context.Background()
	dir := writeDocs(t, map[string]string{
		"python.txt":       pythonCourse,
		"nested/go.md":     goCourse,
		"broken.txt":       "Lesson 1: No header\nbody text.\n",
		"notes/ignore.pdf": "not a course",
	})
	store := newStore(t)
	sys := newSystem(t, store, &recordingAnswerer{})

	report, err := sys.AddCourseFolder(ctx, dir, false)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Files)
	assert.Equal(t, 2, report.Added)
	assert.Equal(t, 2, report.Courses())
	assert.Positive(t, report.Chunks)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, filepath.Join(dir, "broken.txt"), report.Failures[0].Path)

	analytics, err := sys.CourseAnalytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, analytics.TotalCourses)
	assert.Equal(t, []string{"Advanced Go Programming", "Introduction to Python"}, analytics.CourseTitles)

	infos, err := sys.Courses(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "Jane Roe", infos[0].Instructor)
	assert.Len(t, infos[1].Lessons, 2)

	t.Run("unchanged documents are skipped", func(t *testing.T) {
		before := store.ContentCount()
		report, err := sys.AddCourseFolder(ctx, dir, false)
		require.NoError(t, err)
		assert.Equal(t, 2, report.Skipped)
		assert.Zero(t, report.Added)
		assert.Zero(t, report.Chunks)
		assert.Equal(t, before, store.ContentCount())
	})

	t.Run("changed document replaces the course", func(t *testing.T) {
		changed := goCourse + "\nLesson 2: Channels\nChannels connect goroutines.\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "go.md"), []byte(changed), 0o644))

		report, err := sys.AddCourseFolder(ctx, dir, false)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Replaced)
		assert.Equal(t, 1, report.Skipped)

		info, ok, err := store.CourseInfo(ctx, "Advanced Go Programming")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Len(t, info.Lessons, 2)
		assert.Equal(t, 2, store.CourseCount())
	})

	t.Run("clear existing reindexes everything", func(t *testing.T) {
		report, err := sys.AddCourseFolder(ctx, dir, true)
		require.NoError(t, err)
		assert.Equal(t, 2, report.Added)
		assert.Equal(t, 2, store.CourseCount())
	})
}

func TestAddCourseFolder_MissingDir(t *testing.T) {
	sys := newSystem(t, newStore(t), &recordingAnswerer{})
	_, err := sys.AddCourseFolder(context.Background(), filepath.Join(t.TempDir(), "missing"), false)
	require.Error(t, err)
}

func TestAddCourseDocument(t *testing.T) {
	ctx := context.Background()
	dir := writeDocs(t, map[string]string{"python.txt": pythonCourse, "bad.txt": "Lesson 1: x\n"})
	sys := newSystem(t, newStore(t), &recordingAnswerer{})

	c, n, err := sys.AddCourseDocument(ctx, filepath.Join(dir, "python.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Introduction to Python", c.Title)
	assert.Positive(t, n)

	_, _, err = sys.AddCourseDocument(ctx, filepath.Join(dir, "bad.txt"))
	var fe *course.FormatError
	require.ErrorAs(t, err, &fe)
}

func TestQuery_SessionHistory(t *testing.T) {
	ctx := context.Background()
	answerer := &recordingAnswerer{}
	sys := newSystem(t, newStore(t), answerer)

	first, err := sys.Query(ctx, "What is Python?", "")
	require.NoError(t, err)
	assert.NotEmpty(t, first.SessionID)
	assert.Equal(t, "answer to What is Python?", first.Answer)
	assert.NotNil(t, first.Sources)
	assert.Empty(t, first.Sources)

	second, err := sys.Query(ctx, "Tell me more", first.SessionID)
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)

	require.Len(t, answerer.histories, 2)
	assert.Empty(t, answerer.histories[0])
	assert.Equal(t, "User: What is Python?\nAssistant: answer to What is Python?", answerer.histories[1])

	require.NoError(t, sys.ResetSession(ctx, first.SessionID))
	_, err = sys.Query(ctx, "Again", first.SessionID)
	require.NoError(t, err)
	assert.Empty(t, answerer.histories[2])

	// Resetting an unknown session is harmless.
	require.NoError(t, sys.ResetSession(ctx, "session_unknown"))
}

// flakyEmbedder fails every batch accepted by fail.
type flakyEmbedder struct {
	*embeddings.HashEmbedder

	mu   sync.Mutex
	fail func(texts []string) bool
}

var errEmbeddingDown = errors.New("embedding service unavailable")

func (e *flakyEmbedder) setFail(fail func(texts []string) bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fail = fail
}

func (e *flakyEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	fail := e.fail
	e.mu.Unlock()
	if fail != nil && fail(texts) {
		return nil, errEmbeddingDown
	}
	return e.HashEmbedder.Embed(ctx, texts)
}

// chunkBatch matches batches holding lesson chunks; catalog entries and
// queries carry no context prefix.
func chunkBatch(texts []string) bool {
	for _, t := range texts {
		if strings.Contains(t, "content: ") {
			return true
		}
	}
	return false
}

func catalogBatch(texts []string) bool {
	return !chunkBatch(texts)
}

func TestAddCourseDocument_FailedContentIsRetried(t *testing.T) {
	ctx := context.Background()
	emb := &flakyEmbedder{HashEmbedder: embeddings.NewHashEmbedder(1024)}
	store, err := vectordb.NewCourseStore(emb, vectordb.Options{})
	require.NoError(t, err)
	sys := newSystem(t, store, &recordingAnswerer{})
	path := filepath.Join(writeDocs(t, map[string]string{"python.txt": pythonCourse}), "python.txt")

	emb.setFail(chunkBatch)
	_, _, err = sys.AddCourseDocument(ctx, path)
	require.ErrorIs(t, err, errEmbeddingDown)
	assert.Zero(t, store.CourseCount(), "no catalog entry without chunks")
	assert.Zero(t, store.ContentCount())

	emb.setFail(nil)
	_, n, err := sys.AddCourseDocument(ctx, path)
	require.NoError(t, err)
	assert.Positive(t, n, "retry must index the course, not skip it")
	assert.Equal(t, 1, store.CourseCount())
	assert.Equal(t, n, store.ContentCount())

	res, err := store.Search(ctx, vectordb.SearchQuery{Query: "loops", CourseName: "Python"})
	require.NoError(t, err)
	assert.Empty(t, res.Error)
	assert.NotEmpty(t, res.Results)
}

func TestAddCourseDocument_FailedCatalogRemovesChunks(t *testing.T) {
	ctx := context.Background()
	emb := &flakyEmbedder{HashEmbedder: embeddings.NewHashEmbedder(1024)}
	store, err := vectordb.NewCourseStore(emb, vectordb.Options{})
	require.NoError(t, err)
	sys := newSystem(t, store, &recordingAnswerer{})
	path := filepath.Join(writeDocs(t, map[string]string{"python.txt": pythonCourse}), "python.txt")

	emb.setFail(catalogBatch)
	_, _, err = sys.AddCourseDocument(ctx, path)
	require.ErrorIs(t, err, errEmbeddingDown)
	assert.Zero(t, store.CourseCount())
	assert.Zero(t, store.ContentCount(), "chunks of a failed course are removed")

	emb.setFail(nil)
	_, n, err := sys.AddCourseDocument(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, n, store.ContentCount())
}

func TestQuery_WithoutAnswerer(t *testing.T) {
	sys := newSystem(t, newStore(t), nil)
	_, err := sys.Query(context.Background(), "What is Python?", "")
	require.ErrorIs(t, err, ErrNoAnswerer)
}

func TestQuery_FailureLeavesHistoryUntouched(t *testing.T) {
	ctx := context.Background()
	answerer := &recordingAnswerer{}
	sys := newSystem(t, newStore(t), answerer)

	ans, err := sys.Query(ctx, "first", "")
	require.NoError(t, err)

	answerer.err = errors.New("llm unavailable")
	_, err = sys.Query(ctx, "second", ans.SessionID)
	require.Error(t, err)

	answerer.err = nil
	_, err = sys.Query(ctx, "third", ans.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "User: first\nAssistant: answer to first", answerer.histories[2])
}

// scriptedProvider plays back completions in order.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []*llm.CompletionResponse
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.responses) == 0 {
		return nil, errors.New("no scripted response left")
	}
	resp := p.responses[0]
	p.responses = p.responses[1:]
	return resp, nil
}

func TestQuery_SourcesEndToEnd(t *testing.T) {
	ctx := context.Background()
	dir := writeDocs(t, map[string]string{"python.txt": pythonCourse})
	store := newStore(t)

	provider := &scriptedProvider{responses: []*llm.CompletionResponse{
		{ToolCalls: []llm.ToolCall{{ID: "call_1", Name: tools.SearchToolName, Arguments: `{"query":"loops","course_name":"Python"}`}}},
		{Content: "Loops repeat code."},
		{Content: "Hello there."},
	}}
	registry := tools.NewRegistry(tools.NewCourseSearchTool(store, 0, nil))
	gen := assistant.NewGenerator(provider, registry, assistant.Options{})
	sys := newSystem(t, store, gen)

	_, err := sys.AddCourseFolder(ctx, dir, false)
	require.NoError(t, err)

	withTool, err := sys.Query(ctx, "How do loops work in the Python course?", "")
	require.NoError(t, err)
	assert.Equal(t, "Loops repeat code.", withTool.Answer)
	require.NotEmpty(t, withTool.Sources)
	for _, src := range withTool.Sources {
		assert.Contains(t, src.Text, "Introduction to Python")
	}

	direct, err := sys.Query(ctx, "Hi", withTool.SessionID)
	require.NoError(t, err)
	assert.Empty(t, direct.Sources)
}
