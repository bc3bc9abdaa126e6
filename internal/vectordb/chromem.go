package vectordb

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/ziadkadry99/courserag/internal/course"
	"github.com/ziadkadry99/courserag/internal/embeddings"
	"github.com/ziadkadry99/courserag/internal/logging"
	"github.com/ziadkadry99/courserag/internal/metrics"
)

const (
	CatalogCollection = "course_catalog"
	ContentCollection = "course_content"

	// DefaultResolveThreshold is the largest cosine distance (exclusive) at
	// which a course name still resolves to a catalog entry. On unit vectors
	// it equals a squared euclidean distance of 1.5.
	DefaultResolveThreshold = 0.75

	// DefaultMaxResults is the number of chunks returned when a query sets no limit.
	DefaultMaxResults = 5

	// titleProbe is the query text used to enumerate the catalog; chromem has
	// no list operation, so all entries are fetched by nearest neighbour.
	titleProbe = "course"
)

// ErrEmptyQuery is returned by Search when the query text is blank.
var ErrEmptyQuery = errors.New("search query is empty")

// Options configures a CourseStore.
type Options struct {
	// Dir is the persistence directory. Empty means in-memory only.
	Dir              string
	ResolveThreshold float64
	MaxResults       int
	Logger           *zap.Logger
}

// CourseStore implements Store on two chromem-go collections.
type CourseStore struct {
	mu        sync.RWMutex
	db        *chromem.DB
	catalog   *chromem.Collection
	content   *chromem.Collection
	embedder  embeddings.Embedder
	embedFunc chromem.EmbeddingFunc

	dir        string
	threshold  float32
	maxResults int
	logger     *zap.Logger

	titlesMu sync.Mutex
	titles   map[string]struct{} // nil until first enumerated
}

// NewCourseStore opens (or creates) the course index. When Dir holds vectors
// produced by a different embedding model, both collections are wiped so the
// caller can reindex from scratch.
func NewCourseStore(embedder embeddings.Embedder, opts Options) (*CourseStore, error) {
	s := &CourseStore{
		embedder:   embedder,
		embedFunc:  embeddings.ToChromemFunc(embedder),
		dir:        opts.Dir,
		threshold:  float32(opts.ResolveThreshold),
		maxResults: opts.MaxResults,
		logger:     logging.OrNop(opts.Logger).Named("vectordb"),
	}
	if s.threshold <= 0 {
		s.threshold = DefaultResolveThreshold
	}
	if s.maxResults <= 0 {
		s.maxResults = DefaultMaxResults
	}

	if opts.Dir == "" {
		s.db = chromem.NewDB()
	} else {
		db, err := chromem.NewPersistentDB(opts.Dir, true)
		if err != nil {
			return nil, fmt.Errorf("open vector db at %s: %w", opts.Dir, err)
		}
		s.db = db
		if err := s.checkManifest(); err != nil {
			return nil, err
		}
	}

	if err := s.openCollections(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *CourseStore) checkManifest() error {
	m, err := readManifest(s.dir)
	if err != nil {
		return err
	}

	want := manifest{
		EmbeddingModel: s.embedder.Name(),
		Dimensions:     s.embedder.Dimensions(),
		CreatedAt:      time.Now().UTC(),
	}
	switch {
	case m == nil && len(s.db.ListCollections()) == 0:
		// Fresh directory.
	case m == nil || m.EmbeddingModel != want.EmbeddingModel || m.Dimensions != want.Dimensions:
		prev := "unknown"
		if m != nil {
			prev = m.EmbeddingModel
		}
		s.logger.Warn("embedding model changed, resetting vector store",
			zap.String("previous", prev),
			zap.String("current", want.EmbeddingModel))
		if err := s.db.Reset(); err != nil {
			return fmt.Errorf("reset vector db: %w", err)
		}
	default:
		return nil
	}
	return writeManifest(s.dir, want)
}

func (s *CourseStore) openCollections() error {
	catalog, err := s.db.GetOrCreateCollection(CatalogCollection, nil, s.embedFunc)
	if err != nil {
		return fmt.Errorf("create collection %s: %w", CatalogCollection, err)
	}
	content, err := s.db.GetOrCreateCollection(ContentCollection, nil, s.embedFunc)
	if err != nil {
		return fmt.Errorf("create collection %s: %w", ContentCollection, err)
	}
	s.mu.Lock()
	s.catalog, s.content = catalog, content
	s.mu.Unlock()
	return nil
}

func (s *CourseStore) collections() (catalog, content *chromem.Collection) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog, s.content
}

// AddCourseCatalog upserts the catalog entry of a course, keyed by title.
func (s *CourseStore) AddCourseCatalog(ctx context.Context, c course.Course, contentHash string) error {
	if strings.TrimSpace(c.Title) == "" {
		return errors.New("course title is empty")
	}
	catalog, _ := s.collections()

	docs := []chromem.Document{{
		ID:       c.Title,
		Content:  c.Title,
		Metadata: catalogToMap(c, contentHash),
	}}
	if err := embeddings.EmbedDocuments(ctx, s.embedder, docs); err != nil {
		return err
	}
	if err := catalog.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("add catalog entry %q: %w", c.Title, err)
	}

	s.titlesMu.Lock()
	if s.titles != nil {
		s.titles[c.Title] = struct{}{}
	}
	s.titlesMu.Unlock()
	return nil
}

// AddCourseContent embeds and stores chunks in one batch.
func (s *CourseStore) AddCourseContent(ctx context.Context, chunks []course.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	_, content := s.collections()

	docs := make([]chromem.Document, len(chunks))
	for i, ch := range chunks {
		docs[i] = chromem.Document{
			ID:       ch.ID(),
			Content:  ch.Content,
			Metadata: chunkToMap(ch),
		}
	}
	if err := embeddings.EmbedDocuments(ctx, s.embedder, docs); err != nil {
		return err
	}
	if err := content.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("add course content: %w", err)
	}

	metrics.IngestedChunksTotal.Add(float64(len(docs)))
	return nil
}

// DeleteCourse removes a course's chunks and catalog entry.
func (s *CourseStore) DeleteCourse(ctx context.Context, title string) error {
	catalog, content := s.collections()

	if err := content.Delete(ctx, map[string]string{metaCourseTitle: title}, nil); err != nil {
		return fmt.Errorf("delete content of %q: %w", title, err)
	}
	if err := catalog.Delete(ctx, nil, nil, title); err != nil {
		return fmt.Errorf("delete catalog entry %q: %w", title, err)
	}

	s.titlesMu.Lock()
	if s.titles != nil {
		delete(s.titles, title)
	}
	s.titlesMu.Unlock()
	return nil
}

// ResolveCourseName maps a possibly partial name to the closest catalog title.
func (s *CourseStore) ResolveCourseName(ctx context.Context, name string) (string, bool, error) {
	name = strings.TrimSpace(name)
	catalog, _ := s.collections()
	if name == "" || catalog.Count() == 0 {
		metrics.CourseResolutionsTotal.WithLabelValues("empty").Inc()
		return "", false, nil
	}

	if doc, err := catalog.GetByID(ctx, name); err == nil {
		metrics.CourseResolutionsTotal.WithLabelValues("exact").Inc()
		return doc.ID, true, nil
	}

	results, err := catalog.Query(ctx, name, 1, nil, nil)
	if err != nil {
		return "", false, fmt.Errorf("chromem catalog query: %w", err)
	}
	if len(results) == 0 {
		metrics.CourseResolutionsTotal.WithLabelValues("rejected").Inc()
		return "", false, nil
	}

	best := results[0]
	distance := 1 - best.Similarity
	if distance >= s.threshold {
		s.logger.Debug("course name not resolved",
			zap.String("name", name),
			zap.String("nearest", best.ID),
			zap.Float32("distance", distance))
		metrics.CourseResolutionsTotal.WithLabelValues("rejected").Inc()
		return "", false, nil
	}

	s.logger.Debug("course name resolved",
		zap.String("name", name),
		zap.String("title", best.ID),
		zap.Float32("distance", distance))
	metrics.CourseResolutionsTotal.WithLabelValues("matched").Inc()
	return best.ID, true, nil
}

// Search runs a content query, scoped to a resolved course and lesson when given.
func (s *CourseStore) Search(ctx context.Context, q SearchQuery) (SearchResults, error) {
	if strings.TrimSpace(q.Query) == "" {
		return SearchResults{}, ErrEmptyQuery
	}
	start := time.Now()
	defer func() { metrics.SearchDuration.Observe(time.Since(start).Seconds()) }()

	var title string
	if q.CourseName != "" {
		resolved, ok, err := s.ResolveCourseName(ctx, q.CourseName)
		if err != nil {
			return SearchResults{}, err
		}
		if !ok {
			return SearchResults{Error: fmt.Sprintf("No course found matching '%s'", q.CourseName)}, nil
		}
		title = resolved
	}

	_, content := s.collections()
	limit := q.Limit
	if limit <= 0 {
		limit = s.maxResults
	}

	// chromem-go requires nResults <= collection size.
	count := content.Count()
	if count == 0 {
		return SearchResults{}, nil
	}
	limit = min(limit, count)

	results, err := content.Query(ctx, q.Query, limit, buildWhereClause(title, q.LessonNumber), nil)
	if err != nil {
		return SearchResults{}, fmt.Errorf("chromem query: %w", err)
	}

	out := SearchResults{Results: make([]SearchResult, len(results))}
	for i, r := range results {
		out.Results[i] = SearchResult{
			Chunk:    mapToChunk(r.Content, r.Metadata),
			Distance: 1 - r.Similarity,
		}
	}

	s.logger.Debug("content search",
		zap.String("query", q.Query),
		zap.String("course", title),
		zap.Int("results", len(out.Results)),
		zap.Duration("took", time.Since(start)))
	return out, nil
}

// CourseInfo returns the catalog entry for an exact title.
func (s *CourseStore) CourseInfo(ctx context.Context, title string) (CourseInfo, bool, error) {
	if title == "" {
		return CourseInfo{}, false, nil
	}
	catalog, _ := s.collections()
	doc, err := catalog.GetByID(ctx, title)
	if err != nil {
		// chromem only fails GetByID for unknown IDs.
		return CourseInfo{}, false, nil
	}
	return mapToCatalog(doc.ID, doc.Metadata), true, nil
}

// CourseLink returns the course's link, or "" when unknown.
func (s *CourseStore) CourseLink(ctx context.Context, title string) string {
	info, ok, _ := s.CourseInfo(ctx, title)
	if !ok {
		return ""
	}
	return info.Link
}

// LessonLink returns the link of one lesson, or "" when unknown.
func (s *CourseStore) LessonLink(ctx context.Context, title string, lesson int) string {
	info, ok, _ := s.CourseInfo(ctx, title)
	if !ok {
		return ""
	}
	for _, l := range info.Lessons {
		if l.Number == lesson {
			return l.Link
		}
	}
	return ""
}

// CourseTitles returns every indexed title, sorted.
func (s *CourseStore) CourseTitles(ctx context.Context) ([]string, error) {
	if err := s.loadTitles(ctx); err != nil {
		return nil, err
	}
	s.titlesMu.Lock()
	titles := make([]string, 0, len(s.titles))
	for t := range s.titles {
		titles = append(titles, t)
	}
	s.titlesMu.Unlock()

	sort.Strings(titles)
	return titles, nil
}

// Courses returns the catalog entries of every course, sorted by title.
func (s *CourseStore) Courses(ctx context.Context) ([]CourseInfo, error) {
	titles, err := s.CourseTitles(ctx)
	if err != nil {
		return nil, err
	}
	infos := make([]CourseInfo, 0, len(titles))
	for _, t := range titles {
		if info, ok, _ := s.CourseInfo(ctx, t); ok {
			infos = append(infos, info)
		}
	}
	return infos, nil
}

func (s *CourseStore) loadTitles(ctx context.Context) error {
	s.titlesMu.Lock()
	defer s.titlesMu.Unlock()
	if s.titles != nil {
		return nil
	}

	catalog, _ := s.collections()
	titles := make(map[string]struct{})
	if count := catalog.Count(); count > 0 {
		results, err := catalog.Query(ctx, titleProbe, count, nil, nil)
		if err != nil {
			return fmt.Errorf("chromem catalog listing: %w", err)
		}
		for _, r := range results {
			titles[r.ID] = struct{}{}
		}
	}
	s.titles = titles
	return nil
}

// CourseCount returns the number of catalog entries.
func (s *CourseStore) CourseCount() int {
	catalog, _ := s.collections()
	return catalog.Count()
}

// ContentCount returns the number of stored chunks.
func (s *CourseStore) ContentCount() int {
	_, content := s.collections()
	return content.Count()
}

// Clear drops both collections and recreates them empty.
func (s *CourseStore) Clear(ctx context.Context) error {
	for _, name := range []string{CatalogCollection, ContentCollection} {
		if err := s.db.DeleteCollection(name); err != nil {
			return fmt.Errorf("delete collection %s: %w", name, err)
		}
	}
	if err := s.openCollections(); err != nil {
		return err
	}

	s.titlesMu.Lock()
	s.titles = make(map[string]struct{})
	s.titlesMu.Unlock()

	s.logger.Info("vector store cleared")
	return nil
}
