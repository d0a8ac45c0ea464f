// Package content implements the durable chunk store: a SQLite primary table
// holding text and metadata, plus a vector index for similarity search.
package content

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"lecture-qa/internal/contextutil"
	"lecture-qa/internal/storage"
	"lecture-qa/internal/vectorstore"
)

var (
	// ErrStoreWrite is returned when a chunk could not be persisted.
	ErrStoreWrite = errors.New("store write failed")
	// ErrStoreQuery is returned when a similarity query could not be served.
	ErrStoreQuery = errors.New("store query failed")
	// ErrInvalidChunk is returned for empty text or missing source metadata.
	ErrInvalidChunk = errors.New("invalid chunk")
)

// searchOverfetch is how many extra hits a search asks the index for, so that
// ties at the k-th distance can be ordered by insertion before truncating.
const searchOverfetch = 4

// rebuildBatch bounds the points sent per upsert when rebuilding the index.
const rebuildBatch = 64

// pointNamespace scopes the UUIDv5 point ids derived from chunk ids.
var pointNamespace = uuid.MustParse("6f1c2a8e-4b7d-4e0a-9c35-2d8f0b1e7a64")

// StoreError carries the failing operation and its cause.
type StoreError struct {
	Op  string // "add" or "search"
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("content %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is lets errors.Is match the sentinel for the operation.
func (e *StoreError) Is(target error) bool {
	switch e.Op {
	case "add":
		return target == ErrStoreWrite
	case "search":
		return target == ErrStoreQuery
	}
	return false
}

// Metadata describes where a chunk came from.
type Metadata struct {
	SourcePath string `json:"source"`
	Timestamp  string `json:"timestamp"`
}

// Chunk is a stored unit of lecture text.
type Chunk struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// SearchResult is one similarity hit. Distance is 1 - cosine similarity.
type SearchResult struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
	Distance *float64 `json:"distance,omitempty"`
}

// Embedder turns text into a vector.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Store keeps the SQLite rows and the vector index in step.
type Store struct {
	chunks     storage.ChunkStore
	index      vectorstore.VectorStore
	embedder   Embedder
	collection string

	writeMu sync.Mutex
}

// NewStore creates a Store over the given backends.
func NewStore(chunks storage.ChunkStore, index vectorstore.VectorStore, embedder Embedder, collection string) *Store {
	return &Store{
		chunks:     chunks,
		index:      index,
		embedder:   embedder,
		collection: collection,
	}
}

// PointID returns the vector point id for a chunk id.
func PointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

// AddContent persists one chunk and returns its id.
// The vector is written inside the row's transaction, so a failed upsert leaves
// no row behind; a failed commit removes the already written point.
func (s *Store) AddContent(ctx context.Context, text string, meta Metadata) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(text) == "" {
		return "", &StoreError{Op: "add", Err: fmt.Errorf("%w: empty text", ErrInvalidChunk)}
	}
	if meta.SourcePath == "" {
		return "", &StoreError{Op: "add", Err: fmt.Errorf("%w: missing source path", ErrInvalidChunk)}
	}

	vec, err := s.embedder.EmbedText(ctx, text)
	if err != nil {
		return "", &StoreError{Op: "add", Err: fmt.Errorf("failed to embed chunk: %w", err)}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rec := &storage.ChunkRecord{
		Text:       text,
		SourcePath: meta.SourcePath,
		Timestamp:  meta.Timestamp,
	}
	var pointID string
	err = s.chunks.Insert(ctx, rec, func(r *storage.ChunkRecord) error {
		p := newPoint(r, vec)
		pointID = p.ID
		return s.index.Upsert(ctx, s.collection, []vectorstore.Point{p})
	})
	if err != nil {
		if errors.Is(err, storage.ErrCommitFailed) && pointID != "" {
			if delErr := s.index.Delete(ctx, s.collection, []string{pointID}); delErr != nil {
				logger.ErrorContext(ctx, "failed to remove orphaned point", "point_id", pointID, "error", delErr)
			}
		}
		logger.ErrorContext(ctx, "failed to add content", "source", meta.SourcePath, "error", err)
		return "", &StoreError{Op: "add", Err: err}
	}

	logger.DebugContext(ctx, "content added", "chunk_id", rec.ID, "source", meta.SourcePath)
	return rec.ID, nil
}

// Search returns up to k chunks closest to query, nearest first.
// Equal distances keep insertion order. An empty store yields an empty slice.
func (s *Store) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if k <= 0 {
		return nil, &StoreError{Op: "search", Err: fmt.Errorf("k must be greater than 0")}
	}

	n, err := s.chunks.Count(ctx)
	if err != nil {
		return nil, &StoreError{Op: "search", Err: err}
	}
	if n == 0 {
		return []SearchResult{}, nil
	}

	vec, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, &StoreError{Op: "search", Err: fmt.Errorf("failed to embed query: %w", err)}
	}

	hits, err := s.searchIndex(ctx, vec, k, n)
	if err != nil {
		return nil, &StoreError{Op: "search", Err: err}
	}

	type ranked struct {
		result SearchResult
		seq    int64
	}
	ordered := make([]ranked, 0, len(hits))
	for _, hit := range hits {
		chunkID, _ := hit.Payload["chunk_id"].(string)
		if chunkID == "" {
			logger.WarnContext(ctx, "search hit without chunk id", "point_id", hit.ID)
			continue
		}
		rec, err := s.chunks.GetByID(ctx, chunkID)
		if errors.Is(err, storage.ErrNotFound) {
			logger.WarnContext(ctx, "search hit for unknown chunk", "chunk_id", chunkID)
			continue
		}
		if err != nil {
			return nil, &StoreError{Op: "search", Err: err}
		}

		distance := 1 - float64(hit.Score)
		ordered = append(ordered, ranked{
			result: SearchResult{
				Content:  rec.Text,
				Metadata: Metadata{SourcePath: rec.SourcePath, Timestamp: rec.Timestamp},
				Distance: &distance,
			},
			seq: rec.Seq,
		})
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		di, dj := *ordered[i].result.Distance, *ordered[j].result.Distance
		if di != dj {
			return di < dj
		}
		return ordered[i].seq < ordered[j].seq
	})

	if len(ordered) > k {
		ordered = ordered[:k]
	}
	results := make([]SearchResult, len(ordered))
	for i, r := range ordered {
		results[i] = r.result
	}

	logger.DebugContext(ctx, "content search", "k", k, "results", len(results))
	return results, nil
}

// searchIndex fetches at least k hits and keeps widening the request while the
// last hit ties with the k-th, so no equally close chunk is cut off by the
// index's own ordering.
func (s *Store) searchIndex(ctx context.Context, vec []float32, k, n int) ([]vectorstore.Hit, error) {
	limit := max(k, min(k+searchOverfetch, n))
	for {
		hits, err := s.index.Search(ctx, s.collection, vec, limit, nil)
		if err != nil {
			return nil, err
		}
		if len(hits) < limit || len(hits) <= k || limit >= n {
			return hits, nil
		}
		if hits[len(hits)-1].Score != hits[k-1].Score {
			return hits, nil
		}
		next := min(limit*2, n)
		if next <= limit {
			return hits, nil
		}
		limit = next
	}
}

// Rebuild re-embeds every stored chunk and writes its point to the index.
// It restores a volatile index from the SQLite rows and returns the number of
// points written.
func (s *Store) Rebuild(ctx context.Context) (int, error) {
	logger := contextutil.LoggerFromContext(ctx)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	recs, err := s.chunks.ListAll(ctx)
	if err != nil {
		return 0, &StoreError{Op: "add", Err: err}
	}

	written := 0
	batch := make([]vectorstore.Point, 0, rebuildBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.index.Upsert(ctx, s.collection, batch); err != nil {
			return err
		}
		written += len(batch)
		batch = batch[:0]
		return nil
	}

	for i := range recs {
		vec, err := s.embedder.EmbedText(ctx, recs[i].Text)
		if err != nil {
			return written, &StoreError{Op: "add", Err: fmt.Errorf("failed to embed %s: %w", recs[i].ID, err)}
		}
		batch = append(batch, newPoint(&recs[i], vec))
		if len(batch) == rebuildBatch {
			if err := flush(); err != nil {
				return written, &StoreError{Op: "add", Err: err}
			}
		}
	}
	if err := flush(); err != nil {
		return written, &StoreError{Op: "add", Err: err}
	}

	logger.InfoContext(ctx, "vector index rebuilt", "collection", s.collection, "points", written)
	return written, nil
}

// GetAll returns every chunk in insertion order.
func (s *Store) GetAll(ctx context.Context) ([]Chunk, error) {
	recs, err := s.chunks.ListAll(ctx)
	if err != nil {
		return nil, &StoreError{Op: "search", Err: err}
	}
	out := make([]Chunk, len(recs))
	for i, rec := range recs {
		out[i] = fromRecord(&rec)
	}
	return out, nil
}

// GetByID returns one chunk, or storage.ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id string) (*Chunk, error) {
	rec, err := s.chunks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c := fromRecord(rec)
	return &c, nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	return s.chunks.Count(ctx)
}

// Sources returns chunk counts per transcript.
func (s *Store) Sources(ctx context.Context) ([]storage.SourceCount, error) {
	return s.chunks.CountBySource(ctx)
}

// CheckIndex fails when the vector collection is unreachable or missing.
func (s *Store) CheckIndex(ctx context.Context) error {
	ok, err := s.index.CollectionExists(ctx, s.collection)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("collection %s does not exist", s.collection)
	}
	return nil
}

func newPoint(rec *storage.ChunkRecord, vec []float32) vectorstore.Point {
	return vectorstore.Point{
		ID:     PointID(rec.ID),
		Vector: vec,
		Payload: map[string]any{
			"chunk_id":    rec.ID,
			"seq":         rec.Seq,
			"source_path": rec.SourcePath,
			"timestamp":   rec.Timestamp,
		},
	}
}

func fromRecord(rec *storage.ChunkRecord) Chunk {
	return Chunk{
		ID:       rec.ID,
		Text:     rec.Text,
		Metadata: Metadata{SourcePath: rec.SourcePath, Timestamp: rec.Timestamp},
	}
}
