package content

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/mock/gomock"

	"lecture-qa/internal/storage"
	storagemocks "lecture-qa/internal/storage/mocks"
	"lecture-qa/internal/vectorstore"
	"lecture-qa/internal/vectorstore/mocks"
)

// tableEmbedder returns fixed vectors for known texts and a default otherwise.
type tableEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (e *tableEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 1, 1}, nil
}

func newTestRepo(t *testing.T) *storage.ChunkRepo {
	t.Helper()
	return openTestRepo(t, filepath.Join(t.TempDir(), "content.db"))
}

func openTestRepo(t *testing.T, path string) *storage.ChunkRepo {
	t.Helper()
	db, err := storage.New(path)
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return storage.NewChunkRepo(db)
}

func newMemoryStore(t *testing.T, embedder Embedder) (*Store, *vectorstore.MemoryStore) {
	t.Helper()
	index := vectorstore.NewMemoryStore()
	_ = index.EnsureCollection(context.Background(), "test", 3)
	return NewStore(newTestRepo(t), index, embedder, "test"), index
}

var lectureMeta = Metadata{SourcePath: "/data/transcript_20240301_091500.txt", Timestamp: "20240301_091500"}

func TestStore_AddContent(t *testing.T) {
	ctx := context.Background()
	store, index := newMemoryStore(t, &tableEmbedder{})

	id1, err := store.AddContent(ctx, "first chunk", lectureMeta)
	if err != nil {
		t.Fatalf("AddContent() error = %v", err)
	}
	id2, err := store.AddContent(ctx, "second chunk", lectureMeta)
	if err != nil {
		t.Fatalf("AddContent() error = %v", err)
	}
	if id1 == id2 {
		t.Errorf("AddContent() returned duplicate id %s", id1)
	}
	if index.Len("test") != 2 {
		t.Errorf("index has %d points, want 2", index.Len("test"))
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(all) != 2 || all[0].ID != id1 || all[1].Text != "second chunk" {
		t.Errorf("GetAll() = %+v", all)
	}
	if all[0].Metadata != lectureMeta {
		t.Errorf("GetAll() metadata = %+v, want %+v", all[0].Metadata, lectureMeta)
	}
}

func TestStore_AddContent_Invalid(t *testing.T) {
	ctx := context.Background()
	store, _ := newMemoryStore(t, &tableEmbedder{})

	tests := []struct {
		name string
		text string
		meta Metadata
	}{
		{name: "empty text", text: "   ", meta: lectureMeta},
		{name: "missing source", text: "hello", meta: Metadata{Timestamp: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.AddContent(ctx, tt.text, tt.meta)
			if !errors.Is(err, ErrStoreWrite) {
				t.Errorf("AddContent() error = %v, want ErrStoreWrite", err)
			}
			if !errors.Is(err, ErrInvalidChunk) {
				t.Errorf("AddContent() error = %v, want ErrInvalidChunk", err)
			}
		})
	}
}

func TestStore_AddContent_EmbedFailure(t *testing.T) {
	store, _ := newMemoryStore(t, &tableEmbedder{err: errors.New("embedder offline")})

	_, err := store.AddContent(context.Background(), "text", lectureMeta)
	if !errors.Is(err, ErrStoreWrite) {
		t.Fatalf("AddContent() error = %v, want ErrStoreWrite", err)
	}
}

func TestStore_AddContent_IndexFailureLeavesNoRow(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	index := mocks.NewMockVectorStore(ctrl)
	index.EXPECT().
		Upsert(gomock.Any(), "test", gomock.Any()).
		Return(errors.New("qdrant unavailable"))

	repo := newTestRepo(t)
	store := NewStore(repo, index, &tableEmbedder{}, "test")

	_, err := store.AddContent(context.Background(), "text", lectureMeta)
	if !errors.Is(err, ErrStoreWrite) {
		t.Fatalf("AddContent() error = %v, want ErrStoreWrite", err)
	}

	n, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Count() = %d, want 0 after failed upsert", n)
	}
}

func TestStore_AddContent_CommitFailureRemovesPoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	chunks := storagemocks.NewMockChunkStore(ctrl)
	chunks.EXPECT().
		Insert(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec *storage.ChunkRecord, beforeCommit func(*storage.ChunkRecord) error) error {
			rec.Seq = 7
			rec.ID = storage.FormatChunkID(rec.Seq)
			if err := beforeCommit(rec); err != nil {
				return err
			}
			return fmt.Errorf("%w: disk I/O error", storage.ErrCommitFailed)
		})

	index := mocks.NewMockVectorStore(ctrl)
	gomock.InOrder(
		index.EXPECT().Upsert(gomock.Any(), "test", gomock.Any()).Return(nil),
		index.EXPECT().Delete(gomock.Any(), "test", []string{PointID("chunk_7")}).Return(nil),
	)

	store := NewStore(chunks, index, &tableEmbedder{}, "test")
	if _, err := store.AddContent(context.Background(), "text", lectureMeta); !errors.Is(err, storage.ErrCommitFailed) {
		t.Fatalf("AddContent() error = %v, want ErrCommitFailed", err)
	}
}

func TestStore_AddContent_PointPayload(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	index := mocks.NewMockVectorStore(ctrl)
	index.EXPECT().
		Upsert(gomock.Any(), "test", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, points []vectorstore.Point) error {
			if len(points) != 1 {
				t.Fatalf("Upsert() got %d points, want 1", len(points))
			}
			p := points[0]
			if p.ID != PointID("chunk_1") {
				t.Errorf("point id = %s, want %s", p.ID, PointID("chunk_1"))
			}
			if p.Payload["chunk_id"] != "chunk_1" || p.Payload["source_path"] != lectureMeta.SourcePath {
				t.Errorf("point payload = %+v", p.Payload)
			}
			return nil
		})

	store := NewStore(newTestRepo(t), index, &tableEmbedder{}, "test")
	id, err := store.AddContent(context.Background(), "text", lectureMeta)
	if err != nil {
		t.Fatalf("AddContent() error = %v", err)
	}
	if id != "chunk_1" {
		t.Errorf("AddContent() id = %s, want chunk_1", id)
	}
}

func TestStore_AddContent_ConcurrentUniqueIDs(t *testing.T) {
	ctx := context.Background()
	store, _ := newMemoryStore(t, &tableEmbedder{})

	const n = 10
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[string]bool)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := store.AddContent(ctx, fmt.Sprintf("chunk %d", i), lectureMeta)
			if err != nil {
				t.Errorf("AddContent() error = %v", err)
				return
			}
			mu.Lock()
			ids[id] = true
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	if len(ids) != n {
		t.Errorf("got %d unique ids, want %d", len(ids), n)
	}
}

func TestStore_Search(t *testing.T) {
	ctx := context.Background()
	embedder := &tableEmbedder{vectors: map[string][]float32{
		"thermodynamics": {1, 0, 0},
		"entropy A":      {1, 0, 0},
		"entropy B":      {1, 0, 0},
		"kinetics":       {1, 1, 0},
		"poetry":         {0, 0, 1},
	}}
	store, _ := newMemoryStore(t, embedder)

	for _, text := range []string{"poetry", "entropy A", "kinetics", "entropy B"} {
		if _, err := store.AddContent(ctx, text, lectureMeta); err != nil {
			t.Fatalf("AddContent(%q) error = %v", text, err)
		}
	}

	results, err := store.Search(ctx, "thermodynamics", 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	want := []string{"entropy A", "entropy B", "kinetics"}
	if len(results) != len(want) {
		t.Fatalf("Search() returned %d results, want %d", len(results), len(want))
	}
	for i, w := range want {
		if results[i].Content != w {
			t.Errorf("Search()[%d] = %q, want %q", i, results[i].Content, w)
		}
		if results[i].Distance == nil {
			t.Errorf("Search()[%d] missing distance", i)
		}
	}
	for i := 1; i < len(results); i++ {
		if *results[i].Distance < *results[i-1].Distance {
			t.Errorf("Search() not ordered by distance at %d", i)
		}
	}
	if results[0].Metadata != lectureMeta {
		t.Errorf("Search() metadata = %+v", results[0].Metadata)
	}
}

func TestStore_Search_EmptyStore(t *testing.T) {
	embedder := &tableEmbedder{err: errors.New("must not be called")}
	store, _ := newMemoryStore(t, embedder)

	results, err := store.Search(context.Background(), "anything", 3)
	if err != nil {
		t.Fatalf("Search() on empty store error = %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("Search() on empty store = %v, want empty slice", results)
	}
}

func TestStore_Search_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid k", func(t *testing.T) {
		store, _ := newMemoryStore(t, &tableEmbedder{})
		if _, err := store.Search(ctx, "q", 0); !errors.Is(err, ErrStoreQuery) {
			t.Errorf("Search() error = %v, want ErrStoreQuery", err)
		}
	})

	t.Run("index failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		index := mocks.NewMockVectorStore(ctrl)
		index.EXPECT().Upsert(gomock.Any(), "test", gomock.Any()).Return(nil)
		index.EXPECT().
			Search(gomock.Any(), "test", gomock.Any(), 3, gomock.Nil()).
			Return(nil, errors.New("connection refused"))

		store := NewStore(newTestRepo(t), index, &tableEmbedder{}, "test")
		if _, err := store.AddContent(ctx, "seed", lectureMeta); err != nil {
			t.Fatalf("AddContent() error = %v", err)
		}
		if _, err := store.Search(ctx, "q", 3); !errors.Is(err, ErrStoreQuery) {
			t.Errorf("Search() error = %v, want ErrStoreQuery", err)
		}
	})

	t.Run("hit for unknown chunk is skipped", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		index := mocks.NewMockVectorStore(ctrl)
		index.EXPECT().Upsert(gomock.Any(), "test", gomock.Any()).Return(nil)
		index.EXPECT().
			Search(gomock.Any(), "test", gomock.Any(), 3, gomock.Nil()).
			Return([]vectorstore.Hit{
				{ID: "p-ghost", Score: 0.9, Payload: map[string]any{"chunk_id": "chunk_999"}},
				{ID: PointID("chunk_1"), Score: 0.5, Payload: map[string]any{"chunk_id": "chunk_1"}},
			}, nil)

		store := NewStore(newTestRepo(t), index, &tableEmbedder{}, "test")
		if _, err := store.AddContent(ctx, "seed", lectureMeta); err != nil {
			t.Fatalf("AddContent() error = %v", err)
		}
		results, err := store.Search(ctx, "q", 3)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(results) != 1 || results[0].Content != "seed" {
			t.Errorf("Search() = %+v, want only the known chunk", results)
		}
		if d := *results[0].Distance; d < 0.49 || d > 0.51 {
			t.Errorf("Distance = %v, want 0.5", d)
		}
	})
}

func TestStore_Search_TieAtCutoffKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	hit := func(seq int, score float32) vectorstore.Hit {
		id := storage.FormatChunkID(int64(seq))
		return vectorstore.Hit{ID: PointID(id), Score: score, Payload: map[string]any{"chunk_id": id}}
	}

	index := mocks.NewMockVectorStore(ctrl)
	index.EXPECT().Upsert(gomock.Any(), "test", gomock.Any()).Return(nil).Times(10)
	gomock.InOrder(
		// The index returns the newest of ten equally close chunks first.
		index.EXPECT().
			Search(gomock.Any(), "test", gomock.Any(), 5, gomock.Nil()).
			Return([]vectorstore.Hit{hit(10, 1), hit(9, 1), hit(8, 1), hit(7, 1), hit(6, 1)}, nil),
		index.EXPECT().
			Search(gomock.Any(), "test", gomock.Any(), 10, gomock.Nil()).
			Return([]vectorstore.Hit{
				hit(10, 1), hit(9, 1), hit(8, 1), hit(7, 1), hit(6, 1),
				hit(1, 1), hit(2, 0.5), hit(3, 0.5), hit(4, 0.5), hit(5, 0.5),
			}, nil),
	)

	store := NewStore(newTestRepo(t), index, &tableEmbedder{}, "test")
	for i := 1; i <= 10; i++ {
		if _, err := store.AddContent(ctx, fmt.Sprintf("chunk %d", i), lectureMeta); err != nil {
			t.Fatalf("AddContent() error = %v", err)
		}
	}

	results, err := store.Search(ctx, "q", 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Search() returned %d results, want 1", len(results))
	}
	if results[0].Content != "chunk 1" {
		t.Errorf("Search()[0] = %q, want the earliest of the tied chunks", results[0].Content)
	}
}

func TestStore_Search_NoExtraRequestWithoutTie(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	index := mocks.NewMockVectorStore(ctrl)
	index.EXPECT().Upsert(gomock.Any(), "test", gomock.Any()).Return(nil).Times(8)
	index.EXPECT().
		Search(gomock.Any(), "test", gomock.Any(), 6, gomock.Nil()).
		DoAndReturn(func(_ context.Context, _ string, _ []float32, limit int, _ map[string]any) ([]vectorstore.Hit, error) {
			hits := make([]vectorstore.Hit, limit)
			for i := range hits {
				id := storage.FormatChunkID(int64(i + 1))
				hits[i] = vectorstore.Hit{ID: PointID(id), Score: 1 - float32(i)/10, Payload: map[string]any{"chunk_id": id}}
			}
			return hits, nil
		}).
		Times(1)

	store := NewStore(newTestRepo(t), index, &tableEmbedder{}, "test")
	for i := 1; i <= 8; i++ {
		if _, err := store.AddContent(ctx, fmt.Sprintf("chunk %d", i), lectureMeta); err != nil {
			t.Fatalf("AddContent() error = %v", err)
		}
	}

	results, err := store.Search(ctx, "q", 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 || results[0].Content != "chunk 1" || results[1].Content != "chunk 2" {
		t.Errorf("Search() = %+v, want chunk 1 and chunk 2", results)
	}
}

func TestStore_Rebuild_AfterRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "content.db")
	embedder := &tableEmbedder{vectors: map[string][]float32{
		"entropy":  {1, 0, 0},
		"poetry":   {0, 0, 1},
		"question": {1, 0, 0},
	}}

	first := vectorstore.NewMemoryStore()
	_ = first.EnsureCollection(ctx, "test", 3)
	before := NewStore(openTestRepo(t, path), first, embedder, "test")
	for _, text := range []string{"poetry", "entropy"} {
		if _, err := before.AddContent(ctx, text, lectureMeta); err != nil {
			t.Fatalf("AddContent(%q) error = %v", text, err)
		}
	}

	// A new process starts with the same database and an empty index.
	fresh := vectorstore.NewMemoryStore()
	_ = fresh.EnsureCollection(ctx, "test", 3)
	after := NewStore(openTestRepo(t, path), fresh, embedder, "test")

	results, err := after.Search(ctx, "question", 1)
	if err != nil {
		t.Fatalf("Search() before Rebuild error = %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("Search() before Rebuild = %+v, want no hits", results)
	}

	n, err := after.Rebuild(ctx)
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if n != 2 || fresh.Len("test") != 2 {
		t.Errorf("Rebuild() = %d, index has %d points, want 2", n, fresh.Len("test"))
	}

	results, err = after.Search(ctx, "question", 1)
	if err != nil {
		t.Fatalf("Search() after Rebuild error = %v", err)
	}
	if len(results) != 1 || results[0].Content != "entropy" {
		t.Errorf("Search() after Rebuild = %+v, want entropy", results)
	}
	if results[0].Metadata != lectureMeta {
		t.Errorf("Search() metadata = %+v, want %+v", results[0].Metadata, lectureMeta)
	}
}

func TestStore_Rebuild_EmbedFailure(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	index := vectorstore.NewMemoryStore()
	_ = index.EnsureCollection(ctx, "test", 3)

	if _, err := NewStore(repo, index, &tableEmbedder{}, "test").AddContent(ctx, "text", lectureMeta); err != nil {
		t.Fatalf("AddContent() error = %v", err)
	}

	broken := NewStore(repo, vectorstore.NewMemoryStore(), &tableEmbedder{err: errors.New("embedder offline")}, "test")
	if _, err := broken.Rebuild(ctx); !errors.Is(err, ErrStoreWrite) {
		t.Errorf("Rebuild() error = %v, want ErrStoreWrite", err)
	}
}

func TestPointID_Deterministic(t *testing.T) {
	if PointID("chunk_1") != PointID("chunk_1") {
		t.Error("PointID() should be deterministic")
	}
	if PointID("chunk_1") == PointID("chunk_2") {
		t.Error("PointID() should differ per chunk")
	}
}

func TestStore_CheckIndex(t *testing.T) {
	store, _ := newMemoryStore(t, &tableEmbedder{})
	if err := store.CheckIndex(context.Background()); err != nil {
		t.Errorf("CheckIndex() error = %v", err)
	}

	missing := NewStore(newTestRepo(t), vectorstore.NewMemoryStore(), &tableEmbedder{}, "absent")
	if err := missing.CheckIndex(context.Background()); err == nil {
		t.Error("CheckIndex() on a missing collection should fail")
	}
}
