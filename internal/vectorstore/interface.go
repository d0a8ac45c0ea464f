package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks lecture-qa/internal/vectorstore VectorStore

import "context"

// Point is an embedded chunk as the index sees it.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// Hit is one nearest neighbour. Score is cosine similarity, higher is closer.
type Hit struct {
	ID      string
	Score   float32
	Payload map[string]any
}

// VectorStore is the similarity index behind the chunk store. Filters are
// exact matches on payload keys.
type VectorStore interface {
	Upsert(ctx context.Context, collection string, points []Point) error
	Search(ctx context.Context, collection string, query []float32, k int, filters map[string]any) ([]Hit, error)
	Delete(ctx context.Context, collection string, ids []string) error
	CollectionExists(ctx context.Context, collection string) (bool, error)
}
