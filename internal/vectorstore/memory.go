package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore is a brute-force, process-local VectorStore scoring by cosine
// similarity. Nothing survives a restart; it backs VECTOR_BACKEND=memory and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	points map[string]memoryPoint
	next   int64
}

type memoryPoint struct {
	point Point
	order int64 // first-insert order, used to break score ties
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

// EnsureCollection creates the collection if needed. vectorSize is accepted
// for parity with QdrantStore and not enforced.
func (s *MemoryStore) EnsureCollection(_ context.Context, collection string, _ int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collection(collection)
	return nil
}

func (s *MemoryStore) collection(name string) *memoryCollection {
	c, ok := s.collections[name]
	if !ok {
		c = &memoryCollection{points: make(map[string]memoryPoint)}
		s.collections[name] = c
	}
	return c
}

// Upsert inserts or replaces points.
func (s *MemoryStore) Upsert(_ context.Context, collection string, points []Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	for _, p := range points {
		if p.ID == "" {
			return fmt.Errorf("point id is required")
		}
		vec := make([]float32, len(p.Vector))
		copy(vec, p.Vector)
		meta := make(map[string]any, len(p.Payload))
		for k, v := range p.Payload {
			meta[k] = v
		}

		order := c.next
		if existing, ok := c.points[p.ID]; ok {
			order = existing.order
		} else {
			c.next++
		}
		c.points[p.ID] = memoryPoint{point: Point{ID: p.ID, Vector: vec, Payload: meta}, order: order}
	}
	return nil
}

// Search returns the k most similar points, highest score first.
func (s *MemoryStore) Search(_ context.Context, collection string, query []float32, k int, filters map[string]any) ([]Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return []Hit{}, nil
	}

	type scored struct {
		res   Hit
		order int64
	}
	candidates := make([]scored, 0, len(c.points))
	for _, mp := range c.points {
		if !matches(mp.point.Payload, filters) {
			continue
		}
		candidates = append(candidates, scored{
			res: Hit{
				ID:      mp.point.ID,
				Score:   cosine(query, mp.point.Vector),
				Payload: mp.point.Payload,
			},
			order: mp.order,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].res.Score != candidates[j].res.Score {
			return candidates[i].res.Score > candidates[j].res.Score
		}
		return candidates[i].order < candidates[j].order
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	results := make([]Hit, len(candidates))
	for i, cand := range candidates {
		results[i] = cand.res
	}
	return results, nil
}

// Delete removes points by id. Unknown ids are ignored.
func (s *MemoryStore) Delete(_ context.Context, collection string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.collections[collection]; ok {
		for _, id := range ids {
			delete(c.points, id)
		}
	}
	return nil
}

// CollectionExists reports whether the collection has been created.
func (s *MemoryStore) CollectionExists(_ context.Context, collection string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[collection]
	return ok, nil
}

// Len returns the number of points in a collection.
func (s *MemoryStore) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.collections[collection]; ok {
		return len(c.points)
	}
	return 0
}

func matches(meta, filters map[string]any) bool {
	for k, want := range filters {
		if got, ok := meta[k]; !ok || got != want {
			return false
		}
	}
	return true
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
