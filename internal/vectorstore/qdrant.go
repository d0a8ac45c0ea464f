package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"lecture-qa/internal/contextutil"
)

const defaultGRPCPort = 6334

// ErrVectorSizeMismatch means an existing collection was built for a
// different embedding model.
var ErrVectorSizeMismatch = errors.New("collection vector size mismatch")

// QdrantStore is a VectorStore on a Qdrant server, spoken to over gRPC.
type QdrantStore struct {
	client *qdrant.Client
}

// NewQdrantStore connects to the Qdrant at rawURL. The URL names the REST
// port (6333 by convention); gRPC is assumed to listen on the next port.
func NewQdrantStore(rawURL string) (*QdrantStore, error) {
	host, port, err := grpcEndpoint(rawURL)
	if err != nil {
		return nil, err
	}
	client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port})
	if err != nil {
		return nil, fmt.Errorf("connect qdrant %s:%d: %w", host, port, err)
	}
	return &QdrantStore{client: client}, nil
}

func grpcEndpoint(rawURL string) (string, int, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", 0, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := u.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := defaultGRPCPort
	if p, err := strconv.Atoi(u.Port()); err == nil {
		port = p + 1
	}
	return host, port, nil
}

// Close releases the gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func (s *QdrantStore) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	structs := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		structs[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
		}
		if len(p.Payload) > 0 {
			structs[i].Payload = qdrant.NewValueMap(p.Payload)
		}
	}

	wait := true
	if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         structs,
		Wait:           &wait,
	}); err != nil {
		return fmt.Errorf("qdrant upsert into %s: %w", collection, err)
	}

	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "points upserted", "collection", collection, "count", len(points))
	return nil
}

func (s *QdrantStore) Search(ctx context.Context, collection string, query []float32, k int, filters map[string]any) ([]Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	filter, err := buildFilter(filters)
	if err != nil {
		return nil, err
	}

	limit := uint64(k)
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(query...),
		Filter:         filter,
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant query %s: %w", collection, err)
	}

	hits := make([]Hit, 0, len(points))
	for _, p := range points {
		hits = append(hits, Hit{
			ID:      p.GetId().GetUuid(),
			Score:   p.GetScore(),
			Payload: convertPayloadToMap(p.GetPayload()),
		})
	}
	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "qdrant search", "collection", collection, "k", k, "hits", len(hits))
	return hits, nil
}

func (s *QdrantStore) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewID(id)
	}
	wait := true
	if _, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
		Wait:           &wait,
	}); err != nil {
		return fmt.Errorf("qdrant delete from %s: %w", collection, err)
	}
	return nil
}

func (s *QdrantStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	ok, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return false, fmt.Errorf("qdrant collection %s: %w", collection, err)
	}
	return ok, nil
}

// EnsureCollection creates a cosine collection of vectorSize, or checks that
// an existing one has that size.
func (s *QdrantStore) EnsureCollection(ctx context.Context, collection string, vectorSize int) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}
	if !exists {
		if err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(vectorSize),
				Distance: qdrant.Distance_Cosine,
			}),
		}); err != nil {
			return fmt.Errorf("create collection %s: %w", collection, err)
		}
		logger.InfoContext(ctx, "collection created", "collection", collection, "vector_size", vectorSize)
		return nil
	}

	info, err := s.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		return fmt.Errorf("describe collection %s: %w", collection, err)
	}
	size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
	if size == 0 {
		return fmt.Errorf("collection %s has no single unnamed vector", collection)
	}
	if int(size) != vectorSize {
		return fmt.Errorf("%w: %s holds %d, embeddings have %d", ErrVectorSizeMismatch, collection, size, vectorSize)
	}
	logger.InfoContext(ctx, "collection ready", "collection", collection, "vector_size", vectorSize, "points", info.GetPointsCount())
	return nil
}

// buildFilter turns exact-match filters into a must-filter, keys in sorted order.
func buildFilter(filters map[string]any) (*qdrant.Filter, error) {
	if len(filters) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	must := make([]*qdrant.Condition, 0, len(keys))
	for _, key := range keys {
		var cond *qdrant.Condition
		switch v := filters[key].(type) {
		case string:
			cond = qdrant.NewMatch(key, v)
		case int:
			cond = qdrant.NewMatchInt(key, int64(v))
		case int64:
			cond = qdrant.NewMatchInt(key, v)
		case bool:
			cond = qdrant.NewMatchBool(key, v)
		default:
			return nil, fmt.Errorf("filter %s: unsupported type %T", key, v)
		}
		must = append(must, cond)
	}
	return &qdrant.Filter{Must: must}, nil
}

func convertPayloadToMap(payload map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		if v != nil {
			out[k] = convertValue(v)
		}
	}
	return out
}

func convertValue(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		items := kind.ListValue.GetValues()
		list := make([]any, len(items))
		for i, item := range items {
			list[i] = convertValue(item)
		}
		return list
	case *qdrant.Value_StructValue:
		return convertPayloadToMap(kind.StructValue.GetFields())
	}
	return nil
}
