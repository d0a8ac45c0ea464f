package llm

import (
	"context"
	"errors"
	"fmt"
)

const embeddingsPath = "/v1/embeddings"

// EmbeddingsClient turns text into vectors through /v1/embeddings.
type EmbeddingsClient struct {
	endpoint
	model string
	// dims is the vector size the index was created with; 0 skips the check.
	dims int
}

// NewEmbeddingsClient creates a new embeddings client. dims is the configured
// QDRANT_VECTOR_SIZE.
func NewEmbeddingsClient(baseURL, apiKey, model string, dims int) *EmbeddingsClient {
	return &EmbeddingsClient{
		endpoint: newEndpoint(baseURL, apiKey),
		model:    model,
		dims:     dims,
	}
}

// EmbeddingsRequest is the body of an embeddings request.
type EmbeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// EmbeddingData is one vector. Index refers back to the input position.
type EmbeddingData struct {
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// EmbeddingsResponse is the reply to an EmbeddingsRequest.
type EmbeddingsResponse struct {
	Data []EmbeddingData `json:"data"`
}

// EmbedTexts returns one vector per text, in input order.
func (c *EmbeddingsClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.New("nothing to embed")
	}

	var resp EmbeddingsResponse
	if err := c.postJSON(ctx, embeddingsPath, EmbeddingsRequest{Model: c.model, Input: texts}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	out := make([][]float32, len(texts))
	byIndex := indexed(resp.Data)
	for i, d := range resp.Data {
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("embedding %d is empty", i)
		}
		if c.dims > 0 && len(d.Embedding) != c.dims {
			return nil, fmt.Errorf("embedding %d has %d dimensions, index expects %d", i, len(d.Embedding), c.dims)
		}
		pos := i
		if byIndex {
			pos = d.Index
		}
		out[pos] = toFloat32(d.Embedding)
	}
	return out, nil
}

// EmbedText embeds a single text.
func (c *EmbeddingsClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// indexed reports whether data carries a usable permutation of indexes.
// Servers that omit the field send all zeros, so response order is used.
func indexed(data []EmbeddingData) bool {
	seen := make([]bool, len(data))
	for _, d := range data {
		if d.Index < 0 || d.Index >= len(data) || seen[d.Index] {
			return false
		}
		seen[d.Index] = true
	}
	return true
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
