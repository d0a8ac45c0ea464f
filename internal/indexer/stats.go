package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
)

// CoverageStats describes what the store currently holds.
type CoverageStats struct {
	// Transcripts is the number of transcripts with at least one stored chunk.
	Transcripts int `json:"transcripts"`
	// Chunks is the number of stored chunks.
	Chunks int `json:"chunks"`
	// ChunkTokenStats summarizes token counts per chunk.
	ChunkTokenStats ChunkTokenStats `json:"chunk_token_stats"`
	SplitterVersion string          `json:"splitter_version"`
	ChunkSize       int             `json:"chunk_size"`
	ChunkOverlap    int             `json:"chunk_overlap"`
	// IndexVersion identifies the splitter, its parameters and the embedding model.
	IndexVersion string `json:"index_version"`
}

// ChunkTokenStats contains statistics about token counts in chunks.
type ChunkTokenStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P95  int     `json:"p95"`
}

// Stats computes coverage statistics from the store.
func (p *Pipeline) Stats(ctx context.Context, embeddingModelName string) (*CoverageStats, error) {
	chunks, err := p.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chunks: %w", err)
	}
	sources, err := p.store.Sources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count sources: %w", err)
	}

	stats := &CoverageStats{
		Transcripts:     len(sources),
		Chunks:          len(chunks),
		SplitterVersion: SplitterVersion,
		ChunkSize:       p.splitter.chunkSize,
		ChunkOverlap:    p.splitter.overlap,
		IndexVersion:    indexVersion(embeddingModelName, p.splitter),
	}

	counts := make([]int, 0, len(chunks))
	for _, c := range chunks {
		counts = append(counts, p.tokens.Count(c.Text))
	}
	stats.ChunkTokenStats = computeTokenStats(counts)

	return stats, nil
}

func indexVersion(embeddingModelName string, s *Splitter) string {
	input := fmt.Sprintf("%s|%s|chunkSize=%d|chunkOverlap=%d",
		SplitterVersion, embeddingModelName, s.chunkSize, s.overlap)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])[:16]
}

// computeTokenStats computes min, max, mean, and p95 from token counts.
func computeTokenStats(tokenCounts []int) ChunkTokenStats {
	if len(tokenCounts) == 0 {
		return ChunkTokenStats{}
	}

	sorted := make([]int, len(tokenCounts))
	copy(sorted, tokenCounts)
	sort.Ints(sorted)

	sum := 0
	for _, count := range tokenCounts {
		sum += count
	}
	mean := float64(sum) / float64(len(tokenCounts))

	p95Index := int(math.Ceil(float64(len(sorted)) * 0.95))
	if p95Index >= len(sorted) {
		p95Index = len(sorted) - 1
	}

	return ChunkTokenStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100,
		P95:  sorted[p95Index],
	}
}
