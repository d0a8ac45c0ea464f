package indexer

import (
	"context"
	"errors"
	"fmt"

	"lecture-qa/internal/archive"
	"lecture-qa/internal/content"
	"lecture-qa/internal/storage"
)

var (
	// ErrTranscription is returned when the recognizer produced no usable transcript.
	ErrTranscription = errors.New("transcription failed")
	// ErrEmptyContent is returned when cleaning and splitting left nothing to store.
	ErrEmptyContent = errors.New("no content to ingest")
)

// PartialIngestionError reports that storing stopped part way. Chunks already
// stored stay in the store.
type PartialIngestionError struct {
	Stored int
	Total  int
	Err    error
}

func (e *PartialIngestionError) Error() string {
	return fmt.Sprintf("ingestion stopped after %d of %d chunks: %v", e.Stored, e.Total, e.Err)
}

func (e *PartialIngestionError) Unwrap() error { return e.Err }

// ContentStore is the slice of content.Store the pipeline writes to.
type ContentStore interface {
	AddContent(ctx context.Context, text string, meta content.Metadata) (string, error)
	GetAll(ctx context.Context) ([]content.Chunk, error)
	Sources(ctx context.Context) ([]storage.SourceCount, error)
}

// TranscriptArchive persists transcripts and lists them back.
type TranscriptArchive interface {
	SaveTranscript(text string) (string, error)
	ScanTranscripts(ctx context.Context) ([]archive.TranscriptFile, error)
}

// Result describes one ingested transcript.
type Result struct {
	TranscriptPath string   `json:"transcript_path"`
	Language       string   `json:"language,omitempty"`
	ChunkIDs       []string `json:"chunk_ids"`
}

// Stored returns the number of chunks written.
func (r Result) Stored() int { return len(r.ChunkIDs) }
