package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"lecture-qa/internal/archive"
	"lecture-qa/internal/asr"
	"lecture-qa/internal/content"
	"lecture-qa/internal/contextutil"
	"lecture-qa/internal/llm"
)

// Pipeline turns lecture audio into stored chunks:
// transcribe, clean, split, attach metadata, store.
type Pipeline struct {
	transcriber asr.Transcriber
	archive     TranscriptArchive
	store       ContentStore
	splitter    *Splitter
	tokens      *llm.TokenCounter
	logger      *slog.Logger
}

// NewPipeline creates a new ingestion pipeline with the default splitter.
func NewPipeline(transcriber asr.Transcriber, archive TranscriptArchive, store ContentStore, tokens *llm.TokenCounter) *Pipeline {
	splitter, _ := NewSplitter()
	return &Pipeline{
		transcriber: transcriber,
		archive:     archive,
		store:       store,
		splitter:    splitter,
		tokens:      tokens,
		logger:      slog.Default(),
	}
}

func (p *Pipeline) getLogger(ctx context.Context) *slog.Logger {
	if l := contextutil.LoggerFromContext(ctx); l != slog.Default() {
		return l
	}
	return p.logger
}

// Ingest transcribes an audio file and stores its chunks.
func (p *Pipeline) Ingest(ctx context.Context, audioPath string) (Result, error) {
	logger := p.getLogger(ctx).With("audio", audioPath)

	logger.InfoContext(ctx, "transcribing lecture")
	transcript, err := p.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrTranscription, err)
	}
	if transcript.Text == "" {
		return Result{}, fmt.Errorf("%w: recognizer returned no text", ErrTranscription)
	}

	transcriptPath, err := p.archive.SaveTranscript(transcript.Text)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrTranscription, err)
	}
	logger.InfoContext(ctx, "transcript saved", "transcript", transcriptPath, "language", transcript.Language)

	res, err := p.ingestText(ctx, transcript.Text, transcriptPath)
	res.Language = transcript.Language
	return res, err
}

// IngestTranscript stores the chunks of an already saved transcript.
func (p *Pipeline) IngestTranscript(ctx context.Context, transcriptPath string) (Result, error) {
	text, err := archive.ReadTranscript(transcriptPath)
	if err != nil {
		return Result{}, err
	}
	return p.ingestText(ctx, text, transcriptPath)
}

func (p *Pipeline) ingestText(ctx context.Context, text, transcriptPath string) (Result, error) {
	return p.storeChunks(ctx, p.split(text), transcriptPath, 0)
}

func (p *Pipeline) split(text string) []string {
	return p.splitter.Split(Clean(text))
}

// storeChunks writes chunks[from:] for one transcript. A resumed transcript
// passes the number of chunks it already has.
func (p *Pipeline) storeChunks(ctx context.Context, chunks []string, transcriptPath string, from int) (Result, error) {
	logger := p.getLogger(ctx).With("transcript", transcriptPath)
	res := Result{TranscriptPath: transcriptPath}

	if len(chunks) == 0 {
		logger.WarnContext(ctx, "transcript produced no chunks")
		return res, ErrEmptyContent
	}
	logger.InfoContext(ctx, "transcript split", "chunks", len(chunks), "already_stored", from)

	meta := content.Metadata{
		SourcePath: transcriptPath,
		Timestamp:  archive.StampFromPath(transcriptPath),
	}

	res.ChunkIDs = make([]string, 0, len(chunks)-from)
	for i := from; i < len(chunks); i++ {
		select {
		case <-ctx.Done():
			return res, &PartialIngestionError{Stored: from + len(res.ChunkIDs), Total: len(chunks), Err: ctx.Err()}
		default:
		}

		id, err := p.store.AddContent(ctx, chunks[i], meta)
		if err != nil {
			logger.ErrorContext(ctx, "failed to store chunk", "index", i, "stored", from+len(res.ChunkIDs), "error", err)
			return res, &PartialIngestionError{Stored: from + len(res.ChunkIDs), Total: len(chunks), Err: err}
		}
		res.ChunkIDs = append(res.ChunkIDs, id)
	}

	logger.InfoContext(ctx, "transcript ingested", "chunks", len(res.ChunkIDs))
	return res, nil
}

// IngestArchive stores every archived transcript that is missing chunks.
// A transcript cut short by an earlier failure gets only its missing tail.
// It keeps going past failures and reports them together.
func (p *Pipeline) IngestArchive(ctx context.Context) (int, error) {
	logger := p.getLogger(ctx)

	files, err := p.archive.ScanTranscripts(ctx)
	if err != nil {
		return 0, err
	}
	sources, err := p.store.Sources(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list stored sources: %w", err)
	}
	stored := make(map[string]int, len(sources))
	for _, s := range sources {
		stored[s.SourcePath] = s.Chunks
	}

	logger.InfoContext(ctx, "re-ingesting archive", "transcripts", len(files), "already_stored", len(stored))

	var (
		ingested int
		errs     []error
	)
	for _, f := range files {
		select {
		case <-ctx.Done():
			return ingested, ctx.Err()
		default:
		}
		text, err := archive.ReadTranscript(f.Path)
		if err != nil {
			logger.ErrorContext(ctx, "failed to read transcript", "transcript", f.Path, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", f.Path, err))
			continue
		}
		chunks := p.split(text)
		have := stored[f.Path]
		if have > 0 && have >= len(chunks) {
			logger.DebugContext(ctx, "skipping stored transcript", "transcript", f.Path)
			continue
		}
		if have > 0 {
			logger.InfoContext(ctx, "resuming partial transcript", "transcript", f.Path, "stored", have, "total", len(chunks))
		}
		if _, err := p.storeChunks(ctx, chunks, f.Path, have); err != nil {
			logger.ErrorContext(ctx, "failed to ingest transcript", "transcript", f.Path, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", f.Path, err))
			continue
		}
		ingested++
	}

	logger.InfoContext(ctx, "archive re-ingest finished", "ingested", ingested, "errors", len(errs))
	return ingested, errors.Join(errs...)
}
