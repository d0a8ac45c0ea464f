package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"lecture-qa/internal/archive"
	"lecture-qa/internal/asr"
	"lecture-qa/internal/config"
	"lecture-qa/internal/content"
	"lecture-qa/internal/indexer"
	"lecture-qa/internal/llm"
	"lecture-qa/internal/rag"
	"lecture-qa/internal/service"
	"lecture-qa/internal/speech"
	"lecture-qa/internal/storage"
	"lecture-qa/internal/vectorstore"
)

// app holds everything a command needs.
type app struct {
	cfg      *config.Config
	db       *sql.DB
	store    *content.Store
	pipeline *indexer.Pipeline
	janitor  *speech.Janitor
	svc      service.QAService

	closers []func() error
}

func setupLogging(cfg *config.Config) {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)
}

func newApp(ctx context.Context) (_ *app, err error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	setupLogging(cfg)

	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	db, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, db.Close)
	if err := storage.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	index, err := a.openIndex(ctx)
	if err != nil {
		return nil, err
	}

	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.QdrantVectorSize)
	a.store = content.NewStore(storage.NewChunkRepo(db), index, embedder, cfg.QdrantCollection)
	if cfg.VectorBackend == "memory" {
		n, err := a.store.Rebuild(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to rebuild in-memory vector index: %w", err)
		}
		slog.Info("In-memory vector index loaded from database", "chunks", n)
	}

	archiveMgr, err := archive.NewManager(cfg.TranscriptsDir, cfg.QuestionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize archive: %w", err)
	}

	transcriber := asr.NewOpenAITranscriber(cfg.ASRBaseURL, cfg.ASRAPIKey, cfg.ASRModel)
	tokens := llm.NewTokenCounter(cfg.LLMModelName)
	a.pipeline = indexer.NewPipeline(transcriber, archiveMgr, a.store, tokens)

	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)
	engine := rag.NewEngine(rag.NewRetriever(a.store), llmClient, tokens)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)

	speaker, err := newSpeechRouter(cfg)
	if err != nil {
		return nil, err
	}
	if n, err := speech.SweepDir(ctx, cfg.ArtifactsDir, cfg.SpeechCleanupDelay); err != nil {
		slog.Warn("Failed to sweep speech artifacts", "error", err)
	} else if n > 0 {
		slog.Info("Removed stale speech artifacts", "count", n)
	}
	a.janitor = speech.NewJanitor(cfg.SpeechCleanupDelay)
	a.closers = append(a.closers, a.janitor.Close)

	a.svc = service.NewQAService(service.Deps{
		Ingester:       a.pipeline,
		Answerer:       engine,
		Speaker:        speaker,
		Transcriber:    transcriber,
		Questions:      archiveMgr,
		Chunks:         a.store,
		Janitor:        a.janitor,
		EmbeddingModel: cfg.EmbeddingModelName,
	})
	return a, nil
}

func (a *app) openIndex(ctx context.Context) (vectorstore.VectorStore, error) {
	cfg := a.cfg
	if cfg.VectorBackend == "memory" {
		mem := vectorstore.NewMemoryStore()
		if err := mem.EnsureCollection(ctx, cfg.QdrantCollection, cfg.QdrantVectorSize); err != nil {
			return nil, err
		}
		return mem, nil
	}

	qdrantStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}
	a.closers = append(a.closers, qdrantStore.Close)

	if err := qdrantStore.EnsureCollection(ctx, cfg.QdrantCollection, cfg.QdrantVectorSize); err != nil {
		return nil, fmt.Errorf("failed to ensure Qdrant collection: %w", err)
	}
	slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.QdrantVectorSize)
	return qdrantStore, nil
}

func newSpeechRouter(cfg *config.Config) (*speech.Router, error) {
	var local speech.LocalSynthesizer
	if cfg.LocalTTSEnabled {
		cmd, err := speech.NewCommandSynthesizer(cfg.LocalTTSCommand, cfg.LocalTTSMarker, speech.NewEnginePool(cfg.LocalTTSConcurrency))
		if err != nil {
			return nil, fmt.Errorf("failed to configure local speech engine: %w", err)
		}
		local = cmd
	}
	online := speech.NewOpenAISynthesizer(cfg.TTSBaseURL, cfg.TTSAPIKey, cfg.TTSModel, cfg.TTSVoice, cfg.ArtifactsDir, cfg.TTSRatePerMinute)
	slog.Info("Speech configured", "local", cfg.LocalTTSEnabled, "online_model", cfg.TTSModel)
	return speech.NewRouter(local, online, speech.WithLocalTimeout(cfg.LocalTTSTimeout)), nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
