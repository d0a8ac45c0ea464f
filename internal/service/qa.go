package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_qa_service.go -package=mocks -mock_names=QAService=MockQAService lecture-qa/internal/service QAService

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"lecture-qa/internal/asr"
	"lecture-qa/internal/content"
	"lecture-qa/internal/contextutil"
	"lecture-qa/internal/indexer"
	"lecture-qa/internal/rag"
	"lecture-qa/internal/speech"
)

// DidNotCatchAnswer is returned when a voice question had no recognizable speech.
const DidNotCatchAnswer = "Sorry, I didn't catch your question."

// Ingester is the ingestion side used by the service.
type Ingester interface {
	Ingest(ctx context.Context, audioPath string) (indexer.Result, error)
	IngestArchive(ctx context.Context) (int, error)
	Stats(ctx context.Context, embeddingModelName string) (*indexer.CoverageStats, error)
}

// Answerer produces answers. It never fails; failures become a fallback answer.
type Answerer interface {
	Ask(ctx context.Context, question string) rag.AskResponse
}

// Speaker turns text into speech.
type Speaker interface {
	Speak(ctx context.Context, text string, questionLang speech.Language) (*speech.Result, error)
}

// QuestionArchive keeps recorded voice questions.
type QuestionArchive interface {
	SaveQuestion(r io.Reader, ext string) (string, error)
}

// ChunkLister lists stored chunks.
type ChunkLister interface {
	GetAll(ctx context.Context) ([]content.Chunk, error)
}

// AskRequest is a typed question.
type AskRequest struct {
	Question string `validate:"required"`
	// Speak asks for the answer to be synthesized as well.
	Speak bool
}

// SpeechInfo describes how an answer was spoken.
type SpeechInfo struct {
	Language speech.Language `json:"language"`
	Engine   speech.Engine   `json:"engine,omitempty"`
	Trace    []speech.State  `json:"trace,omitempty"`
	// AudioID names a file artifact served until its deferred release.
	AudioID string `json:"audio_id,omitempty"`
	// Error is set when synthesis failed; the answer text is still valid.
	Error string `json:"error,omitempty"`
}

// AskResponse is an answer in the domain layer.
type AskResponse struct {
	Question         string          `json:"question"`
	QuestionLanguage speech.Language `json:"question_language"`
	Answer           string          `json:"answer"`
	References       []rag.Reference `json:"references"`
	Fallback         bool            `json:"fallback,omitempty"`
	Speech           *SpeechInfo     `json:"speech,omitempty"`
	// QuestionPath is the archived recording for voice questions.
	QuestionPath string `json:"question_path,omitempty"`
}

// QAService is the application surface shared by the HTTP API and the CLI.
type QAService interface {
	// IngestLecture transcribes and stores one lecture recording.
	IngestLecture(ctx context.Context, audioPath string) (indexer.Result, error)
	// ReindexTranscripts stores archived transcripts that have no chunks yet.
	ReindexTranscripts(ctx context.Context) (int, error)
	// Ask answers a typed question.
	Ask(ctx context.Context, req AskRequest) (AskResponse, error)
	// AskVoice archives and transcribes a recorded question, then answers it.
	AskVoice(ctx context.Context, audio io.Reader, ext string, speak bool) (AskResponse, error)
	// Speak synthesizes text. The caller owns the returned artifact.
	Speak(ctx context.Context, text string, lang speech.Language) (*speech.Result, error)
	// Audio returns a registered speech artifact until it is released.
	Audio(id string) (*speech.Artifact, bool)
	// Chunks lists every stored chunk.
	Chunks(ctx context.Context) ([]content.Chunk, error)
	// Stats reports what the store holds.
	Stats(ctx context.Context) (*indexer.CoverageStats, error)
}

// Deps are the collaborators of the QA service.
type Deps struct {
	Ingester       Ingester
	Answerer       Answerer
	Speaker        Speaker
	Transcriber    asr.Transcriber
	Questions      QuestionArchive
	Chunks         ChunkLister
	Janitor        *speech.Janitor
	EmbeddingModel string
}

type qaService struct {
	deps   Deps
	logger *slog.Logger
}

// NewQAService creates a new QAService.
func NewQAService(deps Deps) QAService {
	return &qaService{
		deps:   deps,
		logger: slog.Default(),
	}
}

func (s *qaService) getLogger(ctx context.Context) *slog.Logger {
	if l := contextutil.LoggerFromContext(ctx); l != slog.Default() {
		return l
	}
	return s.logger
}

func (s *qaService) IngestLecture(ctx context.Context, audioPath string) (indexer.Result, error) {
	if strings.TrimSpace(audioPath) == "" {
		return indexer.Result{}, &ValidationError{Field: "audio", Message: "cannot be empty"}
	}
	return s.deps.Ingester.Ingest(ctx, audioPath)
}

func (s *qaService) ReindexTranscripts(ctx context.Context) (int, error) {
	return s.deps.Ingester.IngestArchive(ctx)
}

func (s *qaService) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	logger := s.getLogger(ctx)

	question := strings.TrimSpace(req.Question)
	if question == "" {
		logger.WarnContext(ctx, "empty question")
		return AskResponse{}, &ValidationError{Field: "question", Message: "cannot be empty"}
	}

	resp := s.answer(ctx, question)
	if req.Speak {
		resp.Speech = s.speak(ctx, resp.Answer, resp.QuestionLanguage)
	}

	logger.InfoContext(ctx, "question answered",
		"question_length", len(question),
		"question_language", resp.QuestionLanguage,
		"fallback", resp.Fallback,
		"spoken", resp.Speech != nil && resp.Speech.Error == "",
	)
	return resp, nil
}

func (s *qaService) AskVoice(ctx context.Context, audio io.Reader, ext string, speak bool) (AskResponse, error) {
	logger := s.getLogger(ctx)

	path, err := s.deps.Questions.SaveQuestion(audio, ext)
	if err != nil {
		return AskResponse{}, WrapError(err, "save question")
	}

	transcript, err := s.deps.Transcriber.Transcribe(ctx, path)
	if err != nil {
		logger.ErrorContext(ctx, "failed to transcribe question", "path", path, "error", err)
		return AskResponse{}, WrapError(errors.Join(indexer.ErrTranscription, err), "transcribe question")
	}

	question := strings.TrimSpace(transcript.Text)
	if question == "" {
		logger.InfoContext(ctx, "voice question had no speech", "path", path)
		return AskResponse{
			Answer:       DidNotCatchAnswer,
			References:   []rag.Reference{},
			Fallback:     true,
			QuestionPath: path,
		}, nil
	}

	resp := s.answer(ctx, question)
	resp.QuestionPath = path
	if speak {
		resp.Speech = s.speak(ctx, resp.Answer, resp.QuestionLanguage)
	}

	logger.InfoContext(ctx, "voice question answered", "path", path, "question_language", resp.QuestionLanguage, "fallback", resp.Fallback)
	return resp, nil
}

func (s *qaService) Speak(ctx context.Context, text string, lang speech.Language) (*speech.Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ValidationError{Field: "text", Message: "cannot be empty"}
	}
	return s.deps.Speaker.Speak(ctx, text, lang)
}

func (s *qaService) Audio(id string) (*speech.Artifact, bool) {
	if s.deps.Janitor == nil {
		return nil, false
	}
	return s.deps.Janitor.Lookup(id)
}

func (s *qaService) Chunks(ctx context.Context) ([]content.Chunk, error) {
	return s.deps.Chunks.GetAll(ctx)
}

func (s *qaService) Stats(ctx context.Context) (*indexer.CoverageStats, error) {
	return s.deps.Ingester.Stats(ctx, s.deps.EmbeddingModel)
}

func (s *qaService) answer(ctx context.Context, question string) AskResponse {
	ans := s.deps.Answerer.Ask(ctx, question)
	return AskResponse{
		Question:         question,
		QuestionLanguage: speech.DetectLanguage(question),
		Answer:           ans.Answer,
		References:       ans.References,
		Fallback:         ans.Fallback,
	}
}

// speak synthesizes an answer and hands any file to the janitor. Failure is
// reported in the result rather than failing the question.
func (s *qaService) speak(ctx context.Context, answer string, questionLang speech.Language) *SpeechInfo {
	logger := s.getLogger(ctx)

	res, err := s.deps.Speaker.Speak(ctx, answer, questionLang)
	if err != nil {
		logger.ErrorContext(ctx, "failed to speak answer", "error", err)
		info := &SpeechInfo{Error: err.Error()}
		if res != nil {
			info.Language = res.Language
			info.Trace = res.Trace
		}
		return info
	}

	info := &SpeechInfo{
		Language: res.Language,
		Engine:   res.Artifact.Engine,
		Trace:    res.Trace,
	}
	if res.Artifact.Kind == speech.ArtifactFile {
		if s.deps.Janitor != nil {
			info.AudioID = s.deps.Janitor.Register(res.Artifact)
		} else {
			_ = res.Artifact.Release()
		}
	}
	return info
}
