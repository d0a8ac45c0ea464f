package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"lecture-qa/internal/contextutil"
	"lecture-qa/internal/service"
	"lecture-qa/internal/speech"
)

// SpeechHandler synthesizes text and serves registered audio.
type SpeechHandler struct {
	svc service.QAService
}

// NewSpeechHandler creates a new SpeechHandler.
func NewSpeechHandler(svc service.QAService) *SpeechHandler {
	return &SpeechHandler{svc: svc}
}

// SpeakRequest is the payload for POST /api/v1/speak.
//
// swagger:model SpeakRequest
type SpeakRequest struct {
	Text string `json:"text" validate:"required,max=8000"`

	// Language of the question the text answers; overrides an English guess
	Language string `json:"language,omitempty" validate:"omitempty,oneof=en zh-tw zh-TW zh ja ko"`
}

// Speak handles POST /api/v1/speak. Audio from the online engine is streamed
// back and released as soon as it is written. Local playback returns JSON.
//
// swagger:route POST /api/v1/speak speakText
//
// responses:
//
//	200: SpeechResponse
//	400: ErrorResponse
//	422: ErrorResponse
//	502: ErrorResponse
func (h *SpeechHandler) Speak(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req SpeakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if fields := validateRequest(&req); fields != nil {
		writeErrorResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Validation error", Fields: fields})
		return
	}

	res, err := h.svc.Speak(ctx, req.Text, speech.ParseLanguage(req.Language))
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to synthesize speech")
		return
	}

	trace := make([]string, 0, len(res.Trace))
	for _, st := range res.Trace {
		trace = append(trace, string(st))
	}

	a := res.Artifact
	if a.Kind != speech.ArtifactFile {
		writeJSON(ctx, w, http.StatusOK, SpeechResponse{
			Language: string(res.Language),
			Engine:   string(a.Engine),
			Trace:    trace,
		})
		return
	}
	defer func() {
		if err := a.Release(); err != nil {
			logger.WarnContext(ctx, "failed to release speech artifact", "path", a.Path, "error", err)
		}
	}()

	w.Header().Set("X-Speech-Language", string(res.Language))
	w.Header().Set("X-Speech-Engine", string(a.Engine))
	w.Header().Set("X-Speech-Trace", strings.Join(trace, ","))
	serveArtifact(w, r, a)
}

// Audio handles GET /api/v1/audio/{id}.
func (h *SpeechHandler) Audio(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, ok := h.svc.Audio(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Audio not found")
		return
	}
	serveArtifact(w, r, a)
}

func serveArtifact(w http.ResponseWriter, r *http.Request, a *speech.Artifact) {
	ctx := r.Context()

	f, err := os.Open(a.Path)
	if errors.Is(err, os.ErrNotExist) {
		writeError(w, http.StatusNotFound, "Audio not found")
		return
	}
	if err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to open speech artifact", "path", a.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to read audio")
		return
	}
	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read audio")
		return
	}
	if a.ContentType != "" {
		w.Header().Set("Content-Type", a.ContentType)
	}
	http.ServeContent(w, r, filepath.Base(a.Path), info.ModTime(), f)
}
