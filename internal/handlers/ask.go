package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"lecture-qa/internal/contextutil"
	"lecture-qa/internal/rag"
	"lecture-qa/internal/service"
)

// AudioPathPrefix is where registered speech artifacts are served.
const AudioPathPrefix = "/api/v1/audio/"

// AskHandler handles typed and spoken questions.
type AskHandler struct {
	svc            service.QAService
	maxUploadBytes int64
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(svc service.QAService) *AskHandler {
	return &AskHandler{
		svc:            svc,
		maxUploadBytes: DefaultMaxUploadBytes,
	}
}

// AskRequest represents the HTTP request payload for a question.
//
// swagger:model AskRequest
type AskRequest struct {
	Question string `json:"question" validate:"required,max=4000"`

	// Speak the answer as well; the response then carries speech details
	Speak bool `json:"speak,omitempty"`
}

// AskResponse represents the HTTP response payload for a question.
//
// swagger:model AskResponse
type AskResponse struct {
	Question         string              `json:"question"`
	QuestionLanguage string              `json:"question_language"`
	Answer           string              `json:"answer"`
	References       []ReferenceResponse `json:"references"`

	// Fallback is set when the answer is the canned apology
	Fallback bool `json:"fallback,omitempty"`

	Speech *SpeechResponse `json:"speech,omitempty"`

	// Archived recording of a voice question
	QuestionPath string `json:"question_path,omitempty"`
}

// ReferenceResponse names a transcript an answer drew on.
//
// swagger:model ReferenceResponse
type ReferenceResponse struct {
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
}

// SpeechResponse describes how an answer was spoken.
//
// swagger:model SpeechResponse
type SpeechResponse struct {
	Language string   `json:"language"`
	Engine   string   `json:"engine,omitempty"`
	Trace    []string `json:"trace,omitempty"`

	// AudioURL serves the synthesized file for a short while
	AudioURL string `json:"audio_url,omitempty"`

	Error string `json:"error,omitempty"`
}

// ServeHTTP handles POST /api/v1/ask.
//
// swagger:route POST /api/v1/ask askQuestion
//
// Answers a question from the stored lecture transcripts.
//
// responses:
//
//	200: AskResponse
//	400: ErrorResponse
func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if fields := validateRequest(&req); fields != nil {
		writeErrorResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Validation error", Fields: fields})
		return
	}

	resp, err := h.svc.Ask(ctx, service.AskRequest{Question: req.Question, Speak: req.Speak})
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to answer question")
		return
	}
	writeJSON(ctx, w, http.StatusOK, toAskResponse(resp))
}

// Voice handles POST /api/v1/ask/voice with a multipart "audio" recording
// and an optional "speak" form value.
func (h *AskHandler) Voice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	file, ext, err := readAudio(w, r, h.maxUploadBytes)
	if err != nil {
		logger.WarnContext(ctx, "invalid voice question", "error", err)
		writeError(w, http.StatusBadRequest, "Missing audio file")
		return
	}
	defer func() {
		_ = file.Close()
	}()

	speak := false
	if v := r.FormValue("speak"); v != "" {
		if speak, err = strconv.ParseBool(v); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, ErrorResponse{
				Error:  "Validation error",
				Fields: map[string]string{"speak": "must be a boolean"},
			})
			return
		}
	}

	resp, err := h.svc.AskVoice(ctx, file, ext, speak)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to answer voice question")
		return
	}
	writeJSON(ctx, w, http.StatusOK, toAskResponse(resp))
}

func toAskResponse(resp service.AskResponse) AskResponse {
	out := AskResponse{
		Question:         resp.Question,
		QuestionLanguage: string(resp.QuestionLanguage),
		Answer:           resp.Answer,
		References:       toReferences(resp.References),
		Fallback:         resp.Fallback,
		QuestionPath:     resp.QuestionPath,
	}
	if s := resp.Speech; s != nil {
		out.Speech = &SpeechResponse{
			Language: string(s.Language),
			Engine:   string(s.Engine),
			Error:    s.Error,
		}
		for _, st := range s.Trace {
			out.Speech.Trace = append(out.Speech.Trace, string(st))
		}
		if s.AudioID != "" {
			out.Speech.AudioURL = AudioPathPrefix + s.AudioID
		}
	}
	return out
}

func toReferences(refs []rag.Reference) []ReferenceResponse {
	out := make([]ReferenceResponse, 0, len(refs))
	for _, ref := range refs {
		out = append(out, ReferenceResponse{Source: ref.SourcePath, Timestamp: ref.Timestamp})
	}
	return out
}
