package handlers

import (
	"net/http"
	"os"

	"lecture-qa/internal/contextutil"
	"lecture-qa/internal/service"
)

// LectureHandler handles lecture uploads and transcript reindexing.
type LectureHandler struct {
	svc            service.QAService
	maxUploadBytes int64
}

// NewLectureHandler creates a new LectureHandler.
func NewLectureHandler(svc service.QAService) *LectureHandler {
	return &LectureHandler{
		svc:            svc,
		maxUploadBytes: DefaultMaxUploadBytes,
	}
}

// IngestResponse is the result of a lecture upload.
//
// swagger:model IngestResponse
type IngestResponse struct {
	// Archived transcript path
	TranscriptPath string `json:"transcript_path"`

	// Language reported by the recognizer, if any
	Language string `json:"language,omitempty"`

	// Ids of the stored chunks, in order
	ChunkIDs []string `json:"chunk_ids"`

	Stored int `json:"stored"`
}

// ReindexResponse is the result of reindexing archived transcripts.
//
// swagger:model ReindexResponse
type ReindexResponse struct {
	Transcripts int `json:"transcripts"`
}

// Ingest handles POST /api/v1/lectures with a multipart "audio" file.
//
// swagger:route POST /api/v1/lectures ingestLecture
//
// Transcribes a lecture recording and stores its chunks.
//
// responses:
//
//	200: IngestResponse
//	400: ErrorResponse
//	422: ErrorResponse
//	500: ErrorResponse
//	502: ErrorResponse
func (h *LectureHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	file, ext, err := readAudio(w, r, h.maxUploadBytes)
	if err != nil {
		logger.WarnContext(ctx, "invalid lecture upload", "error", err)
		writeError(w, http.StatusBadRequest, "Missing audio file")
		return
	}
	defer func() {
		_ = file.Close()
	}()

	path, err := spoolUpload(file, ext)
	if err != nil {
		logger.ErrorContext(ctx, "failed to spool lecture upload", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to read upload")
		return
	}
	defer func() {
		_ = os.Remove(path)
	}()

	res, err := h.svc.IngestLecture(ctx, path)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to ingest lecture")
		return
	}

	ids := res.ChunkIDs
	if ids == nil {
		ids = []string{}
	}
	writeJSON(ctx, w, http.StatusOK, IngestResponse{
		TranscriptPath: res.TranscriptPath,
		Language:       res.Language,
		ChunkIDs:       ids,
		Stored:         res.Stored(),
	})
}

// Reindex handles POST /api/v1/transcripts/reindex.
func (h *LectureHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	n, err := h.svc.ReindexTranscripts(ctx)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to reindex transcripts")
		return
	}
	writeJSON(ctx, w, http.StatusOK, ReindexResponse{Transcripts: n})
}
