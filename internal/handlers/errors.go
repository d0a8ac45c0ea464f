package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"lecture-qa/internal/contextutil"
	"lecture-qa/internal/indexer"
	"lecture-qa/internal/service"
	"lecture-qa/internal/speech"
	"lecture-qa/internal/storage"
)

// ErrorResponse represents an error response.
//
// swagger:model ErrorResponse
type ErrorResponse struct {
	Error string `json:"error"`

	// Per-field validation failures
	Fields map[string]string `json:"fields,omitempty"`

	// Chunks stored before a partial ingestion stopped
	Stored *int `json:"stored,omitempty"`
	Total  *int `json:"total,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateRequest returns the failed fields of v, or nil.
func validateRequest(v any) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"request": err.Error()}
	}
	fields := make(map[string]string, len(verrs))
	for _, e := range verrs {
		fields[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
	}
	return fields
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeErrorResponse(w, statusCode, ErrorResponse{Error: message})
}

func writeErrorResponse(w http.ResponseWriter, statusCode int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

// handleServiceError maps service errors to appropriate HTTP status codes and responses.
func handleServiceError(ctx context.Context, w http.ResponseWriter, err error, defaultMsg string) {
	logger := contextutil.LoggerFromContext(ctx)
	logger.ErrorContext(ctx, "service error", "error", err)

	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		writeErrorResponse(w, http.StatusBadRequest, ErrorResponse{
			Error:  "Validation error",
			Fields: map[string]string{validationErr.Field: validationErr.Message},
		})
		return
	}

	var partial *indexer.PartialIngestionError
	if errors.As(err, &partial) {
		stored, total := partial.Stored, partial.Total
		writeErrorResponse(w, http.StatusInternalServerError, ErrorResponse{
			Error:  "Ingestion stopped before all chunks were stored",
			Stored: &stored,
			Total:  &total,
		})
		return
	}

	switch {
	case errors.Is(err, indexer.ErrTranscription):
		writeError(w, http.StatusBadGateway, "Transcription failed")
	case errors.Is(err, indexer.ErrEmptyContent):
		writeError(w, http.StatusUnprocessableEntity, "Transcript has no usable content")
	case errors.Is(err, speech.ErrNothingToSpeak):
		writeError(w, http.StatusUnprocessableEntity, "Nothing to speak")
	case errors.Is(err, speech.ErrSynthesisFailed), errors.Is(err, speech.ErrSynthesisTimeout):
		writeError(w, http.StatusBadGateway, "Speech synthesis failed")
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "Invalid input")
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "Resource not found")
	default:
		writeError(w, http.StatusInternalServerError, defaultMsg)
	}
}
