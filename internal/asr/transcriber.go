// Package asr wraps the speech-to-text collaborator.
package asr

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"lecture-qa/internal/contextutil"
)

// Transcript is the recognized text of one recording.
type Transcript struct {
	Text     string
	Language string // as reported by the recognizer, may be empty
}

// Transcriber converts an audio file to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (Transcript, error)
}

// OpenAITranscriber calls an OpenAI-compatible /audio/transcriptions endpoint
// (OpenAI whisper-1, faster-whisper-server, speaches, LocalAI).
type OpenAITranscriber struct {
	client openai.Client
	model  string
}

// NewOpenAITranscriber creates a transcriber. Extra options are applied after
// the base URL and key, so tests can tune retries.
func NewOpenAITranscriber(baseURL, apiKey, model string, opts ...option.RequestOption) *OpenAITranscriber {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	base := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	}
	return &OpenAITranscriber{
		client: openai.NewClient(append(base, opts...)...),
		model:  model,
	}
}

// Transcribe uploads the file and returns its text. A recording with no
// recognizable speech yields an empty Transcript and no error.
func (t *OpenAITranscriber) Transcribe(ctx context.Context, audioPath string) (Transcript, error) {
	logger := contextutil.LoggerFromContext(ctx)

	f, err := os.Open(audioPath)
	if err != nil {
		return Transcript{}, fmt.Errorf("failed to open audio: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	resp, err := t.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:           f,
		Model:          openai.AudioModel(t.model),
		ResponseFormat: openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		logger.ErrorContext(ctx, "transcription request failed", "audio", audioPath, "error", err)
		return Transcript{}, fmt.Errorf("failed to transcribe audio: %w", err)
	}

	var verbose struct {
		Language string `json:"language"`
	}
	_ = json.Unmarshal([]byte(resp.RawJSON()), &verbose)

	out := Transcript{
		Text:     strings.TrimSpace(resp.Text),
		Language: verbose.Language,
	}
	logger.InfoContext(ctx, "audio transcribed", "audio", audioPath, "chars", len([]rune(out.Text)), "language", out.Language)
	return out, nil
}
