package speech

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"

	"lecture-qa/internal/contextutil"
)

var languageNames = map[string]string{
	"zh-TW": "Traditional Chinese (Taiwan Mandarin)",
	"ja":    "Japanese",
	"ko":    "Korean",
	"en":    "English",
}

// OpenAISynthesizer calls an OpenAI-compatible /audio/speech endpoint and
// writes the audio into dir. Requests are rate limited per minute.
type OpenAISynthesizer struct {
	client  openai.Client
	model   string
	voice   string
	dir     string
	limiter *rate.Limiter
}

// NewOpenAISynthesizer creates a synthesizer. ratePerMinute <= 0 disables limiting.
func NewOpenAISynthesizer(baseURL, apiKey, model, voice, dir string, ratePerMinute int, opts ...option.RequestOption) *OpenAISynthesizer {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	base := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if ratePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(ratePerMinute)), ratePerMinute)
	}

	return &OpenAISynthesizer{
		client:  openai.NewClient(append(base, opts...)...),
		model:   model,
		voice:   voice,
		dir:     dir,
		limiter: limiter,
	}
}

// Synthesize writes speech for text to a new mp3 file artifact.
func (s *OpenAISynthesizer) Synthesize(ctx context.Context, text, langCode string) (*Artifact, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit: %w", ErrSynthesisFailed, err)
	}

	name, ok := languageNames[langCode]
	if !ok {
		name = languageNames["en"]
	}

	resp, err := s.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(s.model),
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(s.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
		Instructions:   openai.String(fmt.Sprintf("Speak in %s [%s].", name, langCode)),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSynthesisFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	f, err := os.CreateTemp(s.dir, "speech_*.mp3")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create audio file: %w", ErrSynthesisFailed, err)
	}
	artifact := NewFileArtifact(f.Name(), "audio/mpeg", EngineOnline)

	n, err := io.Copy(f, resp.Body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil && n == 0 {
		err = fmt.Errorf("empty audio response")
	}
	if err != nil {
		_ = artifact.Release()
		return nil, fmt.Errorf("%w: failed to write audio: %w", ErrSynthesisFailed, err)
	}

	logger.InfoContext(ctx, "online speech synthesized", "language", langCode, "bytes", n, "path", artifact.Path)
	return artifact, nil
}
