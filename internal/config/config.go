package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	LLMBaseURL         string
	LLMModelName       string
	LLMAPIKey          string
	EmbeddingBaseURL   string
	EmbeddingModelName string

	DBPath           string
	VectorBackend    string // "qdrant" or "memory"
	QdrantURL        string
	QdrantCollection string
	QdrantVectorSize int

	TranscriptsDir string
	QuestionsDir   string
	ArtifactsDir   string
	InboxDir       string // empty disables the inbox watcher

	ASRBaseURL string
	ASRAPIKey  string
	ASRModel   string

	TTSBaseURL       string
	TTSAPIKey        string
	TTSModel         string
	TTSVoice         string
	TTSRatePerMinute int

	LocalTTSEnabled     bool
	LocalTTSCommand     string
	LocalTTSMarker      string
	LocalTTSTimeout     time.Duration
	LocalTTSConcurrency int
	SpeechCleanupDelay  time.Duration

	APIPort   string
	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		LLMBaseURL:         getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:       getEnv("LLM_MODEL", "Llama-3.1-8B-Instruct"),
		LLMAPIKey:          getEnv("LLM_API_KEY", "dummy-key"),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "granite-embedding-278m-multilingual"),
		DBPath:             getEnv("DB_PATH", "./data/lecture-qa.db"),
		VectorBackend:      strings.ToLower(getEnv("VECTOR_BACKEND", "qdrant")),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "lecture_chunks"),
		TranscriptsDir:     getEnv("TRANSCRIPTS_DIR", "./data/transcribed_data"),
		QuestionsDir:       getEnv("QUESTIONS_DIR", "./data/voice_questions"),
		ArtifactsDir:       getEnv("ARTIFACTS_DIR", filepath.Join(os.TempDir(), "lecture-qa-speech")),
		InboxDir:           getEnv("INBOX_DIR", ""),
		ASRBaseURL:         getEnv("ASR_BASE_URL", "https://api.openai.com/v1"),
		ASRAPIKey:          getEnv("ASR_API_KEY", ""),
		ASRModel:           getEnv("ASR_MODEL", "whisper-1"),
		TTSBaseURL:         getEnv("TTS_BASE_URL", "https://api.openai.com/v1"),
		TTSAPIKey:          getEnv("TTS_API_KEY", ""),
		TTSModel:           getEnv("TTS_MODEL", "gpt-4o-mini-tts"),
		TTSVoice:           getEnv("TTS_VOICE", "alloy"),
		LocalTTSCommand:    getEnv("LOCAL_TTS_COMMAND", "espeak-ng -v {lang} -f {file}"),
		LocalTTSMarker:     getEnv("LOCAL_TTS_MARKER", ""),
		APIPort:            getEnv("API_PORT", "9000"),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	if cfg.VectorBackend != "qdrant" && cfg.VectorBackend != "memory" {
		return nil, fmt.Errorf("VECTOR_BACKEND must be qdrant or memory, got %q", cfg.VectorBackend)
	}

	// The vector size must match the output of the embeddings model. If it changes,
	// the Qdrant collection must be recreated.
	vectorSizeStr := getEnv("QDRANT_VECTOR_SIZE", "")
	if vectorSizeStr == "" && cfg.VectorBackend == "qdrant" {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE is required")
	}
	if vectorSizeStr != "" {
		vectorSize, err := strconv.Atoi(vectorSizeStr)
		if err != nil {
			return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be a valid integer: %w", err)
		}
		if vectorSize <= 0 {
			return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be greater than 0")
		}
		cfg.QdrantVectorSize = vectorSize
	}

	if cfg.TTSRatePerMinute, err = getEnvInt("TTS_RATE_PER_MINUTE", 60); err != nil {
		return nil, err
	}
	if cfg.LocalTTSConcurrency, err = getEnvInt("LOCAL_TTS_CONCURRENCY", 1); err != nil {
		return nil, err
	}
	if cfg.LocalTTSConcurrency <= 0 {
		return nil, fmt.Errorf("LOCAL_TTS_CONCURRENCY must be greater than 0")
	}
	if cfg.LocalTTSEnabled, err = getEnvBool("LOCAL_TTS_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.LocalTTSTimeout, err = getEnvDuration("LOCAL_TTS_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.SpeechCleanupDelay, err = getEnvDuration("SPEECH_CLEANUP_DELAY", 10*time.Second); err != nil {
		return nil, err
	}

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	dirs := []string{filepath.Dir(cfg.DBPath), cfg.TranscriptsDir, cfg.QuestionsDir, cfg.ArtifactsDir}
	if cfg.InboxDir != "" {
		dirs = append(dirs, cfg.InboxDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return v, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a valid boolean: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return v, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL is invalid: %w", err)
	}
	return level, nil
}
