// Package archive owns the on-disk layout: saved lecture transcripts and
// recorded voice questions, each named after its creation time.
package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	// StampLayout is the creation stamp embedded in archived filenames.
	StampLayout = "20060102_150405"

	transcriptPrefix = "transcript_"
	questionPrefix   = "question_"
)

// Manager writes and scans archived files.
type Manager struct {
	transcriptsDir string
	questionsDir   string
	now            func() time.Time
	mu             sync.Mutex
}

// NewManager creates a Manager, creating both directories if needed.
func NewManager(transcriptsDir, questionsDir string) (*Manager, error) {
	for _, dir := range []string{transcriptsDir, questionsDir} {
		if dir == "" {
			return nil, fmt.Errorf("archive directory is required")
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create archive directory %s: %w", dir, err)
		}
	}
	return &Manager{
		transcriptsDir: transcriptsDir,
		questionsDir:   questionsDir,
		now:            time.Now,
	}, nil
}

// TranscriptsDir returns the transcript directory.
func (m *Manager) TranscriptsDir() string { return m.transcriptsDir }

// SaveTranscript writes text to transcript_<stamp>.txt and returns the path.
func (m *Manager) SaveTranscript(text string) (string, error) {
	f, err := m.create(m.transcriptsDir, transcriptPrefix, ".txt")
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(text); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to write transcript: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close transcript: %w", err)
	}
	return f.Name(), nil
}

// SaveQuestion copies a recorded question to question_<stamp><ext>.
func (m *Manager) SaveQuestion(r io.Reader, ext string) (string, error) {
	if ext == "" {
		ext = ".wav"
	}
	f, err := m.create(m.questionsDir, questionPrefix, ext)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to write question audio: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close question audio: %w", err)
	}
	return f.Name(), nil
}

// create opens a new file named prefix+stamp+ext. Files created within the
// same second get a numeric suffix after the stamp.
func (m *Manager) create(dir, prefix, ext string) (*os.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stamp := m.now().Format(StampLayout)
	for n := 0; n < 1000; n++ {
		name := prefix + stamp + ext
		if n > 0 {
			name = fmt.Sprintf("%s%s_%d%s", prefix, stamp, n, ext)
		}
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", name, err)
		}
		return f, nil
	}
	return nil, fmt.Errorf("too many files for stamp %s", stamp)
}

// StampFromPath extracts the YYYYMMDD_HHMMSS creation stamp from an archived
// filename. It returns "" when the name carries no stamp.
func StampFromPath(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	for _, prefix := range []string{transcriptPrefix, questionPrefix} {
		stem = strings.TrimPrefix(stem, prefix)
	}
	parts := strings.Split(stem, "_")
	if len(parts) < 2 {
		return ""
	}
	stamp := parts[0] + "_" + parts[1]
	if _, err := time.Parse(StampLayout, stamp); err != nil {
		return ""
	}
	return stamp
}
