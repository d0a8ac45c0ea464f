package archive

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// TranscriptFile is a transcript found on disk.
type TranscriptFile struct {
	Path  string
	Stamp string
}

// ScanTranscripts lists archived transcripts oldest first.
func (m *Manager) ScanTranscripts(ctx context.Context) ([]TranscriptFile, error) {
	var files []TranscriptFile

	err := filepath.WalkDir(m.transcriptsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to access path %s: %w", path, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if d.IsDir() {
			if path != m.transcriptsDir {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		if !strings.HasPrefix(name, transcriptPrefix) || filepath.Ext(name) != ".txt" {
			return nil
		}

		files = append(files, TranscriptFile{Path: path, Stamp: StampFromPath(path)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan transcripts: %w", err)
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].Stamp != files[j].Stamp {
			return files[i].Stamp < files[j].Stamp
		}
		return files[i].Path < files[j].Path
	})
	return files, nil
}

// ReadTranscript returns the text of a saved transcript.
func ReadTranscript(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read transcript %s: %w", path, err)
	}
	return string(b), nil
}
