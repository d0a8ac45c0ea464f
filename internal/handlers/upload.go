package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// DefaultMaxUploadBytes caps multipart audio uploads.
const DefaultMaxUploadBytes = 200 << 20

const audioField = "audio"

var errMissingAudio = errors.New("missing audio file")

// readAudio returns the uploaded audio part and its lowercase extension.
func readAudio(w http.ResponseWriter, r *http.Request, maxBytes int64) (multipart.File, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	file, header, err := r.FormFile(audioField)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", errMissingAudio, err)
	}
	return file, uploadExt(header.Filename), nil
}

func uploadExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" || ext == "." {
		return ".wav"
	}
	return ext
}

// spoolUpload copies r to a temp file so it can be read by path.
func spoolUpload(r io.Reader, ext string) (string, error) {
	f, err := os.CreateTemp("", "upload_*"+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to close upload file: %w", err)
	}
	return f.Name(), nil
}
