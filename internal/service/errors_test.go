package service

import (
	"errors"
	"fmt"
	"testing"

	"lecture-qa/internal/indexer"
)

func TestValidationError(t *testing.T) {
	tests := []struct {
		name string
		err  *ValidationError
		want string
	}{
		{name: "field and message", err: &ValidationError{Field: "question", Message: "cannot be empty"}, want: "invalid question: cannot be empty"},
		{name: "no field", err: &ValidationError{Message: "unsupported audio"}, want: "invalid input: unsupported audio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			wrapped := fmt.Errorf("ask: %w", tt.err)
			if !errors.Is(wrapped, ErrInvalidInput) {
				t.Error("wrapped ValidationError does not match ErrInvalidInput")
			}
		})
	}
}

func TestWrapError(t *testing.T) {
	if WrapError(nil, "save question") != nil {
		t.Error("WrapError(nil) != nil")
	}

	err := WrapError(errors.Join(indexer.ErrTranscription, errors.New("503")), "transcribe question")
	if !errors.Is(err, indexer.ErrTranscription) {
		t.Errorf("WrapError() lost the cause: %v", err)
	}
	if got := err.Error(); got[:len("transcribe question: ")] != "transcribe question: " {
		t.Errorf("Error() = %q, want step prefix", got)
	}
}
