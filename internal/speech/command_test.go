package speech

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func newTestCommand(t *testing.T, template, marker string) *CommandSynthesizer {
	t.Helper()
	bin := strings.Fields(template)[0]
	if _, err := exec.LookPath(bin); err != nil {
		t.Skipf("%s not available: %v", bin, err)
	}
	s, err := NewCommandSynthesizer(template, marker, NewEnginePool(1))
	if err != nil {
		t.Fatalf("NewCommandSynthesizer() error = %v", err)
	}
	s.tempDir = t.TempDir()
	return s
}

func assertNoInputFiles(t *testing.T, s *CommandSynthesizer) {
	t.Helper()
	entries, err := os.ReadDir(s.tempDir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("%d speech input files left behind", len(entries))
	}
}

func TestNewCommandSynthesizer_Empty(t *testing.T) {
	if _, err := NewCommandSynthesizer("   ", "", nil); err == nil {
		t.Error("NewCommandSynthesizer() with empty template should fail")
	}
}

func TestCommandSynthesizer_Synthesize(t *testing.T) {
	tests := []struct {
		name     string
		template string
		marker   string
		text     string
		lang     Language
		wantErr  error
	}{
		{name: "file input", template: "cat {file}", text: "entropy", lang: LangEnglish},
		{name: "stdin input", template: "cat", marker: "entropy", text: "entropy", lang: LangEnglish},
		{name: "marker found", template: "cat {file}", marker: "DONE", text: "say it DONE", lang: LangEnglish},
		{name: "marker missing", template: "cat {file}", marker: "DONE", text: "say it", lang: LangEnglish, wantErr: ErrSynthesisFailed},
		{name: "language voice", template: "echo {lang}", marker: "cmn", text: "熵", lang: LangChinese},
		{name: "unknown language uses english voice", template: "echo {lang}", marker: "en", text: "x", lang: "fr"},
		{name: "non-zero exit", template: "false", text: "x", lang: LangEnglish, wantErr: ErrSynthesisFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestCommand(t, tt.template, tt.marker)
			err := s.Synthesize(context.Background(), tt.text, tt.lang)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Synthesize() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Synthesize() error = %v, want %v", err, tt.wantErr)
			}
			assertNoInputFiles(t, s)
		})
	}
}

func TestCommandSynthesizer_ExitCode(t *testing.T) {
	s := newTestCommand(t, "false", "")
	err := s.Synthesize(context.Background(), "x", LangEnglish)

	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("Synthesize() error = %v, want CommandError", err)
	}
	if cmdErr.ExitCode != 1 || cmdErr.Command != "false" {
		t.Errorf("CommandError = %+v", cmdErr)
	}
}

func TestCommandSynthesizer_Timeout(t *testing.T) {
	s := newTestCommand(t, "sleep 5", "")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := s.Synthesize(ctx, "x", LangEnglish)
	if !errors.Is(err, ErrSynthesisTimeout) {
		t.Fatalf("Synthesize() error = %v, want ErrSynthesisTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 4*time.Second {
		t.Errorf("Synthesize() took %s, process was not killed", elapsed)
	}
	assertNoInputFiles(t, s)
}

func TestCommandSynthesizer_WithRouterFallback(t *testing.T) {
	s := newTestCommand(t, "false", "")
	online := &fakeOnline{}

	res, err := NewRouter(s, online).Speak(context.Background(), "Entropy.", LangUnknown)
	if err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	if online.calls != 1 || res.Artifact.Engine != EngineOnline {
		t.Errorf("expected one online fallback, got %d calls and %+v", online.calls, res.Artifact)
	}
	var cmdErr *CommandError
	if !errors.As(res.LocalErr, &cmdErr) {
		t.Errorf("LocalErr = %v, want CommandError", res.LocalErr)
	}
}
