package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"lecture-qa/internal/contextutil"
)

const (
	filePlaceholder = "{file}"
	langPlaceholder = "{lang}"

	// commandWaitDelay bounds how long Wait blocks on output pipes after the
	// process is killed.
	commandWaitDelay = 2 * time.Second
)

// CommandError describes a local engine process that did not succeed.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("speech command %q failed with exit code %d: %v: %s", e.Command, e.ExitCode, e.Err, e.Stderr)
	}
	return fmt.Sprintf("speech command %q failed with exit code %d: %v", e.Command, e.ExitCode, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// CommandSynthesizer runs a local text-to-speech program per call, for
// example "espeak-ng -v {lang} -f {file}". {file} is replaced by a temp file
// holding the text; without it the text goes to stdin. {lang} is replaced by
// the engine voice for the language.
type CommandSynthesizer struct {
	args   []string
	marker string
	pool   *EnginePool
	voices map[Language]string
	// tempDir holds input files; empty means os.TempDir.
	tempDir string
}

// NewCommandSynthesizer parses template. When marker is set, a run only counts
// as successful if marker appears in the program's stdout.
func NewCommandSynthesizer(template, marker string, pool *EnginePool) (*CommandSynthesizer, error) {
	args := strings.Fields(template)
	if len(args) == 0 {
		return nil, fmt.Errorf("local speech command is empty")
	}
	if pool == nil {
		pool = NewEnginePool(1)
	}
	return &CommandSynthesizer{
		args:   args,
		marker: marker,
		pool:   pool,
		voices: map[Language]string{
			LangEnglish:  "en",
			LangChinese:  "cmn",
			LangJapanese: "ja",
			LangKorean:   "ko",
		},
	}, nil
}

// Synthesize runs one engine process. Each call gets its own process and input
// file; nothing is shared between calls except the pool slot.
func (s *CommandSynthesizer) Synthesize(ctx context.Context, text string, lang Language) error {
	logger := contextutil.LoggerFromContext(ctx)

	if err := s.pool.Acquire(ctx); err != nil {
		return fmt.Errorf("%w: waiting for engine: %w", ErrSynthesisTimeout, err)
	}
	defer s.pool.Release()

	args, stdin, cleanup, err := s.prepare(text, lang)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSynthesisFailed, err)
	}
	defer cleanup()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdin = stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = commandWaitDelay

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	if runErr != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrSynthesisTimeout, duration.Round(time.Millisecond))
		}
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return fmt.Errorf("%w: %w", ErrSynthesisFailed, &CommandError{
			Command:  args[0],
			ExitCode: exitCode,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      runErr,
		})
	}

	if s.marker != "" && !strings.Contains(stdout.String(), s.marker) {
		return fmt.Errorf("%w: completion marker %q not found in output", ErrSynthesisFailed, s.marker)
	}

	logger.DebugContext(ctx, "local speech finished", "command", args[0], "language", lang, "duration_ms", duration.Milliseconds())
	return nil
}

// prepare expands the placeholders and writes the input file if one is used.
func (s *CommandSynthesizer) prepare(text string, lang Language) ([]string, io.Reader, func(), error) {
	voice := s.voices[lang]
	if voice == "" {
		voice = s.voices[LangEnglish]
	}

	usesFile := false
	for _, a := range s.args {
		if strings.Contains(a, filePlaceholder) {
			usesFile = true
			break
		}
	}

	cleanup := func() {}
	var path string
	if usesFile {
		f, err := os.CreateTemp(s.tempDir, "lecture-qa-speech-*.txt")
		if err != nil {
			return nil, nil, cleanup, fmt.Errorf("failed to create speech input: %w", err)
		}
		path = f.Name()
		cleanup = func() {
			_ = os.Remove(path)
		}
		if _, err := f.WriteString(text); err != nil {
			_ = f.Close()
			cleanup()
			return nil, nil, func() {}, fmt.Errorf("failed to write speech input: %w", err)
		}
		if err := f.Close(); err != nil {
			cleanup()
			return nil, nil, func() {}, fmt.Errorf("failed to close speech input: %w", err)
		}
	}

	args := make([]string, len(s.args))
	for i, a := range s.args {
		a = strings.ReplaceAll(a, filePlaceholder, path)
		args[i] = strings.ReplaceAll(a, langPlaceholder, voice)
	}

	if usesFile {
		return args, nil, cleanup, nil
	}
	return args, strings.NewReader(text), cleanup, nil
}
