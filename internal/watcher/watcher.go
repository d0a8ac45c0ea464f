// Package watcher ingests audio files dropped into an inbox directory.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"lecture-qa/internal/contextutil"
	"lecture-qa/internal/indexer"
)

const (
	// DefaultPattern matches the audio files the inbox accepts.
	DefaultPattern = "*.{mp3,wav,m4a,ogg,flac,webm}"
	// DefaultSettle is how long a file must stay unchanged before it is ingested.
	DefaultSettle = 2 * time.Second

	DoneDir   = "done"
	FailedDir = "failed"
)

// Ingester stores one lecture recording.
type Ingester interface {
	Ingest(ctx context.Context, audioPath string) (indexer.Result, error)
}

// Watcher debounces inbox events and feeds settled files to a single worker,
// so ingestion writes never run concurrently.
type Watcher struct {
	dir      string
	pattern  glob.Glob
	settle   time.Duration
	ingester Ingester
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	queue   chan string
	stopped chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher) error

// WithSettle sets the debounce window.
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) error {
		if d <= 0 {
			return fmt.Errorf("settle must be positive, got %s", d)
		}
		w.settle = d
		return nil
	}
}

// WithPattern replaces DefaultPattern. It is matched against base names.
func WithPattern(pattern string) Option {
	return func(w *Watcher) error {
		g, err := glob.Compile(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		w.pattern = g
		return nil
	}
}

// New creates a watcher for dir and makes its done/ and failed/ folders.
func New(dir string, ingester Ingester, opts ...Option) (*Watcher, error) {
	w := &Watcher{
		dir:      dir,
		pattern:  glob.MustCompile(DefaultPattern),
		settle:   DefaultSettle,
		ingester: ingester,
		logger:   slog.Default(),
		pending:  make(map[string]*time.Timer),
		queue:    make(chan string, 64),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}
	for _, sub := range []string{DoneDir, FailedDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return nil, fmt.Errorf("failed to create inbox folder: %w", err)
		}
	}
	return w, nil
}

func (w *Watcher) getLogger(ctx context.Context) *slog.Logger {
	if l := contextutil.LoggerFromContext(ctx); l != slog.Default() {
		return l
	}
	return w.logger
}

// Run watches until ctx is done. Files already in the inbox are picked up
// first. A Watcher runs once.
func (w *Watcher) Run(ctx context.Context) error {
	logger := w.getLogger(ctx).With("inbox", w.dir)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = fsw.Close()
	}()
	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.work(ctx)
	}()
	defer func() {
		close(w.stopped)
		w.stopTimers()
		wg.Wait()
	}()

	if err := w.scan(); err != nil {
		logger.WarnContext(ctx, "failed to scan inbox", "error", err)
	}
	logger.InfoContext(ctx, "watching inbox", "settle", w.settle)

	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "inbox watcher stopped")
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if path, ok := w.handleEvent(ev); ok {
				w.schedule(path)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.WarnContext(ctx, "watch error", "error", err)
		}
	}
}

// handleEvent returns the file an event should (re)schedule, if any.
func (w *Watcher) handleEvent(ev fsnotify.Event) (string, bool) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return "", false
	}
	if !w.accepts(ev.Name) {
		return "", false
	}
	info, err := os.Stat(ev.Name)
	if err != nil || info.IsDir() {
		return "", false
	}
	return ev.Name, true
}

func (w *Watcher) accepts(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return w.pattern.Match(strings.ToLower(base))
}

func (w *Watcher) scan() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		path := filepath.Join(w.dir, e.Name())
		if !e.IsDir() && w.accepts(path) {
			w.schedule(path)
		}
	}
	return nil
}

// schedule (re)starts the settle timer for path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		select {
		case w.queue <- path:
		case <-w.stopped:
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopped:
			return
		case path := <-w.queue:
			w.process(ctx, path)
		}
	}
}

func (w *Watcher) process(ctx context.Context, path string) {
	logger := w.getLogger(ctx).With("file", path)

	if _, err := os.Stat(path); err != nil {
		logger.DebugContext(ctx, "inbox file vanished before ingestion")
		return
	}

	res, err := w.ingester.Ingest(ctx, path)
	if err != nil && ctx.Err() != nil {
		// Left in place for the next run.
		return
	}

	dest := DoneDir
	if err != nil {
		dest = FailedDir
		var partial *indexer.PartialIngestionError
		if errors.As(err, &partial) {
			logger.ErrorContext(ctx, "inbox file partially ingested", "stored", partial.Stored, "total", partial.Total, "error", err)
		} else {
			logger.ErrorContext(ctx, "failed to ingest inbox file", "error", err)
		}
	} else {
		logger.InfoContext(ctx, "inbox file ingested", "transcript", res.TranscriptPath, "chunks", res.Stored())
	}

	target, err := moveInto(path, filepath.Join(w.dir, dest))
	if err != nil {
		logger.ErrorContext(ctx, "failed to move inbox file", "dir", dest, "error", err)
		return
	}
	logger.DebugContext(ctx, "inbox file moved", "target", target)
}

// moveInto moves path into dir without replacing an existing file: a taken
// name gets a _N suffix before its extension. It returns the new path.
func moveInto(path, dir string) (string, error) {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for n := 0; n < 1000; n++ {
		name := base
		if n > 0 {
			name = fmt.Sprintf("%s_%d%s", stem, n, ext)
		}
		target := filepath.Join(dir, name)
		err := os.Link(path, target)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to link %s: %w", target, err)
		}
		if err := os.Remove(path); err != nil {
			return target, fmt.Errorf("failed to remove %s: %w", path, err)
		}
		return target, nil
	}
	return "", fmt.Errorf("too many files named %s in %s", base, dir)
}
