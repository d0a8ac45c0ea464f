package speech

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lecture-qa/internal/contextutil"
)

// DefaultGrace is how long a served artifact stays on disk.
const DefaultGrace = 10 * time.Second

// Janitor holds file artifacts that are being served asynchronously and
// releases each one after a grace window.
type Janitor struct {
	grace time.Duration

	mu     sync.Mutex
	items  map[string]*Artifact
	timers map[string]*time.Timer
	closed bool
}

// NewJanitor creates a janitor. grace <= 0 uses DefaultGrace.
func NewJanitor(grace time.Duration) *Janitor {
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Janitor{
		grace:  grace,
		items:  make(map[string]*Artifact),
		timers: make(map[string]*time.Timer),
	}
}

// Register schedules a release of a and returns the id it can be looked up
// by until then. Artifacts without a file are not tracked and get "".
func (j *Janitor) Register(a *Artifact) string {
	if a == nil || a.Kind != ArtifactFile {
		return ""
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		_ = a.Release()
		return ""
	}

	id := uuid.NewString()
	j.items[id] = a
	j.timers[id] = time.AfterFunc(j.grace, func() {
		j.expire(id)
	})
	return id
}

// Lookup returns a registered artifact that has not been released yet.
func (j *Janitor) Lookup(id string) (*Artifact, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	a, ok := j.items[id]
	return a, ok
}

// Len returns the number of artifacts waiting for release.
func (j *Janitor) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.items)
}

func (j *Janitor) expire(id string) {
	j.mu.Lock()
	a, ok := j.items[id]
	delete(j.items, id)
	delete(j.timers, id)
	j.mu.Unlock()

	if ok {
		_ = a.Release()
	}
}

// Close releases everything still registered. Later registrations are
// released immediately.
func (j *Janitor) Close() error {
	j.mu.Lock()
	j.closed = true
	items := j.items
	for _, t := range j.timers {
		t.Stop()
	}
	j.items = make(map[string]*Artifact)
	j.timers = make(map[string]*time.Timer)
	j.mu.Unlock()

	var errs []error
	for _, a := range items {
		if err := a.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SweepDir removes speech files in dir older than age, left behind by a
// previous process that exited before its releases ran.
func SweepDir(ctx context.Context, dir string, age time.Duration) (int, error) {
	logger := contextutil.LoggerFromContext(ctx)

	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read artifacts dir: %w", err)
	}

	cutoff := time.Now().Add(-age)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "speech_") {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.WarnContext(ctx, "failed to remove stale speech file", "path", path, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}
