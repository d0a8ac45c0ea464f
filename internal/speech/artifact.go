package speech

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// ArtifactKind says whether synthesis left a file behind.
type ArtifactKind string

const (
	// ArtifactNone means the engine rendered audio itself.
	ArtifactNone ArtifactKind = "none"
	// ArtifactFile means audio was written to Artifact.Path.
	ArtifactFile ArtifactKind = "file"
)

// Engine names a synthesis engine.
type Engine string

const (
	EngineLocal  Engine = "local"
	EngineOnline Engine = "online"
)

// Artifact is the output of one synthesis. A file artifact must be released
// exactly once, either right after playback or after a grace window.
type Artifact struct {
	Kind        ArtifactKind
	Path        string
	Engine      Engine
	ContentType string

	once sync.Once
	err  error
}

// NewFileArtifact wraps an audio file written by engine.
func NewFileArtifact(path, contentType string, engine Engine) *Artifact {
	return &Artifact{Kind: ArtifactFile, Path: path, Engine: engine, ContentType: contentType}
}

// Release deletes the file. Later calls return the first call's result.
// A file that is already gone is not an error.
func (a *Artifact) Release() error {
	a.once.Do(func() {
		if a.Kind != ArtifactFile || a.Path == "" {
			return
		}
		if err := os.Remove(a.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			a.err = fmt.Errorf("failed to remove speech artifact: %w", err)
		}
	})
	return a.err
}

// ReleaseAfter schedules Release after d. The timer cannot be cancelled.
func (a *Artifact) ReleaseAfter(d time.Duration) {
	time.AfterFunc(d, func() {
		_ = a.Release()
	})
}
