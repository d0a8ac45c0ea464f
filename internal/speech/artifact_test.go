package speech

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func writeTempAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "speech_test.mp3")
	if err := os.WriteFile(path, []byte("ID3"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func waitGone(t *testing.T, path string, within time.Duration) {
	t.Helper()
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("%s still exists after %s", path, within)
}

func TestArtifact_Release(t *testing.T) {
	path := writeTempAudio(t)
	a := NewFileArtifact(path, "audio/mpeg", EngineOnline)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.Release(); err != nil {
				t.Errorf("Release() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file still exists after Release()")
	}
}

func TestArtifact_Release_MissingFile(t *testing.T) {
	a := NewFileArtifact(filepath.Join(t.TempDir(), "gone.mp3"), "audio/mpeg", EngineOnline)
	if err := a.Release(); err != nil {
		t.Errorf("Release() of missing file error = %v", err)
	}
}

func TestArtifact_Release_None(t *testing.T) {
	a := &Artifact{Kind: ArtifactNone, Engine: EngineLocal}
	if err := a.Release(); err != nil {
		t.Errorf("Release() error = %v", err)
	}
}

func TestArtifact_ReleaseAfter(t *testing.T) {
	path := writeTempAudio(t)
	a := NewFileArtifact(path, "audio/mpeg", EngineOnline)

	a.ReleaseAfter(30 * time.Millisecond)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("file removed before the grace window: %v", err)
	}
	waitGone(t, path, 2*time.Second)

	// an explicit release after the deferred one is a no-op
	if err := a.Release(); err != nil {
		t.Errorf("Release() after ReleaseAfter error = %v", err)
	}
}
