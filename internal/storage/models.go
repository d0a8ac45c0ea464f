package storage

import (
	"fmt"
	"time"
)

// ChunkRecord is a stored chunk row.
type ChunkRecord struct {
	Seq        int64  // Insertion sequence, assigned by SQLite
	ID         string // "chunk_<seq>", also keys the vector point
	Text       string
	SourcePath string // Transcript the chunk was cut from
	Timestamp  string // Creation stamp embedded in the transcript filename
	CreatedAt  time.Time
}

// SourceCount is the number of chunks stored for one transcript.
type SourceCount struct {
	SourcePath string
	Chunks     int
}

// FormatChunkID returns the public chunk id for a sequence value.
func FormatChunkID(seq int64) string {
	return fmt.Sprintf("chunk_%d", seq)
}
