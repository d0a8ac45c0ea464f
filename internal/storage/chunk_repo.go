package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chunk_store.go -package=mocks lecture-qa/internal/storage ChunkStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a requested chunk does not exist.
	ErrNotFound = errors.New("not found")
	// ErrCommitFailed is returned when the insert transaction could not be committed
	// after the beforeCommit hook already ran.
	ErrCommitFailed = errors.New("commit failed")
)

// ChunkStore defines the interface for chunk storage operations.
type ChunkStore interface {
	// Insert stores a chunk and assigns its Seq, ID and CreatedAt.
	// beforeCommit runs inside the transaction once the id is known; if it
	// returns an error the row is rolled back.
	Insert(ctx context.Context, chunk *ChunkRecord, beforeCommit func(*ChunkRecord) error) error
	// GetByID gets a chunk by its ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*ChunkRecord, error)
	// ListAll returns every chunk in insertion order.
	ListAll(ctx context.Context) ([]ChunkRecord, error)
	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)
	// CountBySource returns chunk counts grouped by transcript, ordered by first insertion.
	CountBySource(ctx context.Context) ([]SourceCount, error)
}

// ChunkRepo provides methods for chunk operations.
// It implements the ChunkStore interface.
type ChunkRepo struct {
	db *sql.DB
}

// NewChunkRepo creates a new ChunkRepo.
func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// Insert inserts a single chunk inside a transaction.
func (r *ChunkRepo) Insert(ctx context.Context, chunk *ChunkRecord, beforeCommit func(*ChunkRecord) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO chunks (text, source_path, timestamp) VALUES (?, ?, ?)",
		chunk.Text, chunk.SourcePath, chunk.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert chunk: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read chunk sequence: %w", err)
	}

	id := FormatChunkID(seq)
	if _, err := tx.ExecContext(ctx, "UPDATE chunks SET id = ? WHERE seq = ?", id, seq); err != nil {
		return fmt.Errorf("failed to assign chunk id: %w", err)
	}

	var createdAt sql.NullTime
	if err := tx.QueryRowContext(ctx, "SELECT created_at FROM chunks WHERE seq = ?", seq).Scan(&createdAt); err != nil {
		return fmt.Errorf("failed to read chunk: %w", err)
	}

	chunk.Seq = seq
	chunk.ID = id
	chunk.CreatedAt = createdAt.Time

	if beforeCommit != nil {
		if err := beforeCommit(chunk); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrCommitFailed, err)
	}
	committed = true
	return nil
}

// GetByID gets a chunk by its ID. Returns ErrNotFound if not found.
func (r *ChunkRepo) GetByID(ctx context.Context, id string) (*ChunkRecord, error) {
	var chunk ChunkRecord
	var createdAt sql.NullTime
	err := r.db.QueryRowContext(ctx,
		"SELECT seq, id, text, source_path, timestamp, created_at FROM chunks WHERE id = ?",
		id,
	).Scan(&chunk.Seq, &chunk.ID, &chunk.Text, &chunk.SourcePath, &chunk.Timestamp, &createdAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk: %w", err)
	}
	chunk.CreatedAt = createdAt.Time

	return &chunk, nil
}

// ListAll returns every chunk ordered by seq.
// Returns an empty slice if no chunks exist (not an error).
func (r *ChunkRepo) ListAll(ctx context.Context) ([]ChunkRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT seq, id, text, source_path, timestamp, created_at FROM chunks WHERE id IS NOT NULL ORDER BY seq",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	chunks := make([]ChunkRecord, 0)
	for rows.Next() {
		var chunk ChunkRecord
		var createdAt sql.NullTime
		if err := rows.Scan(&chunk.Seq, &chunk.ID, &chunk.Text, &chunk.SourcePath, &chunk.Timestamp, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunk.CreatedAt = createdAt.Time
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return chunks, nil
}

// Count returns the number of stored chunks.
func (r *ChunkRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks WHERE id IS NOT NULL").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

// CountBySource returns chunk counts per transcript.
func (r *ChunkRepo) CountBySource(ctx context.Context) ([]SourceCount, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT source_path, COUNT(*) FROM chunks WHERE id IS NOT NULL GROUP BY source_path ORDER BY MIN(seq)",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query source counts: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var counts []SourceCount
	for rows.Next() {
		var sc SourceCount
		if err := rows.Scan(&sc.SourcePath, &sc.Chunks); err != nil {
			return nil, fmt.Errorf("failed to scan source count: %w", err)
		}
		counts = append(counts, sc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return counts, nil
}
