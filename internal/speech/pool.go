package speech

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// EnginePool bounds how many local engine processes run at once.
type EnginePool struct {
	sem *semaphore.Weighted
}

// NewEnginePool creates a pool of size slots. Sizes below 1 become 1.
func NewEnginePool(size int) *EnginePool {
	if size < 1 {
		size = 1
	}
	return &EnginePool{sem: semaphore.NewWeighted(int64(size))}
}

// Acquire blocks until a slot is free or ctx is done.
func (p *EnginePool) Acquire(ctx context.Context) error {
	return p.sem.Acquire(ctx, 1)
}

// Release frees a slot taken by Acquire.
func (p *EnginePool) Release() {
	p.sem.Release(1)
}
