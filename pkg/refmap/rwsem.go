package refmap

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// maxReaders bounds concurrent shared holders of an rwsem. Writers
// acquire the full weight, excluding everyone.
const maxReaders = 1 << 30

// rwsem is a reader/writer lock whose acquisition suspends the calling
// goroutine and honors context cancellation, instead of blocking the
// way sync.RWMutex does. The underlying weighted semaphore is
// FIFO-fair, so a waiting writer is not starved by later readers.
type rwsem struct {
	sem *semaphore.Weighted
}

func newRWSem() *rwsem {
	return &rwsem{sem: semaphore.NewWeighted(maxReaders)}
}

// rlock acquires shared access. It returns ctx.Err() if the context is
// canceled while waiting, in which case the lock is not held.
func (l *rwsem) rlock(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

func (l *rwsem) runlock() {
	l.sem.Release(1)
}

// lock acquires exclusive access. It returns ctx.Err() if the context
// is canceled while waiting, in which case the lock is not held.
func (l *rwsem) lock(ctx context.Context) error {
	return l.sem.Acquire(ctx, maxReaders)
}

func (l *rwsem) unlock() {
	l.sem.Release(maxReaders)
}
