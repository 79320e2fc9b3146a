package memory

import (
	"context"
	"sync"
)

// Locker implements port/locker.AdvisoryLocker with in-process mutexes,
// one per key. Sufficient for the single-process memory store; the Postgres
// locker takes over when state is shared.
type Locker struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewLocker() *Locker {
	return &Locker{locks: make(map[int64]*sync.Mutex)}
}

func (l *Locker) WithLock(ctx context.Context, key int64, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	keyLock, ok := l.locks[key]
	if !ok {
		keyLock = &sync.Mutex{}
		l.locks[key] = keyLock
	}
	l.mu.Unlock()

	keyLock.Lock()
	defer keyLock.Unlock()
	return fn(ctx)
}
