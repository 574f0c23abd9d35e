package forecasting

import (
	"context"
	"sync"
)

// keyLocker is the in-process Locker used when no distributed lock is
// configured.  Locks are per key and never expire; they are released by the
// function Lock returns.
type keyLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyLocker creates an in-process per-key Locker.
func NewKeyLocker() Locker {
	return &keyLocker{locks: map[string]*sync.Mutex{}}
}

func (l *keyLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	acquired := make(chan struct{})
	go func() {
		m.Lock()
		select {
		case acquired <- struct{}{}:
		case <-ctx.Done():
			m.Unlock()
		}
	}()

	select {
	case <-acquired:
		return m.Unlock, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
