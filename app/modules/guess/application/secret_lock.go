package guessservice

import (
	"sync"

	"github.com/google/uuid"
)

// secretLocks hands out one mutex per secret. Entries are dropped once no
// goroutine holds or waits on them.
type secretLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*secretLock
}

type secretLock struct {
	mu   sync.Mutex
	refs int
}

func newSecretLocks() *secretLocks {
	return &secretLocks{locks: make(map[uuid.UUID]*secretLock)}
}

// Lock blocks until the caller holds the lock for id and returns the release func.
func (l *secretLocks) Lock(id uuid.UUID) (unlock func()) {
	l.mu.Lock()
	e, ok := l.locks[id]
	if !ok {
		e = &secretLock{}
		l.locks[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *secretLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
