package service

import "sync"

// ownerLocks serialises cart operations per owner key. Entries are refcounted
// and removed once nobody holds or waits on them, so the map only grows with
// the number of concurrently active carts.
type ownerLocks struct {
	mu    sync.Mutex
	locks map[string]*ownerLock
}

type ownerLock struct {
	mu   sync.Mutex
	refs int
}

func newOwnerLocks() *ownerLocks {
	return &ownerLocks{locks: make(map[string]*ownerLock)}
}

// Lock blocks until key is free and returns the matching unlock func.
func (l *ownerLocks) Lock(key string) func() {
	l.mu.Lock()
	lk, ok := l.locks[key]
	if !ok {
		lk = &ownerLock{}
		l.locks[key] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.mu.Lock()
	return func() {
		lk.mu.Unlock()
		l.mu.Lock()
		lk.refs--
		if lk.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

// With runs fn while holding key.
func (l *ownerLocks) With(key string, fn func() error) error {
	unlock := l.Lock(key)
	defer unlock()
	return fn()
}

func (l *ownerLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
