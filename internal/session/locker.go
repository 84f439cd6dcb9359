package session

import "sync"

// Locker serializes update handling per user. Telegram can deliver several
// updates for the same user concurrently, flow steps must not interleave.
type Locker struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewLocker creates an empty Locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[int64]*sync.Mutex)}
}

// Lock acquires the per-user mutex, creating it on first use.
func (l *Locker) Lock(userID int64) {
	l.mu.Lock()
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()
	m.Lock()
}

// Unlock releases the per-user mutex.
func (l *Locker) Unlock(userID int64) {
	l.mu.Lock()
	m := l.locks[userID]
	l.mu.Unlock()
	if m != nil {
		m.Unlock()
	}
}
