package lock

import (
	"context"
	"sync"
	"time"
)

// LocalLock is an in-process EntityLock for single-instance deployments and
// tests.
type LocalLock struct {
	mu   sync.Mutex
	held map[string]time.Time
}

// NewLocalLock creates an in-process entity lock.
func NewLocalLock() *LocalLock {
	return &LocalLock{held: make(map[string]time.Time)}
}

// Acquire takes the lock or returns ErrLockHeld.
func (l *LocalLock) Acquire(_ context.Context, ruleID, entityID string, ttl time.Duration) (Lease, error) {
	key := ruleID + ":" + entityID
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if expiry, ok := l.held[key]; ok && now.Before(expiry) {
		return nil, ErrLockHeld
	}

	l.held[key] = now.Add(ttl)

	return &localLease{lock: l, key: key}, nil
}

type localLease struct {
	lock *LocalLock
	key  string
}

func (l *localLease) Release(_ context.Context) error {
	l.lock.mu.Lock()
	defer l.lock.mu.Unlock()

	delete(l.lock.held, l.key)

	return nil
}
